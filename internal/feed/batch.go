package feed

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/splice/scte35"
)

// Result is the outcome of decoding one input of a batch.
type Result struct {
	Input  string
	Splice *scte35.Splice
	Err    error
}

// DecodeAll decodes every input with at most limit decodes in flight and
// returns the results in input order. Inputs use the same line syntax as a
// feed; a PID or PTS on the line overrides the one in opts. Per-input
// failures are reported in Result.Err, so the only error returned is the
// context's.
func DecodeAll(ctx context.Context, inputs []string, limit int, opts ...scte35.Option) ([]Result, error) {
	results := make([]Result, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = decodeOne(in, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func decodeOne(in string, opts []scte35.Option) Result {
	res := Result{Input: in}
	pl, err := ParseLine(in)
	if err != nil {
		res.Err = err
		return res
	}

	lineOpts := append([]scte35.Option(nil), opts...)
	if pl.PID != nil {
		lineOpts = append(lineOpts, scte35.WithPID(*pl.PID))
	}
	if pl.PTS != nil {
		lineOpts = append(lineOpts, scte35.WithPTS(*pl.PTS))
	}
	res.Splice, res.Err = scte35.DecodeString(pl.Cue, lineOpts...)
	return res
}
