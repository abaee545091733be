package scte35

// bitReader reads bits MSB-first from a byte slice. Reads past the end of
// the window return zero bits and latch the overflow flag.
type bitReader struct {
	data     []byte
	bitPos   int
	overflow bool
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

func (r *bitReader) bitsLeft() int {
	total := len(r.data) * 8
	if r.bitPos > total {
		return 0
	}
	return total - r.bitPos
}

// bytesConsumed returns the number of whole or partial bytes read so far.
func (r *bitReader) bytesConsumed() int {
	n := (r.bitPos + 7) / 8
	if n > len(r.data) {
		return len(r.data)
	}
	return n
}

// err reports ErrShortBuffer once any read has run past the window.
func (r *bitReader) err() error {
	if r.overflow {
		return ErrShortBuffer
	}
	return nil
}

func (r *bitReader) readBit() bool {
	return r.readUint64(1) == 1
}

func (r *bitReader) readUint32(n int) uint32 {
	return uint32(r.readUint64(n))
}

// readUint64 reads an n-bit field, n <= 64, taking up to a byte at a time.
// Bits past the window read as zero.
func (r *bitReader) readUint64(n int) uint64 {
	var val uint64
	for n > 0 {
		if r.bitPos >= len(r.data)*8 {
			r.overflow = true
			return val << uint(n)
		}
		avail := 8 - r.bitPos%8
		take := min(avail, n)
		chunk := uint64(r.data[r.bitPos/8]) >> uint(avail-take) & (1<<uint(take) - 1)
		val = val<<uint(take) | chunk
		r.bitPos += take
		n -= take
	}
	return val
}

func (r *bitReader) readBytes(n int) []byte {
	if n <= 0 {
		return nil
	}
	if r.bitsLeft() < n*8 {
		r.overflow = true
		r.bitPos = len(r.data) * 8
		return nil
	}
	out := make([]byte, n)
	if r.bitPos%8 == 0 {
		r.bitPos += 8 * copy(out, r.data[r.bitPos/8:])
		return out
	}
	for i := range out {
		out[i] = byte(r.readUint64(8))
	}
	return out
}

// readRemaining returns every whole byte left in the window.
func (r *bitReader) readRemaining() []byte {
	return r.readBytes(r.bitsLeft() / 8)
}

func (r *bitReader) skip(n int) {
	r.bitPos += n
	if r.bitPos > len(r.data)*8 {
		r.overflow = true
	}
}
