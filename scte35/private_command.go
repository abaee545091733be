package scte35

import "encoding/json"

// PrivateCommand carries an owner identifier followed by opaque bytes that
// fill the rest of the command.
type PrivateCommand struct {
	Identifier   uint32   `json:"identifier"`
	PrivateBytes HexBytes `json:"private_bytes"`
}

func (cmd *PrivateCommand) Type() uint32 { return PrivateCommandType }

func (cmd *PrivateCommand) Name() string { return "Private Command" }

func (cmd *PrivateCommand) decode(r *bitReader) error {
	cmd.Identifier = r.readUint32(32)
	cmd.PrivateBytes = r.readRemaining()
	return nil
}

// MarshalJSON renders the command with its name.
func (cmd *PrivateCommand) MarshalJSON() ([]byte, error) {
	type fields PrivateCommand
	return json.Marshal(struct {
		Name string `json:"name"`
		Type uint32 `json:"command_type"`
		*fields
	}{cmd.Name(), cmd.Type(), (*fields)(cmd)})
}
