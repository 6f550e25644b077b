package remote

import "encoding/json"

// Codec turns values into wire bytes and back (spec §6 "Codec"). The
// session layer never inspects the bytes it carries; only a Codec does.
// Swapping the Codec changes the wire format without touching framing,
// handshake, or client state machine code.
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, out interface{}) error
}

// JSONCodec is the default Codec. The spec leaves wire format unprescribed
// (§1 "out of scope"); JSON is what the rest of this codebase already
// uses for its own wire traffic (server/handlers.go, game/paddle_actor.go),
// so it is the natural default rather than reaching for a new format.
type JSONCodec struct{}

func (JSONCodec) Encode(v interface{}) ([]byte, error) { return json.Marshal(v) }
func (JSONCodec) Decode(data []byte, out interface{}) error { return json.Unmarshal(data, out) }
