package remote

import "encoding/json"

// EventKind discriminates the frames exchanged over a session (spec §6
// "SessionEvent"). Go has no sum types, so a kind tag plus one struct per
// variant stands in for the tagged union the spec describes.
type EventKind uint8

const (
	EventHandshake EventKind = iota
	EventHandshakeAck
	EventPing
	EventPong
	EventMessage
	EventResult
)

func (k EventKind) String() string {
	switch k {
	case EventHandshake:
		return "Handshake"
	case EventHandshakeAck:
		return "HandshakeAck"
	case EventPing:
		return "Ping"
	case EventPong:
		return "Pong"
	case EventMessage:
		return "Message"
	case EventResult:
		return "Result"
	default:
		return "Unknown"
	}
}

// ClientType distinguishes worker nodes from plain clients during
// handshake, mirroring the original's "client_type" handshake field.
type ClientType uint8

const (
	ClientTypeWorker ClientType = iota
	ClientTypeClient
)

// HandshakeEvent announces a node's identity and, optionally, a set of
// peer nodes (BeginHandshake's SeedNodes). The receiving client records
// only the identity; it does not register or dial the listed nodes.
type HandshakeEvent struct {
	NodeID     NodeID       `json:"node_id"`
	NodeTag    string       `json:"node_tag"`
	ClientType ClientType   `json:"client_type"`
	Nodes      []RemoteNode `json:"nodes,omitempty"`
}

// HandshakeAckEvent acknowledges a received HandshakeEvent.
type HandshakeAckEvent struct {
	NodeID  NodeID `json:"node_id"`
	NodeTag string `json:"node_tag"`
}

// PingEvent and PongEvent carry a correlation id so a pinger can in
// principle measure round-trip time; the client itself doesn't use it for
// anything beyond liveness today.
type PingEvent struct {
	Correlation uint64 `json:"correlation"`
}

type PongEvent struct {
	Correlation uint64 `json:"correlation"`
}

// MessageEvent carries a request addressed to a named handler on a
// specific remote actor. HandlerName resolution against a local registry
// of boxed handlers is an external collaborator the spec places out of
// core scope; remote.HandlerRegistry (handlers.go) provides a minimal one.
type MessageEvent struct {
	Correlation string          `json:"correlation"`
	HandlerName string          `json:"handler_name"`
	Recipient   string          `json:"recipient"`
	Payload     json.RawMessage `json:"payload"`
}

// ResultEvent answers a previously-sent MessageEvent, matched by
// Correlation against the sender's pending-request table.
type ResultEvent struct {
	Correlation string          `json:"correlation"`
	Payload     json.RawMessage `json:"payload"`
	Err         string          `json:"err,omitempty"`
}

// frame is the on-wire envelope: a kind tag plus the kind-specific payload,
// serialized through the session's Codec.
type frame struct {
	Kind    EventKind       `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// encodeEvent serializes one of the Event structs above into a frame
// payload ready for FrameWriter.
func encodeEvent(codec Codec, kind EventKind, event interface{}) ([]byte, error) {
	payload, err := codec.Encode(event)
	if err != nil {
		return nil, err
	}
	return codec.Encode(frame{Kind: kind, Payload: payload})
}

// decodeEvent parses a frame payload back into its kind tag plus raw
// event bytes, which the caller then decodes into the concrete struct
// matching Kind.
func decodeEvent(codec Codec, data []byte) (EventKind, json.RawMessage, error) {
	var f frame
	if err := codec.Decode(data, &f); err != nil {
		return 0, nil, err
	}
	return f.Kind, f.Payload, nil
}
