package remote

import "net"

// Adopt hands an already-accepted inbound connection to a freshly spawned
// RemoteClient, skipping the dial step entirely. Used by the accept loop
// (server.go) for the passive side of a connection.
type Adopt struct {
	Conn net.Conn
}

// Connect asks an Idle client to dial its peer. The caller can Ask this
// message to learn the outcome, or Send it and let the normal reconnect
// cadence retry on failure.
type Connect struct{}

// Write asks a Connected client to serialize and send Payload. If the
// client is not Connected, the encoded frame is appended to the write
// buffer (drained once Connected). The spec's "Write<M>" generic is
// modeled here as an interface{} payload, encoded uniformly through the
// client's Codec at send time — the crossing into untyped data is the
// same one the Codec itself performs, so no behavior is lost by not
// instantiating a Go generic per payload type.
type Write struct {
	HandlerName string
	Recipient   string
	Payload     interface{}
}

// Call is a Write that also expects a correlated ResultEvent back from the
// peer's HandlerRegistry. Reply (via Ask, or ctx.Defer captured internally)
// resolves with a *ResultEvent or an error.
type Call struct {
	HandlerName string
	Recipient   string
	Payload     interface{}
}

// BeginHandshake sends a Handshake frame carrying the given seed nodes and
// waits (if sent via Ask) for the peer's HandshakeAck.
type BeginHandshake struct {
	SeedNodes []RemoteNode
}

// Disconnected is sent by the client to itself when a write fails. A drop
// seen by the receive loop arrives as inboundClosed instead, which the
// client handles the same way.
type Disconnected struct {
	Err error
}

// inboundEvent is delivered by the receive loop for every frame it
// decodes; decoding into the concrete Event struct happens here rather
// than in the receive loop, keeping the receive loop a dumb forwarder
// (spec §2: the receive loop "runs as a sibling task" and must not touch
// client state directly).
type inboundEvent struct {
	kind EventKind
	raw  []byte
}

// inboundClosed is delivered once, in place of any further inboundEvent,
// when the receive loop's read fails or the peer closes the connection.
type inboundClosed struct {
	err error
}
