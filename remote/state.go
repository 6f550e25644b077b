package remote

import (
	"net"
	"time"
)

// ClientStateKind is the tag of the ClientState union (spec §3
// "ClientState").
type ClientStateKind int

const (
	StateIdle ClientStateKind = iota
	StateQuarantined
	StateConnected
)

func (k ClientStateKind) String() string {
	switch k {
	case StateIdle:
		return "Idle"
	case StateQuarantined:
		return "Quarantined"
	case StateConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// NodeIdentity is what the receive loop learns about the peer from its
// Handshake frame.
type NodeIdentity struct {
	Node RemoteNode
}

// HandshakeStatus tracks whether our own BeginHandshake has been
// acknowledged by the peer yet.
type HandshakeStatus struct {
	Acknowledged bool
	Ack          *HandshakeAckEvent
}

// ConnectionState is the payload of ClientState.Connected (spec §3).
type ConnectionState struct {
	Conn      net.Conn
	Writer    *FrameWriter
	Identity  NodeIdentity
	HasID     bool
	Handshake HandshakeStatus

	epoch      uint64
	pingTicker *time.Ticker
	pingDone   chan struct{}
}

// ClientState is the tagged union a RemoteClient occupies exactly one of
// at any time (spec §3): Idle{attempts}, Quarantined{since,attempts}, or
// Connected(ConnectionState).
type ClientState struct {
	Kind       ClientStateKind
	Attempts   uint32
	Since      time.Time
	Connection *ConnectionState
}

func idleState(attempts uint32) ClientState {
	return ClientState{Kind: StateIdle, Attempts: attempts}
}

func quarantinedState(attempts uint32) ClientState {
	return ClientState{Kind: StateQuarantined, Attempts: attempts, Since: time.Now()}
}

func connectedState(conn *ConnectionState) ClientState {
	return ClientState{Kind: StateConnected, Connection: conn}
}
