package remote

import "time"

// Config tunes the per-client state machine. Zero value is not valid; use
// DefaultConfig (spec Open Question decisions, recorded in DESIGN.md).
type Config struct {
	// ReconnectDelay is how long Idle waits between connection attempts.
	ReconnectDelay time.Duration
	// PingInterval is how often a Connected client pings its peer.
	PingInterval time.Duration
	// IdentityWaitTimeout bounds how long Connect waits for the peer's
	// identity frame before failing the attempt.
	IdentityWaitTimeout time.Duration
	// QuarantineThreshold is the number of consecutive failed connection
	// attempts after which a client is reported as quarantined. A
	// quarantined client keeps retrying on the normal reconnect cadence.
	QuarantineThreshold uint32
	// MaxWriteBufferBytes caps the write buffer; once exceeded the oldest
	// buffered frames are dropped to make room (drop-oldest policy).
	MaxWriteBufferBytes int
	// CallTimeout bounds how long Call waits for a Result frame.
	CallTimeout time.Duration
	// DialTimeout bounds a single TCP dial attempt.
	DialTimeout time.Duration
}

// DefaultConfig returns sane defaults for production use.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:      time.Second,
		PingInterval:        500 * time.Millisecond,
		IdentityWaitTimeout: 5 * time.Second,
		QuarantineThreshold: 5,
		MaxWriteBufferBytes: 8 << 20,
		CallTimeout:         10 * time.Second,
		DialTimeout:         5 * time.Second,
	}
}
