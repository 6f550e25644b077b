// Package config holds node-level configuration, following the same flat
// struct + DefaultConfig() pattern as the teacher's utils.Config — here
// covering node identity, listen/seed addresses, and the remote client
// tunables instead of game-physics constants.
package config

import (
	"time"

	"github.com/coerce-rs/coerce-go/remote"
)

// Config holds all configurable node parameters.
type Config struct {
	// Identity
	NodeID  remote.NodeID `json:"nodeId"`
	NodeTag string        `json:"nodeTag"`

	// Networking
	ListenAddr string `json:"listenAddr"`
	SeedAddr   string `json:"seedAddr"` // empty if this node is the seed

	// Gateway (ambient HTTP/websocket front door, see gateway package)
	GatewayAddr string `json:"gatewayAddr"`

	// Remote client tuning, shared by every RemoteClient this node spawns.
	Remote remote.Config `json:"remote"`
}

// DefaultConfig returns a Config struct with default values. NodeID is
// left zero; callers are expected to assign one at boot (see
// cmd/actornode/main.go).
func DefaultConfig() Config {
	return Config{
		ListenAddr:  "0.0.0.0:30101", // spec §6 "Environment": default server listen
		GatewayAddr: "0.0.0.0:8080",
		Remote:      remote.DefaultConfig(),
	}
}

// WithPingInterval is a small builder-style helper mirroring the
// teacher's pattern of deriving one Config field from others in
// DefaultConfig (e.g. utils.Config's CellSize from CanvasSize/GridSize).
func (c Config) WithPingInterval(d time.Duration) Config {
	c.Remote.PingInterval = d
	return c
}
