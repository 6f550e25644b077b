// Package remote implements the remote client connection state machine
// (spec §4.2) and the external registry collaborator that indexes
// node-id -> client handle (spec §4.4).
package remote

import "time"

// NodeID uniquely identifies a node instance for the lifetime of the
// cluster (spec §3 "NodeId"). Generated at boot; 64 bits, not necessarily
// sequential.
type NodeID uint64

// RemoteNode describes a peer node. Equality is by ID; once constructed a
// RemoteNode is treated as immutable (spec §3).
type RemoteNode struct {
	ID            NodeID
	Addr          string
	Tag           string
	NodeStartedAt *time.Time
}

// Equal reports whether two RemoteNode values refer to the same node.
func (n RemoteNode) Equal(other RemoteNode) bool {
	return n.ID == other.ID
}
