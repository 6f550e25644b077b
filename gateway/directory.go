// Package gateway is the ambient HTTP/websocket front door for a node
// (SPEC_FULL.md [GATEWAY]): it exposes the cluster's node list and a
// live feed of membership events to outside observers, the way the
// teacher's server package exposes room state to game clients.
package gateway

import (
	"fmt"
	"runtime/debug"

	"github.com/coerce-rs/coerce-go/actor"
	"github.com/coerce-rs/coerce-go/internal/log"
	"github.com/coerce-rs/coerce-go/remote"
)

// NodeDirectory tracks the cluster's known nodes for the gateway's own
// use (the authoritative copy still lives in remote.Registry; this is a
// read-side cache kept current by NodeJoined/NodeLeft/NodeQuarantined
// notifications so /nodes requests don't need to Ask the registry
// through the remote package on every HTTP request). Adapted from
// game/room_manager.go's RoomManagerActor: a map guarded by actor
// single-ownership instead of a mutex, answering an Ask-based list
// request.
type NodeDirectory struct {
	self           remote.RemoteNode
	nodes          map[remote.NodeID]remote.RemoteNode
	quarantinedIDs map[remote.NodeID]bool
	selfPID        *actor.PID
}

// NewNodeDirectoryProducer creates the Producer for a NodeDirectory,
// seeded with this node's own identity (mirrors RoomManagerActor always
// knowing about its own engine).
func NewNodeDirectoryProducer(self remote.RemoteNode) actor.Producer {
	return func() actor.Actor {
		return &NodeDirectory{
			self:  self,
			nodes: map[remote.NodeID]remote.RemoteNode{self.ID: self},
		}
	}
}

// NodeJoined records a node as reachable (or refreshes its RemoteNode,
// e.g. a later reconnect with an updated NodeStartedAt).
type NodeJoined struct{ Node remote.RemoteNode }

// NodeLeft removes a node from the directory entirely (distinct from
// NodeQuarantined: a node that has genuinely gone away, not merely one
// this process is currently failing to reach).
type NodeLeft struct{ NodeID remote.NodeID }

// NodeQuarantined marks a node's entry as quarantined without removing
// it; quarantined nodes are still listed (unlike remote.Registry's
// GetNodes, which excludes them from sharding-relevant results) but
// flagged, so the gateway's human-facing /nodes view can show that a
// peer is currently unreachable instead of disappearing silently.
type NodeQuarantined struct{ NodeID remote.NodeID }

// ListNodesRequest, sent via Ask, replies with a NodeListResponse.
type ListNodesRequest struct{}

// NodeView is the directory's per-node reporting shape: the node plus
// whether it is currently quarantined.
type NodeView struct {
	Node        remote.RemoteNode `json:"node"`
	Quarantined bool              `json:"quarantined"`
}

// NodeListResponse is the Ask reply for ListNodesRequest.
type NodeListResponse struct {
	Nodes []NodeView `json:"nodes"`
}

func (a *NodeDirectory) Receive(ctx actor.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC recovered in NodeDirectory %s: %v\nStack trace:\n%s\n", a.selfPID, r, string(debug.Stack()))
			if ctx.RequestID() != "" {
				ctx.Reply(fmt.Errorf("node directory panicked: %v", r))
			}
		}
	}()

	if a.selfPID == nil {
		a.selfPID = ctx.Self()
	}

	switch msg := ctx.Message().(type) {
	case actor.Started:
		log.Printf("gateway: NodeDirectory %s started\n", a.selfPID)

	case NodeJoined:
		a.quarantined(msg.Node.ID, false)
		a.nodes[msg.Node.ID] = msg.Node

	case NodeLeft:
		delete(a.nodes, msg.NodeID)
		delete(a.quarantinedSet(), msg.NodeID)

	case NodeQuarantined:
		a.quarantined(msg.NodeID, true)

	case ListNodesRequest:
		ctx.Reply(a.listNodes())

	case actor.Stopping:
		log.Printf("gateway: NodeDirectory %s stopping\n", a.selfPID)
	}
}

func (a *NodeDirectory) listNodes() NodeListResponse {
	views := make([]NodeView, 0, len(a.nodes))
	q := a.quarantinedSet()
	for id, node := range a.nodes {
		views = append(views, NodeView{Node: node, Quarantined: q[id]})
	}
	return NodeListResponse{Nodes: views}
}

func (a *NodeDirectory) quarantinedSet() map[remote.NodeID]bool {
	if a.quarantinedIDs == nil {
		a.quarantinedIDs = make(map[remote.NodeID]bool)
	}
	return a.quarantinedIDs
}

func (a *NodeDirectory) quarantined(id remote.NodeID, v bool) {
	set := a.quarantinedSet()
	if v {
		set[id] = true
	} else {
		delete(set, id)
	}
}
