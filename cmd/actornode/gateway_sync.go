package main

import (
	"time"

	"github.com/coerce-rs/coerce-go/actor"
	"github.com/coerce-rs/coerce-go/gateway"
	"github.com/coerce-rs/coerce-go/remote"
)

// directorySyncInterval is how often the gateway's read-side NodeDirectory
// cache is refreshed from the authoritative remote.Registry. The registry
// itself is pushed ClientConnected/ClientQuarantined notifications in real
// time; this poll just keeps the gateway's human-facing view eventually
// consistent without the registry needing to know about the gateway.
const directorySyncInterval = 2 * time.Second

// syncGatewayDirectory periodically Asks the registry for its current node
// list and forwards join/quarantine transitions into the gateway's
// NodeDirectory and EventBroadcaster, mirroring the teacher's
// RoomManagerActor -> BroadcasterActor push (game/room_manager.go), here
// driven by a poll since the registry has no subscriber list of its own.
func syncGatewayDirectory(engine *actor.Engine, registryPID *actor.PID, gw *gateway.Server, done <-chan struct{}) {
	ticker := time.NewTicker(directorySyncInterval)
	defer ticker.Stop()

	known := make(map[remote.NodeID]remote.RemoteNode)

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			result, err := engine.Ask(registryPID, remote.GetNodes{}, directorySyncInterval)
			if err != nil {
				continue
			}
			nodes, ok := result.([]remote.RemoteNode)
			if !ok {
				continue
			}

			current := make(map[remote.NodeID]remote.RemoteNode, len(nodes))
			for _, node := range nodes {
				current[node.ID] = node
				if _, seen := known[node.ID]; !seen {
					engine.Send(gw.DirectoryPID(), gateway.NodeJoined{Node: node}, nil)
					engine.Send(gw.BroadcasterPID(), gateway.MembershipEvent{Kind: "joined", Node: node}, nil)
				}
			}
			for id, node := range known {
				if _, stillUp := current[id]; !stillUp {
					engine.Send(gw.DirectoryPID(), gateway.NodeQuarantined{NodeID: id}, nil)
					engine.Send(gw.BroadcasterPID(), gateway.MembershipEvent{Kind: "quarantined", Node: node}, nil)
				}
			}
			known = current
		}
	}
}
