package remote

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/coerce-rs/coerce-go/actor"
)

// Registry is the external collaborator that indexes known nodes to their
// local RemoteClient handle (spec §4.4 "Client registry"). It owns
// spawning RemoteClient actors, not the connection state machine itself.
type Registry struct {
	self     RemoteNode
	codec    Codec
	config   Config
	handlers *HandlerRegistry

	engine  *actor.Engine
	clients map[NodeID]*registryEntry
}

type registryEntry struct {
	node        RemoteNode
	addr        string
	pid         *actor.PID
	quarantined bool
}

// NewRegistry constructs the Registry actor's Producer. self is this
// node's own identity, handed to every RemoteClient it spawns.
func NewRegistry(self RemoteNode, codec Codec, config Config, handlers *HandlerRegistry) actor.Producer {
	return func() actor.Actor {
		return &Registry{
			self:     self,
			codec:    codec,
			config:   config,
			handlers: handlers,
			clients:  make(map[NodeID]*registryEntry),
		}
	}
}

// RegisterClient records a known peer and, if it isn't already being
// managed, spawns a RemoteClient for it. Safe to send repeatedly for the
// same node; later calls are no-ops once a client exists.
type RegisterClient struct {
	Node RemoteNode
	Addr string
}

// RegisterNodes connects to every node in Nodes that the registry does not
// already manage, concurrently, and (if sent via Ask) waits for every dial
// attempt to finish before replying — grounded on
// coerce-remote/src/actor/handler.rs's connect_all, implemented here with
// golang.org/x/sync/errgroup for bounded fan-out.
type RegisterNodes struct {
	Nodes []RemoteNode
}

// GetNodes, sent via Ask, replies with every known node that is not
// currently quarantined (Open Question decision: quarantined nodes are
// excluded from sharding-relevant results).
type GetNodes struct{}

// ClientWrite forwards Payload to the RemoteClient for NodeID, if known.
type ClientWrite struct {
	NodeID      NodeID
	HandlerName string
	Recipient   string
	Payload     interface{}
}

// ClientConnected is sent by a RemoteClient once it has learned its
// peer's identity via handshake. It clears any quarantine flag.
type ClientConnected struct {
	Node   RemoteNode
	Client *actor.PID
}

// ClientQuarantined is sent by a RemoteClient the first time it crosses
// the quarantine threshold.
type ClientQuarantined struct {
	Node RemoteNode
}

func (r *Registry) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case actor.Started:
		r.engine = ctx.Engine()

	case RegisterClient:
		r.registerClient(ctx, msg.Node, msg.Addr)

	case RegisterNodes:
		r.registerNodes(ctx, msg.Nodes)

	case GetNodes:
		nodes := make([]RemoteNode, 0, len(r.clients))
		for _, entry := range r.clients {
			if entry.quarantined {
				continue
			}
			nodes = append(nodes, entry.node)
		}
		ctx.Reply(nodes)

	case ClientWrite:
		if entry, ok := r.clients[msg.NodeID]; ok && entry.pid != nil {
			ctx.Engine().Send(entry.pid, Write{
				HandlerName: msg.HandlerName,
				Recipient:   msg.Recipient,
				Payload:     msg.Payload,
			}, ctx.Self())
		}

	case ClientConnected:
		if entry, ok := r.clients[msg.Node.ID]; ok {
			entry.quarantined = false
			entry.node = msg.Node
			entry.pid = msg.Client
		} else {
			r.clients[msg.Node.ID] = &registryEntry{node: msg.Node, pid: msg.Client}
		}

	case ClientQuarantined:
		if entry, ok := r.clients[msg.Node.ID]; ok {
			entry.quarantined = true
		}
	}
}

func (r *Registry) registerClient(ctx actor.Context, node RemoteNode, addr string) *actor.PID {
	if entry, ok := r.clients[node.ID]; ok {
		return entry.pid
	}

	pid := ctx.Engine().Spawn(actor.NewProps(
		NewRemoteClient(r.self, node, addr, ctx.Self(), r.codec, r.config, r.handlers),
	))
	r.clients[node.ID] = &registryEntry{node: node, addr: addr, pid: pid}
	return pid
}

func (r *Registry) registerNodes(ctx actor.Context, nodes []RemoteNode) {
	var toConnect []*actor.PID
	for _, node := range nodes {
		if node.ID == r.self.ID {
			continue
		}
		if _, known := r.clients[node.ID]; known {
			continue
		}
		pid := r.registerClient(ctx, node, node.Addr)
		toConnect = append(toConnect, pid)
	}

	reply := ctx.Defer()
	engine := ctx.Engine()
	timeout := r.config.DialTimeout + r.config.IdentityWaitTimeout

	go func() {
		var g errgroup.Group
		for _, pid := range toConnect {
			pid := pid
			g.Go(func() error {
				_, err := engine.Ask(pid, Connect{}, timeout)
				if err != nil {
					return fmt.Errorf("remote: connect %s: %w", pid, err)
				}
				return nil
			})
		}
		reply(g.Wait())
	}()
}
