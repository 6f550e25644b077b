package gateway

import (
	"runtime/debug"
	"strings"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/coerce-rs/coerce-go/actor"
	"github.com/coerce-rs/coerce-go/internal/log"
	"github.com/coerce-rs/coerce-go/remote"
)

// EventBroadcaster fans node membership events out to every subscribed
// websocket connection. Adapted from game/broadcaster_actor.go's
// BroadcasterActor: same map-of-conns-plus-mutex shape (the mutex is
// kept from that shape; every access to the map happens inside Receive,
// on the actor's own goroutine), same
// websocket.JSON.Send-then-prune-on-error broadcast pattern, repurposed
// from game state batches to membership events.
type EventBroadcaster struct {
	subscribers map[*websocket.Conn]bool
	mu          sync.RWMutex
	selfPID     *actor.PID
}

// NewEventBroadcasterProducer creates the Producer for an
// EventBroadcaster.
func NewEventBroadcasterProducer() actor.Producer {
	return func() actor.Actor {
		return &EventBroadcaster{subscribers: make(map[*websocket.Conn]bool)}
	}
}

// AddSubscriber registers a websocket connection to receive future events.
type AddSubscriber struct{ Conn *websocket.Conn }

// RemoveSubscriber unregisters a connection (e.g. its SubscriberConnection
// actor is tearing down).
type RemoveSubscriber struct{ Conn *websocket.Conn }

// MembershipEvent is broadcast to every subscriber whenever the local
// NodeDirectory's view of the cluster changes.
type MembershipEvent struct {
	Kind string            `json:"kind"` // "joined" | "left" | "quarantined"
	Node remote.RemoteNode `json:"node"`
}

func (a *EventBroadcaster) Receive(ctx actor.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC recovered in EventBroadcaster %s: %v\nStack trace:\n%s\n", a.selfPID, r, string(debug.Stack()))
		}
	}()

	if a.selfPID == nil {
		a.selfPID = ctx.Self()
	}

	switch msg := ctx.Message().(type) {
	case actor.Started:
		log.Printf("gateway: EventBroadcaster %s started\n", a.selfPID)

	case AddSubscriber:
		if msg.Conn != nil {
			a.mu.Lock()
			a.subscribers[msg.Conn] = true
			a.mu.Unlock()
		}

	case RemoveSubscriber:
		if msg.Conn != nil {
			a.mu.Lock()
			delete(a.subscribers, msg.Conn)
			a.mu.Unlock()
		}

	case MembershipEvent:
		a.broadcast(msg)

	case actor.Stopping:
		a.closeAll()
	}
}

func (a *EventBroadcaster) broadcast(event MembershipEvent) {
	a.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(a.subscribers))
	for conn := range a.subscribers {
		conns = append(conns, conn)
	}
	a.mu.RUnlock()

	if len(conns) == 0 {
		return
	}

	var dead []*websocket.Conn
	for _, ws := range conns {
		if err := websocket.JSON.Send(ws, event); err != nil {
			if isClosedConnErr(err) {
				dead = append(dead, ws)
			} else {
				log.Printf("gateway: EventBroadcaster %s: send failed for %s: %v\n", a.selfPID, ws.RemoteAddr(), err)
			}
		}
	}

	if len(dead) > 0 {
		a.mu.Lock()
		for _, ws := range dead {
			delete(a.subscribers, ws)
		}
		a.mu.Unlock()
	}
}

func (a *EventBroadcaster) closeAll() {
	a.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(a.subscribers))
	for conn := range a.subscribers {
		conns = append(conns, conn)
	}
	a.subscribers = make(map[*websocket.Conn]bool)
	a.mu.Unlock()

	for _, ws := range conns {
		_ = ws.Close()
	}
}

func isClosedConnErr(err error) bool {
	s := err.Error()
	return strings.Contains(s, "use of closed network connection") ||
		strings.Contains(s, "broken pipe") ||
		strings.Contains(s, "connection reset by peer") ||
		strings.Contains(s, "EOF")
}
