package gateway

import (
	"encoding/json"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/coerce-rs/coerce-go/actor"
	"github.com/coerce-rs/coerce-go/internal/log"
)

var errSubscriberStopping = errors.New("subscriber connection actor stopping")

// SubscriberConnection owns one inbound websocket from an outside
// observer subscribed to the membership feed. Adapted from
// server/connection_handler.go's ConnectionHandlerActor: a sibling
// read-loop goroutine that only ever talks back to the actor via
// engine.Send (never touches actor state directly, same discipline as
// remote.RemoteClient's receive/ping loops), torn down on read error or
// Stopping.
//
// Unlike ConnectionHandlerActor there is no room assignment handshake
// to wait for: the connection is registered with the EventBroadcaster
// immediately on Started, mirroring how game/ball_actor.go's simpler
// Ask/Reply actors skip the room-lookup step and go straight to work.
type SubscriberConnection struct {
	conn           *websocket.Conn
	broadcasterPID *actor.PID
	selfPID        *actor.PID
	connAddr       string

	stopReadLoop   chan struct{}
	readLoopExited chan struct{}
	closeOnce      sync.Once
}

// SubscriberConnectionArgs holds the constructor arguments.
type SubscriberConnectionArgs struct {
	Conn           *websocket.Conn
	BroadcasterPID *actor.PID
}

// NewSubscriberConnectionProducer creates the Producer for a
// SubscriberConnection.
func NewSubscriberConnectionProducer(args SubscriberConnectionArgs) actor.Producer {
	return func() actor.Actor {
		addr := "unknown"
		if args.Conn != nil {
			addr = args.Conn.RemoteAddr().String()
		}
		return &SubscriberConnection{
			conn:           args.Conn,
			broadcasterPID: args.BroadcasterPID,
			connAddr:       addr,
			stopReadLoop:   make(chan struct{}),
			readLoopExited: make(chan struct{}),
		}
	}
}

// inboundPing is what the read loop sends for every frame it receives
// from the subscriber (the feed is one-way in practice, but pings keep
// the handler symmetric with remote.RemoteClient's ping/pong traffic
// and let a client verify liveness without a second endpoint).
type inboundPing struct{ payload json.RawMessage }

func (a *SubscriberConnection) Receive(ctx actor.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC recovered in SubscriberConnection %s: %v\nStack trace:\n%s\n", a.connAddr, r, string(debug.Stack()))
			a.cleanup(ctx, errors.New("panic in Receive"))
		}
	}()

	if a.selfPID == nil {
		a.selfPID = ctx.Self()
	}

	switch msg := ctx.Message().(type) {
	case actor.Started:
		if a.broadcasterPID == nil || a.conn == nil {
			a.cleanup(ctx, errors.New("missing broadcaster or connection"))
			return
		}
		ctx.Engine().Send(a.broadcasterPID, AddSubscriber{Conn: a.conn}, a.selfPID)
		go a.readLoop(ctx.Engine(), a.selfPID)

	case inboundPing:
		_ = msg // acknowledged implicitly; nothing to reply to a one-way feed

	case error:
		a.cleanup(ctx, msg)

	case actor.Stopping:
		a.signalAndWaitForReadLoop()
		a.performCleanup(ctx, errSubscriberStopping)
	}
}

func (a *SubscriberConnection) readLoop(engine *actor.Engine, selfPID *actor.PID) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC recovered in SubscriberConnection %s readLoop: %v\nStack trace:\n%s\n", a.connAddr, r, string(debug.Stack()))
		}
		close(a.readLoopExited)
		engine.Send(selfPID, errors.New("read loop exited"), nil)
	}()

	for {
		select {
		case <-a.stopReadLoop:
			return
		default:
		}

		var payload json.RawMessage
		_ = a.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		err := websocket.JSON.Receive(a.conn, &payload)
		_ = a.conn.SetReadDeadline(time.Time{})
		if err != nil {
			return
		}

		engine.Send(selfPID, inboundPing{payload: payload}, nil)
	}
}

func (a *SubscriberConnection) signalAndWaitForReadLoop() {
	select {
	case <-a.stopReadLoop:
		return
	default:
		close(a.stopReadLoop)
	}
	if a.conn != nil {
		_ = a.conn.Close()
	}
	select {
	case <-a.readLoopExited:
	case <-time.After(2 * time.Second):
		log.Printf("gateway: SubscriberConnection %s: timeout waiting for read loop to exit\n", a.connAddr)
	}
}

func (a *SubscriberConnection) cleanup(ctx actor.Context, reason error) {
	a.signalAndWaitForReadLoop()
	a.performCleanup(ctx, reason)
	if !errors.Is(reason, errSubscriberStopping) {
		ctx.Engine().Stop(a.selfPID)
	}
}

func (a *SubscriberConnection) performCleanup(ctx actor.Context, reason error) {
	_ = reason
	a.closeOnce.Do(func() {
		if a.broadcasterPID != nil && a.conn != nil {
			ctx.Engine().Send(a.broadcasterPID, RemoveSubscriber{Conn: a.conn}, a.selfPID)
		}
		if a.conn != nil {
			_ = a.conn.Close()
			a.conn = nil
		}
	})
}
