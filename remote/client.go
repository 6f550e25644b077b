package remote

import (
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/coerce-rs/coerce-go/actor"
)

// ErrIdentityMissing is the Connect failure when the peer's identity frame
// never arrives within Config.IdentityWaitTimeout (spec Open Question
// decision, recorded in DESIGN.md).
type ErrIdentityMissing struct{ Addr string }

func (e ErrIdentityMissing) Error() string {
	return fmt.Sprintf("remote: no identity frame from %s within identity wait timeout", e.Addr)
}

// ErrDisconnected is handed to every in-flight Call/BeginHandshake waiter
// when the underlying connection drops.
var ErrDisconnected = fmt.Errorf("remote: client disconnected")

// RemoteClient is the per-peer connection actor (spec §4.2). Exactly one
// goroutine — the actor loop — ever mutates its fields; the receive loop
// and ping ticker are sibling tasks that only forward messages back into
// the mailbox (grounded on game/paddle_actor.go's runTicker pattern: a
// ticker goroutine that does nothing but Send ticks to its own actor).
type RemoteClient struct {
	node     RemoteNode // our own identity, announced in every Handshake frame
	peerHint RemoteNode // the registry's a-priori knowledge of the peer, used to key quarantine reports made before any handshake completes
	addr     string
	registry *actor.PID
	codec    Codec
	config   Config
	handlers *HandlerRegistry

	self  *actor.PID
	state ClientState

	attempts uint32
	epoch    uint64
	dialing  bool // a dial is already in flight; handleConnect must not start a second one

	writeBuffer           [][]byte
	writeBufferBytesTotal int
	writeBufferDropped    uint64

	connectWaiters   []func(interface{})
	handshakeWaiters []func(interface{})
	pending          map[string]func(interface{})
}

// NewRemoteClient constructs a RemoteClient actor for the peer at addr.
// node is this node's own identity, announced in every Handshake frame.
// peerHint is the registry's a-priori knowledge of the peer (may be the
// zero value if the peer was only ever known by address).
func NewRemoteClient(node, peerHint RemoteNode, addr string, registry *actor.PID, codec Codec, config Config, handlers *HandlerRegistry) actor.Producer {
	return func() actor.Actor {
		return &RemoteClient{
			node:     node,
			peerHint: peerHint,
			addr:     addr,
			registry: registry,
			codec:    codec,
			config:   config,
			handlers: handlers,
			pending:  make(map[string]func(interface{})),
		}
	}
}

// Stats is a point-in-time snapshot for observability (DESIGN.md Open
// Question decision #2).
type Stats struct {
	State              ClientStateKind
	Attempts           uint32
	WriteBufferBytes   int
	WriteBufferDropped uint64
}

// StatsRequest, sent via Ask, returns a Stats snapshot.
type StatsRequest struct{}

func (c *RemoteClient) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case actor.Started:
		c.self = ctx.Self()
		c.state = idleState(0)
		if c.addr != "" {
			ctx.Engine().Send(ctx.Self(), Connect{}, ctx.Self())
		}

	case actor.Stopping:
		c.teardownConnection()

	case Adopt:
		c.connectWaiters = append(c.connectWaiters, ctx.Defer())
		c.setupConnected(ctx, msg.Conn)
	case Connect:
		c.handleConnect(ctx)
	case dialResult:
		c.handleDialResult(ctx, msg)
	case Write:
		c.handleWrite(ctx, msg)
	case Call:
		c.handleCall(ctx, msg)
	case BeginHandshake:
		c.handleBeginHandshake(ctx, msg)
	case Disconnected:
		c.handleDisconnected(ctx, msg.Err)
	case inboundEvent:
		c.handleInboundEvent(ctx, msg)
	case inboundClosed:
		c.handleDisconnected(ctx, msg.err)
	case internalPingTick:
		c.handlePingTick(ctx, msg)
	case identityTimeout:
		c.handleIdentityTimeout(ctx, msg)
	case callTimeout:
		c.handleCallTimeout(msg)
	case StatsRequest:
		ctx.Reply(Stats{
			State:              c.state.Kind,
			Attempts:           c.attempts,
			WriteBufferBytes:   c.writeBufferBytesTotal,
			WriteBufferDropped: c.writeBufferDropped,
		})
	}
}

// dialResult is delivered by the dialing goroutine once net.DialTimeout
// returns.
type dialResult struct {
	conn net.Conn
	err  error
}

func (c *RemoteClient) handleConnect(ctx actor.Context) {
	if c.state.Kind == StateConnected {
		ctx.Reply(nil)
		return
	}

	c.connectWaiters = append(c.connectWaiters, ctx.Defer())
	if c.dialing {
		// A dial is already in flight (e.g. Started's own Connect raced
		// the registry's explicit Connect via Ask): queue behind it
		// instead of starting a second one, which would leak the
		// loser's socket and receive loop. The queued waiter is
		// resolved alongside the in-flight dial's own waiters once
		// that dial settles.
		return
	}
	c.dialing = true

	addr := c.addr
	dialTimeout := c.config.DialTimeout
	engine := ctx.Engine()
	self := ctx.Self()

	go func() {
		conn, err := net.DialTimeout("tcp", addr, dialTimeout)
		engine.Send(self, dialResult{conn: conn, err: err}, self)
	}()
}

func (c *RemoteClient) handleDialResult(ctx actor.Context, msg dialResult) {
	c.dialing = false
	if msg.err != nil {
		c.onConnectFailure(ctx, msg.err)
		return
	}
	c.setupConnected(ctx, msg.conn)
}

func (c *RemoteClient) onConnectFailure(ctx actor.Context, err error) {
	wasQuarantined := c.state.Kind == StateQuarantined
	c.attempts++
	if c.attempts >= c.config.QuarantineThreshold {
		c.state = quarantinedState(c.attempts)
		if !wasQuarantined {
			ctx.Engine().Send(c.registry, ClientQuarantined{Node: c.peerHint}, ctx.Self())
		}
	} else {
		c.state = idleState(c.attempts)
	}
	c.resolveConnectWaiters(err)
	c.scheduleReconnect(ctx)
}

// resolveConnectWaiters fulfills every pending Connect/Adopt caller with the
// same outcome and clears the queue. Several callers can be waiting on one
// outcome: Started's own Connect, a concurrent registry Ask(Connect{}), or
// an inbound Adopt — all of them settle together when the dial (or the
// handshake that follows it) resolves.
func (c *RemoteClient) resolveConnectWaiters(result interface{}) {
	for _, waiter := range c.connectWaiters {
		waiter(result)
	}
	c.connectWaiters = nil
}

func (c *RemoteClient) scheduleReconnect(ctx actor.Context) {
	if c.addr == "" {
		// Inbound-only client (server.go Adopt): there is nothing to dial,
		// the peer must reconnect to us.
		return
	}
	engine := ctx.Engine()
	self := ctx.Self()
	delay := c.config.ReconnectDelay
	time.AfterFunc(delay, func() {
		engine.Send(self, Connect{}, self)
	})
}

func (c *RemoteClient) setupConnected(ctx actor.Context, conn net.Conn) {
	c.epoch++
	epoch := c.epoch

	conn2 := &ConnectionState{
		Conn:     conn,
		Writer:   NewFrameWriter(conn),
		epoch:    epoch,
		pingDone: make(chan struct{}),
	}
	conn2.pingTicker = time.NewTicker(c.config.PingInterval)

	c.state = connectedState(conn2)

	engine := ctx.Engine()
	self := ctx.Self()

	go runReceiveLoop(engine, self, conn, c.codec)
	go runPingLoop(engine, self, conn2.pingTicker, conn2.pingDone, epoch)

	time.AfterFunc(c.config.IdentityWaitTimeout, func() {
		engine.Send(self, identityTimeout{epoch: epoch}, self)
	})

	// Announce ourselves; the peer's identity arrives asynchronously as an
	// inbound Handshake frame (handleInboundEvent). connectWaiters resolve
	// there (or in onConnectFailure, if the socket dies before identity
	// arrives), not here — a dial success alone doesn't mean Connect
	// succeeded yet.
	c.writeDirect(ctx, conn2, EventHandshake, HandshakeEvent{NodeID: c.node.ID, NodeTag: c.node.Tag, ClientType: ClientTypeWorker})
}

// identityTimeout fires IdentityWaitTimeout after a dial succeeds; it is a
// no-op if the peer's identity already arrived or the connection has since
// moved on (epoch mismatch).
type identityTimeout struct{ epoch uint64 }

func (c *RemoteClient) handleIdentityTimeout(ctx actor.Context, msg identityTimeout) {
	if c.state.Kind != StateConnected || c.state.Connection.epoch != msg.epoch {
		return
	}
	if c.state.Connection.HasID {
		return
	}
	err := ErrIdentityMissing{Addr: c.addr}
	c.teardownConnection()
	c.onConnectFailure(ctx, err)
}

func (c *RemoteClient) handleWrite(ctx actor.Context, msg Write) {
	payload, err := c.codec.Encode(msg.Payload)
	if err != nil {
		ctx.Reply(err)
		return
	}
	raw, err := encodeEvent(c.codec, EventMessage, MessageEvent{
		HandlerName: msg.HandlerName,
		Recipient:   msg.Recipient,
		Payload:     payload,
	})
	if err != nil {
		ctx.Reply(err)
		return
	}
	c.sendOrBuffer(ctx, raw)
	ctx.Reply(nil)
}

func (c *RemoteClient) handleCall(ctx actor.Context, msg Call) {
	payload, err := c.codec.Encode(msg.Payload)
	if err != nil {
		ctx.Reply(err)
		return
	}
	correlation := uuid.NewString()
	raw, err := encodeEvent(c.codec, EventMessage, MessageEvent{
		Correlation: correlation,
		HandlerName: msg.HandlerName,
		Recipient:   msg.Recipient,
		Payload:     payload,
	})
	if err != nil {
		ctx.Reply(err)
		return
	}

	reply := ctx.Defer()
	c.pending[correlation] = reply
	c.sendOrBuffer(ctx, raw)

	timeout := c.config.CallTimeout
	engine := ctx.Engine()
	self := ctx.Self()
	time.AfterFunc(timeout, func() {
		engine.Send(self, callTimeout{correlation: correlation}, self)
	})
}

type callTimeout struct{ correlation string }

func (c *RemoteClient) handleCallTimeout(msg callTimeout) {
	if reply, ok := c.pending[msg.correlation]; ok {
		delete(c.pending, msg.correlation)
		reply(fmt.Errorf("remote: call %s timed out waiting for result", msg.correlation))
	}
}

func (c *RemoteClient) handleBeginHandshake(ctx actor.Context, msg BeginHandshake) {
	raw, err := encodeEvent(c.codec, EventHandshake, HandshakeEvent{
		NodeID: c.node.ID, NodeTag: c.node.Tag, ClientType: ClientTypeWorker, Nodes: msg.SeedNodes,
	})
	if err != nil {
		ctx.Reply(err)
		return
	}
	c.handshakeWaiters = append(c.handshakeWaiters, ctx.Defer())
	c.sendOrBuffer(ctx, raw)
}

func (c *RemoteClient) handlePingTick(ctx actor.Context, msg internalPingTick) {
	if c.state.Kind != StateConnected || c.state.Connection.epoch != msg.epoch {
		return
	}
	c.writeDirect(ctx, c.state.Connection, EventPing, PingEvent{Correlation: msg.epoch})
}

func (c *RemoteClient) handleInboundEvent(ctx actor.Context, msg inboundEvent) {
	if c.state.Kind != StateConnected {
		return
	}
	conn := c.state.Connection

	switch msg.kind {
	case EventHandshake:
		var event HandshakeEvent
		if err := c.codec.Decode(msg.raw, &event); err != nil {
			return
		}
		firstTime := !conn.HasID
		conn.Identity = NodeIdentity{Node: RemoteNode{ID: event.NodeID, Tag: event.NodeTag}}
		conn.HasID = true
		c.writeDirect(ctx, conn, EventHandshakeAck, HandshakeAckEvent{NodeID: c.node.ID, NodeTag: c.node.Tag})

		if firstTime {
			c.attempts = 0
			c.flushWriteBuffer(conn)
			ctx.Engine().Send(c.registry, ClientConnected{Node: conn.Identity.Node, Client: ctx.Self()}, ctx.Self())
			c.resolveConnectWaiters(nil)
		}

	case EventHandshakeAck:
		var event HandshakeAckEvent
		if err := c.codec.Decode(msg.raw, &event); err != nil {
			return
		}
		conn.Handshake = HandshakeStatus{Acknowledged: true, Ack: &event}
		for _, waiter := range c.handshakeWaiters {
			waiter(event)
		}
		c.handshakeWaiters = nil

	case EventPing:
		var event PingEvent
		if err := c.codec.Decode(msg.raw, &event); err != nil {
			return
		}
		c.writeDirect(ctx, conn, EventPong, PongEvent{Correlation: event.Correlation})

	case EventPong:
		// liveness only; nothing to correlate today.

	case EventMessage:
		var event MessageEvent
		if err := c.codec.Decode(msg.raw, &event); err != nil {
			return
		}
		c.serveHandler(ctx, conn, event)

	case EventResult:
		var event ResultEvent
		if err := c.codec.Decode(msg.raw, &event); err != nil {
			return
		}
		if reply, ok := c.pending[event.Correlation]; ok {
			delete(c.pending, event.Correlation)
			if event.Err != "" {
				reply(fmt.Errorf("remote: %s", event.Err))
			} else {
				reply(&event)
			}
		}
	}
}

func (c *RemoteClient) serveHandler(ctx actor.Context, conn *ConnectionState, event MessageEvent) {
	if event.Correlation == "" {
		// Fire-and-forget Write: nothing expects a Result back.
		if c.handlers != nil {
			if fn, ok := c.handlers.lookup(event.HandlerName); ok {
				_, _ = fn(event.Payload)
			}
		}
		return
	}

	result := ResultEvent{Correlation: event.Correlation}
	if fn, ok := c.handlers.lookup(event.HandlerName); ok {
		out, err := fn(event.Payload)
		if err != nil {
			result.Err = err.Error()
		} else {
			result.Payload = out
		}
	} else {
		result.Err = fmt.Sprintf("remote: no handler registered for %q", event.HandlerName)
	}
	c.writeDirect(ctx, conn, EventResult, result)
}

func (c *RemoteClient) handleDisconnected(ctx actor.Context, err error) {
	if c.state.Kind != StateConnected {
		return
	}
	if err == nil {
		err = ErrDisconnected
	}
	c.teardownConnection()

	for correlation, reply := range c.pending {
		reply(err)
		delete(c.pending, correlation)
	}
	for _, waiter := range c.handshakeWaiters {
		waiter(err)
	}
	c.handshakeWaiters = nil

	c.onConnectFailure(ctx, err)
}

func (c *RemoteClient) teardownConnection() {
	if c.state.Kind != StateConnected {
		return
	}
	conn := c.state.Connection
	close(conn.pingDone)
	conn.pingTicker.Stop()
	_ = conn.Conn.Close()
}

// sendOrBuffer writes raw immediately if connected, otherwise (or on write
// failure) appends it to the write buffer for later delivery, preserving
// FIFO order (spec §8 testable property: "every byte sequence accepted by
// Write is eventually observed by the peer in the order it was accepted").
// A write failure while connected also schedules a Disconnected to self so
// the state machine actually leaves Connected instead of sitting on a dead
// socket with frames piling up in the buffer forever.
func (c *RemoteClient) sendOrBuffer(ctx actor.Context, raw []byte) {
	if c.state.Kind == StateConnected && c.state.Connection.HasID {
		err := c.state.Connection.Writer.WriteFrame(raw)
		if err == nil {
			return
		}
		c.bufferFrame(raw)
		ctx.Engine().Send(ctx.Self(), Disconnected{Err: err}, ctx.Self())
		return
	}
	c.bufferFrame(raw)
}

func (c *RemoteClient) bufferFrame(raw []byte) {
	c.writeBuffer = append(c.writeBuffer, raw)
	c.writeBufferBytesTotal += len(raw)
	for c.writeBufferBytesTotal > c.config.MaxWriteBufferBytes && len(c.writeBuffer) > 1 {
		dropped := c.writeBuffer[0]
		c.writeBuffer = c.writeBuffer[1:]
		c.writeBufferBytesTotal -= len(dropped)
		c.writeBufferDropped++
	}
}

func (c *RemoteClient) flushWriteBuffer(conn *ConnectionState) {
	for len(c.writeBuffer) > 0 {
		raw := c.writeBuffer[0]
		if err := conn.Writer.WriteFrame(raw); err != nil {
			return
		}
		c.writeBuffer = c.writeBuffer[1:]
		c.writeBufferBytesTotal -= len(raw)
	}
}

// writeDirect writes an internally-generated event (ping, handshake,
// handshake-ack, pong) straight to the wire, bypassing the write buffer.
// A write failure schedules Disconnected to self, same as sendOrBuffer,
// so a dead socket is noticed regardless of which write path hit it.
func (c *RemoteClient) writeDirect(ctx actor.Context, conn *ConnectionState, kind EventKind, event interface{}) {
	raw, err := encodeEvent(c.codec, kind, event)
	if err != nil {
		return
	}
	if err := conn.Writer.WriteFrame(raw); err != nil {
		ctx.Engine().Send(ctx.Self(), Disconnected{Err: err}, ctx.Self())
	}
}

// internalPingTick is sent by the ping ticker's sibling goroutine.
type internalPingTick struct{ epoch uint64 }

func runPingLoop(engine *actor.Engine, self *actor.PID, ticker *time.Ticker, done chan struct{}, epoch uint64) {
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			select {
			case <-done:
				return
			default:
				engine.Send(self, internalPingTick{epoch: epoch}, nil)
			}
		}
	}
}

// runReceiveLoop reads frames off conn and forwards decoded events into
// the client's mailbox. It never touches client state directly (spec §2).
func runReceiveLoop(engine *actor.Engine, self *actor.PID, conn net.Conn, codec Codec) {
	reader := NewFrameReader(conn)
	for {
		raw, err := reader.ReadFrame()
		if err != nil {
			engine.Send(self, inboundClosed{err: err}, nil)
			return
		}
		kind, payload, err := decodeEvent(codec, raw)
		if err != nil {
			continue
		}
		engine.Send(self, inboundEvent{kind: kind, raw: payload}, nil)
	}
}
