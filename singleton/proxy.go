// Package singleton implements the cluster singleton proxy (spec §4.3): a
// local actor that buffers messages destined for a cluster-wide singleton
// until that singleton's location is known, then flushes the buffer and
// forwards every subsequent message directly.
package singleton

import "github.com/coerce-rs/coerce-go/actor"

// proxyState is the tag of ProxyState's two variants (spec §3): Buffered
// while the singleton's location is unknown, Active once it is.
type proxyState int

const (
	stateBuffered proxyState = iota
	stateActive
)

// Proxy[A] is the singleton proxy actor for a singleton of actor type A.
// Grounded on spec design note 9 ("Buffered<A> captures a message plus its
// reply mechanism... an abstract buffered-send capability with a single
// method send(actor_ref); concrete trampolines are one per message type
// and are boxed into the queue") — here every buffered message is boxed
// as one bufferedSend value, since Go's single Context/envelope shape
// means one trampoline type suffices rather than one per message type.
type Proxy[A actor.Actor] struct {
	state   proxyState
	queue   []bufferedSend
	current *actor.PID
}

// NewProxy returns the Producer for a Proxy[A], starting Buffered.
func NewProxy[A actor.Actor]() actor.Producer {
	return func() actor.Actor {
		return &Proxy[A]{state: stateBuffered}
	}
}

// bufferedSend captures one message plus whatever its reply mechanism was
// (Send -> no-op reply; Ask -> the caller's reply slot, replayed verbatim
// via Engine.Forward once the singleton is Active).
type bufferedSend struct {
	message   interface{}
	sender    *actor.PID
	requestID string
	onReply   func(interface{})
}

func (b bufferedSend) deliver(engine *actor.Engine, pid *actor.PID) {
	engine.Forward(pid, b.message, b.sender, b.requestID, b.onReply)
}

// SingletonStarted activates the proxy on the PID now hosting the
// singleton: the buffered prefix is flushed, in order, before the proxy
// starts forwarding new messages directly (spec §8 invariant 6).
type SingletonStarted[A actor.Actor] struct {
	ActorRef *actor.PID
}

// SingletonStopping reverts the proxy to Buffered: the singleton is being
// relocated, and messages sent in the meantime must queue again rather
// than being routed to a PID that is about to disappear.
type SingletonStopping struct{}

func (p *Proxy[A]) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case SingletonStarted[A]:
		p.current = msg.ActorRef
		p.state = stateActive
		for _, buffered := range p.queue {
			buffered.deliver(ctx.Engine(), p.current)
		}
		p.queue = nil

	case SingletonStopping:
		p.state = stateBuffered
		p.current = nil

	case actor.Started, actor.Stopping, actor.Stopped:
		// No-op lifecycle hooks; the proxy has no resources of its own to
		// set up or tear down beyond its in-memory queue.

	default:
		p.route(ctx, msg)
	}
}

func (p *Proxy[A]) route(ctx actor.Context, message interface{}) {
	if p.state == stateActive {
		ctx.Engine().Forward(p.current, message, ctx.Sender(), ctx.RequestID(), ctx.Defer())
		return
	}
	p.queue = append(p.queue, bufferedSend{
		message:   message,
		sender:    ctx.Sender(),
		requestID: ctx.RequestID(),
		onReply:   ctx.Defer(),
	})
}
