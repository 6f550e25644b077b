package actor

import "sync"

// Context is the capability set a Receive invocation gets for the message
// currently being handled. A single Context instance is created at loop
// entry and lives for the whole actor lifetime (spec §3); only the
// per-message fields (Sender/Message/RequestID) change between
// invocations.
type Context interface {
	// Engine returns the Engine hosting this actor.
	Engine() *Engine
	// Self returns the PID of the actor processing the message.
	Self() *PID
	// Sender returns the PID of the actor that sent the current message,
	// or nil if the message originated outside the actor system or the
	// sender chose not to identify itself.
	Sender() *PID
	// Message returns the message currently being handled.
	Message() interface{}
	// Status returns the actor's current lifecycle status.
	Status() ActorStatus
	// RequestID returns the correlation id of the current message if it
	// was sent via Ask, or "" otherwise.
	RequestID() string
	// Reply fulfills the current message's reply slot, if the message was
	// sent via Ask. It is a no-op otherwise, and a no-op on any call after
	// the first (the reply slot is single-shot/write-once).
	Reply(result interface{})
	// Defer captures the current message's reply slot so it can be
	// fulfilled later, after Receive has returned and the shared Context
	// has moved on to other messages — e.g. a handler that must wait for
	// a reply frame from a remote peer before it can answer its caller.
	// The returned func is safe to call from any goroutine, exactly once;
	// later calls are no-ops.
	Defer() func(interface{})
	// RequestStop synchronously transitions status to Stopping. Intended
	// for use inside the Started hook to abort startup (spec §4.1); it
	// is also safe to call from a regular handler as an alternative to
	// sending oneself a Stop message.
	RequestStop()
	// Set stores a value in the actor's per-lifetime extension map.
	Set(key string, value interface{})
	// Get retrieves a value from the actor's per-lifetime extension map.
	Get(key string) (interface{}, bool)
}

type context struct {
	engine *Engine
	self   *PID
	status ActorStatus

	sender    *PID
	message   interface{}
	requestID string
	replyTo   chan interface{}
	replied   bool

	extensions map[string]interface{}
}

func newContext(engine *Engine, self *PID) *context {
	return &context{
		engine: engine,
		self:   self,
		status: Starting,
	}
}

func (c *context) Engine() *Engine          { return c.engine }
func (c *context) Self() *PID               { return c.self }
func (c *context) Sender() *PID             { return c.sender }
func (c *context) Message() interface{}     { return c.message }
func (c *context) Status() ActorStatus      { return c.status }
func (c *context) RequestID() string        { return c.requestID }
func (c *context) RequestStop()             { c.status = Stopping }

func (c *context) Reply(result interface{}) {
	if c.replyTo == nil || c.replied {
		return
	}
	c.replied = true
	c.replyTo <- result
}

func (c *context) Defer() func(interface{}) {
	replyTo := c.replyTo
	c.replied = true // this dispatch's Reply is spoken for
	var once sync.Once
	return func(result interface{}) {
		if replyTo == nil {
			return
		}
		once.Do(func() { replyTo <- result })
	}
}

func (c *context) Set(key string, value interface{}) {
	if c.extensions == nil {
		c.extensions = make(map[string]interface{})
	}
	c.extensions[key] = value
}

func (c *context) Get(key string) (interface{}, bool) {
	if c.extensions == nil {
		return nil, false
	}
	v, ok := c.extensions[key]
	return v, ok
}

// prepare resets the per-message fields ahead of one envelope dispatch.
func (c *context) prepare(e *envelope) {
	c.sender = e.sender
	c.message = e.message
	c.requestID = e.requestID
	c.replyTo = e.replyTo
	c.replied = false
}
