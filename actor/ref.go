package actor

import "time"

// Ref is a cheap, clonable handle to a local actor of a known behavior type
// A (spec §3 "Local actor reference"). The type parameter exists purely to
// keep callers — like the singleton proxy — from mixing up references to
// differently-typed actors; dispatch itself is still by interface{}
// message, same as Engine.Send/Ask.
type Ref[A Actor] struct {
	pid    *PID
	engine *Engine
}

// NewRef wraps a PID spawned from engine into a typed Ref.
func NewRef[A Actor](engine *Engine, pid *PID) Ref[A] {
	if proc, ok := engine.lookup(pid); ok {
		proc.retain()
	}
	return Ref[A]{pid: pid, engine: engine}
}

// PID returns the underlying process identifier.
func (r Ref[A]) PID() *PID { return r.pid }

// Send delivers message without waiting for a reply.
func (r Ref[A]) Send(message interface{}, sender *PID) {
	r.engine.Send(r.pid, message, sender)
}

// Ask delivers message and waits for a reply (see Engine.Ask).
func (r Ref[A]) Ask(message interface{}, timeout time.Duration) (interface{}, error) {
	return r.engine.Ask(r.pid, message, timeout)
}

// Clone returns a new Ref sharing the same underlying actor and increments
// its reference count.
func (r Ref[A]) Clone() Ref[A] {
	if proc, ok := r.engine.lookup(r.pid); ok {
		proc.retain()
	}
	return r
}

// Close releases this Ref's reference. Once every clone has been closed,
// the actor's mailbox is closed and its loop tears down after draining
// whatever was already queued (spec §3, §4.1).
func (r Ref[A]) Close() {
	if proc, ok := r.engine.lookup(r.pid); ok {
		proc.release()
	}
}
