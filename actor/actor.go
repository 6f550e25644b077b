package actor

// Actor is the behavior every spawned entity implements. Receive is called
// serially — never concurrently with itself — for every message in the
// actor's mailbox, including the built-in Started/Stopping/Stopped
// lifecycle messages (spec §3, §4.1).
type Actor interface {
	Receive(ctx Context)
}

// ActorFunc adapts a plain function to the Actor interface, the way
// http.HandlerFunc adapts a function to http.Handler. Useful for small
// inline actors in tests and glue code.
type ActorFunc func(ctx Context)

func (f ActorFunc) Receive(ctx Context) { f(ctx) }
