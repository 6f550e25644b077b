package actor

// --- System messages ---
// Started, Stopping and Stopped bracket an actor's life and are delivered
// by the process loop itself rather than by a caller.

// Started is delivered once, as the first message, while status is still
// Starting. Handling it is the actor's start hook: if the handler calls
// ctx.RequestStop, the loop exits without delivering anything further;
// otherwise status becomes Started.
type Started struct{}

// Stopping is delivered when the loop has decided to tear the actor down,
// either because a handler requested Stop or because the mailbox closed.
type Stopping struct{}

// Stopped is delivered once, immediately before the loop exits, unless the
// actor's Started hook itself requested Stopping (abort-before-start).
type Stopped struct{}

// --- Built-in control messages (spec §4.1) ---

// Status asks an actor for its current ActorStatus. The loop answers this
// itself without invoking the actor's Receive — it is a pure read of
// ctx.status and never mutates it.
type Status struct{}

// Stop asks an actor to stop. The loop sets status to Stopping and the
// actor will process no further user messages; any messages already
// queued ahead of Stop are drained first (spec §4.1 "Ordering").
type Stop struct{}

// envelope is a one-time-use pair of (message, optional reply slot).
// It is the concrete form of the "handler trampoline" described in the
// design notes: invoking it means handing (message, ctx) to the actor's
// Receive method and, if a reply slot is present, fulfilling it with
// whatever Receive (or the loop, for built-ins) produces.
type envelope struct {
	sender    *PID
	message   interface{}
	requestID string
	replyTo   chan interface{}
}
