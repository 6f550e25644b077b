package actor

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/coerce-rs/coerce-go/internal/log"
)

// process is the running instance of an actor: its state, its mailbox, and
// the goroutine that drains it. It is exclusively owned by that goroutine
// for its entire lifetime (spec §3 invariant: "at most one loop task exists
// per actor instance").
type process struct {
	engine  *Engine
	pid     *PID
	props   *Props
	mailbox *mailbox
	refs    int32 // outstanding Ref clones; last release() closes the mailbox

	actor Actor
	ctx   *context
}

func newProcess(engine *Engine, pid *PID, props *Props) *process {
	return &process{
		engine:  engine,
		pid:     pid,
		props:   props,
		mailbox: newMailbox(),
	}
}

func (p *process) sendMessage(e *envelope) bool {
	return p.mailbox.send(e)
}

func (p *process) retain() {
	atomic.AddInt32(&p.refs, 1)
}

// release drops one outstanding reference. When the last reference is
// dropped the mailbox is closed, which the loop observes once it has
// drained whatever was already queued (spec §4.1 "Ordering").
func (p *process) release() {
	if atomic.AddInt32(&p.refs, -1) == 0 {
		p.mailbox.close()
	}
}

// run is the actor's main loop (spec §4.1).
func (p *process) run() {
	p.actor = p.props.Produce()
	if p.actor == nil {
		panic(fmt.Sprintf("actor %s: producer returned a nil actor", p.pid))
	}

	p.ctx = newContext(p.engine, p.pid)

	p.invoke(&envelope{message: Started{}})

	if p.ctx.status == Stopping {
		// Abort-before-start: the user's Started hook requested Stopping.
		// stopped is deliberately NOT called (spec §4.1, §8 invariant 3).
		p.engine.remove(p.pid)
		return
	}
	p.ctx.status = Started

	for {
		<-p.mailbox.wake
		for {
			env, ok := p.mailbox.pop()
			if !ok {
				break
			}
			p.dispatch(env)
			if p.ctx.status == Stopping {
				p.shutdown()
				return
			}
		}
		if p.mailbox.isClosed() {
			p.ctx.status = Stopping
			p.shutdown()
			return
		}
	}
}

// dispatch handles one envelope: built-in Status/Stop are answered by the
// loop itself (spec §4.1 "Built-in messages"); everything else, including
// Started/Stopping/Stopped, is handed to the actor's Receive.
func (p *process) dispatch(e *envelope) {
	switch e.message.(type) {
	case Status:
		p.ctx.prepare(e)
		p.ctx.Reply(p.ctx.status)
		return
	case Stop:
		p.ctx.prepare(e)
		p.ctx.status = Stopping
		p.ctx.Reply(Stopping)
		return
	}
	p.invoke(e)
}

// invoke runs the actor's Receive for one envelope, recovering from panics
// so that one bad handler cannot take down the process loop (spec §7: "no
// panics in normal operation" — but user code is not "normal operation").
func (p *process) invoke(e *envelope) {
	p.ctx.prepare(e)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("actor %s panicked handling %T: %v\n%s\n", p.pid, e.message, r, debug.Stack())
			if e.requestID != "" {
				p.ctx.Reply(fmt.Errorf("actor %s panicked: %v", p.pid, r))
			}
		}
	}()
	p.actor.Receive(p.ctx)
}

// shutdown runs the two-phase teardown: a Stopping notification (while the
// actor can still see its own state, e.g. to stop children — the pattern
// this is grounded on lets a parent actor clean up on Stopping rather than
// waiting for Stopped) followed by the terminal Stopped hook.
func (p *process) shutdown() {
	p.ctx.status = Stopping
	p.invoke(&envelope{message: Stopping{}})
	p.invoke(&envelope{message: Stopped{}})
	p.ctx.status = Stopped
	p.mailbox.close()
	p.engine.remove(p.pid)
}
