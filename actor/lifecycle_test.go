package actor_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	. "github.com/coerce-rs/coerce-go/actor"
)

// selfStopper sends itself Stop as soon as it starts (spec §8 scenario 1).
type selfStopper struct {
	mu       sync.Mutex
	statuses []ActorStatus
	stopped  bool
}

func (a *selfStopper) Receive(ctx Context) {
	a.mu.Lock()
	a.statuses = append(a.statuses, ctx.Status())
	a.mu.Unlock()

	switch ctx.Message().(type) {
	case Started:
		ctx.Self()
		ctx.Engine().Send(ctx.Self(), Stop{}, ctx.Self())
	case Stopped:
		a.mu.Lock()
		a.stopped = true
		a.mu.Unlock()
	}
}

func TestActorLifecycle_SelfStopSequence(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := NewEngine()
	a := &selfStopper{}
	pid := engine.Spawn(NewProps(func() Actor { return a }))
	require.NotNil(t, pid)

	require.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.stopped
	}, time.Second, 5*time.Millisecond)

	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Contains(t, a.statuses, Starting)
	assert.True(t, a.stopped)
}

// recorder appends every message it sees, in arrival order.
type recorder struct {
	mu   sync.Mutex
	msgs []interface{}
}

func (r *recorder) record(msg interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) snapshot() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]interface{}, len(r.msgs))
	copy(out, r.msgs)
	return out
}

func (r *recorder) Receive(ctx Context) {
	r.record(ctx.Message())
}

type userMsg struct{ tag string }

func TestActorLifecycle_DrainsBeforeStopThenIgnoresAfter(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := NewEngine()
	r := &recorder{}
	pid := engine.Spawn(NewProps(func() Actor { return r }))
	require.NotNil(t, pid)

	engine.Send(pid, userMsg{"A"}, nil)
	engine.Send(pid, userMsg{"B"}, nil)
	engine.Stop(pid)
	engine.Send(pid, userMsg{"C"}, nil)

	require.Eventually(t, func() bool {
		for _, m := range r.snapshot() {
			if _, ok := m.(Stopped); ok {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	msgs := r.snapshot()
	var sawA, sawB, sawC bool
	for _, m := range msgs {
		switch v := m.(type) {
		case userMsg:
			switch v.tag {
			case "A":
				sawA = true
			case "B":
				sawB = true
			case "C":
				sawC = true
			}
		}
	}
	assert.True(t, sawA)
	assert.True(t, sawB)
	assert.False(t, sawC, "message enqueued after Stop must not be processed")
}

// abortingActor requests stop from within Started, aborting before Started
// status is ever reached (spec §8 invariant 3).
type abortingActor struct {
	mu           sync.Mutex
	stoppedCalls int
}

func (a *abortingActor) Receive(ctx Context) {
	switch ctx.Message().(type) {
	case Started:
		ctx.RequestStop()
	case Stopped:
		a.mu.Lock()
		a.stoppedCalls++
		a.mu.Unlock()
	}
}

func TestActorLifecycle_AbortBeforeStartSkipsStopped(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := NewEngine()
	a := &abortingActor{}
	pid := engine.Spawn(NewProps(func() Actor { return a }))
	require.NotNil(t, pid)

	time.Sleep(50 * time.Millisecond)

	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Equal(t, 0, a.stoppedCalls, "stopped must never run when Started aborted startup")
}

func TestActorLifecycle_StatusQuery(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := NewEngine()
	pid := engine.Spawn(NewProps(func() Actor { return &recorder{} }))
	require.NotNil(t, pid)

	reply, err := engine.Ask(pid, Status{}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, Started, reply)

	engine.Shutdown(time.Second)
}

func TestActorLifecycle_AskTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := NewEngine()
	pid := engine.Spawn(NewProps(func() Actor {
		return ActorFunc(func(ctx Context) {
			// never replies
		})
	}))
	require.NotNil(t, pid)

	_, err := engine.Ask(pid, userMsg{"noreply"}, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)

	engine.Shutdown(time.Second)
}

func TestActorLifecycle_PanicDuringAskRepliesWithError(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := NewEngine()
	pid := engine.Spawn(NewProps(func() Actor {
		return ActorFunc(func(ctx Context) {
			if _, ok := ctx.Message().(userMsg); ok {
				panic("boom")
			}
		})
	}))
	require.NotNil(t, pid)

	_, err := engine.Ask(pid, userMsg{"panic"}, time.Second)
	require.Error(t, err)

	engine.Shutdown(time.Second)
}
