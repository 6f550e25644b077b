package singleton_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	. "github.com/coerce-rs/coerce-go/actor"
	"github.com/coerce-rs/coerce-go/singleton"
)

type tagMsg struct{ tag string }

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Receive(ctx Context) {
	if m, ok := ctx.Message().(tagMsg); ok {
		r.mu.Lock()
		r.msgs = append(r.msgs, m.tag)
		r.mu.Unlock()
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// TestProxy_BufferedThenActiveDeliversInOrder is spec §8 scenario 5:
// m1, m2, m3 while buffered, then SingletonStarted, then m4 — ref
// observes m1..m4 in that order.
func TestProxy_BufferedThenActiveDeliversInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := NewEngine()
	target := &recorder{}
	targetPID := engine.Spawn(NewProps(func() Actor { return target }))
	require.NotNil(t, targetPID)

	proxyPID := engine.Spawn(NewProps(singleton.NewProxy[Actor]()))
	require.NotNil(t, proxyPID)

	engine.Send(proxyPID, tagMsg{"m1"}, nil)
	engine.Send(proxyPID, tagMsg{"m2"}, nil)
	engine.Send(proxyPID, tagMsg{"m3"}, nil)

	engine.Send(proxyPID, singleton.SingletonStarted[Actor]{ActorRef: targetPID}, nil)

	engine.Send(proxyPID, tagMsg{"m4"}, nil)

	require.Eventually(t, func() bool {
		return len(target.snapshot()) == 4
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, target.snapshot())

	engine.Shutdown(time.Second)
}

func TestProxy_AskThroughProxyWhileBufferedIsForwardedOnActivate(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := NewEngine()
	target := ActorFunc(func(ctx Context) {
		if _, ok := ctx.Message().(tagMsg); ok {
			ctx.Reply("pong")
		}
	})
	targetPID := engine.Spawn(NewProps(func() Actor { return target }))
	require.NotNil(t, targetPID)

	proxyPID := engine.Spawn(NewProps(singleton.NewProxy[Actor]()))
	require.NotNil(t, proxyPID)

	var result interface{}
	var askErr error
	done := make(chan struct{})
	go func() {
		result, askErr = engine.Ask(proxyPID, tagMsg{"ask"}, 2*time.Second)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond) // ensure the Ask is buffered, not raced
	engine.Send(proxyPID, singleton.SingletonStarted[Actor]{ActorRef: targetPID}, nil)

	<-done
	require.NoError(t, askErr)
	assert.Equal(t, "pong", result)

	engine.Shutdown(time.Second)
}

// TestProxy_StoppingRebuffers verifies SingletonStopping reverts to
// buffering instead of routing to a PID that is about to disappear.
func TestProxy_StoppingRebuffers(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := NewEngine()
	target := &recorder{}
	targetPID := engine.Spawn(NewProps(func() Actor { return target }))
	require.NotNil(t, targetPID)

	proxyPID := engine.Spawn(NewProps(singleton.NewProxy[Actor]()))
	require.NotNil(t, proxyPID)

	engine.Send(proxyPID, singleton.SingletonStarted[Actor]{ActorRef: targetPID}, nil)
	engine.Send(proxyPID, tagMsg{"before"}, nil)
	engine.Send(proxyPID, singleton.SingletonStopping{}, nil)
	engine.Send(proxyPID, tagMsg{"during-relocation"}, nil)

	require.Eventually(t, func() bool {
		return len(target.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"before"}, target.snapshot())

	engine.Shutdown(time.Second)
}
