package actor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/coerce-rs/coerce-go/internal/log"
)

// Engine manages the lifecycle and message dispatching for a set of local
// actors (spec §2 "Actor loop" + "Local actor reference"). It is the
// "RemoteActorSystem is passed explicitly through contexts" handle from
// spec design note 9 — never stashed in ambient/thread-local state.
type Engine struct {
	pidCounter uint64
	mu         sync.RWMutex
	actors     map[string]*process
	stopping   atomic.Bool
}

// NewEngine creates a new, empty Engine.
func NewEngine() *Engine {
	return &Engine{actors: make(map[string]*process)}
}

func (e *Engine) nextPID() *PID {
	return newPID(atomic.AddUint64(&e.pidCounter, 1))
}

// Spawn creates and starts a new actor from the given Props, returning its
// PID. Returns nil if the Engine is shutting down.
func (e *Engine) Spawn(props *Props) *PID {
	if e.stopping.Load() {
		log.Printf("actor: engine is stopping, refusing to spawn\n")
		return nil
	}

	pid := e.nextPID()
	proc := newProcess(e, pid, props)

	e.mu.Lock()
	e.actors[pid.ID] = proc
	e.mu.Unlock()

	go proc.run()

	return pid
}

func (e *Engine) lookup(pid *PID) (*process, bool) {
	if pid == nil {
		return nil, false
	}
	e.mu.RLock()
	proc, ok := e.actors[pid.ID]
	e.mu.RUnlock()
	return proc, ok
}

// Send delivers message to pid without waiting for a reply. sender may be
// nil if the message originates outside the actor system.
func (e *Engine) Send(pid *PID, message interface{}, sender *PID) {
	proc, ok := e.lookup(pid)
	if !ok {
		return
	}
	proc.sendMessage(&envelope{sender: sender, message: message})
}

// Ask delivers message to pid and blocks until a reply is sent via
// ctx.Reply, the timeout elapses (ErrTimeout), or the actor cannot be
// found (ErrActorNotFound). A reply that is itself an error (e.g. the
// one sent when a handler panics) is returned as Ask's error.
func (e *Engine) Ask(pid *PID, message interface{}, timeout time.Duration) (interface{}, error) {
	proc, ok := e.lookup(pid)
	if !ok {
		return nil, ErrActorNotFound
	}

	reply := make(chan interface{}, 1)
	if !proc.sendMessage(&envelope{message: message, requestID: uuid.NewString(), replyTo: reply}) {
		return nil, ErrActorNotFound
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case result := <-reply:
		if err, ok := result.(error); ok {
			return nil, err
		}
		return result, nil
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// Forward re-delivers a message to pid with an explicit requestID and
// reply callback instead of minting new ones, so a message captured
// earlier (e.g. via Context.Defer, while buffered by a proxy) can be
// replayed to a different actor without losing its original Send/Ask
// shape. onReply, if non-nil, is invoked at most once with whatever the
// target actor replies. Returns false if pid does not exist.
func (e *Engine) Forward(pid *PID, message interface{}, sender *PID, requestID string, onReply func(interface{})) bool {
	proc, ok := e.lookup(pid)
	if !ok {
		if onReply != nil {
			onReply(ErrActorNotFound)
		}
		return false
	}

	var replyTo chan interface{}
	if requestID != "" {
		replyTo = make(chan interface{}, 1)
	}
	if !proc.sendMessage(&envelope{sender: sender, message: message, requestID: requestID, replyTo: replyTo}) {
		if onReply != nil {
			onReply(ErrActorNotFound)
		}
		return false
	}
	if replyTo != nil {
		go func() {
			result := <-replyTo
			if onReply != nil {
				onReply(result)
			}
		}()
	}
	return true
}

// Stop requests that pid stop gracefully: messages already queued ahead of
// Stop are processed first (spec §4.1 "Ordering").
func (e *Engine) Stop(pid *PID) {
	e.Send(pid, Stop{}, nil)
}

func (e *Engine) remove(pid *PID) {
	e.mu.Lock()
	delete(e.actors, pid.ID)
	e.mu.Unlock()
}

// Shutdown stops every live actor and blocks until they have all exited or
// the timeout elapses, whichever comes first.
func (e *Engine) Shutdown(timeout time.Duration) {
	if !e.stopping.CompareAndSwap(false, true) {
		return
	}

	e.mu.RLock()
	pids := make([]*PID, 0, len(e.actors))
	for _, proc := range e.actors {
		pids = append(pids, proc.pid)
	}
	e.mu.RUnlock()

	for _, pid := range pids {
		e.Stop(pid)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		e.mu.RLock()
		remaining := len(e.actors)
		e.mu.RUnlock()
		if remaining == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	e.mu.Lock()
	remaining := len(e.actors)
	if remaining > 0 {
		log.Printf("actor: shutdown timeout with %d actors still running\n", remaining)
		e.actors = make(map[string]*process)
	}
	e.mu.Unlock()
}
