package actor

import "sync"

// mailbox is the multi-producer, single-consumer FIFO of envelopes for one
// actor (spec §2). It is deliberately unbounded — the spec does not fix a
// bound, and a bounded mailbox that silently drops on overflow would
// violate the "no message enqueued before Stop is ever skipped" invariant
// (spec §8, invariant 2).
type mailbox struct {
	mu     sync.Mutex
	queue  []*envelope
	wake   chan struct{}
	closed bool
}

func newMailbox() *mailbox {
	return &mailbox{wake: make(chan struct{}, 1)}
}

// send appends an envelope to the queue. It returns false if the mailbox
// has already been closed (all references dropped / actor torn down),
// mirroring "dropping the last reference closes the mailbox".
func (m *mailbox) send(e *envelope) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, e)
	m.mu.Unlock()
	m.signal()
	return true
}

func (m *mailbox) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// pop removes and returns the oldest envelope, if any.
func (m *mailbox) pop() (*envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil, false
	}
	e := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	return e, true
}

// close marks the mailbox closed. Envelopes already queued are left in
// place for the consumer to drain; no further sends are accepted.
func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.signal()
}

func (m *mailbox) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
