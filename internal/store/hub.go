package store

import "sync"

// Hub fans out change events to path subscribers. Store implementations
// publish under their write lock so subscribers observe events in applied
// order.
type Hub struct {
	mu   sync.Mutex
	subs map[*hubSub]struct{}
}

// NewHub creates an empty subscriber hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*hubSub]struct{})}
}

// Publish enqueues an event for every subscriber whose path is related to
// the written path. Delivery is asynchronous; Publish never blocks on slow
// consumers.
func (h *Hub) Publish(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if Related(path, sub.path) {
			sub.enqueue(Event{Path: path})
		}
	}
}

// Subscribe registers a listener for the subtree at path.
func (h *Hub) Subscribe(path string) Subscription {
	sub := &hubSub{
		hub:  h,
		path: path,
		out:  make(chan Event),
		done: make(chan struct{}),
	}
	sub.cond = sync.NewCond(&sub.mu)

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go sub.run()
	return sub
}

func (h *Hub) remove(sub *hubSub) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

type hubSub struct {
	hub  *Hub
	path string
	out  chan Event
	done chan struct{}

	mu        sync.Mutex
	cond      *sync.Cond
	queue     []Event
	closed    bool
	closeOnce sync.Once
}

// Events returns the ordered change feed.
func (s *hubSub) Events() <-chan Event {
	return s.out
}

// Close detaches the subscriber. At most one already-queued event may still
// be read from Events after Close returns.
func (s *hubSub) Close() {
	s.closeOnce.Do(func() {
		s.hub.remove(s)
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
		s.cond.Signal()
	})
}

func (s *hubSub) enqueue(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, evt)
	s.cond.Signal()
}

func (s *hubSub) run() {
	defer close(s.out)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.closed {
			s.mu.Unlock()
			return
		}
		evt := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- evt:
		case <-s.done:
			return
		}
	}
}
