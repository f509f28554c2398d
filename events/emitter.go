// Package events provides a small synchronous event emitter and a tracker
// that prevents listener leaks on long-lived, reused emitters.
package events

import "sync"

// Handler is an event callback. Arguments are event-specific.
type Handler func(args ...any)

// Emitter dispatches named events to subscribed handlers. Handlers run
// synchronously, in subscription order, on the emitting goroutine.
type Emitter struct {
	mu     sync.Mutex
	nextID int
	subs   map[string][]*Subscription
}

// Subscription is the disposable handle returned by On.
type Subscription struct {
	emitter *Emitter
	event   string
	id      int
	fn      Handler
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{subs: make(map[string][]*Subscription)}
}

// On subscribes a handler to an event and returns its disposable handle.
func (e *Emitter) On(event string, fn Handler) *Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	sub := &Subscription{emitter: e, event: event, id: e.nextID, fn: fn}
	e.subs[event] = append(e.subs[event], sub)
	return sub
}

// Emit invokes every handler subscribed to the event. The handler list is
// snapshotted first, so handlers may dispose subscriptions mid-dispatch.
func (e *Emitter) Emit(event string, args ...any) {
	e.mu.Lock()
	snapshot := make([]*Subscription, len(e.subs[event]))
	copy(snapshot, e.subs[event])
	e.mu.Unlock()

	for _, sub := range snapshot {
		sub.mu().Lock()
		fn := sub.fn
		sub.mu().Unlock()
		if fn != nil {
			fn(args...)
		}
	}
}

// ListenerCount returns the number of live subscriptions for an event.
func (e *Emitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs[event])
}

// Event returns the event name this subscription is attached to.
func (s *Subscription) Event() string {
	return s.event
}

// Emitter returns the emitter this subscription was created on.
func (s *Subscription) Emitter() *Emitter {
	return s.emitter
}

// Dispose detaches the subscription from its emitter. Safe to call more
// than once.
func (s *Subscription) Dispose() {
	e := s.emitter
	e.mu.Lock()
	defer e.mu.Unlock()

	list := e.subs[s.event]
	for i, sub := range list {
		if sub.id == s.id {
			e.subs[s.event] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	s.fn = nil
}

// mu exposes the emitter lock guarding the handler reference. Dispose sets
// fn under the same lock Emit reads it under.
func (s *Subscription) mu() *sync.Mutex {
	return &s.emitter.mu
}
