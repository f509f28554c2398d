package events

import (
	"reflect"
	"sync"

	"github.com/tdsio/mssqlx"
)

// Tracker keeps its own bookkeeping of (event, handler) registrations and
// the live subscriptions it created, independent of any emitter. Detaching
// through the tracker touches only listeners the tracker itself attached,
// never listeners owned by unrelated code.
type Tracker struct {
	mu   sync.Mutex
	regs []*registration
}

// registration is one tracked (event, handler) pair plus the live
// subscriptions created for it.
type registration struct {
	event string
	key   uintptr
	fn    Handler
	subs  []*Subscription
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

func handlerKey(fn Handler) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

func (t *Tracker) findLocked(event string, key uintptr) *registration {
	for _, r := range t.regs {
		if r.event == event && r.key == key {
			return r
		}
	}
	return nil
}

// Register records (event, handler) pairs without subscribing them
// anywhere. Exact duplicates are silently skipped.
func (t *Tracker) Register(event string, handlers ...Handler) error {
	if event == "" {
		return mssqlx.Validationf("events.Register", "event name is required")
	}
	if len(handlers) == 0 {
		return mssqlx.Validationf("events.Register", "at least one handler is required")
	}
	for _, fn := range handlers {
		if fn == nil {
			return mssqlx.Validationf("events.Register", "handler must not be nil")
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, fn := range handlers {
		key := handlerKey(fn)
		if t.findLocked(event, key) != nil {
			continue
		}
		t.regs = append(t.regs, &registration{event: event, key: key, fn: fn})
	}
	return nil
}

// RegisterOn records the pairs and subscribes the handlers on each given
// emitter, retaining the subscription handles for later removal.
func (t *Tracker) RegisterOn(emitters []*Emitter, event string, handlers ...Handler) error {
	if len(emitters) == 0 {
		return mssqlx.Validationf("events.RegisterOn", "at least one emitter is required")
	}
	if err := t.Register(event, handlers...); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, fn := range handlers {
		reg := t.findLocked(event, handlerKey(fn))
		for _, em := range emitters {
			reg.subs = append(reg.subs, em.On(event, fn))
		}
	}
	return nil
}

// RemoveFrom unsubscribes, from the given emitter, only the handlers this
// tracker attached there. An empty event targets every event. When
// unregister is true the matching bookkeeping entries are dropped as well.
func (t *Tracker) RemoveFrom(em *Emitter, event string, unregister bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.regs[:0]
	for _, r := range t.regs {
		if event != "" && r.event != event {
			kept = append(kept, r)
			continue
		}
		remaining := r.subs[:0]
		for _, sub := range r.subs {
			if sub.Emitter() == em {
				sub.Dispose()
				continue
			}
			remaining = append(remaining, sub)
		}
		r.subs = remaining
		if !unregister {
			kept = append(kept, r)
		}
	}
	t.regs = kept
}

// Unregister removes bookkeeping entries by event and/or specific handlers,
// disposing any live subscriptions they hold. With an empty event and no
// handlers it clears everything.
func (t *Tracker) Unregister(event string, handlers ...Handler) {
	var keys []uintptr
	for _, fn := range handlers {
		if fn != nil {
			keys = append(keys, handlerKey(fn))
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.regs[:0]
	for _, r := range t.regs {
		if event != "" && r.event != event {
			kept = append(kept, r)
			continue
		}
		if len(keys) > 0 && !containsKey(keys, r.key) {
			kept = append(kept, r)
			continue
		}
		for _, sub := range r.subs {
			sub.Dispose()
		}
	}
	t.regs = kept
}

// Clear drops all bookkeeping and disposes every tracked subscription.
func (t *Tracker) Clear() {
	t.Unregister("")
}

// Len returns the number of tracked (event, handler) pairs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.regs)
}

func containsKey(keys []uintptr, key uintptr) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
