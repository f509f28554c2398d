// Package connection owns a single physical connection's lifecycle: the
// state machine, coalesced connect/disconnect, and transport event relays.
package connection

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/tdsio/mssqlx"
	"github.com/tdsio/mssqlx/config"
	"github.com/tdsio/mssqlx/events"
	"github.com/tdsio/mssqlx/internal/debug"
	"github.com/tdsio/mssqlx/tds"
)

// Lifecycle events emitted by a Connection.
const (
	EventConnecting    = "connecting"
	EventConnected     = "connected"
	EventDisconnecting = "disconnecting"
	EventDisconnected  = "disconnected"
	// EventStateChanged carries (old State, new State).
	EventStateChanged = "state-changed"
	// EventError relays transport-level errors.
	EventError = "error"
)

// Connection is one pooled physical connection. Its transport handle is
// exclusively owned by the Connection; the Connection itself is exclusively
// owned by the pool adapter between acquire and release. A Connection must
// never run two executions concurrently; the pool is the unit of
// concurrency.
type Connection struct {
	// ID is the connection's identity token.
	ID uuid.UUID

	cfg     *config.Config
	log     *slog.Logger
	dial    tds.Dialer
	emitter *events.Emitter
	tracker *events.Tracker

	mu        sync.Mutex
	state     State
	transport tds.Conn
	waiters   []chan stateChange
}

// New creates an unconnected Connection. A nil logger falls back to the
// package debug logger.
func New(cfg *config.Config, log *slog.Logger, dial tds.Dialer) *Connection {
	id := uuid.New()
	if log == nil {
		log = debug.Logger()
	}
	return &Connection{
		ID:      id,
		cfg:     cfg,
		log:     log.With("conn", id.String()),
		dial:    dial,
		emitter: events.NewEmitter(),
		tracker: events.NewTracker(),
	}
}

// Events returns the connection's lifecycle event emitter.
func (c *Connection) Events() *events.Emitter {
	return c.emitter
}

// Log returns the connection's logger.
func (c *Connection) Log() *slog.Logger {
	return c.log
}

// Config returns the shared configuration the connection was built with.
func (c *Connection) Config() *config.Config {
	return c.cfg
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transport returns the owned transport handle, or nil before the first
// successful connect.
func (c *Connection) Transport() tds.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport
}

// Connected reports whether the connection is live: idle with a logged-in,
// open transport handle.
func (c *Connection) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveLocked()
}

// Dead reports whether the transport handle is gone or closed underneath
// the connection. The pool destroys dead connections instead of reusing
// them.
func (c *Connection) Dead() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport == nil || c.transport.Closed()
}

func (c *Connection) liveLocked() bool {
	return c.state == StateIdle && c.transport != nil && c.transport.LoggedIn() && !c.transport.Closed()
}

// shiftLocked moves to a new state and returns the notification closure to
// run after the lock is released: it delivers the transition to every
// one-shot waiter and emits state-changed.
func (c *Connection) shiftLocked(to State, err error) func() {
	old := c.state
	c.state = to
	waiters := c.waiters
	c.waiters = nil
	return func() {
		for _, w := range waiters {
			w <- stateChange{state: to, err: err}
		}
		c.emitter.Emit(EventStateChanged, old, to)
	}
}

// nextTransitionLocked registers a one-shot wait on the next state change.
func (c *Connection) nextTransitionLocked() <-chan stateChange {
	ch := make(chan stateChange, 1)
	c.waiters = append(c.waiters, ch)
	return ch
}

// Connect brings the connection to a live state. It is idempotent on a
// live connection, coalesces with an in-flight connect so that exactly one
// underlying attempt runs regardless of caller count, and fails with a
// StateError when the connection is executing or transacting.
func (c *Connection) Connect() error {
	c.mu.Lock()

	if c.liveLocked() {
		c.mu.Unlock()
		c.emitter.Emit(EventConnected)
		return nil
	}

	switch c.state {
	case StateConnecting:
		// Adopt the in-flight attempt's outcome.
		ch := c.nextTransitionLocked()
		c.mu.Unlock()
		change := <-ch
		if change.err != nil {
			return change.err
		}
		c.emitter.Emit(EventConnected)
		return nil
	case StateIdle:
	default:
		state := c.state
		c.mu.Unlock()
		return &mssqlx.StateError{Op: "connect", State: state.String()}
	}

	stale := c.transport
	c.transport = nil
	notify := c.shiftLocked(StateConnecting, nil)
	c.mu.Unlock()
	notify()
	c.emitter.Emit(EventConnecting)

	if stale != nil {
		c.discard(stale)
	}

	err := c.handshake()
	if err != nil {
		c.log.Error("connect failed", "error", err)
		c.mu.Lock()
		notify = c.shiftLocked(StateIdle, err)
		c.mu.Unlock()
		notify()
		return err
	}

	c.mu.Lock()
	notify = c.shiftLocked(StateIdle, nil)
	c.mu.Unlock()
	notify()
	c.emitter.Emit(EventConnected)
	return nil
}

// handshake dials a fresh transport handle and waits for its connect-or-
// error event.
func (c *Connection) handshake() error {
	transport, err := c.dial(c.cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", mssqlx.ErrConnection, err)
	}

	outcome := make(chan error, 1)
	var once sync.Once
	report := func(err error) {
		once.Do(func() { outcome <- err })
	}

	subConnect := transport.Events().On(tds.EventConnect, func(args ...any) {
		if len(args) > 0 && args[0] != nil {
			err, _ := args[0].(error)
			report(err)
			return
		}
		report(nil)
	})
	subError := transport.Events().On(EventError, func(args ...any) {
		if len(args) > 0 {
			if err, ok := args[0].(error); ok {
				report(err)
				return
			}
		}
		report(mssqlx.ErrConnection)
	})

	transport.Connect()
	err = <-outcome
	subConnect.Dispose()
	subError.Dispose()

	if err != nil {
		if !transport.Closed() {
			transport.Close()
		}
		return fmt.Errorf("%w: %v", mssqlx.ErrConnection, err)
	}

	c.attachRelays(transport)
	c.mu.Lock()
	c.transport = transport
	c.mu.Unlock()
	c.log.Debug("transport connected", "server", c.cfg.Addr())
	return nil
}

// Disconnect closes the connection. It mirrors Connect: idempotent when
// already down, coalesces with an in-flight disconnect, and is a
// StateError while executing or transacting.
func (c *Connection) Disconnect() error {
	c.mu.Lock()

	if c.state == StateIdle && (c.transport == nil || c.transport.Closed()) {
		c.transport = nil
		c.mu.Unlock()
		c.emitter.Emit(EventDisconnected)
		return nil
	}

	switch c.state {
	case StateDisconnecting:
		ch := c.nextTransitionLocked()
		c.mu.Unlock()
		change := <-ch
		if change.err != nil {
			return change.err
		}
		c.emitter.Emit(EventDisconnected)
		return nil
	case StateIdle:
	default:
		state := c.state
		c.mu.Unlock()
		return &mssqlx.StateError{Op: "disconnect", State: state.String()}
	}

	transport := c.transport
	c.transport = nil
	notify := c.shiftLocked(StateDisconnecting, nil)
	c.mu.Unlock()
	notify()
	c.emitter.Emit(EventDisconnecting)

	c.tracker.RemoveFrom(transport.Events(), "", true)

	// Close and wait for the transport's close acknowledgment.
	closed := make(chan struct{}, 1)
	sub := transport.Events().On(tds.EventEnd, func(args ...any) {
		select {
		case closed <- struct{}{}:
		default:
		}
	})
	if transport.Closed() {
		closed <- struct{}{}
	} else {
		transport.Close()
	}
	<-closed
	sub.Dispose()

	c.mu.Lock()
	notify = c.shiftLocked(StateIdle, nil)
	c.mu.Unlock()
	notify()
	c.emitter.Emit(EventDisconnected)
	c.log.Debug("transport disconnected")
	return nil
}

// Reserve claims the idle connection for an execution or transaction.
// Anything but a live idle connection is a StateError: callers must
// serialize their own operations on a connection.
func (c *Connection) Reserve(to State) error {
	op := "execute"
	if to == StateTransacting {
		op = "transact"
	}

	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return &mssqlx.StateError{Op: op, State: state.String()}
	}
	if !c.liveLocked() {
		c.mu.Unlock()
		return fmt.Errorf("%w: connection is not live", mssqlx.ErrConnection)
	}
	notify := c.shiftLocked(to, nil)
	c.mu.Unlock()
	notify()
	return nil
}

// Release returns a reserved connection to Idle. Releasing an unreserved
// connection is a no-op.
func (c *Connection) Release() {
	c.mu.Lock()
	if c.state != StateExecuting && c.state != StateTransacting {
		c.mu.Unlock()
		return
	}
	notify := c.shiftLocked(StateIdle, nil)
	c.mu.Unlock()
	notify()
}

// attachRelays forwards transport diagnostics into the connection's logger
// and error event. Registration goes through the tracker so a reconnect
// never leaks listeners on a discarded handle.
func (c *Connection) attachRelays(transport tds.Conn) {
	emitters := []*events.Emitter{transport.Events()}
	_ = c.tracker.RegisterOn(emitters, tds.EventDebug, c.relayDebug)
	_ = c.tracker.RegisterOn(emitters, tds.EventInfo, c.relayInfo)
	_ = c.tracker.RegisterOn(emitters, EventError, c.relayError)
	_ = c.tracker.RegisterOn(emitters, tds.EventEnd, c.relayEnd)
}

func (c *Connection) discard(transport tds.Conn) {
	c.tracker.RemoveFrom(transport.Events(), "", true)
	if !transport.Closed() {
		transport.Close()
	}
}

func (c *Connection) relayDebug(args ...any) {
	c.log.Debug("transport", "message", firstString(args))
}

func (c *Connection) relayInfo(args ...any) {
	c.log.Info("transport", "message", firstString(args))
}

func (c *Connection) relayError(args ...any) {
	if len(args) > 0 {
		if err, ok := args[0].(error); ok {
			c.log.Error("transport error", "error", err)
			c.emitter.Emit(EventError, err)
			return
		}
	}
	c.log.Error("transport error")
}

func (c *Connection) relayEnd(args ...any) {
	c.log.Debug("transport ended")
}

func firstString(args []any) string {
	if len(args) > 0 {
		if s, ok := args[0].(string); ok {
			return s
		}
	}
	return ""
}
