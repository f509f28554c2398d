package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdsio/mssqlx"
)

func TestRegisterValidation(t *testing.T) {
	tr := NewTracker()
	h := func(args ...any) {}

	assert.True(t, mssqlx.IsValidation(tr.Register("", h)))
	assert.True(t, mssqlx.IsValidation(tr.Register("x")))
	assert.True(t, mssqlx.IsValidation(tr.Register("x", nil)))
	require.NoError(t, tr.Register("x", h))
}

func TestRegisterSkipsDuplicates(t *testing.T) {
	tr := NewTracker()
	h := func(args ...any) {}

	require.NoError(t, tr.Register("x", h))
	require.NoError(t, tr.Register("x", h))
	assert.Equal(t, 1, tr.Len())

	// Same handler on a different event is a distinct pair.
	require.NoError(t, tr.Register("y", h))
	assert.Equal(t, 2, tr.Len())
}

func TestRegisterOnSubscribes(t *testing.T) {
	tr := NewTracker()
	em := NewEmitter()
	calls := 0

	require.NoError(t, tr.RegisterOn([]*Emitter{em}, "x", func(args ...any) { calls++ }))
	em.Emit("x")
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, em.ListenerCount("x"))
}

func TestRemoveFromLeavesUntrackedListeners(t *testing.T) {
	tr := NewTracker()
	em := NewEmitter()

	tracked := 0
	untracked := 0
	require.NoError(t, tr.RegisterOn([]*Emitter{em}, "x", func(args ...any) { tracked++ }))
	em.On("x", func(args ...any) { untracked++ })

	tr.RemoveFrom(em, "", false)
	em.Emit("x")

	assert.Equal(t, 0, tracked)
	assert.Equal(t, 1, untracked)
	assert.Equal(t, 1, em.ListenerCount("x"))
	assert.Equal(t, 1, tr.Len(), "bookkeeping kept when unregister is false")
}

func TestRemoveFromTargetsOneEmitter(t *testing.T) {
	tr := NewTracker()
	a := NewEmitter()
	b := NewEmitter()
	calls := 0

	require.NoError(t, tr.RegisterOn([]*Emitter{a, b}, "x", func(args ...any) { calls++ }))
	tr.RemoveFrom(a, "", false)

	a.Emit("x")
	b.Emit("x")
	assert.Equal(t, 1, calls)
}

func TestRemoveFromByEvent(t *testing.T) {
	tr := NewTracker()
	em := NewEmitter()
	xCalls, yCalls := 0, 0

	require.NoError(t, tr.RegisterOn([]*Emitter{em}, "x", func(args ...any) { xCalls++ }))
	require.NoError(t, tr.RegisterOn([]*Emitter{em}, "y", func(args ...any) { yCalls++ }))

	tr.RemoveFrom(em, "x", true)
	em.Emit("x")
	em.Emit("y")

	assert.Equal(t, 0, xCalls)
	assert.Equal(t, 1, yCalls)
	assert.Equal(t, 1, tr.Len())
}

func TestUnregisterSpecificHandler(t *testing.T) {
	tr := NewTracker()
	em := NewEmitter()
	aCalls, bCalls := 0, 0
	a := func(args ...any) { aCalls++ }
	b := func(args ...any) { bCalls++ }

	require.NoError(t, tr.RegisterOn([]*Emitter{em}, "x", a, b))
	tr.Unregister("x", a)

	em.Emit("x")
	assert.Equal(t, 0, aCalls)
	assert.Equal(t, 1, bCalls)
	assert.Equal(t, 1, tr.Len())
}

func TestClear(t *testing.T) {
	tr := NewTracker()
	em := NewEmitter()
	calls := 0

	require.NoError(t, tr.RegisterOn([]*Emitter{em}, "x", func(args ...any) { calls++ }))
	require.NoError(t, tr.Register("y", func(args ...any) {}))

	tr.Clear()
	em.Emit("x")

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, tr.Len())
}
