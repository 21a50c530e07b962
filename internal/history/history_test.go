package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LocalBoard/internal/state"
)

func el(id string, x float64, version int64) state.Element {
	return state.Element{ID: id, Type: state.TypeRectangle, X: x, Width: 10, Height: 10, Version: version, VersionNonce: version * 7}
}

func TestManager_UndoRedo(t *testing.T) {
	m := New(0)
	view := state.View{Zoom: 1}

	require.True(t, m.Push(view, nil))
	require.True(t, m.Push(view, []state.Element{el("a", 0, 1)}))
	require.True(t, m.Push(view, []state.Element{el("a", 5, 2)}))

	e, ok := m.Undo()
	require.True(t, ok)
	require.Len(t, e.Elements, 1)
	assert.Equal(t, 0.0, e.Elements[0].X)
	assert.Zero(t, e.Elements[0].Version, "entries are stored without versions")

	e, ok = m.Redo()
	require.True(t, ok)
	assert.Equal(t, 5.0, e.Elements[0].X)
	assert.False(t, m.CanRedo())
}

func TestManager_PushSkipsDuplicates(t *testing.T) {
	m := New(0)
	view := state.View{Zoom: 1}
	require.True(t, m.Push(view, []state.Element{el("a", 0, 1)}))
	// Same content at a newer version is still the same snapshot.
	assert.False(t, m.Push(view, []state.Element{el("a", 0, 9)}))
	assert.False(t, m.CanUndo())
}

func TestManager_PushClearsRedo(t *testing.T) {
	m := New(0)
	view := state.View{Zoom: 1}
	m.Push(view, nil)
	m.Push(view, []state.Element{el("a", 0, 1)})
	_, ok := m.Undo()
	require.True(t, ok)
	require.True(t, m.CanRedo())

	m.Push(view, []state.Element{el("b", 0, 1)})
	assert.False(t, m.CanRedo())
}

func TestManager_UndoNeedsTwoEntries(t *testing.T) {
	m := New(0)
	_, ok := m.Undo()
	assert.False(t, ok)
	m.Push(state.View{}, nil)
	_, ok = m.Undo()
	assert.False(t, ok)
}

func TestManager_Limit(t *testing.T) {
	m := New(3)
	for i := 0; i < 10; i++ {
		m.Push(state.View{}, []state.Element{el("a", float64(i), 1)})
	}
	n := 0
	for m.CanUndo() {
		_, _ = m.Undo()
		n++
	}
	assert.Equal(t, 2, n)
}

func TestManager_Clear(t *testing.T) {
	m := New(0)
	m.Push(state.View{}, nil)
	m.Push(state.View{}, []state.Element{el("a", 0, 1)})
	m.SkipRecording()

	m.Clear()
	assert.False(t, m.CanUndo())
	assert.False(t, m.CanRedo())
	assert.True(t, m.IsRecording())
}

func TestManager_EntriesDropTombstones(t *testing.T) {
	m := New(0)
	dead := el("a", 0, 3)
	dead.IsDeleted = true
	m.Push(state.View{}, []state.Element{dead, el("b", 0, 1)})
	m.Push(state.View{}, nil)
	e, ok := m.Undo()
	require.True(t, ok)
	require.Len(t, e.Elements, 1)
	assert.Equal(t, "b", e.Elements[0].ID)
}
