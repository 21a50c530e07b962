package board

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LocalBoard/internal/interact"
	"LocalBoard/internal/state"
)

func drag(b *Board, x0, y0, x1, y1 float64) {
	b.PointerDown(interact.PointerEvent{ID: 1, X: x0, Y: y0})
	b.PointerMove(interact.PointerEvent{ID: 1, X: x1, Y: y1})
	b.PointerUp(interact.PointerEvent{ID: 1, X: x1, Y: y1})
}

func rect(id string, version, nonce int64) state.Element {
	return state.Element{
		ID: id, Type: state.TypeRectangle, Width: 10, Height: 10,
		Style: state.DefaultStyle, Version: version, VersionNonce: nonce,
	}
}

func TestUndoRedo(t *testing.T) {
	b := New(nil, interact.DefaultConfig())

	b.SetTool(interact.ToolRectangle)
	drag(b, 0, 0, 40, 30)
	snap := b.Snapshot()
	require.Len(t, snap.Elements, 1)
	created := snap.Elements[0]
	assert.True(t, snap.CanUndo)

	require.True(t, b.Undo())
	assert.Empty(t, b.Snapshot().Elements)
	all := b.Elements()
	require.Len(t, all, 1)
	assert.True(t, all[0].IsDeleted)
	assert.Greater(t, all[0].Version, created.Version)
	assert.True(t, b.Snapshot().CanRedo)

	require.True(t, b.Redo())
	snap = b.Snapshot()
	require.Len(t, snap.Elements, 1)
	restored := snap.Elements[0]
	assert.Equal(t, created.ID, restored.ID)
	assert.Equal(t, created.Width, restored.Width)
	assert.Greater(t, restored.Version, all[0].Version)
	assert.Equal(t, []string{created.ID}, snap.View.Selected)

	assert.False(t, b.Redo())
}

func TestUndoThroughKeyboard(t *testing.T) {
	b := New(nil, interact.DefaultConfig())
	style := state.DefaultStyle
	style.BackgroundColor = "#a5d8ff"
	b.SetStyle(style)
	b.SetTool(interact.ToolEllipse)
	drag(b, 0, 0, 40, 30)
	drag(b, 20, 15, 60, 15)

	before := b.Snapshot().Elements[0]
	require.True(t, b.KeyDown(interact.KeyEvent{Key: "z", Mods: interact.ModCtrl}))
	after := b.Snapshot().Elements[0]
	assert.Equal(t, before.ID, after.ID)
	assert.NotEqual(t, before.X, after.X)

	require.True(t, b.KeyDown(interact.KeyEvent{Key: "z", Mods: interact.ModCtrl | interact.ModShift}))
	assert.Equal(t, before.X, b.Snapshot().Elements[0].X)
}

func TestOneHistoryEntryPerGesture(t *testing.T) {
	b := New(nil, interact.DefaultConfig())
	b.SetTool(interact.ToolRectangle)

	b.PointerDown(interact.PointerEvent{ID: 1, X: 0, Y: 0})
	for i := 1; i <= 10; i++ {
		b.PointerMove(interact.PointerEvent{ID: 1, X: float64(i * 10), Y: float64(i * 5)})
	}
	b.PointerUp(interact.PointerEvent{ID: 1, X: 100, Y: 50})

	require.True(t, b.Undo())
	assert.Empty(t, b.Snapshot().Elements)
	assert.False(t, b.Undo())
}

func TestUndoIgnoredMidGesture(t *testing.T) {
	b := New(nil, interact.DefaultConfig())
	b.SetTool(interact.ToolRectangle)
	drag(b, 0, 0, 40, 30)

	b.PointerDown(interact.PointerEvent{ID: 1, X: 20, Y: 0})
	assert.False(t, b.Undo())
}

func TestReconcileClearsHistoryAndMerges(t *testing.T) {
	b := New([]state.Element{rect("a", 1, 5)}, interact.DefaultConfig())

	local, remote := b.Reconcile([]state.Element{rect("a", 3, 9), rect("b", 1, 1)})
	assert.Equal(t, int64(1), local)
	assert.Equal(t, int64(4), remote)

	els := b.Elements()
	require.Len(t, els, 2)
	assert.Equal(t, "a", els[0].ID)
	assert.Equal(t, int64(3), els[0].Version)
	assert.Equal(t, "b", els[1].ID)

	snap := b.Snapshot()
	assert.False(t, snap.CanUndo)
	assert.False(t, snap.CanRedo)
}

func TestReconcileKeepsElementUnderGesture(t *testing.T) {
	b := New(nil, interact.DefaultConfig())
	b.SetTool(interact.ToolRectangle)
	b.PointerDown(interact.PointerEvent{ID: 1, X: 0, Y: 0})
	b.PointerMove(interact.PointerEvent{ID: 1, X: 50, Y: 50})
	id := b.Snapshot().Elements[0].ID

	remote := rect(id, 99, 1)
	remote.X = 500
	b.Reconcile([]state.Element{remote})

	el := b.Snapshot().Elements[0]
	assert.Equal(t, 0.0, el.X)
	assert.Equal(t, 50.0, el.Width)

	b.PointerUp(interact.PointerEvent{ID: 1, X: 50, Y: 50})
	b.Reconcile([]state.Element{remote})
	assert.Equal(t, 500.0, b.Snapshot().Elements[0].X)
}

func TestReconcilePrunesSelection(t *testing.T) {
	b := New(nil, interact.DefaultConfig())
	b.SetTool(interact.ToolRectangle)
	drag(b, 0, 0, 40, 30)
	el := b.Snapshot().Elements[0]
	require.Equal(t, []string{el.ID}, b.Snapshot().View.Selected)

	gone := el.Clone()
	gone.IsDeleted = true
	gone.Version += 10
	b.Reconcile([]state.Element{gone})

	assert.Empty(t, b.Snapshot().View.Selected)
	assert.Empty(t, b.Snapshot().Elements)
}

func TestDrawingVersionAdvances(t *testing.T) {
	b := New(nil, interact.DefaultConfig())
	v0 := b.DrawingVersion()

	b.SetTool(interact.ToolDiamond)
	drag(b, 0, 0, 40, 30)
	v1 := b.DrawingVersion()
	assert.Greater(t, v1, v0)

	b.KeyDown(interact.KeyEvent{Key: interact.KeyDelete})
	v2 := b.DrawingVersion()
	assert.Greater(t, v2, v1)

	assert.Equal(t, 1, b.Prune())
	assert.GreaterOrEqual(t, b.DrawingVersion(), v2)
}

func TestSyncableSkipsTombstones(t *testing.T) {
	deleted := rect("gone", 2, 1)
	deleted.IsDeleted = true
	b := New([]state.Element{rect("a", 1, 1), deleted}, interact.DefaultConfig())

	out := b.Syncable()
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestLoadReplacesScene(t *testing.T) {
	b := New([]state.Element{rect("a", 4, 1)}, interact.DefaultConfig())
	stored := rect("b", 0, 0)

	b.Load([]state.Element{stored})

	visible := b.Snapshot().Elements
	require.Len(t, visible, 1)
	assert.Equal(t, "b", visible[0].ID)
	assert.Equal(t, int64(1), visible[0].Version)
	assert.NotZero(t, visible[0].VersionNonce)
	assert.False(t, b.Snapshot().CanUndo)

	// The replaced element becomes a tombstone above its old version.
	els := b.Elements()
	require.Len(t, els, 2)
	assert.Equal(t, "a", els[1].ID)
	assert.True(t, els[1].IsDeleted)
	assert.Equal(t, int64(5), els[1].Version)
}

func TestLoadOutranksCurrentCopy(t *testing.T) {
	b := New([]state.Element{rect("a", 4, 1)}, interact.DefaultConfig())
	stored := rect("a", 0, 0)
	stored.Width = 80

	b.Load([]state.Element{stored})

	el := b.Snapshot().Elements
	require.Len(t, el, 1)
	assert.Equal(t, 80.0, el[0].Width)
	assert.Equal(t, int64(5), el[0].Version)
}

func TestUndoAfterPruneOutranksOldVersions(t *testing.T) {
	b := New(nil, interact.DefaultConfig())
	b.SetTool(interact.ToolRectangle)
	drag(b, 0, 0, 40, 30)
	created := b.Snapshot().Elements[0]

	b.SelectAll()
	b.KeyDown(interact.KeyEvent{Key: interact.KeyDelete})
	tombstone := b.Elements()[0]
	require.True(t, tombstone.IsDeleted)
	require.Equal(t, 1, b.Prune())
	require.Empty(t, b.Elements())

	require.True(t, b.Undo())
	restored := b.Snapshot().Elements
	require.Len(t, restored, 1)
	assert.Equal(t, created.ID, restored[0].ID)
	assert.Greater(t, restored[0].Version, tombstone.Version)
}

func TestOnChangeRunsOutsideLock(t *testing.T) {
	var calls atomic.Int32
	var b *Board
	b = New(nil, interact.DefaultConfig(), WithOnChange(func() {
		// Re-entering the board must not deadlock.
		_ = b.Snapshot()
		calls.Add(1)
	}))

	b.SetTool(interact.ToolRectangle)
	drag(b, 0, 0, 10, 10)

	assert.Equal(t, int32(4), calls.Load())
}

func TestConcurrentInputAndReconcile(t *testing.T) {
	b := New(nil, interact.DefaultConfig())
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			b.SetTool(interact.ToolRectangle)
			x := float64(i * 20)
			drag(b, x, 0, x+10, 10)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			b.Reconcile([]state.Element{rect("remote", int64(i+1), 1)})
		}
	}()
	wg.Wait()

	ids := make(map[string]bool)
	for _, el := range b.Elements() {
		assert.False(t, ids[el.ID], "duplicate id %s", el.ID)
		ids[el.ID] = true
	}
	assert.True(t, ids["remote"])
	assert.Len(t, b.Snapshot().Elements, 51)
}
