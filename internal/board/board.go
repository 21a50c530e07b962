// Package board owns the scene store, the history and the interaction
// machine behind one lock.
//
// Every input method, undo/redo step and reconciliation runs with the lock
// held for its whole duration, so a remote merge is applied between two
// gesture steps and never in the middle of one. Network and crypto work
// happen outside the lock, in the collab package.
//
// After each call that may have changed the scene, the board flushes: it
// records a history entry when recording is on and no gesture is in flight,
// then calls the change hook without holding the lock.
package board

import (
	"reflect"
	"sync"

	"github.com/golang/glog"

	"LocalBoard/internal/history"
	"LocalBoard/internal/interact"
	"LocalBoard/internal/reconcile"
	"LocalBoard/internal/state"
)

// Snapshot is a consistent copy of everything a renderer needs.
type Snapshot struct {
	Elements   []state.Element
	View       state.View
	Overlay    interact.Overlay
	Tool       interact.Tool
	ToolLocked bool
	Style      state.Style
	State      interact.StateKind
	EditingID  string
	CanUndo    bool
	CanRedo    bool
}

type Board struct {
	mu       sync.Mutex
	scene    *state.Scene
	history  *history.Manager
	machine  *interact.Machine
	onChange func()
}

type Option func(*Board)

// WithHistoryLimit bounds the undo stack.
func WithHistoryLimit(n int) Option {
	return func(b *Board) { b.history = history.New(n) }
}

// WithOnChange sets the hook called after every change, outside the lock.
func WithOnChange(fn func()) Option {
	return func(b *Board) { b.onChange = fn }
}

// New creates a board holding elements, normalized with state.Restore.
func New(elements []state.Element, cfg interact.Config, opts ...Option) *Board {
	b := &Board{
		scene:   state.NewScene(state.Restore(elements)...),
		history: history.New(history.DefaultLimit),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.machine = interact.New(b.scene, b.history, cfg)
	b.mu.Lock()
	b.recordLocked()
	b.mu.Unlock()
	return b
}

// SetOnChange replaces the change hook.
func (b *Board) SetOnChange(fn func()) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// do runs fn under the lock and flushes afterwards.
func (b *Board) do(fn func()) {
	b.mu.Lock()
	fn()
	b.recordLocked()
	hook := b.onChange
	b.mu.Unlock()
	if hook != nil {
		hook()
	}
}

// recordLocked pushes a history entry once the machine is back to idle. A
// gesture's intermediate steps are folded into a single entry.
func (b *Board) recordLocked() {
	if !b.history.IsRecording() || b.machine.State() != interact.Idle {
		return
	}
	b.history.Push(b.machine.View(), b.scene.Elements())
	b.history.SkipRecording()
}

func (b *Board) PointerDown(ev interact.PointerEvent) { b.do(func() { b.machine.PointerDown(ev) }) }
func (b *Board) PointerMove(ev interact.PointerEvent) { b.do(func() { b.machine.PointerMove(ev) }) }
func (b *Board) PointerUp(ev interact.PointerEvent)   { b.do(func() { b.machine.PointerUp(ev) }) }
func (b *Board) DoubleClick(ev interact.PointerEvent) { b.do(func() { b.machine.DoubleClick(ev) }) }
func (b *Board) Wheel(ev interact.WheelEvent)         { b.do(func() { b.machine.Wheel(ev) }) }
func (b *Board) KeyUp(ev interact.KeyEvent)           { b.do(func() { b.machine.KeyUp(ev) }) }
func (b *Board) Blur()                                { b.do(b.machine.Blur) }
func (b *Board) SelectAll()                           { b.do(b.machine.SelectAll) }
func (b *Board) ClearSelection()                      { b.do(b.machine.ClearSelection) }
func (b *Board) CommitText(text string)               { b.do(func() { b.machine.CommitText(text) }) }
func (b *Board) SetTool(t interact.Tool)              { b.do(func() { b.machine.SetTool(t) }) }
func (b *Board) SetToolLocked(locked bool)            { b.do(func() { b.machine.SetToolLocked(locked) }) }
func (b *Board) SetStyle(s state.Style)               { b.do(func() { b.machine.SetStyle(s) }) }
func (b *Board) SetZoom(z float64)                    { b.do(func() { b.machine.SetZoom(z) }) }
func (b *Board) Resize(w, h float64)                  { b.do(func() { b.machine.Resize(w, h) }) }

// KeyDown routes undo/redo and hands every other key to the machine.
func (b *Board) KeyDown(ev interact.KeyEvent) bool {
	if ev.Mods.Ctrl() {
		switch {
		case ev.Key == "z" && ev.Mods.Shift(), ev.Key == "y":
			return b.Redo()
		case ev.Key == "z":
			return b.Undo()
		}
	}
	var handled bool
	b.do(func() { handled = b.machine.KeyDown(ev) })
	return handled
}

// Cursor returns the last pointer position in scene coordinates.
func (b *Board) Cursor() state.Point {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.machine.Cursor()
}

// Undo restores the previous history entry. It does nothing while a gesture
// or an edit is in progress.
func (b *Board) Undo() bool {
	return b.step(b.history.Undo)
}

// Redo re-applies the entry most recently undone.
func (b *Board) Redo() bool {
	return b.step(b.history.Redo)
}

func (b *Board) step(next func() (history.Entry, bool)) bool {
	var ok bool
	b.do(func() {
		if b.machine.State() != interact.Idle || b.machine.EditingID() != "" {
			return
		}
		var e history.Entry
		if e, ok = next(); ok {
			b.applyLocked(e)
		}
	})
	return ok
}

// applyLocked turns the scene into the entry's content. Restored elements
// get a version above any this scene has held for them, pruned copies
// included, so peers adopt them. Elements absent from the entry are
// tombstoned rather than dropped.
func (b *Board) applyLocked(e history.Entry) {
	current := b.scene.Elements()
	byID := make(map[string]state.Element, len(current))
	for _, el := range current {
		byID[el.ID] = el
	}

	next := make([]state.Element, 0, len(e.Elements)+len(current))
	seen := make(map[string]bool, len(e.Elements))
	for _, el := range e.Elements {
		seen[el.ID] = true
		cur, known := byID[el.ID]
		if known && !cur.IsDeleted && reflect.DeepEqual(cur.Stripped(), el) {
			next = append(next, cur)
			continue
		}
		el = el.Clone()
		el.IsDeleted = false
		el.Version = b.scene.VersionFloor(el.ID) + 1
		el.VersionNonce = state.NewNonce()
		next = append(next, el)
	}
	for _, cur := range current {
		if seen[cur.ID] {
			continue
		}
		if !cur.IsDeleted {
			cur.IsDeleted = true
			cur.Version++
			cur.VersionNonce = state.NewNonce()
		}
		next = append(next, cur)
	}

	b.scene.Replace(next)
	b.machine.Select(e.View.Selected...)
	b.history.SkipRecording()
}

// Reconcile merges a remote snapshot into the scene and clears the history.
// It returns the drawing versions of the local scene before the merge and of
// the remote snapshot.
func (b *Board) Reconcile(remote []state.Element) (localVersion, remoteVersion int64) {
	b.do(func() {
		localVersion = b.scene.DrawingVersion()
		remoteVersion = state.DrawingVersion(remote)

		merged := reconcile.Merge(b.scene.Elements(), remote, b.machine.Excluded())
		synced := make([]string, 0, len(remote))
		for _, el := range remote {
			synced = append(synced, el.ID)
		}
		b.scene.Replace(merged, synced...)
		b.machine.PruneSelection()
		b.history.Clear()
		glog.V(2).Infof("[Board] reconciled %d remote elements (local v%d, remote v%d)", len(remote), localVersion, remoteVersion)
	})
	return localVersion, remoteVersion
}

// Load turns the scene into a stored snapshot and starts a fresh history.
// Like an undo step, loaded elements outrank the copies already in the
// scene and elements missing from the snapshot are tombstoned, so the
// result reaches peers.
func (b *Board) Load(elements []state.Element) {
	restored := state.Restore(elements)
	entry := history.Entry{View: b.View(), Elements: make([]state.Element, 0, len(restored))}
	entry.View.Selected = nil
	for _, el := range restored {
		entry.Elements = append(entry.Elements, el.Stripped())
	}
	b.do(func() {
		b.machine.Blur()
		b.applyLocked(entry)
		b.history.Clear()
	})
}

// Prune drops tombstones for good. Only safe when no peer may still send an
// older copy of a deleted element.
func (b *Board) Prune() int {
	var n int
	b.do(func() { n = b.scene.Prune() })
	return n
}

// Syncable returns the elements to broadcast and marks them as synced.
func (b *Board) Syncable() []state.Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scene.Syncable()
}

// View returns the viewport and selection.
func (b *Board) View() state.View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.machine.View()
}

func (b *Board) DrawingVersion() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scene.DrawingVersion()
}

// Elements returns every element, tombstones included.
func (b *Board) Elements() []state.Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scene.Elements()
}

func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Elements:   b.scene.Visible(),
		View:       b.machine.View(),
		Overlay:    b.machine.Overlay(),
		Tool:       b.machine.Tool(),
		ToolLocked: b.machine.ToolLocked(),
		Style:      b.machine.Style(),
		State:      b.machine.State(),
		EditingID:  b.machine.EditingID(),
		CanUndo:    b.history.CanUndo(),
		CanRedo:    b.history.CanRedo(),
	}
}
