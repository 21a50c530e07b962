// Package history keeps snapshot-based undo/redo over (view, scene) pairs.
//
// Entries are recorded only while the recording flag is set. Interaction code
// calls ResumeRecording after every mutation, and the owner of the scene
// pushes one entry per flush, then calls SkipRecording. The manager never
// touches the scene itself.
package history

import (
	"encoding/json"
	"slices"

	"LocalBoard/internal/state"
)

// DefaultLimit bounds the number of undo entries kept.
const DefaultLimit = 100

// Entry is an immutable snapshot. Elements are stored in persistence form.
type Entry struct {
	View     state.View
	Elements []state.Element
}

func newEntry(view state.View, elements []state.Element) Entry {
	e := Entry{View: view, Elements: make([]state.Element, 0, len(elements))}
	e.View.Selected = slices.Clone(view.Selected)
	slices.Sort(e.View.Selected)
	for _, el := range elements {
		if el.IsDeleted {
			continue
		}
		e.Elements = append(e.Elements, el.Stripped())
	}
	return e
}

func (e Entry) equal(o Entry) bool {
	a, err := json.Marshal(e)
	if err != nil {
		return false
	}
	b, err := json.Marshal(o)
	if err != nil {
		return false
	}
	return string(a) == string(b)
}

func (e Entry) clone() Entry {
	out := Entry{View: e.View, Elements: make([]state.Element, len(e.Elements))}
	out.View.Selected = slices.Clone(e.View.Selected)
	for i, el := range e.Elements {
		out.Elements[i] = el.Clone()
	}
	return out
}

// Manager holds the undo and redo stacks. The top of the undo stack is the
// current state.
type Manager struct {
	entries   []Entry
	redo      []Entry
	recording bool
	limit     int
}

// New creates a manager keeping at most limit entries. limit <= 0 selects
// DefaultLimit.
func New(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{recording: true, limit: limit}
}

func (m *Manager) ResumeRecording()  { m.recording = true }
func (m *Manager) SkipRecording()    { m.recording = false }
func (m *Manager) IsRecording() bool { return m.recording }

// Push records a snapshot unless it equals the current top entry. A new
// entry invalidates the redo stack.
func (m *Manager) Push(view state.View, elements []state.Element) bool {
	e := newEntry(view, elements)
	if n := len(m.entries); n > 0 && m.entries[n-1].equal(e) {
		return false
	}
	m.entries = append(m.entries, e)
	if len(m.entries) > m.limit {
		m.entries = m.entries[len(m.entries)-m.limit:]
	}
	m.redo = nil
	return true
}

// Undo drops the current entry and returns the one to restore.
func (m *Manager) Undo() (Entry, bool) {
	if len(m.entries) < 2 {
		return Entry{}, false
	}
	current := m.entries[len(m.entries)-1]
	m.entries = m.entries[:len(m.entries)-1]
	m.redo = append(m.redo, current)
	return m.entries[len(m.entries)-1].clone(), true
}

// Redo re-applies the most recently undone entry.
func (m *Manager) Redo() (Entry, bool) {
	if len(m.redo) == 0 {
		return Entry{}, false
	}
	e := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.entries = append(m.entries, e)
	return e.clone(), true
}

func (m *Manager) CanUndo() bool { return len(m.entries) > 1 }
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }

// Clear forgets every entry. Used when a remote reconciliation replaces the
// scene; local undo is not rebased onto foreign merges.
func (m *Manager) Clear() {
	m.entries = nil
	m.redo = nil
	m.recording = true
}
