package interact

import (
	"github.com/golang/glog"

	"LocalBoard/internal/state"
)

// Key names understood by KeyDown. Letters are passed lower-case.
const (
	KeyEscape     = "Escape"
	KeyEnter      = "Enter"
	KeySpace      = "Space"
	KeyDelete     = "Delete"
	KeyBackspace  = "Backspace"
	KeyArrowLeft  = "Left"
	KeyArrowRight = "Right"
	KeyArrowUp    = "Up"
	KeyArrowDown  = "Down"
)

type KeyEvent struct {
	Key  string
	Mods Modifiers
}

var toolKeys = map[string]Tool{
	"v": ToolSelection,
	"r": ToolRectangle,
	"d": ToolDiamond,
	"e": ToolEllipse,
	"a": ToolArrow,
	"l": ToolLine,
	"x": ToolDraw,
	"t": ToolText,
}

// KeyDown handles a key press and reports whether it was consumed. Keys are
// ignored while a text element is being typed, except Escape.
func (m *Machine) KeyDown(ev KeyEvent) bool {
	if m.editingID != "" && m.multi == nil && ev.Key != KeyEscape {
		return false
	}
	switch ev.Key {
	case KeyEscape:
		switch {
		case m.multi != nil:
			m.closeMultiPoint()
		case m.editingID != "":
			m.finishTextEdit()
		default:
			m.clearSelection()
		}
		return true
	case KeyEnter:
		if m.multi == nil {
			return false
		}
		m.closeMultiPoint()
		return true
	case KeySpace:
		m.spaceHeld = true
		return true
	case KeyDelete, KeyBackspace:
		return m.deleteSelection()
	case KeyArrowLeft, KeyArrowRight, KeyArrowUp, KeyArrowDown:
		return m.nudge(ev)
	}

	if ev.Mods.Ctrl() {
		if ev.Key == "a" {
			m.SelectAll()
			return true
		}
		return false
	}
	if ev.Key == "q" {
		m.lockTool = !m.lockTool
		return true
	}
	if t, ok := toolKeys[ev.Key]; ok {
		m.SetTool(t)
		return true
	}
	return false
}

// KeyUp handles a key release.
func (m *Machine) KeyUp(ev KeyEvent) {
	if ev.Key == KeySpace {
		m.spaceHeld = false
	}
}

func (m *Machine) nudge(ev KeyEvent) bool {
	if len(m.selected) == 0 || m.active != nil {
		return false
	}
	step := m.cfg.TranslateStep
	if ev.Mods.Shift() {
		step = m.cfg.ShiftTranslateStep
	}
	var dx, dy float64
	switch ev.Key {
	case KeyArrowLeft:
		dx = -step
	case KeyArrowRight:
		dx = step
	case KeyArrowUp:
		dy = -step
	case KeyArrowDown:
		dy = step
	}
	for _, id := range m.Selected() {
		m.mutate(id, func(e *state.Element) {
			e.X += dx
			e.Y += dy
		})
	}
	return true
}

func (m *Machine) deleteSelection() bool {
	if len(m.selected) == 0 || m.active != nil {
		return false
	}
	for _, id := range m.Selected() {
		if err := m.scene.Remove(id); err != nil {
			glog.Warningf("[Interact] delete %s: %v", id, err)
		}
	}
	m.touch()
	m.clearSelection()
	return true
}

// Overlay is the machine-local state a renderer draws on top of the scene.
// None of it is stored or synced.
type Overlay struct {
	SelectionBox *state.Rect
	// Preview is the rubber-band segment of an open multi-point shape, from
	// PreviewFrom to Preview, in scene coordinates.
	Preview     *state.Point
	PreviewFrom state.Point
	Handles     []HandlePoint
	Selected    []state.Rect
	Scrollbars  []Scrollbar
}

// Overlay snapshots the transient interaction state.
func (m *Machine) Overlay() Overlay {
	var o Overlay
	if box, ok := m.active.(*selectionBox); ok {
		r := box.rect()
		o.SelectionBox = &r
	}
	if m.multi != nil && m.multi.hover != nil {
		if el, ok := m.scene.Get(m.multi.id); ok && len(el.Points) > 0 {
			last := el.Points[len(el.Points)-1]
			p := *m.multi.hover
			o.Preview = &p
			o.PreviewFrom = state.Point{X: el.X + last.X, Y: el.Y + last.Y}
		}
	}
	ids := m.Selected()
	for _, id := range ids {
		if el, ok := m.scene.Get(id); ok && !el.IsDeleted {
			o.Selected = append(o.Selected, state.Bounds(el))
		}
	}
	if len(ids) == 1 && m.active == nil {
		if el, ok := m.scene.Get(ids[0]); ok && !el.IsDeleted {
			o.Handles = Handles(el)
		}
	}
	o.Scrollbars = m.Scrollbars()
	return o
}
