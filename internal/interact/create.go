package interact

import (
	"github.com/golang/glog"

	"LocalBoard/internal/state"
)

// drawingGesture sizes a freshly created element from the drag delta.
type drawingGesture struct {
	id      string
	typ     state.Type
	origin  state.Point
	dragged bool
}

func (m *Machine) createDown(p state.Point, ev PointerEvent) {
	el := m.newElement(m.tool.ElementType(), p)
	if err := m.scene.Append(el); err != nil {
		glog.Errorf("[Interact] create %s: %v", el.Type, err)
		return
	}
	m.touch()
	m.draggingID = el.ID
	m.clearSelection()
	m.active = &drawingGesture{id: el.ID, typ: el.Type, origin: p}
}

func (g *drawingGesture) kind() StateKind    { return Drawing }
func (g *drawingGesture) excluded() []string { return []string{g.id} }

func (g *drawingGesture) move(m *Machine, ev PointerEvent) {
	p := m.toScene(ev.X, ev.Y)
	w, h := p.X-g.origin.X, p.Y-g.origin.Y

	switch g.typ {
	case state.TypeDraw:
		el, ok := m.scene.Get(g.id)
		if !ok {
			return
		}
		next := state.Point{X: w, Y: h}
		if last := el.Points[len(el.Points)-1]; last == next {
			return
		}
		m.mutate(g.id, func(e *state.Element) {
			e.Points = append(e.Points, next)
			state.SyncExtent(e)
		})
	case state.TypeLine, state.TypeArrow:
		if !g.dragged && state.Distance(p, g.origin)*m.zoom <= m.cfg.DragThreshold {
			return
		}
		g.dragged = true
		if ev.Mods.Shift() {
			w, h = state.PerfectSize(g.typ, w, h, 1)
		}
		m.mutate(g.id, func(e *state.Element) {
			e.Points = []state.Point{{X: 0, Y: 0}, {X: w, Y: h}}
			state.SyncExtent(e)
		})
	default:
		if ev.Mods.Shift() {
			w, h = state.PerfectSize(g.typ, w, h, 1)
		}
		r := state.NormalizeRect(g.origin.X, g.origin.Y, w, h)
		el, ok := m.scene.Get(g.id)
		if ok && el.X == r.X && el.Y == r.Y && el.Width == r.Width && el.Height == r.Height {
			return
		}
		m.mutate(g.id, func(e *state.Element) {
			e.X, e.Y, e.Width, e.Height = r.X, r.Y, r.Width, r.Height
		})
	}
}

func (g *drawingGesture) finish(m *Machine, ev PointerEvent) {
	g.move(m, ev)
	m.draggingID = ""

	if (g.typ == state.TypeLine || g.typ == state.TypeArrow) && !g.dragged {
		// A click without a drag starts a shape built one vertex per click.
		m.multi = &multiPoint{id: g.id}
		m.editingID = g.id
		return
	}

	el, ok := m.scene.Get(g.id)
	if !ok {
		return
	}
	if state.IsInvisiblySmall(el) {
		if err := m.scene.Remove(g.id); err != nil {
			glog.Warningf("[Interact] discard %s: %v", g.id, err)
		}
		m.touch()
		return
	}
	m.afterCreate(g.id)
}

// multiPoint is an open line or arrow accumulating click-committed vertices.
// The preview vertex follows the pointer and never enters the scene.
type multiPoint struct {
	id      string
	pressed bool
	hover   *state.Point
}

func (mp *multiPoint) preview(m *Machine, p state.Point) {
	mp.hover = &p
}

func (m *Machine) multiPointDown(p state.Point) {
	el, ok := m.scene.Get(m.multi.id)
	if !ok || el.IsDeleted {
		m.multi = nil
		m.editingID = ""
		return
	}
	last := el.Points[len(el.Points)-1]
	lastAbs := state.Point{X: el.X + last.X, Y: el.Y + last.Y}
	if state.Distance(p, lastAbs)*m.zoom <= m.cfg.LineConfirmThreshold {
		m.closeMultiPoint()
		return
	}
	m.multi.pressed = true
}

func (mp *multiPoint) commit(m *Machine, p state.Point) {
	mp.pressed = false
	mp.hover = nil
	m.mutate(mp.id, func(e *state.Element) {
		e.Points = append(e.Points, state.Point{X: p.X - e.X, Y: p.Y - e.Y})
		state.SyncExtent(e)
	})
}

// closeMultiPoint ends an open multi-point shape. A shape with fewer than
// two vertices is discarded.
func (m *Machine) closeMultiPoint() {
	if m.multi == nil {
		return
	}
	id := m.multi.id
	m.multi = nil
	if m.editingID == id {
		m.editingID = ""
	}
	el, ok := m.scene.Get(id)
	if !ok || el.IsDeleted {
		return
	}
	if state.IsInvisiblySmall(el) {
		if err := m.scene.Remove(id); err != nil {
			glog.Warningf("[Interact] discard %s: %v", id, err)
		}
		m.touch()
		return
	}
	m.afterCreate(id)
}

// MultiPointID returns the id of the open multi-point shape, if any.
func (m *Machine) MultiPointID() (string, bool) {
	if m.multi == nil {
		return "", false
	}
	return m.multi.id, true
}

func (m *Machine) textDown(p state.Point) {
	tol := m.cfg.HitTolerance / m.zoom
	if hit, ok := state.ElementAt(m.scene.Visible(), p, tol); ok && hit.Type == state.TypeText {
		m.editingID = hit.ID
		m.Select(hit.ID)
		return
	}
	el := m.newElement(state.TypeText, p)
	if err := m.scene.Append(el); err != nil {
		glog.Errorf("[Interact] create text: %v", err)
		return
	}
	m.editingID = el.ID
	m.clearSelection()
}

// CommitText stores the typed text in the element being edited and ends the
// edit. Empty text removes the element.
func (m *Machine) CommitText(text string) {
	id := m.editingID
	if id == "" {
		return
	}
	el, ok := m.scene.Get(id)
	if !ok || el.Type != state.TypeText {
		return
	}
	m.editingID = ""
	if text == "" {
		if err := m.scene.Remove(id); err != nil {
			glog.Warningf("[Interact] remove empty text %s: %v", id, err)
		}
		m.touch()
		m.clearSelection()
		return
	}
	w, h := m.measureText(text, el.Font)
	if text != el.Text || w != el.Width || h != el.Height {
		m.mutate(id, func(e *state.Element) {
			e.Text = text
			e.Width, e.Height = w, h
		})
	}
	m.afterCreate(id)
}

// finishTextEdit ends a text edit keeping whatever text the element holds.
func (m *Machine) finishTextEdit() {
	if m.editingID == "" || m.multi != nil {
		return
	}
	el, ok := m.scene.Get(m.editingID)
	if !ok || el.Type != state.TypeText {
		m.editingID = ""
		return
	}
	m.CommitText(el.Text)
}
