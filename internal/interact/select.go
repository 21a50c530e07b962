package interact

import (
	"maps"

	"LocalBoard/internal/state"
)

func (m *Machine) selectionDown(p state.Point, ev PointerEvent) {
	if g, ok := m.resizeAt(p); ok {
		m.active = g
		m.resizingID = g.id
		return
	}

	tol := m.cfg.HitTolerance / m.zoom
	hit, ok := state.ElementAt(m.scene.Visible(), p, tol)
	if !ok {
		base := map[string]struct{}{}
		if ev.Mods.Shift() {
			base = maps.Clone(m.selected)
		} else {
			m.clearSelection()
		}
		m.active = &selectionBox{origin: p, current: p, base: base}
		return
	}
	if hit.ID == m.editingID {
		return
	}

	switch {
	case ev.Mods.Shift():
		if m.IsSelected(hit.ID) {
			delete(m.selected, hit.ID)
			return
		}
		m.selected[hit.ID] = struct{}{}
	case !m.IsSelected(hit.ID):
		m.Select(hit.ID)
	}

	if ev.Mods.Alt() {
		m.duplicateSelection()
	}
	m.active = newDragging(m, p)
}

// duplicateSelection leaves a clone of every selected element in its slot
// and lifts the originals to the top of the stack, so the originals are the
// ones that follow the pointer.
func (m *Machine) duplicateSelection() {
	elements := m.scene.Elements()
	next := make([]state.Element, 0, len(elements)+len(m.selected))
	var lifted []state.Element
	for _, el := range elements {
		if !m.IsSelected(el.ID) || el.IsDeleted {
			next = append(next, el)
			continue
		}
		clone := el.Clone()
		clone.ID = state.NewID()
		clone.Version = 1
		clone.VersionNonce = state.NewNonce()
		clone.Seed = state.NewSeed()
		next = append(next, clone)
		lifted = append(lifted, el)
	}
	if len(lifted) == 0 {
		return
	}
	m.scene.Replace(append(next, lifted...))
	m.touch()
}

// draggingGesture translates every selected element by the cumulative
// pointer delta since pointer-down.
type draggingGesture struct {
	start   state.Point
	ids     []string
	origins map[string]state.Point
}

func newDragging(m *Machine, start state.Point) *draggingGesture {
	g := &draggingGesture{start: start, origins: make(map[string]state.Point)}
	for _, id := range m.Selected() {
		el, ok := m.scene.Get(id)
		if !ok || el.IsDeleted {
			continue
		}
		g.ids = append(g.ids, id)
		g.origins[id] = state.Point{X: el.X, Y: el.Y}
	}
	return g
}

func (g *draggingGesture) kind() StateKind    { return Dragging }
func (g *draggingGesture) excluded() []string { return g.ids }

func (g *draggingGesture) move(m *Machine, ev PointerEvent) {
	p := m.toScene(ev.X, ev.Y)
	dx, dy := p.X-g.start.X, p.Y-g.start.Y
	for _, id := range g.ids {
		o := g.origins[id]
		x, y := o.X+dx, o.Y+dy
		if el, ok := m.scene.Get(id); ok && el.X == x && el.Y == y {
			continue
		}
		m.mutate(id, func(e *state.Element) { e.X, e.Y = x, y })
	}
}

func (g *draggingGesture) finish(m *Machine, ev PointerEvent) {
	g.move(m, ev)
}

// selectionBox is the rubber-band selection. It lives only in the machine
// and is never stored or synced.
type selectionBox struct {
	origin  state.Point
	current state.Point
	base    map[string]struct{}
}

func (g *selectionBox) kind() StateKind    { return Selecting }
func (g *selectionBox) excluded() []string { return nil }

func (g *selectionBox) rect() state.Rect {
	return state.NormalizeRect(g.origin.X, g.origin.Y, g.current.X-g.origin.X, g.current.Y-g.origin.Y)
}

func (g *selectionBox) move(m *Machine, ev PointerEvent) {
	g.current = m.toScene(ev.X, ev.Y)
	r := g.rect()
	next := maps.Clone(g.base)
	if r.Width > 0 || r.Height > 0 {
		for _, el := range m.scene.Visible() {
			if r.ContainsRect(state.Bounds(el)) {
				next[el.ID] = struct{}{}
			}
		}
	}
	m.selected = next
}

func (g *selectionBox) finish(m *Machine, ev PointerEvent) {
	g.move(m, ev)
}
