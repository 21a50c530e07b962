package interact

import "LocalBoard/internal/state"

// PointerDown starts a gesture. A gesture still in flight from a pointer-up
// that never arrived is finished first. A second simultaneous pointer turns
// the interaction into a pinch.
//
// With no gesture active, no other pointer can be part of one, so pointers
// still tracked from a lost pointer-up are forgotten.
func (m *Machine) PointerDown(ev PointerEvent) {
	if m.active == nil {
		m.pointers = make(map[int]state.Point)
	}
	m.pointers[ev.ID] = state.Point{X: ev.X, Y: ev.Y}
	m.cursor = m.toScene(ev.X, ev.Y)

	if len(m.pointers) == 2 {
		m.teardown()
		m.active = newPinch(m)
		return
	}
	if len(m.pointers) > 2 {
		return
	}

	m.teardown()
	m.gesturePointer = ev.ID
	m.lastEvent = ev

	if ev.Button == ButtonMiddle || (ev.Button == ButtonPrimary && m.spaceHeld) {
		m.active = &panGesture{lastX: ev.X, lastY: ev.Y}
		return
	}
	if ev.Button != ButtonPrimary {
		return
	}
	if g, ok := m.scrollbarDragAt(ev.X, ev.Y); ok {
		m.active = g
		return
	}

	p := m.toScene(ev.X, ev.Y)
	if m.multi != nil {
		m.multiPointDown(p)
		return
	}
	m.finishTextEdit()

	switch m.tool {
	case ToolSelection:
		m.selectionDown(p, ev)
	case ToolText:
		m.textDown(p)
	default:
		m.createDown(p, ev)
	}
}

// PointerMove advances the active gesture. Moves of pointers that did not
// start the gesture only matter to a pinch.
func (m *Machine) PointerMove(ev PointerEvent) {
	if _, down := m.pointers[ev.ID]; down {
		m.pointers[ev.ID] = state.Point{X: ev.X, Y: ev.Y}
	}
	m.cursor = m.toScene(ev.X, ev.Y)

	if p, ok := m.active.(*pinchGesture); ok {
		p.move(m, ev)
		return
	}
	if m.active != nil && ev.ID == m.gesturePointer {
		m.lastEvent = ev
		m.active.move(m, ev)
		return
	}
	if m.multi != nil {
		m.multi.preview(m, m.toScene(ev.X, ev.Y))
	}
}

// PointerUp finishes the gesture started by the same pointer. An up from a
// pointer that is not tracked while a single-pointer gesture runs stands in
// for the gesture pointer's lost up.
func (m *Machine) PointerUp(ev PointerEvent) {
	if _, down := m.pointers[ev.ID]; !down && m.orphanedGesture() {
		ev.ID = m.gesturePointer
	}
	delete(m.pointers, ev.ID)
	m.cursor = m.toScene(ev.X, ev.Y)

	if _, ok := m.active.(*pinchGesture); ok {
		if len(m.pointers) < 2 {
			m.active = nil
			m.pointers = make(map[int]state.Point)
		}
		return
	}
	if m.active != nil && ev.ID == m.gesturePointer {
		g := m.active
		m.active = nil
		m.lastEvent = ev
		g.finish(m, ev)
		return
	}
	if m.multi != nil && m.multi.pressed {
		m.multi.commit(m, m.toScene(ev.X, ev.Y))
	}
}

func (m *Machine) orphanedGesture() bool {
	if m.active == nil || len(m.pointers) != 1 {
		return false
	}
	if _, ok := m.active.(*pinchGesture); ok {
		return false
	}
	_, ok := m.pointers[m.gesturePointer]
	return ok
}

// DoubleClick closes an open multi-point shape.
func (m *Machine) DoubleClick(ev PointerEvent) {
	m.cursor = m.toScene(ev.X, ev.Y)
	if m.multi != nil {
		m.closeMultiPoint()
	}
}

// Blur tears down the in-flight gesture when the window loses focus, since
// the matching pointer-up will never be delivered.
func (m *Machine) Blur() {
	m.teardown()
	m.spaceHeld = false
	m.pointers = make(map[int]state.Point)
	if m.multi != nil {
		m.multi.pressed = false
	}
}

// teardown finishes any active gesture at the last position seen.
func (m *Machine) teardown() {
	if m.active == nil {
		return
	}
	g := m.active
	m.active = nil
	if _, ok := g.(*pinchGesture); ok {
		return
	}
	g.finish(m, m.lastEvent)
}

// InFlight reports whether a gesture is active.
func (m *Machine) InFlight() bool { return m.active != nil }
