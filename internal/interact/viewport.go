package interact

import (
	"math"

	"LocalBoard/internal/state"
)

// panGesture scrolls the view by the pointer delta.
type panGesture struct {
	lastX, lastY float64
}

func (g *panGesture) kind() StateKind    { return PanningViewport }
func (g *panGesture) excluded() []string { return nil }

func (g *panGesture) move(m *Machine, ev PointerEvent) {
	m.scrollX += (ev.X - g.lastX) / m.zoom
	m.scrollY += (ev.Y - g.lastY) / m.zoom
	g.lastX, g.lastY = ev.X, ev.Y
}

func (g *panGesture) finish(m *Machine, ev PointerEvent) { g.move(m, ev) }

// pinchGesture zooms around the midpoint of two pointers. Its values live
// for one multi-touch gesture only.
type pinchGesture struct {
	center   state.Point
	distance float64
	zoom     float64
}

func newPinch(m *Machine) *pinchGesture {
	a, b := m.twoPointers()
	return &pinchGesture{
		center:   state.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2},
		distance: state.Distance(a, b),
		zoom:     m.zoom,
	}
}

func (m *Machine) twoPointers() (state.Point, state.Point) {
	var pts []state.Point
	for _, p := range m.pointers {
		pts = append(pts, p)
	}
	if len(pts) < 2 {
		return state.Point{}, state.Point{}
	}
	return pts[0], pts[1]
}

func (g *pinchGesture) kind() StateKind    { return PanningViewport }
func (g *pinchGesture) excluded() []string { return nil }

func (g *pinchGesture) move(m *Machine, _ PointerEvent) {
	if len(m.pointers) != 2 {
		return
	}
	a, b := m.twoPointers()
	center := state.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
	m.scrollX += (center.X - g.center.X) / m.zoom
	m.scrollY += (center.Y - g.center.Y) / m.zoom
	g.center = center
	if g.distance > 0 {
		m.zoomAt(g.zoom*state.Distance(a, b)/g.distance, center.X, center.Y)
	}
}

func (g *pinchGesture) finish(*Machine, PointerEvent) {}

// zoomAt sets the zoom keeping the scene point under (vx, vy) in place.
func (m *Machine) zoomAt(z, vx, vy float64) {
	z = m.clampZoom(z)
	p := m.toScene(vx, vy)
	m.zoom = z
	m.scrollX = vx/z - p.X
	m.scrollY = vy/z - p.Y
}

// Wheel scrolls the view, or zooms around the pointer with ctrl held. Shift
// turns vertical wheel motion into horizontal scrolling.
func (m *Machine) Wheel(ev WheelEvent) {
	if ev.Mods.Ctrl() {
		step := -m.cfg.ZoomStep
		if ev.DY > 0 {
			step = m.cfg.ZoomStep
		}
		if ev.DY == 0 {
			return
		}
		m.zoomAt(m.zoom+step, ev.X, ev.Y)
		return
	}
	dx, dy := ev.DX, ev.DY
	if ev.Mods.Shift() && dx == 0 {
		dx, dy = dy, 0
	}
	m.scrollX += dx / m.zoom
	m.scrollY += dy / m.zoom
}

// SetZoom zooms around the viewport center.
func (m *Machine) SetZoom(z float64) {
	m.zoomAt(z, m.width/2, m.height/2)
}

type Axis int

const (
	AxisHorizontal Axis = iota
	AxisVertical
)

// Scrollbar is a scrollbar thumb in viewport coordinates.
type Scrollbar struct {
	Axis                Axis
	X, Y, Width, Height float64
}

func (s Scrollbar) contains(x, y float64) bool {
	return x >= s.X && x <= s.X+s.Width && y >= s.Y && y <= s.Y+s.Height
}

// Scrollbars returns the thumbs for each axis on which the scene extends
// past the viewport.
func (m *Machine) Scrollbars() []Scrollbar {
	if m.width <= 0 || m.height <= 0 {
		return nil
	}
	view := m.visibleRect()
	content, ok := state.SceneBounds(m.scene.Visible())
	if !ok {
		return nil
	}
	total := content.Union(view)
	bw := m.cfg.ScrollbarWidth
	var out []Scrollbar
	if total.Width > view.Width+1e-9 {
		out = append(out, Scrollbar{
			Axis:   AxisHorizontal,
			X:      (view.X - total.X) / total.Width * m.width,
			Y:      m.height - bw,
			Width:  view.Width / total.Width * m.width,
			Height: bw,
		})
	}
	if total.Height > view.Height+1e-9 {
		out = append(out, Scrollbar{
			Axis:   AxisVertical,
			X:      m.width - bw,
			Y:      (view.Y - total.Y) / total.Height * m.height,
			Width:  bw,
			Height: view.Height / total.Height * m.height,
		})
	}
	return out
}

func (m *Machine) visibleRect() state.Rect {
	return state.Rect{X: -m.scrollX, Y: -m.scrollY, Width: m.width / m.zoom, Height: m.height / m.zoom}
}

// scrollbarGesture drags one scrollbar thumb. One viewport pixel of thumb
// travel moves the view by the content/track ratio.
type scrollbarGesture struct {
	axis  Axis
	last  float64
	scale float64
}

func (m *Machine) scrollbarDragAt(x, y float64) (gesture, bool) {
	for _, sb := range m.Scrollbars() {
		if !sb.contains(x, y) {
			continue
		}
		view := m.visibleRect()
		content, _ := state.SceneBounds(m.scene.Visible())
		total := content.Union(view)
		g := &scrollbarGesture{axis: sb.Axis}
		if sb.Axis == AxisHorizontal {
			g.last, g.scale = x, total.Width/m.width
		} else {
			g.last, g.scale = y, total.Height/m.height
		}
		return g, true
	}
	return nil, false
}

func (g *scrollbarGesture) kind() StateKind    { return ScrollbarDrag }
func (g *scrollbarGesture) excluded() []string { return nil }

func (g *scrollbarGesture) move(m *Machine, ev PointerEvent) {
	pos := ev.Y
	if g.axis == AxisHorizontal {
		pos = ev.X
	}
	delta := (pos - g.last) * g.scale
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return
	}
	if g.axis == AxisHorizontal {
		m.scrollX -= delta
	} else {
		m.scrollY -= delta
	}
	g.last = pos
}

func (g *scrollbarGesture) finish(m *Machine, ev PointerEvent) { g.move(m, ev) }
