package interact

import (
	"math"

	"LocalBoard/internal/state"
)

// Handle names one of the eight resize handles by compass direction.
type Handle string

const (
	HandleN  Handle = "n"
	HandleS  Handle = "s"
	HandleE  Handle = "e"
	HandleW  Handle = "w"
	HandleNW Handle = "nw"
	HandleNE Handle = "ne"
	HandleSW Handle = "sw"
	HandleSE Handle = "se"
)

func (h Handle) north() bool  { return h == HandleN || h == HandleNW || h == HandleNE }
func (h Handle) south() bool  { return h == HandleS || h == HandleSW || h == HandleSE }
func (h Handle) west() bool   { return h == HandleW || h == HandleNW || h == HandleSW }
func (h Handle) east() bool   { return h == HandleE || h == HandleNE || h == HandleSE }
func (h Handle) corner() bool { return len(h) == 2 }

// HandlePoint is a handle and its scene position.
type HandlePoint struct {
	Handle Handle
	At     state.Point
}

// Handles returns the resize handles of el. Corners come first so they win
// over edges on small elements. A two-point line or arrow only exposes the
// two corners its endpoints sit on.
func Handles(el state.Element) []HandlePoint {
	if el.Type == state.TypeText {
		return nil
	}
	if isTwoPoint(el) {
		p0 := state.Point{X: el.X, Y: el.Y}
		p1 := state.Point{X: el.X + el.Points[1].X, Y: el.Y + el.Points[1].Y}
		h0, h1 := endpointHandles(el.Points[1])
		return []HandlePoint{{h0, p0}, {h1, p1}}
	}
	b := state.Bounds(el)
	cx, cy := b.X+b.Width/2, b.Y+b.Height/2
	return []HandlePoint{
		{HandleNW, state.Point{X: b.X, Y: b.Y}},
		{HandleNE, state.Point{X: b.MaxX(), Y: b.Y}},
		{HandleSW, state.Point{X: b.X, Y: b.MaxY()}},
		{HandleSE, state.Point{X: b.MaxX(), Y: b.MaxY()}},
		{HandleN, state.Point{X: cx, Y: b.Y}},
		{HandleS, state.Point{X: cx, Y: b.MaxY()}},
		{HandleW, state.Point{X: b.X, Y: cy}},
		{HandleE, state.Point{X: b.MaxX(), Y: cy}},
	}
}

func isTwoPoint(el state.Element) bool {
	return (el.Type == state.TypeLine || el.Type == state.TypeArrow) && len(el.Points) == 2
}

// endpointHandles names the corners occupied by the first point and by the
// second point, given the second point's offset from the first.
func endpointHandles(p1 state.Point) (Handle, Handle) {
	switch {
	case p1.X >= 0 && p1.Y >= 0:
		return HandleNW, HandleSE
	case p1.X >= 0:
		return HandleSW, HandleNE
	case p1.Y >= 0:
		return HandleNE, HandleSW
	default:
		return HandleSE, HandleNW
	}
}

// movesFirstPoint decides which endpoint a handle drags from the sign of the
// second point's offset. The other endpoint is the anchor.
func movesFirstPoint(h Handle, p1 state.Point) bool {
	if p1.X != 0 {
		if h.west() {
			return p1.X > 0
		}
		if h.east() {
			return p1.X < 0
		}
	}
	if h.north() {
		return p1.Y > 0
	}
	if h.south() {
		return p1.Y < 0
	}
	return false
}

// resizeAt returns a resize gesture when exactly one element is selected and
// p is over one of its handles.
func (m *Machine) resizeAt(p state.Point) (*resizingGesture, bool) {
	if len(m.selected) != 1 {
		return nil, false
	}
	id := m.Selected()[0]
	el, ok := m.scene.Get(id)
	if !ok || el.IsDeleted || id == m.editingID {
		return nil, false
	}
	half := m.cfg.HandleSize / 2 / m.zoom
	for _, hp := range Handles(el) {
		if math.Abs(p.X-hp.At.X) <= half && math.Abs(p.Y-hp.At.Y) <= half {
			return newResizing(el, hp.Handle, p), true
		}
	}
	return nil, false
}

type resizingGesture struct {
	id     string
	handle Handle
	start  state.Point
	orig   state.Element
	box    state.Rect
	ratio  float64
	// firstPoint is fixed for the whole gesture: true when the handle drags
	// the first vertex of a two-point line.
	firstPoint bool
}

func newResizing(el state.Element, h Handle, start state.Point) *resizingGesture {
	g := &resizingGesture{id: el.ID, handle: h, start: start, orig: el.Clone(), box: state.Bounds(el), ratio: 1}
	if g.box.Width > 0 && g.box.Height > 0 {
		g.ratio = g.box.Width / g.box.Height
	}
	if isTwoPoint(el) {
		g.firstPoint = movesFirstPoint(h, el.Points[1])
	}
	return g
}

func (g *resizingGesture) kind() StateKind    { return Resizing }
func (g *resizingGesture) excluded() []string { return []string{g.id} }

func (g *resizingGesture) move(m *Machine, ev PointerEvent) {
	p := m.toScene(ev.X, ev.Y)
	dx, dy := p.X-g.start.X, p.Y-g.start.Y
	lock := ev.Mods.Shift()

	next := g.orig.Clone()
	switch {
	case isTwoPoint(next):
		g.moveEndpoint(&next, dx, dy, lock)
	case next.Type.IsLinear():
		scalePoints(&next, g.box, resizeBox(g.box, g.handle, dx, dy, lock, g.ratio))
	default:
		r := resizeBox(g.box, g.handle, dx, dy, lock, g.ratio)
		next.X, next.Y, next.Width, next.Height = r.X, r.Y, r.Width, r.Height
	}

	cur, ok := m.scene.Get(g.id)
	if !ok {
		return
	}
	if sameGeometry(cur, next) {
		return
	}
	m.mutate(g.id, func(e *state.Element) {
		e.X, e.Y, e.Width, e.Height = next.X, next.Y, next.Width, next.Height
		e.Points = next.Points
	})
}

func (g *resizingGesture) finish(m *Machine, ev PointerEvent) {
	g.move(m, ev)
	if m.resizingID == g.id {
		m.resizingID = ""
	}
}

func (g *resizingGesture) moveEndpoint(el *state.Element, dx, dy float64, lock bool) {
	p0 := state.Point{X: g.orig.X, Y: g.orig.Y}
	p1 := state.Point{X: g.orig.X + g.orig.Points[1].X, Y: g.orig.Y + g.orig.Points[1].Y}
	anchor, moving := p0, p1
	if g.firstPoint {
		anchor, moving = p1, p0
	}
	vx, vy := moving.X+dx-anchor.X, moving.Y+dy-anchor.Y
	if lock {
		vx, vy = state.PerfectSize(el.Type, vx, vy, 1)
	}
	moved := state.Point{X: anchor.X + vx, Y: anchor.Y + vy}
	if g.firstPoint {
		el.X, el.Y = moved.X, moved.Y
		el.Points = []state.Point{{X: 0, Y: 0}, {X: anchor.X - moved.X, Y: anchor.Y - moved.Y}}
	} else {
		el.Points = []state.Point{{X: 0, Y: 0}, {X: moved.X - el.X, Y: moved.Y - el.Y}}
	}
	state.SyncExtent(el)
}

// resizeBox moves the edges named by the handle. With lock set the box keeps
// ratio (width/height), using the moving edge on the locked axis.
func resizeBox(b state.Rect, h Handle, dx, dy float64, lock bool, ratio float64) state.Rect {
	left, top, right, bottom := b.X, b.Y, b.MaxX(), b.MaxY()
	if h.west() {
		left += dx
	}
	if h.east() {
		right += dx
	}
	if h.north() {
		top += dy
	}
	if h.south() {
		bottom += dy
	}
	if lock {
		w, hh := right-left, bottom-top
		switch {
		case h.corner():
			_, nh := state.PerfectSize(state.TypeRectangle, w, hh, ratio)
			if h.north() {
				top = bottom - nh
			} else {
				bottom = top + nh
			}
		case h.north() || h.south():
			_, nw := state.PerfectSize(state.TypeRectangle, hh, w, 1/ratio)
			right = left + nw
		default:
			_, nh := state.PerfectSize(state.TypeRectangle, w, hh, ratio)
			bottom = top + nh
		}
	}
	return state.NormalizeRect(left, top, right-left, bottom-top)
}

// scalePoints maps the vertices of a linear element from box "from" into
// box "to". The first vertex stays the origin.
func scalePoints(el *state.Element, from, to state.Rect) {
	sx, sy := 1.0, 1.0
	if from.Width > 0 {
		sx = to.Width / from.Width
	}
	if from.Height > 0 {
		sy = to.Height / from.Height
	}
	abs := make([]state.Point, len(el.Points))
	for i, v := range el.Points {
		ax, ay := el.X+v.X, el.Y+v.Y
		abs[i] = state.Point{X: to.X + (ax-from.X)*sx, Y: to.Y + (ay-from.Y)*sy}
	}
	el.X, el.Y = abs[0].X, abs[0].Y
	for i := range abs {
		el.Points[i] = state.Point{X: abs[i].X - el.X, Y: abs[i].Y - el.Y}
	}
	state.SyncExtent(el)
}

func sameGeometry(a, b state.Element) bool {
	if a.X != b.X || a.Y != b.Y || a.Width != b.Width || a.Height != b.Height || len(a.Points) != len(b.Points) {
		return false
	}
	for i := range a.Points {
		if a.Points[i] != b.Points[i] {
			return false
		}
	}
	return true
}
