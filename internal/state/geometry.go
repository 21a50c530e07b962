package state

import "math"

// Rect is an axis-aligned area in scene coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (r Rect) MaxX() float64 { return r.X + r.Width }
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.MaxX() && p.Y >= r.Y && p.Y <= r.MaxY()
}

// ContainsRect reports whether o lies fully inside r.
func (r Rect) ContainsRect(o Rect) bool {
	return o.X >= r.X && o.MaxX() <= r.MaxX() && o.Y >= r.Y && o.MaxY() <= r.MaxY()
}

// Overlaps reports whether r and o share any area.
func (r Rect) Overlaps(o Rect) bool {
	return !(r.MaxX() < o.X || o.MaxX() < r.X || r.MaxY() < o.Y || o.MaxY() < r.Y)
}

// Union returns the smallest rect covering both r and o.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.MaxX(), o.MaxX())
	maxY := math.Max(r.MaxY(), o.MaxY())
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// NormalizeRect builds a rect from an origin and a possibly negative extent.
func NormalizeRect(x, y, w, h float64) Rect {
	if w < 0 {
		x, w = x+w, -w
	}
	if h < 0 {
		y, h = y+h, -h
	}
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// PointsExtent returns the bounding box of pts relative to their origin.
func PointsExtent(pts []Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Bounds returns the scene-space bounding box of el.
func Bounds(el Element) Rect {
	if el.Type.IsLinear() && len(el.Points) > 0 {
		ext := PointsExtent(el.Points)
		ext.X += el.X
		ext.Y += el.Y
		return ext
	}
	return NormalizeRect(el.X, el.Y, el.Width, el.Height)
}

// SceneBounds returns the union of the bounds of every visible element.
func SceneBounds(elements []Element) (Rect, bool) {
	var out Rect
	found := false
	for _, el := range elements {
		if el.IsDeleted {
			continue
		}
		b := Bounds(el)
		if !found {
			out, found = b, true
			continue
		}
		out = out.Union(b)
	}
	return out, found
}

// SyncExtent recomputes Width/Height of a linear element from its points.
func SyncExtent(el *Element) {
	if !el.Type.IsLinear() {
		return
	}
	ext := PointsExtent(el.Points)
	el.Width = ext.Width
	el.Height = ext.Height
}

const invisibleEpsilon = 1e-3

// IsInvisiblySmall reports whether el has no visible extent: a linear element
// with fewer than two vertices, or a box of (near) zero size.
func IsInvisiblySmall(el Element) bool {
	switch {
	case el.Type.IsLinear():
		return len(el.Points) < 2
	case el.Type == TypeText:
		return el.Text == ""
	}
	return math.Abs(el.Width) < invisibleEpsilon && math.Abs(el.Height) < invisibleEpsilon
}

// PerfectSize constrains an unconstrained extent. Line and arrow extents snap
// to the nearest 45° direction. Other shapes keep width and force height to
// |width| / ratio with the sign of the original height; ratio 1 gives a
// square or circle.
func PerfectSize(t Type, width, height, ratio float64) (float64, float64) {
	absW, absH := math.Abs(width), math.Abs(height)
	if t == TypeLine || t == TypeArrow {
		lock := math.Round(math.Atan(absH/math.Max(absW, 1e-12))/(math.Pi/4)) * (math.Pi / 4)
		switch {
		case lock == 0:
			height = 0
		case lock == math.Pi/2:
			width = 0
		default:
			height = absW * math.Tan(lock) * sign(height)
		}
		return width, height
	}
	if t == TypeDraw || t == TypeText {
		return width, height
	}
	if ratio <= 0 || math.IsInf(ratio, 0) || math.IsNaN(ratio) {
		ratio = 1
	}
	return width, absW / ratio * sign(height)
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// Distance returns the euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func distanceToSegment(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return Distance(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return Distance(p, Point{X: a.X + t*dx, Y: a.Y + t*dy})
}

func nearPolyline(p Point, pts []Point, tolerance float64) bool {
	for i := 1; i < len(pts); i++ {
		if distanceToSegment(p, pts[i-1], pts[i]) <= tolerance {
			return true
		}
	}
	return false
}

// HitTest reports whether the scene point p touches el. Filled shapes and
// text are hit anywhere inside; unfilled shapes and strokes only near their
// outline, within tolerance.
func HitTest(el Element, p Point, tolerance float64) bool {
	if el.IsDeleted {
		return false
	}
	b := Bounds(el)
	filled := el.BackgroundColor != "" && el.BackgroundColor != Transparent
	switch el.Type {
	case TypeText:
		return b.Contains(p)
	case TypeRectangle, TypeSelection:
		if filled {
			return b.Contains(p)
		}
		corners := []Point{{b.X, b.Y}, {b.MaxX(), b.Y}, {b.MaxX(), b.MaxY()}, {b.X, b.MaxY()}, {b.X, b.Y}}
		return nearPolyline(p, corners, tolerance)
	case TypeDiamond:
		cx, cy := b.X+b.Width/2, b.Y+b.Height/2
		corners := []Point{{cx, b.Y}, {b.MaxX(), cy}, {cx, b.MaxY()}, {b.X, cy}, {cx, b.Y}}
		if filled && b.Width > 0 && b.Height > 0 {
			if math.Abs(p.X-cx)/(b.Width/2)+math.Abs(p.Y-cy)/(b.Height/2) <= 1 {
				return true
			}
		}
		return nearPolyline(p, corners, tolerance)
	case TypeEllipse:
		a, bb := b.Width/2, b.Height/2
		cx, cy := b.X+a, b.Y+bb
		outer := ellipseValue(p, cx, cy, a+tolerance, bb+tolerance)
		if filled {
			return outer <= 1
		}
		if a <= tolerance || bb <= tolerance {
			return outer <= 1
		}
		return outer <= 1 && ellipseValue(p, cx, cy, a-tolerance, bb-tolerance) >= 1
	case TypeLine, TypeArrow, TypeDraw:
		abs := make([]Point, len(el.Points))
		for i, v := range el.Points {
			abs[i] = Point{X: el.X + v.X, Y: el.Y + v.Y}
		}
		if len(abs) == 1 {
			return Distance(p, abs[0]) <= tolerance
		}
		return nearPolyline(p, abs, tolerance)
	}
	return false
}

func ellipseValue(p Point, cx, cy, a, b float64) float64 {
	dx, dy := (p.X-cx)/a, (p.Y-cy)/b
	return dx*dx + dy*dy
}

// ElementAt returns the top-most visible element hit by p.
func ElementAt(elements []Element, p Point, tolerance float64) (Element, bool) {
	for i := len(elements) - 1; i >= 0; i-- {
		if HitTest(elements[i], p, tolerance) {
			return elements[i], true
		}
	}
	return Element{}, false
}
