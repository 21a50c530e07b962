package ui

import (
	"hash/fnv"
	"image/color"
	"math"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"LocalBoard/internal/board"
	"LocalBoard/internal/collab"
	"LocalBoard/internal/interact"
	"LocalBoard/internal/state"
)

var (
	paperColor     = color.NRGBA{R: 245, G: 246, B: 248, A: 255}
	gridColor      = color.NRGBA{R: 226, G: 229, B: 234, A: 255}
	selectionColor = color.NRGBA{R: 105, G: 101, B: 219, A: 255}
	bandFill       = color.NRGBA{R: 105, G: 101, B: 219, A: 24}
	scrollbarColor = color.NRGBA{A: 80}
)

var peerColors = []color.NRGBA{
	{R: 230, G: 73, B: 128, A: 255},
	{R: 18, G: 184, B: 134, A: 255},
	{R: 250, G: 176, B: 5, A: 255},
	{R: 34, G: 139, B: 230, A: 255},
	{R: 190, G: 75, B: 219, A: 255},
}

const (
	gridSize   = 50.0
	handleSize = 8
	arrowHead  = 12.0
)

type viewport struct {
	scrollX, scrollY, zoom float64
}

func newViewport(v state.View) viewport {
	z := v.Zoom
	if z <= 0 {
		z = 1
	}
	return viewport{scrollX: v.ScrollX, scrollY: v.ScrollY, zoom: z}
}

func (v viewport) pos(x, y float64) fyne.Position {
	return fyne.NewPos(float32((x+v.scrollX)*v.zoom), float32((y+v.scrollY)*v.zoom))
}

// parseColor reads #rgb and #rrggbb with opacity in percent. ok is false for
// "transparent" and unparseable input.
func parseColor(s string, opacity float64) (color.NRGBA, bool) {
	hex, found := strings.CutPrefix(s, "#")
	if !found {
		return color.NRGBA{}, false
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	a := math.Max(0, math.Min(opacity, 100)) / 100 * 255
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: uint8(math.Round(a))}, true
}

// peerColor gives each collaborator a stable color.
func peerColor(socketID string) color.NRGBA {
	h := fnv.New32a()
	h.Write([]byte(socketID))
	return peerColors[h.Sum32()%uint32(len(peerColors))]
}

func line(c color.Color, width float32, from, to fyne.Position) *canvas.Line {
	l := canvas.NewLine(c)
	l.StrokeWidth = width
	l.Position1 = from
	l.Position2 = to
	return l
}

// sceneObjects lays out everything visible in a size viewport: grid, elements,
// interaction overlay and collaborator pointers, back to front.
func sceneObjects(snap board.Snapshot, peers []collab.Collaborator, size fyne.Size, showGrid bool) []fyne.CanvasObject {
	vp := newViewport(snap.View)
	bg := canvas.NewRectangle(paperColor)
	bg.Resize(size)
	objects := []fyne.CanvasObject{bg}

	if showGrid {
		objects = append(objects, gridObjects(vp, size)...)
	}
	for _, el := range snap.Elements {
		objects = append(objects, elementObjects(el, vp)...)
	}
	objects = append(objects, overlayObjects(snap.Overlay, vp)...)
	for _, p := range peers {
		if p.Pointer != nil {
			objects = append(objects, pointerObjects(p, vp)...)
		}
	}
	return objects
}

func gridObjects(vp viewport, size fyne.Size) []fyne.CanvasObject {
	step := gridSize * vp.zoom
	if step < 8 {
		return nil
	}
	var out []fyne.CanvasObject
	offX := math.Mod(vp.scrollX*vp.zoom, step)
	if offX < 0 {
		offX += step
	}
	for x := offX; x < float64(size.Width); x += step {
		out = append(out, line(gridColor, 1, fyne.NewPos(float32(x), 0), fyne.NewPos(float32(x), size.Height)))
	}
	offY := math.Mod(vp.scrollY*vp.zoom, step)
	if offY < 0 {
		offY += step
	}
	for y := offY; y < float64(size.Height); y += step {
		out = append(out, line(gridColor, 1, fyne.NewPos(0, float32(y)), fyne.NewPos(size.Width, float32(y))))
	}
	return out
}

func elementObjects(el state.Element, vp viewport) []fyne.CanvasObject {
	stroke, ok := parseColor(el.StrokeColor, el.Opacity)
	if !ok {
		stroke = color.NRGBA{A: 255}
	}
	fill, filled := parseColor(el.BackgroundColor, el.Opacity)
	if !filled {
		fill = color.NRGBA{}
	}
	width := float32(math.Max(el.StrokeWidth*vp.zoom, 1))

	box := state.NormalizeRect(el.X, el.Y, el.Width, el.Height)
	topLeft := vp.pos(box.X, box.Y)
	bottomRight := vp.pos(box.MaxX(), box.MaxY())

	switch el.Type {
	case state.TypeRectangle:
		r := canvas.NewRectangle(fill)
		r.StrokeColor = stroke
		r.StrokeWidth = width
		r.Move(topLeft)
		r.Resize(fyne.NewSize(bottomRight.X-topLeft.X, bottomRight.Y-topLeft.Y))
		return []fyne.CanvasObject{r}

	case state.TypeEllipse:
		c := canvas.NewCircle(fill)
		c.StrokeColor = stroke
		c.StrokeWidth = width
		c.Position1 = topLeft
		c.Position2 = bottomRight
		return []fyne.CanvasObject{c}

	case state.TypeDiamond:
		midX := (topLeft.X + bottomRight.X) / 2
		midY := (topLeft.Y + bottomRight.Y) / 2
		top := fyne.NewPos(midX, topLeft.Y)
		right := fyne.NewPos(bottomRight.X, midY)
		bottom := fyne.NewPos(midX, bottomRight.Y)
		left := fyne.NewPos(topLeft.X, midY)
		return []fyne.CanvasObject{
			line(stroke, width, top, right),
			line(stroke, width, right, bottom),
			line(stroke, width, bottom, left),
			line(stroke, width, left, top),
		}

	case state.TypeLine, state.TypeArrow, state.TypeDraw:
		var out []fyne.CanvasObject
		for i := 1; i < len(el.Points); i++ {
			a, b := el.Points[i-1], el.Points[i]
			out = append(out, line(stroke, width, vp.pos(el.X+a.X, el.Y+a.Y), vp.pos(el.X+b.X, el.Y+b.Y)))
		}
		if el.Type == state.TypeArrow && len(el.Points) > 1 {
			a, b := el.Points[len(el.Points)-2], el.Points[len(el.Points)-1]
			out = append(out, arrowheadObjects(vp.pos(el.X+a.X, el.Y+a.Y), vp.pos(el.X+b.X, el.Y+b.Y), stroke, width)...)
		}
		return out

	case state.TypeText:
		size := float32(state.FontSize(el.Font) * vp.zoom)
		var out []fyne.CanvasObject
		for i, l := range strings.Split(el.Text, "\n") {
			t := canvas.NewText(l, stroke)
			t.TextSize = size
			t.Move(fyne.NewPos(topLeft.X, topLeft.Y+float32(i)*size*1.25))
			out = append(out, t)
		}
		return out
	}
	return nil
}

func arrowheadObjects(from, to fyne.Position, c color.Color, width float32) []fyne.CanvasObject {
	angle := math.Atan2(float64(to.Y-from.Y), float64(to.X-from.X))
	out := make([]fyne.CanvasObject, 0, 2)
	for _, side := range []float64{-1, 1} {
		a := angle + math.Pi - side*math.Pi/6
		tip := fyne.NewPos(to.X+float32(arrowHead*math.Cos(a)), to.Y+float32(arrowHead*math.Sin(a)))
		out = append(out, line(c, width, to, tip))
	}
	return out
}

func overlayObjects(o interact.Overlay, vp viewport) []fyne.CanvasObject {
	var out []fyne.CanvasObject
	for _, r := range o.Selected {
		box := canvas.NewRectangle(color.Transparent)
		box.StrokeColor = selectionColor
		box.StrokeWidth = 1
		tl := vp.pos(r.X, r.Y)
		br := vp.pos(r.MaxX(), r.MaxY())
		box.Move(tl.SubtractXY(4, 4))
		box.Resize(fyne.NewSize(br.X-tl.X+8, br.Y-tl.Y+8))
		out = append(out, box)
	}
	for _, h := range o.Handles {
		r := canvas.NewRectangle(color.White)
		r.StrokeColor = selectionColor
		r.StrokeWidth = 1
		r.Move(vp.pos(h.At.X, h.At.Y).SubtractXY(handleSize/2, handleSize/2))
		r.Resize(fyne.NewSquareSize(handleSize))
		out = append(out, r)
	}
	if o.SelectionBox != nil {
		band := canvas.NewRectangle(bandFill)
		band.StrokeColor = selectionColor
		band.StrokeWidth = 1
		tl := vp.pos(o.SelectionBox.X, o.SelectionBox.Y)
		br := vp.pos(o.SelectionBox.MaxX(), o.SelectionBox.MaxY())
		band.Move(tl)
		band.Resize(fyne.NewSize(br.X-tl.X, br.Y-tl.Y))
		out = append(out, band)
	}
	if o.Preview != nil {
		out = append(out, line(selectionColor, 1, vp.pos(o.PreviewFrom.X, o.PreviewFrom.Y), vp.pos(o.Preview.X, o.Preview.Y)))
	}
	for _, s := range o.Scrollbars {
		bar := canvas.NewRectangle(scrollbarColor)
		bar.CornerRadius = float32(math.Min(s.Width, s.Height) / 2)
		bar.Move(fyne.NewPos(float32(s.X), float32(s.Y)))
		bar.Resize(fyne.NewSize(float32(s.Width), float32(s.Height)))
		out = append(out, bar)
	}
	return out
}

func pointerObjects(p collab.Collaborator, vp viewport) []fyne.CanvasObject {
	c := peerColor(p.SocketID)
	at := vp.pos(p.Pointer.X, p.Pointer.Y)

	dot := canvas.NewCircle(c)
	dot.Position1 = at.SubtractXY(5, 5)
	dot.Position2 = at.AddXY(5, 5)

	name := p.SocketID
	if len(name) > 6 {
		name = name[len(name)-6:]
	}
	label := canvas.NewText(name, c)
	label.TextSize = 11
	label.Move(at.AddXY(8, 4))
	return []fyne.CanvasObject{dot, label}
}
