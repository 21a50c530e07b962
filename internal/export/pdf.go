// Package export renders a scene to PDF.
package export

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/jung-kurt/gofpdf"

	"LocalBoard/internal/state"
)

const (
	pageMargin = 10.0 // mm
	pxToMM     = 25.4 / 96
)

// transform maps scene coordinates onto the page.
type transform struct {
	originX, originY float64
	offsetX, offsetY float64
	scale            float64
}

func (t transform) pt(x, y float64) (float64, float64) {
	return t.offsetX + (x-t.originX)*t.scale, t.offsetY + (y-t.originY)*t.scale
}

// fit scales bounds into a pageW x pageH page, never enlarging past 1px = 1px.
func fit(bounds state.Rect, pageW, pageH float64) transform {
	availW, availH := pageW-2*pageMargin, pageH-2*pageMargin
	scale := pxToMM
	if bounds.Width > 0 {
		scale = math.Min(scale, availW/bounds.Width)
	}
	if bounds.Height > 0 {
		scale = math.Min(scale, availH/bounds.Height)
	}
	return transform{
		originX: bounds.X,
		originY: bounds.Y,
		offsetX: pageMargin + (availW-bounds.Width*scale)/2,
		offsetY: pageMargin + (availH-bounds.Height*scale)/2,
		scale:   scale,
	}
}

// parseColor reads #rgb and #rrggbb. ok is false for "transparent" and
// anything unparseable.
func parseColor(s string) (r, g, b int, ok bool) {
	hex, found := strings.CutPrefix(s, "#")
	if !found {
		return 0, 0, 0, false
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}

// Write renders the visible elements onto a single page sized to the scene.
func Write(w io.Writer, elements []state.Element) error {
	bounds, ok := state.SceneBounds(elements)
	orientation := "P"
	if ok && bounds.Width > bounds.Height {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetTitle("LocalBoard", true)
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()
	t := fit(bounds, pageW, pageH)

	drawn := 0
	for _, el := range elements {
		if el.IsDeleted || el.Type == state.TypeSelection {
			continue
		}
		drawElement(pdf, t, el)
		drawn++
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	glog.V(1).Infof("[Export] rendered %d elements", drawn)
	return pdf.Output(w)
}

// WriteFile renders elements to a PDF file at path.
func WriteFile(path string, elements []state.Element) error {
	bounds, _ := state.SceneBounds(elements)
	glog.Infof("[Export] writing %s (%.0fx%.0f)", path, bounds.Width, bounds.Height)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, elements); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func drawElement(pdf *gofpdf.Fpdf, t transform, el state.Element) {
	pdf.SetAlpha(math.Max(0, math.Min(el.Opacity, 100))/100, "Normal")
	pdf.SetLineWidth(math.Max(el.StrokeWidth*t.scale, 0.1))
	if r, g, b, ok := parseColor(el.StrokeColor); ok {
		pdf.SetDrawColor(r, g, b)
		pdf.SetTextColor(r, g, b)
	} else {
		pdf.SetDrawColor(0, 0, 0)
		pdf.SetTextColor(0, 0, 0)
	}
	style := "D"
	if r, g, b, ok := parseColor(el.BackgroundColor); ok {
		pdf.SetFillColor(r, g, b)
		style = "DF"
	}

	box := state.NormalizeRect(el.X, el.Y, el.Width, el.Height)
	x, y := t.pt(box.X, box.Y)
	w, h := box.Width*t.scale, box.Height*t.scale

	switch el.Type {
	case state.TypeRectangle:
		pdf.Rect(x, y, w, h, style)
	case state.TypeEllipse:
		pdf.Ellipse(x+w/2, y+h/2, w/2, h/2, 0, style)
	case state.TypeDiamond:
		pdf.Polygon([]gofpdf.PointType{
			{X: x + w/2, Y: y},
			{X: x + w, Y: y + h/2},
			{X: x + w/2, Y: y + h},
			{X: x, Y: y + h/2},
		}, style)
	case state.TypeLine, state.TypeArrow, state.TypeDraw:
		pts := make([]gofpdf.PointType, len(el.Points))
		for i, p := range el.Points {
			pts[i].X, pts[i].Y = t.pt(el.X+p.X, el.Y+p.Y)
		}
		if len(pts) > 1 {
			pdf.MoveTo(pts[0].X, pts[0].Y)
			for _, p := range pts[1:] {
				pdf.LineTo(p.X, p.Y)
			}
			pdf.DrawPath("D")
		}
		if el.Type == state.TypeArrow && len(pts) > 1 {
			drawArrowhead(pdf, pts[len(pts)-2], pts[len(pts)-1], 10*t.scale)
		}
	case state.TypeText:
		size := state.FontSize(el.Font) * t.scale
		pdf.SetFont("Helvetica", "", size/(25.4/72))
		for i, line := range strings.Split(el.Text, "\n") {
			pdf.Text(x, y+size*float64(i+1), line)
		}
	}
}

func drawArrowhead(pdf *gofpdf.Fpdf, from, to gofpdf.PointType, size float64) {
	angle := math.Atan2(to.Y-from.Y, to.X-from.X)
	for _, side := range []float64{-1, 1} {
		a := angle + math.Pi - side*math.Pi/6
		pdf.Line(to.X, to.Y, to.X+size*math.Cos(a), to.Y+size*math.Sin(a))
	}
}
