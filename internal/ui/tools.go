package ui

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"LocalBoard/internal/interact"
	"LocalBoard/internal/state"
)

type colorSwatch struct {
	widget.BaseWidget
	Hex      string
	OnTapped func(string)
}

func newColorSwatch(hex string, tapped func(string)) *colorSwatch {
	s := &colorSwatch{Hex: hex, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	fill, ok := parseColor(s.Hex, 100)
	var c color.Color = fill
	if !ok {
		c = color.White
	}
	rect := canvas.NewRectangle(c)
	rect.SetMinSize(fyne.NewSize(24, 24))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Hex)
	}
}

var strokePalette = []string{"#000000", "#e03131", "#2f9e44", "#1971c2", "#f08c00"}

var fillPalette = []string{state.Transparent, "#ffc9c9", "#b2f2bb", "#a5d8ff", "#ffec99"}

type toolButton struct {
	tool  interact.Tool
	label string
	key   string
}

var toolButtons = []toolButton{
	{interact.ToolSelection, "Select", "V"},
	{interact.ToolRectangle, "Rect", "R"},
	{interact.ToolDiamond, "Diamond", "D"},
	{interact.ToolEllipse, "Ellipse", "E"},
	{interact.ToolArrow, "Arrow", "A"},
	{interact.ToolLine, "Line", "L"},
	{interact.ToolDraw, "Draw", "X"},
	{interact.ToolText, "Text", "T"},
}

// Actions are the toolbar commands that live outside the board.
type Actions struct {
	Save     func()
	Reload   func()
	Export   func()
	CopyLink func()
}

// NewToolbar builds the tool, style and history controls for board.
func NewToolbar(board *BoardWidget, actions Actions) fyne.CanvasObject {
	b := board.Board()

	tools := widget.NewRadioGroup(nil, nil)
	tools.Horizontal = true
	tools.Required = true
	byLabel := make(map[string]interact.Tool, len(toolButtons))
	for _, t := range toolButtons {
		label := fmt.Sprintf("%s (%s)", t.label, t.key)
		tools.Options = append(tools.Options, label)
		byLabel[label] = t.tool
	}
	tools.OnChanged = func(label string) {
		if t, ok := byLabel[label]; ok {
			b.SetTool(t)
		}
	}
	tools.SetSelected(tools.Options[0])

	lock := widget.NewCheck("Lock (Q)", b.SetToolLocked)

	style := b.Snapshot().Style
	setStroke := func(hex string) {
		style.StrokeColor = hex
		b.SetStyle(style)
	}
	setFill := func(hex string) {
		style.BackgroundColor = hex
		b.SetStyle(style)
	}
	strokeBox := container.NewHBox()
	for _, hex := range strokePalette {
		strokeBox.Add(newColorSwatch(hex, setStroke))
	}
	fillBox := container.NewHBox()
	for _, hex := range fillPalette {
		fillBox.Add(newColorSwatch(hex, setFill))
	}

	strokeSlider := widget.NewSlider(1.0, 8.0)
	strokeSlider.SetValue(style.StrokeWidth)
	strokeSlider.OnChanged = func(val float64) {
		style.StrokeWidth = val
		b.SetStyle(style)
	}
	sliderContainer := container.New(layout.NewGridWrapLayout(fyne.NewSize(120, 35)), strokeSlider)

	history := widget.NewToolbar(
		widget.NewToolbarAction(theme.ContentUndoIcon(), func() { b.Undo() }),
		widget.NewToolbarAction(theme.ContentRedoIcon(), func() { b.Redo() }),
		widget.NewToolbarAction(theme.ZoomInIcon(), func() { b.SetZoom(b.Snapshot().View.Zoom + 0.1) }),
		widget.NewToolbarAction(theme.ZoomOutIcon(), func() { b.SetZoom(b.Snapshot().View.Zoom - 0.1) }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), optional(actions.Save)),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), optional(actions.Reload)),
		widget.NewToolbarAction(theme.DocumentPrintIcon(), optional(actions.Export)),
		widget.NewToolbarAction(theme.ContentCopyIcon(), optional(actions.CopyLink)),
	)

	return container.NewVBox(
		container.NewHBox(tools, lock, layout.NewSpacer(), history),
		container.NewHBox(
			widget.NewLabel("Stroke:"),
			strokeBox,
			widget.NewSeparator(),
			widget.NewLabel("Fill:"),
			fillBox,
			widget.NewSeparator(),
			widget.NewLabel("Width:"),
			sliderContainer,
			layout.NewSpacer(),
		),
	)
}

func optional(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	return fn
}
