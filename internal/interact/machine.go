// Package interact implements the pointer-driven interaction state machine.
//
// A Machine turns pointer, wheel and keyboard events into scene mutations
// and selection changes. At most one gesture is active at a time; it is an
// explicit value with an enter action (its constructor), a move step and a
// finish step, and tearing a gesture down is a state transition.
//
// Thread-safety: Machine is not safe for concurrent use. board.Board owns
// it together with the scene and serializes every call.
//
// Coordinates: events carry viewport coordinates; the machine converts them
// with scene = viewport/zoom - scroll.
package interact

import (
	"slices"
	"strconv"
	"strings"

	"LocalBoard/internal/state"
)

// Tool selects what a primary pointer-down does.
type Tool int

const (
	ToolSelection Tool = iota
	ToolRectangle
	ToolDiamond
	ToolEllipse
	ToolArrow
	ToolLine
	ToolDraw
	ToolText
)

var toolTypes = map[Tool]state.Type{
	ToolSelection: state.TypeSelection,
	ToolRectangle: state.TypeRectangle,
	ToolDiamond:   state.TypeDiamond,
	ToolEllipse:   state.TypeEllipse,
	ToolArrow:     state.TypeArrow,
	ToolLine:      state.TypeLine,
	ToolDraw:      state.TypeDraw,
	ToolText:      state.TypeText,
}

// ElementType returns the element type created by the tool.
func (t Tool) ElementType() state.Type { return toolTypes[t] }

func (t Tool) String() string { return string(toolTypes[t]) }

// StateKind names the state the machine is in.
type StateKind int

const (
	Idle StateKind = iota
	Drawing
	Dragging
	Resizing
	MultiPoint
	PanningViewport
	ScrollbarDrag
	// Selecting is the rubber-band selection box. No element is touched.
	Selecting
)

func (k StateKind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Drawing:
		return "drawing"
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	case MultiPoint:
		return "multi-point"
	case PanningViewport:
		return "panning"
	case ScrollbarDrag:
		return "scrollbar-drag"
	case Selecting:
		return "selecting"
	}
	return "state(" + strconv.Itoa(int(k)) + ")"
}

type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// Modifiers is a bit set of held modifier keys.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModAlt
	ModCtrl
)

func (m Modifiers) Shift() bool { return m&ModShift != 0 }
func (m Modifiers) Alt() bool   { return m&ModAlt != 0 }
func (m Modifiers) Ctrl() bool  { return m&ModCtrl != 0 }

// PointerEvent is a pointer sample in viewport coordinates.
type PointerEvent struct {
	ID     int
	X, Y   float64
	Button Button
	Mods   Modifiers
}

type WheelEvent struct {
	X, Y   float64
	DX, DY float64
	Mods   Modifiers
}

// Recorder is notified after every element mutation so the next flush
// records a history entry.
type Recorder interface {
	ResumeRecording()
}

// Config holds the interaction tunables. Distances are viewport pixels.
type Config struct {
	TranslateStep        float64
	ShiftTranslateStep   float64
	DragThreshold        float64
	LineConfirmThreshold float64
	HandleSize           float64
	HitTolerance         float64
	ScrollbarWidth       float64
	MinZoom              float64
	MaxZoom              float64
	ZoomStep             float64
	// MeasureText sizes a text element. Nil uses a fixed-advance estimate.
	MeasureText func(text, font string) (width, height float64)
}

func DefaultConfig() Config {
	return Config{
		TranslateStep:        1,
		ShiftTranslateStep:   5,
		DragThreshold:        10,
		LineConfirmThreshold: 10,
		HandleSize:           8,
		HitTolerance:         10,
		ScrollbarWidth:       6,
		MinZoom:              0.1,
		MaxZoom:              10,
		ZoomStep:             0.1,
	}
}

// gesture is the single in-flight interaction. move and finish receive the
// event of the pointer that started it.
type gesture interface {
	kind() StateKind
	move(m *Machine, ev PointerEvent)
	finish(m *Machine, ev PointerEvent)
	excluded() []string
}

// Machine is the interaction state machine.
type Machine struct {
	scene *state.Scene
	rec   Recorder
	cfg   Config

	tool     Tool
	lockTool bool
	style    state.Style

	scrollX, scrollY float64
	zoom             float64
	width, height    float64

	selected   map[string]struct{}
	editingID  string
	draggingID string
	resizingID string

	active         gesture
	gesturePointer int
	lastEvent      PointerEvent
	multi          *multiPoint

	pointers  map[int]state.Point
	spaceHeld bool
	cursor    state.Point
}

// New creates a machine operating on scene. rec may be nil.
func New(scene *state.Scene, rec Recorder, cfg Config) *Machine {
	if cfg.MinZoom <= 0 || cfg.MaxZoom < cfg.MinZoom {
		cfg.MinZoom, cfg.MaxZoom = DefaultConfig().MinZoom, DefaultConfig().MaxZoom
	}
	return &Machine{
		scene:    scene,
		rec:      rec,
		cfg:      cfg,
		style:    state.DefaultStyle,
		zoom:     1,
		selected: make(map[string]struct{}),
		pointers: make(map[int]state.Point),
	}
}

// State returns the current state kind.
func (m *Machine) State() StateKind {
	if m.active != nil {
		return m.active.kind()
	}
	if m.multi != nil {
		return MultiPoint
	}
	return Idle
}

func (m *Machine) Tool() Tool         { return m.tool }
func (m *Machine) ToolLocked() bool   { return m.lockTool }
func (m *Machine) Style() state.Style { return m.style }
func (m *Machine) EditingID() string  { return m.editingID }
func (m *Machine) Zoom() float64      { return m.zoom }

// Cursor returns the last known pointer position in scene coordinates.
func (m *Machine) Cursor() state.Point { return m.cursor }

// SetTool switches tools. Any open multi-point shape or text edit is closed
// first; switching to a drawing tool clears the selection.
func (m *Machine) SetTool(t Tool) {
	m.closeMultiPoint()
	m.finishTextEdit()
	m.tool = t
	if t != ToolSelection {
		m.clearSelection()
	}
}

func (m *Machine) SetToolLocked(locked bool) { m.lockTool = locked }

// SetStyle sets the style of new elements and restyles the selection.
func (m *Machine) SetStyle(s state.Style) {
	m.style = s
	for _, id := range m.Selected() {
		m.mutate(id, func(e *state.Element) { e.Style = s })
	}
}

// Resize sets the viewport size used for scrollbars.
func (m *Machine) Resize(width, height float64) {
	m.width, m.height = width, height
}

// View captures scroll, zoom and selection.
func (m *Machine) View() state.View {
	return state.View{ScrollX: m.scrollX, ScrollY: m.scrollY, Zoom: m.zoom, Selected: m.Selected()}
}

// SetView restores scroll and zoom.
func (m *Machine) SetView(v state.View) {
	m.scrollX, m.scrollY = v.ScrollX, v.ScrollY
	if v.Zoom > 0 {
		m.zoom = m.clampZoom(v.Zoom)
	}
}

// Selected returns the selected ids in sorted order.
func (m *Machine) Selected() []string {
	out := make([]string, 0, len(m.selected))
	for id := range m.selected {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (m *Machine) IsSelected(id string) bool {
	_, ok := m.selected[id]
	return ok
}

// Select replaces the selection. Unknown or deleted ids are ignored.
func (m *Machine) Select(ids ...string) {
	m.selected = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if el, ok := m.scene.Get(id); ok && !el.IsDeleted {
			m.selected[id] = struct{}{}
		}
	}
}

// SelectAll selects every visible element.
func (m *Machine) SelectAll() {
	m.selected = make(map[string]struct{})
	for _, el := range m.scene.Visible() {
		m.selected[el.ID] = struct{}{}
	}
}

func (m *Machine) ClearSelection() { m.clearSelection() }

func (m *Machine) clearSelection() {
	m.selected = make(map[string]struct{})
}

// PruneSelection drops selected ids that no longer name a visible element,
// e.g. after a reconciliation tombstoned them.
func (m *Machine) PruneSelection() {
	for id := range m.selected {
		if el, ok := m.scene.Get(id); !ok || el.IsDeleted {
			delete(m.selected, id)
		}
	}
}

// Excluded returns the ids under exclusive local edit: the element being
// typed or built vertex by vertex, and every element the active gesture is
// moving, drawing or resizing. Reconciliation must keep these local.
func (m *Machine) Excluded() map[string]struct{} {
	out := make(map[string]struct{})
	for _, id := range []string{m.editingID, m.draggingID, m.resizingID} {
		if id != "" {
			out[id] = struct{}{}
		}
	}
	if m.multi != nil {
		out[m.multi.id] = struct{}{}
	}
	if m.active != nil {
		for _, id := range m.active.excluded() {
			out[id] = struct{}{}
		}
	}
	return out
}

func (m *Machine) toScene(vx, vy float64) state.Point {
	return state.Point{X: vx/m.zoom - m.scrollX, Y: vy/m.zoom - m.scrollY}
}

// ToViewport converts a scene point to viewport coordinates.
func (m *Machine) ToViewport(p state.Point) (float64, float64) {
	return (p.X + m.scrollX) * m.zoom, (p.Y + m.scrollY) * m.zoom
}

func (m *Machine) clampZoom(z float64) float64 {
	return min(max(z, m.cfg.MinZoom), m.cfg.MaxZoom)
}

// mutate patches an element and marks history dirty.
func (m *Machine) mutate(id string, patch func(*state.Element)) (state.Element, bool) {
	el, err := m.scene.Mutate(id, patch)
	if err != nil {
		return state.Element{}, false
	}
	m.touch()
	return el, true
}

func (m *Machine) touch() {
	if m.rec != nil {
		m.rec.ResumeRecording()
	}
}

func (m *Machine) newElement(t state.Type, p state.Point) state.Element {
	el := state.Element{
		ID:    state.NewID(),
		Type:  t,
		X:     p.X,
		Y:     p.Y,
		Style: m.style,
		Seed:  state.NewSeed(),
	}
	if t.IsLinear() {
		el.Points = []state.Point{{X: 0, Y: 0}}
	}
	if t == state.TypeText {
		el.Font = state.DefaultFont
	}
	return el
}

// afterCreate selects a freshly finished element and drops back to the
// selection tool unless the tool is locked.
func (m *Machine) afterCreate(id string) {
	m.Select(id)
	if !m.lockTool {
		m.tool = ToolSelection
	}
}

func (m *Machine) measureText(text, font string) (float64, float64) {
	if m.cfg.MeasureText != nil {
		return m.cfg.MeasureText(text, font)
	}
	size := state.FontSize(font)
	longest := 0
	for _, line := range strings.Split(text, "\n") {
		longest = max(longest, len([]rune(line)))
	}
	lines := strings.Count(text, "\n") + 1
	return float64(longest) * size * 0.6, float64(lines) * size * 1.25
}
