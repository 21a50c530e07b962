package interact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LocalBoard/internal/state"
)

type countingRecorder struct{ n int }

func (r *countingRecorder) ResumeRecording() { r.n++ }

func newTestMachine(t *testing.T) (*Machine, *state.Scene) {
	t.Helper()
	scene := state.NewScene()
	m := New(scene, nil, DefaultConfig())
	m.Resize(800, 600)
	return m, scene
}

func drag(m *Machine, x0, y0, x1, y1 float64, mods Modifiers) {
	m.PointerDown(PointerEvent{ID: 1, X: x0, Y: y0, Mods: mods})
	m.PointerMove(PointerEvent{ID: 1, X: x1, Y: y1, Mods: mods})
	m.PointerUp(PointerEvent{ID: 1, X: x1, Y: y1, Mods: mods})
}

func click(m *Machine, x, y float64) {
	m.PointerDown(PointerEvent{ID: 1, X: x, Y: y})
	m.PointerUp(PointerEvent{ID: 1, X: x, Y: y})
}

func filled(m *Machine) {
	s := state.DefaultStyle
	s.BackgroundColor = "#ffc9c9"
	m.SetStyle(s)
}

func only(t *testing.T, scene *state.Scene) state.Element {
	t.Helper()
	visible := scene.Visible()
	require.Len(t, visible, 1)
	return visible[0]
}

func TestCreateResizeNudgeScenario(t *testing.T) {
	m, scene := newTestMachine(t)

	m.SetTool(ToolRectangle)
	drag(m, 10, 10, 110, 60, 0)

	el := only(t, scene)
	assert.Equal(t, state.TypeRectangle, el.Type)
	assert.Equal(t, 10.0, el.X)
	assert.Equal(t, 10.0, el.Y)
	assert.Equal(t, 100.0, el.Width)
	assert.Equal(t, 50.0, el.Height)
	assert.Equal(t, []string{el.ID}, m.Selected())
	assert.Equal(t, ToolSelection, m.Tool())

	drag(m, 110, 60, 130, 70, 0)
	el = only(t, scene)
	assert.Equal(t, 120.0, el.Width)
	assert.Equal(t, 60.0, el.Height)
	assert.Equal(t, 10.0, el.X)

	require.True(t, m.KeyDown(KeyEvent{Key: KeyArrowRight}))
	moved := only(t, scene)
	assert.Equal(t, el.X+DefaultConfig().TranslateStep, moved.X)
	assert.Equal(t, el.Y, moved.Y)
	assert.Greater(t, moved.Version, el.Version)

	require.True(t, m.KeyDown(KeyEvent{Key: KeyArrowDown, Mods: ModShift}))
	assert.Equal(t, el.Y+DefaultConfig().ShiftTranslateStep, only(t, scene).Y)
}

func TestMultiPointLine(t *testing.T) {
	m, scene := newTestMachine(t)
	m.SetTool(ToolLine)

	click(m, 0, 0)
	assert.Equal(t, MultiPoint, m.State())
	id, ok := m.MultiPointID()
	require.True(t, ok)
	assert.Contains(t, m.Excluded(), id)

	m.PointerMove(PointerEvent{ID: 1, X: 30, Y: 0})
	o := m.Overlay()
	require.NotNil(t, o.Preview)
	assert.Equal(t, state.Point{X: 30, Y: 0}, *o.Preview)

	click(m, 50, 0)
	assert.Equal(t, MultiPoint, m.State())

	require.True(t, m.KeyDown(KeyEvent{Key: KeyEscape}))
	assert.Equal(t, Idle, m.State())

	el := only(t, scene)
	assert.Equal(t, id, el.ID)
	assert.Equal(t, []state.Point{{X: 0, Y: 0}, {X: 50, Y: 0}}, el.Points)
	assert.Empty(t, m.Excluded())
	assert.Equal(t, []string{id}, m.Selected())
}

func TestMultiPointClosesNearLastVertex(t *testing.T) {
	m, scene := newTestMachine(t)
	m.SetTool(ToolArrow)

	click(m, 0, 0)
	click(m, 50, 0)
	click(m, 50, 40)
	click(m, 52, 41)

	assert.Equal(t, Idle, m.State())
	assert.Len(t, only(t, scene).Points, 3)
}

func TestMultiPointSingleVertexIsDiscarded(t *testing.T) {
	m, scene := newTestMachine(t)
	m.SetTool(ToolLine)

	click(m, 0, 0)
	m.DoubleClick(PointerEvent{ID: 1})

	assert.Equal(t, Idle, m.State())
	assert.Equal(t, 0, scene.Len())
}

func TestLineDragBeyondThresholdCreatesTwoPoints(t *testing.T) {
	m, scene := newTestMachine(t)
	m.SetTool(ToolLine)

	drag(m, 0, 0, 100, 50, 0)

	el := only(t, scene)
	assert.Equal(t, Idle, m.State())
	assert.Equal(t, []state.Point{{X: 0, Y: 0}, {X: 100, Y: 50}}, el.Points)
	assert.Equal(t, 100.0, el.Width)
	assert.Equal(t, 50.0, el.Height)
}

func TestPerfectCreate(t *testing.T) {
	m, scene := newTestMachine(t)
	m.SetTool(ToolEllipse)

	drag(m, 0, 0, 80, -30, ModShift)

	el := only(t, scene)
	assert.Equal(t, 80.0, el.Width)
	assert.Equal(t, 80.0, el.Height)
	assert.Equal(t, -80.0, el.Y)
}

func TestRepeatedDragsEqualOneDrag(t *testing.T) {
	deltas := []state.Point{{X: 5, Y: 3}, {X: -12.5, Y: 7}, {X: 40, Y: -2.25}, {X: 0.5, Y: 0.5}}

	build := func() (*Machine, *state.Scene) {
		m, scene := newTestMachine(t)
		filled(m)
		m.SetTool(ToolRectangle)
		drag(m, 0, 0, 50, 50, 0)
		return m, scene
	}

	many, manyScene := build()
	var sum state.Point
	for _, d := range deltas {
		el := only(t, manyScene)
		cx, cy := el.X+el.Width/2, el.Y+el.Height/2
		drag(many, cx, cy, cx+d.X, cy+d.Y, 0)
		sum.X += d.X
		sum.Y += d.Y
	}

	one, oneScene := build()
	drag(one, 25, 25, 25+sum.X, 25+sum.Y, 0)

	a, b := only(t, manyScene), only(t, oneScene)
	assert.InDelta(t, b.X, a.X, 1e-9)
	assert.InDelta(t, b.Y, a.Y, 1e-9)
	assert.InDelta(t, sum.X, a.X, 1e-9)
	assert.InDelta(t, sum.Y, a.Y, 1e-9)
}

func TestAspectLockedResizeKeepsRatio(t *testing.T) {
	tests := []struct {
		name   string
		handle state.Point
		dx, dy float64
	}{
		{"se grow", state.Point{X: 80, Y: 40}, 30, 5},
		{"se shrink", state.Point{X: 80, Y: 40}, -40, 3},
		{"nw", state.Point{X: 0, Y: 0}, -10, 25},
		{"ne", state.Point{X: 80, Y: 0}, 12, -7},
		{"sw", state.Point{X: 0, Y: 40}, -5, -5},
		{"e", state.Point{X: 80, Y: 20}, 40, 0},
		{"n", state.Point{X: 40, Y: 0}, 0, -20},
		{"s", state.Point{X: 40, Y: 40}, 0, 11},
		{"w", state.Point{X: 0, Y: 20}, 17, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, scene := newTestMachine(t)
			m.SetTool(ToolRectangle)
			drag(m, 0, 0, 80, 40, 0)

			drag(m, tt.handle.X, tt.handle.Y, tt.handle.X+tt.dx, tt.handle.Y+tt.dy, ModShift)

			el := only(t, scene)
			require.Greater(t, el.Height, 0.0)
			assert.InDelta(t, 2.0, el.Width/el.Height, 1e-9)
		})
	}
}

func TestResizeEdgeHandleMovesOneAxis(t *testing.T) {
	m, scene := newTestMachine(t)
	m.SetTool(ToolDiamond)
	drag(m, 0, 0, 80, 40, 0)

	drag(m, 0, 20, 30, 35, 0)

	el := only(t, scene)
	assert.Equal(t, 30.0, el.X)
	assert.Equal(t, 50.0, el.Width)
	assert.Equal(t, 0.0, el.Y)
	assert.Equal(t, 40.0, el.Height)
}

func TestTwoPointLineResizeKeepsAnchor(t *testing.T) {
	m, scene := newTestMachine(t)
	m.SetTool(ToolLine)
	drag(m, 0, 0, 100, 50, 0)

	drag(m, 100, 50, 120, 50, 0)
	el := only(t, scene)
	assert.Equal(t, 0.0, el.X)
	assert.Equal(t, 0.0, el.Y)
	assert.Equal(t, []state.Point{{X: 0, Y: 0}, {X: 120, Y: 50}}, el.Points)

	drag(m, 0, 0, 10, 10, 0)
	el = only(t, scene)
	assert.Equal(t, 10.0, el.X)
	assert.Equal(t, 10.0, el.Y)
	assert.Equal(t, []state.Point{{X: 0, Y: 0}, {X: 110, Y: 40}}, el.Points)
	assert.Equal(t, 110.0, el.Width)
	assert.Equal(t, 40.0, el.Height)
}

func TestMovesFirstPoint(t *testing.T) {
	assert.True(t, movesFirstPoint(HandleNW, state.Point{X: 10, Y: 10}))
	assert.False(t, movesFirstPoint(HandleSE, state.Point{X: 10, Y: 10}))
	assert.True(t, movesFirstPoint(HandleNE, state.Point{X: -10, Y: 10}))
	assert.False(t, movesFirstPoint(HandleSW, state.Point{X: -10, Y: 10}))
	assert.True(t, movesFirstPoint(HandleS, state.Point{X: 0, Y: -10}))
	assert.False(t, movesFirstPoint(HandleN, state.Point{X: 0, Y: -10}))
}

func TestZeroSizeCreateIsDiscarded(t *testing.T) {
	m, scene := newTestMachine(t)
	m.SetTool(ToolRectangle)

	click(m, 10, 10)

	assert.Equal(t, 0, scene.Len())
	assert.Empty(t, m.Selected())
	assert.Equal(t, Idle, m.State())
}

func TestNextPointerDownFinishesStuckGesture(t *testing.T) {
	m, scene := newTestMachine(t)
	m.SetTool(ToolRectangle)

	m.PointerDown(PointerEvent{ID: 1, X: 0, Y: 0})
	m.PointerMove(PointerEvent{ID: 1, X: 100, Y: 40})
	require.Equal(t, Drawing, m.State())

	// The pointer-up never arrives.
	m.PointerDown(PointerEvent{ID: 1, X: 500, Y: 500})

	el := only(t, scene)
	assert.Equal(t, 100.0, el.Width)
	assert.NotContains(t, m.Excluded(), el.ID)
	m.PointerUp(PointerEvent{ID: 1, X: 500, Y: 500})
	assert.Equal(t, Idle, m.State())
}

func touchDrag(m *Machine, id int, x0, y0, x1, y1 float64) {
	m.PointerDown(PointerEvent{ID: id, X: x0, Y: y0})
	m.PointerMove(PointerEvent{ID: id, X: x1, Y: y1})
	m.PointerUp(PointerEvent{ID: id, X: x1, Y: y1})
}

func TestLostTouchUpDoesNotStartPinches(t *testing.T) {
	m, scene := newTestMachine(t)
	m.SetTool(ToolRectangle)

	m.PointerDown(PointerEvent{ID: 7, X: 100, Y: 100})
	m.PointerUp(PointerEvent{ID: 99, X: 100, Y: 100})
	require.Equal(t, Idle, m.State())

	for id := 8; id <= 10; id++ {
		m.SetTool(ToolRectangle)
		touchDrag(m, id, 100, 100, 200, 200)
		assert.Equal(t, Idle, m.State(), "touch %d", id)
	}
	assert.Len(t, scene.Visible(), 3)
}

func TestPointerAfterPinchWithLostUpDraws(t *testing.T) {
	m, scene := newTestMachine(t)

	m.PointerDown(PointerEvent{ID: 1, X: 100, Y: 100})
	m.PointerDown(PointerEvent{ID: 2, X: 200, Y: 100})
	require.Equal(t, PanningViewport, m.State())
	m.PointerUp(PointerEvent{ID: 2, X: 200, Y: 100})
	// Pointer 1 never reports its up.

	m.SetTool(ToolRectangle)
	m.PointerDown(PointerEvent{ID: 3, X: 0, Y: 0})
	assert.Equal(t, Drawing, m.State())
	m.PointerMove(PointerEvent{ID: 3, X: 50, Y: 50})
	m.PointerUp(PointerEvent{ID: 3, X: 50, Y: 50})

	assert.Equal(t, 50.0, only(t, scene).Width)
}

func TestIdlePointerWithLostUpIsForgotten(t *testing.T) {
	m, scene := newTestMachine(t)
	m.SetTool(ToolRectangle)

	m.PointerDown(PointerEvent{ID: 5, X: 10, Y: 10, Button: ButtonSecondary})
	require.Equal(t, Idle, m.State())

	touchDrag(m, 6, 0, 0, 40, 30)
	assert.Equal(t, 40.0, only(t, scene).Width)
}

func TestBlurTearsDownGesture(t *testing.T) {
	m, _ := newTestMachine(t)
	m.SetTool(ToolRectangle)

	m.PointerDown(PointerEvent{ID: 1, X: 0, Y: 0})
	m.PointerMove(PointerEvent{ID: 1, X: 40, Y: 40})
	m.Blur()

	assert.Equal(t, Idle, m.State())
	assert.False(t, m.InFlight())
	assert.Empty(t, m.Excluded())
}

func TestExcludedTracksActiveGesture(t *testing.T) {
	m, scene := newTestMachine(t)
	filled(m)
	m.SetTool(ToolRectangle)

	m.PointerDown(PointerEvent{ID: 1, X: 0, Y: 0})
	m.PointerMove(PointerEvent{ID: 1, X: 50, Y: 50})
	el := only(t, scene)
	assert.Equal(t, map[string]struct{}{el.ID: {}}, m.Excluded())
	m.PointerUp(PointerEvent{ID: 1, X: 50, Y: 50})
	assert.Empty(t, m.Excluded())

	m.PointerDown(PointerEvent{ID: 1, X: 25, Y: 25})
	assert.Equal(t, Dragging, m.State())
	assert.Equal(t, map[string]struct{}{el.ID: {}}, m.Excluded())
	m.PointerUp(PointerEvent{ID: 1, X: 30, Y: 30})
	assert.Empty(t, m.Excluded())

	m.PointerDown(PointerEvent{ID: 1, X: 55, Y: 55})
	assert.Equal(t, Resizing, m.State())
	assert.Contains(t, m.Excluded(), el.ID)
	m.PointerUp(PointerEvent{ID: 1, X: 60, Y: 60})
	assert.Empty(t, m.Excluded())
}

func TestShiftClickTogglesSelection(t *testing.T) {
	m, scene := newTestMachine(t)
	filled(m)
	m.SetTool(ToolRectangle)
	drag(m, 0, 0, 20, 20, 0)
	m.SetTool(ToolRectangle)
	drag(m, 100, 100, 120, 120, 0)
	els := scene.Visible()
	require.Len(t, els, 2)

	m.PointerDown(PointerEvent{ID: 1, X: 10, Y: 10, Mods: ModShift})
	m.PointerUp(PointerEvent{ID: 1, X: 10, Y: 10, Mods: ModShift})
	assert.ElementsMatch(t, []string{els[0].ID, els[1].ID}, m.Selected())

	m.PointerDown(PointerEvent{ID: 1, X: 110, Y: 110, Mods: ModShift})
	m.PointerUp(PointerEvent{ID: 1, X: 110, Y: 110, Mods: ModShift})
	assert.Equal(t, []string{els[0].ID}, m.Selected())

	click(m, 110, 110)
	assert.Equal(t, []string{els[1].ID}, m.Selected())
}

func TestAltDragDuplicates(t *testing.T) {
	m, scene := newTestMachine(t)
	filled(m)
	m.SetTool(ToolRectangle)
	drag(m, 0, 0, 50, 50, 0)
	orig := only(t, scene)

	drag(m, 25, 25, 125, 25, ModAlt)

	all := scene.Elements()
	require.Len(t, all, 2)
	clone, moved := all[0], all[1]
	assert.NotEqual(t, orig.ID, clone.ID)
	assert.Equal(t, orig.ID, moved.ID)
	assert.Equal(t, 0.0, clone.X)
	assert.Equal(t, int64(1), clone.Version)
	assert.Equal(t, 100.0, moved.X)
	assert.Equal(t, []string{orig.ID}, m.Selected())
}

func TestSelectionBox(t *testing.T) {
	m, scene := newTestMachine(t)
	filled(m)
	m.SetTool(ToolRectangle)
	drag(m, 0, 0, 20, 20, 0)
	m.SetTool(ToolRectangle)
	drag(m, 100, 100, 120, 120, 0)
	first := scene.Visible()[0]

	m.PointerDown(PointerEvent{ID: 1, X: -10, Y: -10})
	m.PointerMove(PointerEvent{ID: 1, X: 50, Y: 50})
	assert.Equal(t, Selecting, m.State())
	assert.Equal(t, "selecting", m.State().String())
	o := m.Overlay()
	require.NotNil(t, o.SelectionBox)
	assert.Equal(t, state.Rect{X: -10, Y: -10, Width: 60, Height: 60}, *o.SelectionBox)
	m.PointerUp(PointerEvent{ID: 1, X: 50, Y: 50})

	assert.Equal(t, []string{first.ID}, m.Selected())
	assert.Nil(t, m.Overlay().SelectionBox)
	assert.Equal(t, 2, scene.Len())
}

func TestPanAndWheelLeaveElementsAlone(t *testing.T) {
	m, scene := newTestMachine(t)
	m.SetTool(ToolRectangle)
	drag(m, 0, 0, 50, 50, 0)
	before := only(t, scene)

	m.PointerDown(PointerEvent{ID: 1, X: 100, Y: 100, Button: ButtonMiddle})
	assert.Equal(t, PanningViewport, m.State())
	m.PointerMove(PointerEvent{ID: 1, X: 150, Y: 120, Button: ButtonMiddle})
	m.PointerUp(PointerEvent{ID: 1, X: 150, Y: 120, Button: ButtonMiddle})

	v := m.View()
	assert.Equal(t, 50.0, v.ScrollX)
	assert.Equal(t, 20.0, v.ScrollY)

	m.Wheel(WheelEvent{DX: 0, DY: 30})
	assert.Equal(t, 50.0, m.View().ScrollY)

	m.Wheel(WheelEvent{X: 200, Y: 200, DY: 1, Mods: ModCtrl})
	assert.InDelta(t, 1.1, m.Zoom(), 1e-9)

	assert.Equal(t, before, only(t, scene))
}

func TestSpaceDragPans(t *testing.T) {
	m, _ := newTestMachine(t)

	require.True(t, m.KeyDown(KeyEvent{Key: KeySpace}))
	drag(m, 0, 0, -30, 0, 0)
	m.KeyUp(KeyEvent{Key: KeySpace})

	assert.Equal(t, -30.0, m.View().ScrollX)
}

func TestPinchZoom(t *testing.T) {
	m, scene := newTestMachine(t)

	m.PointerDown(PointerEvent{ID: 1, X: 100, Y: 100})
	m.PointerDown(PointerEvent{ID: 2, X: 200, Y: 100})
	assert.Equal(t, PanningViewport, m.State())

	m.PointerMove(PointerEvent{ID: 2, X: 300, Y: 100})
	assert.InDelta(t, 2.0, m.Zoom(), 1e-9)

	m.PointerUp(PointerEvent{ID: 2, X: 300, Y: 100})
	m.PointerUp(PointerEvent{ID: 1, X: 100, Y: 100})
	assert.Equal(t, Idle, m.State())
	assert.Equal(t, 0, scene.Len())
}

func TestZoomIsClamped(t *testing.T) {
	m, _ := newTestMachine(t)
	m.SetZoom(100)
	assert.Equal(t, DefaultConfig().MaxZoom, m.Zoom())
	m.SetZoom(0.0001)
	assert.Equal(t, DefaultConfig().MinZoom, m.Zoom())
}

func TestScrollbarDrag(t *testing.T) {
	m, _ := newTestMachine(t)
	m.SetTool(ToolRectangle)
	drag(m, 0, 0, 1600, 100, 0)

	bars := m.Scrollbars()
	require.Len(t, bars, 1)
	bar := bars[0]
	assert.Equal(t, AxisHorizontal, bar.Axis)
	assert.InDelta(t, 400.0, bar.Width, 1e-9)

	y := bar.Y + bar.Height/2
	m.PointerDown(PointerEvent{ID: 1, X: bar.X + 10, Y: y})
	assert.Equal(t, ScrollbarDrag, m.State())
	m.PointerMove(PointerEvent{ID: 1, X: bar.X + 110, Y: y})
	m.PointerUp(PointerEvent{ID: 1, X: bar.X + 110, Y: y})

	assert.InDelta(t, -200.0, m.View().ScrollX, 1e-9)
}

func TestTextCommit(t *testing.T) {
	m, scene := newTestMachine(t)
	m.SetTool(ToolText)

	click(m, 10, 10)
	id := m.EditingID()
	require.NotEmpty(t, id)
	assert.Contains(t, m.Excluded(), id)
	assert.False(t, m.KeyDown(KeyEvent{Key: "r"}))

	m.CommitText("hi")
	el := only(t, scene)
	assert.Equal(t, "hi", el.Text)
	assert.InDelta(t, 24.0, el.Width, 1e-9)
	assert.InDelta(t, 25.0, el.Height, 1e-9)
	assert.Empty(t, m.EditingID())
	assert.Equal(t, []string{id}, m.Selected())
}

func TestEmptyTextIsRemoved(t *testing.T) {
	m, scene := newTestMachine(t)
	m.SetTool(ToolText)
	click(m, 10, 10)

	m.CommitText("")

	assert.Equal(t, 0, scene.Len())
}

func TestDeleteSelection(t *testing.T) {
	m, scene := newTestMachine(t)
	m.SetTool(ToolRectangle)
	drag(m, 0, 0, 50, 50, 0)

	require.True(t, m.KeyDown(KeyEvent{Key: KeyDelete}))

	assert.Empty(t, scene.Visible())
	require.Equal(t, 1, scene.Len())
	assert.True(t, scene.Elements()[0].IsDeleted)
	assert.Empty(t, m.Selected())
}

func TestToolKeys(t *testing.T) {
	m, _ := newTestMachine(t)

	assert.True(t, m.KeyDown(KeyEvent{Key: "r"}))
	assert.Equal(t, ToolRectangle, m.Tool())
	assert.True(t, m.KeyDown(KeyEvent{Key: "q"}))
	assert.True(t, m.ToolLocked())
	assert.False(t, m.KeyDown(KeyEvent{Key: "z"}))
}

func TestLockedToolStaysAfterCreate(t *testing.T) {
	m, scene := newTestMachine(t)
	m.SetTool(ToolRectangle)
	m.SetToolLocked(true)

	drag(m, 0, 0, 10, 10, 0)
	drag(m, 20, 20, 40, 40, 0)

	assert.Equal(t, ToolRectangle, m.Tool())
	assert.Len(t, scene.Visible(), 2)
}

func TestMutationsNotifyRecorder(t *testing.T) {
	scene := state.NewScene()
	rec := &countingRecorder{}
	m := New(scene, rec, DefaultConfig())

	m.SetTool(ToolRectangle)
	drag(m, 0, 0, 10, 10, 0)
	assert.Positive(t, rec.n)

	n := rec.n
	m.Wheel(WheelEvent{DY: 10})
	assert.Equal(t, n, rec.n)
}

func TestPruneSelection(t *testing.T) {
	m, scene := newTestMachine(t)
	m.SetTool(ToolRectangle)
	drag(m, 0, 0, 10, 10, 0)
	id := m.Selected()[0]

	require.NoError(t, scene.Remove(id))
	m.PruneSelection()

	assert.Empty(t, m.Selected())
}
