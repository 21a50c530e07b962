package ui

import (
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/golang/glog"

	"LocalBoard/internal/board"
	"LocalBoard/internal/collab"
	"LocalBoard/internal/interact"
	"LocalBoard/internal/state"
)

// mousePointer is the pointer id used for the desktop mouse.
const mousePointer = 1

// BoardWidget adapts fyne input to a board.Board and draws its snapshots.
type BoardWidget struct {
	widget.BaseWidget
	board *board.Board

	// Presence returns the collaborators to draw. Optional.
	Presence func() []collab.Collaborator
	// OnPointerMoved receives the local pointer in scene coordinates.
	OnPointerMoved func(state.Point)
	// OnRendered runs on the UI goroutine after each redraw caused by a
	// board change. It must not block.
	OnRendered func()
	ShowGrid   bool

	mu     sync.Mutex
	mods   interact.Modifiers
	size   fyne.Size
	editor *widget.PopUp

	statusBar *widget.Label
}

var (
	_ fyne.Widget         = (*BoardWidget)(nil)
	_ fyne.Draggable      = (*BoardWidget)(nil)
	_ fyne.Scrollable     = (*BoardWidget)(nil)
	_ fyne.Focusable      = (*BoardWidget)(nil)
	_ fyne.DoubleTappable = (*BoardWidget)(nil)
	_ desktop.Mouseable   = (*BoardWidget)(nil)
	_ desktop.Hoverable   = (*BoardWidget)(nil)
	_ desktop.Keyable     = (*BoardWidget)(nil)
)

func NewBoardWidget(b *board.Board) *BoardWidget {
	w := &BoardWidget{
		board:     b,
		ShowGrid:  true,
		statusBar: widget.NewLabel("Ready"),
	}
	w.ExtendBaseWidget(w)
	b.SetOnChange(func() { fyne.Do(w.changed) })
	return w
}

// Board returns the board the widget edits.
func (w *BoardWidget) Board() *board.Board { return w.board }

// SetStatus updates the status line. Safe from any goroutine.
func (w *BoardWidget) SetStatus(text string) {
	fyne.Do(func() { w.statusBar.SetText(text) })
}

// PresenceChanged redraws collaborator pointers. Safe from any goroutine.
func (w *BoardWidget) PresenceChanged() {
	fyne.Do(w.Refresh)
}

func (w *BoardWidget) changed() {
	w.Refresh()
	w.syncEditor()
	if w.OnRendered != nil {
		w.OnRendered()
	}
}

// syncEditor opens the text entry when the board starts editing a text
// element.
func (w *BoardWidget) syncEditor() {
	snap := w.board.Snapshot()
	w.mu.Lock()
	open := w.editor != nil
	w.mu.Unlock()
	if snap.EditingID == "" || open {
		return
	}
	c := fyne.CurrentApp().Driver().CanvasForObject(w)
	if c == nil {
		return
	}
	var current string
	for _, el := range snap.Elements {
		if el.ID == snap.EditingID {
			current = el.Text
		}
	}

	entry := widget.NewMultiLineEntry()
	entry.SetText(current)
	var pop *widget.PopUp
	done := func() {
		pop.Hide()
		w.mu.Lock()
		w.editor = nil
		w.mu.Unlock()
		w.board.CommitText(strings.TrimRight(entry.Text, "\n"))
		c.Focus(w)
	}
	content := container.NewBorder(nil, widget.NewButton("Done", done), nil, nil, entry)
	pop = widget.NewModalPopUp(content, c)
	pop.Resize(fyne.NewSize(320, 160))

	w.mu.Lock()
	w.editor = pop
	w.mu.Unlock()
	pop.Show()
	c.Focus(entry)
}

func (w *BoardWidget) pointerEvent(pos fyne.Position, button interact.Button, mods interact.Modifiers) interact.PointerEvent {
	return interact.PointerEvent{
		ID:     mousePointer,
		X:      float64(pos.X),
		Y:      float64(pos.Y),
		Button: button,
		Mods:   mods,
	}
}

func toButton(b desktop.MouseButton) interact.Button {
	switch b {
	case desktop.MouseButtonSecondary:
		return interact.ButtonSecondary
	case desktop.MouseButtonTertiary:
		return interact.ButtonMiddle
	}
	return interact.ButtonPrimary
}

func toModifiers(m fyne.KeyModifier) interact.Modifiers {
	var out interact.Modifiers
	if m&fyne.KeyModifierShift != 0 {
		out |= interact.ModShift
	}
	if m&fyne.KeyModifierAlt != 0 {
		out |= interact.ModAlt
	}
	if m&(fyne.KeyModifierControl|fyne.KeyModifierSuper) != 0 {
		out |= interact.ModCtrl
	}
	return out
}

func (w *BoardWidget) currentMods() interact.Modifiers {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mods
}

func (w *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if c := fyne.CurrentApp().Driver().CanvasForObject(w); c != nil {
		c.Focus(w)
	}
	w.board.PointerDown(w.pointerEvent(e.Position, toButton(e.Button), toModifiers(e.Modifier)))
}

func (w *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	w.board.PointerUp(w.pointerEvent(e.Position, toButton(e.Button), toModifiers(e.Modifier)))
}

func (w *BoardWidget) Dragged(e *fyne.DragEvent) {
	w.board.PointerMove(w.pointerEvent(e.Position, interact.ButtonPrimary, w.currentMods()))
	w.pointerMoved()
}

func (w *BoardWidget) DragEnd() {}

func (w *BoardWidget) MouseIn(*desktop.MouseEvent) {}

func (w *BoardWidget) MouseMoved(e *desktop.MouseEvent) {
	w.board.PointerMove(w.pointerEvent(e.Position, interact.ButtonPrimary, toModifiers(e.Modifier)))
	w.pointerMoved()
}

func (w *BoardWidget) MouseOut() {}

func (w *BoardWidget) pointerMoved() {
	if w.OnPointerMoved != nil {
		w.OnPointerMoved(w.board.Cursor())
	}
}

func (w *BoardWidget) DoubleTapped(e *fyne.PointEvent) {
	w.board.DoubleClick(w.pointerEvent(e.Position, interact.ButtonPrimary, w.currentMods()))
}

func (w *BoardWidget) Scrolled(e *fyne.ScrollEvent) {
	w.board.Wheel(interact.WheelEvent{
		X:    float64(e.Position.X),
		Y:    float64(e.Position.Y),
		DX:   float64(e.Scrolled.DX),
		DY:   float64(e.Scrolled.DY),
		Mods: w.currentMods(),
	})
}

func (w *BoardWidget) FocusGained() {}

func (w *BoardWidget) FocusLost() {
	w.mu.Lock()
	w.mods = 0
	w.mu.Unlock()
	w.board.Blur()
}

func (w *BoardWidget) TypedRune(rune)          {}
func (w *BoardWidget) TypedKey(*fyne.KeyEvent) {}

var modifierKeys = map[fyne.KeyName]interact.Modifiers{
	desktop.KeyShiftLeft:    interact.ModShift,
	desktop.KeyShiftRight:   interact.ModShift,
	desktop.KeyAltLeft:      interact.ModAlt,
	desktop.KeyAltRight:     interact.ModAlt,
	desktop.KeyControlLeft:  interact.ModCtrl,
	desktop.KeyControlRight: interact.ModCtrl,
	desktop.KeySuperLeft:    interact.ModCtrl,
	desktop.KeySuperRight:   interact.ModCtrl,
}

var keyNames = map[fyne.KeyName]string{
	fyne.KeyEscape:    interact.KeyEscape,
	fyne.KeyReturn:    interact.KeyEnter,
	fyne.KeyEnter:     interact.KeyEnter,
	fyne.KeySpace:     interact.KeySpace,
	fyne.KeyDelete:    interact.KeyDelete,
	fyne.KeyBackspace: interact.KeyBackspace,
	fyne.KeyLeft:      interact.KeyArrowLeft,
	fyne.KeyRight:     interact.KeyArrowRight,
	fyne.KeyUp:        interact.KeyArrowUp,
	fyne.KeyDown:      interact.KeyArrowDown,
}

// toKey maps a fyne key name to the machine's key name. Letters become
// lower case.
func toKey(name fyne.KeyName) (string, bool) {
	if k, ok := keyNames[name]; ok {
		return k, true
	}
	if len(name) == 1 {
		return strings.ToLower(string(name)), true
	}
	return "", false
}

func (w *BoardWidget) KeyDown(e *fyne.KeyEvent) {
	if m, ok := modifierKeys[e.Name]; ok {
		w.mu.Lock()
		w.mods |= m
		w.mu.Unlock()
		return
	}
	key, ok := toKey(e.Name)
	if !ok {
		return
	}
	if w.board.KeyDown(interact.KeyEvent{Key: key, Mods: w.currentMods()}) {
		glog.V(2).Infof("[UI] key %s handled", key)
	}
}

func (w *BoardWidget) KeyUp(e *fyne.KeyEvent) {
	if m, ok := modifierKeys[e.Name]; ok {
		w.mu.Lock()
		w.mods &^= m
		w.mu.Unlock()
		return
	}
	if key, ok := toKey(e.Name); ok {
		w.board.KeyUp(interact.KeyEvent{Key: key, Mods: w.currentMods()})
	}
}

func (w *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	return &boardWidgetRenderer{widget: w}
}

type boardWidgetRenderer struct {
	widget  *BoardWidget
	objects []fyne.CanvasObject
}

func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.widget.mu.Lock()
	changed := r.widget.size != size
	r.widget.size = size
	r.widget.mu.Unlock()
	if changed {
		r.widget.board.Resize(float64(size.Width), float64(size.Height))
	}
	r.Refresh()
}

func (r *boardWidgetRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *boardWidgetRenderer) Refresh() {
	var peers []collab.Collaborator
	if r.widget.Presence != nil {
		peers = r.widget.Presence()
	}
	r.widget.mu.Lock()
	size := r.widget.size
	r.widget.mu.Unlock()
	r.objects = sceneObjects(r.widget.board.Snapshot(), peers, size, r.widget.ShowGrid)
	canvas.Refresh(r.widget)
}

func (r *boardWidgetRenderer) Destroy() {}

// MeasureText sizes text with the application font. Assign it to
// interact.Config.MeasureText.
func MeasureText(text, font string) (float64, float64) {
	s := fyne.MeasureText(text, float32(state.FontSize(font)), fyne.TextStyle{})
	return float64(s.Width), float64(s.Height)
}

// StatusBar is the label SetStatus writes to.
func (w *BoardWidget) StatusBar() *widget.Label { return w.statusBar }
