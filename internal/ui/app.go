package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
)

type AppOptions struct {
	Title string
	// Link is the collaboration link offered by the copy action.
	Link    string
	Actions Actions
	// OnClose runs after the window closes.
	OnClose func()
}

// NewApp creates the fyne application. Call it before building widgets that
// measure text.
func NewApp() fyne.App {
	return app.NewWithID("io.localboard")
}

// RunApp shows board in a window and blocks until it closes.
func RunApp(a fyne.App, board *BoardWidget, opts AppOptions) {
	title := opts.Title
	if title == "" {
		title = "LocalBoard"
	}
	w := a.NewWindow(title)
	w.Resize(fyne.NewSize(1024, 768))

	actions := opts.Actions
	if opts.Link != "" && actions.CopyLink == nil {
		actions.CopyLink = func() {
			w.Clipboard().SetContent(opts.Link)
			board.SetStatus("Link copied: " + opts.Link)
		}
	}
	toolbar := NewToolbar(board, actions)

	content := container.NewBorder(toolbar, board.StatusBar(), nil, nil, board)
	w.SetContent(content)
	w.Canvas().Focus(board)
	w.ShowAndRun()

	if opts.OnClose != nil {
		opts.OnClose()
	}
}
