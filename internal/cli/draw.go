package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"LocalBoard/internal/board"
	"LocalBoard/internal/collab"
	"LocalBoard/internal/export"
	lbnet "LocalBoard/internal/net"
	"LocalBoard/internal/state"
	"LocalBoard/internal/storage"
	"LocalBoard/internal/ui"
)

type DrawOptions struct {
	*RootOptions
	Database string
	Discover bool
	Port     int
	Offline  bool
}

func NewDrawCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DrawOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "draw [link]",
		Short: "Open the whiteboard",
		Long: `Open the whiteboard and join a room.

With a link the board joins that room. With --discover it looks for a relay
on the local network and opens a new room there. Otherwise it hosts a relay
itself and prints the link to share.

Example:
  localboard draw
  localboard draw --discover
  localboard draw "localboard://192.168.1.20:8787/#room=...,..."`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Database == "" {
				opts.Database = opts.Config.Storage.Path
			}
			if !cmd.Flags().Changed("port") {
				opts.Port = opts.Config.Relay.Port
			}
			var link string
			if len(args) == 1 {
				link = args[0]
			}
			return runDraw(cmd.Context(), opts, link, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite scene store")
	cmd.Flags().BoolVar(&opts.Discover, "discover", false, "find a relay on the local network")
	cmd.Flags().IntVar(&opts.Port, "port", 8787, "port of the hosted relay")
	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "draw without joining a room")
	return cmd
}

// resolveLink picks the room to join and starts a hosted relay when no other
// relay is given.
func resolveLink(ctx context.Context, opts *DrawOptions, raw string) (collab.Link, error) {
	if raw != "" {
		return collab.ParseLink(raw)
	}
	if opts.Discover {
		found, err := lbnet.Browse(ctx, opts.Config.Client.DiscoveryTimeout)
		if err != nil {
			glog.Warningf("[CLI] discovery: %v", err)
		}
		if len(found) == 0 {
			return collab.Link{}, errors.New("no relay found on the local network")
		}
		return collab.GenerateLink(found[0])
	}

	relay := lbnet.NewRelay(relayConfig(opts.RootOptions))
	go func() {
		if err := lbnet.Serve(ctx, fmt.Sprintf(":%d", opts.Port), relay); err != nil {
			glog.Errorf("[CLI] hosted relay: %v", err)
		}
	}()
	if opts.Config.Relay.Advertise {
		if server, err := lbnet.Advertise(opts.Port); err == nil {
			go func() {
				<-ctx.Done()
				server.Shutdown()
			}()
		}
	}
	return collab.GenerateLink(lbnet.RelayAddress(opts.Port))
}

func runDraw(parent context.Context, opts *DrawOptions, raw string, cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	store, err := storage.Open(opts.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	var link collab.Link
	room := "offline"
	if !opts.Offline {
		link, err = resolveLink(ctx, opts, raw)
		if err != nil {
			return err
		}
		room = link.RoomID
		fmt.Fprintf(cmd.OutOrStdout(), "Share this link:\n  %s\n", link.String())
	}

	elements, err := store.Load(ctx, room)
	if err != nil && !errors.Is(err, storage.ErrNoSnapshot) {
		return err
	}

	icfg := opts.Config.Interact()
	app := ui.NewApp()
	icfg.MeasureText = ui.MeasureText
	b := board.New(elements, icfg, board.WithHistoryLimit(opts.Config.Editor.HistoryLimit))
	w := ui.NewBoardWidget(b)

	save := func() {
		if opts.Offline {
			// No peer can hold an older copy of anything deleted here.
			b.Prune()
		}
		saveCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := store.Save(saveCtx, room, b.Elements()); err != nil {
			glog.Warningf("[CLI] save: %v", err)
			w.SetStatus("Save failed")
			return
		}
		w.SetStatus("Saved")
	}
	reload := func() {
		loadCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		elements, err := store.Load(loadCtx, room)
		if err != nil {
			glog.Warningf("[CLI] reload: %v", err)
			w.SetStatus("Nothing saved for " + room)
			return
		}
		b.Load(elements)
		w.SetStatus("Reloaded")
	}
	go autosave(ctx, opts.Config.Storage.AutosaveInterval, save)

	if !opts.Offline {
		if err := joinRoom(ctx, opts, link, b, w); err != nil {
			w.SetStatus(fmt.Sprintf("Offline: %v", err))
		}
	}

	shareLink := ""
	if !opts.Offline {
		shareLink = link.String()
	}
	ui.RunApp(app, w, ui.AppOptions{
		Title: "LocalBoard " + room,
		Link:  shareLink,
		Actions: ui.Actions{
			Save:   save,
			Reload: reload,
			Export: func() {
				path := room + ".pdf"
				if err := export.WriteFile(path, b.Elements()); err != nil {
					w.SetStatus(fmt.Sprintf("Export failed: %v", err))
					return
				}
				w.SetStatus("Exported " + path)
			},
		},
		OnClose: func() {
			cancel()
			save()
		},
	})
	return nil
}

// joinRoom connects to the relay and keeps the board in sync with the room
// until ctx is done.
func joinRoom(ctx context.Context, opts *DrawOptions, link collab.Link, b *board.Board, w *ui.BoardWidget) error {
	client, err := lbnet.Dial(ctx, link.Relay)
	if err != nil {
		return err
	}
	session := collab.NewSession(b, client, link, collab.WithPresenceHook(w.PresenceChanged))
	session.Start(ctx)
	w.Presence = session.Collaborators
	w.OnRendered = session.Notify

	go func() {
		if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			glog.Warningf("[CLI] relay connection: %v", err)
			w.SetStatus("Disconnected from relay")
		}
	}()
	go session.Run(ctx, opts.Config.Client.SyncInterval)

	var (
		mu   sync.Mutex
		last time.Time
	)
	interval := opts.Config.Client.PointerInterval
	w.OnPointerMoved = func(p state.Point) {
		mu.Lock()
		if time.Since(last) < interval {
			mu.Unlock()
			return
		}
		last = time.Now()
		mu.Unlock()
		go func() {
			if err := session.BroadcastPointer(ctx, p); err != nil {
				glog.V(2).Infof("[CLI] pointer: %v", err)
			}
		}()
	}
	w.SetStatus("Connected to " + link.Relay)
	return nil
}

func autosave(ctx context.Context, interval time.Duration, save func()) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			save()
		}
	}
}
