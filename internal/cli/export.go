package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"LocalBoard/internal/export"
	"LocalBoard/internal/storage"
)

type ExportOptions struct {
	*RootOptions
	Database string
}

func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <room> <out.pdf>",
		Short: "Export a saved room to PDF",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Database == "" {
				opts.Database = opts.Config.Storage.Path
			}
			store, err := storage.Open(opts.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			elements, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := export.WriteFile(args[1], elements); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d elements to %s\n", len(elements), args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite scene store")
	return cmd
}

func NewRoomsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "List saved rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Database == "" {
				opts.Database = opts.Config.Storage.Path
			}
			store, err := storage.Open(opts.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			rooms, err := store.Rooms(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ROOM\tSAVED")
			for _, r := range rooms {
				fmt.Fprintf(tw, "%s\t%s\n", r.Room, r.UpdatedAt.Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the SQLite scene store")

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <room>...",
		Short: "Delete saved rooms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Database == "" {
				opts.Database = opts.Config.Storage.Path
			}
			store, err := storage.Open(opts.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, room := range args {
				if err := store.Delete(cmd.Context(), room); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", room)
			}
			return nil
		},
	})
	return cmd
}
