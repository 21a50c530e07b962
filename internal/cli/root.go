// Package cli wires the packages into the localboard command.
package cli

import (
	"flag"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"LocalBoard/internal/config"
)

// RootOptions holds state shared by all subcommands.
type RootOptions struct {
	Config *config.Config
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "localboard",
		Short: "LocalBoard - a shared whiteboard for the local network",
		Long: `LocalBoard is a collaborative whiteboard. Peers meet in end-to-end
encrypted rooms on a relay that only forwards ciphertext.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// glog refuses to log until the Go flag set has been parsed.
			_ = flag.CommandLine.Parse(nil)
			opts.Config = config.Load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			glog.Flush()
		},
	}
	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	cmd.AddCommand(NewRelayCommand(opts))
	cmd.AddCommand(NewDrawCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewRoomsCommand(opts))
	return cmd
}

// Execute runs the root command.
func Execute() error {
	defer glog.Flush()
	return NewRootCommand().Execute()
}
