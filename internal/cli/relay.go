package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"LocalBoard/internal/collab"
	lbnet "LocalBoard/internal/net"
)

type RelayOptions struct {
	*RootOptions
	Port      int
	Advertise bool
}

func NewRelayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RelayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run a room relay",
		Long: `Run the websocket relay peers use to exchange encrypted scene updates.

Example:
  localboard relay --port 8787
  localboard relay --mdns=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("port") {
				opts.Port = opts.Config.Relay.Port
			}
			if !cmd.Flags().Changed("mdns") {
				opts.Advertise = opts.Config.Relay.Advertise
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runRelay(ctx, opts, cmd)
		},
	}
	cmd.Flags().IntVar(&opts.Port, "port", 8787, "port to listen on")
	cmd.Flags().BoolVar(&opts.Advertise, "mdns", true, "advertise the relay on the local network")
	return cmd
}

func relayConfig(opts *RootOptions) lbnet.RelayConfig {
	rc := lbnet.DefaultRelayConfig()
	rc.QueueSize = opts.Config.Relay.QueueSize
	rc.WriteTimeout = opts.Config.Relay.WriteTimeout
	rc.ReadLimit = int64(opts.Config.Relay.ReadLimit)
	return rc
}

func runRelay(ctx context.Context, opts *RelayOptions, cmd *cobra.Command) error {
	if opts.Advertise {
		server, err := lbnet.Advertise(opts.Port)
		if err != nil {
			glog.Warningf("[CLI] mDNS disabled: %v", err)
		} else {
			defer server.Shutdown()
		}
	}

	link, err := collab.GenerateLink(lbnet.RelayAddress(opts.Port))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Relay on port %d. Open a new room with:\n  localboard draw %q\n", opts.Port, link.String())

	return lbnet.Serve(ctx, fmt.Sprintf(":%d", opts.Port), lbnet.NewRelay(relayConfig(opts.RootOptions)))
}
