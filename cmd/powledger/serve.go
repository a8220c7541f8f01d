package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Klingon-tech/powledger/config"
	klog "github.com/Klingon-tech/powledger/internal/log"
)

func (a *app) serveCmd() *cobra.Command {
	d := config.Default()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over JSON-RPC until interrupted",
		Long: `serve opens the ledger, seeds genesis if needed and exposes it over
JSON-RPC 2.0 on --rpc-addr. Methods: chain_getInfo, chain_getChain,
chain_getBlock, chain_isValid, chain_mineBlock, chain_submitBlock,
chain_selectChain, chain_adopt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			n, err := a.openNode()
			if err != nil {
				return err
			}
			defer n.Stop()

			if _, err := n.Init(); err != nil {
				return err
			}
			if err := n.StartRPC(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %d blocks on http://%s\n", n.Chain().Len(), n.RPCAddr())

			<-ctx.Done()
			klog.CLI.Info().Msg("Shutting down...")
			return nil
		},
	}

	f := cmd.Flags()
	f.String("rpc-addr", d.RPC.Addr, "JSON-RPC listen address")
	f.String("rpc-allowed", "", "comma separated IPs or CIDRs allowed to call the API")
	f.Bool("no-mining", d.RPC.NoMining, "refuse chain_mineBlock requests")
	if err := bindFlags(a.v, f, map[string]string{
		config.KeyRPCAddr:     "rpc-addr",
		config.KeyRPCAllowed:  "rpc-allowed",
		config.KeyRPCNoMining: "no-mining",
	}); err != nil {
		panic(err)
	}
	return cmd
}
