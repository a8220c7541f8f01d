package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Klingon-tech/powledger/internal/chain"
	"github.com/Klingon-tech/powledger/internal/node"
)

// demoData is mined on top of genesis by the demo command.
var demoData = []string{
	"Ayush",
	"Joshi",
	"I am 24 years old and am learning blockchain",
	"Decentralization",
}

func (a *app) demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Mine a short chain in memory and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := node.NewInMemory(a.cfg)
			if err != nil {
				return err
			}
			defer n.Stop()

			if _, err := n.Init(); err != nil {
				return err
			}
			if _, err := n.Mine(cmd.Context(), demoData, nil); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			blocks := n.Chain().Blocks()
			fmt.Fprintf(out, "Chain valid: %t\n", n.Chain().IsChainValid(blocks))

			selected, ok := n.Chain().SelectChain(blocks, blocks)
			fmt.Fprintf(out, "Selected chain: %d blocks (ok=%t)\n", len(selected), ok)

			return chain.Export(out, blocks)
		},
	}
}
