package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Klingon-tech/powledger/internal/chain"
	"github.com/Klingon-tech/powledger/internal/rpcclient"
	"github.com/Klingon-tech/powledger/pkg/block"
)

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the ledger and seed the genesis block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.openNode()
			if err != nil {
				return err
			}
			defer n.Stop()

			seeded, err := n.Init()
			if err != nil {
				return err
			}
			if seeded {
				fmt.Fprintf(cmd.OutOrStdout(), "Initialized ledger at %s\n", a.cfg.ChainDir())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Ledger already initialized (%d blocks)\n", n.Chain().Len())
			}
			return nil
		},
	}
}

func (a *app) mineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine <data>...",
		Short: "Mine and append one block per argument",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			n, err := a.openNode()
			if err != nil {
				return err
			}
			defer n.Stop()

			var bar *progressbar.ProgressBar
			if len(args) > 1 {
				bar = progressbar.NewOptions(
					len(args),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionClearOnFinish(),
					progressbar.OptionSetDescription("Mining blocks..."),
					progressbar.OptionShowCount(),
					progressbar.OptionSetTheme(progressbar.Theme{
						Saucer:        "=",
						SaucerHead:    ">",
						SaucerPadding: " ",
						BarStart:      "[",
						BarEnd:        "]",
					}),
				)
				if err := bar.RenderBlank(); err != nil {
					return fmt.Errorf("failed to render progress bar: %w", err)
				}
			}

			mined, err := n.Mine(ctx, args, func(b *block.Block) {
				if bar != nil {
					_ = bar.Add(1)
				}
			})
			if bar != nil {
				_ = bar.Finish()
			}
			for _, b := range mined {
				fmt.Fprintf(cmd.OutOrStdout(), "Mined block %d nonce=%d hash=%s\n", b.ID, b.Nonce, b.Hash)
			}
			return err
		},
	}
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check every link, ID and hash in the stored chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.openNode()
			if err != nil {
				return err
			}
			defer n.Stop()

			if err := n.Chain().Validate(); err != nil {
				return fmt.Errorf("chain is invalid: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Chain is valid (%d blocks)\n", n.Chain().Len())
			return nil
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.openNode()
			if err != nil {
				return err
			}
			defer n.Stop()

			blocks := n.Chain().Blocks()
			if asJSON {
				return chain.Export(cmd.OutOrStdout(), blocks)
			}
			return renderTable(cmd, blocks)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the chain document as JSON")
	return cmd
}

func renderTable(cmd *cobra.Command, blocks []*block.Block) error {
	data := pterm.TableData{{"ID", "Nonce", "Timestamp", "Data", "Hash"}}
	for _, b := range blocks {
		data = append(data, []string{
			strconv.FormatUint(b.ID, 10),
			strconv.FormatUint(b.Nonce, 10),
			time.Unix(b.Timestamp, 0).UTC().Format(time.RFC3339),
			b.Data,
			b.Hash,
		})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the chain document to a file (- for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.openNode()
			if err != nil {
				return err
			}
			defer n.Stop()

			blocks := n.Chain().Blocks()
			if args[0] == "-" {
				return chain.Export(cmd.OutOrStdout(), blocks)
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := chain.Export(f, blocks); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d blocks to %s\n", len(blocks), args[0])
			return nil
		},
	}
}

func (a *app) selectCmd() *cobra.Command {
	var adopt bool
	cmd := &cobra.Command{
		Use:   "select <file|url>",
		Short: "Run fork choice between the stored chain and a chain document",
		Long: `select compares the stored chain with a remote one. The remote chain is
read from a file written by "export", or fetched from a node running
"serve" when the argument is an http(s) URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			remote, err := readRemote(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			n, err := a.openNode()
			if err != nil {
				return err
			}
			defer n.Stop()

			local := n.Chain().Blocks()
			selected, ok := n.Chain().SelectChain(local, remote)
			out := cmd.OutOrStdout()
			switch {
			case !ok:
				return fmt.Errorf("neither chain is valid")
			case isRemote(selected, remote):
				fmt.Fprintf(out, "Selected remote chain (%d blocks, local has %d)\n", len(remote), len(local))
			default:
				fmt.Fprintf(out, "Selected local chain (%d blocks, remote has %d)\n", len(local), len(remote))
			}

			if !adopt {
				return nil
			}
			changed, err := n.Chain().Adopt(remote)
			if err != nil {
				return err
			}
			if changed {
				fmt.Fprintf(out, "Adopted remote chain (%d blocks)\n", n.Chain().Len())
			} else {
				fmt.Fprintln(out, "Kept local chain")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&adopt, "adopt", false, "replace the stored chain when the remote one is selected and longer")
	return cmd
}

// readRemote loads a chain from a file or, for http(s) URLs, from a
// node's JSON-RPC API.
func readRemote(ctx context.Context, src string) ([]*block.Block, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return readDocument(src)
	}
	doc, err := rpcclient.New(src).GetChain(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	return doc.Chain, nil
}

func readDocument(path string) ([]*block.Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	blocks, err := chain.Import(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return blocks, nil
}

// isRemote reports whether fork choice returned the remote slice.
func isRemote(selected, remote []*block.Block) bool {
	if len(selected) != len(remote) {
		return false
	}
	return len(remote) == 0 || selected[0] == remote[0]
}
