package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Klingon-tech/powledger/config"
	klog "github.com/Klingon-tech/powledger/internal/log"
	"github.com/Klingon-tech/powledger/internal/node"
)

// app carries state shared by all subcommands.
type app struct {
	v   *viper.Viper
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}
	d := config.Default()

	root := &cobra.Command{
		Use:   "powledger",
		Short: "Proof-of-work append-only ledger",
		Long: `powledger keeps an append-only chain of proof-of-work blocks on disk.
Each block must link to its predecessor, carry the next ID and a SHA-256
hash starting with "0000".`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.String("datadir", d.DataDir, "data directory")
	pf.StringP("config", "c", "", "config file (default <datadir>/powledger.conf)")
	pf.StringP("log-level", "l", d.Log.Level, "log level (debug|info|warn|error)")
	pf.Bool("log-json", d.Log.JSON, "log JSON instead of console text")
	pf.String("log-file", "", "also write JSON logs to this file")
	pf.Int("threads", d.Mining.Threads, "parallel mining goroutines")
	pf.Bool("metrics", d.Metrics.Enabled, "serve Prometheus metrics")
	pf.String("metrics-addr", d.Metrics.Addr, "metrics listen address")

	if err := bindFlags(a.v, pf, map[string]string{
		config.KeyDataDir:        "datadir",
		config.KeyLogLevel:       "log-level",
		config.KeyLogJSON:        "log-json",
		config.KeyLogFile:        "log-file",
		config.KeyMiningThreads:  "threads",
		config.KeyMetricsEnabled: "metrics",
		config.KeyMetricsAddr:    "metrics-addr",
	}); err != nil {
		panic(err)
	}

	root.AddCommand(
		a.initCmd(),
		a.mineCmd(),
		a.validateCmd(),
		a.showCmd(),
		a.exportCmd(),
		a.selectCmd(),
		a.serveCmd(),
		a.demoCmd(),
		versionCmd(),
	)
	return root
}

// bindFlags binds each config key to the named flag so that a flag set on
// the command line overrides file and environment values.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		flag := fs.Lookup(name)
		if flag == nil {
			return fmt.Errorf("bind %s: no flag --%s", key, name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// setup loads configuration and initializes logging.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfgFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	if cfgFile == "" {
		cfgFile = config.ConfigFileIn(a.v.GetString(config.KeyDataDir))
	}
	if err := config.ReadFile(a.v, cfgFile); err != nil {
		return err
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	if err := node.InitLogging(cfg, cmd.ErrOrStderr()); err != nil {
		return err
	}
	a.cfg = cfg

	if used := a.v.ConfigFileUsed(); used != "" {
		klog.CLI.Debug().Str("file", used).Msg("Using config file")
	}
	return nil
}

// openNode opens the on-disk ledger. Callers must Stop it.
func (a *app) openNode() (*node.Node, error) {
	n, err := node.New(a.cfg)
	if err != nil {
		return nil, err
	}
	if addr := n.MetricsAddr(); addr != "" {
		klog.CLI.Info().Str("addr", addr).Msg("Serving metrics")
	}
	return n, nil
}
