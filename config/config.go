// Package config handles application configuration.
//
// Settings are layered, lowest priority first: built-in defaults, the
// config file, POWLEDGER_* environment variables, command-line flags.
// Proof-of-work rules are not configurable.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Config holds runtime settings.
type Config struct {
	DataDir string `conf:"datadir"`

	Log     LogConfig
	Mining  MiningConfig
	Metrics MetricsConfig
	RPC     RPCConfig
}

// MaxMiningThreads caps the parallel nonce search.
const MaxMiningThreads = 256

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// MiningConfig holds nonce search settings. They change how fast a block is
// found, never which blocks are valid.
type MiningConfig struct {
	Threads     int    `conf:"mining.threads"`     // 0 or 1 = single search
	MaxAttempts uint64 `conf:"mining.maxattempts"` // 0 = unbounded
}

// MetricsConfig holds Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `conf:"metrics.enabled"`
	Addr    string `conf:"metrics.addr"`
}

// RPCConfig holds JSON-RPC API settings, used by the serve command.
type RPCConfig struct {
	Addr       string   `conf:"rpc.addr"`
	AllowedIPs []string `conf:"rpc.allowed"` // IPs or CIDRs; empty = allow all
	NoMining   bool     `conf:"rpc.nomining"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.powledger
//	macOS:   ~/Library/Application Support/Powledger
//	Windows: %APPDATA%\Powledger
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".powledger"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Powledger")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Powledger")
		}
		return filepath.Join(home, "AppData", "Roaming", "Powledger")
	default:
		return filepath.Join(home, ".powledger")
	}
}

// ChainDir returns the block database directory.
func (c *Config) ChainDir() string {
	return filepath.Join(c.DataDir, "chain")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return ConfigFileIn(c.DataDir)
}

// ConfigFileIn returns the config file path inside dataDir.
func ConfigFileIn(dataDir string) string {
	return filepath.Join(dataDir, "powledger.conf")
}

// EnsureDataDirs creates the data and chain directories.
func EnsureDataDirs(c *Config) error {
	for _, dir := range []string{c.DataDir, c.ChainDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
