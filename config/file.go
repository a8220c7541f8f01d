package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config keys, as written in the config file.
const (
	KeyDataDir           = "datadir"
	KeyLogLevel          = "log.level"
	KeyLogFile           = "log.file"
	KeyLogJSON           = "log.json"
	KeyMiningThreads     = "mining.threads"
	KeyMiningMaxAttempts = "mining.maxattempts"
	KeyMetricsEnabled    = "metrics.enabled"
	KeyMetricsAddr       = "metrics.addr"
	KeyRPCAddr           = "rpc.addr"
	KeyRPCAllowed        = "rpc.allowed"
	KeyRPCNoMining       = "rpc.nomining"
)

// EnvPrefix prefixes environment overrides, e.g. POWLEDGER_LOG_LEVEL.
const EnvPrefix = "powledger"

// NewViper returns a viper instance with defaults and environment
// overrides registered.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges a config file into v.
// Format: key = value (one per line, # for comments).
// A missing file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("properties")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DataDir: expandHome(v.GetString(KeyDataDir)),
		Log: LogConfig{
			Level: strings.ToLower(v.GetString(KeyLogLevel)),
			File:  expandHome(v.GetString(KeyLogFile)),
			JSON:  v.GetBool(KeyLogJSON),
		},
		Mining: MiningConfig{
			Threads:     v.GetInt(KeyMiningThreads),
			MaxAttempts: v.GetUint64(KeyMiningMaxAttempts),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool(KeyMetricsEnabled),
			Addr:    v.GetString(KeyMetricsAddr),
		},
		RPC: RPCConfig{
			Addr:       v.GetString(KeyRPCAddr),
			AllowedIPs: splitList(v.GetString(KeyRPCAllowed)),
			NoMining:   v.GetBool(KeyRPCNoMining),
		},
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList parses a comma separated value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string) error {
	d := Default()
	content := `# powledger configuration
#
# Proof-of-work rules (digest, "0000" prefix, genesis block) are fixed
# and cannot be changed here.

# Data directory (default: ~/.powledger)
# datadir = ~/.powledger

# ============================================================================
# Mining
# ============================================================================

# Parallel nonce search goroutines. 1 always finds the smallest nonce.
mining.threads = ` + fmt.Sprint(d.Mining.Threads) + `

# Give up after this many nonces (0 = never)
# mining.maxattempts = 0

# ============================================================================
# Metrics
# ============================================================================

metrics.enabled = false
metrics.addr = ` + d.Metrics.Addr + `

# ============================================================================
# JSON-RPC API (used by "powledger serve")
# ============================================================================

rpc.addr = ` + d.RPC.Addr + `

# Comma separated IPs or CIDRs allowed to call the API (empty = all)
# rpc.allowed = 127.0.0.1,10.0.0.0/8

# Refuse chain_mineBlock requests
# rpc.nomining = false

# ============================================================================
# Logging
# ============================================================================

log.level = ` + d.Log.Level + `
# log.file =
log.json = false
`
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
