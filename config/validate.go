package config

import (
	"fmt"
	"net"

	"github.com/Klingon-tech/powledger/internal/log"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir must not be empty")
	}
	if !log.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q must be one of debug, info, warn, error", cfg.Log.Level)
	}
	if cfg.Mining.Threads < 0 || cfg.Mining.Threads > MaxMiningThreads {
		return fmt.Errorf("mining.threads must be in range [0, %d]", MaxMiningThreads)
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}
	if cfg.RPC.Addr == "" {
		return fmt.Errorf("rpc.addr must not be empty")
	}
	for _, entry := range cfg.RPC.AllowedIPs {
		if net.ParseIP(entry) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(entry); err != nil {
			return fmt.Errorf("rpc.allowed: %q is not an IP or CIDR", entry)
		}
	}
	return nil
}
