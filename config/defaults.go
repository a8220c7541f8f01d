package config

import "github.com/spf13/viper"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
		Mining: MiningConfig{
			Threads: 1,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
		RPC: RPCConfig{
			Addr: "127.0.0.1:8645",
		},
	}
}

// SetDefaults registers the built-in configuration as viper defaults.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyDataDir, d.DataDir)
	v.SetDefault(KeyLogLevel, d.Log.Level)
	v.SetDefault(KeyLogFile, d.Log.File)
	v.SetDefault(KeyLogJSON, d.Log.JSON)
	v.SetDefault(KeyMiningThreads, d.Mining.Threads)
	v.SetDefault(KeyMiningMaxAttempts, d.Mining.MaxAttempts)
	v.SetDefault(KeyMetricsEnabled, d.Metrics.Enabled)
	v.SetDefault(KeyMetricsAddr, d.Metrics.Addr)
	v.SetDefault(KeyRPCAddr, d.RPC.Addr)
	v.SetDefault(KeyRPCAllowed, "")
	v.SetDefault(KeyRPCNoMining, d.RPC.NoMining)
}
