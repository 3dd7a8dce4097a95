package config

import "time"

// Config holds runtime settings for the VeilChat CLI.
//
// Fields:
//   - ServerURL: base URL of the backend HTTP endpoint.
//   - RequestTimeout: per-request deadline for backend calls.
//   - VaultPath: path to the local encrypted vault database file.
//   - SessionPollInterval: how often the session expiry check runs.
//   - RelockSweepInterval: how often expired message unlocks are swept.
//
// Durations are time.Duration values (e.g., 15*time.Second). The intervals
// default to the controller policy constants and exist for operators who need
// slower polling, not for weakening the lock windows themselves.
type Config struct {
	ServerURL           string
	RequestTimeout      time.Duration
	VaultPath           string
	SessionPollInterval time.Duration
	RelockSweepInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 15 * time.Second
	c.VaultPath = "veilchat.db"
	c.SessionPollInterval = 5 * time.Second
	c.RelockSweepInterval = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), environment variables, and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
