// Package config loads runtime configuration for the VeilChat CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Environment variables, optionally seeded from a .env file
//     (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend HTTP endpoint
//	-t int      request timeout (seconds)
//	-v string   path to the local vault database file
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "15s" or integer nanoseconds:
//
//	{
//	  "server_url": "https://chat.example.com",
//	  "request_timeout": "15s",
//	  "vault_path": "veilchat.db",
//	  "session_poll_interval": "5s",
//	  "relock_sweep_interval": "10s"
//	}
//
// Environment variables
//
//	VEILCHAT_SERVER_URL       base URL of the backend HTTP endpoint
//	VEILCHAT_REQUEST_TIMEOUT  request timeout, e.g. "15s"
//	VEILCHAT_VAULT_PATH       path to the local vault database file
//
// Primary API
//
//   - type Config                     — holds ServerURL, RequestTimeout and VaultPath
//   - func LoadConfig() *Config       — builds Config by applying all sources in order
//   - func (*Config) LoadDefaults()   — sets sensible defaults
package config
