package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/veilchat/veilchat/internal/flagx"
	"github.com/veilchat/veilchat/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify the timeout either as a
// string like "15s" or as integer nanoseconds. After parsing, values are
// copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	VaultPath           string         `json:"vault_path"`
	SessionPollInterval timex.Duration `json:"session_poll_interval"`
	RelockSweepInterval timex.Duration `json:"relock_sweep_interval"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Only fields present in the file override the existing values. Panics on
// read or unmarshal errors (caller should recover if desired).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.VaultPath != "" {
		cfg.VaultPath = jc.VaultPath
	}
	if jc.SessionPollInterval.Duration != 0 {
		cfg.SessionPollInterval = time.Duration(jc.SessionPollInterval.Duration)
	}
	if jc.RelockSweepInterval.Duration != 0 {
		cfg.RelockSweepInterval = time.Duration(jc.RelockSweepInterval.Duration)
	}
}
