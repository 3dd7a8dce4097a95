package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	envServerURL      = "VEILCHAT_SERVER_URL"
	envRequestTimeout = "VEILCHAT_REQUEST_TIMEOUT"
	envVaultPath      = "VEILCHAT_VAULT_PATH"
)

// parseEnv overlays Config with values from environment variables. A .env
// file in the working directory is loaded first when present; variables
// already set in the real environment win over the file.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv(envServerURL); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv(envRequestTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RequestTimeout = d
		}
	}
	if v := os.Getenv(envVaultPath); v != "" {
		cfg.VaultPath = v
	}
}
