package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/config"
	"github.com/DjordjeVuckovic/news-digest/internal/storage/factory"
	"github.com/DjordjeVuckovic/news-digest/internal/summary"
	"github.com/DjordjeVuckovic/news-digest/pkg/config/env"
)

type Config struct {
	Env      string
	LogLevel slog.Level
	Policy   *config.Policy
	Storage  *factory.StorageConfig
	Fetch    FetchConfig
	// Summary is nil when OLLAMA_BASE_URL is not set.
	Summary *summary.Config
}

type FetchConfig struct {
	// Enhanced enables the headless browser path.
	Enhanced bool
	// BrowserURL is the DevTools URL of a running Chrome. Empty launches a local one.
	BrowserURL string
	// LaunchTimeout bounds starting a local Chrome.
	LaunchTimeout time.Duration
	// HostInterval spaces plain HTTP requests to one host. Zero disables the limiter.
	HostInterval time.Duration
	HostBurst    int
}

// LoadConfig loads the .env file at dotEnvPath (or ENV_PATH) and reads the engine environment.
func LoadConfig(dotEnvPath string) (*Config, error) {
	appEnv := os.Getenv("ENV")
	if err := env.LoadDotEnv(appEnv, dotEnvPath); err != nil {
		slog.Info("Skipping .env environment variables...", "error", err)
	}

	cfg := &Config{Env: appEnv, LogLevel: slog.LevelInfo}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", v, err)
		}
	}

	policy, err := config.LoadPolicyFile(os.Getenv("POLICY_PATH"))
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	cfg.Policy = policy

	storageCfg, err := factory.LoadEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load storage configuration: %w", err)
	}
	cfg.Storage = storageCfg

	interval, err := env.Duration("FETCH_HOST_INTERVAL", time.Second)
	if err != nil {
		return nil, err
	}
	burst, err := env.Int("FETCH_HOST_BURST", 2)
	if err != nil {
		return nil, err
	}
	launchTimeout, err := env.Duration("CHROME_LAUNCH_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.Fetch = FetchConfig{
		Enhanced:      env.Bool("ENHANCED_FETCH", true),
		BrowserURL:    os.Getenv("CHROME_URL"),
		LaunchTimeout: launchTimeout,
		HostInterval:  interval,
		HostBurst:     burst,
	}

	if os.Getenv("OLLAMA_BASE_URL") != "" {
		sumCfg, err := summary.LoadConfigFromEnv()
		if err != nil {
			return nil, err
		}
		cfg.Summary = sumCfg
	}

	return cfg, nil
}
