package env

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads the .env file named by ENV_PATH, or else the first of paths that exists.
// Values already present in the environment win. A missing file is only an error when
// env is "local" or empty.
func LoadDotEnv(env string, paths ...string) error {
	candidates := paths
	if p := os.Getenv("ENV_PATH"); p != "" {
		candidates = []string{p}
	} else {
		slog.Debug("ENV_PATH is not set, using default paths", "paths", paths)
	}

	for _, p := range candidates {
		err := godotenv.Load(p)
		if err == nil {
			slog.Debug("Loaded .env", "path", p)
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}

	if env == "local" || env == "" {
		return fmt.Errorf("no .env file found in %v: %w", candidates, fs.ErrNotExist)
	}
	slog.Debug("Skipping .env ...", "env", env)
	return nil
}
