package server

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/DjordjeVuckovic/news-digest/pkg/config/env"
	"github.com/DjordjeVuckovic/news-digest/pkg/utils"
)

type Config struct {
	Port        string
	UseHttp2    bool
	CorsOrigins []string
}

var (
	errPortNotNumber = errors.New("port must be a number")
	errPortRange     = errors.New("port must be between 1 and 65535")
)

// LoadConfig reads PORT, USE_HTTP2 and CORS_ORIGINS. The .env file is loaded by the caller.
func LoadConfig() (*Config, error) {
	port := env.String("PORT", "8080")
	if err := validatePort(port); err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", port, err)
	}

	origins := utils.SplitAndTrim(os.Getenv("CORS_ORIGINS"), ",")
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Config{
		Port:        port,
		UseHttp2:    env.Bool("USE_HTTP2", false),
		CorsOrigins: origins,
	}, nil
}

func validatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil {
		return errPortNotNumber
	}
	if n < 1 || n > 65535 {
		return errPortRange
	}
	return nil
}
