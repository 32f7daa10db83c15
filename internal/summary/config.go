package summary

import (
	"errors"
	"os"
)

type Config struct {
	BaseURL string
	Model   string
}

// LoadConfigFromEnv reads OLLAMA_BASE_URL and SUMMARY_MODEL. The model defaults to llama3.1.
func LoadConfigFromEnv() (*Config, error) {
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		return nil, errors.New("OLLAMA_BASE_URL environment variable not set")
	}

	model := os.Getenv("SUMMARY_MODEL")
	if model == "" {
		model = "llama3.1"
	}
	return &Config{BaseURL: baseURL, Model: model}, nil
}
