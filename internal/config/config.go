// Package config loads serving-layer configuration from a YAML file
// with environment-variable overrides. The prediction core is not
// configurable at runtime; only artifact locations and HTTP settings
// live here.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Model struct {
		Path             string `yaml:"path"`
		PreprocessorPath string `yaml:"preprocessor_path"`
	} `yaml:"model"`
	History struct {
		Enabled bool   `yaml:"enabled"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"history"`
	RateLimit struct {
		RequestsPerMinute int `yaml:"requests_per_minute"`
		BurstMultiplier   int `yaml:"burst_multiplier"`
	} `yaml:"rate_limit"`
	TopK int `yaml:"top_k"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Model.Path = "models/model.json"
	cfg.Model.PreprocessorPath = "models/preprocessor.json"
	cfg.History.Enabled = true
	cfg.History.DataDir = "./data"
	cfg.RateLimit.RequestsPerMinute = 60
	cfg.RateLimit.BurstMultiplier = 2
	cfg.TopK = 5
	return cfg
}

// Load reads configuration from the given YAML file, falling back to
// defaults when the path is empty or the file does not exist, then
// applies environment overrides.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		file, err := os.Open(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to open config file: %w", err)
			}
		} else {
			defer file.Close()
			decoder := yaml.NewDecoder(file)
			if err := decoder.Decode(cfg); err != nil {
				return nil, fmt.Errorf("failed to decode config file: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if cfg.TopK < 1 {
		return nil, fmt.Errorf("top_k must be positive, got %d", cfg.TopK)
	}

	return cfg, nil
}

// applyEnv overrides file values with environment variables when set.
func (c *Config) applyEnv() {
	c.Server.Port = getEnvOrDefault("PORT", c.Server.Port)
	c.Model.Path = getEnvOrDefault("MODEL_PATH", c.Model.Path)
	c.Model.PreprocessorPath = getEnvOrDefault("PREPROCESSOR_PATH", c.Model.PreprocessorPath)
	c.History.DataDir = getEnvOrDefault("DATA_DIR", c.History.DataDir)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
