package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the server runtime settings. Values come from an optional
// YAML file (FACTDUEL_CONFIG) with environment variables taking precedence.
type Config struct {
	Port         int    `yaml:"port"`
	ClientURL    string `yaml:"client_url"`
	LogLevel     string `yaml:"log_level"`
	ProviderSeed int64  `yaml:"provider_seed"`
}

// Load resolves the configuration from defaults, file and environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:      5000,
		ClientURL: "http://localhost:3000",
		LogLevel:  "info",
	}

	if path := os.Getenv("FACTDUEL_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.Port = getEnvAsInt("PORT", cfg.Port)
	cfg.ClientURL = getEnv("CLIENT_URL", cfg.ClientURL)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
