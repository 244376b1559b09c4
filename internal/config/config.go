package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates all settings for the client tooling and the mock server.
type Config struct {
	Server ServerConfig
	Client ClientConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	client, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Client: client}, nil
}

// ServerConfig describes the mock server's HTTP listener.
type ServerConfig struct {
	Addr string
}

// loadServerConfig parses the listen address.
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// ClientConfig describes how the API client reaches the backend.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

func loadClientConfig() (ClientConfig, error) {
	timeoutSeconds := 30
	if override, err := parseOptionalIntEnv("SCOPEWISE_TIMEOUT"); err != nil {
		return ClientConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return ClientConfig{}, fmt.Errorf("SCOPEWISE_TIMEOUT must be positive, got %d", *override)
		}
		timeoutSeconds = *override
	}

	return ClientConfig{
		BaseURL: getEnvOrDefault("SCOPEWISE_API_URL", "http://127.0.0.1:8080"),
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
