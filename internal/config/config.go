// Package config provides configuration management for eventfinder.
// It loads settings from environment variables with the EVENTFINDER_ prefix
// and provides sensible defaults for all configuration options.
package config

import (
	"os"
	"strconv"
)

// Config holds all configuration settings for the eventfinder application.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Corpus   CorpusConfig
	Security SecurityConfig
	Ranking  RankingConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 7272)
	Host string // Server host (default: 127.0.0.1)
}

// StorageConfig contains feedback persistence configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: sqlite, postgres, memory (default: sqlite)
	DataPath      string // Path to data directory (default: ./data)
	PostgresDSN   string // PostgreSQL connection string (used when StorageEngine is postgres)
}

// CorpusConfig contains event corpus source configuration.
type CorpusConfig struct {
	EventsPath   string // Path to the events CSV (default: ./data/events.csv)
	SynonymsPath string // Optional path to a YAML synonym table override
	WatchSource  bool   // Rebuild the corpus when the CSV changes (default: true)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string // Security mode: development, production (default: development)
	APIToken     string // API authentication token
}

// RankingConfig contains recommendation tuning.
type RankingConfig struct {
	DefaultLimit int // Default top-K when a request sets none (default: 10)
	MaxLimit     int // Hard cap on requested top-K (default: 100)
	CacheSize    int // Ranked-result LRU cache size (default: 256)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the EVENTFINDER_ prefix.
func LoadConfig() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("EVENTFINDER_PORT", 7272),
			Host: getEnv("EVENTFINDER_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			StorageEngine: getEnv("EVENTFINDER_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("EVENTFINDER_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("EVENTFINDER_POSTGRES_DSN", ""),
		},
		Corpus: CorpusConfig{
			EventsPath:   getEnv("EVENTFINDER_EVENTS_PATH", "./data/events.csv"),
			SynonymsPath: getEnv("EVENTFINDER_SYNONYMS_PATH", ""),
			WatchSource:  getEnvBool("EVENTFINDER_WATCH_SOURCE", true),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("EVENTFINDER_SECURITY_MODE", "development"),
			APIToken:     getEnv("EVENTFINDER_API_TOKEN", ""),
		},
		Ranking: RankingConfig{
			DefaultLimit: getEnvInt("EVENTFINDER_DEFAULT_LIMIT", 10),
			MaxLimit:     getEnvInt("EVENTFINDER_MAX_LIMIT", 100),
			CacheSize:    getEnvInt("EVENTFINDER_CACHE_SIZE", 256),
		},
	}, nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. If the environment variable exists but cannot be parsed as an
// integer, it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default
// value. It recognizes "true", "1", "yes" as true and "false", "0", "no" as
// false (case-insensitive).
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}
