// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	APIURL     string
	ListenAddr string
	DBPath     string
	SecretKey  []byte // 32-byte AES key, or nil when token encryption is disabled.
	PageSize   int
}

// Load reads configuration from environment variables and returns a validated
// Config. NEWSDECK_API_URL is required. Optional variables with defaults:
// NEWSDECK_LISTEN_ADDR (127.0.0.1:8080), NEWSDECK_DB_PATH (newsdeck.db),
// NEWSDECK_PAGE_SIZE (12). NEWSDECK_SECRET_KEY, when set, must be 64 hex
// characters (a 32-byte AES-256 key) and enables token encryption at rest.
func Load() (*Config, error) {
	apiURL := os.Getenv("NEWSDECK_API_URL")
	if apiURL == "" {
		return nil, fmt.Errorf("NEWSDECK_API_URL is required")
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("NEWSDECK_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "newsdeck.db"
	if v, ok := os.LookupEnv("NEWSDECK_DB_PATH"); ok {
		dbPath = v
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("NEWSDECK_SECRET_KEY"); ok && v != "" {
		key, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("NEWSDECK_SECRET_KEY is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("NEWSDECK_SECRET_KEY must decode to 32 bytes, got %d", len(key))
		}
		secretKey = key
	}

	pageSize := 12
	if v, ok := os.LookupEnv("NEWSDECK_PAGE_SIZE"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("NEWSDECK_PAGE_SIZE has invalid value %q", v)
		}
		pageSize = parsed
	}

	return &Config{
		APIURL:     apiURL,
		ListenAddr: listenAddr,
		DBPath:     dbPath,
		SecretKey:  secretKey,
		PageSize:   pageSize,
	}, nil
}
