package entities

import (
	"fmt"
	"time"
)

// Config holds analysis settings
type Config struct {
	MinStringLength    int
	MaxFileSize        int64 // bytes kept in memory for header, security and packer analysis
	ChunkSize          int   // read size for streamed analyses
	InspectorTimeout   time.Duration
	Workers            int
	RulesDir           string
	KeyringPath        string
	RequireSignedRules bool
	CacheDir           string
	Log                LogConfig
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Pretty bool
}

// DefaultConfig returns the built-in settings
func DefaultConfig() Config {
	return Config{
		MinStringLength:  4,
		MaxFileSize:      256 << 20,
		ChunkSize:        64 << 10,
		InspectorTimeout: 10 * time.Second,
		Workers:          4,
		Log: LogConfig{
			Level:  "warn",
			Pretty: true,
		},
	}
}

// Validate checks that sizes and limits are usable
func (c *Config) Validate() error {
	if c.MinStringLength < 1 {
		return fmt.Errorf("min_string_length must be positive, got %d", c.MinStringLength)
	}
	if c.MaxFileSize < 1 {
		return fmt.Errorf("max_file_size must be positive, got %d", c.MaxFileSize)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.InspectorTimeout <= 0 {
		return fmt.Errorf("inspector_timeout must be positive, got %v", c.InspectorTimeout)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.RequireSignedRules && c.KeyringPath == "" {
		return fmt.Errorf("require_signed_rules needs a keyring")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}
