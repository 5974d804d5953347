package excel

import (
	"time"

	"github.com/ideamans/go-sheetsync"
)

// Config holds configuration for Excel adapter.
// The sheet is taken from each requested range, so one file can hold many targets.
type Config struct {
	FilePath string // Path to the Excel file
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.FilePath == "" {
		return ErrMissingFilePath
	}
	return nil
}

// DefaultClientConfig returns the recommended default configuration for Excel.
// Local files fail permanently, so nothing is retried.
func DefaultClientConfig() *sheetsync.ClientConfig {
	return &sheetsync.ClientConfig{
		MaxRetries:       0,
		RetryInterval:    1 * time.Second,
		MaxRetryInterval: 1 * time.Second,
	}
}
