package googlesheets

import (
	"time"

	"github.com/ideamans/go-sheetsync"
)

// Value input options of the Sheets API
const (
	InputUserEntered = "USER_ENTERED"
	InputRaw         = "RAW"
)

// Config represents configuration specific to Google Sheets adapter
type Config struct {
	// Credentials are resolved on the first request. Nil means the client
	// options given to NewSheetsAdaptor authenticate on their own.
	Credentials CredentialProvider

	// ValueInputOption controls how written cells are parsed (default: USER_ENTERED)
	ValueInputOption string
}

// DefaultClientConfig returns retry settings suited to the Sheets API quota
// (60 write requests per minute per user).
func DefaultClientConfig() *sheetsync.ClientConfig {
	return &sheetsync.ClientConfig{
		MaxRetries:       5,
		RetryInterval:    2 * time.Second,
		MaxRetryInterval: 64 * time.Second,
	}
}
