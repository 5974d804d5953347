package sheetsync

import (
	"fmt"
	"time"
)

// Mode selects which direction a target is synchronized in
type Mode string

const (
	ModeSync Mode = "sync" // pull, then push
	ModePull Mode = "pull"
	ModePush Mode = "push"
)

// AllFields is the PullFields value meaning "every header in the sheet".
const AllFields = "all"

// Default values applied by Target.ApplyDefaults
const (
	DefaultSheetName           = "Sheet1"
	DefaultDataRange           = "A1:Z"
	DefaultIdentityField       = "id"
	DefaultSheetIdentityColumn = "Django GUID"
	DefaultBatchSize           = 500
	DefaultMaxRows             = 30000
	DefaultMaxColumn           = "Z"
)

// Location identifies one rectangular region of one sheet
type Location struct {
	SpreadsheetID string
	SheetName     string
	DataRange     string // e.g. "A1:Z"; the first row of the range is the header row
}

// Range returns the A1 address of the whole data range.
func (l Location) Range() string {
	return ComposeRange(l.SheetName, l.DataRange)
}

// Target is the configuration of one sync target: where the rows live and how
// local fields map onto them.
type Target struct {
	Name string
	Location

	IdentityField       string            // local field that identifies a record
	SheetIdentityColumn string            // header of the column storing IdentityField
	Columns             map[string]string // field -> header overrides; default is the field name

	BatchSize int
	MaxRows   int
	MaxColumn string

	PushFields []string // empty means every field of the store
	PullFields []string // empty or ["all"] means every header

	Mode Mode
}

// ApplyDefaults fills zero values with the documented defaults
func (t *Target) ApplyDefaults() {
	if t.SheetName == "" {
		t.SheetName = DefaultSheetName
	}
	if t.DataRange == "" {
		t.DataRange = DefaultDataRange
	}
	if t.IdentityField == "" {
		t.IdentityField = DefaultIdentityField
	}
	if t.SheetIdentityColumn == "" {
		t.SheetIdentityColumn = DefaultSheetIdentityColumn
	}
	if t.BatchSize <= 0 {
		t.BatchSize = DefaultBatchSize
	}
	if t.MaxRows <= 0 {
		t.MaxRows = DefaultMaxRows
	}
	if t.MaxColumn == "" {
		t.MaxColumn = DefaultMaxColumn
	}
	if t.Mode == "" {
		t.Mode = ModeSync
	}
}

// Validate checks that the target can be addressed. Call ApplyDefaults first.
func (t *Target) Validate() error {
	if t.SpreadsheetID == "" {
		return fmt.Errorf("%w: target %q: spreadsheet id is required", ErrInvalidConfig, t.Name)
	}
	if _, err := ColumnLetterToIndex(t.MaxColumn); err != nil {
		return fmt.Errorf("target %q: max column: %w", t.Name, err)
	}
	if _, _, err := t.RowBounds(); err != nil {
		return fmt.Errorf("target %q: %w", t.Name, err)
	}
	startCol, endCol, err := t.ColumnBounds()
	if err != nil {
		return fmt.Errorf("target %q: %w", t.Name, err)
	}
	if err := (RangeAddress{Sheet: t.SheetName, StartColumn: startCol, EndColumn: endCol, StartRow: 1}).Validate(); err != nil {
		return fmt.Errorf("target %q: %w", t.Name, err)
	}
	switch t.Mode {
	case ModeSync, ModePull, ModePush:
	default:
		return fmt.Errorf("%w: target %q: unknown mode %q", ErrInvalidConfig, t.Name, t.Mode)
	}
	return nil
}

// RowBounds returns the first (header) and last row of the data range.
func (t *Target) RowBounds() (int, int, error) {
	return ParseRowBounds(t.DataRange, t.MaxRows)
}

// ColumnBounds returns the first and last column letter of the data range.
func (t *Target) ColumnBounds() (string, string, error) {
	return ParseColumnBounds(t.DataRange, t.MaxColumn)
}

// HeaderFor returns the sheet header a local field is stored under.
func (t *Target) HeaderFor(field string) string {
	if field == t.IdentityField {
		return t.SheetIdentityColumn
	}
	if h, ok := t.Columns[field]; ok && h != "" {
		return h
	}
	return field
}

// FieldFor is the inverse of HeaderFor.
func (t *Target) FieldFor(header string) string {
	if header == t.SheetIdentityColumn {
		return t.IdentityField
	}
	for field, h := range t.Columns {
		if h == header {
			return field
		}
	}
	return header
}

// pullsAll reports whether every header is pulled.
func (t *Target) pullsAll() bool {
	return len(t.PullFields) == 0 || (len(t.PullFields) == 1 && t.PullFields[0] == AllFields)
}

// ClientConfig controls the retry behavior of Client
type ClientConfig struct {
	MaxRetries       int           // Maximum number of retries for transient failures (default: 3)
	RetryInterval    time.Duration // Base interval for exponential backoff (default: 1s)
	MaxRetryInterval time.Duration // Upper bound of a single backoff wait (default: 32s)
}

// DefaultClientConfig returns the recommended retry settings for the Sheets API quota.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		MaxRetries:       3,
		RetryInterval:    1 * time.Second,
		MaxRetryInterval: 32 * time.Second,
	}
}
