// Package configfile loads sync targets and client settings from a YAML or
// TOML file. The format is chosen by the file extension.
package configfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ideamans/go-sheetsync"
	"gopkg.in/yaml.v3"
)

// Credential sources
const (
	SourceStore   = "store"    // OAuth credential saved by "auth exchange"
	SourceJSONKey = "json_key" // service account key file
	SourceDefault = "default"  // Application Default Credentials
)

// Backends
const (
	BackendGoogle = "google"
	BackendExcel  = "excel"
)

// DefaultInterval is the period of the run command
const DefaultInterval = 5 * time.Minute

// File is the whole configuration file
type File struct {
	Database    string      `yaml:"database" toml:"database"` // SQLite database path
	LogLevel    string      `yaml:"log_level" toml:"log_level"`
	Interval    Duration    `yaml:"interval" toml:"interval"`
	Credentials Credentials `yaml:"credentials" toml:"credentials"`
	Client      Client      `yaml:"client" toml:"client"`
	Targets     []Target    `yaml:"targets" toml:"targets"`

	path string
}

// Credentials selects how Google requests are authenticated
type Credentials struct {
	Source        string `yaml:"source" toml:"source"`
	JSONKey       string `yaml:"json_key" toml:"json_key"`
	ClientSecrets string `yaml:"client_secrets" toml:"client_secrets"` // OAuth client JSON for the auth commands
	RedirectURL   string `yaml:"redirect_url" toml:"redirect_url"`
}

// Client overrides the retry settings of the backend. Unset values keep the
// backend's defaults.
type Client struct {
	MaxRetries       *int     `yaml:"max_retries" toml:"max_retries"`
	RetryInterval    Duration `yaml:"retry_interval" toml:"retry_interval"`
	MaxRetryInterval Duration `yaml:"max_retry_interval" toml:"max_retry_interval"`
}

// Target is one sync target backed by a database table
type Target struct {
	Name                string            `yaml:"name" toml:"name"`
	Table               string            `yaml:"table" toml:"table"`
	Backend             string            `yaml:"backend" toml:"backend"`
	ExcelFile           string            `yaml:"excel_file" toml:"excel_file"`
	SpreadsheetID       string            `yaml:"spreadsheet_id" toml:"spreadsheet_id"`
	SheetName           string            `yaml:"sheet_name" toml:"sheet_name"`
	DataRange           string            `yaml:"data_range" toml:"data_range"`
	IdentityField       string            `yaml:"identity_field" toml:"identity_field"`
	SheetIdentityColumn string            `yaml:"sheet_identity_column" toml:"sheet_identity_column"`
	Columns             map[string]string `yaml:"columns" toml:"columns"`
	BatchSize           int               `yaml:"batch_size" toml:"batch_size"`
	MaxRows             int               `yaml:"max_rows" toml:"max_rows"`
	MaxColumn           string            `yaml:"max_column" toml:"max_column"`
	PushFields          FieldList         `yaml:"push_fields" toml:"push_fields"`
	PullFields          FieldList         `yaml:"pull_fields" toml:"pull_fields"`
	Mode                string            `yaml:"mode" toml:"mode"`
}

// Load reads, defaults and validates a configuration file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &f); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config file extension %q", sheetsync.ErrInvalidConfig, ext)
	}

	f.path = path
	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

// Path returns the file the configuration was loaded from
func (f *File) Path() string {
	return f.path
}

// applyDefaults fills in default values and resolves paths relative to the file.
func (f *File) applyDefaults() {
	if f.LogLevel == "" {
		f.LogLevel = "info"
	}
	if f.Interval <= 0 {
		f.Interval = Duration(DefaultInterval)
	}
	if f.Credentials.Source == "" {
		if f.Credentials.JSONKey != "" {
			f.Credentials.Source = SourceJSONKey
		} else {
			f.Credentials.Source = SourceStore
		}
	}

	dir := filepath.Dir(f.path)
	f.Database = resolve(dir, f.Database)
	f.Credentials.JSONKey = resolve(dir, f.Credentials.JSONKey)
	f.Credentials.ClientSecrets = resolve(dir, f.Credentials.ClientSecrets)

	for i := range f.Targets {
		t := &f.Targets[i]
		if t.Backend == "" {
			t.Backend = BackendGoogle
		}
		if t.Name == "" {
			t.Name = t.Table
		}
		t.ExcelFile = resolve(dir, t.ExcelFile)
		if t.Backend == BackendExcel && t.SpreadsheetID == "" {
			// the workbook stands in for the spreadsheet
			t.SpreadsheetID = t.ExcelFile
		}
	}
}

// Validate checks the settings that the sync targets cannot check themselves
func (f *File) Validate() error {
	if f.Database == "" {
		return fmt.Errorf("%w: database is required", sheetsync.ErrInvalidConfig)
	}
	if _, err := f.SlogLevel(); err != nil {
		return err
	}

	switch f.Credentials.Source {
	case SourceStore, SourceDefault:
	case SourceJSONKey:
		if f.Credentials.JSONKey == "" {
			return fmt.Errorf("%w: credentials.json_key is required for source %q", sheetsync.ErrInvalidConfig, SourceJSONKey)
		}
	default:
		return fmt.Errorf("%w: unknown credentials source %q", sheetsync.ErrInvalidConfig, f.Credentials.Source)
	}

	if len(f.Targets) == 0 {
		return fmt.Errorf("%w: no targets", sheetsync.ErrInvalidConfig)
	}
	seen := make(map[string]bool)
	for _, t := range f.Targets {
		if t.Table == "" {
			return fmt.Errorf("%w: target %q: table is required", sheetsync.ErrInvalidConfig, t.Name)
		}
		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate target name %q", sheetsync.ErrInvalidConfig, t.Name)
		}
		seen[t.Name] = true

		switch t.Backend {
		case BackendGoogle:
		case BackendExcel:
			if t.ExcelFile == "" {
				return fmt.Errorf("%w: target %q: excel_file is required for the excel backend", sheetsync.ErrInvalidConfig, t.Name)
			}
		default:
			return fmt.Errorf("%w: target %q: unknown backend %q", sheetsync.ErrInvalidConfig, t.Name, t.Backend)
		}

		st := t.SyncTarget()
		st.ApplyDefaults()
		if err := st.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error")
func (f *File) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log_level: %v", sheetsync.ErrInvalidConfig, err)
	}
	return level, nil
}

// SyncTarget converts the file entry into an engine target. Defaults are
// applied by sheetsync.New.
func (t Target) SyncTarget() sheetsync.Target {
	return sheetsync.Target{
		Name: t.Name,
		Location: sheetsync.Location{
			SpreadsheetID: t.SpreadsheetID,
			SheetName:     t.SheetName,
			DataRange:     t.DataRange,
		},
		IdentityField:       t.IdentityField,
		SheetIdentityColumn: t.SheetIdentityColumn,
		Columns:             t.Columns,
		BatchSize:           t.BatchSize,
		MaxRows:             t.MaxRows,
		MaxColumn:           t.MaxColumn,
		PushFields:          []string(t.PushFields),
		PullFields:          []string(t.PullFields),
		Mode:                sheetsync.Mode(t.Mode),
	}
}

// Apply returns a copy of base with the configured values overriding it
func (c Client) Apply(base *sheetsync.ClientConfig) *sheetsync.ClientConfig {
	cfg := *base
	if c.MaxRetries != nil {
		cfg.MaxRetries = *c.MaxRetries
	}
	if c.RetryInterval > 0 {
		cfg.RetryInterval = time.Duration(c.RetryInterval)
	}
	if c.MaxRetryInterval > 0 {
		cfg.MaxRetryInterval = time.Duration(c.MaxRetryInterval)
	}
	return &cfg
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
