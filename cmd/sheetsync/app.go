package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/ideamans/go-sheetsync"
	"github.com/ideamans/go-sheetsync/adapters/excel"
	"github.com/ideamans/go-sheetsync/adapters/googlesheets"
	"github.com/ideamans/go-sheetsync/configfile"
	"github.com/ideamans/go-sheetsync/stores/sqlite"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

// nopCloser is returned when logs go to stderr
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newLogger builds the text logger of the process. The --log-level flag wins
// over the configuration file.
func (o *rootOptions) newLogger(cmd *cobra.Command, file *configfile.File) (*slog.Logger, io.Closer, error) {
	level, err := file.SlogLevel()
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
			return nil, nil, fmt.Errorf("invalid --log-level: %w", err)
		}
	}

	var w io.Writer = cmd.ErrOrStderr()
	var closer io.Closer = nopCloser{}
	if o.logFile != "" {
		lj := &lumberjack.Logger{
			Filename:   o.logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		w, closer = lj, lj
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closer, nil
}

// app is the state shared by one command invocation (or one scheduled run)
type app struct {
	file   *configfile.File
	db     *sqlite.DB
	logger *slog.Logger
	google *googlesheets.SheetsAdaptor
}

func openApp(file *configfile.File, logger *slog.Logger) (*app, error) {
	db, err := sqlite.Open(file.Database)
	if err != nil {
		return nil, err
	}
	return &app{file: file, db: db, logger: logger}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func (a *app) credentials() googlesheets.CredentialProvider {
	switch a.file.Credentials.Source {
	case configfile.SourceJSONKey:
		return googlesheets.FromJSONKeyFile(a.file.Credentials.JSONKey)
	case configfile.SourceDefault:
		return googlesheets.FromDefaultCredentials()
	default:
		return googlesheets.FromStore(a.db)
	}
}

// backend returns the transport of a target with its retry settings.
// Google targets share one adaptor so credentials are resolved once.
func (a *app) backend(t configfile.Target) (sheetsync.SheetAPI, *sheetsync.ClientConfig, error) {
	switch t.Backend {
	case configfile.BackendExcel:
		adapter, err := excel.New(&excel.Config{FilePath: t.ExcelFile})
		if err != nil {
			return nil, nil, err
		}
		return adapter, a.file.Client.Apply(excel.DefaultClientConfig()), nil
	default:
		if a.google == nil {
			a.google = googlesheets.NewSheetsAdaptor(googlesheets.Config{Credentials: a.credentials()})
		}
		return a.google, a.file.Client.Apply(googlesheets.DefaultClientConfig()), nil
	}
}

// syncers builds a syncer for every selected target. No names selects all
// targets; a non-empty mode overrides the configured one.
func (a *app) syncers(ctx context.Context, names []string, mode sheetsync.Mode) ([]*sheetsync.Syncer, error) {
	for _, name := range names {
		if !slices.ContainsFunc(a.file.Targets, func(t configfile.Target) bool { return t.Name == name }) {
			return nil, fmt.Errorf("%w: unknown target %q", sheetsync.ErrInvalidConfig, name)
		}
	}

	var syncers []*sheetsync.Syncer
	for _, t := range a.file.Targets {
		if len(names) > 0 && !slices.Contains(names, t.Name) {
			continue
		}

		target := t.SyncTarget()
		target.ApplyDefaults()
		if mode != "" {
			target.Mode = mode
		}

		table, err := a.db.Table(ctx, t.Table, target.IdentityField)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", t.Name, err)
		}

		api, clientConfig, err := a.backend(t)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", t.Name, err)
		}

		logger := a.logger.With(slog.String("target", t.Name))
		client := sheetsync.NewClient(api, clientConfig, logger)
		s, err := sheetsync.New(client, target, table, &sheetsync.Options{Logger: logger})
		if err != nil {
			return nil, err
		}
		syncers = append(syncers, s)
	}
	return syncers, nil
}
