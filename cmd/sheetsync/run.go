package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ideamans/go-sheetsync"
	"github.com/ideamans/go-sheetsync/configfile"
	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run [target...]",
		Short: "Synchronize periodically until interrupted",
		Long: `Run the sync of every target (or the named ones) now and then every
"interval". The configuration file is watched: a valid change is picked up by
the next run and triggers one immediately. The interval itself is read once.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := configfile.Load(opts.configPath)
			if err != nil {
				return err
			}
			logger, closer, err := opts.newLogger(cmd, file)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runDaemon(ctx, opts.configPath, file, logger, args)
		},
	}
}

// configHolder is the current configuration, swapped on reload
type configHolder struct {
	mu   sync.RWMutex
	file *configfile.File
}

func (h *configHolder) get() *configfile.File {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.file
}

func (h *configHolder) set(f *configfile.File) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.file = f
}

func runDaemon(ctx context.Context, configPath string, file *configfile.File, logger *slog.Logger, names []string) error {
	holder := &configHolder{file: file}

	scheduler := sheetsync.NewScheduler(time.Duration(file.Interval), func(ctx context.Context) error {
		_, err := runOnce(ctx, holder.get(), logger, names, "")
		return err
	}, logger)

	watcher, err := watchConfig(ctx, configPath, logger, func(f *configfile.File) {
		if f.Interval != file.Interval {
			logger.Warn("interval changes take effect after a restart",
				slog.String("interval", file.Interval.String()))
		}
		holder.set(f)
		scheduler.Trigger(ctx)
	})
	if err != nil {
		return err
	}
	defer watcher.Close()

	logger.Info("starting scheduled sync",
		slog.String("config", configPath),
		slog.String("interval", file.Interval.String()))

	scheduler.Start(ctx)
	<-ctx.Done()
	scheduler.Stop()

	logger.Info("scheduled sync stopped")
	return nil
}

// watchConfig reloads the configuration file whenever it changes and hands
// every valid version to onChange. Invalid versions are logged and ignored.
// The directory is watched because editors often replace the file.
func watchConfig(ctx context.Context, path string, logger *slog.Logger, onChange func(*configfile.File)) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}

				f, err := configfile.Load(abs)
				if err != nil {
					logger.Error("ignoring invalid configuration", slog.String("error", err.Error()))
					continue
				}
				logger.Info("configuration reloaded", slog.Int("targets", len(f.Targets)))
				onChange(f)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", slog.String("error", err.Error()))
			}
		}
	}()

	return watcher, nil
}
