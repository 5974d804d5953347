package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ideamans/go-sheetsync"
	"github.com/ideamans/go-sheetsync/configfile"
	"github.com/spf13/cobra"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [target...]",
		Short: "Synchronize targets in their configured mode",
		Long: `Synchronize every target (or the named ones) once. Targets in "sync"
mode are pulled, then pushed; "pull" and "push" targets run one direction.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTargets(cmd, opts, args, "")
		},
	}
}

func newPullCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pull [target...]",
		Short: "Copy sheet rows into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTargets(cmd, opts, args, sheetsync.ModePull)
		},
	}
}

func newPushCmd(opts *rootOptions) *cobra.Command {
	var recordID string

	cmd := &cobra.Command{
		Use:   "push [target...]",
		Short: "Copy database records into the sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if recordID == "" {
				return runTargets(cmd, opts, args, sheetsync.ModePush)
			}
			if len(args) != 1 {
				return fmt.Errorf("--record needs exactly one target")
			}
			return pushRecord(cmd, opts, args[0], recordID)
		},
	}
	cmd.Flags().StringVar(&recordID, "record", "", "Push only the record with this identity")
	return cmd
}

// runTargets runs the selected targets once, each in mode (or its own mode
// when mode is empty), and prints a summary per target.
func runTargets(cmd *cobra.Command, opts *rootOptions, names []string, mode sheetsync.Mode) error {
	file, err := configfile.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger, closer, err := opts.newLogger(cmd, file)
	if err != nil {
		return err
	}
	defer closer.Close()

	results, err := runOnce(cmd.Context(), file, logger, names, mode)
	for _, r := range results {
		printResult(cmd.OutOrStdout(), r)
	}
	return err
}

// runOnce opens the database, builds the syncers and runs them. Syncers are
// rebuilt on every call so that configuration changes take effect.
func runOnce(ctx context.Context, file *configfile.File, logger *slog.Logger, names []string, mode sheetsync.Mode) ([]*sheetsync.Result, error) {
	a, err := openApp(file, logger)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	syncers, err := a.syncers(ctx, names, mode)
	if err != nil {
		return nil, err
	}
	return sheetsync.NewRunner(logger, syncers...).Run(ctx)
}

func pushRecord(cmd *cobra.Command, opts *rootOptions, name, id string) error {
	file, err := configfile.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger, closer, err := opts.newLogger(cmd, file)
	if err != nil {
		return err
	}
	defer closer.Close()

	a, err := openApp(file, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	syncers, err := a.syncers(cmd.Context(), []string{name}, sheetsync.ModePush)
	if err != nil {
		return err
	}
	result, err := syncers[0].PushRecord(cmd.Context(), id)
	if result != nil {
		printResult(cmd.OutOrStdout(), result)
	}
	return err
}

func printResult(w io.Writer, r *sheetsync.Result) {
	if r == nil {
		return
	}
	fmt.Fprintf(w, "%s:", r.Target)
	if r.Pull != nil {
		fmt.Fprintf(w, " pulled %d rows (%d created, %d updated, %d skipped)",
			r.Pull.Rows, r.Pull.Created, r.Pull.Updated, r.Pull.Skipped)
	}
	if r.Push != nil {
		fmt.Fprintf(w, " pushed %d records (%d updated, %d appended)",
			r.Push.Records, r.Push.Updated, r.Push.Appended)
	}
	fmt.Fprintln(w)
}
