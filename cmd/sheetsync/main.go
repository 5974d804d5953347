// Command sheetsync synchronizes database tables with spreadsheets.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "sheetsync",
		Short: "Synchronize database tables with Google Sheets or Excel workbooks",
		Long: `sheetsync keeps rows of spreadsheets and records of a local SQLite
database in step. Targets, credentials and retry settings are read from a
YAML or TOML configuration file.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "sheetsync.yaml", "Configuration file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: from config)")
	rootCmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "Write logs to a rotated file instead of stderr")

	rootCmd.AddCommand(
		newSyncCmd(opts),
		newPullCmd(opts),
		newPushCmd(opts),
		newRunCmd(opts),
		newAuthCmd(opts),
	)
	return rootCmd
}
