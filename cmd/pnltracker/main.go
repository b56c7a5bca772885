package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pnl-tracker/internal/common"
)

var (
	cfg    *common.Config
	logger *slog.Logger

	logLevel  string
	logFormat string
)

// rootCmd is the base command for the pnltracker CLI
var rootCmd = &cobra.Command{
	Use:   "pnltracker",
	Short: "Track realized PnL from exchange position screenshots",
	Long: `pnltracker reads closed-position screenshots (or their recognized text),
extracts each trade, keeps the trade book in a local sqlite cache and an
optional Postgres store, and reports weekly performance.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = common.LoadConfig()
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if logFormat != "" {
			cfg.Log.Format = logFormat
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger = common.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json (default from LOG_FORMAT)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
