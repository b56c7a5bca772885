package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pnl-tracker/internal/repository"
)

var dbhealthTimeout time.Duration

var dbhealthCmd = &cobra.Command{
	Use:   "dbhealth",
	Short: "Check the local cache and the remote trade store",
	RunE:  runDBHealth,
}

func init() {
	rootCmd.AddCommand(dbhealthCmd)
	dbhealthCmd.Flags().DurationVar(&dbhealthTimeout, "timeout", time.Second, "Health check timeout per store")
}

func runDBHealth(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	local, err := repository.OpenSQLite(ctx, cfg.Database.LocalPath, logger)
	if err != nil {
		return err
	}
	defer local.Close()
	if err := local.HealthCheck(ctx, dbhealthTimeout); err != nil {
		return fmt.Errorf("local cache %s: %w", cfg.Database.LocalPath, err)
	}
	fmt.Fprintf(out, "local cache: OK (%s)\n", cfg.Database.LocalPath)

	if cfg.Database.DSN == "" {
		fmt.Fprintln(out, "remote store: not configured (DB_URL unset)")
		return nil
	}
	remote, err := repository.OpenPostgres(ctx, remoteConfig(), logger)
	if err != nil {
		return fmt.Errorf("remote store: %w", err)
	}
	defer remote.Close()
	if err := remote.HealthCheck(ctx, dbhealthTimeout); err != nil {
		return fmt.Errorf("remote store health: %w", err)
	}
	if err := remote.Migrate(ctx); err != nil {
		return err
	}
	list, err := repository.NewTradeRepository(remote, logger).List(ctx)
	if err != nil {
		return fmt.Errorf("list trades: %w", err)
	}
	fmt.Fprintf(out, "remote store: OK (%s, %d trade(s))\n", remote.Dialect(), len(list))
	return nil
}
