package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fjod/payment_relay/internal/config"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply ledger schema migrations (postgres and sqlite drivers)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			switch cfg.Ledger.Driver {
			case config.LedgerPostgres, config.LedgerSQLite:
			default:
				return fmt.Errorf("ledger driver %q has no schema to migrate", cfg.Ledger.Driver)
			}

			l, err := openSQLLedger(cfg.Ledger)
			if err != nil {
				return err
			}
			defer l.Close()

			dir := migrationsDir(cfg.Ledger)
			if err := l.RunMigrations(dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied from %s\n", dir)
			return nil
		},
	}
}
