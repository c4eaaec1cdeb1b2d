package main

import (
	"fmt"

	"github.com/heraerp/hera/internal/migration"
	"github.com/heraerp/hera/internal/seed"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the six tables and the system organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer func() { _ = log.Sync() }()

			conn, cfg, err := openDB(log)
			if err != nil {
				return err
			}
			defer closeDB(conn)

			if err := migration.Run(conn); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if cfg.DefaultOrgID != 0 {
				_, err = seed.EnsureRootOrgWithID(conn, cfg.DefaultOrgID)
			} else {
				_, err = seed.EnsureRootOrg(conn)
			}
			if err != nil {
				return fmt.Errorf("seed root organization: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
