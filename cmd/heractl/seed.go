package main

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera/internal/seed"
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write sample data",
	}

	var vertical string
	demo := &cobra.Command{
		Use:   "demo",
		Short: "Seed a demo tenant for a business vertical",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer func() { _ = log.Sync() }()

			conn, cfg, err := openDB(log)
			if err != nil {
				return err
			}
			defer closeDB(conn)

			node, err := snowflake.NewNode(cfg.NodeID)
			if err != nil {
				return err
			}

			res, err := seed.SeedDemo(cmd.Context(), conn, node, vertical)
			if err != nil {
				return err
			}
			if !res.Created {
				fmt.Fprintf(cmd.OutOrStdout(), "demo organization %s already exists\n", res.OrganizationID)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"seeded organization %s: %d entities, %d fields, %d relationships, %d transactions\n",
				res.OrganizationID, res.Entities, res.Fields, res.Relationships, res.Transactions,
			)
			return nil
		},
	}
	demo.Flags().StringVar(&vertical, "vertical", "salon", "one of "+strings.Join(seed.Verticals(), ", "))

	cmd.AddCommand(demo)
	return cmd
}
