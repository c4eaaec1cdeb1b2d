package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bwmarrin/snowflake"
	dynamicrepo "github.com/heraerp/hera/internal/dynamicdata/repository"
	entityrepo "github.com/heraerp/hera/internal/entity/repository"
	"github.com/heraerp/hera/internal/export"
	organizationrepo "github.com/heraerp/hera/internal/organization/repository"
	"github.com/heraerp/hera/internal/orgcontext"
	relationshiprepo "github.com/heraerp/hera/internal/relationship/repository"
	transactionrepo "github.com/heraerp/hera/internal/transaction/repository"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var (
		orgID  string
		format string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one organization's rows to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := snowflake.ParseString(orgID)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid --org %q", orgID)
			}

			log := newLogger()
			defer func() { _ = log.Sync() }()

			conn, _, err := openDB(log)
			if err != nil {
				return err
			}
			defer closeDB(conn)

			svc := export.New(export.Params{
				DB:               conn,
				Log:              log,
				OrgRepo:          organizationrepo.Provide(),
				EntityRepo:       entityrepo.Provide(),
				DynamicRepo:      dynamicrepo.Provide(),
				RelationshipRepo: relationshiprepo.Provide(),
				TransactionRepo:  transactionrepo.Provide(),
			})

			ctx := orgcontext.WithOrgID(cmd.Context(), int64(id))
			artifact, err := svc.Export(ctx, id, format)
			if err != nil {
				return err
			}

			path := filepath.Join(outDir, artifact.Filename)
			if err := os.WriteFile(path, artifact.Body, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&orgID, "org", "", "organization id")
	cmd.Flags().StringVar(&format, "format", export.FormatXLSX, "csv, xlsx, pdf or zip")
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
