// Command heractl validates six-table requests offline and runs database
// maintenance tasks.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/heraerp/hera/internal/config"
	"github.com/heraerp/hera/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errInvalid makes the process exit non-zero after the findings were printed.
var errInvalid = errors.New("request is not valid")

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "heractl",
	Short:         "HERA six-table convention tooling",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")
	rootCmd.AddCommand(newValidateCmd(), newMigrateCmd(), newSeedCmd(), newExportCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func openDB(log *zap.Logger) (*gorm.DB, config.Config, error) {
	cfg := config.Load()
	conn, err := db.Open(db.Params{Cfg: cfg, Log: log})
	if err != nil {
		return nil, cfg, err
	}
	return conn, cfg, nil
}

func closeDB(conn *gorm.DB) {
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
