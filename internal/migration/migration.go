package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	dynamicdatadomain "github.com/heraerp/hera/internal/dynamicdata/domain"
	entitydomain "github.com/heraerp/hera/internal/entity/domain"
	organizationdomain "github.com/heraerp/hera/internal/organization/domain"
	relationshipdomain "github.com/heraerp/hera/internal/relationship/domain"
	transactiondomain "github.com/heraerp/hera/internal/transaction/domain"
	"github.com/heraerp/hera/pkg/db"
	"gorm.io/gorm"
)

// Run brings the six tables up to date. Postgres uses the embedded SQL
// migrations; other dialects (sqlite, mysql) are created from the models.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if !db.IsPostgres(conn) {
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// RunMigrations applies the embedded Postgres migrations.
func RunMigrations(sqlDB *sql.DB) error {
	if sqlDB == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists the gorm models of the six tables in dependency order.
func Models() []any {
	return []any{
		&organizationdomain.Organization{},
		&entitydomain.Entity{},
		&dynamicdatadomain.DynamicField{},
		&relationshipdomain.Relationship{},
		&transactiondomain.Transaction{},
		&transactiondomain.TransactionLine{},
	}
}

func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
