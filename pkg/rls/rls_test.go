package rls

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestWithTenantSetsSessionVariableOnPostgres(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	conn, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("SELECT set_config('app.current_org_id', $1, true)")).
		WithArgs("42").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, WithTenant(conn, 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTenantIsNoopOnSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	assert.NoError(t, WithTenant(conn, 42))
	assert.NoError(t, WithTenant(nil, 42))
}
