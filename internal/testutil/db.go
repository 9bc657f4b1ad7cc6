// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"weatherapi/m/internal/database"
	"weatherapi/m/internal/migrations"
)

// NewSQLiteDB returns a migrated in-memory database closed at test cleanup.
func NewSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Connect(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Run(context.Background(), db, database.DriverSQLite))
	return db
}
