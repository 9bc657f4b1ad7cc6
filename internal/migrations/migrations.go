package migrations

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed sql/sqlite/*.sql sql/postgres/*.sql
var files embed.FS

// goose keeps its dialect and filesystem in package globals.
var mu sync.Mutex

// Run applies the schema for the given driver ("sqlite" or "pgx").
func Run(ctx context.Context, db *sqlx.DB, driver string) error {
	dialect, dir, err := target(driver)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	goose.SetBaseFS(files)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, dir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func target(driver string) (dialect, dir string, err error) {
	switch driver {
	case "sqlite":
		return "sqlite3", "sql/sqlite", nil
	case "pgx":
		return "postgres", "sql/postgres", nil
	}
	return "", "", fmt.Errorf("no migrations for driver %q", driver)
}
