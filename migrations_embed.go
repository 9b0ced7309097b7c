package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"campus-delivery/db"
	"campus-delivery/services"

	"github.com/rs/zerolog/log"
)

// Postgres schema is shipped inside the binary so `campus-delivery migrate`
// does not depend on the working directory.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

func applyMigrations(ctx context.Context) error {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		sqlBytes, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.Pool.Exec(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		log.Info().Str("migration", name).Msg("migration applied")
	}
	return nil
}

// migrateSQLite creates the SQLite table through gorm; the SQL files above are Postgres-only.
func migrateSQLite() error {
	if err := services.MigrateSQLiteStore(db.SQLite); err != nil {
		return fmt.Errorf("migrate sqlite store: %w", err)
	}
	return nil
}
