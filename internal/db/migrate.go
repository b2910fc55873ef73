package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/volaticloud/pulse/internal/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations applies the hand-written SQL migrations in migrations/
// in filename order. It is meant to run once, after client.Schema.Create
// has applied ent's generated DDL: ent owns table/column/plain-index
// shape, this owns everything ent cannot express (roles, row-level
// security policies, partial unique indexes). Every statement here is
// idempotent (IF NOT EXISTS / DO $$ guards), so re-running it is safe.
func RunMigrations(ctx context.Context, sqlDB *sql.DB) error {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("db: read migrations dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	log := logger.GetLogger(ctx)

	for _, name := range names {
		contents, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("db: read migration %s: %w", name, err)
		}

		if _, err := sqlDB.ExecContext(ctx, string(contents)); err != nil {
			return fmt.Errorf("db: apply migration %s: %w", name, err)
		}
		log.Info("db: applied migration", zap.String("file", name))
	}

	return nil
}
