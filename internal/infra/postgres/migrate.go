package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	pgmigrations "elearning-quiz-service/internal/infra/postgres/migrations"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// Migrate applies all pending schema migrations.
func Migrate(ctx context.Context, dsn string) error {
	return withMigrator(ctx, dsn, func(migrator *migrate.Migrator) error {
		group, err := migrator.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if group.IsZero() {
			log.Printf("no new migrations to apply")
			return nil
		}
		log.Printf("migrated to %s", group)
		return nil
	})
}

// Rollback reverts the last applied migration group.
func Rollback(ctx context.Context, dsn string) error {
	return withMigrator(ctx, dsn, func(migrator *migrate.Migrator) error {
		group, err := migrator.Rollback(ctx)
		if err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
		if group.IsZero() {
			log.Printf("no groups to roll back")
			return nil
		}
		log.Printf("rolled back %s", group)
		return nil
	})
}

func withMigrator(ctx context.Context, dsn string, run func(*migrate.Migrator) error) error {
	if dsn == "" {
		return fmt.Errorf("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("migrator init: %w", err)
	}
	return run(migrator)
}
