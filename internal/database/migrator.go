package database

import (
	"context"
	"embed"
	"fmt"
	"sort"

	"mess-o-midi-backend/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Migrator struct {
	store *Store
	log   *logger.Logger
}

func NewMigrator(store *Store, log *logger.Logger) *Migrator {
	return &Migrator{store: store, log: log}
}

// Run applies every embedded migration that is not yet recorded in
// schema_migrations, each in its own transaction.
func (m *Migrator) Run(ctx context.Context) error {
	if err := m.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		applied, err := m.isMigrationApplied(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if applied {
			m.log.Debug("Migration already applied, skipping", "migration", name)
			continue
		}

		migrationSQL, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		m.log.Info("Applying migration", "migration", name)

		err = m.store.WithTx(ctx, func(tx *Store) error {
			if _, err := tx.Exec(ctx, string(migrationSQL)); err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", name, err)
			}
			if _, err := tx.Exec(ctx,
				"INSERT INTO schema_migrations (name, applied_at) VALUES (?, CURRENT_TIMESTAMP)",
				name,
			); err != nil {
				return fmt.Errorf("failed to record migration %s: %w", name, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		m.log.Info("Successfully applied migration", "migration", name)
	}

	return nil
}

// Applied lists the recorded migration names in order.
func (m *Migrator) Applied(ctx context.Context) ([]string, error) {
	var names []string
	if err := m.store.FetchAll(ctx, &names, "SELECT name FROM schema_migrations ORDER BY name"); err != nil {
		return nil, err
	}
	return names, nil
}

func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	_, err := m.store.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (m *Migrator) isMigrationApplied(ctx context.Context, name string) (bool, error) {
	var count int
	err := m.store.FetchOne(ctx, &count,
		"SELECT COUNT(*) FROM schema_migrations WHERE name = ?",
		name,
	)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
