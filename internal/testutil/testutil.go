// Package testutil builds migrated SQLite databases for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"mess-o-midi-backend/internal/database"
	"mess-o-midi-backend/internal/logger"
)

// DSN returns a sqlite DSN for a fresh file under dir.
func DSN(dir string) string {
	return "file:" + filepath.Join(dir, "test.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// NewStore opens a migrated database in t.TempDir() and closes it on cleanup.
func NewStore(t *testing.T) *database.Store {
	t.Helper()

	store, err := database.Open("sqlite", DSN(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, database.NewMigrator(store, logger.NewNop()).Run(context.Background()))
	return store
}

// SeedUser inserts a user on the given plan and returns its id.
func SeedUser(t *testing.T, store *database.Store, plan string) uuid.UUID {
	t.Helper()

	now := time.Now().UTC()
	sub := uuid.NewString()
	id, err := store.Insert(context.Background(), "users", map[string]interface{}{
		"email":      sub + "@example.com",
		"name":       "Test User",
		"google_sub": sub,
		"plan":       plan,
		"created_at": now,
		"updated_at": now,
	})
	require.NoError(t, err)
	return id
}
