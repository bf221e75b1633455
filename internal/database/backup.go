package database

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// RequiredTables must exist in any database file accepted by Restore.
var RequiredTables = []string{"users", "projects", "midi_assets", "schema_migrations"}

type Stats struct {
	Users      int `db:"users"`
	Projects   int `db:"projects"`
	MidiAssets int `db:"midi_assets"`
}

// SQLitePath extracts the file path from a sqlite DSN such as
// "file:data/midi.db?_pragma=foreign_keys(1)".
func SQLitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

// Backup writes a consistent copy of a sqlite database to outPath.
func Backup(ctx context.Context, store *Store, outPath string) error {
	if store.DriverName() != "sqlite" {
		return fmt.Errorf("backup is only supported for sqlite, got %s", store.DriverName())
	}
	if _, err := os.Stat(outPath); err == nil {
		return fmt.Errorf("backup target %s already exists", outPath)
	}
	if _, err := store.Exec(ctx, "VACUUM INTO ?", outPath); err != nil {
		return fmt.Errorf("failed to back up database: %w", err)
	}
	return nil
}

// Restore replaces the sqlite file at dbPath with inPath. The current file is
// kept aside and put back if the restored file fails verification. The server
// must not be running.
func Restore(ctx context.Context, dbPath, inPath string) error {
	if err := verifyFile(ctx, inPath); err != nil {
		return fmt.Errorf("refusing to restore %s: %w", inPath, err)
	}

	previous := dbPath + ".pre-restore"
	hadPrevious := true
	if err := os.Rename(dbPath, previous); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to move current database aside: %w", err)
		}
		hadPrevious = false
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		os.Remove(dbPath + suffix)
	}

	if err := copyFile(inPath, dbPath); err != nil {
		rollback(dbPath, previous, hadPrevious)
		return fmt.Errorf("failed to install backup: %w", err)
	}

	if err := verifyFile(ctx, dbPath); err != nil {
		rollback(dbPath, previous, hadPrevious)
		return fmt.Errorf("restored database failed verification, rolled back: %w", err)
	}

	if hadPrevious {
		os.Remove(previous)
	}
	return nil
}

// CollectStats counts the rows an operator usually cares about.
func CollectStats(ctx context.Context, store *Store) (*Stats, error) {
	var stats Stats
	err := store.FetchOne(ctx, &stats, `
		SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM projects) AS projects,
			(SELECT COUNT(*) FROM midi_assets) AS midi_assets
	`)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Verify runs the integrity check and confirms the schema is present.
func Verify(ctx context.Context, store *Store) error {
	var result string
	if err := store.FetchOne(ctx, &result, "PRAGMA integrity_check"); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}

	for _, table := range RequiredTables {
		var count int
		err := store.FetchOne(ctx, &count,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table)
		if err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("missing table %s", table)
		}
	}
	return nil
}

func verifyFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	store, err := Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return err
	}
	defer store.Close()
	return Verify(ctx, store)
}

func rollback(dbPath, previous string, hadPrevious bool) {
	os.Remove(dbPath)
	if hadPrevious {
		os.Rename(previous, dbPath)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
