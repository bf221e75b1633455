package database_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mess-o-midi-backend/internal/apperr"
	"mess-o-midi-backend/internal/database"
	"mess-o-midi-backend/internal/models"
	"mess-o-midi-backend/internal/testutil"
)

func TestStore_InsertAndFetch(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()

	userID := testutil.SeedUser(t, store, "pro")

	var user models.User
	require.NoError(t, store.FetchOne(ctx, &user, "SELECT * FROM users WHERE id = ?", userID))
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "pro", user.Plan)
	assert.WithinDuration(t, time.Now(), user.CreatedAt, time.Minute)

	var users []models.User
	require.NoError(t, store.FetchAll(ctx, &users, "SELECT * FROM users"))
	assert.Len(t, users, 1)
}

func TestStore_FetchOneMissingRow(t *testing.T) {
	store := testutil.NewStore(t)

	var user models.User
	err := store.FetchOne(context.Background(), &user, "SELECT * FROM users WHERE id = ?", uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStore_InsertUniqueViolation(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	fields := map[string]interface{}{
		"email":      "a@example.com",
		"google_sub": "same-sub",
		"created_at": now,
		"updated_at": now,
	}
	_, err := store.Insert(ctx, "users", fields)
	require.NoError(t, err)

	_, err = store.Insert(ctx, "users", fields)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestStore_UpdateAndDelete(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	userID := testutil.SeedUser(t, store, "free")

	n, err := store.Update(ctx, "users", map[string]interface{}{"plan": "pro"}, "id = ?", userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var plan string
	require.NoError(t, store.FetchOne(ctx, &plan, "SELECT plan FROM users WHERE id = ?", userID))
	assert.Equal(t, "pro", plan)

	n, err = store.Update(ctx, "users", map[string]interface{}{"plan": "pro"}, "id = ?", uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = store.Delete(ctx, "users", "id = ?", userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_WithTxRollsBack(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := context.Background()
	userID := testutil.SeedUser(t, store, "free")

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx *database.Store) error {
		if _, err := tx.Delete(ctx, "users", "id = ?", userID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, store.FetchOne(ctx, &count, "SELECT COUNT(*) FROM users"))
	assert.Equal(t, 1, count)
}

func TestStore_RebindsForPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := database.New(sqlx.NewDb(db, "postgres"))
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE projects SET description = $1, title = $2 WHERE id = $3")).
		WithArgs("d", "t", id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := store.Update(context.Background(), "projects",
		map[string]interface{}{"title": "t", "description": "d"}, "id = ?", id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_PostgresUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := database.New(sqlx.NewDb(db, "postgres"))
	mock.ExpectExec(".*").WillReturnError(&pq.Error{Code: "23505"})

	_, err = store.Insert(context.Background(), "midi_assets", map[string]interface{}{"file_path": "x.mid"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.True(t, database.IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, database.IsUniqueViolation(errors.New("other")))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ExecFailureIsStorageError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := database.New(sqlx.NewDb(db, "postgres"))
	mock.ExpectExec(".*").WillReturnError(errors.New("connection reset"))

	_, err = store.Delete(context.Background(), "projects", "id = ?", uuid.New())
	assert.ErrorIs(t, err, apperr.ErrStorage)

	require.NoError(t, mock.ExpectationsWereMet())
}
