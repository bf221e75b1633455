package filestore_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mess-o-midi-backend/internal/apperr"
	"mess-o-midi-backend/internal/filestore"
)

func TestLocal_SaveOpenRemove(t *testing.T) {
	store, err := filestore.NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a_b_bass_1.mid", strings.NewReader("MThd data")))

	err = store.Save(ctx, "a_b_bass_1.mid", strings.NewReader("again"))
	assert.ErrorIs(t, err, apperr.ErrConflict)

	rc, err := store.Open(ctx, "a_b_bass_1.mid")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "MThd data", string(data))

	require.NoError(t, store.Remove(ctx, "a_b_bass_1.mid"))
	require.NoError(t, store.Remove(ctx, "a_b_bass_1.mid"), "removing a missing file is not an error")

	_, err = store.Open(ctx, "a_b_bass_1.mid")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLocal_RejectsEscapingPaths(t *testing.T) {
	root := t.TempDir()
	store, err := filestore.NewLocal(filepath.Join(root, "midi"))
	require.NoError(t, err)

	// Cleaned against the root, so it lands inside it.
	require.NoError(t, store.Save(context.Background(), "../outside.mid", strings.NewReader("x")))
	_, err = os.Stat(filepath.Join(root, "outside.mid"))
	assert.True(t, os.IsNotExist(err))

	_, err = store.Open(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLocal_Import(t *testing.T) {
	root := t.TempDir()
	store, err := filestore.NewLocal(filepath.Join(root, "store"))
	require.NoError(t, err)
	ctx := context.Background()

	generated := filepath.Join(root, "generated.mid")
	require.NoError(t, os.WriteFile(generated, []byte("MThd"), 0o644))

	require.NoError(t, store.Import(ctx, generated, "x_y_bass_1.mid"))
	_, err = os.Stat(generated)
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(store.Root(), "x_y_bass_1.mid"))
	require.NoError(t, err)

	inPlace := filepath.Join(store.Root(), "x_y_bass_1.mid")
	require.NoError(t, store.Import(ctx, inPlace, "x_y_bass_1.mid"))

	assert.Error(t, store.Import(ctx, filepath.Join(root, "missing.mid"), "x_y_bass_2.mid"))
}
