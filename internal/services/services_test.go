package services_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"mess-o-midi-backend/internal/auth"
	"mess-o-midi-backend/internal/billing"
	"mess-o-midi-backend/internal/filestore"
	"mess-o-midi-backend/internal/logger"
	"mess-o-midi-backend/internal/midigen"
	"mess-o-midi-backend/internal/projects"
	"mess-o-midi-backend/internal/services"
	"mess-o-midi-backend/internal/testutil"
)

// fakeGenerator writes files into outDir the way the generation service
// writes into its output directory.
type fakeGenerator struct {
	outDir      string
	unavailable bool
	err         error
	// remote pretends outDir is not visible, forcing a download.
	remote bool
	// elsewhere, when set, is written to and reported instead of outDir.
	elsewhere string
	// during runs inside Generate, before the file is written.
	during func()
	ctxErr error
	calls  int32
	last   midigen.Options
}

func (g *fakeGenerator) IsAvailable(context.Context) bool {
	return !g.unavailable
}

func (g *fakeGenerator) Generate(ctx context.Context, kind midigen.Kind, filename string, opts midigen.Options) (*midigen.Result, error) {
	atomic.AddInt32(&g.calls, 1)
	g.last = opts
	if g.during != nil {
		g.during()
	}
	g.ctxErr = ctx.Err()
	if g.err != nil {
		return nil, g.err
	}
	if g.remote {
		return &midigen.Result{FilePath: "/nonexistent/" + filename, Filename: filename}, nil
	}
	dir := g.outDir
	if g.elsewhere != "" {
		dir = g.elsewhere
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte("MThd "+string(kind)), 0o644); err != nil {
		return nil, err
	}
	return &midigen.Result{FilePath: path, Filename: filename}, nil
}

func (g *fakeGenerator) Download(_ context.Context, filename string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("MThd downloaded")), nil
}

type fixture struct {
	manager   *projects.Manager
	files     *filestore.Local
	generator *fakeGenerator
	gen       *services.GenerationService
	upload    *services.UploadService
	principal auth.Principal
	project   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewStore(t)
	files, err := filestore.NewLocal(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)

	gate := billing.NewUsageGate(store, map[string]*int{"free": nil})
	manager := projects.NewManager(store, gate, files)
	generator := &fakeGenerator{outDir: t.TempDir()}

	owner := testutil.SeedUser(t, store, "free")
	project, err := manager.CreateProject(context.Background(), owner, "Song", "")
	require.NoError(t, err)

	return &fixture{
		manager:   manager,
		files:     files,
		generator: generator,
		gen:       services.NewGenerationService(manager, generator, files, generator.outDir, logger.NewNop()),
		upload:    services.NewUploadService(manager, files, logger.NewNop()),
		principal: auth.Principal{UserID: owner},
		project:   project,
	}
}

func (f *fixture) assetCount(t *testing.T) int {
	t.Helper()
	assets, err := f.manager.ListProjectMidiAssets(context.Background(), f.project, f.principal.UserID)
	require.NoError(t, err)
	return len(assets)
}

func (f *fixture) stored(t *testing.T, path string) string {
	t.Helper()
	rc, err := f.files.Open(context.Background(), path)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}
