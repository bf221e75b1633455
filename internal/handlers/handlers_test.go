package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"mess-o-midi-backend/internal/auth"
	"mess-o-midi-backend/internal/billing"
	"mess-o-midi-backend/internal/filestore"
	"mess-o-midi-backend/internal/handlers"
	"mess-o-midi-backend/internal/logger"
	"mess-o-midi-backend/internal/middleware"
	"mess-o-midi-backend/internal/midigen"
	"mess-o-midi-backend/internal/models"
	"mess-o-midi-backend/internal/projects"
	"mess-o-midi-backend/internal/services"
	"mess-o-midi-backend/internal/testutil"
)

const testSecret = "test-secret-key-for-jwt-signing-must-be-long-enough"

// newMidiService fakes the generation service, writing into dir like the
// real one writes into its shared output directory.
func newMidiService(t *testing.T, dir string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.Write([]byte(`{"status":"healthy"}`))
			return
		}
		var req struct {
			Filename string `json:"filename"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		path := filepath.Join(dir, req.Filename)
		os.WriteFile(path, []byte("MThd "+strings.TrimPrefix(r.URL.Path, "/api/generate/")), 0o644)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":  true,
			"filepath": path,
			"filename": req.Filename,
		})
	}))
	t.Cleanup(server.Close)
	return server
}

type fakeProvider struct{}

func (fakeProvider) AuthURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (fakeProvider) Exchange(_ context.Context, code string) (*auth.Identity, error) {
	return &auth.Identity{Subject: "google-" + code, Email: code + "@example.com", Name: "Tester"}, nil
}

type fixture struct {
	router   *gin.Engine
	sessions *auth.SessionIssuer
	users    *auth.Users
	midi     *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()

	store := testutil.NewStore(t)
	files, err := filestore.NewLocal(t.TempDir())
	require.NoError(t, err)

	free := 2
	gate := billing.NewUsageGate(store, map[string]*int{"free": &free, "enterprise": nil})
	manager := projects.NewManager(store, gate, files)
	midi := newMidiService(t, files.Root())
	client := midigen.NewClient(midi.URL, 5*time.Second, log)

	users := auth.NewUsers(store)
	sessions := auth.NewSessionIssuer(testSecret, time.Hour)

	projectsHandler := handlers.NewProjectsHandler(manager, log)
	midiHandler := handlers.NewMidiHandler(manager, services.NewGenerationService(manager, client, files, files.Root(), log), files, log)
	uploadHandler := handlers.NewUploadHandler(services.NewUploadService(manager, files, log), log)
	accountHandler := handlers.NewAccountHandler(users, gate, log)
	authHandler := handlers.NewAuthHandler(fakeProvider{}, users, sessions, false, log)

	router := gin.New()
	router.GET("/health", handlers.NewHealthHandler(client).Health)
	router.GET("/auth/google/login", authHandler.Login)
	router.GET("/auth/google/callback", authHandler.Callback)
	router.POST("/auth/logout", authHandler.Logout)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(sessions))
	api.GET("/projects", projectsHandler.ListProjects)
	api.POST("/projects", projectsHandler.CreateProject)
	api.GET("/projects/:project_id", projectsHandler.GetProject)
	api.PUT("/projects/:project_id", projectsHandler.UpdateProject)
	api.DELETE("/projects/:project_id", projectsHandler.DeleteProject)
	api.POST("/projects/:project_id/duplicate", projectsHandler.DuplicateProject)
	api.GET("/projects/:project_id/assets", projectsHandler.ListAssets)
	api.POST("/midi/generate", midiHandler.Generate)
	api.POST("/midi/delete", midiHandler.Delete)
	api.POST("/midi/rename", midiHandler.Rename)
	api.GET("/midi/download", midiHandler.Download)
	api.POST("/midi/upload", uploadHandler.Upload)
	api.GET("/usage", accountHandler.Usage)
	api.GET("/me", accountHandler.Me)

	return &fixture{router: router, sessions: sessions, users: users, midi: midi}
}

// login creates a user and returns a bearer token for it.
func (f *fixture) login(t *testing.T, name string) string {
	t.Helper()
	user, err := f.users.UpsertGoogleUser(context.Background(), &auth.Identity{
		Subject: "sub-" + name + "-" + uuid.NewString(),
		Email:   name + "@example.com",
		Name:    name,
	})
	require.NoError(t, err)
	token, _, err := f.sessions.Issue(user)
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) upload(t *testing.T, token, projectID, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("project_id", projectID))
	part, err := mw.CreateFormFile("chord_file", filename)
	require.NoError(t, err)
	part.Write(content)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, "/api/v1/midi/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) createProject(t *testing.T, token, title string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/projects", token, models.CreateProjectRequest{Title: title})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp models.CreateProjectResponse
	decode(t, w, &resp)
	return resp.ProjectID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
