// @title           Mess o Midi API
// @version         1.0.0
// @description     Backend API for Mess o Midi. Manages projects and their MIDI assets, generates bass lines and chord progressions through the MIDI generation service, and accepts uploaded chord files.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"mess-o-midi-backend/docs"
	"mess-o-midi-backend/internal/auth"
	"mess-o-midi-backend/internal/billing"
	"mess-o-midi-backend/internal/config"
	"mess-o-midi-backend/internal/database"
	"mess-o-midi-backend/internal/filestore"
	"mess-o-midi-backend/internal/handlers"
	"mess-o-midi-backend/internal/logger"
	"mess-o-midi-backend/internal/middleware"
	"mess-o-midi-backend/internal/midigen"
	"mess-o-midi-backend/internal/projects"
	"mess-o-midi-backend/internal/services"
	"mess-o-midi-backend/internal/supabase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logg.Sync()

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Update Swagger docs with dynamic base URL
	if baseURL, err := url.Parse(cfg.BaseURL); err == nil && baseURL.Host != "" {
		docs.SwaggerInfo.Host = baseURL.Host
		if baseURL.Scheme == "https" {
			docs.SwaggerInfo.Schemes = []string{"https", "http"}
		} else {
			docs.SwaggerInfo.Schemes = []string{"http", "https"}
		}
	}

	if cfg.DatabaseDriver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(database.SQLitePath(cfg.DatabaseURL)), 0o755); err != nil {
			logg.Fatal("Failed to create database directory", "error", err)
		}
	}

	store, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logg.Fatal("Failed to open database", "driver", cfg.DatabaseDriver, "error", err)
	}
	defer store.Close()

	// Run migrations
	if err := database.NewMigrator(store, logg).Run(context.Background()); err != nil {
		logg.Fatal("Migration failed", "error", err)
	}
	logg.Info("Migrations completed successfully")

	files, err := newFileStore(cfg)
	if err != nil {
		logg.Fatal("Failed to initialize file storage", "backend", cfg.StorageBackend, "error", err)
	}

	gate := billing.NewUsageGate(store, cfg.PlanLimits)
	manager := projects.NewManager(store, gate, files,
		projects.WithFileErrorHandler(func(path string, err error) {
			logg.Warn("Failed to remove MIDI file", "path", path, "error", err)
		}),
	)
	midiClient := midigen.NewClient(cfg.MidiServiceURL, cfg.MidiServiceTimeout, logg)

	users := auth.NewUsers(store)
	sessions := auth.NewSessionIssuer(cfg.SessionSecret, cfg.SessionTTL)

	var provider auth.IdentityProvider
	if cfg.GoogleLoginEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		google, err := auth.NewGoogleProvider(ctx, cfg.GoogleIssuerURL, cfg.GoogleClientID, cfg.GoogleClientSecret,
			cfg.BaseURL+"/auth/google/callback")
		cancel()
		if err != nil {
			logg.Fatal("Failed to initialize Google login", "error", err)
		}
		provider = google
	} else {
		logg.Warn("GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set. Google login is disabled.")
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(midiClient)
	projectsHandler := handlers.NewProjectsHandler(manager, logg)
	midiHandler := handlers.NewMidiHandler(manager, services.NewGenerationService(manager, midiClient, files, cfg.MidiOutputDir, logg), files, logg)
	uploadHandler := handlers.NewUploadHandler(services.NewUploadService(manager, files, logg), logg)
	accountHandler := handlers.NewAccountHandler(users, gate, logg)
	authHandler := handlers.NewAuthHandler(provider, users, sessions, cfg.IsProduction(), logg)
	generateLimiter := middleware.NewRateLimiter(cfg.GenerateRatePerMinute, logg)

	// Setup router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logg))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check (no auth)
	router.GET("/health", healthHandler.Health)

	// Google login (no auth)
	router.GET("/auth/google/login", authHandler.Login)
	router.GET("/auth/google/callback", authHandler.Callback)
	router.POST("/auth/logout", authHandler.Logout)

	// API routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(sessions))

	api.GET("/me", accountHandler.Me)
	api.GET("/usage", accountHandler.Usage)

	// Project routes
	api.GET("/projects", projectsHandler.ListProjects)
	api.POST("/projects", projectsHandler.CreateProject)
	api.GET("/projects/:project_id", projectsHandler.GetProject)
	api.PUT("/projects/:project_id", projectsHandler.UpdateProject)
	api.DELETE("/projects/:project_id", projectsHandler.DeleteProject)
	api.POST("/projects/:project_id/duplicate", projectsHandler.DuplicateProject)
	api.GET("/projects/:project_id/assets", projectsHandler.ListAssets)

	// MIDI routes
	api.POST("/midi/generate", generateLimiter.Handler(), midiHandler.Generate)
	api.POST("/midi/delete", midiHandler.Delete)
	api.POST("/midi/rename", midiHandler.Rename)
	api.GET("/midi/download", midiHandler.Download)
	api.POST("/midi/upload", uploadHandler.Upload)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logg.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logg.Error("Server forced to shut down", "error", err)
	}
}

func newFileStore(cfg *config.Config) (filestore.Store, error) {
	if cfg.StorageBackend == "supabase" {
		client, err := supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	local, err := filestore.NewLocal(cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	return local, nil
}
