package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultDatabaseDriver = "sqlite"
	DefaultDatabaseURL    = "file:data/midi.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
)

type Config struct {
	// Database
	DatabaseDriver string
	DatabaseURL    string

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleIssuerURL    string

	// MIDI generation service
	MidiServiceURL     string
	MidiServiceTimeout time.Duration
	// MidiOutputDir is where generated files appear on this host, if the
	// service's output volume is shared. Empty means download them.
	MidiOutputDir string

	// File storage
	StorageBackend        string
	UploadDir             string
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// Plans (nil limit means unlimited)
	PlanLimits map[string]*int

	// Limits
	GenerateRatePerMinute int
	CORSAllowedOrigins    []string

	// Server
	Port        string
	Environment string
	BaseURL     string
	LogMode     string
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseDriver: getEnv("DATABASE_DRIVER", DefaultDatabaseDriver),
		DatabaseURL:    getEnv("DATABASE_URL", DefaultDatabaseURL),

		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionTTL:    getDuration("SESSION_TTL", 24*time.Hour),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleIssuerURL:    getEnv("GOOGLE_ISSUER_URL", "https://accounts.google.com"),

		MidiServiceURL:     getEnv("MIDI_SERVICE_URL", "http://127.0.0.1:5001"),
		MidiServiceTimeout: getDuration("MIDI_SERVICE_TIMEOUT", 30*time.Second),
		MidiOutputDir:      getEnv("MIDI_OUTPUT_DIR", ""),

		StorageBackend:        getEnv("STORAGE_BACKEND", "local"),
		UploadDir:             getEnv("UPLOAD_DIR", "uploads/midi"),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "midi-files"),

		PlanLimits: map[string]*int{
			"free":       intPtr(getInt("PLAN_LIMIT_FREE", 5)),
			"pro":        intPtr(getInt("PLAN_LIMIT_PRO", 50)),
			"enterprise": nil,
		},

		GenerateRatePerMinute: getInt("GENERATE_RATE_PER_MINUTE", 20),
		CORSAllowedOrigins:    getList("CORS_ALLOWED_ORIGINS", nil),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		LogMode:     getEnv("LOG_MODE", ""),
	}

	if _, set := os.LookupEnv("MIDI_OUTPUT_DIR"); !set && cfg.StorageBackend == "local" {
		cfg.MidiOutputDir = cfg.UploadDir
	}

	if cfg.LogMode == "" {
		cfg.LogMode = cfg.Environment
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters")
	}
	if c.MidiServiceURL == "" {
		return fmt.Errorf("MIDI_SERVICE_URL is required")
	}
	switch c.StorageBackend {
	case "local":
		if c.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR is required for local storage")
		}
	case "supabase":
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for supabase storage")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be local or supabase, got %q", c.StorageBackend)
	}
	return nil
}

// GoogleLoginEnabled reports whether OAuth credentials are configured.
func (c *Config) GoogleLoginEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intPtr(n int) *int {
	return &n
}
