package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/labdent/labexport/internal/laborator"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"120s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"90s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	PGDSN      string `envconfig:"PG_DSN"`
	PGMaxConns int32  `envconfig:"PG_MAX_CONNS" default:"4"`

	SupabaseURL  string `envconfig:"SUPABASE_URL"`
	SupabaseKey  string `envconfig:"SUPABASE_KEY"`
	SchemaLayout string `envconfig:"SCHEMA_LAYOUT" default:"default"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	LogoPath         string `envconfig:"LOGO_PATH" default:"poza_site.png"`
	ExportTitle      string `envconfig:"EXPORT_TITLE" default:"Export Laborator"`
	ExportTitleAlign string `envconfig:"EXPORT_TITLE_ALIGN" default:"left"`
	ExportStorageDir string `envconfig:"EXPORT_STORAGE_DIR" default:"./exports"`
	ExportSchedule   string `envconfig:"EXPORT_SCHEDULE" default:"0 3 1 * *"`

	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"2"`
}

// Fallback variable names accepted for the PostgREST credentials, in order.
var (
	supabaseURLFallbacks = []string{"VITE_SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL"}
	supabaseKeyFallbacks = []string{"SUPABASE_ANON_KEY", "VITE_SUPABASE_ANON_KEY"}
)

// LoadConfig reads configuration from environment variables. An optional .env
// file in the working directory is loaded first; it never overrides variables
// already set.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if os.Getenv("APP_ADDR") == "" {
		if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
			cfg.AppAddr = ":" + port
		}
	}
	if cfg.SupabaseURL == "" {
		cfg.SupabaseURL = firstEnv(supabaseURLFallbacks)
	}
	if cfg.SupabaseKey == "" {
		cfg.SupabaseKey = firstEnv(supabaseKeyFallbacks)
	}
	if _, ok := laborator.SchemaByName(cfg.SchemaLayout); !ok {
		return nil, fmt.Errorf("unknown schema layout %q", cfg.SchemaLayout)
	}
	switch cfg.ExportTitleAlign {
	case "left", "center", "right":
	default:
		return nil, fmt.Errorf("EXPORT_TITLE_ALIGN must be left, center or right, got %q", cfg.ExportTitleAlign)
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// StoreSettings returns the data source credentials.
func (c *Config) StoreSettings() laborator.StoreSettings {
	return laborator.StoreSettings{DSN: c.PGDSN, URL: c.SupabaseURL, Key: c.SupabaseKey}
}

// Schema returns the configured table layout.
func (c *Config) Schema() laborator.Schema {
	schema, _ := laborator.SchemaByName(c.SchemaLayout)
	return schema
}

func firstEnv(names []string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}
