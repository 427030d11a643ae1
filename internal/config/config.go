package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	StoreREST     = "rest"
	StorePostgres = "postgres"
)

type APIConfig struct {
	Addr          string
	Store         string
	SupabaseURL   string
	SupabaseKey   string
	DatabaseURL   string
	AutoMigrate   bool
	StoreRetryMax int
	StaticDir     string
	SentryDSN     string
	LogLevel      slog.Level
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("FINPLAY_API_ADDR", ":8000")
	}

	key := strings.TrimSpace(os.Getenv("SUPABASE_KEY"))
	if key == "" {
		key = strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_ROLE_KEY"))
	}

	cfg := APIConfig{
		Addr:          addr,
		Store:         strings.ToLower(envDefault("FINPLAY_STORE", StoreREST)),
		SupabaseURL:   strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/"),
		SupabaseKey:   key,
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		AutoMigrate:   envBoolDefault("FINPLAY_AUTO_MIGRATE", true),
		StoreRetryMax: envIntDefault("FINPLAY_STORE_RETRY_MAX", 0),
		StaticDir:     envDefault("FINPLAY_STATIC_DIR", "frontend"),
		SentryDSN:     strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		LogLevel:      envLevelDefault("LOG_LEVEL", slog.LevelInfo),
	}

	switch cfg.Store {
	case StoreREST:
		if cfg.SupabaseURL == "" {
			return cfg, fmt.Errorf("SUPABASE_URL is required")
		}
		if cfg.SupabaseKey == "" {
			return cfg, fmt.Errorf("SUPABASE_KEY is required")
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return cfg, fmt.Errorf("DATABASE_URL is required")
		}
	default:
		return cfg, fmt.Errorf("FINPLAY_STORE must be %q or %q, got %q", StoreREST, StorePostgres, cfg.Store)
	}
	if cfg.StoreRetryMax < 0 {
		cfg.StoreRetryMax = 0
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("FINPLAY_API_BASE_URL", "http://localhost:8000"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envLevelDefault(key string, fallback slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return lvl
}
