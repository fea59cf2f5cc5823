package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/malbeclabs/airdrop/ledger/pkg/postgres"
)

// PgConfig holds the PostgreSQL configuration.
type PgConfig struct {
	Host          string
	Port          string
	Database      string
	Username      string
	Password      string
	SSLMode       string
	RunMigrations bool
}

// PgConfigFromEnv reads POSTGRES_* variables.
func PgConfigFromEnv() (PgConfig, error) {
	cfg := PgConfig{
		Host:          getenv("POSTGRES_HOST", "localhost"),
		Port:          getenv("POSTGRES_PORT", "5432"),
		Database:      os.Getenv("POSTGRES_DB"),
		Username:      os.Getenv("POSTGRES_USER"),
		Password:      os.Getenv("POSTGRES_PASSWORD"),
		SSLMode:       getenv("POSTGRES_SSLMODE", "disable"),
		RunMigrations: os.Getenv("POSTGRES_RUN_MIGRATIONS") == "true",
	}
	return cfg, cfg.Validate()
}

func (cfg PgConfig) Validate() error {
	if cfg.Database == "" {
		return errors.New("POSTGRES_DB is required")
	}
	if cfg.Username == "" {
		return errors.New("POSTGRES_USER is required")
	}
	if cfg.Password == "" {
		return errors.New("POSTGRES_PASSWORD is required")
	}
	return nil
}

// ConnString renders a postgres:// URL with credentials escaped.
func (cfg PgConfig) ConnString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     cfg.Host + ":" + cfg.Port,
		Path:     "/" + cfg.Database,
		RawQuery: "sslmode=" + url.QueryEscape(cfg.SSLMode),
	}
	return u.String()
}

// LoadPostgres connects a pool and, when enabled, applies migrations first.
func LoadPostgres(ctx context.Context, log *slog.Logger, cfg PgConfig) (*pgxpool.Pool, error) {
	log.Info("postgres: connecting", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database, "username", cfg.Username)

	if cfg.RunMigrations {
		if err := postgres.Migrate(ctx, log, cfg.ConnString()); err != nil {
			return nil, err
		}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	log.Info("postgres: connected")
	return pool, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
