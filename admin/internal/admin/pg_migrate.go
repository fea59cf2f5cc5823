package admin

import (
	"context"
	"log/slog"

	"github.com/malbeclabs/airdrop/api/config"
	"github.com/malbeclabs/airdrop/ledger/pkg/postgres"
)

// PgMigrateUp runs all pending ledger migrations.
func PgMigrateUp(ctx context.Context, log *slog.Logger, cfg config.PgConfig) error {
	return postgres.Migrate(ctx, log, cfg.ConnString())
}

// PgMigrateDown rolls back the last ledger migration.
func PgMigrateDown(ctx context.Context, log *slog.Logger, cfg config.PgConfig) error {
	return postgres.MigrateDown(ctx, log, cfg.ConnString())
}

// PgMigrateStatus shows the status of all ledger migrations.
func PgMigrateStatus(ctx context.Context, log *slog.Logger, cfg config.PgConfig) error {
	return postgres.MigrationStatus(ctx, log, cfg.ConnString())
}
