package admin

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ledgerTables are truncated by ResetLedger, dependents first.
var ledgerTables = []string{"recipient_ledgers", "distribution_states", "balances"}

type ResetConfig struct {
	DryRun      bool
	SkipConfirm bool
	In          io.Reader
	Out         io.Writer
}

// ResetLedger removes every scope, recipient record and balance. It lists row
// counts first and requires typing "yes" unless SkipConfirm is set.
func ResetLedger(ctx context.Context, log *slog.Logger, pool *pgxpool.Pool, cfg ResetConfig) error {
	counts := make(map[string]int64, len(ledgerTables))
	var total int64
	for _, table := range ledgerTables {
		var n int64
		// Table names come from ledgerTables, never from input.
		if err := pool.QueryRow(ctx, "SELECT count(*) FROM "+pgx.Identifier{table}.Sanitize()).Scan(&n); err != nil {
			return fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
		total += n
	}

	if total == 0 {
		fmt.Fprintln(cfg.Out, "Ledger is already empty")
		return nil
	}

	fmt.Fprintf(cfg.Out, "WARNING: This will DELETE %d row(s):\n\n", total)
	for _, table := range ledgerTables {
		fmt.Fprintf(cfg.Out, "  - %s: %d\n", table, counts[table])
	}

	if cfg.DryRun {
		fmt.Fprintln(cfg.Out, "\n[DRY RUN] Would truncate the above tables")
		return nil
	}

	if !cfg.SkipConfirm {
		fmt.Fprintf(cfg.Out, "\nThis is a DESTRUCTIVE operation that cannot be undone!\n")
		fmt.Fprintf(cfg.Out, "Type 'yes' to confirm: ")

		response, err := bufio.NewReader(cfg.In).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if strings.TrimSpace(strings.ToLower(response)) != "yes" {
			fmt.Fprintf(cfg.Out, "\nConfirmation failed. Operation cancelled.\n")
			return nil
		}
		fmt.Fprintln(cfg.Out)
	}

	idents := make([]string, len(ledgerTables))
	for i, table := range ledgerTables {
		idents[i] = pgx.Identifier{table}.Sanitize()
	}
	if _, err := pool.Exec(ctx, "TRUNCATE "+strings.Join(idents, ", ")); err != nil {
		return fmt.Errorf("failed to truncate ledger tables: %w", err)
	}

	log.Info("admin: ledger reset", "rows", total)
	fmt.Fprintf(cfg.Out, "Successfully removed %d row(s)\n", total)
	return nil
}
