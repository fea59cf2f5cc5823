package admin

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/malbeclabs/airdrop/ledger/pkg/airdrop"
	"github.com/malbeclabs/airdrop/ledger/pkg/postgres"
)

func newProcessor(log *slog.Logger, pool *pgxpool.Pool) (*airdrop.Processor, *postgres.Host, error) {
	host, err := postgres.NewHost(postgres.HostConfig{Logger: log, Pool: pool})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create postgres host: %w", err)
	}
	proc, err := airdrop.NewProcessor(airdrop.ProcessorConfig{Logger: log, Host: host})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create processor: %w", err)
	}
	return proc, host, nil
}

// InitializeScope creates the distribution state for scopeName owned by owner.
func InitializeScope(ctx context.Context, log *slog.Logger, pool *pgxpool.Pool, out io.Writer, programID solana.PublicKey, scopeName string, owner solana.PublicKey) error {
	scope, err := airdrop.NewScope(programID, scopeName)
	if err != nil {
		return err
	}
	proc, _, err := newProcessor(log, pool)
	if err != nil {
		return err
	}
	if err := proc.Initialize(ctx, scope, owner); err != nil {
		return fmt.Errorf("failed to initialize scope %q: %w", scopeName, err)
	}
	fmt.Fprintf(out, "Initialized scope %q at %s (owner %s)\n", scope.Name, scope.Address, owner)
	return nil
}

// Fund credits lamports to id in the ledger's balance table.
func Fund(ctx context.Context, log *slog.Logger, pool *pgxpool.Pool, out io.Writer, id solana.PublicKey, lamports uint64) error {
	_, host, err := newProcessor(log, pool)
	if err != nil {
		return err
	}
	if err := host.Fund(ctx, id, lamports); err != nil {
		return fmt.Errorf("failed to fund %s: %w", id, err)
	}
	balance, err := host.BalanceOf(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to read balance of %s: %w", id, err)
	}
	fmt.Fprintf(out, "Funded %s with %s SOL, balance now %s SOL\n", id, formatSOL(lamports), formatSOL(balance))
	return nil
}
