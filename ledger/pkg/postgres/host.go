package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/malbeclabs/airdrop/ledger/pkg/airdrop"
)

type HostConfig struct {
	Logger *slog.Logger
	Pool   *pgxpool.Pool
}

func (cfg *HostConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Pool == nil {
		return errors.New("postgres pool is required")
	}
	return nil
}

// Host runs every operation in one PostgreSQL transaction. Balances live in
// the same database, so transfers commit or roll back with the records.
type Host struct {
	log *slog.Logger
	cfg HostConfig
}

func NewHost(cfg HostConfig) (*Host, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Host{
		log: cfg.Logger,
		cfg: cfg,
	}, nil
}

func (h *Host) Atomically(ctx context.Context, fn func(ctx context.Context, acc airdrop.Accounts) error) error {
	return h.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, true, fn)
}

func (h *Host) View(ctx context.Context, fn func(ctx context.Context, acc airdrop.Accounts) error) error {
	return h.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadOnly}, false, fn)
}

func (h *Host) run(ctx context.Context, opts pgx.TxOptions, lock bool, fn func(ctx context.Context, acc airdrop.Accounts) error) error {
	tx, err := h.cfg.Pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			h.log.Warn("postgres: rollback failed", "error", err)
		}
	}()

	if err := fn(ctx, &accounts{tx: tx, lock: lock}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Fund credits amount to id outside of any batch.
func (h *Host) Fund(ctx context.Context, id solana.PublicKey, amount uint64) error {
	return h.Atomically(ctx, func(ctx context.Context, acc airdrop.Accounts) error {
		return acc.(*accounts).credit(ctx, id, amount)
	})
}

// BalanceOf returns the current balance of id.
func (h *Host) BalanceOf(ctx context.Context, id solana.PublicKey) (uint64, error) {
	var balance uint64
	err := h.View(ctx, func(ctx context.Context, acc airdrop.Accounts) error {
		var err error
		balance, err = acc.Balance(ctx, id)
		return err
	})
	return balance, err
}
