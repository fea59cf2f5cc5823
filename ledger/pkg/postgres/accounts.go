package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/malbeclabs/airdrop/ledger/pkg/airdrop"
)

// u64 values are stored as NUMERIC(20, 0) and exchanged as decimal text so
// the full unsigned range round-trips.

type accounts struct {
	tx   pgx.Tx
	lock bool
}

func (a *accounts) forUpdate() string {
	if a.lock {
		return " FOR UPDATE"
	}
	return ""
}

func (a *accounts) LoadState(ctx context.Context, addr solana.PublicKey) (airdrop.DistributionState, error) {
	var (
		state                airdrop.DistributionState
		owner                string
		distributed, batches string
	)
	err := a.tx.QueryRow(ctx, `
		SELECT owner, total_distributed::text, total_batches::text
		FROM distribution_states
		WHERE address = $1`+a.forUpdate(),
		addr.String(),
	).Scan(&owner, &distributed, &batches)
	if errors.Is(err, pgx.ErrNoRows) {
		return state, airdrop.ErrScopeNotFound
	}
	if err != nil {
		return state, fmt.Errorf("failed to query distribution state: %w", err)
	}

	if state.Owner, err = solana.PublicKeyFromBase58(owner); err != nil {
		return state, fmt.Errorf("invalid owner %q: %w", owner, err)
	}
	if state.TotalDistributed, err = strconv.ParseUint(distributed, 10, 64); err != nil {
		return state, fmt.Errorf("invalid total distributed %q: %w", distributed, err)
	}
	if state.TotalBatches, err = strconv.ParseUint(batches, 10, 64); err != nil {
		return state, fmt.Errorf("invalid total batches %q: %w", batches, err)
	}
	return state, nil
}

func (a *accounts) CreateState(ctx context.Context, addr solana.PublicKey, state airdrop.DistributionState) error {
	tag, err := a.tx.Exec(ctx, `
		INSERT INTO distribution_states (address, owner, total_distributed, total_batches)
		VALUES ($1, $2, $3::text::numeric, $4::text::numeric)
		ON CONFLICT (address) DO NOTHING`,
		addr.String(), state.Owner.String(), u64(state.TotalDistributed), u64(state.TotalBatches),
	)
	if err != nil {
		return fmt.Errorf("failed to insert distribution state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return airdrop.ErrAlreadyInitialized
	}
	return nil
}

func (a *accounts) SaveState(ctx context.Context, addr solana.PublicKey, state airdrop.DistributionState) error {
	tag, err := a.tx.Exec(ctx, `
		UPDATE distribution_states
		SET total_distributed = $2::text::numeric, total_batches = $3::text::numeric, updated_at = now()
		WHERE address = $1`,
		addr.String(), u64(state.TotalDistributed), u64(state.TotalBatches),
	)
	if err != nil {
		return fmt.Errorf("failed to update distribution state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return airdrop.ErrScopeNotFound
	}
	return nil
}

func (a *accounts) LoadRecipient(ctx context.Context, addr solana.PublicKey) (airdrop.RecipientLedger, bool, error) {
	var (
		rec       airdrop.RecipientLedger
		recipient string
		amount    string
	)
	err := a.tx.QueryRow(ctx, `
		SELECT recipient, amount_received::text
		FROM recipient_ledgers
		WHERE address = $1`+a.forUpdate(),
		addr.String(),
	).Scan(&recipient, &amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, fmt.Errorf("failed to query recipient ledger: %w", err)
	}

	if rec.Recipient, err = solana.PublicKeyFromBase58(recipient); err != nil {
		return rec, false, fmt.Errorf("invalid recipient %q: %w", recipient, err)
	}
	if rec.AmountReceived, err = strconv.ParseUint(amount, 10, 64); err != nil {
		return rec, false, fmt.Errorf("invalid amount received %q: %w", amount, err)
	}
	return rec, true, nil
}

func (a *accounts) SaveRecipient(ctx context.Context, addr solana.PublicKey, rec airdrop.RecipientLedger) error {
	// The recipient column is never rewritten once set.
	_, err := a.tx.Exec(ctx, `
		INSERT INTO recipient_ledgers (address, recipient, amount_received)
		VALUES ($1, $2, $3::text::numeric)
		ON CONFLICT (address) DO UPDATE
		SET amount_received = EXCLUDED.amount_received, updated_at = now()
		WHERE recipient_ledgers.recipient = EXCLUDED.recipient`,
		addr.String(), rec.Recipient.String(), u64(rec.AmountReceived),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert recipient ledger: %w", err)
	}
	return nil
}

func (a *accounts) Balance(ctx context.Context, id airdrop.Identity) (uint64, error) {
	var lamports string
	err := a.tx.QueryRow(ctx, `
		SELECT lamports::text FROM balances WHERE identity = $1`+a.forUpdate(),
		id.String(),
	).Scan(&lamports)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query balance: %w", err)
	}
	balance, err := strconv.ParseUint(lamports, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid balance %q: %w", lamports, err)
	}
	return balance, nil
}

func (a *accounts) Transfer(ctx context.Context, from, to airdrop.Identity, amount uint64) error {
	if amount == 0 {
		return nil
	}
	tag, err := a.tx.Exec(ctx, `
		UPDATE balances
		SET lamports = lamports - $2::text::numeric, updated_at = now()
		WHERE identity = $1 AND lamports >= $2::text::numeric`,
		from.String(), u64(amount),
	)
	if err != nil {
		return fmt.Errorf("failed to debit %s: %w", from, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s cannot cover %d", airdrop.ErrInsufficientBalance, from, amount)
	}
	return a.credit(ctx, to, amount)
}

func (a *accounts) credit(ctx context.Context, id airdrop.Identity, amount uint64) error {
	_, err := a.tx.Exec(ctx, `
		INSERT INTO balances (identity, lamports)
		VALUES ($1, $2::text::numeric)
		ON CONFLICT (identity) DO UPDATE
		SET lamports = balances.lamports + EXCLUDED.lamports, updated_at = now()`,
		id.String(), u64(amount),
	)
	if err != nil {
		return fmt.Errorf("failed to credit %s: %w", id, err)
	}
	return nil
}

func u64(v uint64) string {
	return strconv.FormatUint(v, 10)
}
