package airdrop

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Ledger is the external value-transfer primitive.
type Ledger interface {
	// Balance returns the spendable balance of id in lamports.
	Balance(ctx context.Context, id Identity) (uint64, error)
	// Transfer moves amount from one identity to another. It fails with
	// ErrInsufficientBalance when from cannot cover amount.
	Transfer(ctx context.Context, from, to Identity, amount uint64) error
}

// Records is the record storage reachable inside a host transaction.
type Records interface {
	// LoadState returns ErrScopeNotFound when no state exists at addr.
	LoadState(ctx context.Context, addr solana.PublicKey) (DistributionState, error)
	// CreateState returns ErrAlreadyInitialized when a state exists at addr.
	CreateState(ctx context.Context, addr solana.PublicKey, state DistributionState) error
	SaveState(ctx context.Context, addr solana.PublicKey, state DistributionState) error

	// LoadRecipient reports found=false when no record exists at addr.
	LoadRecipient(ctx context.Context, addr solana.PublicKey) (rec RecipientLedger, found bool, err error)
	SaveRecipient(ctx context.Context, addr solana.PublicKey, rec RecipientLedger) error
}

// Accounts is everything a single operation touches within one host
// transaction.
type Accounts interface {
	Records
	Ledger
}

// Host is the atomic execution environment. Atomically runs fn in one
// transaction: if fn returns an error every write made through acc, including
// transfers, is discarded. The host serializes mutations of the same records.
type Host interface {
	Atomically(ctx context.Context, fn func(ctx context.Context, acc Accounts) error) error
	View(ctx context.Context, fn func(ctx context.Context, acc Accounts) error) error
}

// EventSink receives audit events after their batch has committed.
type EventSink interface {
	Emit(ctx context.Context, event AuditEvent)
}
