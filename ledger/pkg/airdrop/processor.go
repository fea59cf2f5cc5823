package airdrop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/bits"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/malbeclabs/airdrop/ledger/pkg/metrics"
)

type ProcessorConfig struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
	Host   Host
	Events EventSink // optional
}

func (cfg *ProcessorConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Host == nil {
		return errors.New("host is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Processor applies batches against distribution scopes.
type Processor struct {
	log *slog.Logger
	cfg ProcessorConfig
}

func NewProcessor(cfg ProcessorConfig) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Processor{
		log: cfg.Logger,
		cfg: cfg,
	}, nil
}

// Initialize creates the distribution state for scope, owned by owner, with
// zeroed counters.
func (p *Processor) Initialize(ctx context.Context, scope Scope, owner Identity) error {
	if owner.IsZero() {
		return errors.New("owner is required")
	}
	err := p.cfg.Host.Atomically(ctx, func(ctx context.Context, acc Accounts) error {
		return acc.CreateState(ctx, scope.Address, DistributionState{Owner: owner})
	})
	if err != nil {
		return fmt.Errorf("failed to initialize scope %s: %w", scope.Name, err)
	}
	p.log.Info("airdrop: scope initialized", "scope", scope.Name, "address", scope.Address.String(), "owner", owner.String())
	return nil
}

// Distribute debits caller and credits every recipient in input order, then
// advances the scope counters and emits one audit event. Every precondition is
// checked before the first transfer. The batch commits or fails as a whole.
func (p *Processor) Distribute(ctx context.Context, caller Identity, scope Scope, batch Batch) (*BatchReceipt, error) {
	start := time.Now()
	receipt, err := p.distribute(ctx, caller, scope, batch)
	metrics.RecordBatch(statusLabel(err), len(batch.Recipients), time.Since(start))
	if err != nil {
		p.log.Warn("airdrop: batch rejected", "scope", scope.Name, "caller", caller.String(), "recipients", len(batch.Recipients), "error", err)
		return nil, err
	}
	metrics.LamportsDistributedTotal.WithLabelValues(scope.Name).Add(float64(receipt.TotalAmount))

	p.log.Info("airdrop: batch committed",
		"scope", scope.Name,
		"batch_id", receipt.BatchID.String(),
		"recipients", receipt.Count,
		"total_amount", receipt.TotalAmount)

	if p.cfg.Events != nil {
		p.cfg.Events.Emit(ctx, AuditEvent{
			Scope:          scope.Name,
			BatchID:        receipt.BatchID,
			RecipientCount: receipt.Count,
			TotalAmount:    receipt.TotalAmount,
			Timestamp:      receipt.Timestamp,
		})
	}
	return receipt, nil
}

func (p *Processor) distribute(ctx context.Context, caller Identity, scope Scope, batch Batch) (*BatchReceipt, error) {
	if len(batch.Recipients) != len(batch.Amounts) {
		return nil, fmt.Errorf("%w: %d recipients, %d amounts", ErrArrayLengthMismatch, len(batch.Recipients), len(batch.Amounts))
	}
	if len(batch.Recipients) == 0 {
		return nil, ErrNoRecipients
	}
	if uint64(len(batch.Recipients)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: too many recipients", ErrAmountOverflow)
	}
	addrs, err := recipientAddresses(scope, batch)
	if err != nil {
		return nil, err
	}

	receipt := &BatchReceipt{
		BatchID: uuid.New(),
		Count:   uint32(len(batch.Recipients)),
	}

	err = p.cfg.Host.Atomically(ctx, func(ctx context.Context, acc Accounts) error {
		state, err := acc.LoadState(ctx, scope.Address)
		if err != nil {
			return err
		}
		if !caller.Equals(state.Owner) {
			return ErrUnauthorized
		}

		total, err := SumAmounts(batch.Amounts)
		if err != nil {
			return err
		}
		distributed, carry := bits.Add64(state.TotalDistributed, total, 0)
		if carry != 0 {
			return fmt.Errorf("%w: total distributed", ErrAmountOverflow)
		}
		if state.TotalBatches == math.MaxUint64 {
			return fmt.Errorf("%w: total batches", ErrAmountOverflow)
		}

		balance, err := acc.Balance(ctx, caller)
		if err != nil {
			return fmt.Errorf("failed to read caller balance: %w", err)
		}
		if balance < total {
			return fmt.Errorf("%w: balance %d, required %d", ErrInsufficientFunds, balance, total)
		}

		for i, recipient := range batch.Recipients {
			amount := batch.Amounts[i]
			if err := acc.Transfer(ctx, caller, recipient, amount); err != nil {
				return &TransferError{Index: i, Recipient: recipient, Amount: amount, Err: err}
			}
			if _, err := creditRecipient(ctx, acc, addrs[i], recipient, amount); err != nil {
				return err
			}
		}

		state.TotalDistributed = distributed
		state.TotalBatches++
		if err := acc.SaveState(ctx, scope.Address, state); err != nil {
			return fmt.Errorf("failed to save state: %w", err)
		}

		receipt.TotalAmount = total
		receipt.Timestamp = p.cfg.Clock.Now().Unix()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// recipientAddresses derives one record address per recipient and checks any
// caller-supplied record handles against them.
func recipientAddresses(scope Scope, batch Batch) ([]solana.PublicKey, error) {
	if batch.RecipientRecords != nil && len(batch.RecipientRecords) != len(batch.Recipients) {
		return nil, fmt.Errorf("%w: %d records for %d recipients", ErrRecipientRecordMismatch, len(batch.RecipientRecords), len(batch.Recipients))
	}
	addrs := make([]solana.PublicKey, len(batch.Recipients))
	for i, recipient := range batch.Recipients {
		addr, err := scope.RecipientAddress(recipient)
		if err != nil {
			return nil, err
		}
		if batch.RecipientRecords != nil && !batch.RecipientRecords[i].Equals(addr) {
			return nil, fmt.Errorf("%w: index %d: got %s, want %s", ErrRecipientRecordMismatch, i, batch.RecipientRecords[i], addr)
		}
		addrs[i] = addr
	}
	return addrs, nil
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrArrayLengthMismatch):
		return "array_length_mismatch"
	case errors.Is(err, ErrNoRecipients):
		return "no_recipients"
	case errors.Is(err, ErrRecipientRecordMismatch):
		return "recipient_record_mismatch"
	case errors.Is(err, ErrScopeNotFound):
		return "scope_not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrAmountOverflow):
		return "amount_overflow"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	default:
		return "error"
	}
}
