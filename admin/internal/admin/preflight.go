package admin

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/airdrop/ledger/pkg/airdrop"
)

// BalanceSource reports the lamport balance of an account.
type BalanceSource interface {
	GetBalance(ctx context.Context, id solana.PublicKey) (uint64, error)
}

// PreflightReport compares a batch against the funds available to its caller.
type PreflightReport struct {
	Caller           solana.PublicKey
	Recipients       int
	UniqueRecipients int
	ZeroAmounts      int
	MaxAmount        uint64
	Total            uint64
	Balance          uint64
}

// Sufficient reports whether the balance covers the batch total.
func (r PreflightReport) Sufficient() bool {
	return r.Balance >= r.Total
}

// Shortfall is the amount missing to cover the batch, zero when sufficient.
func (r PreflightReport) Shortfall() uint64 {
	if r.Sufficient() {
		return 0
	}
	return r.Total - r.Balance
}

// Preflight validates the batch shape and compares its total against the
// caller's balance. It reports ErrInsufficientFunds alongside the report when
// the balance is short.
func Preflight(ctx context.Context, log *slog.Logger, source BalanceSource, caller solana.PublicKey, batch airdrop.Batch) (*PreflightReport, error) {
	if len(batch.Recipients) != len(batch.Amounts) {
		return nil, airdrop.ErrArrayLengthMismatch
	}
	if len(batch.Recipients) == 0 {
		return nil, airdrop.ErrNoRecipients
	}

	total, err := airdrop.SumAmounts(batch.Amounts)
	if err != nil {
		return nil, err
	}

	report := &PreflightReport{
		Caller:     caller,
		Recipients: len(batch.Recipients),
		Total:      total,
	}
	seen := make(map[solana.PublicKey]struct{}, len(batch.Recipients))
	for i, r := range batch.Recipients {
		seen[r] = struct{}{}
		if batch.Amounts[i] == 0 {
			report.ZeroAmounts++
		}
		report.MaxAmount = max(report.MaxAmount, batch.Amounts[i])
	}
	report.UniqueRecipients = len(seen)

	report.Balance, err = source.GetBalance(ctx, caller)
	if err != nil {
		return nil, err
	}

	log.Debug("admin: preflight", "caller", caller.String(), "recipients", report.Recipients, "total", report.Total, "balance", report.Balance)

	if !report.Sufficient() {
		return report, fmt.Errorf("%w: short by %d lamports", airdrop.ErrInsufficientFunds, report.Shortfall())
	}
	return report, nil
}

// WriteReport prints a human readable summary of r.
func WriteReport(out io.Writer, r *PreflightReport) {
	fmt.Fprintf(out, "Caller:            %s\n", r.Caller)
	fmt.Fprintf(out, "Recipients:        %d (%d unique)\n", r.Recipients, r.UniqueRecipients)
	if r.ZeroAmounts > 0 {
		fmt.Fprintf(out, "Zero amounts:      %d\n", r.ZeroAmounts)
	}
	fmt.Fprintf(out, "Largest amount:    %s SOL\n", formatSOL(r.MaxAmount))
	fmt.Fprintf(out, "Batch total:       %s SOL\n", formatSOL(r.Total))
	fmt.Fprintf(out, "On-chain balance:  %s SOL\n", formatSOL(r.Balance))
	if r.Sufficient() {
		fmt.Fprintln(out, "Status:            OK")
		return
	}
	fmt.Fprintf(out, "Status:            INSUFFICIENT (short %s SOL)\n", formatSOL(r.Shortfall()))
}
