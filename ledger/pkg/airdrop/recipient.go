package airdrop

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/gagliardetto/solana-go"
)

// creditRecipient adds delta to the ledger record at addr, creating it for
// recipient on first use. A record that belongs to another recipient is never
// overwritten.
func creditRecipient(ctx context.Context, acc Records, addr solana.PublicKey, recipient Identity, delta uint64) (RecipientLedger, error) {
	rec, found, err := acc.LoadRecipient(ctx, addr)
	if err != nil {
		return RecipientLedger{}, fmt.Errorf("failed to load recipient record: %w", err)
	}
	if !found {
		rec = RecipientLedger{Recipient: recipient}
	} else if !rec.Recipient.Equals(recipient) {
		return RecipientLedger{}, fmt.Errorf("%w: record %s belongs to %s, not %s", ErrRecipientRecordMismatch, addr, rec.Recipient, recipient)
	}

	sum, carry := bits.Add64(rec.AmountReceived, delta, 0)
	if carry != 0 {
		return RecipientLedger{}, fmt.Errorf("%w: amount received by %s", ErrAmountOverflow, recipient)
	}
	rec.AmountReceived = sum

	if err := acc.SaveRecipient(ctx, addr, rec); err != nil {
		return RecipientLedger{}, fmt.Errorf("failed to save recipient record: %w", err)
	}
	return rec, nil
}

// SumAmounts returns the total of amounts, or ErrAmountOverflow if it does not
// fit in a u64.
func SumAmounts(amounts []uint64) (uint64, error) {
	var total uint64
	for i, a := range amounts {
		var carry uint64
		total, carry = bits.Add64(total, a, 0)
		if carry != 0 {
			return 0, fmt.Errorf("%w: sum exceeds u64 at index %d", ErrAmountOverflow, i)
		}
	}
	return total, nil
}
