package memhost

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/airdrop/ledger/pkg/airdrop"
)

var errReadOnly = errors.New("memhost: write in read-only view")

// tx works on private copies of the host maps; Atomically swaps them in on
// success.
type tx struct {
	host     *Host
	accounts map[solana.PublicKey][]byte
	balances map[solana.PublicKey]uint64
	readOnly bool
}

func (t *tx) LoadState(_ context.Context, addr solana.PublicKey) (airdrop.DistributionState, error) {
	var state airdrop.DistributionState
	data, ok := t.accounts[addr]
	if !ok {
		return state, airdrop.ErrScopeNotFound
	}
	if err := state.UnmarshalBinary(data); err != nil {
		return state, fmt.Errorf("failed to decode state %s: %w", addr, err)
	}
	return state, nil
}

func (t *tx) CreateState(ctx context.Context, addr solana.PublicKey, state airdrop.DistributionState) error {
	if _, ok := t.accounts[addr]; ok {
		return airdrop.ErrAlreadyInitialized
	}
	return t.SaveState(ctx, addr, state)
}

func (t *tx) SaveState(_ context.Context, addr solana.PublicKey, state airdrop.DistributionState) error {
	if t.readOnly {
		return errReadOnly
	}
	data, err := state.MarshalBinary()
	if err != nil {
		return err
	}
	t.accounts[addr] = data
	return nil
}

func (t *tx) LoadRecipient(_ context.Context, addr solana.PublicKey) (airdrop.RecipientLedger, bool, error) {
	var rec airdrop.RecipientLedger
	data, ok := t.accounts[addr]
	if !ok {
		return rec, false, nil
	}
	if err := rec.UnmarshalBinary(data); err != nil {
		return rec, false, fmt.Errorf("failed to decode recipient record %s: %w", addr, err)
	}
	return rec, true, nil
}

func (t *tx) SaveRecipient(_ context.Context, addr solana.PublicKey, rec airdrop.RecipientLedger) error {
	if t.readOnly {
		return errReadOnly
	}
	data, err := rec.MarshalBinary()
	if err != nil {
		return err
	}
	t.accounts[addr] = data
	return nil
}

func (t *tx) Balance(_ context.Context, id airdrop.Identity) (uint64, error) {
	return t.balances[id], nil
}

func (t *tx) Transfer(_ context.Context, from, to airdrop.Identity, amount uint64) error {
	if t.readOnly {
		return errReadOnly
	}
	if err, ok := t.host.faults[to]; ok {
		return err
	}
	if t.balances[from] < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", airdrop.ErrInsufficientBalance, from, t.balances[from], amount)
	}
	t.balances[from] -= amount
	credited, carry := bits.Add64(t.balances[to], amount, 0)
	if carry != 0 {
		return fmt.Errorf("balance of %s would overflow", to)
	}
	t.balances[to] = credited
	return nil
}
