// Package memhost is an in-process airdrop.Host. Records are kept as encoded
// account bytes keyed by address and every Atomically call runs under one
// lock with rollback on error.
package memhost

import (
	"context"
	"fmt"
	"maps"
	"math/bits"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/airdrop/ledger/pkg/airdrop"
)

type Host struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey][]byte
	balances map[solana.PublicKey]uint64
	faults   map[solana.PublicKey]error
}

func New() *Host {
	return &Host{
		accounts: make(map[solana.PublicKey][]byte),
		balances: make(map[solana.PublicKey]uint64),
		faults:   make(map[solana.PublicKey]error),
	}
}

// Fund credits amount to id outside of any batch.
func (h *Host) Fund(id solana.PublicKey, amount uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	sum, carry := bits.Add64(h.balances[id], amount, 0)
	if carry != 0 {
		return fmt.Errorf("balance of %s would overflow", id)
	}
	h.balances[id] = sum
	return nil
}

// BalanceOf returns the current balance of id.
func (h *Host) BalanceOf(id solana.PublicKey) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.balances[id]
}

// Account returns a copy of the raw account data stored at addr.
func (h *Host) Account(addr solana.PublicKey) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	data, ok := h.accounts[addr]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// AccountCount returns the number of stored records.
func (h *Host) AccountCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.accounts)
}

// FailTransfersTo makes every transfer to id fail with err. A nil err clears
// the fault.
func (h *Host) FailTransfersTo(id solana.PublicKey, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.faults, id)
		return
	}
	h.faults[id] = err
}

func (h *Host) Atomically(ctx context.Context, fn func(ctx context.Context, acc airdrop.Accounts) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &tx{
		host:     h,
		accounts: maps.Clone(h.accounts),
		balances: maps.Clone(h.balances),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	h.accounts = tx.accounts
	h.balances = tx.balances
	return nil
}

func (h *Host) View(ctx context.Context, fn func(ctx context.Context, acc airdrop.Accounts) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, &tx{host: h, accounts: h.accounts, balances: h.balances, readOnly: true})
}
