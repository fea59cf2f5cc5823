package airdrop

import (
	"context"
	"fmt"
)

// GetTotalDistributed returns the cumulative amount distributed in scope.
func (p *Processor) GetTotalDistributed(ctx context.Context, scope Scope) (uint64, error) {
	state, err := p.loadState(ctx, scope)
	if err != nil {
		return 0, err
	}
	return state.TotalDistributed, nil
}

// GetStats returns the full state projection for scope.
func (p *Processor) GetStats(ctx context.Context, scope Scope) (*Stats, error) {
	state, err := p.loadState(ctx, scope)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Scope:            scope.Name,
		Owner:            state.Owner.String(),
		TotalDistributed: state.TotalDistributed,
		TotalBatches:     state.TotalBatches,
	}, nil
}

// GetRecipientAmount returns what recipient has received in scope. A
// recipient without a record has received nothing.
func (p *Processor) GetRecipientAmount(ctx context.Context, scope Scope, recipient Identity) (uint64, error) {
	addr, err := scope.RecipientAddress(recipient)
	if err != nil {
		return 0, err
	}
	var amount uint64
	err = p.cfg.Host.View(ctx, func(ctx context.Context, acc Accounts) error {
		if _, err := acc.LoadState(ctx, scope.Address); err != nil {
			return err
		}
		rec, found, err := acc.LoadRecipient(ctx, addr)
		if err != nil {
			return fmt.Errorf("failed to load recipient record: %w", err)
		}
		if found && rec.Recipient.Equals(recipient) {
			amount = rec.AmountReceived
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return amount, nil
}

func (p *Processor) loadState(ctx context.Context, scope Scope) (DistributionState, error) {
	var state DistributionState
	err := p.cfg.Host.View(ctx, func(ctx context.Context, acc Accounts) error {
		var err error
		state, err = acc.LoadState(ctx, scope.Address)
		return err
	})
	return state, err
}
