package airdrop_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"github.com/malbeclabs/airdrop/ledger/pkg/airdrop"
	"github.com/malbeclabs/airdrop/ledger/pkg/memhost"
	airdroptesting "github.com/malbeclabs/airdrop/utils/pkg/testing"
	"github.com/stretchr/testify/require"
)

var testProgramID = solana.MustPublicKeyFromBase58("HKKHgo2GZQx7dfbu14rpaGduacAPEsWGe1k3B8oo9vyZ")

type recordingSink struct {
	mu     sync.Mutex
	events []airdrop.AuditEvent
}

func (s *recordingSink) Emit(_ context.Context, e airdrop.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) Events() []airdrop.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]airdrop.AuditEvent(nil), s.events...)
}

type fixture struct {
	host   *memhost.Host
	clock  *clockwork.FakeClock
	sink   *recordingSink
	proc   *airdrop.Processor
	scope  airdrop.Scope
	owner  solana.PublicKey
	others []solana.PublicKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	host := memhost.New()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	sink := &recordingSink{}
	proc, err := airdrop.NewProcessor(airdrop.ProcessorConfig{
		Logger: airdroptesting.NewLogger(),
		Clock:  clock,
		Host:   host,
		Events: sink,
	})
	require.NoError(t, err)

	scope, err := airdrop.NewScope(testProgramID, "main")
	require.NoError(t, err)

	return &fixture{
		host:   host,
		clock:  clock,
		sink:   sink,
		proc:   proc,
		scope:  scope,
		owner:  newIdentity(),
		others: []solana.PublicKey{newIdentity(), newIdentity(), newIdentity()},
	}
}

func (f *fixture) initialize(t *testing.T, balance uint64) {
	t.Helper()
	require.NoError(t, f.proc.Initialize(t.Context(), f.scope, f.owner))
	if balance > 0 {
		require.NoError(t, f.host.Fund(f.owner, balance))
	}
}

func (f *fixture) state(t *testing.T) airdrop.DistributionState {
	t.Helper()
	data, ok := f.host.Account(f.scope.Address)
	require.True(t, ok, "state account should exist")
	var state airdrop.DistributionState
	require.NoError(t, state.UnmarshalBinary(data))
	return state
}

func (f *fixture) recipient(t *testing.T, id solana.PublicKey) (airdrop.RecipientLedger, bool) {
	t.Helper()
	addr, err := f.scope.RecipientAddress(id)
	require.NoError(t, err)
	data, ok := f.host.Account(addr)
	if !ok {
		return airdrop.RecipientLedger{}, false
	}
	var rec airdrop.RecipientLedger
	require.NoError(t, rec.UnmarshalBinary(data))
	return rec, true
}

func newIdentity() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}
