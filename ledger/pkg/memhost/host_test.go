package memhost

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/airdrop/ledger/pkg/airdrop"
	"github.com/stretchr/testify/require"
)

func TestAirdrop_MemHost_AtomicallyRollsBack(t *testing.T) {
	t.Parallel()

	h := New()
	from, to := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	require.NoError(t, h.Fund(from, 100))

	boom := errors.New("boom")
	err := h.Atomically(context.Background(), func(ctx context.Context, acc airdrop.Accounts) error {
		require.NoError(t, acc.Transfer(ctx, from, to, 60))
		require.NoError(t, acc.SaveRecipient(ctx, to, airdrop.RecipientLedger{Recipient: to, AmountReceived: 60}))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.EqualValues(t, 100, h.BalanceOf(from))
	require.Zero(t, h.BalanceOf(to))
	require.Zero(t, h.AccountCount())
}

func TestAirdrop_MemHost_Transfer(t *testing.T) {
	t.Parallel()

	h := New()
	from, to := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	require.NoError(t, h.Fund(from, 50))

	err := h.Atomically(context.Background(), func(ctx context.Context, acc airdrop.Accounts) error {
		return acc.Transfer(ctx, from, to, 51)
	})
	require.ErrorIs(t, err, airdrop.ErrInsufficientBalance)

	require.NoError(t, h.Atomically(context.Background(), func(ctx context.Context, acc airdrop.Accounts) error {
		return acc.Transfer(ctx, from, to, 50)
	}))
	require.Zero(t, h.BalanceOf(from))
	require.EqualValues(t, 50, h.BalanceOf(to))

	require.Error(t, h.Fund(to, math.MaxUint64))
}

func TestAirdrop_MemHost_ViewIsReadOnly(t *testing.T) {
	t.Parallel()

	h := New()
	addr := solana.NewWallet().PublicKey()
	err := h.View(context.Background(), func(ctx context.Context, acc airdrop.Accounts) error {
		return acc.SaveState(ctx, addr, airdrop.DistributionState{Owner: addr})
	})
	require.ErrorIs(t, err, errReadOnly)
	require.Zero(t, h.AccountCount())
}

func TestAirdrop_MemHost_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := New().Atomically(ctx, func(context.Context, airdrop.Accounts) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}
