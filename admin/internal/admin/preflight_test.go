package admin

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/airdrop/ledger/pkg/airdrop"
	airdroptesting "github.com/malbeclabs/airdrop/utils/pkg/testing"
	"github.com/stretchr/testify/require"
)

type staticBalances map[solana.PublicKey]uint64

func (s staticBalances) GetBalance(_ context.Context, id solana.PublicKey) (uint64, error) {
	return s[id], nil
}

type failingBalances struct{ err error }

func (f failingBalances) GetBalance(context.Context, solana.PublicKey) (uint64, error) {
	return 0, f.err
}

func TestAirdrop_Admin_Preflight(t *testing.T) {
	t.Parallel()

	log := airdroptesting.NewLogger()
	caller := solana.NewWallet().PublicKey()
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	batch := airdrop.Batch{
		Recipients: []solana.PublicKey{a, b, a},
		Amounts:    []uint64{1_000_000_000, 0, 500_000_000},
	}

	t.Run("sufficient", func(t *testing.T) {
		t.Parallel()
		report, err := Preflight(t.Context(), log, staticBalances{caller: 2_000_000_000}, caller, batch)
		require.NoError(t, err)
		require.Equal(t, 3, report.Recipients)
		require.Equal(t, 2, report.UniqueRecipients)
		require.Equal(t, 1, report.ZeroAmounts)
		require.EqualValues(t, 1_000_000_000, report.MaxAmount)
		require.EqualValues(t, 1_500_000_000, report.Total)
		require.True(t, report.Sufficient())
		require.Zero(t, report.Shortfall())

		var out bytes.Buffer
		WriteReport(&out, report)
		require.Contains(t, out.String(), "Batch total:       1.5 SOL")
		require.Contains(t, out.String(), "Status:            OK")
	})

	t.Run("insufficient", func(t *testing.T) {
		t.Parallel()
		report, err := Preflight(t.Context(), log, staticBalances{caller: 1_000_000_000}, caller, batch)
		require.ErrorIs(t, err, airdrop.ErrInsufficientFunds)
		require.NotNil(t, report)
		require.EqualValues(t, 500_000_000, report.Shortfall())

		var out bytes.Buffer
		WriteReport(&out, report)
		require.Contains(t, out.String(), "INSUFFICIENT (short 0.5 SOL)")
	})

	t.Run("shape errors", func(t *testing.T) {
		t.Parallel()
		_, err := Preflight(t.Context(), log, staticBalances{}, caller, airdrop.Batch{Recipients: []solana.PublicKey{a}})
		require.ErrorIs(t, err, airdrop.ErrArrayLengthMismatch)

		_, err = Preflight(t.Context(), log, staticBalances{}, caller, airdrop.Batch{})
		require.ErrorIs(t, err, airdrop.ErrNoRecipients)

		_, err = Preflight(t.Context(), log, staticBalances{}, caller, airdrop.Batch{
			Recipients: []solana.PublicKey{a, b},
			Amounts:    []uint64{^uint64(0), 1},
		})
		require.ErrorIs(t, err, airdrop.ErrAmountOverflow)
	})

	t.Run("balance source error", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("rpc down")
		_, err := Preflight(t.Context(), log, failingBalances{err: cause}, caller, batch)
		require.ErrorIs(t, err, cause)
	})
}
