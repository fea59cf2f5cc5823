package admin

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/airdrop/ledger/pkg/airdrop"
	airdroptesting "github.com/malbeclabs/airdrop/utils/pkg/testing"
	"github.com/stretchr/testify/require"
)

var testProgramID = solana.MustPublicKeyFromBase58("HKKHgo2GZQx7dfbu14rpaGduacAPEsWGe1k3B8oo9vyZ")

// The ledger tables are shared, so these run sequentially.
func TestAirdrop_Admin_Postgres(t *testing.T) {
	log := airdroptesting.NewLogger()
	pool := airdroptesting.NewPool(t, testDB)
	ctx := t.Context()

	owner := solana.NewWallet().PublicKey()

	t.Run("initialize scope", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, InitializeScope(ctx, log, pool, &out, testProgramID, "admin-scope", owner))
		require.Contains(t, out.String(), `Initialized scope "admin-scope"`)

		err := InitializeScope(ctx, log, pool, &out, testProgramID, "admin-scope", owner)
		require.ErrorIs(t, err, airdrop.ErrAlreadyInitialized)
	})

	t.Run("fund", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, Fund(ctx, log, pool, &out, owner, 1_500_000_000))
		require.NoError(t, Fund(ctx, log, pool, &out, owner, 500_000_000))
		require.Contains(t, out.String(), "balance now 2 SOL")
	})

	t.Run("reset dry run keeps rows", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, ResetLedger(ctx, log, pool, ResetConfig{DryRun: true, Out: &out}))
		require.Contains(t, out.String(), "[DRY RUN]")
		require.Contains(t, out.String(), "distribution_states: 1")
		require.Contains(t, out.String(), "balances: 1")
	})

	t.Run("reset requires confirmation", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, ResetLedger(ctx, log, pool, ResetConfig{In: strings.NewReader("no\n"), Out: &out}))
		require.Contains(t, out.String(), "Operation cancelled")

		var n int
		require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM distribution_states").Scan(&n))
		require.Equal(t, 1, n)
	})

	t.Run("reset truncates", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, ResetLedger(ctx, log, pool, ResetConfig{In: strings.NewReader("yes\n"), Out: &out}))
		require.Contains(t, out.String(), "Successfully removed 2 row(s)")

		out.Reset()
		require.NoError(t, ResetLedger(ctx, log, pool, ResetConfig{Out: &out}))
		require.Contains(t, out.String(), "already empty")
	})
}
