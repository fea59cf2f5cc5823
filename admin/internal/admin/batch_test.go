package admin

import (
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestAirdrop_Admin_ReadBatchCSV(t *testing.T) {
	t.Parallel()

	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	t.Run("with header and comments", func(t *testing.T) {
		t.Parallel()
		input := "recipient,lamports\n# season one\n" + a.String() + ", 1000\n" + b.String() + ",2500\n"
		batch, err := ReadBatchCSV(strings.NewReader(input))
		require.NoError(t, err)
		require.Equal(t, []solana.PublicKey{a, b}, batch.Recipients)
		require.Equal(t, []uint64{1000, 2500}, batch.Amounts)
	})

	t.Run("without header", func(t *testing.T) {
		t.Parallel()
		batch, err := ReadBatchCSV(strings.NewReader(a.String() + ",1\n"))
		require.NoError(t, err)
		require.Len(t, batch.Recipients, 1)
	})

	t.Run("invalid amount after first row", func(t *testing.T) {
		t.Parallel()
		_, err := ReadBatchCSV(strings.NewReader(a.String() + ",1\n" + b.String() + ",-5\n"))
		require.ErrorContains(t, err, `line 2: invalid amount "-5"`)
	})

	t.Run("error line counts comments and header", func(t *testing.T) {
		t.Parallel()
		input := "recipient,lamports\n# season one\n\n# tranche b\n" + a.String() + ",1\nnope,2\n"
		_, err := ReadBatchCSV(strings.NewReader(input))
		require.ErrorContains(t, err, `line 6: invalid recipient "nope"`)
	})

	t.Run("invalid recipient", func(t *testing.T) {
		t.Parallel()
		_, err := ReadBatchCSV(strings.NewReader("nope,1\n"))
		require.ErrorContains(t, err, "invalid recipient")
	})

	t.Run("wrong column count", func(t *testing.T) {
		t.Parallel()
		_, err := ReadBatchCSV(strings.NewReader(a.String() + ",1,extra\n"))
		require.ErrorContains(t, err, "failed to read batch")
	})
}

func TestAirdrop_Admin_FormatSOL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		lamports uint64
		want     string
	}{
		{0, "0"},
		{1, "0.000000001"},
		{1_500_000_000, "1.5"},
		{1_234_000_000_000, "1,234"},
		{^uint64(0), "18,446,744,073.709551615"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, formatSOL(tt.lamports), "lamports=%d", tt.lamports)
	}
}
