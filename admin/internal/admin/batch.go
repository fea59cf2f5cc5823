package admin

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/airdrop/ledger/pkg/airdrop"
	"github.com/shopspring/decimal"
)

const lamportsPerSOLExp = -9

// ReadBatchCSV parses "recipient,lamports" rows. A first row whose amount
// column is not numeric is treated as a header, and lines starting with # are
// skipped.
func ReadBatchCSV(r io.Reader) (airdrop.Batch, error) {
	var batch airdrop.Batch

	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	for first := true; ; first = false {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return batch, fmt.Errorf("failed to read batch: %w", err)
		}

		line, _ := cr.FieldPos(0)

		amountField := strings.TrimSpace(record[1])
		amount, err := strconv.ParseUint(amountField, 10, 64)
		if err != nil {
			if first {
				continue
			}
			return batch, fmt.Errorf("line %d: invalid amount %q: %w", line, amountField, err)
		}
		recipient, err := solana.PublicKeyFromBase58(strings.TrimSpace(record[0]))
		if err != nil {
			return batch, fmt.Errorf("line %d: invalid recipient %q: %w", line, record[0], err)
		}

		batch.Recipients = append(batch.Recipients, recipient)
		batch.Amounts = append(batch.Amounts, amount)
	}
	return batch, nil
}

// formatSOL renders lamports as a SOL amount with thousands separators.
func formatSOL(lamports uint64) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), lamportsPerSOLExp)
	whole := d.Truncate(0)
	frac := d.Sub(whole)
	out := humanize.BigComma(whole.BigInt())
	if !frac.IsZero() {
		out += strings.TrimPrefix(frac.String(), "0")
	}
	return out
}
