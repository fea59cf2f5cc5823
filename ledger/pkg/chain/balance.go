package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/malbeclabs/airdrop/utils/pkg/retry"
)

// DefaultRPCURL is used when no endpoint is configured.
const DefaultRPCURL = solanarpc.MainNetBeta_RPC

type BalanceReaderConfig struct {
	Logger     *slog.Logger
	RPC        *solanarpc.Client
	Commitment solanarpc.CommitmentType
	Retry      retry.Config
}

func (cfg *BalanceReaderConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.RPC == nil {
		return errors.New("rpc client is required")
	}
	if cfg.Commitment == "" {
		cfg.Commitment = solanarpc.CommitmentFinalized
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return nil
}

// BalanceReader reads lamport balances from a Solana cluster.
type BalanceReader struct {
	log *slog.Logger
	cfg BalanceReaderConfig
}

func NewBalanceReader(cfg BalanceReaderConfig) (*BalanceReader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	return &BalanceReader{log: cfg.Logger, cfg: cfg}, nil
}

// GetBalance returns the balance of id in lamports, retrying transient RPC
// failures.
func (r *BalanceReader) GetBalance(ctx context.Context, id solana.PublicKey) (uint64, error) {
	attempt := 0
	balance, err := retry.DoValue(ctx, r.cfg.Retry, func() (uint64, error) {
		attempt++
		res, err := r.cfg.RPC.GetBalance(ctx, id, r.cfg.Commitment)
		if err != nil {
			r.log.Debug("chain: getBalance failed", "account", id.String(), "attempt", attempt, "error", err)
			return 0, err
		}
		return res.Value, nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get balance for %s: %w", id, err)
	}
	return balance, nil
}
