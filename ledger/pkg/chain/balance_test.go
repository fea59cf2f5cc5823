package chain_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/malbeclabs/airdrop/ledger/pkg/chain"
	airdroptesting "github.com/malbeclabs/airdrop/utils/pkg/testing"
	"github.com/malbeclabs/airdrop/utils/pkg/retry"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []any           `json:"params"`
}

// newRPCServer answers getBalance with the handler's result. A non-nil
// error object is returned instead of a result.
func newRPCServer(t *testing.T, handle func(call int, req rpcRequest) (result any, rpcErr map[string]any)) *httptest.Server {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, rpcErr := handle(int(calls.Add(1)), req)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func balanceResult(lamports uint64) map[string]any {
	return map[string]any{"context": map[string]any{"slot": 1234}, "value": lamports}
}

func newReader(t *testing.T, url string) *chain.BalanceReader {
	t.Helper()
	reader, err := chain.NewBalanceReader(chain.BalanceReaderConfig{
		Logger: airdroptesting.NewLogger(),
		RPC:    solanarpc.New(url),
		Retry:  retry.Config{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond},
	})
	require.NoError(t, err)
	return reader
}

func TestAirdrop_Chain_NewBalanceReader(t *testing.T) {
	t.Parallel()

	_, err := chain.NewBalanceReader(chain.BalanceReaderConfig{RPC: solanarpc.New("http://localhost")})
	require.ErrorContains(t, err, "logger is required")

	_, err = chain.NewBalanceReader(chain.BalanceReaderConfig{Logger: airdroptesting.NewLogger()})
	require.ErrorContains(t, err, "rpc client is required")
}

func TestAirdrop_Chain_GetBalance(t *testing.T) {
	t.Parallel()

	account := solana.NewWallet().PublicKey()

	t.Run("returns finalized balance", func(t *testing.T) {
		t.Parallel()
		srv := newRPCServer(t, func(_ int, req rpcRequest) (any, map[string]any) {
			require.Equal(t, "getBalance", req.Method)
			require.Equal(t, account.String(), req.Params[0])
			require.Equal(t, map[string]any{"commitment": "finalized"}, req.Params[1])
			return balanceResult(5_000_000_000), nil
		})

		got, err := newReader(t, srv.URL).GetBalance(context.Background(), account)
		require.NoError(t, err)
		require.EqualValues(t, 5_000_000_000, got)
	})

	t.Run("retries node behind", func(t *testing.T) {
		t.Parallel()
		srv := newRPCServer(t, func(call int, _ rpcRequest) (any, map[string]any) {
			if call == 1 {
				return nil, map[string]any{"code": -32005, "message": "Node is behind by 42 slots"}
			}
			return balanceResult(7), nil
		})

		got, err := newReader(t, srv.URL).GetBalance(context.Background(), account)
		require.NoError(t, err)
		require.EqualValues(t, 7, got)
	})

	t.Run("does not retry invalid params", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		srv := newRPCServer(t, func(call int, _ rpcRequest) (any, map[string]any) {
			calls.Store(int32(call))
			return nil, map[string]any{"code": -32602, "message": "Invalid param: WrongSize"}
		})

		_, err := newReader(t, srv.URL).GetBalance(context.Background(), account)
		require.ErrorContains(t, err, "failed to get balance")
		require.EqualValues(t, 1, calls.Load())
	})
}
