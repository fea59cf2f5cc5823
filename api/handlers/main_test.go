package handlers_test

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/malbeclabs/airdrop/api/handlers"
	"github.com/malbeclabs/airdrop/api/handlers/dberror"
	"github.com/malbeclabs/airdrop/ledger/pkg/airdrop"
	"github.com/malbeclabs/airdrop/ledger/pkg/events"
	"github.com/malbeclabs/airdrop/ledger/pkg/memhost"
	airdroptesting "github.com/malbeclabs/airdrop/utils/pkg/testing"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var testProgramID = solana.MustPublicKeyFromBase58("HKKHgo2GZQx7dfbu14rpaGduacAPEsWGe1k3B8oo9vyZ")

type apiFixture struct {
	clock   *clockwork.FakeClock
	host    *memhost.Host
	events  *events.Broadcaster
	router  chi.Router
	owner   solana.PrivateKey
	scopeID string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	log := airdroptesting.NewLogger()

	broadcaster, err := events.NewBroadcaster(events.BroadcasterConfig{Logger: log})
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	host := memhost.New()
	proc, err := airdrop.NewProcessor(airdrop.ProcessorConfig{
		Logger: log,
		Clock:  clock,
		Host:   host,
		Events: broadcaster,
	})
	require.NoError(t, err)

	h, err := handlers.New(t.Context(), handlers.Config{
		Logger:        log,
		Clock:         clock,
		Processor:     proc,
		ProgramID:     testProgramID,
		Events:        broadcaster,
		MutationRate:  rate.Inf,
		MutationBurst: 1,
		ReadRetry:     dberror.RetryConfig{MaxAttempts: 1},
		KeepAlive:     50 * time.Millisecond,
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	h.Routes(r)

	owner, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	return &apiFixture{clock: clock, host: host, events: broadcaster, router: r, owner: owner, scopeID: "season-1"}
}

func (f *apiFixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func signedRequest(t *testing.T, path string, signer solana.PrivateKey, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if signer != nil {
		sig := ed25519.Sign(ed25519.PrivateKey(signer), raw)
		req.Header.Set(handlers.SignatureHeader, base64.StdEncoding.EncodeToString(sig))
	}
	return req
}

func (f *apiFixture) initialize(t *testing.T, balance uint64) {
	t.Helper()
	rec := f.do(t, signedRequest(t, "/api/scopes/"+f.scopeID+"/initialize", f.owner,
		handlers.InitializeRequest{Envelope: f.envelope(f.scopeID), Owner: f.owner.PublicKey().String()}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	if balance > 0 {
		require.NoError(t, f.host.Fund(f.owner.PublicKey(), balance))
	}
}

// envelope binds a request to scope, expiring a minute from now.
func (f *apiFixture) envelope(scope string) handlers.Envelope {
	return handlers.Envelope{Scope: scope, ExpiresAt: f.clock.Now().Add(time.Minute).Unix()}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func newIdentity() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}
