package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/malbeclabs/airdrop/api/handlers/dberror"
	"github.com/malbeclabs/airdrop/ledger/pkg/airdrop"
)

const maxBodyBytes = 1 << 20

type InitializeRequest struct {
	Envelope
	Owner string `json:"owner"`
}

type InitializeResponse struct {
	Scope   string `json:"scope"`
	Address string `json:"address"`
	Owner   string `json:"owner"`
}

type DistributeRequest struct {
	Envelope
	Caller           string   `json:"caller"`
	Recipients       []string `json:"recipients"`
	Amounts          []uint64 `json:"amounts"`
	RecipientRecords []string `json:"recipient_records,omitempty"`
}

type TotalResponse struct {
	Scope            string `json:"scope"`
	TotalDistributed uint64 `json:"total_distributed"`
}

type RecipientResponse struct {
	Scope          string `json:"scope"`
	Recipient      string `json:"recipient"`
	Address        string `json:"address"`
	AmountReceived uint64 `json:"amount_received"`
}

func (e *Envelope) envelope() *Envelope { return e }

func (r *InitializeRequest) signer() string { return r.Owner }
func (r *DistributeRequest) signer() string { return r.Caller }

type signedBody interface {
	signer() string
	envelope() *Envelope
}

// readSigned reads the body into a T after checking it was signed by the key
// the body names, for this scope, and has not been seen before.
func readSigned[T any, PT interface {
	*T
	signedBody
}](h *Handler, w http.ResponseWriter, r *http.Request, scope airdrop.Scope) (*T, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	var v T
	p := PT(&v)
	if err := json.Unmarshal(body, p); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	signature := r.Header.Get(SignatureHeader)
	if err := verifyCaller(p.signer(), body, signature); err != nil {
		return nil, err
	}

	env := p.envelope()
	if env.Scope != scope.Name {
		return nil, fmt.Errorf("%w: signed for %q", errScopeMismatch, env.Scope)
	}
	// Keyed on the decoded bytes so re-encoding the header does not bypass it.
	sig, err := decodeSignature(signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidSignature, err)
	}
	if err := h.replay.admit(string(sig), time.Unix(env.ExpiresAt, 0)); err != nil {
		return nil, err
	}
	return &v, nil
}

func parseIdentities(field string, values []string) ([]solana.PublicKey, error) {
	if values == nil {
		return nil, nil
	}
	out := make([]solana.PublicKey, len(values))
	for i, v := range values {
		pk, err := solana.PublicKeyFromBase58(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s[%d] %q: %w", field, i, v, err)
		}
		out[i] = pk
	}
	return out, nil
}

// Initialize creates the scope's distribution state owned by the signer.
func (h *Handler) Initialize(w http.ResponseWriter, r *http.Request) {
	scope, err := h.scope(chi.URLParam(r, "scope"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	req, err := readSigned[InitializeRequest](h, w, r, scope)
	if err != nil {
		h.writeRequestError(w, r, err)
		return
	}
	owner, err := solana.PublicKeyFromBase58(req.Owner)
	if err != nil {
		badRequest(w, fmt.Sprintf("invalid owner: %v", err))
		return
	}

	if err := h.cfg.Processor.Initialize(r.Context(), scope, owner); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, InitializeResponse{
		Scope:   scope.Name,
		Address: scope.Address.String(),
		Owner:   owner.String(),
	})
}

// Distribute applies a signed batch and returns its receipt.
func (h *Handler) Distribute(w http.ResponseWriter, r *http.Request) {
	scope, err := h.scope(chi.URLParam(r, "scope"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	req, err := readSigned[DistributeRequest](h, w, r, scope)
	if err != nil {
		h.writeRequestError(w, r, err)
		return
	}
	caller, err := solana.PublicKeyFromBase58(req.Caller)
	if err != nil {
		badRequest(w, fmt.Sprintf("invalid caller: %v", err))
		return
	}
	recipients, err := parseIdentities("recipients", req.Recipients)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	records, err := parseIdentities("recipient_records", req.RecipientRecords)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	receipt, err := h.cfg.Processor.Distribute(r.Context(), caller, scope, airdrop.Batch{
		Recipients:       recipients,
		Amounts:          req.Amounts,
		RecipientRecords: records,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *Handler) GetTotal(w http.ResponseWriter, r *http.Request) {
	scope, err := h.scope(chi.URLParam(r, "scope"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	total, err := dberror.Retry(r.Context(), h.cfg.ReadRetry, func() (uint64, error) {
		return h.cfg.Processor.GetTotalDistributed(r.Context(), scope)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TotalResponse{Scope: scope.Name, TotalDistributed: total})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	scope, err := h.scope(chi.URLParam(r, "scope"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	stats, err := dberror.Retry(r.Context(), h.cfg.ReadRetry, func() (*airdrop.Stats, error) {
		return h.cfg.Processor.GetStats(r.Context(), scope)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) GetRecipient(w http.ResponseWriter, r *http.Request) {
	scope, err := h.scope(chi.URLParam(r, "scope"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	recipient, err := solana.PublicKeyFromBase58(chi.URLParam(r, "recipient"))
	if err != nil {
		badRequest(w, fmt.Sprintf("invalid recipient: %v", err))
		return
	}
	addr, err := scope.RecipientAddress(recipient)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	amount, err := dberror.Retry(r.Context(), h.cfg.ReadRetry, func() (uint64, error) {
		return h.cfg.Processor.GetRecipientAmount(r.Context(), scope, recipient)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RecipientResponse{
		Scope:          scope.Name,
		Recipient:      recipient.String(),
		Address:        addr.String(),
		AmountReceived: amount,
	})
}

// writeRequestError reports body decoding and signature failures.
func (h *Handler) writeRequestError(w http.ResponseWriter, r *http.Request, err error) {
	if _, ok := requestErrorMapping(err); ok {
		h.writeError(w, r, err)
		return
	}
	badRequest(w, err.Error())
}
