package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/malbeclabs/airdrop/api/handlers/dberror"
	"github.com/malbeclabs/airdrop/ledger/pkg/airdrop"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

type errorMapping struct {
	status int
	name   string
}

var ledgerErrors = map[int]errorMapping{
	airdrop.CodeArrayLengthMismatch:     {http.StatusBadRequest, "array_length_mismatch"},
	airdrop.CodeNoRecipients:            {http.StatusBadRequest, "no_recipients"},
	airdrop.CodeRecipientRecordMismatch: {http.StatusBadRequest, "recipient_record_mismatch"},
	airdrop.CodeUnauthorized:            {http.StatusForbidden, "unauthorized"},
	airdrop.CodeScopeNotFound:           {http.StatusNotFound, "scope_not_found"},
	airdrop.CodeAlreadyInitialized:      {http.StatusConflict, "already_initialized"},
	airdrop.CodeAmountOverflow:          {http.StatusUnprocessableEntity, "amount_overflow"},
	airdrop.CodeInsufficientFunds:       {http.StatusUnprocessableEntity, "insufficient_funds"},
	airdrop.CodeTransferFailed:          {http.StatusUnprocessableEntity, "transfer_failed"},
}

// Signed request failures, checked in order.
var requestErrors = []struct {
	err error
	errorMapping
}{
	{errInvalidSignature, errorMapping{http.StatusUnauthorized, "invalid_signature"}},
	{errScopeMismatch, errorMapping{http.StatusUnauthorized, "scope_mismatch"}},
	{errRequestExpired, errorMapping{http.StatusUnauthorized, "request_expired"}},
	{errRequestReplayed, errorMapping{http.StatusConflict, "request_replayed"}},
	{errReplayCacheFull, errorMapping{http.StatusServiceUnavailable, "replay_cache_full"}},
}

func requestErrorMapping(err error) (errorMapping, bool) {
	for _, e := range requestErrors {
		if errors.Is(err, e.err) {
			return e.errorMapping, true
		}
	}
	return errorMapping{}, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: message})
}

// writeError maps err onto a status and JSON body. Unclassified failures are
// reported to sentry.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if m, ok := requestErrorMapping(err); ok {
		writeJSON(w, m.status, ErrorResponse{Error: m.name, Message: err.Error()})
		return
	}

	code := airdrop.Code(err)
	if m, ok := ledgerErrors[code]; ok {
		writeJSON(w, m.status, ErrorResponse{Error: m.name, Code: code, Message: err.Error()})
		return
	}

	if dberror.IsTransient(err) {
		h.log.Warn("api: transient database error", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "unavailable", Message: dberror.UserMessage(err)})
		return
	}

	h.log.Error("api: request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
	} else {
		sentry.CaptureException(err)
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal", Message: "An unexpected error occurred. Please try again."})
}
