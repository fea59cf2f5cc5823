package airdrop

import (
	"errors"
	"fmt"
)

var (
	ErrArrayLengthMismatch     = errors.New("arrays must have the same length")
	ErrNoRecipients            = errors.New("no recipients provided")
	ErrUnauthorized            = errors.New("only owner can call this function")
	ErrAmountOverflow          = errors.New("amount overflow")
	ErrInsufficientFunds       = errors.New("insufficient funds for airdrop")
	ErrTransferFailed          = errors.New("transfer failed")
	ErrAlreadyInitialized      = errors.New("scope already initialized")
	ErrScopeNotFound           = errors.New("scope not found")
	ErrRecipientRecordMismatch = errors.New("recipient record does not match derived address")

	// ErrInsufficientBalance is returned by ledgers when a single transfer
	// cannot be covered by the source balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Codes follow the Anchor custom error numbering so clients of the on-chain
// program can map them unchanged.
const (
	CodeArrayLengthMismatch = 6000 + iota
	CodeNoRecipients
	CodeUnauthorized
	CodeInsufficientFunds
	CodeAmountOverflow
	CodeTransferFailed
	CodeAlreadyInitialized
	CodeScopeNotFound
	CodeRecipientRecordMismatch
)

// errorCodes is ordered: the first match wins. ErrTransferFailed leads because
// a TransferError's reason may itself wrap another sentinel.
var errorCodes = []struct {
	err  error
	code int
}{
	{ErrTransferFailed, CodeTransferFailed},
	{ErrArrayLengthMismatch, CodeArrayLengthMismatch},
	{ErrNoRecipients, CodeNoRecipients},
	{ErrUnauthorized, CodeUnauthorized},
	{ErrInsufficientFunds, CodeInsufficientFunds},
	{ErrAmountOverflow, CodeAmountOverflow},
	{ErrAlreadyInitialized, CodeAlreadyInitialized},
	{ErrScopeNotFound, CodeScopeNotFound},
	{ErrRecipientRecordMismatch, CodeRecipientRecordMismatch},
}

// Code returns the numeric error code for err, or 0 if err is not a
// distribution error.
func Code(err error) int {
	if err == nil {
		return 0
	}
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return 0
}

// TransferError reports a failed transfer within a batch. It matches
// ErrTransferFailed with errors.Is and unwraps to the ledger's reason.
type TransferError struct {
	Index     int
	Recipient Identity
	Amount    uint64
	Err       error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed: recipient %d (%s) amount %d: %v", e.Index, e.Recipient, e.Amount, e.Err)
}

func (e *TransferError) Unwrap() []error {
	return []error{ErrTransferFailed, e.Err}
}
