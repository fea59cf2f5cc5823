package airdrop

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// Identity is the 32-byte public key of a participant.
type Identity = solana.PublicKey

// DistributionState is the per-scope aggregate record.
type DistributionState struct {
	Owner            Identity
	TotalDistributed uint64
	TotalBatches     uint64
}

// RecipientLedger tracks what a single recipient has received within a scope.
type RecipientLedger struct {
	Recipient      Identity
	AmountReceived uint64
}

// Batch is one ordered set of (recipient, amount) pairs.
//
// RecipientRecords is optional. When set it must hold one record address per
// recipient, each equal to the address derived for that recipient in the
// target scope.
type Batch struct {
	Recipients       []Identity
	Amounts          []uint64
	RecipientRecords []solana.PublicKey
}

// BatchReceipt is returned for a committed batch.
type BatchReceipt struct {
	BatchID     uuid.UUID `json:"batch_id"`
	Count       uint32    `json:"count"`
	TotalAmount uint64    `json:"total_amount"`
	Timestamp   int64     `json:"timestamp"`
}

// AuditEvent is emitted once per committed batch. It is a notification and is
// not persisted.
type AuditEvent struct {
	Scope          string    `json:"scope"`
	BatchID        uuid.UUID `json:"batch_id"`
	RecipientCount uint32    `json:"recipient_count"`
	TotalAmount    uint64    `json:"total_amount"`
	Timestamp      int64     `json:"timestamp"`
}

// Time returns the event timestamp as a time.Time in UTC.
func (e AuditEvent) Time() time.Time {
	return time.Unix(e.Timestamp, 0).UTC()
}

// Stats is a read-only projection of a DistributionState.
type Stats struct {
	Scope            string `json:"scope"`
	Owner            string `json:"owner"`
	TotalDistributed uint64 `json:"total_distributed"`
	TotalBatches     uint64 `json:"total_batches"`
}
