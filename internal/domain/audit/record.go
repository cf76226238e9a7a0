package audit

import (
	"time"

	"github.com/account-ledger-engine/internal/domain/shared"
	"github.com/google/uuid"
)

// Record describes one committed balance-affecting operation. Records are
// immutable once their sequence number is assigned at commit time.
type Record struct {
	Seq           int64                `json:"seq" bson:"seq"`
	OperationID   uuid.UUID            `json:"operation_id" bson:"operation_id"`
	Kind          shared.OperationKind `json:"kind" bson:"kind"`
	Amount        int64                `json:"amount" bson:"amount"` // Minor units, always positive
	SourceAccount uuid.UUID            `json:"source_account" bson:"source_account"`
	DestAccount   *uuid.UUID           `json:"dest_account,omitempty" bson:"dest_account,omitempty"`
	CorrelationID string               `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Timestamp     time.Time            `json:"timestamp" bson:"timestamp"`
}

// OutboxRecord is a Record staged in the transactional outbox, waiting to be
// published to the durable query store.
type OutboxRecord struct {
	Record

	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// Filter narrows an audit query. Nil / zero fields match everything.
type Filter struct {
	AccountID *uuid.UUID
	Kind      shared.OperationKind
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}
