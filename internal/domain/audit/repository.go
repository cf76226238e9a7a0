package audit

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// Repository is the durable query store for committed audit records.
// Query results are ordered by ascending timestamp, ties broken by
// ascending sequence number.
type Repository interface {
	Insert(ctx context.Context, record *Record) error
	GetBySeq(ctx context.Context, seq int64) (*Record, error)
	Query(ctx context.Context, filter Filter) ([]*Record, error)
	Count(ctx context.Context, filter Filter) (int64, error)
}

// OutboxRepository stages audit records in the same database transaction
// that mutates the balances they describe. Append assigns the record its
// sequence number.
type OutboxRepository interface {
	Append(ctx context.Context, record *Record) error
	GetPending(ctx context.Context, limit int) ([]*OutboxRecord, error)
	MarkPublished(ctx context.Context, seq int64) error
	MarkFailed(ctx context.Context, seq int64) error
	IncrementAttempts(ctx context.Context, seq int64) error
	WithTx(tx pgx.Tx) OutboxRepository
}

// ErrRecordNotFound indicates missing audit record
type ErrRecordNotFound struct {
	Seq int64
}

func (e ErrRecordNotFound) Error() string {
	return "audit record not found: " + strconv.FormatInt(e.Seq, 10)
}

// Is matches any ErrRecordNotFound when the target carries a zero Seq
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	if t.Seq == 0 {
		return true
	}
	return e.Seq == t.Seq
}

// ErrDuplicateRecord indicates sequence uniqueness violation
type ErrDuplicateRecord struct {
	Seq int64
}

func (e ErrDuplicateRecord) Error() string {
	return "duplicate audit record: " + strconv.FormatInt(e.Seq, 10)
}
