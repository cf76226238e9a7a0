package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/account-ledger-engine/internal/domain/account"
	"github.com/account-ledger-engine/internal/domain/audit"
)

// AccountService defines the interface for account operations
type AccountService interface {
	// CreateAccount creates a new account with the given number and opening
	// balance in minor units
	// Returns ErrDuplicateNumber if an account with the same number exists
	CreateAccount(ctx context.Context, number string, initialBalance int64) (*account.Account, error)

	// GetAccountByID retrieves an account by its ID
	// Returns ErrAccountNotFound if the account doesn't exist
	GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error)
}

// AuditService defines the interface for reading the audit log
type AuditService interface {
	// QueryRecords retrieves audit records matching the filter together with
	// the total match count
	// Returns shared.ErrUnavailable when the query store cannot be reached
	QueryRecords(ctx context.Context, filter audit.Filter) ([]*audit.Record, int64, error)
}

// SnapshotCache caches account snapshots for reads. Implementations must
// return (nil, nil) on a miss.
type SnapshotCache interface {
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
	Set(ctx context.Context, acc *account.Account) error
}
