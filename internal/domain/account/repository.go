package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// GetByNumber resolves an account by its external number.
	// Returns (nil, nil) if no account has that number.
	GetByNumber(ctx context.Context, number string) (*Account, error)

	Update(ctx context.Context, account *Account) error

	// LockForUpdate acquires a pessimistic row lock for operation processing
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	AccountID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for account: " + e.AccountID.String()
}

// ErrAccountNotFound indicates that an account reference did not resolve.
// Ref holds whichever identifier the caller supplied (id or number).
type ErrAccountNotFound struct {
	Ref string
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.Ref
}

// Is matches any ErrAccountNotFound when the target carries an empty Ref
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.Ref == "" {
		return true
	}
	return e.Ref == t.Ref
}

// ErrDuplicateNumber indicates account number uniqueness violation
type ErrDuplicateNumber struct {
	Number string
}

func (e ErrDuplicateNumber) Error() string {
	return "account with number already exists: " + e.Number
}
