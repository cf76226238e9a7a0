package shared

import "errors"

// Operation errors that are not tied to a single account.
var (
	ErrSameAccount = errors.New("transfer source and destination are the same account")
	ErrBusy        = errors.New("timed out waiting for account lock")
	ErrUnavailable = errors.New("ledger store unavailable")
)

// OperationKind defines the balance-affecting operations
type OperationKind string

const (
	OperationKindDeposit    OperationKind = "DEPOSIT"
	OperationKindWithdrawal OperationKind = "WITHDRAWAL"
	OperationKindTransfer   OperationKind = "TRANSFER"
)

// Valid reports whether the kind is one of the known operations
func (k OperationKind) Valid() bool {
	switch k {
	case OperationKindDeposit, OperationKindWithdrawal, OperationKindTransfer:
		return true
	}
	return false
}

// OutboxStatus defines audit record publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusPublished       OutboxStatus = "PUBLISHED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
