// Package engine executes ledger operations. Every deposit, withdrawal and
// transfer runs inside a single database transaction that mutates balances
// and appends the matching audit record, so either both become durable or
// neither does.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/account-ledger-engine/internal/domain/account"
	"github.com/account-ledger-engine/internal/domain/audit"
	"github.com/account-ledger-engine/internal/domain/money"
	"github.com/account-ledger-engine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Ref identifies an account either by its ID or by its external number
type Ref struct {
	ID     uuid.UUID
	Number string
}

// RefByID builds a Ref addressing an account by ID
func RefByID(id uuid.UUID) Ref {
	return Ref{ID: id}
}

// RefByNumber builds a Ref addressing an account by its external number
func RefByNumber(number string) Ref {
	return Ref{Number: number}
}

func (r Ref) String() string {
	if r.ID != uuid.Nil {
		return r.ID.String()
	}
	return r.Number
}

// OperationResult describes a committed deposit or withdrawal
type OperationResult struct {
	Record     *audit.Record
	NewBalance int64
}

// TransferResult describes a committed transfer
type TransferResult struct {
	Record        *audit.Record
	SourceBalance int64
	DestBalance   int64
}

// Engine executes ledger operations atomically
type Engine interface {
	Deposit(ctx context.Context, ref Ref, amount int64) (*OperationResult, error)
	Withdraw(ctx context.Context, ref Ref, amount int64) (*OperationResult, error)
	Transfer(ctx context.Context, source, dest Ref, amount int64) (*TransferResult, error)
}

// TxRunner runs a function inside a database transaction
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// SnapshotInvalidator drops cached account snapshots after a commit
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, ids ...uuid.UUID)
}

// LedgerEngine is the default Engine implementation. It serializes
// operations per account with in-process locks, then relies on row-level
// FOR UPDATE locks inside the transaction so that concurrent processes
// cannot double-spend either.
type LedgerEngine struct {
	db          TxRunner
	accounts    account.Repository
	outbox      audit.OutboxRepository
	locks       *accountLocks
	lockTimeout time.Duration
	invalidator SnapshotInvalidator
	logger      *slog.Logger
}

// NewLedgerEngine creates a LedgerEngine. invalidator may be nil when no
// snapshot cache is configured.
func NewLedgerEngine(
	db TxRunner,
	accounts account.Repository,
	outbox audit.OutboxRepository,
	lockTimeout time.Duration,
	invalidator SnapshotInvalidator,
	logger *slog.Logger,
) *LedgerEngine {
	return &LedgerEngine{
		db:          db,
		accounts:    accounts,
		outbox:      outbox,
		locks:       newAccountLocks(),
		lockTimeout: lockTimeout,
		invalidator: invalidator,
		logger:      logger,
	}
}

// Deposit credits amount to the account and records the operation.
func (e *LedgerEngine) Deposit(ctx context.Context, ref Ref, amount int64) (*OperationResult, error) {
	return e.applySingle(ctx, ref, amount, shared.OperationKindDeposit)
}

// Withdraw debits amount from the account and records the operation.
// Fails with account.ErrInsufficientFunds when the balance does not cover
// the amount; the account is left untouched in that case.
func (e *LedgerEngine) Withdraw(ctx context.Context, ref Ref, amount int64) (*OperationResult, error) {
	return e.applySingle(ctx, ref, amount, shared.OperationKindWithdrawal)
}

func (e *LedgerEngine) applySingle(ctx context.Context, ref Ref, amount int64, kind shared.OperationKind) (*OperationResult, error) {
	logger := e.opLogger(ctx)

	if amount <= 0 {
		return nil, account.ErrInvalidAmount
	}

	id, err := e.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	release, err := e.locks.Acquire(ctx, e.lockTimeout, id)
	if err != nil {
		return nil, err
	}
	defer release()

	record := e.newRecord(ctx, kind, amount, id, nil)
	var newBalance int64

	err = e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accounts := e.accounts.WithTx(tx)

		acc, err := accounts.LockForUpdate(ctx, id)
		if err != nil {
			return err
		}

		switch kind {
		case shared.OperationKindDeposit:
			err = acc.Deposit(amount)
		case shared.OperationKindWithdrawal:
			err = acc.Withdraw(amount)
		default:
			err = fmt.Errorf("unsupported operation kind: %s", kind)
		}
		if err != nil {
			return err
		}

		if err := accounts.Update(ctx, acc); err != nil {
			return err
		}

		if err := e.outbox.WithTx(tx).Append(ctx, record); err != nil {
			return err
		}

		newBalance = acc.Balance
		return nil
	})
	if err != nil {
		return nil, e.classify(err)
	}

	e.invalidate(ctx, id)

	logger.Info("Operation committed",
		"operation_id", record.OperationID.String(),
		"kind", string(kind),
		"account_id", id.String(),
		"amount", money.Format(amount),
		"seq", record.Seq,
	)

	return &OperationResult{Record: record, NewBalance: newBalance}, nil
}

// Transfer atomically moves amount from source to dest. Both balance
// mutations and the audit record commit together; a failure on either
// side leaves both accounts untouched.
func (e *LedgerEngine) Transfer(ctx context.Context, source, dest Ref, amount int64) (*TransferResult, error) {
	logger := e.opLogger(ctx)

	if amount <= 0 {
		return nil, account.ErrInvalidAmount
	}

	sourceID, err := e.resolve(ctx, source)
	if err != nil {
		return nil, err
	}
	destID, err := e.resolve(ctx, dest)
	if err != nil {
		return nil, err
	}
	if sourceID == destID {
		return nil, shared.ErrSameAccount
	}

	release, err := e.locks.Acquire(ctx, e.lockTimeout, sourceID, destID)
	if err != nil {
		return nil, err
	}
	defer release()

	record := e.newRecord(ctx, shared.OperationKindTransfer, amount, sourceID, &destID)
	var sourceBalance, destBalance int64

	err = e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accounts := e.accounts.WithTx(tx)

		// Row locks in ID order, mirroring the in-process lock order
		first, second := sourceID, destID
		if lessID(destID, sourceID) {
			first, second = destID, sourceID
		}

		locked := make(map[uuid.UUID]*account.Account, 2)
		for _, id := range []uuid.UUID{first, second} {
			acc, err := accounts.LockForUpdate(ctx, id)
			if err != nil {
				return err
			}
			locked[id] = acc
		}

		src := locked[sourceID]
		dst := locked[destID]

		if err := src.Withdraw(amount); err != nil {
			return err
		}
		if err := dst.Deposit(amount); err != nil {
			return err
		}

		if err := accounts.Update(ctx, src); err != nil {
			return err
		}
		if err := accounts.Update(ctx, dst); err != nil {
			return err
		}

		if err := e.outbox.WithTx(tx).Append(ctx, record); err != nil {
			return err
		}

		sourceBalance = src.Balance
		destBalance = dst.Balance
		return nil
	})
	if err != nil {
		return nil, e.classify(err)
	}

	e.invalidate(ctx, sourceID, destID)

	logger.Info("Transfer committed",
		"operation_id", record.OperationID.String(),
		"source_account", sourceID.String(),
		"dest_account", destID.String(),
		"amount", money.Format(amount),
		"seq", record.Seq,
	)

	return &TransferResult{
		Record:        record,
		SourceBalance: sourceBalance,
		DestBalance:   destBalance,
	}, nil
}

// resolve maps a Ref onto a concrete account ID
func (e *LedgerEngine) resolve(ctx context.Context, ref Ref) (uuid.UUID, error) {
	if ref.ID != uuid.Nil {
		return ref.ID, nil
	}
	if ref.Number == "" {
		return uuid.Nil, account.ErrAccountNotFound{}
	}

	acc, err := e.accounts.GetByNumber(ctx, ref.Number)
	if err != nil {
		return uuid.Nil, e.classify(err)
	}
	if acc == nil {
		return uuid.Nil, account.ErrAccountNotFound{Ref: ref.Number}
	}
	return acc.ID, nil
}

func (e *LedgerEngine) newRecord(ctx context.Context, kind shared.OperationKind, amount int64, source uuid.UUID, dest *uuid.UUID) *audit.Record {
	return &audit.Record{
		OperationID:   uuid.New(),
		Kind:          kind,
		Amount:        amount,
		SourceAccount: source,
		DestAccount:   dest,
		CorrelationID: shared.CorrelationIDFromContext(ctx),
		Timestamp:     time.Now().UTC(),
	}
}

// classify keeps domain errors intact and folds everything else into
// shared.ErrUnavailable so that callers can map infrastructure failures
// without inspecting driver errors.
func (e *LedgerEngine) classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, account.ErrAccountNotFound{}),
		errors.Is(err, account.ErrInsufficientFunds),
		errors.Is(err, account.ErrInvalidAmount),
		errors.Is(err, shared.ErrSameAccount),
		errors.Is(err, shared.ErrBusy),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		e.logger.Error("Ledger operation failed", "error", err)
		return fmt.Errorf("%w: %v", shared.ErrUnavailable, err)
	}
}

func (e *LedgerEngine) invalidate(ctx context.Context, ids ...uuid.UUID) {
	if e.invalidator == nil {
		return
	}
	e.invalidator.Invalidate(ctx, ids...)
}

func (e *LedgerEngine) opLogger(ctx context.Context) *slog.Logger {
	if corrID := shared.CorrelationIDFromContext(ctx); corrID != "" {
		return e.logger.With("correlation_id", corrID)
	}
	return e.logger
}

func lessID(a, b uuid.UUID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
