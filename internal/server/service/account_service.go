package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/account-ledger-engine/internal/domain/account"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	accountRepo account.Repository
	cache       SnapshotCache
	logger      *slog.Logger
}

// NewAccountService creates a new account service. cache may be nil, in
// which case every read goes to the database.
func NewAccountService(logger *slog.Logger, accountRepo account.Repository, cache SnapshotCache) AccountService {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		cache:       cache,
		logger:      logger,
	}
}

// CreateAccount creates a new account, rejecting duplicate account numbers
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, number string, initialBalance int64) (*account.Account, error) {
	existingAccount, err := s.accountRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if existingAccount != nil {
		return nil, account.ErrDuplicateNumber{Number: number}
	}

	acc, err := account.NewAccount(number, initialBalance)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.Create(ctx, acc); err != nil {
		return nil, err
	}

	return acc, nil
}

// GetAccountByID retrieves an account, serving from the snapshot cache when
// possible. Cache failures fall through to the database.
func (s *AccountServiceImpl) GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("Snapshot cache read failed", "account_id", id.String(), "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	acc, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, acc); err != nil {
			s.logger.Warn("Snapshot cache write failed", "account_id", id.String(), "error", err)
		}
	}

	return acc, nil
}
