package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds for withdrawal")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrEmptyNumber       = errors.New("account number cannot be empty")
	ErrNegativeBalance   = errors.New("initial balance cannot be negative")
)

// Account is a ledger account. Balance is held in minor units (cents) and
// never goes negative; only Deposit and Withdraw may change it.
type Account struct {
	ID        uuid.UUID `json:"id"`
	Number    string    `json:"number"` // Externally addressable, distinct from ID
	Balance   int64     `json:"balance"`
	Version   int       `json:"version"` // For optimistic locking
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAccount creates a new account with the given number and initial balance
func NewAccount(number string, initialBalance int64) (*Account, error) {
	if number == "" {
		return nil, ErrEmptyNumber
	}
	if initialBalance < 0 {
		return nil, ErrNegativeBalance
	}

	now := time.Now()
	return &Account{
		ID:        uuid.New(),
		Number:    number,
		Balance:   initialBalance,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Deposit adds the specified amount to the account balance
func (a *Account) Deposit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	a.Balance += amount
	a.UpdatedAt = time.Now()
	a.Version++
	return nil
}

// Withdraw subtracts the specified amount from the account balance
func (a *Account) Withdraw(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	if a.Balance < amount {
		return ErrInsufficientFunds
	}

	a.Balance -= amount
	a.UpdatedAt = time.Now()
	a.Version++
	return nil
}

// CanWithdraw checks if the account has sufficient funds for a withdrawal
func (a *Account) CanWithdraw(amount int64) bool {
	return a.Balance >= amount
}
