package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/account-ledger-engine/internal/domain/account"
	"github.com/account-ledger-engine/internal/domain/money"
	"github.com/account-ledger-engine/internal/server/service"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Create handles creation of a new account, validating the request and
// checking for duplicate account numbers
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	initialBalance := int64(0)
	if req.InitialBalance != "" {
		var err error
		initialBalance, err = money.ParseNonNegative(req.InitialBalance)
		if err != nil {
			RespondWithError(c, 400, "INVALID_AMOUNT", "Invalid initial balance: "+err.Error())
			return
		}
	}

	acc, err := h.accountService.CreateAccount(c.Request.Context(), req.Number, initialBalance)
	if err != nil {
		var duplicateErr account.ErrDuplicateNumber
		switch {
		case errors.As(err, &duplicateErr):
			h.logger.Warn("Attempt to create account with duplicate number", "number", duplicateErr.Number)
			RespondConflict(c, "DUPLICATE_NUMBER", "Account with this number already exists")
		case errors.Is(err, account.ErrEmptyNumber):
			RespondBadRequest(c, "Account number cannot be empty")
		case errors.Is(err, account.ErrNegativeBalance):
			RespondWithError(c, 400, "INVALID_AMOUNT", "Initial balance cannot be negative")
		default:
			h.logger.Error("Failed to create account", "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// GetByID retrieves an account by its ID, returning 404 if not found
func (h *AccountHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid account ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	acc, err := h.accountService.GetAccountByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to get account", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// mapAccountToResponse maps an account entity to an account response DTO
func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID.String(),
		Number:    acc.Number,
		Balance:   money.Format(acc.Balance),
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
}
