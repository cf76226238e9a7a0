package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/account-ledger-engine/internal/domain/account"
	"github.com/account-ledger-engine/internal/domain/audit"
	"github.com/account-ledger-engine/internal/domain/money"
	"github.com/account-ledger-engine/internal/domain/shared"
	"github.com/account-ledger-engine/internal/engine"
)

// OperationHandler handles HTTP requests for ledger operations
type OperationHandler struct {
	engine engine.Engine
	logger *slog.Logger
}

// NewOperationHandler creates a new operation handler
func NewOperationHandler(logger *slog.Logger, eng engine.Engine) *OperationHandler {
	return &OperationHandler{
		engine: eng,
		logger: logger,
	}
}

// Deposit credits an account
func (h *OperationHandler) Deposit(c *gin.Context) {
	var req OperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		RespondWithError(c, 400, "INVALID_AMOUNT", "Invalid amount: "+err.Error())
		return
	}

	result, err := h.engine.Deposit(c.Request.Context(), parseRef(req.Account), amount)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}

	RespondCreated(c, mapOperationToResponse(result))
}

// Withdraw debits an account
func (h *OperationHandler) Withdraw(c *gin.Context) {
	var req OperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		RespondWithError(c, 400, "INVALID_AMOUNT", "Invalid amount: "+err.Error())
		return
	}

	result, err := h.engine.Withdraw(c.Request.Context(), parseRef(req.Account), amount)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}

	RespondCreated(c, mapOperationToResponse(result))
}

// Transfer moves funds between two accounts atomically
func (h *OperationHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		RespondWithError(c, 400, "INVALID_AMOUNT", "Invalid amount: "+err.Error())
		return
	}

	result, err := h.engine.Transfer(c.Request.Context(), parseRef(req.Source), parseRef(req.Dest), amount)
	if err != nil {
		h.respondEngineError(c, err)
		return
	}

	RespondCreated(c, mapTransferToResponse(result))
}

// respondEngineError maps engine errors onto HTTP status codes
func (h *OperationHandler) respondEngineError(c *gin.Context, err error) {
	var notFoundErr account.ErrAccountNotFound
	switch {
	case errors.As(err, &notFoundErr):
		RespondNotFound(c, "Account not found: "+notFoundErr.Ref)
	case errors.Is(err, account.ErrInvalidAmount):
		RespondWithError(c, 400, "INVALID_AMOUNT", "Amount must be positive")
	case errors.Is(err, account.ErrInsufficientFunds):
		RespondUnprocessable(c, "INSUFFICIENT_FUNDS", "Insufficient funds for this operation")
	case errors.Is(err, shared.ErrSameAccount):
		RespondConflict(c, "SAME_ACCOUNT", "Source and destination accounts must differ")
	case errors.Is(err, shared.ErrBusy):
		RespondTooManyRequests(c, "Account is busy, retry the operation")
	case errors.Is(err, shared.ErrUnavailable):
		h.logger.Error("Ledger operation failed", "error", err)
		RespondServiceUnavailable(c, "")
	default:
		h.logger.Error("Unexpected operation error", "error", err)
		RespondInternalError(c)
	}
}

// parseRef interprets the account field as an ID when it parses as a UUID,
// otherwise as an account number
func parseRef(s string) engine.Ref {
	if id, err := uuid.Parse(s); err == nil {
		return engine.RefByID(id)
	}
	return engine.RefByNumber(s)
}

func mapOperationToResponse(result *engine.OperationResult) OperationResponse {
	return OperationResponse{
		OperationID: result.Record.OperationID.String(),
		Kind:        string(result.Record.Kind),
		Account:     result.Record.SourceAccount.String(),
		Amount:      money.Format(result.Record.Amount),
		NewBalance:  money.Format(result.NewBalance),
		Seq:         result.Record.Seq,
		Timestamp:   result.Record.Timestamp.Format(time.RFC3339Nano),
	}
}

func mapTransferToResponse(result *engine.TransferResult) TransferResponse {
	return TransferResponse{
		OperationID:   result.Record.OperationID.String(),
		Kind:          string(result.Record.Kind),
		SourceAccount: result.Record.SourceAccount.String(),
		DestAccount:   result.Record.DestAccount.String(),
		Amount:        money.Format(result.Record.Amount),
		SourceBalance: money.Format(result.SourceBalance),
		DestBalance:   money.Format(result.DestBalance),
		Seq:           result.Record.Seq,
		Timestamp:     result.Record.Timestamp.Format(time.RFC3339Nano),
	}
}

// mapAuditRecordToResponse maps an audit record to its response DTO
func mapAuditRecordToResponse(record *audit.Record) AuditRecordResponse {
	resp := AuditRecordResponse{
		Seq:           record.Seq,
		OperationID:   record.OperationID.String(),
		Kind:          string(record.Kind),
		Amount:        money.Format(record.Amount),
		SourceAccount: record.SourceAccount.String(),
		CorrelationID: record.CorrelationID,
		Timestamp:     record.Timestamp.Format(time.RFC3339Nano),
	}
	if record.DestAccount != nil {
		resp.DestAccount = record.DestAccount.String()
	}
	return resp
}
