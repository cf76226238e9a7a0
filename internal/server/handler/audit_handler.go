package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/account-ledger-engine/internal/domain/audit"
	"github.com/account-ledger-engine/internal/domain/shared"
	"github.com/account-ledger-engine/internal/server/service"
)

// AuditHandler handles HTTP requests for reading the audit log
type AuditHandler struct {
	auditService service.AuditService
	logger       *slog.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(logger *slog.Logger, auditService service.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// Query returns audit records in commit order, optionally filtered by
// account, operation kind and time range
func (h *AuditHandler) Query(c *gin.Context) {
	var params AuditQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter, err := buildAuditFilter(params)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	records, total, err := h.auditService.QueryRecords(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, shared.ErrUnavailable) {
			RespondServiceUnavailable(c, "Audit log temporarily unavailable")
			return
		}
		h.logger.Error("Failed to query audit records", "error", err)
		RespondInternalError(c)
		return
	}

	response := AuditListResponse{Records: make([]AuditRecordResponse, 0, len(records))}
	for _, record := range records {
		response.Records = append(response.Records, mapAuditRecordToResponse(record))
	}

	RespondWithPaginatedData(c, 200, response, params.Page, params.PerPage, int(total))
}

func buildAuditFilter(params AuditQueryParams) (audit.Filter, error) {
	filter := audit.Filter{
		Limit:  params.PerPage,
		Offset: (params.Page - 1) * params.PerPage,
	}

	if params.AccountID != "" {
		id, err := uuid.Parse(params.AccountID)
		if err != nil {
			return audit.Filter{}, errors.New("invalid account_id")
		}
		filter.AccountID = &id
	}
	if params.Kind != "" {
		filter.Kind = shared.OperationKind(params.Kind)
	}
	if params.From != "" {
		from, err := time.Parse(time.RFC3339, params.From)
		if err != nil {
			return audit.Filter{}, errors.New("invalid from timestamp, expected RFC3339")
		}
		filter.From = &from
	}
	if params.To != "" {
		to, err := time.Parse(time.RFC3339, params.To)
		if err != nil {
			return audit.Filter{}, errors.New("invalid to timestamp, expected RFC3339")
		}
		filter.To = &to
	}

	return filter, nil
}
