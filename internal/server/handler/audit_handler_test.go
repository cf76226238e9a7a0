package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/account-ledger-engine/internal/domain/audit"
	"github.com/account-ledger-engine/internal/domain/shared"
	"github.com/account-ledger-engine/internal/server/service"
)

type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) QueryRecords(ctx context.Context, filter audit.Filter) ([]*audit.Record, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*audit.Record), args.Get(1).(int64), args.Error(2)
}

var _ service.AuditService = (*MockAuditService)(nil)

func auditRecords(n int) []*audit.Record {
	records := make([]*audit.Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, &audit.Record{
			Seq:           int64(i + 1),
			OperationID:   uuid.New(),
			Kind:          shared.OperationKindDeposit,
			Amount:        1000,
			SourceAccount: uuid.New(),
			Timestamp:     time.Now().UTC(),
		})
	}
	return records
}

func TestAuditHandler_Query(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAuditService)
		handler := NewAuditHandler(logger, mockService)

		records := auditRecords(2)
		expectedFilter := audit.Filter{Limit: 50, Offset: 0}
		mockService.On("QueryRecords", mock.Anything, expectedFilter).Return(records, int64(2), nil)

		router := setupTestRouter()
		router.GET("/audit", handler.Query)

		req, _ := http.NewRequest(http.MethodGet, "/audit", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var responseBody AuditListResponse
		decodeData(t, rr.Body.Bytes(), &responseBody)
		require.Len(t, responseBody.Records, 2)
		assert.Equal(t, int64(1), responseBody.Records[0].Seq)
		assert.Equal(t, int64(2), responseBody.Records[1].Seq)
		assert.Equal(t, "10.00", responseBody.Records[0].Amount)

		mockService.AssertExpectations(t)
	})

	t.Run("FiltersAndPagination", func(t *testing.T) {
		mockService := new(MockAuditService)
		handler := NewAuditHandler(logger, mockService)

		accountID := uuid.New()
		from, _ := time.Parse(time.RFC3339, "2024-01-01T00:00:00Z")
		to, _ := time.Parse(time.RFC3339, "2024-02-01T00:00:00Z")
		expectedFilter := audit.Filter{
			AccountID: &accountID,
			Kind:      shared.OperationKindTransfer,
			From:      &from,
			To:        &to,
			Limit:     10,
			Offset:    20,
		}
		mockService.On("QueryRecords", mock.Anything, expectedFilter).Return(auditRecords(1), int64(31), nil)

		router := setupTestRouter()
		router.GET("/audit", handler.Query)

		url := fmt.Sprintf(
			"/audit?account_id=%s&kind=TRANSFER&from=2024-01-01T00:00:00Z&to=2024-02-01T00:00:00Z&page=3&per_page=10",
			accountID.String(),
		)
		req, _ := http.NewRequest(http.MethodGet, url, nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var topLevel Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &topLevel))
		require.NotNil(t, topLevel.Meta)
		assert.Equal(t, 3, topLevel.Meta.Page)
		assert.Equal(t, 10, topLevel.Meta.PerPage)
		assert.Equal(t, 31, topLevel.Meta.TotalItems)
		assert.Equal(t, 4, topLevel.Meta.TotalPages)

		mockService.AssertExpectations(t)
	})

	t.Run("InvalidKind", func(t *testing.T) {
		mockService := new(MockAuditService)
		handler := NewAuditHandler(logger, mockService)

		router := setupTestRouter()
		router.GET("/audit", handler.Query)

		req, _ := http.NewRequest(http.MethodGet, "/audit?kind=REFUND", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidAccountID", func(t *testing.T) {
		mockService := new(MockAuditService)
		handler := NewAuditHandler(logger, mockService)

		router := setupTestRouter()
		router.GET("/audit", handler.Query)

		req, _ := http.NewRequest(http.MethodGet, "/audit?account_id=not-a-uuid", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidTimestamp", func(t *testing.T) {
		mockService := new(MockAuditService)
		handler := NewAuditHandler(logger, mockService)

		router := setupTestRouter()
		router.GET("/audit", handler.Query)

		req, _ := http.NewRequest(http.MethodGet, "/audit?from=yesterday", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Unavailable", func(t *testing.T) {
		mockService := new(MockAuditService)
		handler := NewAuditHandler(logger, mockService)

		mockService.On("QueryRecords", mock.Anything, mock.Anything).
			Return(nil, int64(0), fmt.Errorf("%w: query store down", shared.ErrUnavailable))

		router := setupTestRouter()
		router.GET("/audit", handler.Query)

		req, _ := http.NewRequest(http.MethodGet, "/audit", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		errInfo := decodeError(t, rr.Body.Bytes())
		assert.Equal(t, "UNAVAILABLE", errInfo.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockAuditService)
		handler := NewAuditHandler(logger, mockService)

		mockService.On("QueryRecords", mock.Anything, mock.Anything).
			Return(nil, int64(0), errors.New("unexpected"))

		router := setupTestRouter()
		router.GET("/audit", handler.Query)

		req, _ := http.NewRequest(http.MethodGet, "/audit", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mockService.AssertExpectations(t)
	})
}
