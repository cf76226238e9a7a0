package handler

import (
	"bytes"
	"context"
	"encoding/json"
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

	"github.com/account-ledger-engine/internal/domain/account"
	"github.com/account-ledger-engine/internal/domain/audit"
	"github.com/account-ledger-engine/internal/domain/shared"
	"github.com/account-ledger-engine/internal/engine"
)

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Deposit(ctx context.Context, ref engine.Ref, amount int64) (*engine.OperationResult, error) {
	args := m.Called(ctx, ref, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.OperationResult), args.Error(1)
}

func (m *MockEngine) Withdraw(ctx context.Context, ref engine.Ref, amount int64) (*engine.OperationResult, error) {
	args := m.Called(ctx, ref, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.OperationResult), args.Error(1)
}

func (m *MockEngine) Transfer(ctx context.Context, source, dest engine.Ref, amount int64) (*engine.TransferResult, error) {
	args := m.Called(ctx, source, dest, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.TransferResult), args.Error(1)
}

var _ engine.Engine = (*MockEngine)(nil)

func operationRecord(kind shared.OperationKind, source uuid.UUID, dest *uuid.UUID, amount int64) *audit.Record {
	return &audit.Record{
		Seq:           7,
		OperationID:   uuid.New(),
		Kind:          kind,
		Amount:        amount,
		SourceAccount: source,
		DestAccount:   dest,
		Timestamp:     time.Now().UTC(),
	}
}

func TestOperationHandler_Deposit(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockEngine := new(MockEngine)
		handler := NewOperationHandler(logger, mockEngine)

		accountID := uuid.New()
		result := &engine.OperationResult{
			Record:     operationRecord(shared.OperationKindDeposit, accountID, nil, 2550),
			NewBalance: 12550,
		}
		mockEngine.On("Deposit", mock.Anything, engine.RefByID(accountID), int64(2550)).Return(result, nil)

		router := setupTestRouter()
		router.POST("/operations/deposit", handler.Deposit)

		jsonBody, _ := json.Marshal(OperationRequest{Account: accountID.String(), Amount: "25.50"})
		req, _ := http.NewRequest(http.MethodPost, "/operations/deposit", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var responseBody OperationResponse
		decodeData(t, rr.Body.Bytes(), &responseBody)

		assert.Equal(t, "DEPOSIT", responseBody.Kind)
		assert.Equal(t, accountID.String(), responseBody.Account)
		assert.Equal(t, "25.50", responseBody.Amount)
		assert.Equal(t, "125.50", responseBody.NewBalance)
		assert.Equal(t, int64(7), responseBody.Seq)

		mockEngine.AssertExpectations(t)
	})

	t.Run("AccountByNumber", func(t *testing.T) {
		mockEngine := new(MockEngine)
		handler := NewOperationHandler(logger, mockEngine)

		accountID := uuid.New()
		result := &engine.OperationResult{
			Record:     operationRecord(shared.OperationKindDeposit, accountID, nil, 1000),
			NewBalance: 1000,
		}
		mockEngine.On("Deposit", mock.Anything, engine.RefByNumber("1001"), int64(1000)).Return(result, nil)

		router := setupTestRouter()
		router.POST("/operations/deposit", handler.Deposit)

		jsonBody, _ := json.Marshal(OperationRequest{Account: "1001", Amount: "10.00"})
		req, _ := http.NewRequest(http.MethodPost, "/operations/deposit", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		mockEngine.AssertExpectations(t)
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		mockEngine := new(MockEngine)
		handler := NewOperationHandler(logger, mockEngine)

		router := setupTestRouter()
		router.POST("/operations/deposit", handler.Deposit)

		for _, amount := range []string{"0", "-10.00", "abc", "10.005"} {
			jsonBody, _ := json.Marshal(OperationRequest{Account: "1001", Amount: amount})
			req, _ := http.NewRequest(http.MethodPost, "/operations/deposit", bytes.NewBuffer(jsonBody))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()

			router.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code, "amount %q", amount)
			errInfo := decodeError(t, rr.Body.Bytes())
			assert.Equal(t, "INVALID_AMOUNT", errInfo.Code, "amount %q", amount)
		}
		mockEngine.AssertExpectations(t)
	})

	t.Run("AccountNotFound", func(t *testing.T) {
		mockEngine := new(MockEngine)
		handler := NewOperationHandler(logger, mockEngine)

		mockEngine.On("Deposit", mock.Anything, engine.RefByNumber("9999"), int64(1000)).
			Return(nil, account.ErrAccountNotFound{Ref: "9999"})

		router := setupTestRouter()
		router.POST("/operations/deposit", handler.Deposit)

		jsonBody, _ := json.Marshal(OperationRequest{Account: "9999", Amount: "10.00"})
		req, _ := http.NewRequest(http.MethodPost, "/operations/deposit", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		errInfo := decodeError(t, rr.Body.Bytes())
		assert.Equal(t, "NOT_FOUND", errInfo.Code)
		mockEngine.AssertExpectations(t)
	})
}

func TestOperationHandler_Withdraw(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockEngine := new(MockEngine)
		handler := NewOperationHandler(logger, mockEngine)

		accountID := uuid.New()
		result := &engine.OperationResult{
			Record:     operationRecord(shared.OperationKindWithdrawal, accountID, nil, 3000),
			NewBalance: 7000,
		}
		mockEngine.On("Withdraw", mock.Anything, engine.RefByID(accountID), int64(3000)).Return(result, nil)

		router := setupTestRouter()
		router.POST("/operations/withdraw", handler.Withdraw)

		jsonBody, _ := json.Marshal(OperationRequest{Account: accountID.String(), Amount: "30.00"})
		req, _ := http.NewRequest(http.MethodPost, "/operations/withdraw", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var responseBody OperationResponse
		decodeData(t, rr.Body.Bytes(), &responseBody)
		assert.Equal(t, "WITHDRAWAL", responseBody.Kind)
		assert.Equal(t, "70.00", responseBody.NewBalance)

		mockEngine.AssertExpectations(t)
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		mockEngine := new(MockEngine)
		handler := NewOperationHandler(logger, mockEngine)

		mockEngine.On("Withdraw", mock.Anything, engine.RefByNumber("1001"), int64(999999)).
			Return(nil, account.ErrInsufficientFunds)

		router := setupTestRouter()
		router.POST("/operations/withdraw", handler.Withdraw)

		jsonBody, _ := json.Marshal(OperationRequest{Account: "1001", Amount: "9999.99"})
		req, _ := http.NewRequest(http.MethodPost, "/operations/withdraw", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		errInfo := decodeError(t, rr.Body.Bytes())
		assert.Equal(t, "INSUFFICIENT_FUNDS", errInfo.Code)
		mockEngine.AssertExpectations(t)
	})

	t.Run("Busy", func(t *testing.T) {
		mockEngine := new(MockEngine)
		handler := NewOperationHandler(logger, mockEngine)

		mockEngine.On("Withdraw", mock.Anything, engine.RefByNumber("1001"), int64(1000)).
			Return(nil, shared.ErrBusy)

		router := setupTestRouter()
		router.POST("/operations/withdraw", handler.Withdraw)

		jsonBody, _ := json.Marshal(OperationRequest{Account: "1001", Amount: "10.00"})
		req, _ := http.NewRequest(http.MethodPost, "/operations/withdraw", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		errInfo := decodeError(t, rr.Body.Bytes())
		assert.Equal(t, "BUSY", errInfo.Code)
		mockEngine.AssertExpectations(t)
	})

	t.Run("Unavailable", func(t *testing.T) {
		mockEngine := new(MockEngine)
		handler := NewOperationHandler(logger, mockEngine)

		mockEngine.On("Withdraw", mock.Anything, engine.RefByNumber("1001"), int64(1000)).
			Return(nil, fmt.Errorf("%w: connection refused", shared.ErrUnavailable))

		router := setupTestRouter()
		router.POST("/operations/withdraw", handler.Withdraw)

		jsonBody, _ := json.Marshal(OperationRequest{Account: "1001", Amount: "10.00"})
		req, _ := http.NewRequest(http.MethodPost, "/operations/withdraw", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		errInfo := decodeError(t, rr.Body.Bytes())
		assert.Equal(t, "UNAVAILABLE", errInfo.Code)
		mockEngine.AssertExpectations(t)
	})
}

func TestOperationHandler_Transfer(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockEngine := new(MockEngine)
		handler := NewOperationHandler(logger, mockEngine)

		sourceID := uuid.New()
		destID := uuid.New()
		result := &engine.TransferResult{
			Record:        operationRecord(shared.OperationKindTransfer, sourceID, &destID, 3000),
			SourceBalance: 7000,
			DestBalance:   8000,
		}
		mockEngine.On("Transfer", mock.Anything, engine.RefByNumber("1001"), engine.RefByNumber("1002"), int64(3000)).
			Return(result, nil)

		router := setupTestRouter()
		router.POST("/operations/transfer", handler.Transfer)

		jsonBody, _ := json.Marshal(TransferRequest{Source: "1001", Dest: "1002", Amount: "30.00"})
		req, _ := http.NewRequest(http.MethodPost, "/operations/transfer", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var responseBody TransferResponse
		decodeData(t, rr.Body.Bytes(), &responseBody)
		assert.Equal(t, "TRANSFER", responseBody.Kind)
		assert.Equal(t, sourceID.String(), responseBody.SourceAccount)
		assert.Equal(t, destID.String(), responseBody.DestAccount)
		assert.Equal(t, "30.00", responseBody.Amount)
		assert.Equal(t, "70.00", responseBody.SourceBalance)
		assert.Equal(t, "80.00", responseBody.DestBalance)

		mockEngine.AssertExpectations(t)
	})

	t.Run("SameAccount", func(t *testing.T) {
		mockEngine := new(MockEngine)
		handler := NewOperationHandler(logger, mockEngine)

		mockEngine.On("Transfer", mock.Anything, engine.RefByNumber("1001"), engine.RefByNumber("1001"), int64(1000)).
			Return(nil, shared.ErrSameAccount)

		router := setupTestRouter()
		router.POST("/operations/transfer", handler.Transfer)

		jsonBody, _ := json.Marshal(TransferRequest{Source: "1001", Dest: "1001", Amount: "10.00"})
		req, _ := http.NewRequest(http.MethodPost, "/operations/transfer", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		errInfo := decodeError(t, rr.Body.Bytes())
		assert.Equal(t, "SAME_ACCOUNT", errInfo.Code)
		mockEngine.AssertExpectations(t)
	})

	t.Run("MissingFields", func(t *testing.T) {
		mockEngine := new(MockEngine)
		handler := NewOperationHandler(logger, mockEngine)

		router := setupTestRouter()
		router.POST("/operations/transfer", handler.Transfer)

		jsonBody, _ := json.Marshal(map[string]string{"source": "1001", "amount": "10.00"})
		req, _ := http.NewRequest(http.MethodPost, "/operations/transfer", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockEngine.AssertExpectations(t)
	})
}
