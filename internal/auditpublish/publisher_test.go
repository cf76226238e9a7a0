package auditpublish

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/account-ledger-engine/internal/domain/audit"
	"github.com/account-ledger-engine/internal/domain/shared"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Append(ctx context.Context, record *audit.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*audit.OutboxRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.OutboxRecord), args.Error(1)
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, seq int64) error {
	args := m.Called(ctx, seq)
	return args.Error(0)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, seq int64) error {
	args := m.Called(ctx, seq)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, seq int64) error {
	args := m.Called(ctx, seq)
	return args.Error(0)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) audit.OutboxRepository {
	args := m.Called(tx)
	return args.Get(0).(audit.OutboxRepository)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, record *audit.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAuditRepository) GetBySeq(ctx context.Context, seq int64) (*audit.Record, error) {
	args := m.Called(ctx, seq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*audit.Record), args.Error(1)
}

func (m *MockAuditRepository) Query(ctx context.Context, filter audit.Filter) ([]*audit.Record, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Record), args.Error(1)
}

func (m *MockAuditRepository) Count(ctx context.Context, filter audit.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testOutboxRecord(seq int64) *audit.OutboxRecord {
	return &audit.OutboxRecord{
		Record: audit.Record{
			Seq:           seq,
			OperationID:   uuid.New(),
			Kind:          shared.OperationKindDeposit,
			Amount:        1000,
			SourceAccount: uuid.New(),
			CorrelationID: "corr-1",
			Timestamp:     time.Now().UTC(),
		},
		Status:   shared.OutboxStatusPending,
		Attempts: 0,
	}
}

func TestRecordPublisher_PublishRecord(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()

	t.Run("inserts, emits event and marks published", func(t *testing.T) {
		outboxRepo := &MockOutboxRepository{}
		auditRepo := &MockAuditRepository{}
		events := &MockMessagePublisher{}
		publisher := NewRecordPublisher(outboxRepo, auditRepo, events, logger)

		record := testOutboxRecord(1)
		auditRepo.On("Insert", ctx, &record.Record).Return(nil)
		events.On("Publish", ctx, "1", &record.Record).Return(nil)
		outboxRepo.On("MarkPublished", ctx, int64(1)).Return(nil)

		err := publisher.PublishRecord(ctx, record)
		assert.NoError(t, err)
		outboxRepo.AssertExpectations(t)
		auditRepo.AssertExpectations(t)
		events.AssertExpectations(t)
	})

	t.Run("duplicate in query store still marks published", func(t *testing.T) {
		outboxRepo := &MockOutboxRepository{}
		auditRepo := &MockAuditRepository{}
		events := &MockMessagePublisher{}
		publisher := NewRecordPublisher(outboxRepo, auditRepo, events, logger)

		record := testOutboxRecord(2)
		auditRepo.On("Insert", ctx, &record.Record).Return(audit.ErrDuplicateRecord{Seq: 2})
		events.On("Publish", ctx, "2", &record.Record).Return(nil)
		outboxRepo.On("MarkPublished", ctx, int64(2)).Return(nil)

		err := publisher.PublishRecord(ctx, record)
		assert.NoError(t, err)
		outboxRepo.AssertExpectations(t)
	})

	t.Run("insert failure leaves record pending", func(t *testing.T) {
		outboxRepo := &MockOutboxRepository{}
		auditRepo := &MockAuditRepository{}
		events := &MockMessagePublisher{}
		publisher := NewRecordPublisher(outboxRepo, auditRepo, events, logger)

		record := testOutboxRecord(3)
		insertErr := errors.New("mongo down")
		auditRepo.On("Insert", ctx, &record.Record).Return(insertErr)

		err := publisher.PublishRecord(ctx, record)
		assert.Error(t, err)
		assert.ErrorIs(t, err, insertErr)
		outboxRepo.AssertNotCalled(t, "MarkPublished", mock.Anything, mock.Anything)
		events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("event publish failure leaves record pending", func(t *testing.T) {
		outboxRepo := &MockOutboxRepository{}
		auditRepo := &MockAuditRepository{}
		events := &MockMessagePublisher{}
		publisher := NewRecordPublisher(outboxRepo, auditRepo, events, logger)

		record := testOutboxRecord(4)
		publishErr := errors.New("broker down")
		auditRepo.On("Insert", ctx, &record.Record).Return(nil)
		events.On("Publish", ctx, "4", &record.Record).Return(publishErr)

		err := publisher.PublishRecord(ctx, record)
		assert.Error(t, err)
		assert.ErrorIs(t, err, publishErr)
		outboxRepo.AssertNotCalled(t, "MarkPublished", mock.Anything, mock.Anything)
	})

	t.Run("nil events publisher skips kafka", func(t *testing.T) {
		outboxRepo := &MockOutboxRepository{}
		auditRepo := &MockAuditRepository{}
		publisher := NewRecordPublisher(outboxRepo, auditRepo, nil, logger)

		record := testOutboxRecord(5)
		auditRepo.On("Insert", ctx, &record.Record).Return(nil)
		outboxRepo.On("MarkPublished", ctx, int64(5)).Return(nil)

		err := publisher.PublishRecord(ctx, record)
		assert.NoError(t, err)
		outboxRepo.AssertExpectations(t)
	})

	t.Run("mark published failure is returned", func(t *testing.T) {
		outboxRepo := &MockOutboxRepository{}
		auditRepo := &MockAuditRepository{}
		publisher := NewRecordPublisher(outboxRepo, auditRepo, nil, logger)

		record := testOutboxRecord(6)
		markErr := errors.New("pg down")
		auditRepo.On("Insert", ctx, &record.Record).Return(nil)
		outboxRepo.On("MarkPublished", ctx, int64(6)).Return(markErr)

		err := publisher.PublishRecord(ctx, record)
		assert.Error(t, err)
		assert.ErrorIs(t, err, markErr)
	})
}
