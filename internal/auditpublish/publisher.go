// Package auditpublish moves committed audit records from the Postgres
// outbox to the Mongo query store and the Kafka audit topic. Records are
// published in sequence order, so readers of the query store observe the
// audit log in the same order operations committed.
package auditpublish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/account-ledger-engine/internal/domain/audit"
	"github.com/account-ledger-engine/internal/platform/messaging/producers"
)

// RecordPublisher publishes a single outbox record downstream
type RecordPublisher interface {
	PublishRecord(ctx context.Context, record *audit.OutboxRecord) error
}

// RecordPublisherImpl implements RecordPublisher
type RecordPublisherImpl struct {
	outboxRepo audit.OutboxRepository
	auditRepo  audit.Repository
	events     producers.MessagePublisher
	logger     *slog.Logger
}

// NewRecordPublisher creates a new publisher. events may be nil when no
// broker is configured; the query store is still populated.
func NewRecordPublisher(
	outboxRepo audit.OutboxRepository,
	auditRepo audit.Repository,
	events producers.MessagePublisher,
	logger *slog.Logger,
) RecordPublisher {
	return &RecordPublisherImpl{
		outboxRepo: outboxRepo,
		auditRepo:  auditRepo,
		events:     events,
		logger:     logger,
	}
}

// PublishRecord writes the record to the query store, emits the audit event
// and marks the outbox row published. The query store insert is idempotent
// so a crash between insert and mark only causes a harmless re-publish.
func (p *RecordPublisherImpl) PublishRecord(ctx context.Context, record *audit.OutboxRecord) error {
	logger := p.logger
	if record.CorrelationID != "" {
		logger = p.logger.With("correlation_id", record.CorrelationID)
	}

	logger.Info("Publishing audit record", "seq", record.Seq, "operation_id", record.OperationID.String())

	err := p.auditRepo.Insert(ctx, &record.Record)
	if err != nil {
		if errors.Is(err, audit.ErrDuplicateRecord{Seq: record.Seq}) {
			logger.Info("Audit record already present in query store", "seq", record.Seq)
		} else {
			logger.Error("Failed to insert audit record into query store", "seq", record.Seq, "error", err)
			return fmt.Errorf("failed to insert audit record %d: %w", record.Seq, err)
		}
	}

	if p.events != nil {
		key := strconv.FormatInt(record.Seq, 10)
		if err := p.events.Publish(ctx, key, &record.Record); err != nil {
			logger.Error("Failed to publish audit event", "seq", record.Seq, "error", err)
			return fmt.Errorf("failed to publish audit event %d: %w", record.Seq, err)
		}
	}

	if err := p.outboxRepo.MarkPublished(ctx, record.Seq); err != nil {
		logger.Error("Audit record published but failed to mark outbox row",
			"seq", record.Seq, "error", err,
		)
		return fmt.Errorf("publish for %d OK, but failed to mark outbox row: %w", record.Seq, err)
	}

	logger.Info("Audit record published", "seq", record.Seq)
	return nil
}
