package auditpublish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/account-ledger-engine/internal/config"
	"github.com/account-ledger-engine/internal/domain/audit"
)

// Poller drains pending audit outbox records on an interval
type Poller struct {
	outboxRepo       audit.OutboxRepository
	publisher        RecordPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo audit.OutboxRepository,
	publisher RecordPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting audit outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Audit outbox poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := p.processPendingRecords(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending audit records", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingRecords(ctx context.Context) error {
	records, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending audit records: %w", err)
	}

	if len(records) == 0 {
		p.logger.Debug("No pending audit records found.")
		return nil
	}

	p.logger.Info("Fetched pending audit records", "count", len(records))

	for _, record := range records {
		logger := p.logger
		if record.CorrelationID != "" {
			logger = p.logger.With("correlation_id", record.CorrelationID)
		}

		err := p.publisher.PublishRecord(ctx, record)
		if err != nil {
			logger.Error("Failed to publish audit record",
				"seq", record.Seq, "current_attempts", record.Attempts, "error", err,
			)

			if errInc := p.outboxRepo.IncrementAttempts(ctx, record.Seq); errInc != nil {
				logger.Error("Failed to increment attempts for audit record", "seq", record.Seq, "error", errInc)
				continue
			}

			if record.Attempts+1 >= p.maxRetryAttempts {
				logger.Warn("Max retry attempts reached for audit record, marking as FAILED_TO_PUBLISH",
					"seq", record.Seq, "attempts_made", record.Attempts+1,
				)
				if errMark := p.outboxRepo.MarkFailed(ctx, record.Seq); errMark != nil {
					logger.Error("Failed to mark audit record as FAILED_TO_PUBLISH after max retries", "seq", record.Seq, "error", errMark)
				}
			}

			// Stop the batch: later records must not overtake a failed one,
			// otherwise the query store would see them out of order
			return nil
		}
	}
	return nil
}
