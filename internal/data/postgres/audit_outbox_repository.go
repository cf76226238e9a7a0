package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/account-ledger-engine/internal/domain/audit"
	"github.com/account-ledger-engine/internal/domain/shared"
	"github.com/account-ledger-engine/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// AuditOutboxRepository implements audit.OutboxRepository for PostgreSQL.
// Records appended here in the engine's transaction become visible to the
// publisher only after that transaction commits, which is what keeps audit
// entries ordered behind the balance mutations they describe.
type AuditOutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAuditOutboxRepository creates a new PostgreSQL audit outbox repository
func NewAuditOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) audit.OutboxRepository {
	return &AuditOutboxRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so the append commits
// atomically with the balance mutation.
func (r *AuditOutboxRepository) WithTx(tx pgx.Tx) audit.OutboxRepository {
	return &AuditOutboxRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Append stages a record in pending status and assigns its sequence number
func (r *AuditOutboxRepository) Append(ctx context.Context, record *audit.Record) error {
	query := `
		INSERT INTO audit_outbox (operation_id, kind, amount, source_account, dest_account, correlation_id, occurred_at, status, attempts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0)
		RETURNING seq
	`

	err := r.querier.QueryRow(ctx, query,
		record.OperationID,
		record.Kind,
		record.Amount,
		record.SourceAccount,
		record.DestAccount,
		record.CorrelationID,
		record.Timestamp,
		shared.OutboxStatusPending,
	).Scan(&record.Seq)

	if err != nil {
		r.logger.Error("Failed to append audit record",
			"operation_id", record.OperationID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to append audit record: %w", err)
	}

	return nil
}

// GetPending retrieves a batch of unpublished records in sequence order
func (r *AuditOutboxRepository) GetPending(ctx context.Context, limit int) ([]*audit.OutboxRecord, error) {
	query := `
		SELECT seq, operation_id, kind, amount, source_account, dest_account, correlation_id, occurred_at, status, attempts, last_attempt_at
		FROM audit_outbox
		WHERE status = $1
		ORDER BY seq ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, shared.OutboxStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending audit records", "error", err)
		return nil, fmt.Errorf("failed to get pending audit records: %w", err)
	}
	defer rows.Close()

	var records []*audit.OutboxRecord
	for rows.Next() {
		var rec audit.OutboxRecord
		err := rows.Scan(
			&rec.Seq,
			&rec.OperationID,
			&rec.Kind,
			&rec.Amount,
			&rec.SourceAccount,
			&rec.DestAccount,
			&rec.CorrelationID,
			&rec.Timestamp,
			&rec.Status,
			&rec.Attempts,
			&rec.LastAttemptAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan audit outbox record", "error", err)
			return nil, fmt.Errorf("failed to scan audit outbox record: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over audit outbox records", "error", err)
		return nil, fmt.Errorf("error iterating over audit outbox records: %w", err)
	}

	return records, nil
}

// MarkPublished marks the record as published to the query store
func (r *AuditOutboxRepository) MarkPublished(ctx context.Context, seq int64) error {
	return r.setStatus(ctx, seq, shared.OutboxStatusPublished)
}

// MarkFailed marks the record as permanently unpublishable
func (r *AuditOutboxRepository) MarkFailed(ctx context.Context, seq int64) error {
	return r.setStatus(ctx, seq, shared.OutboxStatusFailedToPublish)
}

func (r *AuditOutboxRepository) setStatus(ctx context.Context, seq int64, status shared.OutboxStatus) error {
	query := `
		UPDATE audit_outbox
		SET status = $1, last_attempt_at = $2
		WHERE seq = $3
	`

	result, err := r.querier.Exec(ctx, query, status, time.Now(), seq)
	if err != nil {
		r.logger.Error("Failed to update audit outbox status",
			"seq", seq,
			"status", string(status),
			"error", err,
		)
		return fmt.Errorf("failed to update audit outbox status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return audit.ErrRecordNotFound{Seq: seq}
	}

	return nil
}

// IncrementAttempts increments the publish attempt counter
func (r *AuditOutboxRepository) IncrementAttempts(ctx context.Context, seq int64) error {
	query := `
		UPDATE audit_outbox
		SET attempts = attempts + 1, last_attempt_at = $1
		WHERE seq = $2
	`

	result, err := r.querier.Exec(ctx, query, time.Now(), seq)
	if err != nil {
		r.logger.Error("Failed to increment audit outbox attempts",
			"seq", seq,
			"error", err,
		)
		return fmt.Errorf("failed to increment audit outbox attempts: %w", err)
	}

	if result.RowsAffected() == 0 {
		return audit.ErrRecordNotFound{Seq: seq}
	}

	return nil
}
