package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/account-ledger-engine/internal/domain/audit"
	"github.com/account-ledger-engine/internal/domain/shared"
)

// AuditServiceImpl implements AuditService on top of the Mongo query store.
// Queries run behind a circuit breaker so a struggling query store sheds
// load quickly instead of piling up requests.
type AuditServiceImpl struct {
	auditRepo audit.Repository
	breaker   *gobreaker.CircuitBreaker
	logger    *slog.Logger
}

type queryResult struct {
	records []*audit.Record
	total   int64
}

// NewAuditService creates a new audit service
func NewAuditService(logger *slog.Logger, auditRepo audit.Repository) AuditService {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "audit-query-store",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &AuditServiceImpl{
		auditRepo: auditRepo,
		breaker:   breaker,
		logger:    logger,
	}
}

// QueryRecords retrieves audit records matching the filter and the total
// match count for pagination
func (s *AuditServiceImpl) QueryRecords(ctx context.Context, filter audit.Filter) ([]*audit.Record, int64, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		records, err := s.auditRepo.Query(ctx, filter)
		if err != nil {
			return nil, err
		}
		total, err := s.auditRepo.Count(ctx, filter)
		if err != nil {
			return nil, err
		}
		return queryResult{records: records, total: total}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			s.logger.Warn("Audit query rejected by circuit breaker", "error", err)
			return nil, 0, fmt.Errorf("%w: %v", shared.ErrUnavailable, err)
		}
		s.logger.Error("Audit query failed", "error", err)
		return nil, 0, fmt.Errorf("%w: %v", shared.ErrUnavailable, err)
	}

	qr := result.(queryResult)
	return qr.records, qr.total, nil
}
