package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/account-ledger-engine/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the audit record collection in MongoDB
	AuditCollectionName = "audit_records"
)

// AuditRepository implements the audit.Repository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert stores a committed audit record after checking for duplicates.
// Returns ErrDuplicateRecord if a record with the same sequence exists,
// which makes re-publication from the outbox idempotent.
func (r *AuditRepository) Insert(ctx context.Context, record *audit.Record) error {
	collection := r.db.Collection(AuditCollectionName)

	existing, err := r.GetBySeq(ctx, record.Seq)
	if err != nil && !errors.Is(err, audit.ErrRecordNotFound{}) {
		r.logger.Error("Failed to check for existing audit record",
			"seq", record.Seq,
			"error", err)
		return fmt.Errorf("failed to check for existing audit record: %w", err)
	}

	if existing != nil {
		return audit.ErrDuplicateRecord{Seq: record.Seq}
	}

	_, err = collection.InsertOne(ctx, record)
	if err != nil {
		r.logger.Error("Failed to insert audit record",
			"seq", record.Seq,
			"error", err)
		return fmt.Errorf("failed to insert audit record: %w", err)
	}

	return nil
}

// GetBySeq retrieves an audit record by its sequence number.
// Returns ErrRecordNotFound if no record exists for the given sequence.
func (r *AuditRepository) GetBySeq(ctx context.Context, seq int64) (*audit.Record, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"seq": seq}
	var record audit.Record
	err := collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, audit.ErrRecordNotFound{Seq: seq}
		}
		r.logger.Error("Failed to get audit record",
			"seq", seq,
			"error", err)
		return nil, fmt.Errorf("failed to get audit record: %w", err)
	}

	return &record, nil
}

// Query retrieves audit records matching the filter in ascending timestamp
// order, ties broken by ascending sequence number.
func (r *AuditRepository) Query(ctx context.Context, filter audit.Filter) ([]*audit.Record, error) {
	collection := r.db.Collection(AuditCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "seq", Value: 1}})
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := collection.Find(ctx, queryFilter(filter), opts)
	if err != nil {
		r.logger.Error("Failed to query audit records", "error", err)
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*audit.Record
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode audit records", "error", err)
		return nil, fmt.Errorf("failed to decode audit records: %w", err)
	}

	return records, nil
}

// Count counts audit records matching the filter
func (r *AuditRepository) Count(ctx context.Context, filter audit.Filter) (int64, error) {
	collection := r.db.Collection(AuditCollectionName)

	count, err := collection.CountDocuments(ctx, queryFilter(filter))
	if err != nil {
		r.logger.Error("Failed to count audit records", "error", err)
		return 0, fmt.Errorf("failed to count audit records: %w", err)
	}

	return count, nil
}

// queryFilter translates an audit.Filter into a MongoDB filter document.
// An account filter matches records where the account appears on either
// side of the operation.
func queryFilter(filter audit.Filter) bson.M {
	query := bson.M{}

	if filter.AccountID != nil {
		query["$or"] = bson.A{
			bson.M{"source_account": *filter.AccountID},
			bson.M{"dest_account": *filter.AccountID},
		}
	}
	if filter.Kind != "" {
		query["kind"] = filter.Kind
	}

	timeRange := bson.M{}
	if filter.From != nil {
		timeRange["$gte"] = *filter.From
	}
	if filter.To != nil {
		timeRange["$lte"] = *filter.To
	}
	if len(timeRange) > 0 {
		query["timestamp"] = timeRange
	}

	return query
}
