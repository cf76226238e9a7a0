package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/account-ledger-engine/internal/config"
	"github.com/segmentio/kafka-go"
)

// AuditEventProducer publishes committed audit records to the audit events
// topic. Writes are synchronous: the outbox publisher must not mark a record
// published until the broker has acknowledged it.
type AuditEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewAuditEventProducer creates the producer and ensures the topic exists
func NewAuditEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*AuditEventProducer, error) {
	if cfg.AuditTopic == "" {
		return nil, fmt.Errorf("kafka audit topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for audit event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.AuditTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure audit topic %s exists: %w", cfg.AuditTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.AuditTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}

	return &AuditEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.AuditTopic,
	}, nil
}

func (p *AuditEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish audit event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish audit event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published audit event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *AuditEventProducer) Close() error {
	p.logger.Info("Closing audit event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
