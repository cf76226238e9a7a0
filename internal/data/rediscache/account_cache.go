// Package rediscache provides a read-side cache of account snapshots.
// Balances are authoritative in Postgres only; cached snapshots are
// invalidated after every committed operation and expire on a short TTL,
// so the cache can only serve slightly stale reads, never stale writes.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/account-ledger-engine/internal/config"
	"github.com/account-ledger-engine/internal/domain/account"
	"github.com/google/uuid"
	"github.com/redis/rueidis"
)

// AccountCache caches account snapshots in Redis
type AccountCache struct {
	client rueidis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

func NewAccountCache(ctx context.Context, logger *slog.Logger, cfg *config.RedisConfig) (*AccountCache, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{cfg.Addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("Connected to Redis", "addr", cfg.Addr)

	return &AccountCache{
		client: client,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

func (c *AccountCache) key(id uuid.UUID) string {
	return c.prefix + "account:" + id.String()
}

// Get returns the cached snapshot for the account, or (nil, nil) on a miss
func (c *AccountCache) Get(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	cmd := c.client.B().Get().Key(c.key(id)).Build()
	resp := c.client.Do(ctx, cmd)

	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account snapshot: %w", err)
	}

	data, err := resp.AsBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read account snapshot: %w", err)
	}

	var acc account.Account
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account snapshot: %w", err)
	}

	return &acc, nil
}

// Set stores a snapshot of the account with the configured TTL
func (c *AccountCache) Set(ctx context.Context, acc *account.Account) error {
	data, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("failed to marshal account snapshot: %w", err)
	}

	cmd := c.client.B().Set().Key(c.key(acc.ID)).Value(string(data)).Ex(c.ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to set account snapshot: %w", err)
	}

	return nil
}

// Invalidate drops cached snapshots for the given accounts. Failures are
// logged, not returned: the TTL bounds how long a stale snapshot survives.
func (c *AccountCache) Invalidate(ctx context.Context, ids ...uuid.UUID) {
	for _, id := range ids {
		cmd := c.client.B().Del().Key(c.key(id)).Build()
		if err := c.client.Do(ctx, cmd).Error(); err != nil {
			c.logger.Warn("Failed to invalidate account snapshot", "account_id", id.String(), "error", err)
		}
	}
}

func (c *AccountCache) Close() {
	c.client.Close()
}
