// Package cache provides the idempotency stores used to deduplicate
// at-least-once event deliveries.
package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/infrastructure/config"
)

type storeOptions struct {
	requireRedis bool
}

// StoreOption adjusts store selection.
type StoreOption func(*storeOptions)

// RequireRedis makes a Redis connection failure fatal instead of falling
// back to the in-memory store. Use it when multiple instances process the
// same outbox; a per-process store would let duplicates through.
func RequireRedis() StoreOption {
	return func(o *storeOptions) { o.requireRedis = true }
}

// NewIdempotencyStore selects the store implied by cfg: Redis when enabled,
// in-memory otherwise.
func NewIdempotencyStore(cfg config.RedisConfig, logger *zap.Logger, opts ...StoreOption) (shared.IdempotencyStore, error) {
	var o storeOptions
	for _, opt := range opts {
		opt(&o)
	}

	if !cfg.Enabled {
		logger.Info("Redis disabled, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	}

	store, err := NewRedisIdempotencyStore(cfg)
	if err == nil {
		logger.Info("Using Redis idempotency store",
			zap.String("host", cfg.Host), zap.Int("port", cfg.Port))
		return store, nil
	}
	if o.requireRedis {
		return nil, fmt.Errorf("redis idempotency store: %w", err)
	}

	logger.Warn("Redis unavailable, falling back to in-memory idempotency store; duplicates are possible across instances",
		zap.Error(err))
	return NewInMemoryIdempotencyStore(), nil
}
