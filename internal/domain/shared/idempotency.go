package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which event IDs a subscriber has already
// handled, so redelivered events can be skipped.
type IdempotencyStore interface {
	// MarkProcessed records eventID for ttl. It reports true when the ID was
	// newly recorded and false when it was already present.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether eventID has been recorded.
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Close releases the store's resources.
	Close() error
}

// IdempotencyConfig controls event deduplication for wrapped handlers.
type IdempotencyConfig struct {
	// TTL is how long processed event IDs are remembered. After it expires
	// the same event ID would be processed again; projections carry a
	// sequence guard as a second line of defense.
	TTL time.Duration

	// Enabled toggles deduplication; when false every delivery is handled.
	Enabled bool
}

// DefaultIdempotencyConfig remembers event IDs for a day.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
