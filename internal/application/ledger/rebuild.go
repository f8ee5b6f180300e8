package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/infrastructure/telemetry"
)

// ProjectionRebuilder rebuilds read models from scratch by replaying the
// global event log through the projections. The result is identical to what
// incremental application would have produced.
type ProjectionRebuilder struct {
	store     shared.EventStore
	handlers  []shared.EventHandler
	truncate  func(ctx context.Context) error
	batchSize int
	logger    *zap.Logger
}

// NewProjectionRebuilder creates a rebuilder over the given projections.
// truncate clears all affected read model tables before replay begins.
func NewProjectionRebuilder(store shared.EventStore, truncate func(ctx context.Context) error, logger *zap.Logger, handlers ...shared.EventHandler) *ProjectionRebuilder {
	return &ProjectionRebuilder{
		store:     store,
		handlers:  handlers,
		truncate:  truncate,
		batchSize: 500,
		logger:    logger,
	}
}

// SetBatchSize overrides the replay page size.
func (r *ProjectionRebuilder) SetBatchSize(n int) {
	if n > 0 {
		r.batchSize = n
	}
}

// Rebuild truncates the read models and replays the full event log in
// append order. Projections skip event kinds they do not handle.
func (r *ProjectionRebuilder) Rebuild(ctx context.Context) (int64, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "projection", "rebuild")
	defer span.End()

	if err := r.truncate(ctx); err != nil {
		telemetry.RecordError(span, err)
		return 0, fmt.Errorf("truncate read models: %w", err)
	}

	interested := make(map[string][]shared.EventHandler)
	for _, h := range r.handlers {
		for _, t := range h.EventTypes() {
			interested[t] = append(interested[t], h)
		}
	}

	var position int64
	var replayed int64
	for {
		events, lastPosition, err := r.store.ReadAll(ctx, position, r.batchSize)
		if err != nil {
			telemetry.RecordError(span, err)
			return replayed, fmt.Errorf("read event log after position %d: %w", position, err)
		}
		if len(events) == 0 {
			break
		}

		for _, event := range events {
			for _, h := range interested[event.EventType()] {
				if err := h.Handle(ctx, event); err != nil {
					telemetry.RecordError(span, err)
					return replayed, fmt.Errorf("replay %s at position %d: %w", event.EventType(), lastPosition, err)
				}
			}
			replayed++
		}
		position = lastPosition
	}

	telemetry.SetAttribute(span, "events_replayed", replayed)
	r.logger.Info("projection rebuild complete", zap.Int64("events_replayed", replayed))
	return replayed, nil
}
