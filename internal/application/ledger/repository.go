package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
)

// EventSourced is the contract aggregates must satisfy to be loaded and
// saved through the event store.
type EventSourced interface {
	shared.AggregateRoot
	shared.Snapshotter
	LoadFromHistory(applier shared.EventApplier, events []shared.DomainEvent) error
}

// AggregateRepository loads aggregates by snapshot plus replay and saves
// them with an expected-version append. Publication is not the repository's
// job: the event store queues appended events in its outbox transactionally.
type AggregateRepository[T EventSourced] struct {
	store         shared.EventStore
	snapshots     shared.SnapshotStore
	snapshotEvery int64
	newFn         func() T
	logger        *zap.Logger
}

// NewInvoiceRepository creates the event-sourced repository for invoices.
// snapshotEvery of zero disables snapshotting.
func NewInvoiceRepository(store shared.EventStore, snapshots shared.SnapshotStore, snapshotEvery int64, logger *zap.Logger) *AggregateRepository[*ledger.Invoice] {
	return &AggregateRepository[*ledger.Invoice]{
		store:         store,
		snapshots:     snapshots,
		snapshotEvery: snapshotEvery,
		newFn:         func() *ledger.Invoice { return &ledger.Invoice{} },
		logger:        logger,
	}
}

// NewPaymentRepository creates the event-sourced repository for payments.
func NewPaymentRepository(store shared.EventStore, snapshots shared.SnapshotStore, snapshotEvery int64, logger *zap.Logger) *AggregateRepository[*ledger.Payment] {
	return &AggregateRepository[*ledger.Payment]{
		store:         store,
		snapshots:     snapshots,
		snapshotEvery: snapshotEvery,
		newFn:         func() *ledger.Payment { return &ledger.Payment{} },
		logger:        logger,
	}
}

// Load rehydrates the aggregate identified by id. A snapshot, when present,
// replaces replay of the stream prefix; events after it replay on top. The
// result is identical to a full replay from the first event.
func (r *AggregateRepository[T]) Load(ctx context.Context, id uuid.UUID) (T, error) {
	agg := r.newFn()

	var after int64
	if r.snapshots != nil {
		snap, err := r.snapshots.Load(ctx, id)
		switch {
		case err == nil:
			if restoreErr := agg.RestoreSnapshot(snap.Version, snap.State); restoreErr != nil {
				// a corrupt snapshot falls back to full replay
				r.logger.Warn("snapshot restore failed, replaying full stream",
					zap.String("stream_id", id.String()),
					zap.Error(restoreErr))
				agg = r.newFn()
			} else {
				after = snap.Version
			}
		case errors.Is(err, shared.ErrNotFound):
			// no snapshot yet
		default:
			r.logger.Warn("snapshot load failed, replaying full stream",
				zap.String("stream_id", id.String()),
				zap.Error(err))
		}
	}

	events, err := r.store.ReadStreamFrom(ctx, id, after)
	if err != nil {
		var zero T
		return zero, err
	}
	if after == 0 && len(events) == 0 {
		var zero T
		return zero, shared.ErrNotFound
	}
	if err := agg.LoadFromHistory(agg, events); err != nil {
		var zero T
		return zero, err
	}
	return agg, nil
}

// LoadForTenant rehydrates the aggregate and verifies it belongs to the
// given tenant. An aggregate owned by another tenant is reported as
// shared.ErrNotFound so callers cannot distinguish foreign streams from
// absent ones.
func (r *AggregateRepository[T]) LoadForTenant(ctx context.Context, id, tenantID uuid.UUID) (T, error) {
	agg, err := r.Load(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}
	if agg.GetTenantID() != tenantID {
		r.logger.Warn("cross-tenant aggregate access denied",
			zap.String("stream_id", id.String()),
			zap.String("tenant_id", tenantID.String()))
		var zero T
		return zero, shared.ErrNotFound
	}
	return agg, nil
}

// Save appends the aggregate's uncommitted events at the version the caller
// loaded it at. shared.ErrConcurrencyConflict means another writer got there
// first; callers reload and retry or give up.
func (r *AggregateRepository[T]) Save(ctx context.Context, agg T) (int64, error) {
	events := agg.UncommittedEvents()
	if len(events) == 0 {
		return agg.GetVersion(), nil
	}
	expectedVersion := agg.GetVersion() - int64(len(events))

	newVersion, err := r.store.AppendToStream(ctx, agg.GetID(), expectedVersion, events)
	if err != nil {
		return 0, err
	}
	agg.ClearUncommittedEvents()
	r.maybeSnapshot(ctx, agg, expectedVersion, newVersion)
	return newVersion, nil
}

// maybeSnapshot writes a snapshot when the append crossed a multiple of the
// snapshot interval. Snapshot failures never fail the command; the stream
// remains the source of truth.
func (r *AggregateRepository[T]) maybeSnapshot(ctx context.Context, agg T, oldVersion, newVersion int64) {
	if r.snapshots == nil || r.snapshotEvery <= 0 {
		return
	}
	if oldVersion/r.snapshotEvery == newVersion/r.snapshotEvery {
		return
	}
	state, err := agg.SnapshotState()
	if err != nil {
		r.logger.Warn("snapshot serialization failed",
			zap.String("stream_id", agg.GetID().String()),
			zap.Error(err))
		return
	}
	snap := &shared.Snapshot{
		StreamID:      agg.GetID(),
		TenantID:      agg.GetTenantID(),
		AggregateType: agg.AggregateType(),
		Version:       newVersion,
		State:         state,
		TakenAt:       time.Now().UTC(),
	}
	if err := r.snapshots.Save(ctx, snap); err != nil {
		r.logger.Warn("snapshot save failed",
			zap.String("stream_id", agg.GetID().String()),
			zap.Int64("version", newVersion),
			zap.Error(err))
	}
}
