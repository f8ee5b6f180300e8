package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
)

// memoryEventStore is an in-memory EventStore with optimistic concurrency,
// plus a conflict injector so tests can exercise the retry path.
type memoryEventStore struct {
	mu           sync.Mutex
	streams      map[uuid.UUID][]shared.DomainEvent
	log          []shared.DomainEvent
	conflictsFor map[uuid.UUID]int
}

func newMemoryEventStore() *memoryEventStore {
	return &memoryEventStore{
		streams:      make(map[uuid.UUID][]shared.DomainEvent),
		conflictsFor: make(map[uuid.UUID]int),
	}
}

// injectConflicts makes the next n appends to the stream fail with a
// concurrency conflict.
func (s *memoryEventStore) injectConflicts(streamID uuid.UUID, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflictsFor[streamID] = n
}

func (s *memoryEventStore) AppendToStream(ctx context.Context, streamID uuid.UUID, expectedVersion int64, events []shared.DomainEvent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflictsFor[streamID] > 0 {
		s.conflictsFor[streamID]--
		return 0, shared.ErrConcurrencyConflict
	}

	current := int64(len(s.streams[streamID]))
	if current != expectedVersion {
		return 0, shared.ErrConcurrencyConflict
	}
	s.streams[streamID] = append(s.streams[streamID], events...)
	s.log = append(s.log, events...)
	return current + int64(len(events)), nil
}

func (s *memoryEventStore) ReadStream(ctx context.Context, streamID uuid.UUID) ([]shared.DomainEvent, error) {
	return s.ReadStreamFrom(ctx, streamID, 0)
}

func (s *memoryEventStore) ReadStreamFrom(ctx context.Context, streamID uuid.UUID, afterVersion int64) ([]shared.DomainEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[streamID]
	var out []shared.DomainEvent
	for _, e := range stream {
		if e.Sequence() > afterVersion {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memoryEventStore) ReadAll(ctx context.Context, afterPosition int64, limit int) ([]shared.DomainEvent, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if afterPosition >= int64(len(s.log)) {
		return nil, afterPosition, nil
	}
	end := afterPosition + int64(limit)
	if end > int64(len(s.log)) {
		end = int64(len(s.log))
	}
	return append([]shared.DomainEvent(nil), s.log[afterPosition:end]...), end, nil
}

var _ shared.EventStore = (*memoryEventStore)(nil)

type memorySnapshotStore struct {
	mu    sync.Mutex
	snaps map[uuid.UUID]*shared.Snapshot
}

func newMemorySnapshotStore() *memorySnapshotStore {
	return &memorySnapshotStore{snaps: make(map[uuid.UUID]*shared.Snapshot)}
}

func (s *memorySnapshotStore) Save(ctx context.Context, snapshot *shared.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snapshot.StreamID] = snapshot
	return nil
}

func (s *memorySnapshotStore) Load(ctx context.Context, streamID uuid.UUID) (*shared.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[streamID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return snap, nil
}

var _ shared.SnapshotStore = (*memorySnapshotStore)(nil)

type memoryInvoiceReadRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]ledger.InvoiceReadModel
}

func newMemoryInvoiceReadRepo() *memoryInvoiceReadRepo {
	return &memoryInvoiceReadRepo{rows: make(map[uuid.UUID]ledger.InvoiceReadModel)}
}

func (r *memoryInvoiceReadRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.InvoiceReadModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	copied := row
	return &copied, nil
}

func (r *memoryInvoiceReadRepo) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.InvoiceFilter) ([]ledger.InvoiceReadModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.InvoiceReadModel
	for _, row := range r.rows {
		if row.TenantID != tenantID {
			continue
		}
		if filter.Status != nil && row.Status != *filter.Status {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *memoryInvoiceReadRepo) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.InvoiceFilter) (int64, error) {
	rows, err := r.FindAllForTenant(ctx, tenantID, filter)
	return int64(len(rows)), err
}

func (r *memoryInvoiceReadRepo) Save(ctx context.Context, row *ledger.InvoiceReadModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.ID] = *row
	return nil
}

func (r *memoryInvoiceReadRepo) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = make(map[uuid.UUID]ledger.InvoiceReadModel)
	return nil
}

var _ ledger.InvoiceReadRepository = (*memoryInvoiceReadRepo)(nil)

type memoryPaymentReadRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]ledger.PaymentReadModel
}

func newMemoryPaymentReadRepo() *memoryPaymentReadRepo {
	return &memoryPaymentReadRepo{rows: make(map[uuid.UUID]ledger.PaymentReadModel)}
}

func (r *memoryPaymentReadRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.PaymentReadModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	copied := row
	return &copied, nil
}

func (r *memoryPaymentReadRepo) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.PaymentFilter) ([]ledger.PaymentReadModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.PaymentReadModel
	for _, row := range r.rows {
		if row.TenantID != tenantID {
			continue
		}
		if filter.InvoiceID != nil && row.InvoiceID != *filter.InvoiceID {
			continue
		}
		if filter.Status != nil && row.Status != *filter.Status {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *memoryPaymentReadRepo) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.PaymentFilter) (int64, error) {
	rows, err := r.FindAllForTenant(ctx, tenantID, filter)
	return int64(len(rows)), err
}

func (r *memoryPaymentReadRepo) Save(ctx context.Context, row *ledger.PaymentReadModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.ID] = *row
	return nil
}

func (r *memoryPaymentReadRepo) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = make(map[uuid.UUID]ledger.PaymentReadModel)
	return nil
}

var _ ledger.PaymentReadRepository = (*memoryPaymentReadRepo)(nil)

// Static collaborators used across handler tests.

type staticTaxRates map[string]float64

func (r staticTaxRates) RateFor(ctx context.Context, category string) (decimal.Decimal, error) {
	return decimal.NewFromFloat(r[category]), nil
}

type sequentialDocNumbers struct{}

func (sequentialDocNumbers) Generate(ctx context.Context, invoiceID uuid.UUID, issuedAt time.Time) (string, error) {
	return "INV-" + issuedAt.Format("20060102") + "-" + invoiceID.String()[:8], nil
}

type allowAllParties struct{}

func (allowAllParties) CustomerExists(ctx context.Context, tenantID, customerID uuid.UUID) (bool, error) {
	return true, nil
}

func (allowAllParties) VendorExists(ctx context.Context, tenantID, vendorID uuid.UUID) (bool, error) {
	return true, nil
}

// fixture wires the full write side against in-memory stores.
type fixture struct {
	tenantID uuid.UUID
	actorID  uuid.UUID
	store    *memoryEventStore
	snaps    *memorySnapshotStore
	invoices *AggregateRepository[*ledger.Invoice]
	payments *AggregateRepository[*ledger.Payment]
	registry *Registry
}

func newFixture() *fixture {
	logger := zap.NewNop()
	store := newMemoryEventStore()
	snaps := newMemorySnapshotStore()
	invoices := NewInvoiceRepository(store, snaps, 5, logger)
	payments := NewPaymentRepository(store, snaps, 5, logger)

	registry := NewRegistry(logger)
	registry.Register(
		NewCreateInvoiceHandler(invoices, staticTaxRates{"standard": 0.15, "exempt": 0}, allowAllParties{}, logger),
		NewApproveInvoiceHandler(invoices, sequentialDocNumbers{}, logger),
		NewCancelInvoiceHandler(invoices, logger),
		NewCreatePaymentHandler(payments, invoices, logger),
		NewCompletePaymentHandler(payments, invoices, CoordinatorConfig{MaxAttempts: 3, RetryBackoff: time.Millisecond}, logger),
		NewFailPaymentHandler(payments, logger),
		NewCancelPaymentHandler(payments, logger),
		NewReconcilePaymentHandler(payments, logger),
	)

	return &fixture{
		tenantID: uuid.New(),
		actorID:  uuid.New(),
		store:    store,
		snaps:    snaps,
		invoices: invoices,
		payments: payments,
		registry: registry,
	}
}
