package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
)

func newTestSnapshot(streamID, tenantID uuid.UUID, version int64, state string) *shared.Snapshot {
	return &shared.Snapshot{
		StreamID:      streamID,
		TenantID:      tenantID,
		AggregateType: ledger.AggregateTypePayment,
		Version:       version,
		State:         []byte(state),
		TakenAt:       time.Now().UTC(),
	}
}

func TestGormSnapshotStore_SaveAndLoad(t *testing.T) {
	db := setupEventStoreTestDB(t)
	store := NewGormSnapshotStore(db)
	ctx := context.Background()

	streamID := uuid.New()
	tenantID := uuid.New()

	require.NoError(t, store.Save(ctx, newTestSnapshot(streamID, tenantID, 5, `{"status":"PENDING"}`)))

	loaded, err := store.Load(ctx, streamID)
	require.NoError(t, err)
	assert.Equal(t, streamID, loaded.StreamID)
	assert.Equal(t, tenantID, loaded.TenantID)
	assert.Equal(t, ledger.AggregateTypePayment, loaded.AggregateType)
	assert.Equal(t, int64(5), loaded.Version)
	assert.JSONEq(t, `{"status":"PENDING"}`, string(loaded.State))
}

func TestGormSnapshotStore_NewerSnapshotReplacesOlder(t *testing.T) {
	db := setupEventStoreTestDB(t)
	store := NewGormSnapshotStore(db)
	ctx := context.Background()

	streamID := uuid.New()
	tenantID := uuid.New()

	require.NoError(t, store.Save(ctx, newTestSnapshot(streamID, tenantID, 5, `{"status":"PENDING"}`)))
	require.NoError(t, store.Save(ctx, newTestSnapshot(streamID, tenantID, 9, `{"status":"COMPLETED"}`)))

	loaded, err := store.Load(ctx, streamID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), loaded.Version)
	assert.JSONEq(t, `{"status":"COMPLETED"}`, string(loaded.State))
}

func TestGormSnapshotStore_StaleSnapshotDoesNotOverwrite(t *testing.T) {
	db := setupEventStoreTestDB(t)
	store := NewGormSnapshotStore(db)
	ctx := context.Background()

	streamID := uuid.New()
	tenantID := uuid.New()

	require.NoError(t, store.Save(ctx, newTestSnapshot(streamID, tenantID, 9, `{"status":"COMPLETED"}`)))
	require.NoError(t, store.Save(ctx, newTestSnapshot(streamID, tenantID, 5, `{"status":"PENDING"}`)))

	loaded, err := store.Load(ctx, streamID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), loaded.Version)
}

func TestGormSnapshotStore_LoadMissingReturnsNotFound(t *testing.T) {
	db := setupEventStoreTestDB(t)
	store := NewGormSnapshotStore(db)

	_, err := store.Load(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormSnapshotStore_StreamsAreIndependent(t *testing.T) {
	db := setupEventStoreTestDB(t)
	store := NewGormSnapshotStore(db)
	ctx := context.Background()

	first := uuid.New()
	second := uuid.New()
	tenantID := uuid.New()

	require.NoError(t, store.Save(ctx, newTestSnapshot(first, tenantID, 3, `{"n":1}`)))
	require.NoError(t, store.Save(ctx, newTestSnapshot(second, tenantID, 7, `{"n":2}`)))

	loaded, err := store.Load(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, int64(3), loaded.Version)
}
