package ltm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexlapax/careercoach/pkg/mem/ltm"
	"github.com/lexlapax/careercoach/pkg/mem/ltm/adapters/mock"
)

func TestNewRecordIDIsTimeOrdered(t *testing.T) {
	a := ltm.NewRecordID()
	b := ltm.NewRecordID()
	id, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Less(t, a, b)
}

func TestPrepare(t *testing.T) {
	_, err := ltm.Prepare(ltm.MemoryRecord{Content: "x"})
	assert.Error(t, err)

	score := 72.5
	var nilScore *float64
	rec, err := ltm.Prepare(ltm.MemoryRecord{
		UserID:  "u1",
		Content: "x",
		Metadata: map[string]interface{}{
			"type":        "analysis_result",
			"match_score": &score,
			"missing":     nilScore,
			"none":        nil,
			"count":       3,
			"tags":        []string{"a", "b"},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.WithinDuration(t, time.Now(), rec.CreatedAt, time.Minute)
	assert.Equal(t, map[string]interface{}{
		"type":        "analysis_result",
		"match_score": 72.5,
		"count":       3,
		"tags":        `["a","b"]`,
	}, rec.Metadata)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 3, ltm.Clamp(10, 3))
	assert.Equal(t, 2, ltm.Clamp(2, 3))
	assert.Equal(t, 0, ltm.Clamp(-1, 3))
}

func TestCompositeStore_StoreAndRead(t *testing.T) {
	ctx := context.Background()
	index, ledger := mock.NewMockStore(), mock.NewMockStore()
	store := ltm.NewCompositeStore(index, ledger)

	id, err := store.Store(ctx, ltm.MemoryRecord{UserID: "u1", Content: "hello", Embedding: []float32{1, 0}})
	require.NoError(t, err)
	assert.Equal(t, 1, index.Count("u1"))
	assert.Equal(t, 1, ledger.Count("u1"))

	recent, err := store.Recent(ctx, "u1", 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, id, recent[0].ID)

	found, err := store.Search(ctx, "u1", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, id, found[0].ID)

	require.NoError(t, store.Delete(ctx, "u1", id))
	assert.Equal(t, 0, index.Count("u1"))
	assert.Equal(t, 0, ledger.Count("u1"))
}

func TestCompositeStore_RequiresEmbedding(t *testing.T) {
	index, ledger := mock.NewMockStore(), mock.NewMockStore()
	store := ltm.NewCompositeStore(index, ledger)

	_, err := store.Store(context.Background(), ltm.MemoryRecord{UserID: "u1", Content: "hello"})
	assert.Error(t, err)
	assert.Equal(t, 0, index.Count("u1"))
}

func TestCompositeStore_RollsBackIndexOnLedgerFailure(t *testing.T) {
	ctx := context.Background()
	index, ledger := mock.NewMockStore(), mock.NewMockStore()
	ledger.SetStoreError(errors.New("disk full"))
	store := ltm.NewCompositeStore(index, ledger)

	_, err := store.Store(ctx, ltm.MemoryRecord{UserID: "u1", Content: "hello", Embedding: []float32{1, 0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	assert.Equal(t, 0, index.Count("u1"))
	found, err := store.Search(ctx, "u1", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestCompositeStore_IndexFailureSkipsLedger(t *testing.T) {
	index, ledger := mock.NewMockStore(), mock.NewMockStore()
	index.SetStoreError(errors.New("index down"))
	store := ltm.NewCompositeStore(index, ledger)

	_, err := store.Store(context.Background(), ltm.MemoryRecord{UserID: "u1", Content: "hello", Embedding: []float32{1, 0}})
	require.Error(t, err)
	assert.Equal(t, 0, ledger.Count("u1"))
}

func TestCompositeStore_NonPositiveLimits(t *testing.T) {
	store := ltm.NewCompositeStore(mock.NewMockStore(), mock.NewMockStore())

	recent, err := store.Recent(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, recent)

	found, err := store.Search(context.Background(), "u1", []float32{1}, -1)
	require.NoError(t, err)
	assert.Empty(t, found)
}
