package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonground/eventfinder/internal/storage"
	"github.com/commonground/eventfinder/internal/storage/postgres"
)

// newTestVectorStore creates a VectorStore over a fresh connection,
// skipping when the server has no pgvector extension.
func newTestVectorStore(t *testing.T) *postgres.VectorStore {
	t.Helper()

	store, err := postgres.NewFeedbackStore(postgresTestDSN(t))
	require.NoError(t, err)
	if !store.VectorBackendAvailable() {
		_ = store.Close()
		t.Skip("pgvector extension not available; skipping vector store tests")
	}

	_, err = store.GetDB().Exec("TRUNCATE event_vectors")
	require.NoError(t, err, "truncate event_vectors")

	t.Cleanup(func() {
		_ = store.Close()
	})
	return postgres.NewVectorStore(store.GetDB())
}

func TestStoreVector_Validation(t *testing.T) {
	vs := newTestVectorStore(t)
	ctx := context.Background()

	err := vs.StoreVector(ctx, "", []float32{1, 0}, "minilm")
	assert.ErrorIs(t, err, storage.ErrValidation)

	err = vs.StoreVector(ctx, "evt:aaa", nil, "minilm")
	assert.ErrorIs(t, err, storage.ErrValidation)

	err = vs.StoreVector(ctx, "evt:aaa", []float32{1, 0}, "")
	assert.ErrorIs(t, err, storage.ErrValidation)
}

func TestSimilarEvents_OrdersByCosine(t *testing.T) {
	vs := newTestVectorStore(t)
	ctx := context.Background()

	require.NoError(t, vs.StoreVector(ctx, "evt:north", []float32{0, 1, 0}, "minilm"))
	require.NoError(t, vs.StoreVector(ctx, "evt:east", []float32{1, 0, 0}, "minilm"))
	require.NoError(t, vs.StoreVector(ctx, "evt:northeast", []float32{1, 1, 0}, "minilm"))

	results, err := vs.SimilarEvents(ctx, []float32{0, 1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "evt:north", results[0].EventID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	assert.Equal(t, "evt:northeast", results[1].EventID)
	assert.Equal(t, "evt:east", results[2].EventID)
	assert.InDelta(t, 0.0, results[2].Similarity, 1e-6)
}

func TestSimilarEvents_EmptyQueryAndLimit(t *testing.T) {
	vs := newTestVectorStore(t)
	ctx := context.Background()

	results, err := vs.SimilarEvents(ctx, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, vs.StoreVector(ctx, "evt:a", []float32{1, 0}, "minilm"))
	require.NoError(t, vs.StoreVector(ctx, "evt:b", []float32{0, 1}, "minilm"))

	results, err = vs.SimilarEvents(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestStoreVector_UpsertReplaces(t *testing.T) {
	vs := newTestVectorStore(t)
	ctx := context.Background()

	require.NoError(t, vs.StoreVector(ctx, "evt:a", []float32{1, 0}, "minilm"))
	require.NoError(t, vs.StoreVector(ctx, "evt:a", []float32{0, 1}, "minilm"))

	results, err := vs.SimilarEvents(ctx, []float32{0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
}

func TestDeleteVector(t *testing.T) {
	vs := newTestVectorStore(t)
	ctx := context.Background()

	require.NoError(t, vs.StoreVector(ctx, "evt:a", []float32{1, 0}, "minilm"))
	require.NoError(t, vs.DeleteVector(ctx, "evt:a"))

	err := vs.DeleteVector(ctx, "evt:a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
