package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewa/raredx/internal/models"
	"github.com/ewa/raredx/pkg/store"
)

func testConfig(t *testing.T) store.StoreConfig {
	t.Helper()
	return store.StoreConfig{
		Backend:     "local",
		PersistDir:  filepath.Join(t.TempDir(), "vector_db"),
		Collection:  "rare_diseases_collection",
		VectorDim:   3,
		SettleDelay: time.Millisecond,
	}
}

func testChunks() []models.Chunk {
	return []models.Chunk{
		{
			ID:     "c1",
			Text:   "Fabry disease is caused by GLA variants",
			Vector: []float32{1, 0, 0},
			Metadata: map[string]string{
				models.MetaDisease: "Fabry Disease",
				models.MetaType:    models.DocTypeClinicalInfo,
			},
		},
		{
			ID:     "c2",
			Text:   "Gaucher disease presents with splenomegaly",
			Vector: []float32{0, 1, 0},
			Metadata: map[string]string{
				models.MetaDisease: "Gaucher Disease",
				models.MetaType:    models.DocTypeClinicalInfo,
			},
		},
	}
}

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	config := testConfig(t)

	collection, err := store.ResetAndCreate(ctx, config)
	require.NoError(t, err)
	defer collection.Close()

	require.NoError(t, collection.Upsert(ctx, testChunks()))

	count, err := collection.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	hits, err := collection.Search(ctx, []float32{1, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ID)
	assert.Equal(t, "Fabry Disease", hits[0].Metadata[models.MetaDisease])
}

func TestLocalMetadataFilterRestrictsSearch(t *testing.T) {
	ctx := context.Background()
	config := testConfig(t)

	collection, err := store.ResetAndCreate(ctx, config)
	require.NoError(t, err)
	defer collection.Close()

	require.NoError(t, collection.Upsert(ctx, testChunks()))

	// The nearest neighbor is c1; the filter must still exclude it.
	hits, err := collection.Search(ctx, []float32{1, 0, 0}, 5, map[string]string{
		models.MetaDisease: "Gaucher Disease",
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c2", hits[0].ID)
}

func TestResetAndCreateWipesPriorData(t *testing.T) {
	ctx := context.Background()
	config := testConfig(t)

	collection, err := store.ResetAndCreate(ctx, config)
	require.NoError(t, err)
	require.NoError(t, collection.Upsert(ctx, testChunks()))
	require.NoError(t, collection.Close())

	rebuilt, err := store.ResetAndCreate(ctx, config)
	require.NoError(t, err)
	defer rebuilt.Close()

	count, err := rebuilt.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestOpenKeepsPriorData(t *testing.T) {
	ctx := context.Background()
	config := testConfig(t)

	collection, err := store.ResetAndCreate(ctx, config)
	require.NoError(t, err)
	require.NoError(t, collection.Upsert(ctx, testChunks()))
	require.NoError(t, collection.Close())

	reopened, err := store.Open(ctx, config)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestResetAndCreateStopsOnCancelledContext(t *testing.T) {
	config := testConfig(t)
	config.SettleDelay = time.Minute

	// An existing directory triggers the wipe-and-settle path; the wait
	// must give up as soon as the context is done.
	require.NoError(t, os.MkdirAll(config.PersistDir, 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := store.ResetAndCreate(ctx, config)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestUnknownBackend(t *testing.T) {
	_, err := store.ResetAndCreate(context.Background(), store.StoreConfig{Backend: "chroma"})
	assert.Error(t, err)
}
