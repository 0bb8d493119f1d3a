package vectorstore

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakebgo/library-mvp/backend/go/internal/config"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/schema"
	"github.com/jakebgo/library-mvp/backend/go/pkg/logger"
	"github.com/jakebgo/library-mvp/backend/go/pkg/ragerr"
)

func newTestChromem(t *testing.T) *ChromemStore {
	store, err := NewChromemStore(config.ChromemConfig{Collection: "books"}, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, store.Initialize(context.Background()))
	return store
}

// unit vectors along different axes so similarity ordering is predictable
func chromemRecord(bookID string, idx int, vec []float32) schema.VectorRecord {
	r := record(bookID, idx, 0)
	r.Embedding = vec
	return r
}

func ids(results []schema.QueryResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.ID)
	}
	sort.Strings(out)
	return out
}

func TestChromemStore_NotInitialized(t *testing.T) {
	store, err := NewChromemStore(config.ChromemConfig{Collection: "books"}, logger.Nop())
	require.NoError(t, err)

	err = store.Upsert(context.Background(), []schema.VectorRecord{record("b1", 0, 1)})
	assert.True(t, errors.Is(err, ragerr.ErrStoreWrite))
}

func TestChromemStore_InitializeIsIdempotent(t *testing.T) {
	store := newTestChromem(t)
	require.NoError(t, store.Initialize(context.Background()))
}

func TestChromemStore_UpsertOverwrites(t *testing.T) {
	store := newTestChromem(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []schema.VectorRecord{chromemRecord("b1", 0, []float32{1, 0, 0})}))
	replaced := chromemRecord("b1", 0, []float32{1, 0, 0})
	replaced.Metadata.Text = "rewritten"
	require.NoError(t, store.Upsert(ctx, []schema.VectorRecord{replaced}))

	results, err := store.Query(ctx, []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "rewritten", results[0].Text)
	assert.Equal(t, "b1", results[0].Metadata.BookID)
}

func TestChromemStore_QueryEmptyCollection(t *testing.T) {
	store := newTestChromem(t)
	results, err := store.Query(context.Background(), []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemStore_QueryScopes(t *testing.T) {
	store := newTestChromem(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, []schema.VectorRecord{
		chromemRecord("b1", 0, []float32{1, 0, 0}),
		chromemRecord("b1", 1, []float32{0.9, 0.1, 0}),
		chromemRecord("b2", 0, []float32{0, 1, 0}),
		chromemRecord("b3", 0, []float32{0, 0, 1}),
	}))

	t.Run("topK clamps to collection size", func(t *testing.T) {
		results, err := store.Query(ctx, []float32{1, 0, 0}, 10, nil)
		require.NoError(t, err)
		assert.Len(t, results, 4)
		assert.Equal(t, "b1-0", results[0].ID)
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
		}
	})

	t.Run("single book", func(t *testing.T) {
		results, err := store.Query(ctx, []float32{1, 0, 0}, 5, &schema.Filter{BookIDs: []string{"b2"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"b2-0"}, ids(results))
	})

	t.Run("several books", func(t *testing.T) {
		results, err := store.Query(ctx, []float32{1, 0, 0}, 5, &schema.Filter{BookIDs: []string{"b2", "b3"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"b2-0", "b3-0"}, ids(results))
	})

	t.Run("several books respects topK", func(t *testing.T) {
		results, err := store.Query(ctx, []float32{0, 1, 0}, 1, &schema.Filter{BookIDs: []string{"b1", "b2"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"b2-0"}, ids(results))
	})
}

func TestChromemStore_DeleteByBook(t *testing.T) {
	store := newTestChromem(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, []schema.VectorRecord{
		chromemRecord("b1", 0, []float32{1, 0, 0}),
		chromemRecord("b1", 1, []float32{0.9, 0.1, 0}),
		chromemRecord("b2", 0, []float32{0, 1, 0}),
	}))

	require.NoError(t, store.DeleteByBook(ctx, "b1"))

	results, err := store.Query(ctx, []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b2-0"}, ids(results))
}

func TestChromemStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewChromemStore(config.ChromemConfig{Collection: "books", Path: dir}, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, store.Initialize(ctx))
	require.NoError(t, store.Upsert(ctx, []schema.VectorRecord{chromemRecord("b1", 0, []float32{1, 0, 0})}))

	reopened, err := NewChromemStore(config.ChromemConfig{Collection: "books", Path: dir}, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, reopened.Initialize(ctx))
	results, err := reopened.Query(ctx, []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1-0"}, ids(results))
}
