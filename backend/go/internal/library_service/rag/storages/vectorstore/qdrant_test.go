package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/schema"
	"github.com/jakebgo/library-mvp/backend/go/pkg/logger"
	"github.com/jakebgo/library-mvp/backend/go/pkg/ragerr"
)

type fakeQdrant struct {
	exists   bool
	created  *qdrant.CreateCollection
	indexed  *qdrant.CreateFieldIndexCollection
	upserted *qdrant.UpsertPoints
	queried  *qdrant.QueryPoints
	deleted  *qdrant.DeletePoints
	points   []*qdrant.ScoredPoint
	err      error
}

func (f *fakeQdrant) CollectionExists(ctx context.Context, name string) (bool, error) {
	return f.exists, f.err
}

func (f *fakeQdrant) CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error {
	f.created = req
	return f.err
}

func (f *fakeQdrant) CreateFieldIndex(ctx context.Context, req *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error) {
	f.indexed = req
	return &qdrant.UpdateResult{}, f.err
}

func (f *fakeQdrant) Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	f.upserted = req
	return &qdrant.UpdateResult{}, f.err
}

func (f *fakeQdrant) Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.queried = req
	return f.points, f.err
}

func (f *fakeQdrant) Delete(ctx context.Context, req *qdrant.DeletePoints) (*qdrant.UpdateResult, error) {
	f.deleted = req
	return &qdrant.UpdateResult{}, f.err
}

func TestPointID_Deterministic(t *testing.T) {
	assert.Equal(t, PointID("b1-0"), PointID("b1-0"))
	assert.NotEqual(t, PointID("b1-0"), PointID("b1-1"))
	assert.Len(t, PointID("b1-0"), 36)
}

func TestQdrantStore_InitializeCreatesCollectionOnce(t *testing.T) {
	fake := &fakeQdrant{}
	store := NewQdrantStore(fake, "books", 3, logger.Nop())

	require.NoError(t, store.Initialize(context.Background()))
	require.NotNil(t, fake.created)
	assert.Equal(t, "books", fake.created.CollectionName)
	require.NotNil(t, fake.indexed)
	assert.Equal(t, schema.MetadataKeyBookID, fake.indexed.FieldName)

	fake2 := &fakeQdrant{exists: true}
	store = NewQdrantStore(fake2, "books", 3, logger.Nop())
	require.NoError(t, store.Initialize(context.Background()))
	assert.Nil(t, fake2.created)
}

func TestQdrantStore_InitializeFailure(t *testing.T) {
	store := NewQdrantStore(&fakeQdrant{err: errors.New("unavailable")}, "books", 3, logger.Nop())
	err := store.Initialize(context.Background())
	assert.True(t, errors.Is(err, ragerr.ErrStoreInit))
}

func TestQdrantStore_Upsert(t *testing.T) {
	fake := &fakeQdrant{}
	store := NewQdrantStore(fake, "books", 3, logger.Nop())

	require.NoError(t, store.Upsert(context.Background(), []schema.VectorRecord{record("b1", 2, 0.5)}))
	require.NotNil(t, fake.upserted)
	require.Len(t, fake.upserted.Points, 1)
	p := fake.upserted.Points[0]
	assert.Equal(t, PointID("b1-2"), p.GetId().GetUuid())
	assert.Equal(t, "b1-2", p.Payload[payloadKeyRecordID].GetStringValue())
	assert.Equal(t, "b1", p.Payload[schema.MetadataKeyBookID].GetStringValue())
	assert.Equal(t, int64(2), p.Payload[schema.MetadataKeyChunkIndex].GetIntegerValue())
	assert.True(t, fake.upserted.GetWait())
}

func TestQdrantStore_UpsertWrongDimension(t *testing.T) {
	fake := &fakeQdrant{}
	store := NewQdrantStore(fake, "books", 4, logger.Nop())

	err := store.Upsert(context.Background(), []schema.VectorRecord{record("b1", 0, 0.5)})
	assert.True(t, errors.Is(err, ragerr.ErrStoreWrite))
	assert.Nil(t, fake.upserted)
}

func TestQdrantStore_QueryMapsPayload(t *testing.T) {
	md := schema.Metadata{BookID: "b1", Title: "Dune", Author: "Herbert", ChunkIndex: 4, Text: "spice"}
	payload := qdrantPayload(md)
	payload[payloadKeyRecordID] = stringValue("b1-4")
	fake := &fakeQdrant{points: []*qdrant.ScoredPoint{{
		Id:      qdrant.NewIDUUID(PointID("b1-4")),
		Score:   0.77,
		Payload: payload,
	}}}
	store := NewQdrantStore(fake, "books", 3, logger.Nop())

	results, err := store.Query(context.Background(), []float32{1, 0, 0}, 5, &schema.Filter{BookIDs: []string{"b1", "b2"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b1-4", results[0].ID)
	assert.Equal(t, md, results[0].Metadata)
	assert.Equal(t, "spice", results[0].Text)
	assert.InDelta(t, 0.77, results[0].Score, 1e-6)

	assert.Equal(t, uint64(5), fake.queried.GetLimit())
	cond := fake.queried.Filter.Must[0].GetField()
	assert.Equal(t, schema.MetadataKeyBookID, cond.Key)
	assert.Equal(t, []string{"b1", "b2"}, cond.Match.GetKeywords().GetStrings())
}

func TestQdrantStore_QueryWithoutFilter(t *testing.T) {
	fake := &fakeQdrant{}
	store := NewQdrantStore(fake, "books", 3, logger.Nop())

	results, err := store.Query(context.Background(), []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Nil(t, fake.queried.Filter)
}

func TestQdrantStore_DeleteByBook(t *testing.T) {
	fake := &fakeQdrant{}
	store := NewQdrantStore(fake, "books", 3, logger.Nop())

	require.NoError(t, store.DeleteByBook(context.Background(), "b1"))
	cond := fake.deleted.Points.GetFilter().Must[0].GetField()
	assert.Equal(t, schema.MetadataKeyBookID, cond.Key)
	assert.Equal(t, "b1", cond.Match.GetKeyword())

	fake.err = errors.New("boom")
	err := store.DeleteByBook(context.Background(), "b1")
	assert.True(t, errors.Is(err, ragerr.ErrStoreDelete))
}
