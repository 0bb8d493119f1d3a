package vectorstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/jakebgo/library-mvp/backend/go/internal/config"
	"github.com/jakebgo/library-mvp/backend/go/internal/database/milvus"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/interfaces"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/schema"
	"github.com/jakebgo/library-mvp/backend/go/pkg/logger"
	"github.com/jakebgo/library-mvp/backend/go/pkg/ragerr"
)

// deleteBatchSize bounds the number of primary keys in one delete expression.
const deleteBatchSize = 1000

// MilvusStore implements VectorStore on a self-hosted Milvus collection.
// Record IDs are stored as the VarChar primary key, metadata as scalar fields.
type MilvusStore struct {
	log    *logger.Logger
	client client.Client
	schema config.SchemaConfig
	dim    int
}

// NewMilvusStore creates a new MilvusStore over an already connected client.
func NewMilvusStore(c client.Client, schemaCfg config.SchemaConfig, dim int, log *logger.Logger) (*MilvusStore, error) {
	if c == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("milvus store needs a positive vector dimension, got %d", dim)
	}
	return &MilvusStore{log: log, client: c, schema: schemaCfg, dim: dim}, nil
}

// Initialize creates the collection and its index if absent, then loads it.
func (s *MilvusStore) Initialize(ctx context.Context) error {
	if err := milvus.EnsureCollection(ctx, s.client, s.schema, s.dim); err != nil {
		return ragerr.New(ragerr.ErrStoreInit, "milvus initialize", err)
	}
	return nil
}

// HealthCheck reports whether the Milvus server answers.
func (s *MilvusStore) HealthCheck(ctx context.Context) error {
	return milvus.HealthCheck(ctx, s.client)
}

// Upsert writes all records in one call. Existing primary keys are overwritten.
func (s *MilvusStore) Upsert(ctx context.Context, records []schema.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	n := len(records)
	ids := make([]string, n)
	embeddings := make([][]float32, n)
	bookIDs := make([]string, n)
	titles := make([]string, n)
	authors := make([]string, n)
	chunkIndexes := make([]int64, n)
	texts := make([]string, n)
	for i, r := range records {
		if len(r.Embedding) != s.dim {
			return ragerr.New(ragerr.ErrStoreWrite, "milvus upsert",
				fmt.Errorf("record %s has dimension %d, want %d", r.ID, len(r.Embedding), s.dim))
		}
		ids[i] = r.ID
		embeddings[i] = r.Embedding
		bookIDs[i] = r.Metadata.BookID
		titles[i] = r.Metadata.Title
		authors[i] = r.Metadata.Author
		chunkIndexes[i] = int64(r.Metadata.ChunkIndex)
		texts[i] = r.Metadata.Text
	}

	s.log.Debug(fmt.Sprintf("Upserting %d records into Milvus collection: %s", n, s.schema.CollectionName))
	_, err := s.client.Upsert(ctx, s.schema.CollectionName, "",
		entity.NewColumnVarChar(milvus.FieldID, ids),
		entity.NewColumnFloatVector(milvus.FieldEmbedding, s.dim, embeddings),
		entity.NewColumnVarChar(milvus.FieldBookID, bookIDs),
		entity.NewColumnVarChar(milvus.FieldTitle, titles),
		entity.NewColumnVarChar(milvus.FieldAuthor, authors),
		entity.NewColumnInt64(milvus.FieldChunkIndex, chunkIndexes),
		entity.NewColumnVarChar(milvus.FieldText, texts),
	)
	if err != nil {
		return ragerr.New(ragerr.ErrStoreWrite, "milvus upsert", err)
	}
	return nil
}

// Query performs a cosine similarity search, optionally restricted to a set of books.
func (s *MilvusStore) Query(ctx context.Context, vector []float32, topK int, filter *schema.Filter) ([]schema.QueryResult, error) {
	sp, err := milvus.SearchParam(s.schema.Index)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrStoreQuery, "milvus query", err)
	}

	expr := ""
	if !filter.Empty() {
		expr = fmt.Sprintf("%s in %s", milvus.FieldBookID, stringList(filter.BookIDs))
	}
	outputFields := []string{milvus.FieldBookID, milvus.FieldTitle, milvus.FieldAuthor, milvus.FieldChunkIndex, milvus.FieldText}

	searchResults, err := s.client.Search(
		ctx, s.schema.CollectionName, []string{}, expr, outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		milvus.FieldEmbedding, entity.COSINE, topK, sp,
		client.WithSearchQueryConsistencyLevel(entity.ClStrong),
	)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrStoreQuery, "milvus query", err)
	}

	var results []schema.QueryResult
	for _, res := range searchResults {
		if res.Err != nil {
			return nil, ragerr.New(ragerr.ErrStoreQuery, "milvus query", res.Err)
		}
		ids := varCharData(res.IDs)
		bookIDs := varCharData(findColumn(res.Fields, milvus.FieldBookID))
		titles := varCharData(findColumn(res.Fields, milvus.FieldTitle))
		authors := varCharData(findColumn(res.Fields, milvus.FieldAuthor))
		texts := varCharData(findColumn(res.Fields, milvus.FieldText))
		var chunkIndexes []int64
		if col, ok := findColumn(res.Fields, milvus.FieldChunkIndex).(*entity.ColumnInt64); ok {
			chunkIndexes = col.Data()
		}

		for i := 0; i < res.ResultCount; i++ {
			md := schema.Metadata{
				BookID: at(bookIDs, i),
				Title:  at(titles, i),
				Author: at(authors, i),
				Text:   at(texts, i),
			}
			if i < len(chunkIndexes) {
				md.ChunkIndex = int(chunkIndexes[i])
			}
			r := schema.QueryResult{ID: at(ids, i), Text: md.Text, Metadata: md}
			if i < len(res.Scores) {
				r.Score = res.Scores[i]
			}
			results = append(results, r)
		}
	}
	return results, nil
}

// DeleteByBook looks up the primary keys of every record of the book and deletes them by ID.
func (s *MilvusStore) DeleteByBook(ctx context.Context, bookID string) error {
	rs, err := s.client.Query(ctx, s.schema.CollectionName, []string{},
		fmt.Sprintf("%s == %s", milvus.FieldBookID, strconv.Quote(bookID)),
		[]string{milvus.FieldID},
		client.WithSearchQueryConsistencyLevel(entity.ClStrong),
	)
	if err != nil {
		return ragerr.New(ragerr.ErrStoreDelete, "milvus delete", fmt.Errorf("list ids: %w", err))
	}

	ids := varCharData(findColumn(rs, milvus.FieldID))
	for start := 0; start < len(ids); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(ids))
		expr := fmt.Sprintf("%s in %s", milvus.FieldID, stringList(ids[start:end]))
		if err := s.client.Delete(ctx, s.schema.CollectionName, "", expr); err != nil {
			return ragerr.New(ragerr.ErrStoreDelete, "milvus delete", err)
		}
	}
	s.log.Debug(fmt.Sprintf("Deleted %d Milvus records for book %s", len(ids), bookID))
	return nil
}

// stringList renders values as a Milvus expression list literal.
func stringList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func findColumn(cols []entity.Column, name string) entity.Column {
	for _, c := range cols {
		if c != nil && c.Name() == name {
			return c
		}
	}
	return nil
}

func varCharData(col entity.Column) []string {
	if c, ok := col.(*entity.ColumnVarChar); ok {
		return c.Data()
	}
	return nil
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

// compile-time check to ensure MilvusStore implements the VectorStore interface
var _ interfaces.VectorStore = (*MilvusStore)(nil)
