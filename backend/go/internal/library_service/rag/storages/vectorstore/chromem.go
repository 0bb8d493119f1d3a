package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/philippgille/chromem-go"

	"github.com/jakebgo/library-mvp/backend/go/internal/config"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/interfaces"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/schema"
	"github.com/jakebgo/library-mvp/backend/go/pkg/logger"
	"github.com/jakebgo/library-mvp/backend/go/pkg/ragerr"
)

// errPrecomputed is returned if chromem ever asks the collection to embed
// text itself. Records always arrive with their embeddings.
var errPrecomputed = errors.New("chromem: embeddings must be precomputed")

// ChromemStore implements VectorStore on an embedded chromem-go database.
// With an empty path the data lives only in memory.
type ChromemStore struct {
	log        *logger.Logger
	db         *chromem.DB
	name       string
	collection *chromem.Collection
}

// NewChromemStore opens the database at cfg.Path, or an in-memory one.
func NewChromemStore(cfg config.ChromemConfig, log *logger.Logger) (*ChromemStore, error) {
	if cfg.Path == "" {
		return &ChromemStore{log: log, db: chromem.NewDB(), name: cfg.Collection}, nil
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", cfg.Path, err)
	}
	db, err := chromem.NewPersistentDB(cfg.Path, false)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}
	return &ChromemStore{log: log, db: db, name: cfg.Collection}, nil
}

func precomputedOnly(context.Context, string) ([]float32, error) {
	return nil, errPrecomputed
}

// Initialize gets or creates the collection.
func (s *ChromemStore) Initialize(ctx context.Context) error {
	c, err := s.db.GetOrCreateCollection(s.name, nil, precomputedOnly)
	if err != nil {
		return ragerr.New(ragerr.ErrStoreInit, "chromem initialize", err)
	}
	s.collection = c
	return nil
}

func (s *ChromemStore) ready(kind error, op string) (*chromem.Collection, error) {
	if s.collection == nil {
		return nil, ragerr.New(kind, op, errors.New("store is not initialized"))
	}
	return s.collection, nil
}

// Upsert adds the records. Documents are keyed by ID, so an existing record
// with the same ID is replaced.
func (s *ChromemStore) Upsert(ctx context.Context, records []schema.VectorRecord) error {
	c, err := s.ready(ragerr.ErrStoreWrite, "chromem upsert")
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	docs := make([]chromem.Document, 0, len(records))
	for _, r := range records {
		docs = append(docs, chromem.Document{
			ID:        r.ID,
			Content:   r.Metadata.Text,
			Metadata:  r.Metadata.Strings(),
			Embedding: r.Embedding,
		})
	}
	if err := c.AddDocuments(ctx, docs, 1); err != nil {
		return ragerr.New(ragerr.ErrStoreWrite, "chromem upsert", err)
	}
	return nil
}

// Query returns the topK nearest documents. chromem's where clause only
// matches a single value, so filters over several books are applied after
// ranking the whole collection.
func (s *ChromemStore) Query(ctx context.Context, vector []float32, topK int, filter *schema.Filter) ([]schema.QueryResult, error) {
	c, err := s.ready(ragerr.ErrStoreQuery, "chromem query")
	if err != nil {
		return nil, err
	}

	// chromem requires nResults <= document count
	count := c.Count()
	if count == 0 || topK <= 0 {
		return []schema.QueryResult{}, nil
	}

	var where map[string]string
	n := min(topK, count)
	multi := !filter.Empty() && len(filter.BookIDs) > 1
	switch {
	case multi:
		n = count
	case !filter.Empty():
		where = map[string]string{schema.MetadataKeyBookID: filter.BookIDs[0]}
	}

	docs, err := c.QueryEmbedding(ctx, vector, n, where, nil)
	if err != nil {
		return nil, ragerr.New(ragerr.ErrStoreQuery, "chromem query", err)
	}

	var allowed map[string]bool
	if multi {
		allowed = make(map[string]bool, len(filter.BookIDs))
		for _, id := range filter.BookIDs {
			allowed[id] = true
		}
	}

	results := make([]schema.QueryResult, 0, min(topK, len(docs)))
	for _, d := range docs {
		md := schema.MetadataFromStrings(d.Metadata)
		if allowed != nil && !allowed[md.BookID] {
			continue
		}
		results = append(results, schema.QueryResult{ID: d.ID, Text: d.Content, Metadata: md, Score: d.Similarity})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteByBook removes every document whose bookId metadata equals bookID.
func (s *ChromemStore) DeleteByBook(ctx context.Context, bookID string) error {
	c, err := s.ready(ragerr.ErrStoreDelete, "chromem delete")
	if err != nil {
		return err
	}
	if err := c.Delete(ctx, map[string]string{schema.MetadataKeyBookID: bookID}, nil); err != nil {
		return ragerr.New(ragerr.ErrStoreDelete, "chromem delete", err)
	}
	return nil
}

var _ interfaces.VectorStore = (*ChromemStore)(nil)
