package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/interfaces"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/schema"
	"github.com/jakebgo/library-mvp/backend/go/pkg/logger"
)

// DefaultTopK is the number of nearest chunks fetched per question.
const DefaultTopK = 5

// Scope decides which books a question may draw context from.
type Scope struct {
	// AllBooks asks across the whole library; only ValidBookIDs are kept.
	AllBooks bool
	// BookID restricts retrieval to one book when AllBooks is false.
	BookID string
	// ValidBookIDs are the books that currently exist. Matches for any other
	// bookId come from deleted books and are dropped.
	ValidBookIDs map[string]bool
}

func (s Scope) allows(bookID string) bool {
	if s.AllBooks {
		return s.ValidBookIDs[bookID]
	}
	return s.BookID != "" && bookID == s.BookID
}

func (s Scope) filter() *schema.Filter {
	if !s.AllBooks {
		return &schema.Filter{BookIDs: []string{s.BookID}}
	}
	ids := make([]string, 0, len(s.ValidBookIDs))
	for id, ok := range s.ValidBookIDs {
		if ok {
			ids = append(ids, id)
		}
	}
	return &schema.Filter{BookIDs: ids}
}

// RetrievalPipeline turns a question into the context text handed to the LLM.
type RetrievalPipeline struct {
	embedder    interfaces.EmbeddingModel
	vectorStore interfaces.VectorStore
	topK        int
	log         *logger.Logger
}

// NewRetrievalPipeline creates a new RetrievalPipeline. A non-positive topK
// falls back to DefaultTopK.
func NewRetrievalPipeline(
	embedder interfaces.EmbeddingModel,
	vectorStore interfaces.VectorStore,
	topK int,
	log *logger.Logger,
) *RetrievalPipeline {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &RetrievalPipeline{
		embedder:    embedder,
		vectorStore: vectorStore,
		topK:        topK,
		log:         log,
	}
}

// Retrieve embeds query, fetches the nearest chunks and joins those inside
// scope with blank lines. In library scope each chunk is prefixed with its
// book title. No usable match yields "".
func (p *RetrievalPipeline) Retrieve(ctx context.Context, query string, scope Scope) (string, error) {
	if !scope.AllBooks && scope.BookID == "" {
		return "", nil
	}

	// 1. Embed the query
	vectors, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		p.log.WithErr("embed_query", err).Error("Failed to embed query")
		return "", err
	}

	// 2. Query the vector store
	results, err := p.vectorStore.Query(ctx, vectors[0], p.topK, scope.filter())
	if err != nil {
		p.log.WithErr("query_vectors", err).Error("Failed to query vector store")
		return "", err
	}
	if len(results) == 0 {
		p.log.Info("No documents found in vector store for the given query.")
		return "", nil
	}

	// 3. Drop orphans and anything outside the scope
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if !r.Metadata.Valid() {
			p.log.WithPayload(map[string]interface{}{"record_id": r.ID}).
				Warn("Skipping orphaned vector record without book metadata")
			continue
		}
		if !scope.allows(r.Metadata.BookID) {
			continue
		}
		if scope.AllBooks {
			parts = append(parts, fmt.Sprintf("From \"%s\": %s", r.Metadata.Title, r.Text))
		} else {
			parts = append(parts, r.Text)
		}
	}

	p.log.Debug(fmt.Sprintf("Kept %d of %d retrieved chunks", len(parts), len(results)))
	return strings.Join(parts, "\n\n"), nil
}
