package interfaces

import (
	"context"

	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/schema"
)

// Splitter splits a book's raw text into ordered, sentence-aligned chunks.
type Splitter interface {
	Split(text string) []string
}

// EmbeddingModel converts texts into vectors, index-aligned with the input.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the contract shared by every vector index backend.
type VectorStore interface {
	// Initialize makes sure the target collection or index is usable. It is
	// safe to call more than once.
	Initialize(ctx context.Context) error
	// Upsert writes records, overwriting any existing record with the same ID.
	Upsert(ctx context.Context, records []schema.VectorRecord) error
	// Query returns up to topK matches ordered by descending similarity.
	// A nil or empty filter matches every record.
	Query(ctx context.Context, vector []float32, topK int, filter *schema.Filter) ([]schema.QueryResult, error)
	// DeleteByBook removes every record whose metadata bookId equals bookID.
	DeleteByBook(ctx context.Context, bookID string) error
}

// LLM answers a question given a system prompt and retrieved context.
type LLM interface {
	Complete(ctx context.Context, systemPrompt, question, contextText string) (string, error)
}
