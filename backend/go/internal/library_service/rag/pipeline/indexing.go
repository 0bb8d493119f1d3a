package pipeline

import (
	"context"
	"fmt"

	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/interfaces"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/schema"
	"github.com/jakebgo/library-mvp/backend/go/internal/models"
	"github.com/jakebgo/library-mvp/backend/go/pkg/logger"
)

// IndexingPipeline orchestrates splitting, embedding and storing a book's text.
type IndexingPipeline struct {
	splitter    interfaces.Splitter
	embedder    interfaces.EmbeddingModel
	vectorStore interfaces.VectorStore
	log         *logger.Logger
}

// NewIndexingPipeline creates a new IndexingPipeline.
func NewIndexingPipeline(
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	vectorStore interfaces.VectorStore,
	log *logger.Logger,
) *IndexingPipeline {
	return &IndexingPipeline{
		splitter:    splitter,
		embedder:    embedder,
		vectorStore: vectorStore,
		log:         log,
	}
}

// Run chunks text, embeds every chunk and upserts one record per chunk.
// It returns the number of records written. Text without any sentence
// produces no records and no error.
func (p *IndexingPipeline) Run(ctx context.Context, book *models.Book, text string) (int, error) {
	// 1. Split into chunks
	chunks := p.splitter.Split(text)
	if len(chunks) == 0 {
		p.log.Warn(fmt.Sprintf("Book %s produced no chunks, nothing to index", book.ID))
		return 0, nil
	}
	p.log.Info(fmt.Sprintf("Processing %d chunks for book: %s", len(chunks), book.Title))

	// 2. Embed the chunks
	embeddings, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		p.log.WithErr("embed_chunks", err).Error("Failed to embed chunks")
		return 0, err
	}

	// 3. Build the vector records
	records := make([]schema.VectorRecord, len(chunks))
	for i, text := range chunks {
		records[i] = schema.VectorRecord{
			ID:        schema.RecordID(book.ID, i),
			Embedding: embeddings[i],
			Metadata: schema.Metadata{
				BookID:     book.ID,
				Title:      book.Title,
				Author:     book.Author,
				ChunkIndex: i,
				Text:       text,
			},
		}
	}

	// 4. Store them
	if err := p.vectorStore.Upsert(ctx, records); err != nil {
		p.log.WithErr("upsert_vectors", err).Error("Failed to add chunks to vector store")
		return 0, err
	}

	p.log.Info(fmt.Sprintf("Successfully processed all chunks for book: %s", book.Title))
	return len(records), nil
}
