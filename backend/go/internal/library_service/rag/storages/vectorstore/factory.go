package vectorstore

import (
	"context"
	"fmt"

	"github.com/jakebgo/library-mvp/backend/go/internal/config"
	"github.com/jakebgo/library-mvp/backend/go/internal/database/milvus"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/interfaces"
	"github.com/jakebgo/library-mvp/backend/go/pkg/httpclient"
	"github.com/jakebgo/library-mvp/backend/go/pkg/logger"
)

// New builds the vector store selected by cfg.Library.VectorStore. The
// returned close function releases any client connection the store holds.
func New(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (interfaces.VectorStore, func() error, error) {
	dim := cfg.Embedding.Dimension
	noop := func() error { return nil }

	switch cfg.Library.VectorStore {
	case "milvus":
		c, err := milvus.Connect(ctx, &cfg.Databases.Milvus)
		if err != nil {
			return nil, nil, err
		}
		store, err := NewMilvusStore(c, cfg.Databases.Milvus.Schema, dim, log)
		if err != nil {
			_ = c.Close()
			return nil, nil, err
		}
		return store, c.Close, nil

	case "pinecone":
		hc := httpclient.NewClient("pinecone", cfg.Middleware.CircuitBreaker)
		store, err := NewPineconeStore(cfg.Databases.Pinecone, hc, log)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	case "qdrant":
		c, err := NewQdrantClient(cfg.Databases.Qdrant)
		if err != nil {
			return nil, nil, err
		}
		return NewQdrantStore(c, cfg.Databases.Qdrant.Collection, dim, log), c.Close, nil

	case "chromem":
		store, err := NewChromemStore(cfg.Databases.Chromem, log)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	default:
		return nil, nil, fmt.Errorf("unsupported vector store: %s", cfg.Library.VectorStore)
	}
}
