package embeddings

import (
	"context"
	"fmt"

	"github.com/jakebgo/library-mvp/backend/go/internal/embedding"
	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/interfaces"
	"github.com/jakebgo/library-mvp/backend/go/pkg/ragerr"
)

// Adapter adapts any provider from the embedding package to the generic
// EmbeddingModel interface. When Dimension is set every returned vector must
// have exactly that many components.
type Adapter struct {
	client    embedding.Embedding
	dimension int
}

// NewAdapter creates a new adapter. A dimension of 0 disables the length check.
func NewAdapter(client embedding.Embedding, dimension int) *Adapter {
	return &Adapter{client: client, dimension: dimension}
}

// Embed calls the underlying client's EmbedBatch method to satisfy the EmbeddingModel interface.
func (a *Adapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vecs, err := a.client.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, ragerr.Ensure(ragerr.ErrEmbedding, "embed", err)
	}
	if len(vecs) != len(texts) {
		return nil, ragerr.New(ragerr.ErrEmbedding, "embed",
			fmt.Errorf("got %d vectors for %d texts", len(vecs), len(texts)))
	}
	if a.dimension > 0 {
		for i, v := range vecs {
			if len(v) != a.dimension {
				return nil, ragerr.New(ragerr.ErrEmbedding, "embed",
					fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), a.dimension))
			}
		}
	}
	return vecs, nil
}

// compile-time check to ensure Adapter implements the EmbeddingModel interface
var _ interfaces.EmbeddingModel = (*Adapter)(nil)
