package embeddings

import (
	"context"
	"slices"

	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/interfaces"
	"github.com/jakebgo/library-mvp/backend/go/pkg/cache"
)

// Cached remembers the vectors of recently embedded texts. It is meant for
// the question path, where the same question is often asked again.
// Vectors are copied in and out, so callers may modify what they get back.
type Cached struct {
	inner interfaces.EmbeddingModel
	lru   *cache.LRU[string, []float32]
}

// NewCached wraps inner with an LRU of the given size and TTL.
func NewCached(inner interfaces.EmbeddingModel, cfg cache.Config) (*Cached, error) {
	lru, err := cache.New[string, []float32](cfg)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, lru: lru}, nil
}

// Embed returns cached vectors where it can and embeds the rest in one call.
// Results stay index-aligned with texts.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if v, ok := c.lru.Get(t); ok {
			out[i] = slices.Clone(v)
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, v := range vecs {
		out[missingIdx[j]] = v
		c.lru.Put(missing[j], slices.Clone(v))
	}
	return out, nil
}

var _ interfaces.EmbeddingModel = (*Cached)(nil)
