package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jakebgo/library-mvp/backend/go/pkg/ragerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIEmbedBatchReordersByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]interface{}{
				{"object": "embedding", "index": 1, "embedding": []float32{2, 2}},
				{"object": "embedding", "index": 0, "embedding": []float32{1, 1}},
			},
		})
	}))
	defer server.Close()

	m, err := NewOpenAIModel("key", "text-embedding-3-small", server.URL, server.Client())
	require.NoError(t, err)

	vecs, err := m.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}, {2, 2}}, vecs)
}

func TestOpenAIEmbedErrorCarriesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	m, err := NewOpenAIModel("key", "text-embedding-3-small", server.URL, server.Client())
	require.NoError(t, err)

	_, err = m.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ragerr.ErrEmbedding)
	assert.Equal(t, http.StatusUnauthorized, ragerr.StatusCode(err))
}
