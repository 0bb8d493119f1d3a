package ragerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsKindAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("upload: %w", New(ErrStoreWrite, "milvus upsert", cause))

	assert.ErrorIs(t, err, ErrStoreWrite)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrStoreQuery)
	assert.Contains(t, err.Error(), "milvus upsert: vector store write failure")
}

func TestFromStatus(t *testing.T) {
	err := FromStatus(ErrCompletion, "chat completion", 502, []byte(`{"error":"bad gateway"}`))

	assert.ErrorIs(t, err, ErrCompletion)
	assert.Equal(t, 502, StatusCode(err))
	assert.Equal(t, 502, StatusCode(fmt.Errorf("wrapped: %w", err)))
	assert.Contains(t, err.Error(), "(status 502)")
	assert.Contains(t, err.Error(), "bad gateway")
}

func TestFromStatusTruncatesBody(t *testing.T) {
	err := FromStatus(ErrEmbedding, "feature extraction", 500, []byte(strings.Repeat("x", 5000)))
	assert.Len(t, err.Body, maxBody+3)
}

func TestEnsure(t *testing.T) {
	assert.NoError(t, Ensure(ErrEmbedding, "op", nil))

	already := New(ErrEmbedding, "hf", nil)
	assert.Same(t, already, Ensure(ErrEmbedding, "adapter", already))

	plain := errors.New("boom")
	wrapped := Ensure(ErrEmbedding, "adapter", plain)
	assert.ErrorIs(t, wrapped, ErrEmbedding)
	assert.ErrorIs(t, wrapped, plain)
	assert.Equal(t, 0, StatusCode(plain))
}
