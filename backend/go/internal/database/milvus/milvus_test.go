package milvus

import (
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakebgo/library-mvp/backend/go/internal/config"
)

func TestBookSchema(t *testing.T) {
	s := BookSchema(config.SchemaConfig{CollectionName: "book_summaries", TextMaxLength: 4096}, 384)
	assert.Equal(t, "book_summaries", s.CollectionName)

	fields := map[string]*entity.Field{}
	for _, f := range s.Fields {
		fields[f.Name] = f
	}
	require.Len(t, fields, 7)
	assert.True(t, fields[FieldID].PrimaryKey)
	assert.Equal(t, entity.FieldTypeFloatVector, fields[FieldEmbedding].DataType)
	assert.Equal(t, "384", fields[FieldEmbedding].TypeParams[entity.TypeParamDim])
	assert.Equal(t, "4096", fields[FieldText].TypeParams[entity.TypeParamMaxLength])
	assert.Equal(t, entity.FieldTypeInt64, fields[FieldChunkIndex].DataType)
}

func TestBuildIndex(t *testing.T) {
	idx, err := BuildIndex(config.IndexConfig{IndexType: "HNSW", MetricType: "COSINE", Params: map[string]interface{}{"M": 16}})
	require.NoError(t, err)
	assert.Equal(t, entity.HNSW, idx.IndexType())

	idx, err = BuildIndex(config.IndexConfig{MetricType: "COSINE"})
	require.NoError(t, err)
	assert.Equal(t, entity.AUTOINDEX, idx.IndexType())

	_, err = BuildIndex(config.IndexConfig{IndexType: "DISKANN_PLUS"})
	assert.Error(t, err)
}

func TestSearchParam(t *testing.T) {
	sp, err := SearchParam(config.IndexConfig{IndexType: "HNSW", Params: map[string]interface{}{"ef": 128}})
	require.NoError(t, err)
	assert.NotNil(t, sp)

	_, err = SearchParam(config.IndexConfig{IndexType: "nope"})
	assert.Error(t, err)
}

func TestIntParam(t *testing.T) {
	p := map[string]interface{}{"a": 3, "b": int64(4), "c": 5.0, "d": "x"}
	assert.Equal(t, 3, intParam(p, "a", 0))
	assert.Equal(t, 4, intParam(p, "b", 0))
	assert.Equal(t, 5, intParam(p, "c", 0))
	assert.Equal(t, 9, intParam(p, "d", 9))
	assert.Equal(t, 7, intParam(nil, "z", 7))
}
