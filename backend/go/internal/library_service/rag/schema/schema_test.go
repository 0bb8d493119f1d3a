package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordID(t *testing.T) {
	assert.Equal(t, "b1-0", RecordID("b1", 0))
	assert.Equal(t, "9f1c-12", RecordID("9f1c", 12))
	assert.Equal(t, "b1-", RecordIDPrefix("b1"))
}

func TestBelongsTo(t *testing.T) {
	assert.True(t, BelongsTo("b1-0", "b1"))
	assert.True(t, BelongsTo("b1-42", "b1"))
	// b1 is a prefix of b10 but b10's records are not b1's.
	assert.False(t, BelongsTo("b10-3", "b1"))
	assert.False(t, BelongsTo("b1-", "b1"))
	assert.False(t, BelongsTo("b2-1", "b1"))
}

func TestMetadataFromMap(t *testing.T) {
	m := MetadataFromMap(map[string]interface{}{
		"bookId":     "b1",
		"title":      "Dune",
		"author":     "Frank Herbert",
		"chunkIndex": 3.0,
		"text":       "Fear is the mind-killer.",
	})
	assert.Equal(t, Metadata{BookID: "b1", Title: "Dune", Author: "Frank Herbert", ChunkIndex: 3, Text: "Fear is the mind-killer."}, m)
	assert.True(t, m.Valid())
}

func TestMetadataFromMapTolerantOfBadFields(t *testing.T) {
	m := MetadataFromMap(map[string]interface{}{"bookId": 7, "title": "T"})
	assert.Equal(t, "", m.BookID)
	assert.False(t, m.Valid())

	assert.False(t, MetadataFromMap(nil).Valid())
}

func TestMetadataStringsRoundTrip(t *testing.T) {
	m := Metadata{BookID: "b1", Title: "Dune", Author: "Frank Herbert", ChunkIndex: 2, Text: "x."}
	assert.Equal(t, m, MetadataFromStrings(m.Strings()))
	assert.Equal(t, m, MetadataFromMap(m.Map()))
}

func TestFilterEmpty(t *testing.T) {
	var f *Filter
	assert.True(t, f.Empty())
	assert.True(t, (&Filter{}).Empty())
	assert.False(t, (&Filter{BookIDs: []string{"b1"}}).Empty())
}
