package schema

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Metadata keys stored alongside every vector record. The camelCase names
	// match what the managed index already holds for existing uploads.
	MetadataKeyBookID     = "bookId"
	MetadataKeyTitle      = "title"
	MetadataKeyAuthor     = "author"
	MetadataKeyChunkIndex = "chunkIndex"
	MetadataKeyText       = "text"
)

// Chunk is a sentence-aligned slice of a book's raw text.
type Chunk struct {
	BookID string
	Index  int
	Text   string
}

// Metadata is the payload stored with each vector record.
type Metadata struct {
	BookID     string `json:"bookId"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	ChunkIndex int    `json:"chunkIndex"`
	Text       string `json:"text"`
}

// Valid reports whether the fields needed to attribute a match to a book are present.
// Records failing this check are orphans or test data and are skipped at query time.
func (m Metadata) Valid() bool {
	return m.BookID != "" && m.Title != "" && m.Author != ""
}

// Map returns the metadata as a generic JSON-style map.
func (m Metadata) Map() map[string]interface{} {
	return map[string]interface{}{
		MetadataKeyBookID:     m.BookID,
		MetadataKeyTitle:      m.Title,
		MetadataKeyAuthor:     m.Author,
		MetadataKeyChunkIndex: m.ChunkIndex,
		MetadataKeyText:       m.Text,
	}
}

// Strings returns the metadata as a flat string map, for stores that only keep strings.
func (m Metadata) Strings() map[string]string {
	return map[string]string{
		MetadataKeyBookID:     m.BookID,
		MetadataKeyTitle:      m.Title,
		MetadataKeyAuthor:     m.Author,
		MetadataKeyChunkIndex: strconv.Itoa(m.ChunkIndex),
		MetadataKeyText:       m.Text,
	}
}

// MetadataFromMap decodes metadata returned by a store. Missing or mistyped
// fields are left at their zero value rather than failing the whole result.
func MetadataFromMap(raw map[string]interface{}) Metadata {
	var m Metadata
	if raw == nil {
		return m
	}
	m.BookID, _ = raw[MetadataKeyBookID].(string)
	m.Title, _ = raw[MetadataKeyTitle].(string)
	m.Author, _ = raw[MetadataKeyAuthor].(string)
	m.Text, _ = raw[MetadataKeyText].(string)
	switch v := raw[MetadataKeyChunkIndex].(type) {
	case float64:
		m.ChunkIndex = int(v)
	case float32:
		m.ChunkIndex = int(v)
	case int:
		m.ChunkIndex = v
	case int64:
		m.ChunkIndex = int(v)
	case string:
		m.ChunkIndex, _ = strconv.Atoi(v)
	}
	return m
}

// MetadataFromStrings is the inverse of Metadata.Strings.
func MetadataFromStrings(raw map[string]string) Metadata {
	idx, _ := strconv.Atoi(raw[MetadataKeyChunkIndex])
	return Metadata{
		BookID:     raw[MetadataKeyBookID],
		Title:      raw[MetadataKeyTitle],
		Author:     raw[MetadataKeyAuthor],
		ChunkIndex: idx,
		Text:       raw[MetadataKeyText],
	}
}

// VectorRecord is one embedded chunk as written to a vector store.
type VectorRecord struct {
	ID        string
	Embedding []float32
	Metadata  Metadata
}

// QueryResult is a single nearest-neighbour match. Higher Score is more similar.
type QueryResult struct {
	ID       string
	Text     string
	Metadata Metadata
	Score    float32
}

// Filter narrows a query to a set of books. An empty filter matches everything.
type Filter struct {
	BookIDs []string
}

// Empty reports whether f places no restriction on the query.
func (f *Filter) Empty() bool {
	return f == nil || len(f.BookIDs) == 0
}

// RecordID derives the vector record ID for a chunk. The format is part of
// the stored data: re-uploading a chunk overwrites the same record.
func RecordID(bookID string, chunkIndex int) string {
	return fmt.Sprintf("%s-%d", bookID, chunkIndex)
}

// RecordIDPrefix is the common prefix of every record ID belonging to bookID.
func RecordIDPrefix(bookID string) string {
	return bookID + "-"
}

// BelongsTo reports whether recordID was derived from bookID.
func BelongsTo(recordID, bookID string) bool {
	rest, ok := strings.CutPrefix(recordID, RecordIDPrefix(bookID))
	if !ok || rest == "" {
		return false
	}
	_, err := strconv.Atoi(rest)
	return err == nil
}
