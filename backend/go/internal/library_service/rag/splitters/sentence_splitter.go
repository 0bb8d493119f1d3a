package splitters

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jakebgo/library-mvp/backend/go/internal/library_service/rag/interfaces"
)

// DefaultMaxChunkSize is the chunk size used when none is configured.
const DefaultMaxChunkSize = 1000

// sentencePattern matches a run of non-terminators followed by one or more of .!?
// Text after the last terminator is not part of any sentence.
var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)

// SentenceSplitter implements the Splitter interface by greedily packing whole
// sentences into chunks of at most MaxChunkSize characters.
type SentenceSplitter struct {
	MaxChunkSize int
}

// NewSentenceSplitter creates a new SentenceSplitter.
// A non-positive maxChunkSize falls back to DefaultMaxChunkSize.
func NewSentenceSplitter(maxChunkSize int) *SentenceSplitter {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	return &SentenceSplitter{MaxChunkSize: maxChunkSize}
}

// Split returns the chunks of text in order. Text without any sentence
// terminator yields no chunks. A single sentence longer than MaxChunkSize is
// kept whole and becomes an oversized chunk.
func (s *SentenceSplitter) Split(text string) []string {
	return Chunk(text, s.MaxChunkSize)
}

// Chunk is the functional form of SentenceSplitter.Split.
func Chunk(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}

	chunks := []string{}
	var buf strings.Builder
	// n is the length of buf in characters.
	n := 0
	for _, raw := range sentencePattern.FindAllString(text, -1) {
		sentence := strings.TrimSpace(raw)
		if sentence == "" {
			continue
		}
		size := utf8.RuneCountInString(sentence)
		if n > 0 && n+1+size > maxChunkSize {
			chunks = append(chunks, buf.String())
			buf.Reset()
			n = 0
		}
		if n > 0 {
			buf.WriteByte(' ')
			n++
		}
		buf.WriteString(sentence)
		n += size
	}
	if buf.Len() > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}

// compile-time check to ensure SentenceSplitter implements the Splitter interface
var _ interfaces.Splitter = (*SentenceSplitter)(nil)
