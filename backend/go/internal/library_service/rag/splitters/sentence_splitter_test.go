package splitters

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkExamples(t *testing.T) {
	assert.Equal(t, []string{"Hello world. This is great!"}, Chunk("Hello world. This is great!", 1000))
	assert.Equal(t, []string{}, Chunk("", 1000))
}

func TestChunkWithoutTerminatorYieldsNothing(t *testing.T) {
	assert.Empty(t, Chunk("no punctuation at all", 1000))
	// Trailing text after the last terminator is dropped.
	assert.Equal(t, []string{"One."}, Chunk("One. and a tail", 1000))
}

func TestChunkKeepsRepeatedTerminators(t *testing.T) {
	assert.Equal(t, []string{"Really?! Yes... Fine."}, Chunk("Really?! Yes... Fine.", 1000))
}

func TestChunkPacksGreedily(t *testing.T) {
	text := "Aaaa. Bbbb. Cccc. Dddd."
	// Each sentence is 5 characters; two fit in 11 (5 + 1 + 5), three do not.
	assert.Equal(t, []string{"Aaaa. Bbbb.", "Cccc. Dddd."}, Chunk(text, 11))
	assert.Equal(t, []string{"Aaaa.", "Bbbb.", "Cccc.", "Dddd."}, Chunk(text, 10))
}

func TestChunkMeasuresCharactersNotBytes(t *testing.T) {
	first := strings.Repeat("é", 500) + "."
	second := strings.Repeat("é", 400) + "."
	// 501 + 1 + 401 characters fit in 1000 although the text is over 1800 bytes.
	chunks := Chunk(first+" "+second, 1000)
	require.Len(t, chunks, 1)
	assert.Equal(t, first+" "+second, chunks[0])

	assert.Equal(t, []string{"Ünïcödé.", "Wörld!"}, Chunk("Ünïcödé. Wörld!", 14))
	assert.Equal(t, []string{"Ünïcödé. Wörld!"}, Chunk("Ünïcödé. Wörld!", 15))
}

func TestChunkOversizedSentenceStaysWhole(t *testing.T) {
	long := strings.Repeat("x", 50) + "."
	chunks := Chunk("Short. "+long+" Tail.", 20)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Short.", chunks[0])
	assert.Equal(t, long, chunks[1])
	assert.Equal(t, "Tail.", chunks[2])
}

func TestChunkOversizedFirstSentenceEmitsNoEmptyChunk(t *testing.T) {
	long := strings.Repeat("y", 30) + "!"
	assert.Equal(t, []string{long}, Chunk(long, 10))
}

func TestChunkReconstructsSentencesAndRespectsBound(t *testing.T) {
	var sentences []string
	for i := 0; i < 200; i++ {
		sentences = append(sentences, fmt.Sprintf("Sentence number %d has %s words.", i, strings.Repeat("many ", i%7)))
	}
	text := strings.Join(sentences, "\n")

	for _, max := range []int{60, 120, 1000} {
		chunks := Chunk(text, max)
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), max, "chunk exceeds bound at max=%d", max)
		}
		assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(chunks, " ")))
	}
}

func TestNewSentenceSplitterDefaults(t *testing.T) {
	assert.Equal(t, DefaultMaxChunkSize, NewSentenceSplitter(0).MaxChunkSize)
	assert.Equal(t, 250, NewSentenceSplitter(250).MaxChunkSize)
	assert.Equal(t, []string{"A. B."}, NewSentenceSplitter(-1).Split("A. B."))
}
