package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultOptions() Options {
	return Options{ChunkSize: 1500, ChunkOverlap: 200, MinChunkSize: 100}
}

func TestChunk_EmptyInputProducesNoChunks(t *testing.T) {
	chunks := Chunk("", defaultOptions())
	assert.Empty(t, chunks)
}

func TestChunk_ExactlyMinChunkSizeProducesOneChunk(t *testing.T) {
	text := strings.Repeat("a", 100)
	chunks := Chunk(text, defaultOptions())
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
}

func TestChunk_ShortInputBelowMinProducesOneChunk(t *testing.T) {
	text := strings.Repeat("b", 40)
	chunks := Chunk(text, defaultOptions())
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, len(text), chunks[0].EndOffset)
}

// TestChunk_PrefersParagraphBreakAtBoundary builds a 3000-char input with a
// paragraph break at offset 1450 and checks the first chunk ends there
// instead of hard-cutting at the tentative 1500 boundary.
func TestChunk_PrefersParagraphBreakAtBoundary(t *testing.T) {
	first := strings.Repeat("x", 1450)
	second := strings.Repeat("y", 1548)
	text := first + "\n\n" + second

	chunks := Chunk(text, defaultOptions())
	require.NotEmpty(t, chunks)
	assert.Equal(t, 1452, chunks[0].EndOffset)
}

func TestChunk_OverlapMovesCursorBackward(t *testing.T) {
	text := strings.Repeat("word ", 1000)
	chunks := Chunk(text, defaultOptions())
	require.True(t, len(chunks) >= 2)
	assert.Less(t, chunks[1].StartOffset, chunks[0].EndOffset)
}

func TestChunk_ReconstructionCoversWholeInput(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps. ", 200)
	chunks := Chunk(text, defaultOptions())
	require.NotEmpty(t, chunks)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, len(text), chunks[len(chunks)-1].EndOffset)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 3, EstimateTokens("0123456789"))
}
