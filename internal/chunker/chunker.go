package chunker

import (
	"math"
	"regexp"
	"strings"

	"knowledgeagent/internal/models"
)

// sentenceEnd matches a sentence-terminating punctuation mark followed by
// whitespace and then the start of a new, capitalized sentence. Go's RE2
// engine doesn't support lookahead, so the capital letter is captured
// instead and callers trim it back off the match end (see sentenceEndIndices).
var sentenceEnd = regexp.MustCompile(`[.!?]\s+[A-Z]`)

// sentenceEndIndices returns sentenceEnd's matches in s with the match end
// adjusted back by one rune, so the reported boundary sits right before the
// capitalized start of the next sentence rather than after it.
func sentenceEndIndices(s string) [][]int {
	matches := sentenceEnd.FindAllStringIndex(s, -1)
	for i, m := range matches {
		matches[i] = []int{m[0], m[1] - 1}
	}
	return matches
}

// Options configures a chunking pass. Chunker callers pass the configured
// values; tests exercise edge sizes directly.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
}

// snapWindow bounds how far Chunk will walk forward or backward from a
// cursor position, after overlap subtraction, to land on a clean boundary.
const snapWindow = 100

// Chunk splits text into overlapping, boundary-aware chunks. It never
// returns a chunk shorter than MinChunkSize except when the entire input
// is shorter than that, in which case the whole input becomes one chunk.
func Chunk(text string, opts Options) []models.TextChunk {
	length := len(text)
	if length == 0 {
		return nil
	}
	if length < opts.MinChunkSize {
		return []models.TextChunk{{Index: 0, Text: text, StartOffset: 0, EndOffset: length}}
	}

	var chunks []models.TextChunk
	cursor := 0
	index := 0

	for cursor < length {
		tentativeEnd := min(cursor+opts.ChunkSize, length)

		var end int
		if tentativeEnd >= length {
			end = length
		} else {
			windowStart := max(cursor, tentativeEnd-int(math.Round(0.3*float64(opts.ChunkSize))))
			end = findBoundary(text, windowStart, tentativeEnd)
			if end <= cursor {
				end = tentativeEnd
			}
		}

		chunkText := text[cursor:end]
		trimmed := strings.TrimSpace(chunkText)
		if len(trimmed) >= opts.MinChunkSize {
			chunks = append(chunks, models.TextChunk{
				Index:       index,
				Text:        trimmed,
				StartOffset: cursor,
				EndOffset:   end,
			})
			index++
		}

		if end >= length {
			break
		}

		nextCursor := end - opts.ChunkOverlap
		if nextCursor <= cursor {
			nextCursor = cursor + 1
		}
		cursor = snapToBoundary(text, nextCursor)
	}

	return chunks
}

// findBoundary searches [windowStart, tentativeEnd] for the best cut point,
// preferring (in order) a paragraph break, a line break, a sentence
// boundary, a period-space, then a plain word boundary. It returns the
// offset right after the chosen boundary, closest to tentativeEnd.
func findBoundary(text string, windowStart, tentativeEnd int) int {
	window := text[windowStart:tentativeEnd]

	if idx := strings.LastIndex(window, "\n\n"); idx >= 0 {
		return windowStart + idx + 2
	}
	if idx := strings.LastIndex(window, "\n"); idx >= 0 {
		return windowStart + idx + 1
	}
	if matches := sentenceEndIndices(window); len(matches) > 0 {
		last := matches[len(matches)-1]
		return windowStart + last[1]
	}
	if idx := strings.LastIndex(window, ". "); idx >= 0 {
		return windowStart + idx + 2
	}
	if idx := strings.LastIndex(window, " "); idx >= 0 {
		return windowStart + idx + 1
	}
	return tentativeEnd
}

// snapToBoundary nudges pos to the nearest sentence, paragraph, or line
// start within snapWindow characters in either direction, so the next
// chunk's overlap region starts cleanly rather than mid-word.
func snapToBoundary(text string, pos int) int {
	length := len(text)
	lo := max(0, pos-snapWindow)
	hi := min(length, pos+snapWindow)

	best := -1
	bestDist := snapWindow + 1

	consider := func(candidate int) {
		dist := candidate - pos
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			best = candidate
			bestDist = dist
		}
	}

	segment := text[lo:hi]
	for _, sep := range []string{"\n\n", "\n"} {
		start := 0
		for {
			idx := strings.Index(segment[start:], sep)
			if idx < 0 {
				break
			}
			abs := lo + start + idx + len(sep)
			consider(abs)
			start += idx + len(sep)
		}
	}
	for _, m := range sentenceEndIndices(segment) {
		consider(lo + m[1])
	}

	if best < 0 {
		return pos
	}
	return best
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// EstimateTokens is the fixed, cheap token estimate used everywhere a
// precise tokenizer isn't available: roughly four characters per token.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}
