package models

import (
	"fmt"
	"regexp"
	"time"
)

// EmbeddingDimension is the fixed vector length every DocumentChunk carries.
const EmbeddingDimension = 1536

// TextChunk is a bounded span of extracted text produced by the chunker,
// before it carries an embedding or document metadata.
type TextChunk struct {
	Index       int
	Text        string
	StartOffset int
	EndOffset   int
}

// DocumentChunk is the unit persisted in the vector index.
type DocumentChunk struct {
	ID                 string
	DocumentID         string
	DriveID            string
	DriveItemID        string
	WebURL             string
	SiteURL            string
	SiteName           string
	DocumentTitle      string
	FileType           FileType
	ChunkIndex         int
	ChunkText          string
	Embedding          []float32
	DocumentModifiedAt time.Time
	IndexedAt          time.Time
}

var chunkIDSanitizer = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// ChunkID builds the URL-safe primary key for a chunk: the document id is
// sanitized so provider-supplied ids with slashes or colons stay index-safe.
func ChunkID(documentID string, chunkIndex int) string {
	sanitized := chunkIDSanitizer.ReplaceAllString(documentID, "_")
	return fmt.Sprintf("%s_chunk_%d", sanitized, chunkIndex)
}
