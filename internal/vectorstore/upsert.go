package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"knowledgeagent/internal/models"
)

const (
	maxUpsertBatch  = 1000
	maxSampleErrors = 5
)

type indexWireDoc struct {
	SearchAction       string    `json:"@search.action"`
	ID                 string    `json:"id"`
	DocumentID         string    `json:"documentId,omitempty"`
	DriveID            string    `json:"driveId,omitempty"`
	DriveItemID        string    `json:"driveItemId,omitempty"`
	WebURL             string    `json:"webUrl,omitempty"`
	SiteURL            string    `json:"siteUrl,omitempty"`
	SiteName           string    `json:"siteName,omitempty"`
	DocumentTitle      string    `json:"documentTitle,omitempty"`
	FileType           string    `json:"fileType,omitempty"`
	ChunkIndex         int       `json:"chunkIndex"`
	ChunkText          string    `json:"chunkText,omitempty"`
	Embedding          []float32 `json:"embedding,omitempty"`
	DocumentModifiedAt string    `json:"documentModifiedAt,omitempty"`
	IndexedAt          string    `json:"indexedAt,omitempty"`
}

type indexWireRequest struct {
	Value []indexWireDoc `json:"value"`
}

type indexWireResultItem struct {
	Key          string `json:"key"`
	Status       bool   `json:"status"`
	StatusCode   int    `json:"statusCode"`
	ErrorMessage string `json:"errorMessage"`
}

type indexWireResponse struct {
	Value []indexWireResultItem `json:"value"`
}

// UpsertChunks writes chunks in batches of maxUpsertBatch, merge-or-upload
// semantics per item. Per-item failures are reported, not fatal; up to
// maxSampleErrors messages are kept per batch.
func (c *Client) UpsertChunks(ctx context.Context, chunks []models.DocumentChunk) (*UpsertResult, error) {
	result := &UpsertResult{}

	for start := 0; start < len(chunks); start += maxUpsertBatch {
		end := start + maxUpsertBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		wire := indexWireRequest{Value: make([]indexWireDoc, len(batch))}
		for i, chunk := range batch {
			wire.Value[i] = toWireDoc(chunk)
		}

		body, status, err := c.do(ctx, "upsertChunks", http.MethodPost, fmt.Sprintf("/indexes/%s/docs/index?api-version=%s", c.indexName, apiVersion), wire)
		if err != nil {
			return result, fmt.Errorf("upsert chunks: batch starting at %d: %w", start, err)
		}
		if status != http.StatusOK && status != http.StatusMultiStatus {
			return result, fmt.Errorf("upsert chunks: batch starting at %d returned status %d", start, status)
		}

		var wireResp indexWireResponse
		if err := json.Unmarshal(body, &wireResp); err != nil {
			return result, fmt.Errorf("upsert chunks: decode batch response: %w", err)
		}

		for _, item := range wireResp.Value {
			if item.Status {
				result.Succeeded++
				continue
			}
			result.Failed++
			if len(result.SampleErrors) < maxSampleErrors {
				result.SampleErrors = append(result.SampleErrors, fmt.Sprintf("%s: %s", item.Key, item.ErrorMessage))
			}
		}
	}

	return result, nil
}

func toWireDoc(chunk models.DocumentChunk) indexWireDoc {
	return indexWireDoc{
		SearchAction:       "mergeOrUpload",
		ID:                 chunk.ID,
		DocumentID:         chunk.DocumentID,
		DriveID:            chunk.DriveID,
		DriveItemID:        chunk.DriveItemID,
		WebURL:             chunk.WebURL,
		SiteURL:            chunk.SiteURL,
		SiteName:           chunk.SiteName,
		DocumentTitle:      chunk.DocumentTitle,
		FileType:           string(chunk.FileType),
		ChunkIndex:         chunk.ChunkIndex,
		ChunkText:          chunk.ChunkText,
		Embedding:          chunk.Embedding,
		DocumentModifiedAt: chunk.DocumentModifiedAt.UTC().Format("2006-01-02T15:04:05Z"),
		IndexedAt:          chunk.IndexedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
