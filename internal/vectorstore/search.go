package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"knowledgeagent/internal/models"
)

const (
	defaultTopK     = 10
	defaultMinScore = 0.6
)

type vectorQuery struct {
	Kind   string    `json:"kind"`
	Vector []float32 `json:"vector"`
	KNearestNeighbors int `json:"k"`
	Fields string `json:"fields"`
}

type similarityWireRequest struct {
	VectorQueries []vectorQuery `json:"vectorQueries"`
	Filter        string        `json:"filter,omitempty"`
	Top           int           `json:"top"`
	Select        string        `json:"select"`
	Search        string        `json:"search,omitempty"`
	QueryType     string        `json:"queryType,omitempty"`
}

type similarityWireResponse struct {
	Value []struct {
		SearchScore        float64 `json:"@search.score"`
		ID                  string  `json:"id"`
		DocumentID          string  `json:"documentId"`
		DriveID             string  `json:"driveId"`
		DriveItemID         string  `json:"driveItemId"`
		WebURL              string  `json:"webUrl"`
		SiteURL             string  `json:"siteUrl"`
		SiteName            string  `json:"siteName"`
		DocumentTitle       string  `json:"documentTitle"`
		FileType            string  `json:"fileType"`
		ChunkIndex          int     `json:"chunkIndex"`
		ChunkText           string  `json:"chunkText"`
		DocumentModifiedAt  string  `json:"documentModifiedAt"`
		IndexedAt           string  `json:"indexedAt"`
	} `json:"value"`
}

// SearchSimilar runs a pure vector similarity search. Results below
// opts.MinScore are dropped; scores fall in [0,1].
func (c *Client) SearchSimilar(ctx context.Context, queryEmbedding []float32, opts SearchOptions) ([]ScoredChunk, error) {
	return c.search(ctx, queryEmbedding, "", opts)
}

// SearchHybrid combines vector similarity with the verbatim query text as a
// keyword search clause (Open Question 1: the literal query text is passed
// through, never "*").
func (c *Client) SearchHybrid(ctx context.Context, queryEmbedding []float32, queryText string, opts SearchOptions) ([]ScoredChunk, error) {
	return c.search(ctx, queryEmbedding, queryText, opts)
}

func (c *Client) search(ctx context.Context, queryEmbedding []float32, queryText string, opts SearchOptions) ([]ScoredChunk, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = defaultMinScore
	}

	req := similarityWireRequest{
		VectorQueries: []vectorQuery{
			{Kind: "vector", Vector: queryEmbedding, KNearestNeighbors: topK, Fields: "embedding"},
		},
		Filter: buildFilter(opts),
		Top:    topK,
		Select: "id,documentId,driveId,driveItemId,webUrl,siteUrl,siteName,documentTitle,fileType,chunkIndex,chunkText,documentModifiedAt,indexedAt",
	}
	if queryText != "" {
		req.Search = queryText
		req.QueryType = "simple"
	}

	body, status, err := c.do(ctx, "search", http.MethodPost, fmt.Sprintf("/indexes/%s/docs/search?api-version=%s", c.indexName, apiVersion), req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", status)
	}

	var wireResp similarityWireResponse
	if err := json.Unmarshal(body, &wireResp); err != nil {
		return nil, fmt.Errorf("search: decode response: %w", err)
	}

	var out []ScoredChunk
	for _, item := range wireResp.Value {
		if item.SearchScore < minScore {
			continue
		}
		modifiedAt, _ := time.Parse(time.RFC3339, item.DocumentModifiedAt)
		indexedAt, _ := time.Parse(time.RFC3339, item.IndexedAt)
		out = append(out, ScoredChunk{
			Score: item.SearchScore,
			Chunk: models.DocumentChunk{
				ID:                 item.ID,
				DocumentID:         item.DocumentID,
				DriveID:            item.DriveID,
				DriveItemID:        item.DriveItemID,
				WebURL:             item.WebURL,
				SiteURL:            item.SiteURL,
				SiteName:           item.SiteName,
				DocumentTitle:      item.DocumentTitle,
				FileType:           models.FileType(item.FileType),
				ChunkIndex:         item.ChunkIndex,
				ChunkText:          item.ChunkText,
				DocumentModifiedAt: modifiedAt,
				IndexedAt:          indexedAt,
			},
		})
	}
	return out, nil
}

// buildFilter joins the siteUrl and fileTypes constraints with "and"; an
// empty opts produces no filter clause at all.
func buildFilter(opts SearchOptions) string {
	var clauses []string
	if opts.SiteURL != "" {
		clauses = append(clauses, fmt.Sprintf("siteUrl eq '%s'", escapeODataLiteral(opts.SiteURL)))
	}
	if len(opts.FileTypes) > 0 {
		var fileTypeClauses []string
		for _, ft := range opts.FileTypes {
			fileTypeClauses = append(fileTypeClauses, fmt.Sprintf("fileType eq '%s'", ft))
		}
		clauses = append(clauses, "("+strings.Join(fileTypeClauses, " or ")+")")
	}
	return strings.Join(clauses, " and ")
}
