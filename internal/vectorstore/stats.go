package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type statsWireResponse struct {
	DocumentCount int64 `json:"documentCount"`
	StorageSize   int64 `json:"storageSize"`
}

// GetStats returns the remote index's reported document count and storage
// footprint.
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	body, status, err := c.do(ctx, "getStats", http.MethodGet, fmt.Sprintf("/indexes/%s/stats?api-version=%s", c.indexName, apiVersion), nil)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("get stats returned status %d", status)
	}

	var wireResp statsWireResponse
	if err := json.Unmarshal(body, &wireResp); err != nil {
		return nil, fmt.Errorf("get stats: decode response: %w", err)
	}
	return &Stats{DocumentCount: wireResp.DocumentCount, StorageSize: wireResp.StorageSize}, nil
}
