package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const maxDeleteBatch = 1000

type searchWireResponse struct {
	Value []struct {
		ID string `json:"id"`
	} `json:"value"`
}

type searchWireRequest struct {
	Filter string `json:"filter"`
	Top    int    `json:"top"`
	Select string `json:"select"`
}

// DeleteByDocumentID finds every chunk belonging to a document by filtered
// search, then deletes them in one batch. A document with no indexed
// chunks is a no-op, not an error.
func (c *Client) DeleteByDocumentID(ctx context.Context, documentID string) error {
	req := searchWireRequest{
		Filter: fmt.Sprintf("documentId eq '%s'", escapeODataLiteral(documentID)),
		Top:    maxDeleteBatch,
		Select: "id",
	}

	body, status, err := c.do(ctx, "deleteByDocumentId.search", http.MethodPost, fmt.Sprintf("/indexes/%s/docs/search?api-version=%s", c.indexName, apiVersion), req)
	if err != nil {
		return fmt.Errorf("delete by documentId: search: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("delete by documentId: search returned status %d", status)
	}

	var wireResp searchWireResponse
	if err := json.Unmarshal(body, &wireResp); err != nil {
		return fmt.Errorf("delete by documentId: decode search response: %w", err)
	}
	if len(wireResp.Value) == 0 {
		return nil
	}

	wire := indexWireRequest{Value: make([]indexWireDoc, len(wireResp.Value))}
	for i, item := range wireResp.Value {
		wire.Value[i] = indexWireDoc{SearchAction: "delete", ID: item.ID}
	}

	_, status, err = c.do(ctx, "deleteByDocumentId.delete", http.MethodPost, fmt.Sprintf("/indexes/%s/docs/index?api-version=%s", c.indexName, apiVersion), wire)
	if err != nil {
		return fmt.Errorf("delete by documentId: delete: %w", err)
	}
	if status != http.StatusOK && status != http.StatusMultiStatus {
		return fmt.Errorf("delete by documentId: delete returned status %d", status)
	}
	return nil
}

func escapeODataLiteral(s string) string {
	result := ""
	for _, r := range s {
		if r == '\'' {
			result += "''"
			continue
		}
		result += string(r)
	}
	return result
}
