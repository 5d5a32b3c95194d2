package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"knowledgeagent/internal/models"
)

// DownloadBytes resolves content by driveId+driveItemId when present, or by
// hostname+url-path otherwise. A Go *http.Response body, once read with
// io.ReadAll, is already an owned copy — the "contiguous buffer versus
// view-into-shared-buffer" distinction the spec names does not surface in
// Go's net/http the way it does in environments exposing native typed
// arrays; there is exactly one path here.
func (c *Client) DownloadBytes(ctx context.Context, token string, doc models.KnowledgeDocument) ([]byte, error) {
	var reqURL string
	if doc.DriveID != "" && doc.DriveItemID != "" {
		reqURL = fmt.Sprintf("%s/drives/%s/items/%s/content", c.baseURL, doc.DriveID, doc.DriveItemID)
	} else {
		host, path, err := splitWebURL(doc.WebURL)
		if err != nil {
			return nil, fmt.Errorf("download bytes: %w", err)
		}
		reqURL = fmt.Sprintf("%s/sites/%s:%s:/content", c.baseURL, host, path)
	}

	result, err := c.do(ctx, "downloadBytes", func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("download bytes transport error: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("download bytes returned status %d", resp.StatusCode)
		}

		content, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("download bytes: read body: %w", err)
		}
		return content, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func splitWebURL(webURL string) (host, path string, err error) {
	const prefix = "https://"
	if len(webURL) <= len(prefix) || webURL[:len(prefix)] != prefix {
		return "", "", fmt.Errorf("unsupported webUrl scheme: %s", webURL)
	}
	rest := webURL[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i], rest[i:], nil
		}
	}
	return rest, "/", nil
}
