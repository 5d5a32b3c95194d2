package provider

import (
	"context"
	"fmt"
	"net/http"

	"knowledgeagent/internal/models"
)

// ProbeAccess issues a minimal metadata fetch under the user's delegated
// credential and classifies the result fail-closed: a 403 or 404 means not
// accessible, and so does any other error — transport failure, timeout, a
// non-2xx status, or a malformed response. Only a clean 2xx is accessible.
func (c *Client) ProbeAccess(ctx context.Context, token string, doc models.KnowledgeDocument) bool {
	var reqURL string
	if doc.DriveID != "" && doc.DriveItemID != "" {
		reqURL = fmt.Sprintf("%s/drives/%s/items/%s", c.baseURL, doc.DriveID, doc.DriveItemID)
	} else {
		host, path, err := splitWebURL(doc.WebURL)
		if err != nil {
			return false
		}
		reqURL = fmt.Sprintf("%s/sites/%s:%s", c.baseURL, host, path)
	}

	result, err := c.do(ctx, "probeAccess", func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return false, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return false, fmt.Errorf("probe access transport error: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusForbidden:
			return false, nil
		case resp.StatusCode == http.StatusNotFound:
			return false, nil
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return true, nil
		default:
			return false, fmt.Errorf("probe access returned status %d", resp.StatusCode)
		}
	})
	if err != nil {
		return false
	}
	accessible, ok := result.(bool)
	return ok && accessible
}
