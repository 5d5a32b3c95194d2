package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html/charset"

	"knowledgeagent/internal/models"
)

// PagePart is one structured web part of a SharePoint page.
type PagePart struct {
	HTML       string
	Properties map[string]interface{}
}

type siteWireResponse struct {
	ID string `json:"id"`
}

type pagesWireResponse struct {
	Value []struct {
		WebParts []struct {
			InnerHTML string                 `json:"innerHtml"`
			Data      map[string]interface{} `json:"data"`
		} `json:"webParts"`
	} `json:"value"`
}

// ResolveSite resolves a host+siteName pair to a provider site id.
func (c *Client) ResolveSite(ctx context.Context, token, host, siteName string) (string, error) {
	reqURL := fmt.Sprintf("%s/sites/%s:/sites/%s", c.baseURL, host, url.PathEscape(siteName))

	result, err := c.do(ctx, "resolveSite", func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("resolve site transport error: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("resolve site returned status %d", resp.StatusCode)
		}

		var wireResp siteWireResponse
		if err := json.NewDecoder(resp.Body).Decode(&wireResp); err != nil {
			return nil, fmt.Errorf("resolve site: decode response: %w", err)
		}
		return wireResp.ID, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// GetPageContent fetches a page's structured web parts, falling back to
// the raw page file when the structured endpoint returns nothing.
func (c *Client) GetPageContent(ctx context.Context, token, siteID, pageName string) ([]PagePart, error) {
	reqURL := fmt.Sprintf("%s/sites/%s/pages?$filter=name eq '%s'&$expand=webParts", c.baseURL, siteID, url.QueryEscape(pageName))

	result, err := c.do(ctx, "getPageContent", func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("get page content transport error: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("get page content returned status %d", resp.StatusCode)
		}

		var wireResp pagesWireResponse
		if err := json.NewDecoder(resp.Body).Decode(&wireResp); err != nil {
			return nil, fmt.Errorf("get page content: decode response: %w", err)
		}
		return wireResp, nil
	})
	if err != nil {
		return nil, err
	}

	wireResp := result.(pagesWireResponse)
	var parts []PagePart
	for _, page := range wireResp.Value {
		for _, wp := range page.WebParts {
			parts = append(parts, PagePart{HTML: wp.InnerHTML, Properties: wp.Data})
		}
	}

	if len(parts) == 0 {
		return c.fetchRawPage(ctx, token, siteID, pageName)
	}
	return parts, nil
}

// fetchRawPage is the fallback path when the structured page-parts
// endpoint yields nothing: fetch the page file's raw bytes as a single part.
func (c *Client) fetchRawPage(ctx context.Context, token, siteID, pageName string) ([]PagePart, error) {
	reqURL := fmt.Sprintf("%s/sites/%s/pages/%s/content", c.baseURL, siteID, url.PathEscape(pageName))

	result, err := c.do(ctx, "fetchRawPage", func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("fetch raw page transport error: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch raw page returned status %d", resp.StatusCode)
		}

		content, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("fetch raw page: read body: %w", err)
		}
		return toUTF8(content), nil
	})
	if err != nil {
		return nil, err
	}

	return []PagePart{{HTML: result.(string)}}, nil
}

// toUTF8 sniffs the page's declared or BOM-indicated encoding and
// transcodes to UTF-8; SharePoint-hosted pages occasionally carry a
// non-UTF-8 legacy charset on older tenants. Falls back to the raw bytes
// as a string if sniffing or conversion fails.
func toUTF8(content []byte) string {
	r, err := charset.NewReader(bytes.NewReader(content), "text/html")
	if err != nil {
		return string(content)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(content)
	}
	return string(decoded)
}

// GetAspxParts resolves a page document's structured web parts: it parses
// the document's webUrl into host/site/page, resolves the site id, then
// fetches the page's structured content through C1.
func (c *Client) GetAspxParts(ctx context.Context, token string, doc models.KnowledgeDocument) ([]PagePart, error) {
	host, siteName, pageName, err := splitPageWebURL(doc.WebURL)
	if err != nil {
		return nil, fmt.Errorf("get aspx parts: %w", err)
	}

	siteID, err := c.ResolveSite(ctx, token, host, siteName)
	if err != nil {
		return nil, fmt.Errorf("get aspx parts: resolve site: %w", err)
	}

	return c.GetPageContent(ctx, token, siteID, pageName)
}

// splitPageWebURL extracts host, site name, and page file name from a
// SharePoint page URL shaped https://{host}/sites/{site}/.../{page}.
func splitPageWebURL(webURL string) (host, siteName, pageName string, err error) {
	const prefix = "https://"
	if !strings.HasPrefix(webURL, prefix) {
		return "", "", "", fmt.Errorf("unsupported page webUrl scheme: %s", webURL)
	}
	segments := strings.Split(strings.TrimPrefix(webURL, prefix), "/")
	if len(segments) < 4 || segments[1] != "sites" {
		return "", "", "", fmt.Errorf("unrecognized page webUrl shape: %s", webURL)
	}
	return segments[0], segments[2], segments[len(segments)-1], nil
}
