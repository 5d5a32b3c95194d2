package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"knowledgeagent/internal/models"
)

const knowledgeMarker = "<KnowledgeMarker>:1"

// SearchRequest describes one provider search call. DaysBack selects the
// last-modified window [now-DaysBack, now] at day granularity in UTC.
type SearchRequest struct {
	SiteURL  string
	DaysBack int
	Query    string
}

type searchWireRequest struct {
	Requests []searchWireInner `json:"requests"`
}

type searchWireInner struct {
	EntityTypes []string           `json:"entityTypes"`
	Query       searchWireQuery    `json:"query"`
	From        int                `json:"from"`
	Size        int                `json:"size"`
	Region      string             `json:"region"`
	Fields      []string           `json:"fields"`
}

type searchWireQuery struct {
	QueryString string `json:"queryString"`
}

type searchWireResponse struct {
	Value []struct {
		HitsContainers []struct {
			Hits []struct {
				Resource struct {
					ID             string `json:"id"`
					Name           string `json:"name"`
					WebURL         string `json:"webUrl"`
					LastModified   string `json:"lastModifiedDateTime"`
					ParentReference struct {
						SiteWebURL  string `json:"siteWebUrl"`
						SiteName    string `json:"siteName"`
						DriveID     string `json:"driveId"`
					} `json:"parentReference"`
				} `json:"resource"`
			} `json:"hits"`
		} `json:"hitsContainers"`
	} `json:"value"`
}

const maxSearchHits = 500

// Search issues a provider search request built from the fixed marker
// clause, the file-type whitelist, an optional site scope, and the
// last-modified date range — all joined with implicit-AND keyword tokens.
func (c *Client) Search(ctx context.Context, token string, req SearchRequest) ([]models.KnowledgeDocument, error) {
	queryString := buildQueryString(req)

	wire := searchWireRequest{
		Requests: []searchWireInner{
			{
				EntityTypes: []string{"driveItem", "listItem"},
				Query:       searchWireQuery{QueryString: queryString},
				From:        0,
				Size:        maxSearchHits,
				Region:      c.geo,
				Fields:      []string{"id", "name", "webUrl", "lastModifiedDateTime", "parentReference"},
			},
		},
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("provider search: marshal request: %w", err)
	}

	result, err := c.do(ctx, "search", func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search/query", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("provider search transport error: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("provider search returned status %d", resp.StatusCode)
		}

		var wireResp searchWireResponse
		if err := json.NewDecoder(resp.Body).Decode(&wireResp); err != nil {
			return nil, fmt.Errorf("provider search: decode response: %w", err)
		}
		return wireResp, nil
	})
	if err != nil {
		return nil, err
	}

	wireResp := result.(searchWireResponse)
	var docs []models.KnowledgeDocument
	for _, container := range wireResp.Value {
		for _, hitsContainer := range container.HitsContainers {
			for _, hit := range hitsContainer.Hits {
				r := hit.Resource
				lastModified, _ := time.Parse(time.RFC3339, r.LastModified)
				doc := models.KnowledgeDocument{
					ID:           r.ID,
					Title:        r.Name,
					WebURL:       r.WebURL,
					FileType:     inferFileType(r.Name, nil),
					LastModified: lastModified,
					SiteURL:      r.ParentReference.SiteWebURL,
					SiteName:     r.ParentReference.SiteName,
					DriveID:      r.ParentReference.DriveID,
					DriveItemID:  r.ID,
				}
				docs = append(docs, doc)
			}
		}
	}
	return docs, nil
}

func buildQueryString(req SearchRequest) string {
	tokens := []string{knowledgeMarker, "fileType:pdf|doc|docx|aspx"}

	if req.Query != "" {
		tokens = append(tokens, req.Query)
	}

	if req.SiteURL != "" {
		tokens = append(tokens, fmt.Sprintf(`path:"%s"`, req.SiteURL))
	}

	daysBack := req.DaysBack
	if daysBack <= 0 {
		daysBack = 30
	}
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -daysBack).Format("2006-01-02")
	tokens = append(tokens, fmt.Sprintf("lastModifiedDateTime>=%s", from))

	return strings.Join(tokens, " ")
}

// inferFileType falls back to extension-based inference; when content
// bytes are available and the extension is absent or ambiguous, sniffs the
// content's MIME type instead.
func inferFileType(filename string, content []byte) models.FileType {
	ft := models.InferFileType(filename)
	if ft != models.FileTypeUnknown || content == nil {
		return ft
	}

	mtype := mimetype.Detect(content)
	switch {
	case mtype.Is("application/pdf"):
		return models.FileTypePDF
	case mtype.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document"):
		return models.FileTypeDocx
	case mtype.Is("application/msword"):
		return models.FileTypeDoc
	default:
		return models.FileTypeUnknown
	}
}
