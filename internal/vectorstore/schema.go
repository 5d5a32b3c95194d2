package vectorstore

import (
	"context"
	"fmt"
	"net/http"

	"knowledgeagent/internal/models"
)

const (
	hnswM              = 4
	hnswEfConstruction = 400
	hnswEfSearch       = 500
)

type indexDefinition struct {
	Name          string        `json:"name"`
	Fields        []fieldDef    `json:"fields"`
	VectorSearch  vectorSearch  `json:"vectorSearch"`
}

type fieldDef struct {
	Name                     string `json:"name"`
	Type                     string `json:"type"`
	Key                      bool   `json:"key,omitempty"`
	Searchable               bool   `json:"searchable,omitempty"`
	Filterable               bool   `json:"filterable,omitempty"`
	Sortable                 bool   `json:"sortable,omitempty"`
	Dimensions               int    `json:"dimensions,omitempty"`
	VectorSearchProfile      string `json:"vectorSearchProfile,omitempty"`
}

type vectorSearch struct {
	Profiles  []vectorProfile  `json:"profiles"`
	Algorithms []hnswAlgorithm `json:"algorithms"`
}

type vectorProfile struct {
	Name               string `json:"name"`
	AlgorithmConfigName string `json:"algorithmConfigurationName"`
}

type hnswAlgorithm struct {
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	Parameters hnswParameters `json:"hnswParameters"`
}

type hnswParameters struct {
	M              int    `json:"m"`
	EfConstruction int    `json:"efConstruction"`
	EfSearch       int    `json:"efSearch"`
	Metric         string `json:"metric"`
}

// EnsureSchema describes the configured index and, if it does not exist,
// creates it with the HNSW cosine vector profile. Idempotent: a second call
// against an already-provisioned index is a no-op.
func (c *Client) EnsureSchema(ctx context.Context) error {
	_, status, err := c.do(ctx, "describeSchema", http.MethodGet, fmt.Sprintf("/indexes/%s?api-version=%s", c.indexName, apiVersion), nil)
	if err != nil {
		return fmt.Errorf("ensure schema: describe: %w", err)
	}
	if status == http.StatusOK {
		return nil
	}
	if status != http.StatusNotFound {
		return fmt.Errorf("ensure schema: describe returned status %d", status)
	}

	def := indexDefinition{
		Name: c.indexName,
		Fields: []fieldDef{
			{Name: "id", Type: "Edm.String", Key: true},
			{Name: "documentId", Type: "Edm.String", Filterable: true},
			{Name: "driveId", Type: "Edm.String", Filterable: true},
			{Name: "driveItemId", Type: "Edm.String", Filterable: true},
			{Name: "webUrl", Type: "Edm.String"},
			{Name: "siteUrl", Type: "Edm.String", Filterable: true},
			{Name: "siteName", Type: "Edm.String", Filterable: true},
			{Name: "documentTitle", Type: "Edm.String", Searchable: true},
			{Name: "fileType", Type: "Edm.String", Filterable: true},
			{Name: "chunkIndex", Type: "Edm.Int32"},
			{Name: "chunkText", Type: "Edm.String", Searchable: true},
			{
				Name:                "embedding",
				Type:                "Collection(Edm.Single)",
				Dimensions:          models.EmbeddingDimension,
				VectorSearchProfile: "knowledge-vector-profile",
			},
			{Name: "documentModifiedAt", Type: "Edm.DateTimeOffset", Sortable: true},
			{Name: "indexedAt", Type: "Edm.DateTimeOffset", Sortable: true},
		},
		VectorSearch: vectorSearch{
			Profiles: []vectorProfile{
				{Name: "knowledge-vector-profile", AlgorithmConfigName: "knowledge-hnsw"},
			},
			Algorithms: []hnswAlgorithm{
				{
					Name: "knowledge-hnsw",
					Kind: "hnsw",
					Parameters: hnswParameters{
						M:              hnswM,
						EfConstruction: hnswEfConstruction,
						EfSearch:       hnswEfSearch,
						Metric:         "cosine",
					},
				},
			},
		},
	}

	_, status, err = c.do(ctx, "createSchema", http.MethodPut, fmt.Sprintf("/indexes/%s?api-version=%s", c.indexName, apiVersion), def)
	if err != nil {
		return fmt.Errorf("ensure schema: create: %w", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("ensure schema: create returned status %d", status)
	}
	return nil
}
