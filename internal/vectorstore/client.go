package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"knowledgeagent/internal/config"
	"knowledgeagent/internal/logger"
	"knowledgeagent/internal/models"
	"knowledgeagent/internal/telemetry"
)

const apiVersion = "2023-11-01"

// Store is C5's contract: a vector-search-shaped chunk store. Client is the
// Azure-AI-Search-shaped HTTP implementation, FakeStore the in-memory test
// double used by indexer and chat tests.
type Store interface {
	EnsureSchema(ctx context.Context) error
	UpsertChunks(ctx context.Context, chunks []models.DocumentChunk) (*UpsertResult, error)
	DeleteByDocumentID(ctx context.Context, documentID string) error
	SearchSimilar(ctx context.Context, queryEmbedding []float32, opts SearchOptions) ([]ScoredChunk, error)
	SearchHybrid(ctx context.Context, queryEmbedding []float32, queryText string, opts SearchOptions) ([]ScoredChunk, error)
	GetStats(ctx context.Context) (*Stats, error)
}

// ScoredChunk is one similarity or hybrid search result.
type ScoredChunk struct {
	Chunk models.DocumentChunk
	Score float64
}

// SearchOptions narrows a similarity/hybrid search. TopK defaults to 10 and
// MinScore to 0.6 when zero-valued.
type SearchOptions struct {
	TopK      int
	SiteURL   string
	FileTypes []models.FileType
	MinScore  float64
}

// UpsertResult reports per-item outcome for one upsertChunks call.
type UpsertResult struct {
	Succeeded    int
	Failed       int
	SampleErrors []string
}

// Stats mirrors the remote index's reported size.
type Stats struct {
	DocumentCount int64
	StorageSize   int64
}

type Client struct {
	baseURL    string
	indexName  string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
}

func NewClient(cfg *config.Config, metrics *telemetry.Metrics) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "VectorStore",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			if metrics != nil {
				metrics.RecordCircuitBreakerState(name, to.String())
			}
		},
	})

	return &Client{
		baseURL:    cfg.AzureSearchEndpoint,
		indexName:  cfg.AzureSearchIndexName,
		apiKey:     cfg.AzureSearchAdminKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		breaker:    breaker,
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
	}
}

// BreakerState reports the circuit breaker's current state, for the health
// endpoint's outbound-dependency summary.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

func (c *Client) do(ctx context.Context, op, method, path string, body interface{}) ([]byte, int, error) {
	tracer := otel.Tracer("knowledgeagent/vectorstore")
	ctx, span := tracer.Start(ctx, "vectorstore."+op)
	defer span.End()
	span.SetAttributes(attribute.String("vectorstore.operation", op))

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("vectorstore rate limiter: %w", err)
	}

	type result struct {
		body   []byte
		status int
	}

	raw, err := c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			encoded, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("marshal request: %w", err)
			}
			reader = bytes.NewReader(encoded)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("api-key", c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("vectorstore transport error: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("vectorstore: read response body: %w", err)
		}

		return result{body: respBody, status: resp.StatusCode}, nil
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("vectorstore.error", true))
		if err == gobreaker.ErrOpenState {
			return nil, 0, fmt.Errorf("vector store unavailable (circuit open): %w", err)
		}
		return nil, 0, err
	}

	r := raw.(result)
	return r.body, r.status, nil
}
