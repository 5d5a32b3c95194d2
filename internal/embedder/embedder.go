package embedder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"knowledgeagent/internal/config"
	"knowledgeagent/internal/logger"
	"knowledgeagent/internal/models"
	"knowledgeagent/internal/telemetry"
)

const maxBatchSize = 16

// Embedder is the contract C4 implementations satisfy (embedder.Client and
// the in-memory test double).
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, int, error)
}

// Client wraps genai's embedding model in the same breaker+limiter pattern
// used by the provider and chat clients.
type Client struct {
	client  *genai.Client
	model   string
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	metrics *telemetry.Metrics
}

func New(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.AzureOpenAIAPIKey))
	if err != nil {
		return nil, fmt.Errorf("embedder: create genai client: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "Embedder",
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

	model := cfg.AzureOpenAIEmbeddingDeployment
	if model == "" {
		model = "text-embedding-004"
	}

	return &Client{
		client:  client,
		model:   model,
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		metrics: metrics,
	}, nil
}

// BreakerState reports the circuit breaker's current state, for the health
// endpoint's outbound-dependency summary.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// Embed returns one []float32 of models.EmbeddingDimension per input text,
// in input order, plus the total token usage amortized across the batch.
// Batches larger than maxBatchSize are split transparently; a failure on
// any sub-batch aborts the whole call with that sub-batch's index named in
// the error.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, int, error) {
	if len(texts) == 0 {
		return nil, 0, nil
	}

	tracer := otel.Tracer("knowledgeagent/embedder")
	ctx, span := tracer.Start(ctx, "embedder.embed")
	defer span.End()
	span.SetAttributes(attribute.Int("embedder.input_count", len(texts)))

	var out [][]float32
	totalTokens := 0

	for batchStart := 0; batchStart < len(texts); batchStart += maxBatchSize {
		batchEnd := min(batchStart+maxBatchSize, len(texts))
		batch := texts[batchStart:batchEnd]
		batchIndex := batchStart / maxBatchSize

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, fmt.Errorf("embedder: rate limiter: %w", err)
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			model := c.client.EmbeddingModel(c.model)
			b := model.NewBatch()
			for _, text := range batch {
				b.AddContent(genai.Text(text))
			}
			resp, err := model.BatchEmbedContents(ctx, b)
			if err != nil {
				return nil, err
			}
			return resp, nil
		})
		if err != nil {
			if err == gobreaker.ErrOpenState {
				return nil, 0, fmt.Errorf("embedder unavailable (circuit open) at batch %d: %w", batchIndex, err)
			}
			return nil, 0, fmt.Errorf("embedder: batch %d failed: %w", batchIndex, err)
		}

		resp := result.(*genai.BatchEmbedContentsResponse)
		if len(resp.Embeddings) != len(batch) {
			return nil, 0, fmt.Errorf("embedder: batch %d returned %d embeddings for %d inputs", batchIndex, len(resp.Embeddings), len(batch))
		}

		batchChars := 0
		for i, emb := range resp.Embeddings {
			if len(emb.Values) != models.EmbeddingDimension {
				return nil, 0, fmt.Errorf("embedder: batch %d item %d has dimension %d, want %d", batchIndex, i, len(emb.Values), models.EmbeddingDimension)
			}
			out = append(out, emb.Values)
			batchChars += len(batch[i])
		}
		batchTokens := (batchChars + 3) / 4
		totalTokens += batchTokens

		if c.metrics != nil {
			c.metrics.RecordLLMTokens(int64(batchTokens), "embedding")
		}
	}

	return out, totalTokens, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
