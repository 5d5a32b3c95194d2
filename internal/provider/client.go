package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"knowledgeagent/internal/config"
	"knowledgeagent/internal/identity"
	"knowledgeagent/internal/logger"
	"knowledgeagent/internal/models"
	"knowledgeagent/internal/telemetry"
)

// Provider is the Document Provider Adapter's contract (C1). Implementations
// wrap a remote document platform; Client below is the Graph/SharePoint-shaped
// HTTP implementation, FakeProvider is the in-memory test double.
type Provider interface {
	Search(ctx context.Context, token string, req SearchRequest) ([]models.KnowledgeDocument, error)
	DownloadBytes(ctx context.Context, token string, doc models.KnowledgeDocument) ([]byte, error)
	ResolveSite(ctx context.Context, token, host, siteName string) (string, error)
	GetPageContent(ctx context.Context, token, siteID, pageName string) ([]PagePart, error)
	GetAspxParts(ctx context.Context, token string, doc models.KnowledgeDocument) ([]PagePart, error)
	GetUserProfile(ctx context.Context, token string) (models.UserProfile, error)
	ProbeAccess(ctx context.Context, token string, doc models.KnowledgeDocument) bool
}

// Client is the HTTP implementation of Provider against a Graph/SharePoint
// vector-search-shaped API, wrapped in the same breaker+limiter pattern the
// teacher applies to its LLM client.
type Client struct {
	baseURL    string
	geo        string
	httpClient *http.Client
	exchanger  *identity.Exchanger
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
}

func NewClient(cfg *config.Config, exchanger *identity.Exchanger, metrics *telemetry.Metrics) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "DocumentProvider",
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
		baseURL:    "https://graph.microsoft.com/v1.0",
		geo:        cfg.SharePointGeo,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		exchanger:  exchanger,
		breaker:    breaker,
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
	}
}

// BreakerState reports the circuit breaker's current state, for the health
// endpoint's outbound-dependency summary.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// do runs fn through the rate limiter and circuit breaker, tracing the call.
func (c *Client) do(ctx context.Context, op string, fn func() (interface{}, error)) (interface{}, error) {
	tracer := otel.Tracer("knowledgeagent/provider")
	ctx, span := tracer.Start(ctx, "provider."+op)
	defer span.End()
	span.SetAttributes(attribute.String("provider.operation", op))

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("provider rate limiter: %w", err)
	}

	result, err := c.breaker.Execute(fn)
	if err != nil {
		span.SetAttributes(attribute.Bool("provider.error", true))
		if err == gobreaker.ErrOpenState {
			return nil, fmt.Errorf("document provider unavailable (circuit open): %w", err)
		}
		return nil, err
	}
	return result, nil
}
