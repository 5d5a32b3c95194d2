package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"knowledgeagent/internal/config"
	"knowledgeagent/internal/logger"
	"knowledgeagent/internal/telemetry"
)

// LLM starts a function-calling chat session. Client is the genai-backed
// implementation; FakeLLM is the test double.
type LLM interface {
	StartSession(systemPrompt string, decls []*genai.FunctionDeclaration, history []*genai.Content) (ChatSession, error)
}

// ChatSession sends one turn (either the user's message or a batch of tool
// responses) and gets back the model's next turn.
type ChatSession interface {
	Send(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client is the genai-backed LLM, wrapped in the same breaker+limiter
// pattern used by provider, embedder, and vectorstore.
type Client struct {
	genaiClient *genai.Client
	model       string
	breaker     *gobreaker.CircuitBreaker
	limiter     *rate.Limiter
}

func NewClient(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.AzureOpenAIAPIKey))
	if err != nil {
		return nil, fmt.Errorf("chat llm: create genai client: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ChatLLM",
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

	model := cfg.AzureOpenAIDeployment
	if model == "" {
		model = "gemini-1.5-pro"
	}

	return &Client{
		genaiClient: genaiClient,
		model:       model,
		breaker:     breaker,
		limiter:     rate.NewLimiter(rate.Limit(5), 10),
	}, nil
}

// BreakerState reports the circuit breaker's current state, for the health
// endpoint's outbound-dependency summary.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

func (c *Client) StartSession(systemPrompt string, decls []*genai.FunctionDeclaration, history []*genai.Content) (ChatSession, error) {
	model := c.genaiClient.GenerativeModel(c.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	if len(decls) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	cs := model.StartChat()
	cs.History = history

	return &session{cs: cs, breaker: c.breaker, limiter: c.limiter}, nil
}

type session struct {
	cs      *genai.ChatSession
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func (s *session) Send(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("chat llm rate limiter: %w", err)
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.cs.SendMessage(ctx, parts...)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return nil, fmt.Errorf("chat llm unavailable (circuit open): %w", err)
		}
		return nil, err
	}
	return result.(*genai.GenerateContentResponse), nil
}
