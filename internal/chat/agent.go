package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"knowledgeagent/internal/models"
	"knowledgeagent/internal/telemetry"
)

const maxToolCallIterations = 8
const defaultToolCallTimeoutSeconds = 30
const defaultChatTimeoutSeconds = 120

// Agent drives one function-calling conversation turn: send the user's
// message, dispatch any function calls the model makes, feed the results
// back, and repeat until the model returns a final text answer.
type Agent struct {
	llm     LLM
	metrics *telemetry.Metrics
}

func NewAgent(llm LLM, metrics *telemetry.Metrics) *Agent {
	return &Agent{llm: llm, metrics: metrics}
}

// Run executes one chat turn against deps.ChatContext's search mode,
// enforcing the request-wide chat timeout and a per-tool-call timeout.
func (a *Agent) Run(ctx context.Context, deps *Deps, messages []models.ChatMessage) (*models.ChatResponse, error) {
	chatTimeout := time.Duration(deps.Cfg.ChatTimeoutSeconds) * time.Second
	if chatTimeout <= 0 {
		chatTimeout = defaultChatTimeoutSeconds * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()

	tracer := otel.Tracer("knowledgeagent/chat")
	ctx, span := tracer.Start(ctx, "chat.agent_run")
	defer span.End()

	mode := deps.ChatContext.SearchMode
	if mode == "" {
		mode = models.SearchModeKQL
	}
	span.SetAttributes(attribute.String("chat.search_mode", string(mode)))

	registry := buildRegistry(deps, mode)
	systemPrompt := buildSystemPrompt(deps.User, deps.ChatContext, mode)

	history, latestUserText := convertHistory(messages)
	if latestUserText == "" {
		return nil, fmt.Errorf("agent: no user message to respond to")
	}

	chatSession, err := a.llm.StartSession(systemPrompt, registry.declarations(), history)
	if err != nil {
		return nil, fmt.Errorf("agent: start session: %w", err)
	}

	start := time.Now()
	resp, err := chatSession.Send(ctx, genai.Text(latestUserText))
	if err != nil {
		return nil, fmt.Errorf("agent: send message: %w", err)
	}

	totalTokens := 0
	for i := 0; i < maxToolCallIterations; i++ {
		if len(resp.Candidates) == 0 {
			return nil, fmt.Errorf("agent: model returned no candidates")
		}
		if resp.UsageMetadata != nil {
			totalTokens += int(resp.UsageMetadata.TotalTokenCount)
		}

		calls, text := splitResponse(resp.Candidates[0])
		if len(calls) == 0 {
			if a.metrics != nil {
				a.metrics.RecordLLMTokens(int64(totalTokens), "chat")
			}
			return &models.ChatResponse{
				Response:   text,
				Messages:   append(messages, models.ChatMessage{Role: models.RoleAssistant, Content: text}),
				SearchMode: mode,
				TokensUsed: totalTokens,
				LatencyMs:  time.Since(start).Milliseconds(),
			}, nil
		}

		responseParts := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			result := a.invokeTool(ctx, registry, call, deps)
			responseParts = append(responseParts, genai.FunctionResponse{
				Name:     call.Name,
				Response: map[string]interface{}{"result": result},
			})
		}

		resp, err = chatSession.Send(ctx, responseParts...)
		if err != nil {
			return nil, fmt.Errorf("agent: send tool response: %w", err)
		}
	}

	return nil, fmt.Errorf("agent: exceeded %d tool-call iterations without a final answer", maxToolCallIterations)
}

// invokeTool dispatches one function call with its own timeout. A tool
// failure (timeout, unknown tool, handler error) is surfaced to the model
// as a textual error result, not as a fatal agent error — only a failure
// of the LLM call itself aborts the run.
func (a *Agent) invokeTool(ctx context.Context, registry *Registry, call genai.FunctionCall, deps *Deps) string {
	start := time.Now()
	tool, ok := registry.lookup(call.Name)
	if !ok {
		a.recordToolCall(deps, call.Name, start, false)
		return fmt.Sprintf("unknown tool %q", call.Name)
	}

	timeout := time.Duration(deps.Cfg.ToolCallTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultToolCallTimeoutSeconds * time.Second
	}
	toolCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan struct {
		result string
		err    error
	}, 1)
	go func() {
		result, err := tool.Handler(toolCtx, call.Args)
		done <- struct {
			result string
			err    error
		}{result, err}
	}()

	select {
	case <-toolCtx.Done():
		a.recordToolCall(deps, call.Name, start, false)
		return fmt.Sprintf("tool %q timed out after %s", call.Name, timeout)
	case out := <-done:
		if out.err != nil {
			a.recordToolCall(deps, call.Name, start, false)
			return fmt.Sprintf("tool %q failed: %v", call.Name, out.err)
		}
		a.recordToolCall(deps, call.Name, start, true)
		return out.result
	}
}

func (a *Agent) recordToolCall(deps *Deps, name string, start time.Time, success bool) {
	if deps.Metrics != nil {
		deps.Metrics.RecordToolCall(name, time.Since(start).Seconds(), success)
	}
}

func splitResponse(cand *genai.Candidate) ([]genai.FunctionCall, string) {
	var calls []genai.FunctionCall
	var textParts []string
	if cand.Content == nil {
		return calls, ""
	}
	for _, part := range cand.Content.Parts {
		switch p := part.(type) {
		case genai.FunctionCall:
			calls = append(calls, p)
		case genai.Text:
			textParts = append(textParts, string(p))
		}
	}
	return calls, strings.Join(textParts, "")
}

// convertHistory turns every message but the last into genai chat history
// and returns the last user message's text separately, since it's sent as
// the new turn rather than replayed history.
func convertHistory(messages []models.ChatMessage) ([]*genai.Content, string) {
	if len(messages) == 0 {
		return nil, ""
	}
	last := messages[len(messages)-1]
	history := make([]*genai.Content, 0, len(messages)-1)
	for _, m := range messages[:len(messages)-1] {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return history, last.Content
}
