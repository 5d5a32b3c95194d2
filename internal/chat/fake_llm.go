package chat

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// FakeLLM is a scripted LLM test double: each call to StartSession hands
// out the next scripted session in Sessions, in order.
type FakeLLM struct {
	Sessions []*FakeSession
	next     int
}

func (f *FakeLLM) StartSession(systemPrompt string, decls []*genai.FunctionDeclaration, history []*genai.Content) (ChatSession, error) {
	if f.next >= len(f.Sessions) {
		return nil, fmt.Errorf("fake llm: no scripted session for call %d", f.next+1)
	}
	s := f.Sessions[f.next]
	f.next++
	s.SystemPrompt = systemPrompt
	s.Declarations = decls
	s.History = history
	return s, nil
}

// FakeSession replays a scripted sequence of responses, one per Send call.
// A response with a FunctionCall part expects the caller to invoke the
// matching tool and send back a FunctionResponse; the next scripted
// response is returned regardless of what was sent.
type FakeSession struct {
	Responses []*genai.GenerateContentResponse
	SentParts [][]genai.Part

	SystemPrompt string
	Declarations []*genai.FunctionDeclaration
	History      []*genai.Content

	next int
}

func (s *FakeSession) Send(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	s.SentParts = append(s.SentParts, parts)
	if s.next >= len(s.Responses) {
		return nil, fmt.Errorf("fake session: no scripted response for call %d", s.next+1)
	}
	resp := s.Responses[s.next]
	s.next++
	return resp, nil
}

// TextResponse builds a scripted final-answer response carrying no
// function calls.
func TextResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(text)}}},
		},
	}
}

// FunctionCallResponse builds a scripted response where the model calls
// one function before answering.
func FunctionCallResponse(name string, args map[string]interface{}) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: []genai.Part{genai.FunctionCall{Name: name, Args: args}}}},
		},
	}
}

// NilContentResponse builds a scripted response shaped like a
// safety-blocked candidate: no Content at all.
func NilContentResponse() *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
		},
	}
}
