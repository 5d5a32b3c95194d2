package chat

import (
	"github.com/google/generative-ai-go/genai"

	"knowledgeagent/internal/models"
)

// Registry is a per-request tool set: the genai declarations to advertise
// plus the handler each call name dispatches to. Built fresh per chat
// request by buildRegistry — never shared across requests.
type Registry struct {
	tools map[string]Tool
}

func (r *Registry) lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) declarations() []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Declaration)
	}
	return out
}

// buildRegistry assembles the tool set for one request: the common tools
// every mode gets, plus knowledge_search for RAG or sharepoint_search for
// KQL, never both.
func buildRegistry(deps *Deps, mode models.SearchMode) *Registry {
	tools := commonTools(deps)

	var modeTools map[string]Tool
	if mode == models.SearchModeRAG {
		modeTools = ragTools(deps)
	} else {
		modeTools = kqlTools(deps)
	}
	for name, t := range modeTools {
		tools[name] = t
	}

	return &Registry{tools: tools}
}
