package models

// Role identifies the speaker in a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// SearchMode selects which retrieval tool the agent is offered.
type SearchMode string

const (
	SearchModeRAG SearchMode = "rag"
	SearchModeKQL SearchMode = "kql"
)

// ChatMessage is one turn in a conversation.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatContext scopes a chat turn to a site and, optionally, a search mode.
type ChatContext struct {
	SiteURL    string     `json:"siteUrl"`
	SearchMode SearchMode `json:"searchMode,omitempty"`
}

// ChatRequest is the decoded body of POST /api/chat.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	Context  ChatContext   `json:"context"`
}

// ChatResponse is the encoded body returned from POST /api/chat.
type ChatResponse struct {
	Response   string        `json:"response"`
	Messages   []ChatMessage `json:"messages"`
	SearchMode SearchMode    `json:"searchMode"`
	TokensUsed int           `json:"tokensUsed"`
	LatencyMs  int64         `json:"latencyMs"`
}

// DelegatedUser is the caller identity attached by the trusted upstream
// middleware, plus the raw delegated bearer token, which user-scoped
// provider calls receive as is.
type DelegatedUser struct {
	ID              string
	Name            string
	Email           string
	DelegatedBearer string
}

// UserProfile is the delegated-credential profile fetched from the
// document provider's own directory (manager is optional — not every
// user has one, or the caller may lack permission to read it).
type UserProfile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	JobTitle       string `json:"jobTitle,omitempty"`
	Department     string `json:"department,omitempty"`
	CompanyName    string `json:"companyName,omitempty"`
	OfficeLocation string `json:"officeLocation,omitempty"`
	Manager        string `json:"manager,omitempty"`
}
