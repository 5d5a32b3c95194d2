package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"

	"knowledgeagent/internal/config"
	"knowledgeagent/internal/embedder"
	"knowledgeagent/internal/extractor"
	"knowledgeagent/internal/models"
	"knowledgeagent/internal/provider"
	"knowledgeagent/internal/telemetry"
	"knowledgeagent/internal/vectorstore"
)

const maxFileContentChars = 8000
const truncationSuffix = "\n[Content truncated]"

// ToolHandler executes one tool call and returns the text the LLM sees as
// the function's result.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (string, error)

// Tool pairs a genai function declaration with its handler, so the agent
// loop can advertise the schema and dispatch the call from one registry
// entry.
type Tool struct {
	Declaration *genai.FunctionDeclaration
	Handler     ToolHandler
}

// Deps bundles every collaborator a tool handler might need. Built fresh
// per chat request, never shared.
type Deps struct {
	Provider    provider.Provider
	Embedder    embedder.Embedder
	Store       vectorstore.Store
	Extractor   *extractor.Extractor
	Permissions *PermissionCache
	Cfg         *config.Config
	Metrics     *telemetry.Metrics
	User        models.DelegatedUser
	ChatContext models.ChatContext
	Token       string
}

func commonTools(deps *Deps) map[string]Tool {
	return map[string]Tool{
		"get_current_site": {
			Declaration: &genai.FunctionDeclaration{
				Name:        "get_current_site",
				Description: "Returns the SharePoint site URL the current conversation is scoped to.",
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
				return deps.ChatContext.SiteURL, nil
			},
		},
		"get_current_user": {
			Declaration: &genai.FunctionDeclaration{
				Name:        "get_current_user",
				Description: "Returns the delegated user's directory profile: name, email, job title, department, company, office location, and manager if available.",
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
				return getCurrentUser(ctx, deps)
			},
		},
		"read_file_content": {
			Declaration: &genai.FunctionDeclaration{
				Name:        "read_file_content",
				Description: "Reads and returns the extracted text content of a specific drive file, given its driveId, itemId, and name.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"driveId": {Type: genai.TypeString},
						"itemId":  {Type: genai.TypeString},
						"name":    {Type: genai.TypeString},
					},
					Required: []string{"driveId", "itemId", "name"},
				},
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
				return readFileContent(ctx, deps, args)
			},
		},
	}
}

// getCurrentUser fetches the delegated user's directory profile under
// their own credential, per §4.7's delegated-credential profile fetch.
func getCurrentUser(ctx context.Context, deps *Deps) (string, error) {
	profile, err := deps.Provider.GetUserProfile(ctx, deps.Token)
	if err != nil {
		return fmt.Sprintf("name: %s, email: %s (profile lookup failed: %v)", deps.User.Name, deps.User.Email, err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "name: %s, email: %s", profile.Name, profile.Email)
	if profile.JobTitle != "" {
		fmt.Fprintf(&b, ", title: %s", profile.JobTitle)
	}
	if profile.Department != "" {
		fmt.Fprintf(&b, ", department: %s", profile.Department)
	}
	if profile.CompanyName != "" {
		fmt.Fprintf(&b, ", company: %s", profile.CompanyName)
	}
	if profile.OfficeLocation != "" {
		fmt.Fprintf(&b, ", location: %s", profile.OfficeLocation)
	}
	if profile.Manager != "" {
		fmt.Fprintf(&b, ", manager: %s", profile.Manager)
	}
	return b.String(), nil
}

func readFileContent(ctx context.Context, deps *Deps, args map[string]interface{}) (string, error) {
	driveID, _ := args["driveId"].(string)
	itemID, _ := args["itemId"].(string)
	name, _ := args["name"].(string)
	if driveID == "" || itemID == "" || name == "" {
		return "", fmt.Errorf("read_file_content requires driveId, itemId, and name")
	}

	doc := models.KnowledgeDocument{
		ID:          itemID,
		DriveID:     driveID,
		DriveItemID: itemID,
		Title:       name,
		FileType:    models.InferFileType(name),
	}

	content, err := deps.Provider.DownloadBytes(ctx, deps.Token, doc)
	if err != nil {
		return fmt.Sprintf("failed to read %s: %v", name, err), nil
	}

	text, err := deps.Extractor.Extract(ctx, doc, content)
	if err != nil {
		return fmt.Sprintf("failed to extract content from %s: %v", name, err), nil
	}

	if len(text) > maxFileContentChars {
		text = text[:maxFileContentChars] + truncationSuffix
	}
	return text, nil
}

// ragTools adds knowledge_search for vector similarity / hybrid retrieval.
func ragTools(deps *Deps) map[string]Tool {
	return map[string]Tool{
		"knowledge_search": {
			Declaration: &genai.FunctionDeclaration{
				Name:        "knowledge_search",
				Description: "Searches the indexed knowledge base for content relevant to a query, filtered to documents the current user can access.",
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: map[string]*genai.Schema{"query": {Type: genai.TypeString}},
					Required:   []string{"query"},
				},
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
				return knowledgeSearch(ctx, deps, args)
			},
		},
	}
}

func knowledgeSearch(ctx context.Context, deps *Deps, args map[string]interface{}) (string, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return "", fmt.Errorf("knowledge_search requires a query")
	}

	topK := deps.Cfg.KnowledgeSearchTopK
	if topK <= 0 {
		topK = 10
	}
	vectors, _, err := deps.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return "", fmt.Errorf("knowledge_search: embed query: %w", err)
	}
	if len(vectors) == 0 {
		return "No results found.", nil
	}

	opts := vectorstore.SearchOptions{TopK: topK * 2, SiteURL: deps.ChatContext.SiteURL}
	results, err := deps.Store.SearchSimilar(ctx, vectors[0], opts)
	if err != nil {
		return "", fmt.Errorf("knowledge_search: search: %w", err)
	}

	filtered := filterByPermissionAndDedupe(ctx, deps, results)
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	if len(filtered) == 0 {
		return "No accessible results found.", nil
	}
	return formatResults(filtered), nil
}

// filterByPermissionAndDedupe drops documents the user cannot access, keeps
// only the highest-scoring chunk per documentId, and sorts the remainder
// by descending score.
func filterByPermissionAndDedupe(ctx context.Context, deps *Deps, results []vectorstore.ScoredChunk) []vectorstore.ScoredChunk {
	best := make(map[string]vectorstore.ScoredChunk)
	for _, r := range results {
		doc := models.KnowledgeDocument{
			ID:          r.Chunk.DocumentID,
			DriveID:     r.Chunk.DriveID,
			DriveItemID: r.Chunk.DriveItemID,
			WebURL:      r.Chunk.WebURL,
			SiteURL:     r.Chunk.SiteURL,
			SiteName:    r.Chunk.SiteName,
			Title:       r.Chunk.DocumentTitle,
			FileType:    r.Chunk.FileType,
		}
		if !deps.Permissions.Allowed(ctx, doc) {
			continue
		}
		if existing, ok := best[r.Chunk.DocumentID]; !ok || r.Score > existing.Score {
			best[r.Chunk.DocumentID] = r
		}
	}

	out := make([]vectorstore.ScoredChunk, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func formatResults(results []vectorstore.ScoredChunk) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s (%s)\n", i+1, r.Chunk.DocumentTitle, r.Chunk.WebURL)
		fmt.Fprintf(&b, "Site: %s | DriveId: %s | ItemId: %s | DocumentId: %s | Relevance: %.0f%%\n", r.Chunk.SiteName, r.Chunk.DriveID, r.Chunk.DriveItemID, r.Chunk.DocumentID, r.Score*100)
		fmt.Fprintf(&b, "%s\n\n", r.Chunk.ChunkText)
	}
	return strings.TrimSpace(b.String())
}

// kqlTools adds sharepoint_search for keyword-query retrieval.
func kqlTools(deps *Deps) map[string]Tool {
	return map[string]Tool{
		"sharepoint_search": {
			Declaration: &genai.FunctionDeclaration{
				Name:        "sharepoint_search",
				Description: "Runs a keyword search against SharePoint, scoped to the current site.",
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: map[string]*genai.Schema{"query": {Type: genai.TypeString}},
					Required:   []string{"query"},
				},
			},
			Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
				return sharepointSearch(ctx, deps, args)
			},
		},
	}
}

func sharepointSearch(ctx context.Context, deps *Deps, args map[string]interface{}) (string, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return "", fmt.Errorf("sharepoint_search requires a query")
	}

	docs, err := deps.Provider.Search(ctx, deps.Token, provider.SearchRequest{SiteURL: deps.ChatContext.SiteURL, Query: query})
	if err != nil {
		return "", fmt.Errorf("sharepoint_search: %w", err)
	}
	if len(docs) == 0 {
		return "No results found.", nil
	}

	var b strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, d.Title)
		fmt.Fprintf(&b, "URL: %s | DriveId: %s | ItemId: %s | Modified: %s\n\n", d.WebURL, d.DriveID, d.DriveItemID, d.LastModified.Format(time.RFC3339))
	}
	return strings.TrimSpace(b.String()), nil
}
