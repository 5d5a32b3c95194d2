package chat

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgeagent/internal/config"
	"knowledgeagent/internal/embedder"
	"knowledgeagent/internal/extractor"
	"knowledgeagent/internal/models"
	"knowledgeagent/internal/provider"
	"knowledgeagent/internal/vectorstore"
)

func newTestDeps(t *testing.T, mode models.SearchMode) (*Deps, *provider.FakeProvider, *vectorstore.FakeStore) {
	t.Helper()
	fakeProvider := provider.NewFakeProvider()
	fakeStore := vectorstore.NewFakeStore()
	cfg := &config.Config{ToolCallTimeoutSeconds: 5, ChatTimeoutSeconds: 30}

	deps := &Deps{
		Provider:    fakeProvider,
		Embedder:    &embedder.FakeEmbedder{},
		Store:       fakeStore,
		Extractor:   extractor.New(nil),
		Permissions: NewPermissionCache(fakeProvider, "delegated-token", nil),
		Cfg:         cfg,
		User:        models.DelegatedUser{ID: "u1", Name: "Ada", Email: "ada@example.com"},
		ChatContext: models.ChatContext{SiteURL: "https://contoso.sharepoint.com/sites/eng", SearchMode: mode},
		Token:       "delegated-token",
	}
	return deps, fakeProvider, fakeStore
}

func seedChunk(fakeStore *vectorstore.FakeStore, documentID, siteURL string) {
	fakeStore.UpsertChunks(context.Background(), []models.DocumentChunk{
		{
			ID:            documentID + "_chunk_0",
			DocumentID:    documentID,
			SiteURL:       siteURL,
			DocumentTitle: "Doc " + documentID,
			WebURL:        "https://contoso.sharepoint.com/doc/" + documentID,
			ChunkText:     "relevant content about the policy",
		},
	})
}

// TestKnowledgeSearch_FiltersToAccessibleDocumentsOnly covers C7's core
// permission-filtering contract: three documents are indexed, the user can
// access only one of them, and a query matching all three must surface
// exactly that one in the formatted result.
func TestKnowledgeSearch_FiltersToAccessibleDocumentsOnly(t *testing.T) {
	deps, fakeProvider, fakeStore := newTestDeps(t, models.SearchModeRAG)
	seedChunk(fakeStore, "doc-1", deps.ChatContext.SiteURL)
	seedChunk(fakeStore, "doc-2", deps.ChatContext.SiteURL)
	seedChunk(fakeStore, "doc-3", deps.ChatContext.SiteURL)

	fakeProvider.Accessible["doc-1"] = false
	fakeProvider.Accessible["doc-2"] = true
	fakeProvider.Accessible["doc-3"] = false

	out, err := knowledgeSearch(context.Background(), deps, map[string]interface{}{"query": "policy"})
	require.NoError(t, err)
	assert.Contains(t, out, "doc-2")
	assert.NotContains(t, out, "doc-1")
	assert.NotContains(t, out, "doc-3")
}

func TestKnowledgeSearch_NoAccessibleDocumentsReturnsEmptyMessage(t *testing.T) {
	deps, fakeProvider, fakeStore := newTestDeps(t, models.SearchModeRAG)
	seedChunk(fakeStore, "doc-1", deps.ChatContext.SiteURL)
	fakeProvider.Accessible["doc-1"] = false

	out, err := knowledgeSearch(context.Background(), deps, map[string]interface{}{"query": "policy"})
	require.NoError(t, err)
	assert.Equal(t, "No accessible results found.", out)
}

func TestKnowledgeSearch_MissingQueryErrors(t *testing.T) {
	deps, _, _ := newTestDeps(t, models.SearchModeRAG)
	_, err := knowledgeSearch(context.Background(), deps, map[string]interface{}{})
	assert.Error(t, err)
}

func TestPermissionCache_MemoizesVerdictAcrossCalls(t *testing.T) {
	fakeProvider := provider.NewFakeProvider()
	fakeProvider.Accessible["doc-1"] = true
	cache := NewPermissionCache(fakeProvider, "token", nil)
	doc := models.KnowledgeDocument{ID: "doc-1"}
	assert.True(t, cache.Allowed(context.Background(), doc))

	fakeProvider.Accessible["doc-1"] = false
	assert.True(t, cache.Allowed(context.Background(), doc), "second call should return the memoized verdict, not re-probe")
}

func TestReadFileContent_TruncatesLongContent(t *testing.T) {
	deps, fakeProvider, _ := newTestDeps(t, models.SearchModeRAG)
	longBody := ""
	for i := 0; i < 2000; i++ {
		longBody += "word "
	}
	fakeProvider.Content["item-1"] = buildDocxFixtureForChatTest(t, longBody)

	out, err := readFileContent(context.Background(), deps, map[string]interface{}{
		"driveId": "drive-1", "itemId": "item-1", "name": "notes.docx",
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), maxFileContentChars+len(truncationSuffix))
	assert.Contains(t, out, truncationSuffix)
}

// TestGetCurrentUser_FetchesDelegatedProfile covers §4.7's requirement that
// get_current_user fetches the profile under the user's own credential,
// not just echoes the identity already attached to the request.
func TestGetCurrentUser_FetchesDelegatedProfile(t *testing.T) {
	deps, fakeProvider, _ := newTestDeps(t, models.SearchModeKQL)
	deps.Token = "delegated-token"
	fakeProvider.Profiles = map[string]models.UserProfile{
		"delegated-token": {
			Name: "Ada", Email: "ada@example.com", JobTitle: "Engineer",
			Department: "R&D", Manager: "Grace",
		},
	}

	out, err := getCurrentUser(context.Background(), deps)
	require.NoError(t, err)
	assert.Contains(t, out, "title: Engineer")
	assert.Contains(t, out, "department: R&D")
	assert.Contains(t, out, "manager: Grace")
}

// TestGetCurrentUser_FallsBackToIdentityOnLookupFailure covers the failure
// path: a profile lookup failure must not fail the tool call, only omit
// the fields it couldn't fetch.
func TestGetCurrentUser_FallsBackToIdentityOnLookupFailure(t *testing.T) {
	deps, fakeProvider, _ := newTestDeps(t, models.SearchModeKQL)
	fakeProvider.ProfileErr = fmt.Errorf("upstream unavailable")

	out, err := getCurrentUser(context.Background(), deps)
	require.NoError(t, err)
	assert.Contains(t, out, "Ada")
	assert.Contains(t, out, "ada@example.com")
}

func TestReadFileContent_MissingArgsErrors(t *testing.T) {
	deps, _, _ := newTestDeps(t, models.SearchModeRAG)
	_, err := readFileContent(context.Background(), deps, map[string]interface{}{"driveId": "d"})
	assert.Error(t, err)
}

// TestAgentRun_TextOnlyResponse covers the simplest agent loop path: the
// model answers directly with no tool calls.
func TestAgentRun_TextOnlyResponse(t *testing.T) {
	deps, _, _ := newTestDeps(t, models.SearchModeKQL)
	fakeLLM := &FakeLLM{Sessions: []*FakeSession{
		{Responses: []*genai.GenerateContentResponse{TextResponse("Here is your answer.")}},
	}}
	agent := NewAgent(fakeLLM, nil)

	resp, err := agent.Run(context.Background(), deps, []models.ChatMessage{
		{Role: models.RoleUser, Content: "What's the vacation policy?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Here is your answer.", resp.Response)
	assert.Equal(t, models.SearchModeKQL, resp.SearchMode)
}

// TestAgentRun_DispatchesFunctionCallThenAnswers covers the tool-call loop:
// the model calls get_current_site, the agent executes the handler and
// feeds the result back, and the model then returns a final answer.
func TestAgentRun_DispatchesFunctionCallThenAnswers(t *testing.T) {
	deps, _, _ := newTestDeps(t, models.SearchModeKQL)
	fakeLLM := &FakeLLM{Sessions: []*FakeSession{
		{Responses: []*genai.GenerateContentResponse{
			FunctionCallResponse("get_current_site", map[string]interface{}{}),
			TextResponse("You're on the eng site."),
		}},
	}}
	agent := NewAgent(fakeLLM, nil)

	resp, err := agent.Run(context.Background(), deps, []models.ChatMessage{
		{Role: models.RoleUser, Content: "Which site am I on?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "You're on the eng site.", resp.Response)
}

func TestAgentRun_UnknownToolSurfacesAsToolErrorNotFatal(t *testing.T) {
	deps, _, _ := newTestDeps(t, models.SearchModeKQL)
	fakeLLM := &FakeLLM{Sessions: []*FakeSession{
		{Responses: []*genai.GenerateContentResponse{
			FunctionCallResponse("nonexistent_tool", map[string]interface{}{}),
			TextResponse("I couldn't use that tool, but here's what I know."),
		}},
	}}
	agent := NewAgent(fakeLLM, nil)

	resp, err := agent.Run(context.Background(), deps, []models.ChatMessage{
		{Role: models.RoleUser, Content: "Do the impossible thing."},
	})
	require.NoError(t, err)
	assert.Equal(t, "I couldn't use that tool, but here's what I know.", resp.Response)
}

// TestAgentRun_NilCandidateContentDoesNotPanic covers a safety-blocked
// candidate (Content == nil): the agent must return an empty final answer
// rather than panicking on the Content.Parts dereference.
func TestAgentRun_NilCandidateContentDoesNotPanic(t *testing.T) {
	deps, _, _ := newTestDeps(t, models.SearchModeKQL)
	fakeLLM := &FakeLLM{Sessions: []*FakeSession{
		{Responses: []*genai.GenerateContentResponse{NilContentResponse()}},
	}}
	agent := NewAgent(fakeLLM, nil)

	resp, err := agent.Run(context.Background(), deps, []models.ChatMessage{
		{Role: models.RoleUser, Content: "Say something unsafe."},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Response)
}

func TestAgentRun_NoMessagesErrors(t *testing.T) {
	deps, _, _ := newTestDeps(t, models.SearchModeKQL)
	agent := NewAgent(&FakeLLM{}, nil)
	_, err := agent.Run(context.Background(), deps, nil)
	assert.Error(t, err)
}

func buildDocxFixtureForChatTest(t *testing.T, body string) []byte {
	t.Helper()
	documentXML := fmt.Sprintf(`<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body><w:p><w:r><w:t>%s</w:t></w:r></w:p></w:body>
</w:document>`, body)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
