package vectorstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgeagent/internal/models"
)

func TestBuildFilter_EmptyOptionsProducesNoClause(t *testing.T) {
	assert.Equal(t, "", buildFilter(SearchOptions{}))
}

func TestBuildFilter_SiteURLOnly(t *testing.T) {
	assert.Equal(t, "siteUrl eq 'https://contoso.sharepoint.com/sites/hr'", buildFilter(SearchOptions{SiteURL: "https://contoso.sharepoint.com/sites/hr"}))
}

func TestBuildFilter_JoinsSiteAndFileTypes(t *testing.T) {
	filter := buildFilter(SearchOptions{SiteURL: "site", FileTypes: []models.FileType{models.FileTypePDF, models.FileTypeDocx}})
	assert.Equal(t, "siteUrl eq 'site' and (fileType eq 'pdf' or fileType eq 'docx')", filter)
}

func TestEscapeODataLiteral_EscapesQuotes(t *testing.T) {
	assert.Equal(t, "O''Brien", escapeODataLiteral("O'Brien"))
}

func TestFakeStore_UpsertThenDeleteByDocumentID(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()

	chunks := []models.DocumentChunk{
		{ID: "doc1_chunk_0", DocumentID: "doc1", ChunkText: "a"},
		{ID: "doc1_chunk_1", DocumentID: "doc1", ChunkText: "b"},
		{ID: "doc2_chunk_0", DocumentID: "doc2", ChunkText: "c"},
	}
	result, err := store.UpsertChunks(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 3, store.Count())

	require.NoError(t, store.DeleteByDocumentID(ctx, "doc1"))
	assert.Equal(t, 1, store.Count())
	assert.Empty(t, store.ChunksForDocument("doc1"))
	assert.Len(t, store.ChunksForDocument("doc2"), 1)
}

func TestFakeStore_DeleteOfUnknownDocumentIsNoop(t *testing.T) {
	store := NewFakeStore()
	require.NoError(t, store.DeleteByDocumentID(context.Background(), "never-indexed"))
}

func TestFakeStore_SearchFiltersBySiteURL(t *testing.T) {
	store := NewFakeStore()
	_, err := store.UpsertChunks(context.Background(), []models.DocumentChunk{
		{ID: "a", DocumentID: "doc1", SiteURL: "https://site-a", IndexedAt: time.Now()},
		{ID: "b", DocumentID: "doc2", SiteURL: "https://site-b", IndexedAt: time.Now()},
	})
	require.NoError(t, err)

	results, err := store.SearchSimilar(context.Background(), []float32{0.1}, SearchOptions{SiteURL: "https://site-a"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc1", results[0].Chunk.DocumentID)
}
