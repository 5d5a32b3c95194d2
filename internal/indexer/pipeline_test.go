package indexer

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgeagent/internal/chunker"
	"knowledgeagent/internal/embedder"
	"knowledgeagent/internal/extractor"
	"knowledgeagent/internal/models"
	"knowledgeagent/internal/provider"
	"knowledgeagent/internal/vectorstore"
)

// buildDocxFixture packages body text as a minimal word/document.xml inside
// a zip, the same shape extractDocx expects.
func buildDocxFixture(t *testing.T, body string) []byte {
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

func newTestPipeline(t *testing.T) (*Pipeline, *provider.FakeProvider, *embedder.FakeEmbedder, *vectorstore.FakeStore) {
	t.Helper()
	fakeProvider := provider.NewFakeProvider()
	fakeEmbedder := &embedder.FakeEmbedder{}
	fakeStore := vectorstore.NewFakeStore()

	p := &Pipeline{
		Provider:  fakeProvider,
		Extractor: extractor.New(nil),
		Embedder:  fakeEmbedder,
		Store:     fakeStore,
		Exchanger: nil,
		ChunkOpts: chunker.Options{ChunkSize: 1500, ChunkOverlap: 200, MinChunkSize: 100},
	}
	return p, fakeProvider, fakeEmbedder, fakeStore
}

func longDocxBytes(t *testing.T) []byte {
	var repeated string
	for i := 0; i < 30; i++ {
		repeated += "This is a sentence about company policy and procedures. "
	}
	return buildDocxFixture(t, repeated)
}

// TestProcessDocument_FreshIndexCreatesChunks covers the single-document
// fresh-index scenario: download, extract, chunk, embed, and upsert all
// succeed and produce at least one stored chunk.
func TestProcessDocument_FreshIndexCreatesChunks(t *testing.T) {
	p, fakeProvider, _, fakeStore := newTestPipeline(t)
	doc := models.KnowledgeDocument{ID: "doc-1", FileType: models.FileTypeDocx, Title: "Policy"}
	fakeProvider.Content[doc.ID] = longDocxBytes(t)

	chunksWritten, err := p.processDocument(context.Background(), "token", doc, false)
	require.NoError(t, err)
	assert.NotEmpty(t, fakeStore.ChunksForDocument("doc-1"))
	assert.Equal(t, len(fakeStore.ChunksForDocument("doc-1")), chunksWritten)
}

// TestProcessDocument_ReplaceSemantics covers re-indexing the same document:
// a second pass must delete the previous chunk set before writing the new
// one, leaving no stale chunks behind.
func TestProcessDocument_ReplaceSemantics(t *testing.T) {
	p, fakeProvider, _, fakeStore := newTestPipeline(t)
	doc := models.KnowledgeDocument{ID: "doc-1", FileType: models.FileTypeDocx}
	fakeProvider.Content[doc.ID] = longDocxBytes(t)

	_, err := p.processDocument(context.Background(), "token", doc, false)
	require.NoError(t, err)
	firstCount := len(fakeStore.ChunksForDocument("doc-1"))
	require.Greater(t, firstCount, 0)

	_, err = p.processDocument(context.Background(), "token", doc, false)
	require.NoError(t, err)
	secondCount := len(fakeStore.ChunksForDocument("doc-1"))
	assert.Equal(t, firstCount, secondCount)
}

// TestProcessDocument_ExtractionFailureIsolated covers one document's
// extraction failure not stopping the next document from being indexed.
func TestProcessDocument_ExtractionFailureIsolated(t *testing.T) {
	p, fakeProvider, _, fakeStore := newTestPipeline(t)
	bad := models.KnowledgeDocument{ID: "bad-doc", FileType: models.FileTypeDocx}
	good := models.KnowledgeDocument{ID: "good-doc", FileType: models.FileTypeDocx}
	fakeProvider.Content[bad.ID] = []byte("not a zip file")
	fakeProvider.Content[good.ID] = longDocxBytes(t)
	fakeProvider.Documents = []models.KnowledgeDocument{bad, good}

	_, err := p.processDocument(context.Background(), "token", bad, false)
	assert.Error(t, err)
	_, err = p.processDocument(context.Background(), "token", good, false)
	assert.NoError(t, err)
	assert.NotEmpty(t, fakeStore.ChunksForDocument("good-doc"))
}

func TestProcessDocument_ShortTextSkipsWithoutError(t *testing.T) {
	p, fakeProvider, _, fakeStore := newTestPipeline(t)
	doc := models.KnowledgeDocument{ID: "short-doc", FileType: models.FileTypeDocx}
	fakeProvider.Content[doc.ID] = buildDocxFixture(t, "Hi")

	chunksWritten, err := p.processDocument(context.Background(), "token", doc, false)
	require.NoError(t, err)
	assert.Equal(t, 0, chunksWritten)
	assert.Empty(t, fakeStore.ChunksForDocument("short-doc"))
}

// TestProcessDocument_SkipEmbeddingsLeavesIndexUntouched covers test-mode
// (§4.6 "count but do not embed or store"): chunks are counted, the
// embedder is never called, and the live index is left exactly as it was.
func TestProcessDocument_SkipEmbeddingsLeavesIndexUntouched(t *testing.T) {
	p, fakeProvider, fakeEmbedder, fakeStore := newTestPipeline(t)
	doc := models.KnowledgeDocument{ID: "doc-2", FileType: models.FileTypeDocx}
	fakeProvider.Content[doc.ID] = longDocxBytes(t)

	existing := fakeStore.ChunksForDocument("doc-2")

	chunksWritten, err := p.processDocument(context.Background(), "token", doc, true)
	require.NoError(t, err)
	assert.Equal(t, 0, fakeEmbedder.Calls)
	assert.Greater(t, chunksWritten, 0)
	assert.Equal(t, existing, fakeStore.ChunksForDocument("doc-2"))
}

// TestProcessDocument_SkipEmbeddingsDoesNotDeleteExistingChunks covers the
// same test-mode guarantee against a document that already has chunks
// indexed: a test run must not touch them.
func TestProcessDocument_SkipEmbeddingsDoesNotDeleteExistingChunks(t *testing.T) {
	p, fakeProvider, _, fakeStore := newTestPipeline(t)
	doc := models.KnowledgeDocument{ID: "doc-3", FileType: models.FileTypeDocx}
	fakeProvider.Content[doc.ID] = longDocxBytes(t)

	_, err := p.processDocument(context.Background(), "token", doc, false)
	require.NoError(t, err)
	before := fakeStore.ChunksForDocument("doc-3")
	require.NotEmpty(t, before)

	chunksWritten, err := p.processDocument(context.Background(), "token", doc, true)
	require.NoError(t, err)
	assert.Greater(t, chunksWritten, 0)
	assert.Equal(t, before, fakeStore.ChunksForDocument("doc-3"))
}

// TestProcessDocument_AspxFetchesPagePartsInsteadOfDownloading covers §4.2:
// aspx documents are indexed from structured page parts resolved via site
// id, not from a downloaded byte payload.
func TestProcessDocument_AspxFetchesPagePartsInsteadOfDownloading(t *testing.T) {
	p, fakeProvider, _, fakeStore := newTestPipeline(t)
	doc := models.KnowledgeDocument{
		ID:       "page-1",
		FileType: models.FileTypeAspx,
		WebURL:   "https://contoso.sharepoint.com/sites/eng/SitePages/policy.aspx",
	}
	fakeProvider.SiteIDs["contoso.sharepoint.com/eng"] = "site-123"
	var body string
	for i := 0; i < 30; i++ {
		body += "This page describes company policy and procedures in detail. "
	}
	fakeProvider.Pages["site-123/policy.aspx"] = []provider.PagePart{{HTML: "<p>" + body + "</p>"}}

	chunksWritten, err := p.processDocument(context.Background(), "token", doc, false)
	require.NoError(t, err)
	assert.Greater(t, chunksWritten, 0)
	assert.NotEmpty(t, fakeStore.ChunksForDocument("page-1"))
}

func TestRunPass_AccumulatesAcrossDocuments(t *testing.T) {
	p, fakeProvider, _, fakeStore := newTestPipeline(t)
	docA := models.KnowledgeDocument{ID: "a", FileType: models.FileTypeDocx, LastModified: time.Now()}
	docB := models.KnowledgeDocument{ID: "b", FileType: models.FileTypeDocx, LastModified: time.Now()}
	fakeProvider.Documents = []models.KnowledgeDocument{docA, docB}
	fakeProvider.Content[docA.ID] = longDocxBytes(t)
	fakeProvider.Content[docB.ID] = longDocxBytes(t)
	p.Exchanger = nil

	result, err := p.RunPass(context.Background(), models.IndexerRunOptions{Trigger: "manual-test"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DocumentsFound)
	assert.Equal(t, 2, result.DocumentsProcessed)
	assert.Empty(t, result.Errors)
	assert.NotEmpty(t, fakeStore.ChunksForDocument("a"))
	assert.NotEmpty(t, fakeStore.ChunksForDocument("b"))
	assert.Equal(t, result.ChunksCreated, len(fakeStore.ChunksForDocument("a"))+len(fakeStore.ChunksForDocument("b")))
}
