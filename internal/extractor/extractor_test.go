package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgeagent/internal/models"
	"knowledgeagent/internal/provider"
)

func TestExtract_UnknownFileTypeReturnsEmptyTextWithoutError(t *testing.T) {
	e := New(nil)
	doc := models.KnowledgeDocument{FileType: models.FileTypeUnknown}
	text, err := e.Extract(context.Background(), doc, []byte("anything"))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtract_DocxBelowMinLengthDropsSilently(t *testing.T) {
	e := New(nil)
	content := buildDocxBytes(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body><w:p><w:r><w:t>Hi</w:t></w:r></w:p></w:body>
</w:document>`)
	doc := models.KnowledgeDocument{FileType: models.FileTypeDocx}
	text, err := e.Extract(context.Background(), doc, content)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtract_DocxAboveMinLengthSucceeds(t *testing.T) {
	e := New(nil)
	content := buildDocxBytes(t, sampleDocumentXML+sampleDocumentXML+sampleDocumentXML)
	doc := models.KnowledgeDocument{FileType: models.FileTypeDocx}
	text, err := e.Extract(context.Background(), doc, content)
	require.NoError(t, err)
	assert.NotEmpty(t, text)
}

func TestExtract_AspxRoutesToExtractAspx(t *testing.T) {
	e := New(nil)
	doc := models.KnowledgeDocument{FileType: models.FileTypeAspx}
	_, err := e.Extract(context.Background(), doc, []byte("anything"))
	assert.Error(t, err)
}

func TestExtractAspx_FallsBackToTagStrip(t *testing.T) {
	text, err := extractAspx([]provider.PagePart{{HTML: "<not <<malformed html"}})
	require.NoError(t, err)
	assert.NotEmpty(t, text)
}

func TestExtractAspx_ParsesWellFormedBody(t *testing.T) {
	text, err := extractAspx([]provider.PagePart{{HTML: "<html><body><p>Policy overview text.</p></body></html>"}})
	require.NoError(t, err)
	assert.Contains(t, text, "Policy overview text.")
}

func TestExtractAspx_StripsScriptAndMapsBlockNewlines(t *testing.T) {
	html := "<div><p>First part.</p><script>evil()</script><p>Second part.</p><br>Tail.</div>"
	text, err := extractAspx([]provider.PagePart{{HTML: html}})
	require.NoError(t, err)
	assert.Contains(t, text, "First part.")
	assert.Contains(t, text, "Second part.")
	assert.NotContains(t, text, "evil()")
}

func TestExtractAspx_FallsBackToPropertiesText(t *testing.T) {
	parts := []provider.PagePart{{
		Properties: map[string]interface{}{
			"properties": map[string]interface{}{
				"text": "<p>Legacy text part.</p>",
			},
		},
	}}
	text, err := extractAspx(parts)
	require.NoError(t, err)
	assert.Contains(t, text, "Legacy text part.")
}

func TestExtractAspx_NoContentErrors(t *testing.T) {
	_, err := extractAspx(nil)
	assert.Error(t, err)
}

func TestExtract_ExtractAspxViaExtractor(t *testing.T) {
	e := New(nil)
	doc := models.KnowledgeDocument{FileType: models.FileTypeAspx}
	parts := []provider.PagePart{{HTML: "<html><body><p>" + sampleRepeated("Long enough page content. ") + "</p></body></html>"}}
	text, err := e.ExtractAspx(context.Background(), doc, parts)
	require.NoError(t, err)
	assert.Contains(t, text, "Long enough page content.")
}

func sampleRepeated(s string) string {
	out := ""
	for i := 0; i < 5; i++ {
		out += s
	}
	return out
}
