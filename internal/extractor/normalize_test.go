package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_CollapsesCRLF(t *testing.T) {
	got := Normalize("line one\r\nline two\r\n")
	assert.Equal(t, "line one\nline two", got)
}

func TestNormalize_CollapsesExcessSpacesAndNewlines(t *testing.T) {
	got := Normalize("a   b\n\n\n\nc")
	assert.Equal(t, "a b\n\nc", got)
}

func TestNormalize_TrimsEnds(t *testing.T) {
	got := Normalize("  \n  hello world  \n  ")
	assert.Equal(t, "hello world", got)
}

func TestStripTags_DecodesEntities(t *testing.T) {
	got := stripTags("<p>Risk &amp; Compliance&nbsp;Policy</p>")
	assert.Equal(t, "Risk & Compliance Policy", got)
}

func TestStripTags_RemovesMarkup(t *testing.T) {
	got := stripTags("<div><b>Title</b><span>Body text</span></div>")
	assert.Equal(t, "TitleBody text", got)
}
