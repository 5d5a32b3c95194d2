package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"knowledgeagent/internal/provider"
)

// htmlEntities covers the entities that actually show up in page-builder
// web part markup; anything else passes through unescaped by design.
var htmlEntities = []struct {
	entity string
	repl   string
}{
	{"&nbsp;", " "},
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", "\""},
	{"&#39;", "'"},
}

// blockTags close onto a newline per §4.2's stripping rule.
var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// extractAspx assembles a page's text from its structured web parts,
// preferring each part's HTML payload and falling back to its
// data.properties.text field, per §4.2.
func extractAspx(parts []provider.PagePart) (string, error) {
	var sections []string
	for _, part := range parts {
		html := part.HTML
		if html == "" {
			html = propertiesText(part.Properties)
		}
		if html == "" {
			continue
		}
		if text := stripAspxHTML(html); text != "" {
			sections = append(sections, text)
		}
	}

	joined := strings.TrimSpace(strings.Join(sections, "\n\n"))
	if joined == "" {
		return "", fmt.Errorf("no text content in aspx page parts")
	}
	return joined, nil
}

// propertiesText reads a legacy web part's data.properties.text field,
// the HTML-escaped plain-text fallback used when no innerHtml is present.
func propertiesText(data map[string]interface{}) string {
	props, ok := data["properties"].(map[string]interface{})
	if !ok {
		return ""
	}
	text, _ := props["text"].(string)
	return text
}

// stripAspxHTML runs the §4.2 strip: remove script/style subtrees, map
// block-closing tags and <br> to newlines, strip remaining tags, decode
// entities. Falls back to a manual scan when goquery can't parse the input.
func stripAspxHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return stripTags(html)
	}

	doc.Find("script, style").Remove()
	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithHtml("\n")
	})
	for tag := range blockTags {
		doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
			s.AppendHtml("\n")
		})
	}

	return strings.TrimSpace(doc.Text())
}

// stripTags is the manual strip path: manualStrip, then entity decoding,
// with the result trimmed.
func stripTags(html string) string {
	return strings.TrimSpace(decodeEntities(manualStrip(html)))
}

// manualStrip removes <script>/<style> subtrees, maps block-closing tags
// and <br> to newlines, then strips whatever tags remain. Used only when
// the input is too malformed for goquery to parse.
func manualStrip(html string) string {
	html = removeSubtree(html, "script")
	html = removeSubtree(html, "style")

	var b strings.Builder
	inTag := false
	var tag strings.Builder
	for i := 0; i < len(html); i++ {
		c := html[i]
		switch {
		case c == '<':
			inTag = true
			tag.Reset()
		case c == '>':
			inTag = false
			if isNewlineTag(tag.String()) {
				b.WriteByte('\n')
			}
		case inTag:
			tag.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// isNewlineTag reports whether a tag's raw inner text (e.g. "/p", "br/")
// names a block-closing tag or <br>.
func isNewlineTag(raw string) bool {
	name := strings.TrimSpace(raw)
	closing := strings.HasPrefix(name, "/")
	name = strings.TrimPrefix(name, "/")
	if idx := strings.IndexAny(name, " \t\n/"); idx >= 0 {
		name = name[:idx]
	}
	name = strings.ToLower(name)
	return name == "br" || (closing && blockTags[name])
}

// removeSubtree drops every <tag>...</tag> span, case-insensitively.
func removeSubtree(html, tag string) string {
	lower := strings.ToLower(html)
	openTag := "<" + tag
	closeTag := "</" + tag + ">"

	var b strings.Builder
	i := 0
	for i < len(html) {
		idx := strings.Index(lower[i:], openTag)
		if idx < 0 {
			b.WriteString(html[i:])
			break
		}
		start := i + idx
		b.WriteString(html[i:start])

		closeIdx := strings.Index(lower[start:], closeTag)
		if closeIdx < 0 {
			break
		}
		i = start + closeIdx + len(closeTag)
	}
	return b.String()
}

func decodeEntities(s string) string {
	for _, e := range htmlEntities {
		s = strings.ReplaceAll(s, e.entity, e.repl)
	}
	return s
}
