package extractor

import (
	"regexp"
	"strings"
)

var (
	multiSpace     = regexp.MustCompile(`[ \t]+`)
	multiNewline   = regexp.MustCompile(`\n{3,}`)
)

// Normalize applies the fixed cleanup pass every extractor's raw output
// goes through before chunking: CRLF/CR collapsed to LF, runs of spaces
// and tabs collapsed to one, runs of three or more newlines collapsed to
// two, and leading/trailing whitespace trimmed.
func Normalize(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = multiSpace.ReplaceAllString(s, " ")
	s = multiNewline.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = strings.Join(lines, "\n")

	return strings.TrimSpace(s)
}
