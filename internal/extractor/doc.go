package extractor

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/richardlehane/mscfb"
)

const minDocRunLength = 4

// extractDoc reads the legacy binary .doc compound file format. It walks
// the OLE streams for "WordDocument" and pulls out runs of printable text;
// binary .doc text is UTF-16LE-ish with embedded formatting control bytes,
// so this is a best-effort heuristic rather than a full Word document
// model, same tradeoff mscfb+msoleps consumers commonly accept.
func extractDoc(content []byte) (string, error) {
	reader, err := mscfb.New(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("ole reader: %w", err)
	}

	var builder strings.Builder
	found := false
	for entry, err := reader.Next(); err == nil; entry, err = reader.Next() {
		if entry == nil {
			break
		}
		if entry.Name != "WordDocument" {
			continue
		}
		found = true
		buf := make([]byte, entry.Size)
		if _, err := reader.Read(buf); err != nil && len(buf) == 0 {
			continue
		}
		builder.WriteString(extractPrintableRuns(buf))
	}

	if !found {
		return "", fmt.Errorf("no WordDocument stream found in compound file")
	}
	text := builder.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no readable text in WordDocument stream")
	}
	return text, nil
}

// extractPrintableRuns scans a byte stream (native 1-byte-per-char or
// UTF-16LE with a null high byte for ASCII text) and collects runs of
// printable characters at least minDocRunLength long, separated by a space.
func extractPrintableRuns(buf []byte) string {
	var out strings.Builder
	var run []rune

	flush := func() {
		if len(run) >= minDocRunLength {
			if out.Len() > 0 {
				out.WriteRune(' ')
			}
			out.WriteString(string(run))
		}
		run = run[:0]
	}

	for i := 0; i < len(buf); i++ {
		b := buf[i]
		// Skip the null high byte of a UTF-16LE ASCII code unit.
		if b == 0 && i+1 < len(buf) && isPrintableByte(buf[i+1]) {
			continue
		}
		if isPrintableByte(b) {
			run = append(run, rune(b))
			continue
		}
		flush()
	}
	flush()
	return out.String()
}

func isPrintableByte(b byte) bool {
	r := rune(b)
	return unicode.IsPrint(r) && r < 128
}
