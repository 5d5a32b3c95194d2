package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// docx is a zip archive of OOXML parts; the document body lives at
// word/document.xml. No example repo in the corpus carries an OOXML
// parser, so this walks the zip and flattens <w:t> text runs with the
// standard library directly — the one component in this package with no
// third-party library backing it.
func extractDocx(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("docx zip: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("docx archive missing word/document.xml")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("docx open document.xml: %w", err)
	}
	defer rc.Close()

	text, err := extractWordRuns(rc)
	if err != nil {
		return "", fmt.Errorf("docx parse document.xml: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text runs in docx body")
	}
	return text, nil
}

// extractWordRuns decodes document.xml as a token stream, emitting the
// character data of every <w:t> element and a paragraph break on every
// closing </w:p>.
func extractWordRuns(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var builder strings.Builder
	inTextRun := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inTextRun = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inTextRun = false
			case "p":
				builder.WriteString("\n")
			}
		case xml.CharData:
			if inTextRun {
				builder.Write(t)
			}
		}
	}
	return builder.String(), nil
}
