package extractor

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"knowledgeagent/internal/models"
	"knowledgeagent/internal/provider"
	"knowledgeagent/internal/telemetry"
)

const minExtractedLength = 50

// Extractor dispatches content extraction by document fileType.
type Extractor struct {
	metrics *telemetry.Metrics
}

func New(metrics *telemetry.Metrics) *Extractor {
	return &Extractor{metrics: metrics}
}

// Extract returns the normalized plain text for a document's raw bytes, or
// an empty string if the result is too short to be worth chunking. Errors
// returned here are content-shape errors (wrong/corrupt bytes for the
// claimed fileType), not transport errors.
func (e *Extractor) Extract(ctx context.Context, doc models.KnowledgeDocument, content []byte) (string, error) {
	tracer := otel.Tracer("knowledgeagent/extractor")
	ctx, span := tracer.Start(ctx, "extractor.extract")
	defer span.End()
	span.SetAttributes(attribute.String("document.file_type", string(doc.FileType)))

	start := time.Now()
	var raw string
	var err error

	switch doc.FileType {
	case models.FileTypePDF:
		raw, err = extractPDF(content)
	case models.FileTypeDoc:
		raw, err = extractDoc(content)
	case models.FileTypeDocx:
		raw, err = extractDocx(content)
	case models.FileTypeAspx:
		err = fmt.Errorf("aspx documents must be extracted via ExtractAspx with fetched page parts")
	default:
		return e.finish(doc, start, "", nil)
	}

	return e.finish(doc, start, raw, err)
}

// ExtractAspx returns the normalized plain text for a page document's
// structured web parts, fetched separately via provider.GetAspxParts since
// aspx pages have no single byte payload to download.
func (e *Extractor) ExtractAspx(ctx context.Context, doc models.KnowledgeDocument, parts []provider.PagePart) (string, error) {
	tracer := otel.Tracer("knowledgeagent/extractor")
	ctx, span := tracer.Start(ctx, "extractor.extractAspx")
	defer span.End()
	span.SetAttributes(attribute.String("document.file_type", string(doc.FileType)))

	start := time.Now()
	raw, err := extractAspx(parts)
	return e.finish(doc, start, raw, err)
}

func (e *Extractor) finish(doc models.KnowledgeDocument, start time.Time, raw string, err error) (string, error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	if e.metrics != nil {
		e.metrics.RecordExtraction(duration, string(doc.FileType), status)
	}
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", doc.FileType, err)
	}

	normalized := Normalize(raw)
	if len(normalized) < minExtractedLength {
		return "", nil
	}
	return normalized, nil
}
