package indexer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"knowledgeagent/internal/chunker"
	"knowledgeagent/internal/config"
	"knowledgeagent/internal/embedder"
	"knowledgeagent/internal/extractor"
	"knowledgeagent/internal/identity"
	"knowledgeagent/internal/models"
	"knowledgeagent/internal/provider"
	"knowledgeagent/internal/telemetry"
	"knowledgeagent/internal/vectorstore"
)

// Pipeline runs one indexing pass: search, then per-document
// extract/chunk/embed/replace, with failures isolated to the document that
// caused them.
type Pipeline struct {
	Provider  provider.Provider
	Extractor *extractor.Extractor
	Embedder  embedder.Embedder
	Store     vectorstore.Store
	Exchanger *identity.Exchanger
	Metrics   *telemetry.Metrics
	ChunkOpts chunker.Options
}

func New(cfg *config.Config, prov provider.Provider, ext *extractor.Extractor, emb embedder.Embedder, store vectorstore.Store, exchanger *identity.Exchanger, metrics *telemetry.Metrics) *Pipeline {
	return &Pipeline{
		Provider:  prov,
		Extractor: ext,
		Embedder:  emb,
		Store:     store,
		Exchanger: exchanger,
		Metrics:   metrics,
		ChunkOpts: chunker.Options{
			ChunkSize:    cfg.ChunkSize,
			ChunkOverlap: cfg.ChunkOverlap,
			MinChunkSize: cfg.MinChunkSize,
		},
	}
}

// RunPass executes one full indexing pass and returns an accumulated
// result even when individual documents fail; a document-level failure is
// recorded in Errors and does not abort the pass.
func (p *Pipeline) RunPass(ctx context.Context, opts models.IndexerRunOptions) (*models.IndexerResult, error) {
	start := time.Now()
	tracer := otel.Tracer("knowledgeagent/indexer")
	ctx, span := tracer.Start(ctx, "indexer.run_pass")
	defer span.End()
	span.SetAttributes(attribute.String("indexer.trigger", opts.Trigger))

	var token string
	if p.Exchanger != nil {
		var err error
		token, err = p.Exchanger.AppOnlyToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("run pass: acquire app-only token: %w", err)
		}
	}

	docs, err := p.Provider.Search(ctx, token, provider.SearchRequest{SiteURL: opts.SiteURL, DaysBack: opts.DaysBack})
	if err != nil {
		return nil, fmt.Errorf("run pass: search: %w", err)
	}

	result := &models.IndexerResult{DocumentsFound: len(docs)}

	for _, doc := range docs {
		chunksWritten, err := p.processDocument(ctx, token, doc, opts.SkipEmbeddings)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", doc.Title, err))
			if p.Metrics != nil {
				p.Metrics.RecordDocumentIndexed("error")
			}
			continue
		}
		result.DocumentsProcessed++
		result.ChunksCreated += chunksWritten
		if p.Metrics != nil {
			p.Metrics.RecordDocumentIndexed("success")
		}
	}

	result.DurationMs = time.Since(start).Milliseconds()
	if p.Metrics != nil {
		p.Metrics.RecordIndexerRun(time.Since(start).Seconds(), opts.Trigger)
	}
	return result, nil
}

// processDocument runs the per-document pipeline: extract, chunk, embed
// (unless skipped), then delete-then-insert replacement in the vector
// store, and returns the number of chunks produced. In skip-embeddings
// (test) mode, chunks are counted but never embedded, deleted, or stored —
// the live index is left untouched.
func (p *Pipeline) processDocument(ctx context.Context, token string, doc models.KnowledgeDocument, skipEmbeddings bool) (int, error) {
	text, err := p.extractText(ctx, token, doc)
	if err != nil {
		return 0, err
	}
	if text == "" {
		return 0, nil
	}

	textChunks := chunker.Chunk(text, p.ChunkOpts)
	if len(textChunks) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	chunks := make([]models.DocumentChunk, len(textChunks))
	texts := make([]string, len(textChunks))
	for i, tc := range textChunks {
		chunks[i] = models.DocumentChunk{
			ID:                 models.ChunkID(doc.ID, tc.Index),
			DocumentID:         doc.ID,
			DriveID:            doc.DriveID,
			DriveItemID:        doc.DriveItemID,
			WebURL:             doc.WebURL,
			SiteURL:            doc.SiteURL,
			SiteName:           doc.SiteName,
			DocumentTitle:      doc.Title,
			FileType:           doc.FileType,
			ChunkIndex:         tc.Index,
			ChunkText:          tc.Text,
			DocumentModifiedAt: doc.LastModified,
			IndexedAt:          now,
		}
		texts[i] = tc.Text
	}

	if skipEmbeddings {
		return len(chunks), nil
	}

	vectors, tokens, err := p.Embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embed: got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for i, vec := range vectors {
		chunks[i].Embedding = vec
	}
	if p.Metrics != nil {
		p.Metrics.RecordLLMTokens(int64(tokens), "embedding")
	}

	if err := p.Store.DeleteByDocumentID(ctx, doc.ID); err != nil {
		return 0, fmt.Errorf("delete existing chunks: %w", err)
	}

	upsertResult, err := p.Store.UpsertChunks(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("upsert chunks: %w", err)
	}
	if p.Metrics != nil {
		p.Metrics.RecordChunksWritten(int64(upsertResult.Succeeded))
	}
	if upsertResult.Failed > 0 {
		return 0, fmt.Errorf("upsert chunks: %d of %d failed: %v", upsertResult.Failed, len(chunks), upsertResult.SampleErrors)
	}

	return len(chunks), nil
}

// extractText downloads and extracts a document's text, branching to the
// page-parts path for aspx documents since they have no single byte
// payload to download.
func (p *Pipeline) extractText(ctx context.Context, token string, doc models.KnowledgeDocument) (string, error) {
	if doc.FileType == models.FileTypeAspx {
		parts, err := p.Provider.GetAspxParts(ctx, token, doc)
		if err != nil {
			return "", fmt.Errorf("get aspx parts: %w", err)
		}
		text, err := p.Extractor.ExtractAspx(ctx, doc, parts)
		if err != nil {
			return "", fmt.Errorf("extract: %w", err)
		}
		return text, nil
	}

	content, err := p.Provider.DownloadBytes(ctx, token, doc)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}

	text, err := p.Extractor.Extract(ctx, doc, content)
	if err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}
	return text, nil
}
