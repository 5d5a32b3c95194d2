package vectorstore

import (
	"context"
	"sort"

	"knowledgeagent/internal/models"
)

// FakeStore is an in-memory Store for indexer and chat tests.
type FakeStore struct {
	chunks map[string]models.DocumentChunk

	UpsertErr error
	DeleteErr error
	SearchErr error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{chunks: make(map[string]models.DocumentChunk)}
}

func (f *FakeStore) EnsureSchema(ctx context.Context) error { return nil }

func (f *FakeStore) UpsertChunks(ctx context.Context, chunks []models.DocumentChunk) (*UpsertResult, error) {
	if f.UpsertErr != nil {
		return nil, f.UpsertErr
	}
	for _, c := range chunks {
		f.chunks[c.ID] = c
	}
	return &UpsertResult{Succeeded: len(chunks)}, nil
}

func (f *FakeStore) DeleteByDocumentID(ctx context.Context, documentID string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	for id, c := range f.chunks {
		if c.DocumentID == documentID {
			delete(f.chunks, id)
		}
	}
	return nil
}

func (f *FakeStore) SearchSimilar(ctx context.Context, queryEmbedding []float32, opts SearchOptions) ([]ScoredChunk, error) {
	return f.search(opts)
}

func (f *FakeStore) SearchHybrid(ctx context.Context, queryEmbedding []float32, queryText string, opts SearchOptions) ([]ScoredChunk, error) {
	return f.search(opts)
}

func (f *FakeStore) search(opts SearchOptions) ([]ScoredChunk, error) {
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	var out []ScoredChunk
	for _, c := range f.chunks {
		if opts.SiteURL != "" && c.SiteURL != opts.SiteURL {
			continue
		}
		if len(opts.FileTypes) > 0 && !containsFileType(opts.FileTypes, c.FileType) {
			continue
		}
		out = append(out, ScoredChunk{Chunk: c, Score: 0.9})
		if len(out) >= topK {
			break
		}
	}
	return out, nil
}

func (f *FakeStore) GetStats(ctx context.Context) (*Stats, error) {
	return &Stats{DocumentCount: int64(len(f.chunks))}, nil
}

// Count returns the number of chunks currently stored, for test assertions.
func (f *FakeStore) Count() int { return len(f.chunks) }

// ChunksForDocument returns every stored chunk belonging to documentID, for
// test assertions.
func (f *FakeStore) ChunksForDocument(documentID string) []models.DocumentChunk {
	var out []models.DocumentChunk
	for _, c := range f.chunks {
		if c.DocumentID == documentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out
}

func containsFileType(types []models.FileType, target models.FileType) bool {
	for _, t := range types {
		if t == target {
			return true
		}
	}
	return false
}

var _ Store = (*FakeStore)(nil)
