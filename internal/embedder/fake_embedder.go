package embedder

import (
	"context"

	"knowledgeagent/internal/models"
)

// FakeEmbedder is a deterministic in-memory Embedder for indexer and chat
// tests. Vectors are derived from text length so order and distinctness
// are verifiable without a real model.
type FakeEmbedder struct {
	Err    error
	Calls  int
}

func (f *FakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, int, error) {
	f.Calls++
	if f.Err != nil {
		return nil, 0, f.Err
	}
	if len(texts) == 0 {
		return nil, 0, nil
	}

	out := make([][]float32, len(texts))
	tokens := 0
	for i, text := range texts {
		vec := make([]float32, models.EmbeddingDimension)
		seed := float32(len(text)%97+1) / 97.0
		for j := range vec {
			vec[j] = seed
		}
		out[i] = vec
		tokens += (len(text) + 3) / 4
	}
	return out, tokens, nil
}

var _ Embedder = (*FakeEmbedder)(nil)
