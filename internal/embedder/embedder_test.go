package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgeagent/internal/models"
)

func TestFakeEmbedder_EmptyInputReturnsNothing(t *testing.T) {
	f := &FakeEmbedder{}
	out, tokens, err := f.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, 0, tokens)
	assert.Equal(t, 1, f.Calls)
}

func TestFakeEmbedder_PreservesOrderAndDimension(t *testing.T) {
	f := &FakeEmbedder{}
	texts := []string{"alpha", "beta beta beta", "gamma gamma gamma gamma gamma"}
	out, tokens, err := f.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, vec := range out {
		assert.Len(t, vec, models.EmbeddingDimension)
	}
	assert.Greater(t, tokens, 0)
}

func TestFakeEmbedder_PropagatesError(t *testing.T) {
	f := &FakeEmbedder{Err: errors.New("embedding provider unavailable")}
	_, _, err := f.Embed(context.Background(), []string{"x"})
	assert.Error(t, err)
}
