package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	embedCalls int
	batchCalls int
	batchTexts []string
	err        error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embedCalls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 0, 0}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batchCalls++
	c.batchTexts = append([]string(nil), texts...)
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 0, 0}
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int                    { return 3 }
func (c *countingEmbedder) ModelName() string                  { return "counting" }
func (c *countingEmbedder) Available(ctx context.Context) bool { return c.err == nil }
func (c *countingEmbedder) Close() error                       { return nil }

func TestCachedEmbedHitsCache(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, 10)

	first, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	second, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.embedCalls)
}

func TestCachedBatchEmbedsOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, 10)

	_, err := c.Embed(context.Background(), "cached")
	require.NoError(t, err)

	vecs, err := c.EmbedBatch(context.Background(), []string{"cached", "fresh"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []string{"fresh"}, inner.batchTexts)
	assert.Equal(t, 1, inner.batchCalls)

	// Everything now cached: no further inner calls.
	_, err = c.EmbedBatch(context.Background(), []string{"cached", "fresh"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.batchCalls)
}

func TestCachedErrorNotCached(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("down")}
	c := NewCachedEmbedder(inner, 10)

	_, err := c.Embed(context.Background(), "hello")
	require.Error(t, err)

	inner.err = nil
	vec, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
}

func TestCachedPassthrough(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, 0)

	assert.Equal(t, 3, c.Dimensions())
	assert.Equal(t, "counting", c.ModelName())
	assert.True(t, c.Available(context.Background()))
	assert.NoError(t, c.Close())
}
