package embedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/gurag/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_Disabled(t *testing.T) {
	inner := mock.NewMockEmbedder()
	assert.Same(t, inner, Wrap(inner, 0, time.Minute))
	assert.Same(t, inner, Wrap(inner, 10, 0))
}

func TestEmbedder_CachesByText(t *testing.T) {
	inner := mock.NewMockEmbedder()
	cached := Wrap(inner, 10, time.Minute)
	ctx := context.Background()

	v1, err := cached.EmbedText(ctx, "what is rag")
	require.NoError(t, err)
	v2, err := cached.EmbedText(ctx, "what is rag")
	require.NoError(t, err)
	_, err = cached.EmbedText(ctx, "what is a transformer")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 2, inner.CallCount())
	assert.Equal(t, 2, cached.(*Embedder).Len())
}

func TestEmbedder_KeysAreExactText(t *testing.T) {
	inner := mock.NewMockEmbedder()
	inner.SetVector("rag", []float32{1, 0})
	inner.SetVector("rag ", []float32{0, 1})
	cached := Wrap(inner, 10, time.Minute).(*Embedder)
	ctx := context.Background()

	v1, err := cached.EmbedText(ctx, "rag")
	require.NoError(t, err)
	v2, err := cached.EmbedText(ctx, "rag ")
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 0}, v1)
	assert.Equal(t, []float32{0, 1}, v2)
	assert.ElementsMatch(t, []string{"rag", "rag "}, cached.cache.Keys())

	// A cached key always answers with its own vector.
	v1, err = cached.EmbedText(ctx, "rag")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, v1)
	assert.Equal(t, 2, inner.CallCount())
}

func TestEmbedder_ReturnsCopies(t *testing.T) {
	inner := mock.NewMockEmbedder()
	inner.SetVector("q", []float32{1, 2})
	cached := Wrap(inner, 10, time.Minute)
	ctx := context.Background()

	v1, err := cached.EmbedText(ctx, "q")
	require.NoError(t, err)
	v1[0] = 99

	v2, err := cached.EmbedText(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, v2)
}

func TestEmbedder_ErrorsNotCached(t *testing.T) {
	inner := mock.NewMockEmbedder()
	inner.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("down")
	}
	cached := Wrap(inner, 10, time.Minute)

	_, err := cached.EmbedText(context.Background(), "q")
	require.Error(t, err)
	_, err = cached.EmbedText(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, 2, inner.CallCount())
}
