package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/gurag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name    string
	results []*core.ExternalResult
	err     error
	calls   int
	lastMax int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(_ context.Context, _ []string, maxResults int) ([]*core.ExternalResult, error) {
	f.calls++
	f.lastMax = maxResults
	return f.results, f.err
}

func result(title string) *core.ExternalResult {
	return &core.ExternalResult{Content: title, SourceType: core.SourceTypeArxivPaper, SourceTitle: title}
}

func TestSearcher_ConcatenatesInOrder(t *testing.T) {
	arxiv := &fakeProvider{name: "arxiv", results: []*core.ExternalResult{result("a1"), result("a2")}}
	hf := &fakeProvider{name: "huggingface", results: []*core.ExternalResult{result("h1")}}

	s, err := NewSearcher([]Provider{arxiv, hf})
	require.NoError(t, err)

	results, err := s.Query(context.Background(), []string{"rag"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a1", results[0].SourceTitle)
	assert.Equal(t, "h1", results[2].SourceTitle)
	assert.Equal(t, DefaultMaxResultsPerSource, arxiv.lastMax)
	assert.Equal(t, DefaultMaxResultsPerSource, hf.lastMax)
}

func TestSearcher_EmptyKeywords(t *testing.T) {
	p := &fakeProvider{name: "arxiv"}
	s, err := NewSearcher([]Provider{p})
	require.NoError(t, err)

	results, err := s.Query(context.Background(), []string{})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, p.calls)
}

func TestSearcher_ProviderFailureKeepsOtherResults(t *testing.T) {
	cause := errors.New("connection reset")
	arxiv := &fakeProvider{name: "arxiv", err: cause}
	hf := &fakeProvider{name: "huggingface", results: []*core.ExternalResult{result("h1")}}

	s, err := NewSearcher([]Provider{arxiv, hf}, WithMaxResultsPerSource(5))
	require.NoError(t, err)

	results, err := s.Query(context.Background(), []string{"rag"})
	require.Len(t, results, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrFallbackSearch)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 5, hf.lastMax)

	var tierErr *core.TierError
	require.ErrorAs(t, err, &tierErr)
	assert.Equal(t, core.TierFallback, tierErr.Tier)
	assert.Equal(t, "arxiv.search", tierErr.Op)
}

func TestSearcher_AllProvidersFail(t *testing.T) {
	s, err := NewSearcher([]Provider{
		&fakeProvider{name: "arxiv", err: errors.New("a")},
		&fakeProvider{name: "huggingface", err: errors.New("b")},
	})
	require.NoError(t, err)

	results, err := s.Query(context.Background(), []string{"rag"})
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.ErrorIs(t, err, core.ErrFallbackSearch)
}

func TestNewSearcher_Options(t *testing.T) {
	_, err := NewSearcher(nil, WithMaxResultsPerSource(0))
	assert.ErrorIs(t, err, ErrInvalidMaxResults)

	s, err := NewSearcher([]Provider{nil, &fakeProvider{name: "x"}})
	require.NoError(t, err)
	assert.Len(t, s.Providers(), 1)
}

func TestDefaultProviders(t *testing.T) {
	providers, err := DefaultProviders()
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "arxiv", providers[0].Name())
	assert.Equal(t, "huggingface", providers[1].Name())
}
