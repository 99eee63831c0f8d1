package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/gurag/ai/mock"
	"github.com/poiesic/gurag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCache records writes and never hits.
type recordingCache struct {
	writes  int
	sources []core.SourceRef
	err     error
}

func (r *recordingCache) Lookup(context.Context, []float32) (*core.CacheMatch, error) {
	return nil, nil
}

func (r *recordingCache) Write(_ context.Context, query string, _ []float32, response string, sources []core.SourceRef) (*core.CacheEntry, error) {
	r.writes++
	r.sources = sources
	if r.err != nil {
		return nil, r.err
	}
	return &core.CacheEntry{QueryText: query, ResponseText: response, Sources: sources}, nil
}

func newApplyOrchestrator(t *testing.T, c CacheTier, ingester Ingester) *Orchestrator {
	t.Helper()
	o, err := New(c, failingVector{}, &fakeFallback{}, ingester, mock.NewMockProvider())
	require.NoError(t, err)
	return o
}

func TestApply_CacheHitReplaysEntry(t *testing.T) {
	c := &recordingCache{}
	ingester := &stubIngester{}
	o := newApplyOrchestrator(t, c, ingester)

	stored := []core.SourceRef{{SourceType: core.SourceTypeExpertInsight, Title: "notes", RelevanceScore: 0.9}}
	resp, err := o.apply(context.Background(), "q", []string{"k"}, &Outcome{
		Path:   core.SearchPathCacheHit,
		Cached: &core.CacheEntry{ResponseText: "cached answer", Sources: stored},
	})
	require.NoError(t, err)
	assert.Equal(t, "cached answer", resp.Response)
	assert.Equal(t, stored, resp.Sources)
	assert.Equal(t, 0, c.writes)
	assert.Equal(t, 0, ingester.calls)
}

func TestApply_VectorHitScoresSources(t *testing.T) {
	c := &recordingCache{}
	ingester := &stubIngester{}
	o := newApplyOrchestrator(t, c, ingester)

	resp, err := o.apply(context.Background(), "q", []string{"k"}, &Outcome{
		Path:        core.SearchPathVectorHit,
		QueryVector: []float32{1},
		Matches: []*core.KnowledgeMatch{
			{Entry: &core.KnowledgeEntry{Content: "a", SourceType: core.SourceTypeManual, SourceTitle: "A"}, FinalScore: 0.895},
			{Entry: &core.KnowledgeEntry{Content: "b", SourceType: core.SourceTypeArxivPaper, SourceTitle: "B"}, FinalScore: 0.815},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "answer to q from 2 sources", resp.Response)
	require.Len(t, resp.Sources, 2)
	assert.Equal(t, 0.895, resp.Sources[0].RelevanceScore)
	assert.Equal(t, "B", resp.Sources[1].Title)
	assert.Equal(t, 1, c.writes)
	assert.Equal(t, resp.Sources, c.sources)
	assert.Equal(t, 0, ingester.calls, "vector hits are not written back")
}

func TestApply_MCPHitWritesBackAfterCaching(t *testing.T) {
	c := &recordingCache{}
	ingester := &stubIngester{}
	o := newApplyOrchestrator(t, c, ingester)

	resp, err := o.apply(context.Background(), "q", []string{"k"}, &Outcome{
		Path:        core.SearchPathMCPHit,
		QueryVector: []float32{1},
		External:    externalResults(),
	})
	require.NoError(t, err)
	assert.Len(t, resp.Sources, 2)
	assert.Equal(t, 1, c.writes)
	assert.Equal(t, 1, ingester.calls)
}

func TestApply_CacheWriteFailureIsFatal(t *testing.T) {
	c := &recordingCache{err: core.NewTierError(core.ErrStorage, core.TierCache, "write", errors.New("read-only"))}
	ingester := &stubIngester{}
	o := newApplyOrchestrator(t, c, ingester)

	_, err := o.apply(context.Background(), "q", []string{"k"}, &Outcome{
		Path:        core.SearchPathMCPHit,
		QueryVector: []float32{1},
		External:    externalResults(),
	})
	assert.ErrorIs(t, err, core.ErrStorage)
	assert.Equal(t, 0, ingester.calls)
}

func TestApply_NotFound(t *testing.T) {
	c := &recordingCache{}
	o := newApplyOrchestrator(t, c, &stubIngester{})

	resp, err := o.apply(context.Background(), "q", []string{}, &Outcome{Path: core.SearchPathNotFound})
	require.NoError(t, err)
	assert.Equal(t, notFoundEnglish, resp.Response)
	assert.Equal(t, []core.SourceRef{}, resp.Sources)
	assert.Equal(t, 0, c.writes)
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, notFoundEnglish, notFoundMessage("what is RAG?"))
	assert.Equal(t, notFoundKorean, notFoundMessage("RAG란 무엇인가?"))
	assert.Equal(t, notFoundEnglish, notFoundMessage("ㄱㄴㄷ"), "jamo are not syllables")
}
