package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/gurag/ai"
	"github.com/poiesic/gurag/ai/mock"
	"github.com/poiesic/gurag/cache"
	"github.com/poiesic/gurag/core"
	"github.com/poiesic/gurag/ingestion"
	"github.com/poiesic/gurag/search"
	"github.com/poiesic/gurag/storage"
	"github.com/poiesic/gurag/storage/badger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	q1 = "What are the latest trends in retrieval augmented generation?"
	q2 = "Recent progress on RAG systems?"

	contentA = "Title: RAG survey\n\nAbstract: Retrieval augmented generation surveyed."
	contentB = "HuggingFace Model: facebook/rag-token-nq\n\nDescription: No description available"
)

var (
	q1Keywords = []string{"retrieval", "augmented", "generation"}
	q2Keywords = []string{"rag", "systems"}
)

// countingVector counts vector tier searches.
type countingVector struct {
	VectorTier
	mu    sync.Mutex
	calls int
}

func (c *countingVector) Search(ctx context.Context, keywords []string, limit int) ([]*core.KnowledgeMatch, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.VectorTier.Search(ctx, keywords, limit)
}

func (c *countingVector) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// fakeFallback returns canned external results.
type fakeFallback struct {
	mu      sync.Mutex
	results []*core.ExternalResult
	err     error
	calls   int
}

func (f *fakeFallback) Query(_ context.Context, keywords []string) ([]*core.ExternalResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.results, f.err
}

func (f *fakeFallback) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type harness struct {
	orch      *Orchestrator
	cache     *cache.SemanticCache
	cacheRepo storage.CacheRepository
	knowledge storage.KnowledgeRepository
	vector    *countingVector
	fallback  *fakeFallback
	provider  *mock.MockProvider
	metrics   *Metrics
}

func externalResults() []*core.ExternalResult {
	return []*core.ExternalResult{
		{
			Content:      contentA,
			SourceType:   core.SourceTypeArxivPaper,
			SourceURL:    "http://arxiv.org/abs/2312.10997v5",
			SourceTitle:  "RAG survey",
			SourceAuthor: "Yunfan Gao",
			Metadata:     map[string]any{"arxiv_id": "2312.10997v5"},
		},
		{
			Content:     contentB,
			SourceType:  core.SourceTypeHuggingFace,
			SourceURL:   "https://huggingface.co/facebook/rag-token-nq",
			SourceTitle: "facebook/rag-token-nq",
			Metadata:    map[string]any{"likes": 42},
		},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cacheRepo, knowledgeRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	embedder.SetVector(q1, []float32{1, 0, 0})
	embedder.SetVector(q2, []float32{0.8, 0.6, 0}) // cosine 0.80 against q1
	embedder.SetVector("retrieval augmented generation", []float32{0, 1, 0})
	embedder.SetVector("rag systems", []float32{0, 1, 0})
	embedder.SetVector(contentA, []float32{0, 0.95, 0.31})
	embedder.SetVector(contentB, []float32{0, 0.8, 0.6})

	extractor := mock.NewMockKeywordExtractor()
	extractor.ExtractKeywordsFunc = func(_ context.Context, query string) (*ai.Keywords, error) {
		switch query {
		case q1:
			return &ai.Keywords{Keywords: q1Keywords}, nil
		case q2:
			return &ai.Keywords{Keywords: q2Keywords}, nil
		default:
			return &ai.Keywords{Keywords: []string{}}, nil
		}
	}
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockGenerator(), extractor)

	semanticCache, err := cache.NewSemanticCache(cacheRepo)
	require.NoError(t, err)
	searcher, err := search.NewSearcher(knowledgeRepo, embedder)
	require.NoError(t, err)
	pipeline, err := ingestion.NewPipeline(knowledgeRepo, embedder, ingestion.WithPoolSize(2))
	require.NoError(t, err)

	h := &harness{
		cache:     semanticCache,
		cacheRepo: cacheRepo,
		knowledge: knowledgeRepo,
		vector:    &countingVector{VectorTier: searcher},
		fallback:  &fakeFallback{results: externalResults()},
		provider:  provider,
		metrics:   NewMetrics(prometheus.NewRegistry()),
	}
	h.orch, err = New(h.cache, h.vector, h.fallback, pipeline, provider, WithMetrics(h.metrics))
	require.NoError(t, err)

	t.Cleanup(func() {
		pipeline.Release()
		cacheRepo.Close()
		knowledgeRepo.Close()
		backend.Close()
	})
	return h
}

func (h *harness) cacheEntries(t *testing.T) int64 {
	t.Helper()
	stats, err := h.cache.Stats(context.Background())
	require.NoError(t, err)
	return stats.TotalEntries
}

func (h *harness) knowledgeEntries(t *testing.T) int64 {
	t.Helper()
	n, err := h.knowledge.CountKnowledgeEntries(context.Background())
	require.NoError(t, err)
	return n
}

func TestNew_RequiresCollaborators(t *testing.T) {
	h := newHarness(t)
	p := h.provider
	pipeline := &stubIngester{}

	_, err := New(nil, h.vector, h.fallback, pipeline, p)
	assert.Equal(t, ErrCacheTierRequired, err)
	_, err = New(h.cache, nil, h.fallback, pipeline, p)
	assert.Equal(t, ErrVectorTierRequired, err)
	_, err = New(h.cache, h.vector, nil, pipeline, p)
	assert.Equal(t, ErrFallbackTierRequired, err)
	_, err = New(h.cache, h.vector, h.fallback, nil, p)
	assert.Equal(t, ErrIngesterRequired, err)
	_, err = New(h.cache, h.vector, h.fallback, pipeline, nil)
	assert.Equal(t, ErrAIProviderRequired, err)
}

// Scenarios 1-3 share state: each step depends on what the previous one wrote.
func TestSearch_SelfLearningLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	generator := h.provider.GetMockGenerator()

	// 1. Unseen query, empty stores: answered from external search and learned.
	resp, err := h.orch.Search(ctx, q1)
	require.NoError(t, err)
	assert.Equal(t, core.SearchPathMCPHit, resp.SearchPath)
	assert.Equal(t, q1, resp.Query)
	assert.Equal(t, q1Keywords, resp.Keywords)
	assert.Equal(t, "answer to "+q1+" from 2 sources", resp.Response)
	require.Len(t, resp.Sources, 2)
	assert.Equal(t, core.SourceTypeArxivPaper, resp.Sources[0].SourceType)
	assert.Equal(t, "RAG survey", resp.Sources[0].Title)
	assert.Zero(t, resp.Sources[0].RelevanceScore)
	assert.GreaterOrEqual(t, resp.ProcessingTimeMs, 0.0)

	assert.Equal(t, 1, h.fallback.Calls())
	assert.Equal(t, 1, h.vector.Calls())
	assert.Equal(t, int64(2), h.knowledgeEntries(t), "fallback results are written back")
	assert.Equal(t, int64(1), h.cacheEntries(t))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Ingested.WithLabelValues(originFallback)))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.FallbackOutcomes.WithLabelValues(fallbackResults)))

	// 2. Verbatim repeat: served from the cache without touching lower tiers.
	resp, err = h.orch.Search(ctx, q1)
	require.NoError(t, err)
	assert.Equal(t, core.SearchPathCacheHit, resp.SearchPath)
	assert.Equal(t, "answer to "+q1+" from 2 sources", resp.Response)
	require.Len(t, resp.Sources, 2)
	assert.Equal(t, "RAG survey", resp.Sources[0].Title)
	assert.Equal(t, 1, h.vector.Calls())
	assert.Equal(t, 1, h.fallback.Calls())
	assert.Equal(t, 1, generator.CallCount())

	stats, err := h.cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalHits)

	// 3. Paraphrase below the cache threshold: answered from learned knowledge.
	resp, err = h.orch.Search(ctx, q2)
	require.NoError(t, err)
	assert.Equal(t, core.SearchPathVectorHit, resp.SearchPath)
	require.Len(t, resp.Sources, 2)
	assert.Equal(t, "RAG survey", resp.Sources[0].Title, "closest passage ranks first")
	assert.Greater(t, resp.Sources[0].RelevanceScore, resp.Sources[1].RelevanceScore)
	assert.Greater(t, resp.Sources[1].RelevanceScore, 0.0)
	assert.Equal(t, 1, h.fallback.Calls(), "no new external call")
	assert.Equal(t, int64(2), h.cacheEntries(t), "paraphrase gets its own cache entry")
	assert.Equal(t, int64(2), h.knowledgeEntries(t))

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Searches.WithLabelValues(string(core.SearchPathMCPHit))))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Searches.WithLabelValues(string(core.SearchPathCacheHit))))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Searches.WithLabelValues(string(core.SearchPathVectorHit))))
}

// 4. No keywords: not found without any embedding, store or provider call.
func TestSearch_EmptyKeywords(t *testing.T) {
	h := newHarness(t)
	embedder := h.provider.GetMockEmbedder()

	resp, err := h.orch.Search(context.Background(), "hello?")
	require.NoError(t, err)
	assert.Equal(t, core.SearchPathNotFound, resp.SearchPath)
	assert.Equal(t, notFoundEnglish, resp.Response)
	assert.Equal(t, []string{}, resp.Keywords)
	assert.Equal(t, []core.SourceRef{}, resp.Sources)

	assert.Equal(t, 0, embedder.CallCount())
	assert.Equal(t, 0, h.vector.Calls())
	assert.Equal(t, 0, h.fallback.Calls())
	assert.Equal(t, int64(0), h.cacheEntries(t))
}

func TestSearch_NothingFoundIsNotCached(t *testing.T) {
	h := newHarness(t)
	h.fallback.results = nil

	resp, err := h.orch.Search(context.Background(), q1)
	require.NoError(t, err)
	assert.Equal(t, core.SearchPathNotFound, resp.SearchPath)
	assert.Equal(t, int64(0), h.cacheEntries(t))
	assert.Equal(t, 0, h.provider.GetMockGenerator().CallCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.FallbackOutcomes.WithLabelValues(fallbackEmpty)))

	// Retried rather than served from cache.
	_, err = h.orch.Search(context.Background(), q1)
	require.NoError(t, err)
	assert.Equal(t, 2, h.fallback.Calls())
}

func TestSearch_ProviderFailureIsNotFound(t *testing.T) {
	h := newHarness(t)
	h.fallback.results = []*core.ExternalResult{}
	h.fallback.err = core.NewTierError(core.ErrFallbackSearch, core.TierFallback, "arxiv.search", errors.New("timeout"))

	resp, err := h.orch.Search(context.Background(), q1)
	require.NoError(t, err)
	assert.Equal(t, core.SearchPathNotFound, resp.SearchPath)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.FallbackOutcomes.WithLabelValues(fallbackProviderError)))
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.FallbackOutcomes.WithLabelValues(fallbackEmpty)))
}

func TestSearch_PartialProviderFailureStillAnswers(t *testing.T) {
	h := newHarness(t)
	h.fallback.results = externalResults()[:1]
	h.fallback.err = core.NewTierError(core.ErrFallbackSearch, core.TierFallback, "huggingface.search", errors.New("503"))

	resp, err := h.orch.Search(context.Background(), q1)
	require.NoError(t, err)
	assert.Equal(t, core.SearchPathMCPHit, resp.SearchPath)
	assert.Len(t, resp.Sources, 1)
	assert.Equal(t, int64(1), h.knowledgeEntries(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.FallbackOutcomes.WithLabelValues(fallbackProviderError)))
}

func TestSearch_KoreanNotFound(t *testing.T) {
	h := newHarness(t)

	resp, err := h.orch.Search(context.Background(), "검색 증강 생성의 최신 동향은?")
	require.NoError(t, err)
	assert.Equal(t, core.SearchPathNotFound, resp.SearchPath)
	assert.Equal(t, notFoundKorean, resp.Response)
}

func TestSearch_InvalidQuery(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, core.ErrEmptyQuery)
	assert.Equal(t, 0, h.provider.GetMockKeywordExtractor().CallCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Errors.WithLabelValues("validation")))
}

func TestSearch_KeywordExtractorFailure(t *testing.T) {
	h := newHarness(t)
	h.provider.GetMockKeywordExtractor().ExtractKeywordsFunc = func(context.Context, string) (*ai.Keywords, error) {
		return nil, errors.New("model unavailable")
	}
	h.fallback.results = nil

	resp, err := h.orch.Search(context.Background(), "Sparse mixture of experts")
	require.NoError(t, err)
	assert.Equal(t, []string{"sparse", "mixture", "experts"}, resp.Keywords)
	assert.Equal(t, 1, h.fallback.Calls())
}

func TestSearch_EmbeddingFailure(t *testing.T) {
	h := newHarness(t)
	h.provider.GetMockEmbedder().EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		return nil, errors.New("connection refused")
	}

	resp, err := h.orch.Search(context.Background(), q1)
	assert.Nil(t, resp)
	var tierErr *core.TierError
	require.ErrorAs(t, err, &tierErr)
	assert.ErrorIs(t, err, core.ErrEmbedding)
	assert.Equal(t, core.TierCache, tierErr.Tier)
	assert.Equal(t, "embed-query", tierErr.Op)
	assert.Equal(t, 0, h.vector.Calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Errors.WithLabelValues("embedding")))
}

type failingVector struct{}

func (failingVector) Search(context.Context, []string, int) ([]*core.KnowledgeMatch, error) {
	return nil, core.NewTierError(core.ErrStorage, core.TierVector, "find-similar", errors.New("io"))
}

func TestSearch_VectorStorageFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	fb := &fakeFallback{results: externalResults()}
	orch, err := New(h.cache, failingVector{}, fb, &stubIngester{}, h.provider)
	require.NoError(t, err)

	_, err = orch.Search(context.Background(), q1)
	assert.ErrorIs(t, err, core.ErrStorage)
	assert.Equal(t, 0, fb.Calls(), "storage errors are not treated as an empty tier")
}

func TestSearch_GenerationFailure(t *testing.T) {
	h := newHarness(t)
	h.provider.GetMockGenerator().GenerateAnswerFunc = func(context.Context, string, []ai.Passage) (string, error) {
		return "", errors.New("quota exceeded")
	}

	_, err := h.orch.Search(context.Background(), q1)
	var tierErr *core.TierError
	require.ErrorAs(t, err, &tierErr)
	assert.ErrorIs(t, err, core.ErrGeneration)
	assert.Equal(t, core.TierAnswer, tierErr.Tier)
	assert.Equal(t, int64(0), h.cacheEntries(t))
	assert.Equal(t, int64(0), h.knowledgeEntries(t), "nothing is learned without an answer")
}

// stubIngester reports every write-back as failed.
type stubIngester struct {
	calls int
}

func (s *stubIngester) Ingest(context.Context, *ingestion.Request) (*core.KnowledgeEntry, error) {
	s.calls++
	return nil, core.NewTierError(core.ErrStorage, core.TierIngest, "append", errors.New("disk full"))
}

func (s *stubIngester) IngestResults(_ context.Context, results []*core.ExternalResult) *ingestion.Report {
	s.calls++
	report := &ingestion.Report{}
	for _, r := range results {
		report.Failures = append(report.Failures, ingestion.Failure{
			Result: r,
			Err:    core.NewTierError(core.ErrStorage, core.TierIngest, "append", errors.New("disk full")),
		})
	}
	return report
}

func TestSearch_WriteBackFailureDoesNotFailRequest(t *testing.T) {
	h := newHarness(t)
	ingester := &stubIngester{}
	metrics := NewMetrics(nil)
	orch, err := New(h.cache, h.vector, h.fallback, ingester, h.provider, WithMetrics(metrics))
	require.NoError(t, err)

	resp, err := orch.Search(context.Background(), q1)
	require.NoError(t, err)
	assert.Equal(t, core.SearchPathMCPHit, resp.SearchPath)
	assert.Equal(t, 1, ingester.calls)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.IngestFailures))
	assert.Equal(t, int64(1), h.cacheEntries(t), "cache is written before write-back")
}

func TestRun_UsesGivenKeywords(t *testing.T) {
	h := newHarness(t)

	resp, err := h.orch.Run(context.Background(), q1, q1Keywords)
	require.NoError(t, err)
	assert.Equal(t, core.SearchPathMCPHit, resp.SearchPath)
	assert.Equal(t, 0, h.provider.GetMockKeywordExtractor().CallCount())

	resp, err = h.orch.Run(context.Background(), q1, nil)
	require.NoError(t, err)
	assert.Equal(t, core.SearchPathNotFound, resp.SearchPath)
}

func TestRun_InvalidQuery(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orch.Run(ctx, "  ", []string{"rag"})
	assert.ErrorIs(t, err, core.ErrEmptyQuery)
	assert.True(t, core.IsValidation(err))
	assert.Equal(t, "validation", core.KindName(err))

	_, err = h.orch.Run(ctx, strings.Repeat("q", core.MaxQueryLength+1), []string{"rag"})
	assert.ErrorIs(t, err, core.ErrQueryTooLong)

	assert.Equal(t, 0, h.provider.GetMockEmbedder().CallCount())
	assert.Equal(t, 0, h.vector.Calls())
	assert.Equal(t, 0, h.fallback.Calls())
	assert.Equal(t, 0, h.provider.GetMockGenerator().CallCount())
	assert.Equal(t, int64(0), h.cacheEntries(t))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Errors.WithLabelValues("validation")))
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.Errors.WithLabelValues("storage")))
}

func TestIngest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	entry, err := h.orch.Ingest(ctx, &ingestion.Request{Content: contentA, Title: "RAG survey"})
	require.NoError(t, err)
	assert.Equal(t, core.SourceTypeManual, entry.SourceType)
	assert.Equal(t, int64(1), h.knowledgeEntries(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Ingested.WithLabelValues(originManual)))

	// Manually ingested knowledge answers the next query without external search.
	resp, err := h.orch.Search(ctx, q1)
	require.NoError(t, err)
	assert.Equal(t, core.SearchPathVectorHit, resp.SearchPath)
	assert.Equal(t, 0, h.fallback.Calls())

	_, err = h.orch.Ingest(ctx, &ingestion.Request{Content: ""})
	assert.ErrorIs(t, err, ingestion.ErrInvalidRequest)

	_, err = h.orch.Ingest(ctx, nil)
	assert.ErrorIs(t, err, ingestion.ErrInvalidRequest)
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Errors.WithLabelValues("validation")))
}
