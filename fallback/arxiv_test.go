package fallback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/gurag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const arxivFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <title>ArXiv Query</title>
  <entry>
    <id>http://arxiv.org/abs/2005.11401v4</id>
    <title>Retrieval-Augmented Generation for
      Knowledge-Intensive NLP Tasks</title>
    <summary>  Large pre-trained language models have been shown to store
      factual knowledge.  </summary>
    <author><name>Patrick Lewis</name></author>
    <author><name>Ethan Perez</name></author>
    <author><name>Aleksandra Piktus</name></author>
    <author><name>Fabio Petroni</name></author>
    <arxiv:primary_category term="cs.CL" scheme="http://arxiv.org/schemas/atom"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2312.10997v5</id>
    <title>Retrieval-Augmented Generation for Large Language Models: A Survey</title>
    <summary>A survey.</summary>
    <author><name>Yunfan Gao</name></author>
  </entry>
</feed>`

func newTestArxiv(t *testing.T, handler http.HandlerFunc) *ArxivProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewArxivProvider(WithBaseURL(srv.URL), WithRateLimit(nil), WithRetry(3, time.Millisecond))
	require.NoError(t, err)
	return p
}

func TestArxivProvider_Search(t *testing.T) {
	var query map[string][]string
	p := newTestArxiv(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(arxivFeedXML))
	})

	results, err := p.Search(context.Background(), []string{"rag", "retrieval"}, 3)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, []string{`all:"rag" OR all:"retrieval"`}, query["search_query"])
	assert.Equal(t, []string{"3"}, query["max_results"])
	assert.Equal(t, []string{"0"}, query["start"])
	assert.Equal(t, []string{"relevance"}, query["sortBy"])
	assert.Equal(t, []string{"descending"}, query["sortOrder"])

	first := results[0]
	assert.Equal(t, core.SourceTypeArxivPaper, first.SourceType)
	assert.Equal(t, "Retrieval-Augmented Generation for Knowledge-Intensive NLP Tasks", first.SourceTitle)
	assert.Equal(t, "Title: Retrieval-Augmented Generation for Knowledge-Intensive NLP Tasks\n\nAbstract: Large pre-trained language models have been shown to store factual knowledge.", first.Content)
	assert.Equal(t, "http://arxiv.org/abs/2005.11401v4", first.SourceURL)
	assert.Equal(t, "Patrick Lewis, Ethan Perez, Aleksandra Piktus", first.SourceAuthor)
	assert.Equal(t, "2005.11401v4", first.Metadata["arxiv_id"])
	assert.Equal(t, []string{"cs.CL"}, first.Metadata["categories"])
	assert.Len(t, first.Metadata["all_authors"], 4)

	assert.Equal(t, []string{}, results[1].Metadata["categories"])
}

func TestArxivProvider_CapsResults(t *testing.T) {
	p := newTestArxiv(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(arxivFeedXML))
	})

	results, err := p.Search(context.Background(), []string{"rag"}, 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestArxivProvider_EmptyKeywords(t *testing.T) {
	var calls atomic.Int32
	p := newTestArxiv(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	results, err := p.Search(context.Background(), nil, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int32(0), calls.Load())
}

func TestArxivProvider_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	p := newTestArxiv(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(arxivFeedXML))
	})

	results, err := p.Search(context.Background(), []string{"rag"}, 3)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestArxivProvider_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	p := newTestArxiv(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := p.Search(context.Background(), []string{"rag"}, 3)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestArxivProvider_MalformedFeed(t *testing.T) {
	p := newTestArxiv(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<feed><entry>"))
	})

	_, err := p.Search(context.Background(), []string{"rag"}, 3)
	assert.Error(t, err)
}

func TestNewArxivProvider_InvalidBaseURL(t *testing.T) {
	_, err := NewArxivProvider(WithBaseURL("not a url"))
	assert.ErrorIs(t, err, ErrInvalidBaseURL)
}

func TestArxivProvider_RetriesTooManyRequests(t *testing.T) {
	var calls atomic.Int32
	var agent atomic.Value
	p := newTestArxiv(t, func(w http.ResponseWriter, r *http.Request) {
		agent.Store(r.Header.Get("User-Agent"))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(arxivFeedXML))
	})

	results, err := p.Search(context.Background(), []string{"rag"}, 3)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, userAgent, agent.Load())
}

func TestArxivProvider_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	p := newTestArxiv(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := p.Search(context.Background(), []string{"rag"}, 3)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.True(t, statusErr.Temporary())
	assert.Equal(t, int32(3), calls.Load())
}

func TestArxivProvider_RateLimitPacesAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(arxivFeedXML))
	}))
	defer srv.Close()

	interval := 50 * time.Millisecond
	p, err := NewArxivProvider(
		WithBaseURL(srv.URL),
		WithRateLimit(rate.NewLimiter(rate.Every(interval), 1)),
		WithRetry(2, time.Millisecond),
	)
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Search(context.Background(), []string{"rag"}, 3)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.GreaterOrEqual(t, time.Since(start), interval-5*time.Millisecond)
}

func TestArxivProvider_CancelledContext(t *testing.T) {
	p := newTestArxiv(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(arxivFeedXML))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Search(ctx, []string{"rag"}, 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewArxivProvider_InvalidRetry(t *testing.T) {
	_, err := NewArxivProvider(WithRetry(0, time.Millisecond))
	assert.ErrorIs(t, err, ErrInvalidAttempts)
}
