// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/gurag/ai"
	"github.com/poiesic/gurag/core"
	"github.com/poiesic/gurag/ingestion"
	"github.com/poiesic/gurag/search"
)

var (
	// ErrCacheTierRequired is returned when a cache tier is not provided.
	ErrCacheTierRequired = errors.New("cache tier required")

	// ErrVectorTierRequired is returned when a vector tier is not provided.
	ErrVectorTierRequired = errors.New("vector tier required")

	// ErrFallbackTierRequired is returned when a fallback tier is not provided.
	ErrFallbackTierRequired = errors.New("fallback tier required")

	// ErrIngesterRequired is returned when an ingester is not provided.
	ErrIngesterRequired = errors.New("ingester required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")
)

// CacheTier is the semantic cache.
type CacheTier interface {
	Lookup(ctx context.Context, queryVector []float32) (*core.CacheMatch, error)
	Write(ctx context.Context, query string, queryVector []float32, response string, sources []core.SourceRef) (*core.CacheEntry, error)
}

// VectorTier is time-weighted search over the knowledge store.
type VectorTier interface {
	Search(ctx context.Context, keywords []string, limit int) ([]*core.KnowledgeMatch, error)
}

// FallbackTier is external search. Results are authoritative; a non-nil
// error alongside them is diagnostic.
type FallbackTier interface {
	Query(ctx context.Context, keywords []string) ([]*core.ExternalResult, error)
}

// Ingester appends passages to the knowledge store.
type Ingester interface {
	Ingest(ctx context.Context, req *ingestion.Request) (*core.KnowledgeEntry, error)
	IngestResults(ctx context.Context, results []*core.ExternalResult) *ingestion.Report
}

// Orchestrator answers queries from the cheapest tier that can.
type Orchestrator struct {
	cache       CacheTier
	vector      VectorTier
	fallback    FallbackTier
	ingester    Ingester
	embedder    ai.Embedder
	generator   ai.Generator
	keywords    ai.KeywordExtractor
	vectorLimit int
	metrics     *Metrics
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink. Default is an unregistered set.
func WithMetrics(metrics *Metrics) Option {
	return func(o *Orchestrator) error {
		if metrics != nil {
			o.metrics = metrics
		}
		return nil
	}
}

// WithVectorLimit sets how many knowledge entries are used as context.
// Default is search.DefaultLimit.
func WithVectorLimit(limit int) Option {
	return func(o *Orchestrator) error {
		if limit > 0 {
			o.vectorLimit = limit
		}
		return nil
	}
}

// WithClock replaces time.Now for processing time measurement.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) error {
		if now != nil {
			o.now = now
		}
		return nil
	}
}

// New creates an orchestrator. Embedding, generation and keyword
// extraction come from provider.
func New(cache CacheTier, vector VectorTier, fallback FallbackTier, ingester Ingester, provider ai.AIProvider, opts ...Option) (*Orchestrator, error) {
	switch {
	case cache == nil:
		return nil, ErrCacheTierRequired
	case vector == nil:
		return nil, ErrVectorTierRequired
	case fallback == nil:
		return nil, ErrFallbackTierRequired
	case ingester == nil:
		return nil, ErrIngesterRequired
	case provider == nil:
		return nil, ErrAIProviderRequired
	}

	o := &Orchestrator{
		cache:       cache,
		vector:      vector,
		fallback:    fallback,
		ingester:    ingester,
		embedder:    provider.Embedder(),
		generator:   provider.Generator(),
		keywords:    provider.KeywordExtractor(),
		vectorLimit: search.DefaultLimit,
		now:         time.Now,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	o.logger = o.logger.With("component", "orchestrator")

	return o, nil
}

// Search answers query, extracting keywords first. If the extractor fails
// the query is split into fallback keywords instead.
func (o *Orchestrator) Search(ctx context.Context, query string) (*core.SearchResponse, error) {
	start := o.now()

	if err := o.validate(query); err != nil {
		return nil, err
	}

	var keywords []string
	extracted, err := o.keywords.ExtractKeywords(ctx, query)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.logger.Warn("keyword extraction failed, splitting query", "err", err)
		keywords = ai.FallbackKeywords(query)
	case extracted != nil:
		keywords = extracted.Keywords
	}

	return o.run(ctx, start, query, keywords)
}

// Run answers query with an already extracted keyword set.
func (o *Orchestrator) Run(ctx context.Context, query string, keywords []string) (*core.SearchResponse, error) {
	start := o.now()
	if err := o.validate(query); err != nil {
		return nil, err
	}
	return o.run(ctx, start, query, keywords)
}

// validate rejects queries before any tier is consulted.
func (o *Orchestrator) validate(query string) error {
	if err := core.ValidateQuery(query); err != nil {
		o.metrics.Errors.WithLabelValues(core.KindName(err)).Inc()
		return err
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, start time.Time, query string, keywords []string) (*core.SearchResponse, error) {
	if keywords == nil {
		keywords = []string{}
	}

	outcome, err := o.decide(ctx, query, keywords)
	if err != nil {
		return nil, o.fail(query, err)
	}

	resp, err := o.apply(ctx, query, keywords, outcome)
	if err != nil {
		return nil, o.fail(query, err)
	}

	elapsed := o.now().Sub(start)
	resp.ProcessingTimeMs = float64(elapsed.Microseconds()) / 1000
	o.metrics.Searches.WithLabelValues(string(resp.SearchPath)).Inc()
	o.metrics.SearchDuration.WithLabelValues(string(resp.SearchPath)).Observe(elapsed.Seconds())

	o.logger.Info("search complete",
		"path", resp.SearchPath,
		"keywords", keywords,
		"sources", len(resp.Sources),
		"elapsed_ms", resp.ProcessingTimeMs)
	return resp, nil
}

func (o *Orchestrator) fail(query string, err error) error {
	o.metrics.Errors.WithLabelValues(core.KindName(err)).Inc()
	o.logger.Error("search failed", "query", query, "err", err)
	return err
}

// Ingest adds a passage to the knowledge store directly, bypassing the
// fallback path.
func (o *Orchestrator) Ingest(ctx context.Context, req *ingestion.Request) (*core.KnowledgeEntry, error) {
	entry, err := o.ingester.Ingest(ctx, req)
	if err != nil {
		o.metrics.Errors.WithLabelValues(core.KindName(err)).Inc()
		o.logger.Error("manual ingestion failed", "err", err)
		return nil, err
	}
	o.metrics.Ingested.WithLabelValues(originManual).Inc()
	return entry, nil
}
