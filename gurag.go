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


package gurag

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/gurag/ai"
	"github.com/poiesic/gurag/ai/embedcache"
	"github.com/poiesic/gurag/ai/openai"
	"github.com/poiesic/gurag/cache"
	"github.com/poiesic/gurag/core"
	"github.com/poiesic/gurag/fallback"
	"github.com/poiesic/gurag/ingestion"
	"github.com/poiesic/gurag/orchestrator"
	"github.com/poiesic/gurag/search"
	"github.com/poiesic/gurag/storage"
	"github.com/poiesic/gurag/storage/badger"
	"github.com/poiesic/gurag/storage/postgres"
	"github.com/prometheus/client_golang/prometheus"
)

// Status values reported by Database.Status.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

const postgresOpenTimeout = 30 * time.Second

// Database owns the stores, AI provider and worker pool of a deployment.
type Database struct {
	backend       *badger.Backend
	pg            *postgres.DB
	cacheRepo     storage.CacheRepository
	knowledgeRepo storage.KnowledgeRepository
	provider      ai.AIProvider
	ownsProvider  bool
	cache         *cache.SemanticCache
	searcher      *search.Searcher
	fallback      *fallback.Searcher
	pipeline      *ingestion.Pipeline
	metrics       *orchestrator.Metrics
	logger        *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig            *ai.Config
	provider            ai.AIProvider
	postgresDSN         string
	inMemory            bool
	embedCacheSize      int
	embedCacheTTL       time.Duration
	providers           []fallback.Provider
	providersSet        bool
	maxResultsPerSource int
	cacheThreshold      float64
	minSimilarity       float64
	poolSize            int
	registerer          prometheus.Registerer
	logger              *slog.Logger
}

// WithAIConfig sets the embedding and generation endpoints.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithAIProvider uses provider instead of building one from the AI config.
// Vector dimension checks are disabled because the provider's dimension is unknown.
// The caller keeps ownership: Database.Close does not close provider.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithPostgres stores the cache and knowledge base in PostgreSQL with
// pgvector instead of the embedded badger store.
func WithPostgres(dsn string) DatabaseOption {
	return func(o *databaseOptions) {
		o.postgresDSN = dsn
	}
}

// WithInMemory keeps the badger store in memory.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithEmbeddingCache memoizes up to size embeddings for ttl.
func WithEmbeddingCache(size int, ttl time.Duration) DatabaseOption {
	return func(o *databaseOptions) {
		o.embedCacheSize = size
		o.embedCacheTTL = ttl
	}
}

// WithFallbackProviders replaces the default arXiv and HuggingFace providers.
// Passing none disables external search.
func WithFallbackProviders(providers ...fallback.Provider) DatabaseOption {
	return func(o *databaseOptions) {
		o.providers = providers
		o.providersSet = true
	}
}

// WithMaxResultsPerSource sets how many results each external provider contributes.
func WithMaxResultsPerSource(n int) DatabaseOption {
	return func(o *databaseOptions) {
		o.maxResultsPerSource = n
	}
}

// WithCacheThreshold sets the semantic cache hit threshold.
func WithCacheThreshold(threshold float64) DatabaseOption {
	return func(o *databaseOptions) {
		o.cacheThreshold = threshold
	}
}

// WithMinSimilarity sets the vector search similarity floor.
func WithMinSimilarity(min float64) DatabaseOption {
	return func(o *databaseOptions) {
		o.minSimilarity = min
	}
}

// WithPoolSize sets the write-back worker pool size.
func WithPoolSize(size int) DatabaseOption {
	return func(o *databaseOptions) {
		o.poolSize = size
	}
}

// WithRegisterer registers the orchestrator metrics with reg.
func WithRegisterer(reg prometheus.Registerer) DatabaseOption {
	return func(o *databaseOptions) {
		o.registerer = reg
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// embeddingProvider overrides the embedder of an AI provider.
type embeddingProvider struct {
	ai.AIProvider
	embedder ai.Embedder
}

func (p *embeddingProvider) Embedder() ai.Embedder {
	return p.embedder
}

// NewDatabase opens a deployment rooted at filePath. filePath is ignored
// for in-memory and PostgreSQL stores.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig:            ai.DefaultConfig(), // Default if not provided
		maxResultsPerSource: fallback.DefaultMaxResultsPerSource,
		cacheThreshold:      cache.DefaultThreshold,
		minSimilarity:       search.DefaultMinSimilarity,
		logger:              slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	db := &Database{logger: options.logger}
	if err := db.open(filePath, options); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *Database) open(filePath string, options *databaseOptions) error {
	if err := db.openStores(filePath, options); err != nil {
		return err
	}

	dimension := 0
	provider := options.provider
	if provider == nil {
		p, err := openai.NewProvider(options.aiConfig)
		if err != nil {
			return err
		}
		provider = p
		dimension = options.aiConfig.Dimension
		db.ownsProvider = true
	}
	db.provider = provider

	if options.embedCacheSize > 0 {
		provider = &embeddingProvider{
			AIProvider: provider,
			embedder:   embedcache.Wrap(provider.Embedder(), options.embedCacheSize, options.embedCacheTTL),
		}
		db.provider = provider
	}

	var err error
	db.cache, err = cache.NewSemanticCache(db.cacheRepo,
		cache.WithThreshold(options.cacheThreshold),
		cache.WithDimension(dimension),
		cache.WithLogger(db.logger))
	if err != nil {
		return err
	}

	db.searcher, err = search.NewSearcher(db.knowledgeRepo, provider.Embedder(),
		search.WithMinSimilarity(options.minSimilarity),
		search.WithLogger(db.logger))
	if err != nil {
		return err
	}

	providers := options.providers
	if !options.providersSet {
		providers, err = fallback.DefaultProviders()
		if err != nil {
			return err
		}
	}
	db.fallback, err = fallback.NewSearcher(providers,
		fallback.WithMaxResultsPerSource(options.maxResultsPerSource),
		fallback.WithLogger(db.logger))
	if err != nil {
		return err
	}

	pipelineOpts := []ingestion.Option{ingestion.WithLogger(db.logger), ingestion.WithDimension(dimension)}
	if options.poolSize > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithPoolSize(options.poolSize))
	}
	db.pipeline, err = ingestion.NewPipeline(db.knowledgeRepo, provider.Embedder(), pipelineOpts...)
	if err != nil {
		return err
	}

	db.metrics = orchestrator.NewMetrics(options.registerer)
	return nil
}

func (db *Database) openStores(filePath string, options *databaseOptions) error {
	if options.postgresDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), postgresOpenTimeout)
		defer cancel()

		pg, err := postgres.Open(ctx, options.postgresDSN)
		if err != nil {
			return err
		}
		db.pg = pg
		if err := pg.ApplyMigrations(ctx); err != nil {
			return err
		}
		db.cacheRepo = postgres.NewCacheRepository(pg)
		db.knowledgeRepo = postgres.NewKnowledgeRepository(pg)
		return nil
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return err
	}
	db.backend = backend

	cacheRepo, err := badger.NewCacheRepository(backend)
	if err != nil {
		return err
	}
	db.cacheRepo = cacheRepo

	knowledgeRepo, err := badger.NewKnowledgeRepository(backend)
	if err != nil {
		return err
	}
	db.knowledgeRepo = knowledgeRepo
	return nil
}

// Close releases every resource in reverse order of acquisition.
// It is safe to call on a partially opened Database.
func (db *Database) Close() error {
	var errs []error

	if db.pipeline != nil {
		db.pipeline.Release()
	}

	// Close AI provider first, unless the caller supplied it
	if db.provider != nil && db.ownsProvider {
		if err := db.provider.Close(); err != nil {
			db.logger.Error("error closing AI provider", "err", err)
		}
	}

	// Close repositories
	if db.knowledgeRepo != nil {
		if err := db.knowledgeRepo.Close(); err != nil {
			db.logger.Error("error closing knowledge repository", "err", err)
			errs = append(errs, err)
		}
	}
	if db.cacheRepo != nil {
		if err := db.cacheRepo.Close(); err != nil {
			db.logger.Error("error closing cache repository", "err", err)
			errs = append(errs, err)
		}
	}

	// Close backend storage
	if db.backend != nil {
		if err := db.backend.Close(); err != nil {
			db.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	if db.pg != nil {
		if err := db.pg.Close(); err != nil {
			db.logger.Error("error closing postgres", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewOrchestrator wires the tiers into an orchestrator.
func (db *Database) NewOrchestrator(opts ...orchestrator.Option) (*orchestrator.Orchestrator, error) {
	opts = append([]orchestrator.Option{
		orchestrator.WithLogger(db.logger),
		orchestrator.WithMetrics(db.metrics),
	}, opts...)
	return orchestrator.New(db.cache, db.searcher, db.fallback, db.pipeline, db.provider, opts...)
}

// Status reports store connectivity and cache statistics. It never fails;
// problems are reflected in the returned status.
func (db *Database) Status(ctx context.Context) *core.Status {
	status := &core.Status{Status: StatusHealthy, DatabaseConnected: true}

	if err := db.cache.Ping(ctx); err != nil {
		db.logger.Error("database ping failed", "err", err)
		status.Status = StatusDegraded
		status.DatabaseConnected = false
		return status
	}

	stats, err := db.cache.Stats(ctx)
	if err != nil {
		db.logger.Error("status check failed", "err", err)
		return &core.Status{Status: StatusError}
	}
	count, err := db.knowledgeRepo.CountKnowledgeEntries(ctx)
	if err != nil {
		db.logger.Error("status check failed", "err", err)
		return &core.Status{Status: StatusError}
	}

	status.CacheEntries = stats.TotalEntries
	status.KnowledgeEntries = count
	if stats.TotalEntries > 0 {
		rate := float64(stats.TotalHits) / float64(stats.TotalEntries)
		status.CacheHitRate = &rate
	}
	return status
}

// CacheStats returns semantic cache totals.
func (db *Database) CacheStats(ctx context.Context) (*core.CacheStats, error) {
	return db.cache.Stats(ctx)
}

// ClearCache deletes every cached answer and returns how many were removed.
func (db *Database) ClearCache(ctx context.Context) (int, error) {
	return db.cache.Clear(ctx)
}

// InitSchema creates missing tables, indexes and constraints. Migrations
// are idempotent, so calling it on an initialized PostgreSQL store is safe.
// The badger backend has no schema and returns nil.
func (db *Database) InitSchema(ctx context.Context) error {
	if db.pg == nil {
		return nil
	}
	if err := db.pg.ApplyMigrations(ctx); err != nil {
		return core.NewTierError(core.ErrStorage, core.TierIngest, "init-schema", err)
	}
	return nil
}

// Ingest adds a passage to the knowledge store.
func (db *Database) Ingest(ctx context.Context, req *ingestion.Request) (*core.KnowledgeEntry, error) {
	return db.pipeline.Ingest(ctx, req)
}

// Metrics returns the metrics shared by orchestrators created from db.
func (db *Database) Metrics() *orchestrator.Metrics {
	return db.metrics
}

// CacheRepository returns the semantic cache store.
func (db *Database) CacheRepository() storage.CacheRepository {
	return db.cacheRepo
}

// KnowledgeRepository returns the knowledge store.
func (db *Database) KnowledgeRepository() storage.KnowledgeRepository {
	return db.knowledgeRepo
}

// Provider returns the AI provider.
func (db *Database) Provider() ai.AIProvider {
	return db.provider
}
