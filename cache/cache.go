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


// Package cache implements the semantic cache tier: previously generated
// answers keyed by query embedding and matched by cosine similarity.
package cache

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/gurag/core"
	"github.com/poiesic/gurag/storage"
)

// DefaultThreshold is the minimum similarity for a cache hit.
const DefaultThreshold = 0.95

var (
	// ErrRepositoryRequired is returned when no repository is supplied.
	ErrRepositoryRequired = errors.New("cache repository is required")

	// ErrInvalidThreshold is returned for thresholds outside (0, 1].
	ErrInvalidThreshold = errors.New("cache threshold must be in (0, 1]")
)

// SemanticCache answers repeated questions without touching the lower tiers.
type SemanticCache struct {
	repo      storage.CacheRepository
	threshold float32
	dimension int
	logger    *slog.Logger
}

// Option configures a SemanticCache.
type Option func(*SemanticCache) error

// WithThreshold sets the minimum similarity for a hit.
func WithThreshold(threshold float64) Option {
	return func(c *SemanticCache) error {
		if threshold <= 0 || threshold > 1 {
			return ErrInvalidThreshold
		}
		c.threshold = float32(threshold)
		return nil
	}
}

// WithDimension rejects writes whose vector length differs from dim.
func WithDimension(dim int) Option {
	return func(c *SemanticCache) error {
		c.dimension = dim
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *SemanticCache) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewSemanticCache creates a cache tier over repo.
func NewSemanticCache(repo storage.CacheRepository, opts ...Option) (*SemanticCache, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	c := &SemanticCache{
		repo:      repo,
		threshold: DefaultThreshold,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "semantic-cache")
	return c, nil
}

// Threshold returns the configured hit threshold.
func (c *SemanticCache) Threshold() float32 {
	return c.threshold
}

// Lookup returns the nearest cached entry if it is at least threshold
// similar to queryVector, after recording the hit. A miss is nil, nil.
func (c *SemanticCache) Lookup(ctx context.Context, queryVector []float32) (*core.CacheMatch, error) {
	match, err := c.repo.FindNearestCacheEntry(ctx, queryVector)
	if err != nil {
		return nil, core.NewTierError(core.ErrStorage, core.TierCache, "lookup", err)
	}
	if match == nil {
		c.logger.Debug("cache empty")
		return nil, nil
	}
	if match.Similarity < c.threshold {
		c.logger.Debug("cache miss", "nearest", match.Entry.Id, "similarity", match.Similarity)
		return nil, nil
	}

	updated, err := c.repo.RecordCacheHit(ctx, match.Entry.Id)
	if errors.Is(err, storage.ErrNotFound) {
		// Cleared between the lookup and the hit.
		return nil, nil
	}
	if err != nil {
		return nil, core.NewTierError(core.ErrStorage, core.TierCache, "record-hit", err)
	}

	c.logger.Info("cache hit", "id", updated.Id, "similarity", match.Similarity, "hits", updated.HitCount)
	return &core.CacheMatch{Entry: updated, Similarity: match.Similarity}, nil
}

// Write stores an answered query. Entries are never deduplicated.
func (c *SemanticCache) Write(ctx context.Context, query string, queryVector []float32, response string, sources []core.SourceRef) (*core.CacheEntry, error) {
	entry := &core.CacheEntry{
		QueryText:    query,
		QueryVector:  queryVector,
		ResponseText: response,
		Sources:      sources,
	}
	if err := core.ValidateCacheEntry(entry, c.dimension); err != nil {
		return nil, core.NewTierError(core.ErrStorage, core.TierCache, "write", err)
	}

	added, err := c.repo.AddCacheEntries(ctx, entry)
	if err != nil {
		return nil, core.NewTierError(core.ErrStorage, core.TierCache, "write", err)
	}

	c.logger.Debug("cached response", "id", added[0].Id, "sources", len(sources))
	return added[0], nil
}

// Stats returns cache totals.
func (c *SemanticCache) Stats(ctx context.Context) (*core.CacheStats, error) {
	stats, err := c.repo.CacheStats(ctx)
	if err != nil {
		return nil, core.NewTierError(core.ErrStorage, core.TierCache, "stats", err)
	}
	return stats, nil
}

// Clear deletes every cached entry and returns how many were removed.
func (c *SemanticCache) Clear(ctx context.Context) (int, error) {
	deleted, err := c.repo.ClearCache(ctx)
	if err != nil {
		return 0, core.NewTierError(core.ErrStorage, core.TierCache, "clear", err)
	}
	c.logger.Warn("cache cleared", "deleted", deleted)
	return deleted, nil
}

// Ping reports whether the cache store is reachable.
func (c *SemanticCache) Ping(ctx context.Context) error {
	return c.repo.Ping(ctx)
}
