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


package storage

import (
	"context"

	"github.com/poiesic/gurag/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository.
	// The underlying backend is closed separately.
	Close() error
}

// CacheRepository stores answered queries for the semantic cache tier.
type CacheRepository interface {
	Repository

	// FindNearestCacheEntry returns the entry whose query vector has the highest
	// cosine similarity to vector, together with that similarity.
	// Returns nil and no error when the cache is empty.
	// No threshold is applied; callers decide whether the match is close enough.
	FindNearestCacheEntry(ctx context.Context, vector []float32) (*core.CacheMatch, error)

	// AddCacheEntries inserts one or more entries unconditionally.
	// Generates IDs, sets CreatedAt and UpdatedAt, and zeroes HitCount.
	// Returns the entries with IDs and timestamps populated.
	AddCacheEntries(ctx context.Context, entries ...*core.CacheEntry) ([]*core.CacheEntry, error)

	// RecordCacheHit atomically increments HitCount and refreshes UpdatedAt.
	// Returns the updated entry, or ErrNotFound if it doesn't exist.
	RecordCacheHit(ctx context.Context, id core.ID) (*core.CacheEntry, error)

	// GetCacheEntry retrieves a single entry by ID.
	// Returns ErrNotFound if the entry doesn't exist.
	GetCacheEntry(ctx context.Context, id core.ID) (*core.CacheEntry, error)

	// CacheStats returns entry and hit totals.
	CacheStats(ctx context.Context) (*core.CacheStats, error)

	// ClearCache deletes every entry and returns how many were removed.
	ClearCache(ctx context.Context) (int, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}

// KnowledgeRepository stores append-only knowledge entries for the vector tier.
// Entries are never updated or deleted.
type KnowledgeRepository interface {
	Repository

	// FindSimilarKnowledge returns up to limit entries ordered by raw cosine
	// similarity to vector, highest first. Only Similarity is populated on the
	// returned matches; scoring is left to the caller.
	FindSimilarKnowledge(ctx context.Context, vector []float32, limit int) ([]*core.KnowledgeMatch, error)

	// AddKnowledgeEntries appends one or more entries.
	// Generates IDs, sets CreatedAt if not already set, and normalizes
	// nil metadata to an empty map.
	AddKnowledgeEntries(ctx context.Context, entries ...*core.KnowledgeEntry) ([]*core.KnowledgeEntry, error)

	// GetKnowledgeEntry retrieves a single entry by ID.
	// Returns ErrNotFound if the entry doesn't exist.
	GetKnowledgeEntry(ctx context.Context, id core.ID) (*core.KnowledgeEntry, error)

	// CountKnowledgeEntries returns the number of stored entries.
	CountKnowledgeEntries(ctx context.Context) (int64, error)
}
