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


package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/gurag/core"
	"github.com/poiesic/gurag/retry"
	"github.com/poiesic/gurag/storage"
)

const (
	hitRetryAttempts  = 5
	hitRetryBaseDelay = 2 * time.Millisecond
)

// CacheRepository implements storage.CacheRepository for BadgerDB.
type CacheRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.CacheRepository = (*CacheRepository)(nil)

// NewCacheRepository creates a new CacheRepository.
func NewCacheRepository(backend *Backend) (*CacheRepository, error) {
	idSeq, err := backend.GetSequence(cacheEntryIDSeq)
	if err != nil {
		return nil, err
	}

	return &CacheRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *CacheRepository) Close() error {
	return r.idSeq.Release()
}

// Ping delegates to the backend.
func (r *CacheRepository) Ping(ctx context.Context) error {
	return r.backend.Ping(ctx)
}

// FindNearestCacheEntry returns the most similar cache entry, or nil when the cache is empty.
func (r *CacheRepository) FindNearestCacheEntry(ctx context.Context, vector []float32) (*core.CacheMatch, error) {
	results, err := findSimilar(ctx, r.backend, cacheEntryPrefix, vector, 1,
		storage.UnmarshalCacheEntry,
		func(e *core.CacheEntry) []float32 { return e.QueryVector },
	)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &core.CacheMatch{
		Entry:      results[0].item,
		Similarity: results[0].score,
	}, nil
}

// AddCacheEntries inserts one or more cache entries.
func (r *CacheRepository) AddCacheEntries(ctx context.Context, entries ...*core.CacheEntry) ([]*core.CacheEntry, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entry := range entries {
			id, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			entry.Id = id
			entry.HitCount = 0
			entry.CreatedAt = time.Now().UTC()
			entry.UpdatedAt = entry.CreatedAt
			if entry.Sources == nil {
				entry.Sources = []core.SourceRef{}
			}

			value, err := storage.MarshalCacheEntry(entry)
			if err != nil {
				return err
			}
			if err := tx.Set(makeCacheEntryKey(entry.Id), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return entries, err
}

// RecordCacheHit increments the hit count of an entry and refreshes UpdatedAt.
// Concurrent hits on the same entry conflict in badger; the loser is retried.
func (r *CacheRepository) RecordCacheHit(ctx context.Context, id core.ID) (*core.CacheEntry, error) {
	var updated *core.CacheEntry
	err := retry.WithBackoff(ctx, func() error {
		err := r.backend.WithTx(func(tx *badger.Txn) error {
			key := makeCacheEntryKey(id)
			entry, err := readCacheEntry(tx, key)
			if err != nil {
				return err
			}
			if entry == nil {
				return storage.ErrNotFound
			}

			entry.HitCount++
			entry.UpdatedAt = time.Now().UTC()

			value, err := storage.MarshalCacheEntry(entry)
			if err != nil {
				return err
			}
			if err := tx.Set(key, value); err != nil {
				return err
			}
			if err := tx.Commit(); err != nil {
				return err
			}
			updated = entry
			return nil
		}, true)
		if err != nil && !errors.Is(err, badger.ErrConflict) {
			return retry.Permanent(err)
		}
		return err
	}, hitRetryAttempts, hitRetryBaseDelay)

	return updated, err
}

// GetCacheEntry retrieves a single cache entry by ID.
func (r *CacheRepository) GetCacheEntry(ctx context.Context, id core.ID) (*core.CacheEntry, error) {
	var result *core.CacheEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readCacheEntry(tx, makeCacheEntryKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// CacheStats sums entries and hits across the cache.
func (r *CacheRepository) CacheStats(ctx context.Context) (*core.CacheStats, error) {
	stats := &core.CacheStats{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(cacheEntryPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var entry *core.CacheEntry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalCacheEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			stats.TotalEntries++
			stats.TotalHits += entry.HitCount
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	if stats.TotalEntries > 0 {
		stats.AvgHitsPerEntry = float64(stats.TotalHits) / float64(stats.TotalEntries)
	}
	return stats, nil
}

// ClearCache deletes every cache entry.
func (r *CacheRepository) ClearCache(ctx context.Context) (int, error) {
	return r.backend.DropPrefix(ctx, []byte(cacheEntryPrefix))
}

// readCacheEntry reads a cache entry from a transaction.
// Returns nil if the entry doesn't exist.
func readCacheEntry(tx *badger.Txn, key []byte) (*core.CacheEntry, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var entry *core.CacheEntry
	err = item.Value(func(val []byte) error {
		var err error
		entry, err = storage.UnmarshalCacheEntry(val)
		return err
	})
	return entry, err
}

// nextID draws the next ID from a sequence.
// BadgerDB sequences can return 0 on first call, so we skip it.
func nextID(seq *badger.Sequence) (core.ID, error) {
	next, err := seq.Next()
	if err != nil {
		return 0, err
	}
	if next == 0 {
		next, err = seq.Next()
		if err != nil {
			return 0, err
		}
	}
	return core.ID(next), nil
}
