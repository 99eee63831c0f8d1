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


package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/gurag/core"
	"github.com/poiesic/gurag/storage"
)

type cacheRow struct {
	ID             int64           `db:"id"`
	QueryText      string          `db:"query_text"`
	QueryEmbedding pgvector.Vector `db:"query_embedding"`
	ResponseText   string          `db:"response_text"`
	Sources        []byte          `db:"sources"`
	HitCount       int64           `db:"hit_count"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
	Similarity     float64         `db:"similarity"`
}

func (r *cacheRow) toEntry() (*core.CacheEntry, error) {
	sources, err := storage.UnmarshalSources(r.Sources)
	if err != nil {
		return nil, err
	}
	return &core.CacheEntry{
		Id:           core.ID(r.ID),
		QueryText:    r.QueryText,
		QueryVector:  r.QueryEmbedding.Slice(),
		ResponseText: r.ResponseText,
		Sources:      sources,
		HitCount:     r.HitCount,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}, nil
}

const cacheColumns = `id, query_text, query_embedding, response_text, sources, hit_count, created_at, updated_at`

// CacheRepository implements storage.CacheRepository on the semantic_cache table.
type CacheRepository struct {
	db *DB
}

var _ storage.CacheRepository = (*CacheRepository)(nil)

// NewCacheRepository creates a new CacheRepository.
func NewCacheRepository(db *DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// Close is a no-op; the pool is closed through DB.
func (r *CacheRepository) Close() error {
	return nil
}

// Ping delegates to the database.
func (r *CacheRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// FindNearestCacheEntry returns the entry with the smallest cosine distance to vector.
func (r *CacheRepository) FindNearestCacheEntry(ctx context.Context, vector []float32) (*core.CacheMatch, error) {
	const query = `
		SELECT ` + cacheColumns + `, 1 - (query_embedding <=> $1) AS similarity
		FROM semantic_cache
		ORDER BY query_embedding <=> $1
		LIMIT 1
	`
	var row cacheRow
	if err := r.db.db.GetContext(ctx, &row, query, pgvector.NewVector(vector)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	entry, err := row.toEntry()
	if err != nil {
		return nil, err
	}
	return &core.CacheMatch{Entry: entry, Similarity: float32(row.Similarity)}, nil
}

// AddCacheEntries inserts one or more entries in a single transaction.
func (r *CacheRepository) AddCacheEntries(ctx context.Context, entries ...*core.CacheEntry) ([]*core.CacheEntry, error) {
	const query = `
		INSERT INTO semantic_cache (query_text, query_embedding, response_text, sources, hit_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $5)
		RETURNING id
	`
	tx, err := r.db.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, entry := range entries {
		if entry.Sources == nil {
			entry.Sources = []core.SourceRef{}
		}
		sources, err := storage.MarshalSources(entry.Sources)
		if err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		var id int64
		err = tx.QueryRowxContext(ctx, query,
			entry.QueryText,
			pgvector.NewVector(entry.QueryVector),
			entry.ResponseText,
			sources,
			now,
		).Scan(&id)
		if err != nil {
			return nil, err
		}
		entry.Id = core.ID(id)
		entry.HitCount = 0
		entry.CreatedAt = now
		entry.UpdatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Join(storage.ErrTransactionFailed, err)
	}
	return entries, nil
}

// RecordCacheHit increments hit_count in a single UPDATE so concurrent hits are never lost.
func (r *CacheRepository) RecordCacheHit(ctx context.Context, id core.ID) (*core.CacheEntry, error) {
	const query = `
		UPDATE semantic_cache
		SET hit_count = hit_count + 1, updated_at = now()
		WHERE id = $1
		RETURNING ` + cacheColumns + `
	`
	return r.getOne(ctx, query, int64(id))
}

// GetCacheEntry retrieves a single entry by ID.
func (r *CacheRepository) GetCacheEntry(ctx context.Context, id core.ID) (*core.CacheEntry, error) {
	const query = `SELECT ` + cacheColumns + ` FROM semantic_cache WHERE id = $1`
	return r.getOne(ctx, query, int64(id))
}

func (r *CacheRepository) getOne(ctx context.Context, query string, args ...any) (*core.CacheEntry, error) {
	var row cacheRow
	if err := r.db.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return row.toEntry()
}

// CacheStats aggregates entry and hit totals.
func (r *CacheRepository) CacheStats(ctx context.Context) (*core.CacheStats, error) {
	const query = `SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM semantic_cache`
	stats := &core.CacheStats{}
	if err := r.db.db.QueryRowxContext(ctx, query).Scan(&stats.TotalEntries, &stats.TotalHits); err != nil {
		return nil, err
	}
	if stats.TotalEntries > 0 {
		stats.AvgHitsPerEntry = float64(stats.TotalHits) / float64(stats.TotalEntries)
	}
	return stats, nil
}

// ClearCache deletes every cache row.
func (r *CacheRepository) ClearCache(ctx context.Context) (int, error) {
	res, err := r.db.db.ExecContext(ctx, `DELETE FROM semantic_cache`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
