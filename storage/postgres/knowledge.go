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
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/gurag/core"
	"github.com/poiesic/gurag/storage"
)

type knowledgeRow struct {
	ID               int64           `db:"id"`
	Content          string          `db:"content"`
	ContentEmbedding pgvector.Vector `db:"content_embedding"`
	SourceType       string          `db:"source_type"`
	SourceURL        sql.NullString  `db:"source_url"`
	SourceTitle      sql.NullString  `db:"source_title"`
	SourceAuthor     sql.NullString  `db:"source_author"`
	Metadata         []byte          `db:"metadata"`
	CreatedAt        time.Time       `db:"created_at"`
	Similarity       float64         `db:"similarity"`
}

func (r *knowledgeRow) toEntry() (*core.KnowledgeEntry, error) {
	metadata, err := storage.UnmarshalMetadata(r.Metadata)
	if err != nil {
		return nil, err
	}
	// created_at is a zone-less TIMESTAMP written as UTC wall clock.
	created := r.CreatedAt
	created = time.Date(created.Year(), created.Month(), created.Day(),
		created.Hour(), created.Minute(), created.Second(), created.Nanosecond(), time.UTC)
	return &core.KnowledgeEntry{
		Id:           core.ID(r.ID),
		Content:      r.Content,
		Vector:       r.ContentEmbedding.Slice(),
		SourceType:   core.SourceType(r.SourceType),
		SourceURL:    r.SourceURL.String,
		SourceTitle:  r.SourceTitle.String,
		SourceAuthor: r.SourceAuthor.String,
		Metadata:     metadata,
		CreatedAt:    created,
	}, nil
}

const knowledgeColumns = `id, content, content_embedding, source_type, source_url, source_title, source_author, metadata, created_at`

// KnowledgeRepository implements storage.KnowledgeRepository on the knowledge_base table.
type KnowledgeRepository struct {
	db *DB
}

var _ storage.KnowledgeRepository = (*KnowledgeRepository)(nil)

// NewKnowledgeRepository creates a new KnowledgeRepository.
func NewKnowledgeRepository(db *DB) *KnowledgeRepository {
	return &KnowledgeRepository{db: db}
}

// Close is a no-op; the pool is closed through DB.
func (r *KnowledgeRepository) Close() error {
	return nil
}

// FindSimilarKnowledge orders entries by cosine distance and returns the first limit.
func (r *KnowledgeRepository) FindSimilarKnowledge(ctx context.Context, vector []float32, limit int) ([]*core.KnowledgeMatch, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}
	const query = `
		SELECT ` + knowledgeColumns + `, 1 - (content_embedding <=> $1) AS similarity
		FROM knowledge_base
		ORDER BY content_embedding <=> $1
		LIMIT $2
	`
	var rows []knowledgeRow
	if err := r.db.db.SelectContext(ctx, &rows, query, pgvector.NewVector(vector), limit); err != nil {
		return nil, err
	}

	matches := make([]*core.KnowledgeMatch, 0, len(rows))
	for i := range rows {
		entry, err := rows[i].toEntry()
		if err != nil {
			return nil, err
		}
		matches = append(matches, &core.KnowledgeMatch{
			Entry:      entry,
			Similarity: float32(rows[i].Similarity),
		})
	}
	return matches, nil
}

// AddKnowledgeEntries appends entries in a single transaction.
func (r *KnowledgeRepository) AddKnowledgeEntries(ctx context.Context, entries ...*core.KnowledgeEntry) ([]*core.KnowledgeEntry, error) {
	const query = `
		INSERT INTO knowledge_base (content, content_embedding, source_type, source_url, source_title, source_author, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	tx, err := r.db.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, entry := range entries {
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}
		entry.NormalizeMetadata()
		metadata, err := storage.MarshalMetadata(entry.Metadata)
		if err != nil {
			return nil, err
		}

		var id int64
		err = tx.QueryRowxContext(ctx, query,
			entry.Content,
			pgvector.NewVector(entry.Vector),
			string(entry.SourceType),
			nullString(entry.SourceURL),
			nullString(entry.SourceTitle),
			nullString(entry.SourceAuthor),
			metadata,
			entry.CreatedAt.UTC(),
		).Scan(&id)
		if err != nil {
			return nil, err
		}
		entry.Id = core.ID(id)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Join(storage.ErrTransactionFailed, err)
	}
	return entries, nil
}

// GetKnowledgeEntry retrieves a single entry by ID.
func (r *KnowledgeRepository) GetKnowledgeEntry(ctx context.Context, id core.ID) (*core.KnowledgeEntry, error) {
	const query = `SELECT ` + knowledgeColumns + ` FROM knowledge_base WHERE id = $1`
	var row knowledgeRow
	if err := r.db.db.GetContext(ctx, &row, query, int64(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return row.toEntry()
}

// CountKnowledgeEntries returns the number of rows in knowledge_base.
func (r *KnowledgeRepository) CountKnowledgeEntries(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM knowledge_base`)
	return count, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
