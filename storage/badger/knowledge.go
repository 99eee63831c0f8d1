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
	"github.com/poiesic/gurag/storage"
)

// KnowledgeRepository implements storage.KnowledgeRepository for BadgerDB.
type KnowledgeRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.KnowledgeRepository = (*KnowledgeRepository)(nil)

// NewKnowledgeRepository creates a new KnowledgeRepository.
func NewKnowledgeRepository(backend *Backend) (*KnowledgeRepository, error) {
	idSeq, err := backend.GetSequence(knowledgeEntryIDSeq)
	if err != nil {
		return nil, err
	}

	return &KnowledgeRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *KnowledgeRepository) Close() error {
	return r.idSeq.Release()
}

// FindSimilarKnowledge returns the limit entries most similar to vector.
func (r *KnowledgeRepository) FindSimilarKnowledge(ctx context.Context, vector []float32, limit int) ([]*core.KnowledgeMatch, error) {
	results, err := findSimilar(ctx, r.backend, knowledgeEntryPrefix, vector, limit,
		storage.UnmarshalKnowledgeEntry,
		func(e *core.KnowledgeEntry) []float32 { return e.Vector },
	)
	if err != nil {
		return nil, err
	}

	matches := make([]*core.KnowledgeMatch, len(results))
	for i, result := range results {
		matches[i] = &core.KnowledgeMatch{
			Entry:      result.item,
			Similarity: result.score,
		}
	}
	return matches, nil
}

// AddKnowledgeEntries appends one or more knowledge entries.
func (r *KnowledgeRepository) AddKnowledgeEntries(ctx context.Context, entries ...*core.KnowledgeEntry) ([]*core.KnowledgeEntry, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entry := range entries {
			id, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			entry.Id = id
			if entry.CreatedAt.IsZero() {
				entry.CreatedAt = time.Now().UTC()
			}
			entry.NormalizeMetadata()

			value, err := storage.MarshalKnowledgeEntry(entry)
			if err != nil {
				return err
			}
			if err := tx.Set(makeKnowledgeEntryKey(entry.Id), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return entries, err
}

// GetKnowledgeEntry retrieves a single knowledge entry by ID.
func (r *KnowledgeRepository) GetKnowledgeEntry(ctx context.Context, id core.ID) (*core.KnowledgeEntry, error) {
	var result *core.KnowledgeEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeKnowledgeEntryKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			result, err = storage.UnmarshalKnowledgeEntry(val)
			return err
		})
	}, false)
	return result, err
}

// CountKnowledgeEntries returns the number of stored knowledge entries.
func (r *KnowledgeRepository) CountKnowledgeEntries(ctx context.Context) (int64, error) {
	return r.backend.CountPrefix(ctx, []byte(knowledgeEntryPrefix))
}
