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
	"fmt"
	"math"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/gurag/storage"
)

// scored pairs a decoded record with its similarity to a query vector.
type scored[T any] struct {
	item  *T
	score float32
}

// findSimilar scans every record under prefix, scores it by cosine similarity
// against vector, and returns the top limit records, highest first.
// Records without a vector are skipped.
func findSimilar[T any](
	ctx context.Context,
	b *Backend,
	prefix string,
	vector []float32,
	limit int,
	decode func([]byte) (*T, error),
	vectorOf func(*T) []float32,
) ([]scored[T], error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}

	var results []scored[T]

	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var record *T
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = decode(val)
				return err
			})
			if err != nil {
				return err
			}
			if record == nil {
				continue
			}

			stored := vectorOf(record)
			if len(stored) == 0 {
				continue
			}

			results = append(results, scored[T]{
				item:  record,
				score: cosineSimilarity(vector, stored),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b scored[T]) int {
		if a.score > b.score {
			return -1
		}
		if a.score < b.score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// cosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different lengths or with zero norm score 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
