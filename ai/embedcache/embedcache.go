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


// Package embedcache memoizes embeddings in an expiring LRU so repeated
// queries and re-ingested content skip the embedding service.
package embedcache

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/poiesic/gurag/ai"
)

// Embedder wraps another ai.Embedder with an expiring LRU cache keyed by
// the exact text, so distinct texts never share a vector.
type Embedder struct {
	next   ai.Embedder
	cache  *expirable.LRU[string, []float32]
	logger *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// Wrap returns next decorated with a cache of size entries that expire
// after ttl. A non-positive size or ttl returns next unchanged.
func Wrap(next ai.Embedder, size int, ttl time.Duration) ai.Embedder {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &Embedder{
		next:   next,
		cache:  expirable.NewLRU[string, []float32](size, nil, ttl),
		logger: slog.Default().With("component", "embedcache"),
	}
}

// EmbedText returns a cached vector for text or computes and stores one.
// Callers receive their own copy of the vector.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		e.logger.Debug("embedding cache hit", "length", len(text))
		return cloneEmbedding(cached), nil
	}

	vector, err := e.next.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Add(text, cloneEmbedding(vector))
	return vector, nil
}

// Len returns the number of cached vectors.
func (e *Embedder) Len() int {
	return e.cache.Len()
}

func cloneEmbedding(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
