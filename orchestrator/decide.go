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

	"github.com/poiesic/gurag/core"
)

// Outcome is the terminal state of a search and the data that state needs.
type Outcome struct {
	Path        core.SearchPath
	QueryVector []float32

	// Cached is set for cache_hit.
	Cached *core.CacheEntry
	// Matches is set for vector_hit, best first.
	Matches []*core.KnowledgeMatch
	// External is set for mcp_hit.
	External []*core.ExternalResult
	// FallbackErr records provider failures seen while probing the fallback tier.
	FallbackErr error
}

// decide consults the tiers in order and stops at the first that answers.
// It performs reads only; writes belong to apply.
func (o *Orchestrator) decide(ctx context.Context, query string, keywords []string) (*Outcome, error) {
	if len(keywords) == 0 {
		return &Outcome{Path: core.SearchPathNotFound}, nil
	}

	queryVector, err := o.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, core.NewTierError(core.ErrEmbedding, core.TierCache, "embed-query", err)
	}

	hit, err := o.cache.Lookup(ctx, queryVector)
	if err != nil {
		return nil, err
	}
	if hit != nil {
		return &Outcome{Path: core.SearchPathCacheHit, QueryVector: queryVector, Cached: hit.Entry}, nil
	}

	matches, err := o.vector.Search(ctx, keywords, o.vectorLimit)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		return &Outcome{Path: core.SearchPathVectorHit, QueryVector: queryVector, Matches: matches}, nil
	}

	external, fallbackErr := o.fallback.Query(ctx, keywords)
	switch {
	case fallbackErr != nil:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.metrics.FallbackOutcomes.WithLabelValues(fallbackProviderError).Inc()
		o.logger.Error("external search reported failures", "keywords", keywords, "results", len(external), "err", fallbackErr)
	case len(external) == 0:
		o.metrics.FallbackOutcomes.WithLabelValues(fallbackEmpty).Inc()
	default:
		o.metrics.FallbackOutcomes.WithLabelValues(fallbackResults).Inc()
	}

	if len(external) > 0 {
		return &Outcome{Path: core.SearchPathMCPHit, QueryVector: queryVector, External: external, FallbackErr: fallbackErr}, nil
	}
	return &Outcome{Path: core.SearchPathNotFound, QueryVector: queryVector, FallbackErr: fallbackErr}, nil
}
