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


package search

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/gurag/ai"
	"github.com/poiesic/gurag/core"
	"github.com/poiesic/gurag/storage"
)

const (
	// DefaultLimit is used when Search is called with a non-positive limit.
	DefaultLimit = 10

	// DefaultMinSimilarity is the raw similarity floor.
	DefaultMinSimilarity = 0.5

	// overFetchFactor widens the store query so re-ranking has room to work.
	overFetchFactor = 2
)

// Searcher performs time-weighted similarity search over the knowledge store.
type Searcher struct {
	repo          storage.KnowledgeRepository
	embedder      ai.Embedder
	minSimilarity float64
	defaultLimit  int
	now           func() time.Time
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinSimilarity sets the raw similarity floor.
func WithMinSimilarity(min float64) Option {
	return func(s *Searcher) error {
		if min < 0 || min > 1 {
			return ErrInvalidMinSimilarity
		}
		s.minSimilarity = min
		return nil
	}
}

// WithDefaultLimit sets the limit used when Search receives a non-positive one.
func WithDefaultLimit(limit int) Option {
	return func(s *Searcher) error {
		if limit > 0 {
			s.defaultLimit = limit
		}
		return nil
	}
}

// WithClock replaces time.Now for age computation.
func WithClock(now func() time.Time) Option {
	return func(s *Searcher) error {
		if now != nil {
			s.now = now
		}
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(repo storage.KnowledgeRepository, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if repo == nil {
		return nil, ErrKnowledgeRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		repo:          repo,
		embedder:      embedder,
		minSimilarity: DefaultMinSimilarity,
		defaultLimit:  DefaultLimit,
		now:           time.Now,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "search")

	return s, nil
}

// Search returns up to limit knowledge entries for keywords, ranked by final score.
func (s *Searcher) Search(ctx context.Context, keywords []string, limit int) ([]*core.KnowledgeMatch, error) {
	return s.SearchWithMonitor(ctx, keywords, limit, nil)
}

// SearchWithMonitor is Search with stage callbacks.
func (s *Searcher) SearchWithMonitor(ctx context.Context, keywords []string, limit int, monitor SearchMonitor) ([]*core.KnowledgeMatch, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}

	monitor.Start(keywords)

	if len(keywords) == 0 {
		monitor.Finish(nil)
		return []*core.KnowledgeMatch{}, nil
	}

	embedding, err := s.embedder.EmbedText(ctx, strings.Join(keywords, " "))
	if err != nil {
		s.logger.Error("error generating embedding for keywords", "keywords", keywords, "err", err)
		return nil, core.NewTierError(core.ErrEmbedding, core.TierVector, "embed-keywords", err)
	}

	candidates, err := s.repo.FindSimilarKnowledge(ctx, embedding, limit*overFetchFactor)
	if err != nil {
		s.logger.Error("error querying knowledge store", "err", err)
		return nil, core.NewTierError(core.ErrStorage, core.TierVector, "find-similar", err)
	}
	monitor.AfterCandidateFetch(candidates)

	now := s.now()
	results := make([]*core.KnowledgeMatch, 0, len(candidates))
	for _, candidate := range candidates {
		if float64(candidate.Similarity) < s.minSimilarity {
			monitor.CandidateDropped(candidate)
			continue
		}
		age := AgeDays(now, candidate.Entry.CreatedAt)
		candidate.RecencyScore = RecencyScore(age)
		candidate.FinalScore = FinalScore(float64(candidate.Similarity), candidate.RecencyScore)
		monitor.CandidateScored(candidate, age)
		results = append(results, candidate)
	}

	slices.SortStableFunc(results, func(a, b *core.KnowledgeMatch) int {
		switch {
		case a.FinalScore > b.FinalScore:
			return -1
		case a.FinalScore < b.FinalScore:
			return 1
		default:
			return 0
		}
	})
	if len(results) > limit {
		results = results[:limit]
	}

	s.logger.Debug("vector search complete",
		"keywords", keywords,
		"candidates", len(candidates),
		"results", len(results))
	monitor.Finish(results)

	return results, nil
}
