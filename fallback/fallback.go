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


package fallback

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/gurag/core"
)

// DefaultMaxResultsPerSource is how many results each provider contributes.
const DefaultMaxResultsPerSource = 3

// Provider is one external search source.
type Provider interface {
	// Name identifies the provider in logs, metrics and error ops.
	Name() string
	// Search returns at most maxResults results for keywords.
	Search(ctx context.Context, keywords []string, maxResults int) ([]*core.ExternalResult, error)
}

// Searcher queries every configured provider in order and concatenates their results.
type Searcher struct {
	providers           []Provider
	maxResultsPerSource int
	logger              *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithMaxResultsPerSource sets the per-provider result cap.
func WithMaxResultsPerSource(n int) Option {
	return func(s *Searcher) error {
		if n <= 0 {
			return ErrInvalidMaxResults
		}
		s.maxResultsPerSource = n
		return nil
	}
}

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

// NewSearcher creates a searcher over providers. Nil providers are skipped.
func NewSearcher(providers []Provider, opts ...Option) (*Searcher, error) {
	s := &Searcher{
		maxResultsPerSource: DefaultMaxResultsPerSource,
		logger:              slog.Default(),
	}
	for _, p := range providers {
		if p != nil {
			s.providers = append(s.providers, p)
		}
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "fallback")

	return s, nil
}

// DefaultProviders returns the arXiv and HuggingFace providers, in that order.
func DefaultProviders(opts ...ProviderOption) ([]Provider, error) {
	arxiv, err := NewArxivProvider(opts...)
	if err != nil {
		return nil, err
	}
	hf, err := NewHuggingFaceProvider(opts...)
	if err != nil {
		return nil, err
	}
	return []Provider{arxiv, hf}, nil
}

// Providers returns the configured providers.
func (s *Searcher) Providers() []Provider {
	return s.providers
}

// Query searches every provider for keywords.
//
// A failing provider contributes no results. Its failure is wrapped in a
// core.TierError and joined into the returned error, which accompanies
// whatever the other providers returned. The results slice is
// authoritative; the error is diagnostic.
func (s *Searcher) Query(ctx context.Context, keywords []string) ([]*core.ExternalResult, error) {
	if len(keywords) == 0 {
		return []*core.ExternalResult{}, nil
	}

	var (
		results []*core.ExternalResult
		errs    []error
	)
	for _, p := range s.providers {
		found, err := p.Search(ctx, keywords, s.maxResultsPerSource)
		if err != nil {
			s.logger.Error("external search failed", "provider", p.Name(), "keywords", keywords, "err", err)
			errs = append(errs, core.NewTierError(core.ErrFallbackSearch, core.TierFallback, p.Name()+".search", err))
			continue
		}
		s.logger.Info("external search complete", "provider", p.Name(), "results", len(found))
		results = append(results, found...)
	}

	if results == nil {
		results = []*core.ExternalResult{}
	}
	return results, errors.Join(errs...)
}
