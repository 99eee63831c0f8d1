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


package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/gurag/ai"
	"github.com/poiesic/gurag/core"
	"github.com/poiesic/gurag/storage"
)

// Pipeline embeds passages and appends them to the knowledge store.
// Batch write-back runs concurrently on a worker pool.
type Pipeline struct {
	repo      storage.KnowledgeRepository
	embedder  ai.Embedder
	pool      *ants.Pool
	dimension int
	writer    *writer
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent write-back.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithDimension rejects embeddings whose length is not dim. Zero disables the check.
func WithDimension(dim int) Option {
	return func(p *Pipeline) error {
		if dim > 0 {
			p.dimension = dim
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(repo storage.KnowledgeRepository, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if repo == nil {
		return nil, ErrKnowledgeRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		repo:     repo,
		embedder: embedder,
		pool:     pool,
		logger:   slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	p.logger = p.logger.With("component", "ingestion")
	p.writer = &writer{
		repo:      repo,
		embedder:  embedder,
		dimension: p.dimension,
		logger:    p.logger,
	}

	return p, nil
}

// Ingest validates req, embeds its content and appends it to the knowledge store.
// The source type defaults to manual.
func (p *Pipeline) Ingest(ctx context.Context, req *Request) (*core.KnowledgeEntry, error) {
	entry, err := req.entry()
	if err != nil {
		return nil, err
	}
	return p.writer.write(ctx, entry)
}

// Failure is a write-back result that could not be ingested.
type Failure struct {
	Result *core.ExternalResult
	Err    error
}

// Report summarizes a write-back batch.
type Report struct {
	// Entries holds the appended entries in input order.
	Entries  []*core.KnowledgeEntry
	Failures []Failure
}

// IngestResults writes every external result back into the knowledge store.
// Results are processed concurrently and independently. It blocks until the
// whole batch has been attempted and never fails as a whole.
func (p *Pipeline) IngestResults(ctx context.Context, results []*core.ExternalResult) *Report {
	entries := make([]*core.KnowledgeEntry, len(results))
	errs := make([]error, len(results))

	var wg sync.WaitGroup
	for i, result := range results {
		if result == nil {
			errs[i] = ErrInvalidRequest
			continue
		}

		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			entry, err := RequestFromResult(result).entry()
			if err == nil {
				entry, err = p.writer.write(ctx, entry)
			}
			entries[i], errs[i] = entry, err
		})
		if err != nil {
			wg.Done()
			if errors.Is(err, ants.ErrPoolClosed) {
				err = ErrPipelineReleased
			}
			errs[i] = err
		}
	}
	wg.Wait()

	report := &Report{Entries: make([]*core.KnowledgeEntry, 0, len(results))}
	for i := range results {
		if errs[i] != nil {
			report.Failures = append(report.Failures, Failure{Result: results[i], Err: errs[i]})
			continue
		}
		report.Entries = append(report.Entries, entries[i])
	}

	if len(report.Failures) > 0 {
		p.logger.Warn("write-back incomplete", "ingested", len(report.Entries), "failed", len(report.Failures))
	} else {
		p.logger.Debug("write-back complete", "ingested", len(report.Entries))
	}
	return report
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
