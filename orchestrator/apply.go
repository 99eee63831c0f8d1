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
	"fmt"

	"github.com/poiesic/gurag/ai"
	"github.com/poiesic/gurag/core"
)

// apply performs the side effects of outcome and builds the response.
func (o *Orchestrator) apply(ctx context.Context, query string, keywords []string, outcome *Outcome) (*core.SearchResponse, error) {
	resp := &core.SearchResponse{
		Query:      query,
		SearchPath: outcome.Path,
		Keywords:   keywords,
	}

	switch outcome.Path {
	case core.SearchPathCacheHit:
		resp.Response = outcome.Cached.ResponseText
		resp.Sources = outcome.Cached.Sources

	case core.SearchPathVectorHit:
		passages := make([]ai.Passage, len(outcome.Matches))
		sources := make([]core.SourceRef, len(outcome.Matches))
		for i, m := range outcome.Matches {
			passages[i] = ai.Passage{SourceType: m.Entry.SourceType, Content: m.Entry.Content}
			sources[i] = m.Entry.SourceRef(m.FinalScore)
		}
		if err := o.answer(ctx, resp, outcome.QueryVector, passages, sources); err != nil {
			return nil, err
		}

	case core.SearchPathMCPHit:
		passages := make([]ai.Passage, len(outcome.External))
		sources := make([]core.SourceRef, len(outcome.External))
		for i, r := range outcome.External {
			passages[i] = ai.Passage{SourceType: r.SourceType, Content: r.Content}
			sources[i] = r.SourceRef()
		}
		if err := o.answer(ctx, resp, outcome.QueryVector, passages, sources); err != nil {
			return nil, err
		}
		o.writeBack(ctx, outcome.External)

	case core.SearchPathNotFound:
		resp.Response = notFoundMessage(query)

	default:
		return nil, fmt.Errorf("unknown search path %q", outcome.Path)
	}

	if resp.Sources == nil {
		resp.Sources = []core.SourceRef{}
	}
	return resp, nil
}

// answer generates a response from passages and caches it.
func (o *Orchestrator) answer(ctx context.Context, resp *core.SearchResponse, queryVector []float32, passages []ai.Passage, sources []core.SourceRef) error {
	text, err := o.generator.GenerateAnswer(ctx, resp.Query, passages)
	if err != nil {
		return core.NewTierError(core.ErrGeneration, core.TierAnswer, "generate", err)
	}

	if _, err := o.cache.Write(ctx, resp.Query, queryVector, text, sources); err != nil {
		return err
	}

	resp.Response = text
	resp.Sources = sources
	return nil
}

// writeBack ingests external results into the knowledge store. Failures are
// logged and counted only.
func (o *Orchestrator) writeBack(ctx context.Context, results []*core.ExternalResult) {
	report := o.ingester.IngestResults(ctx, results)

	o.metrics.Ingested.WithLabelValues(originFallback).Add(float64(len(report.Entries)))
	for _, f := range report.Failures {
		o.metrics.IngestFailures.Inc()
		if f.Result == nil {
			o.logger.Error("write-back failed", "err", f.Err)
			continue
		}
		o.logger.Error("write-back failed", "source_type", f.Result.SourceType, "title", f.Result.SourceTitle, "err", f.Err)
	}
	o.logger.Info("self-learning write-back", "ingested", len(report.Entries), "failed", len(report.Failures))
}
