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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fallback outcome labels.
const (
	fallbackResults       = "results"
	fallbackEmpty         = "empty"
	fallbackProviderError = "provider_error"
)

// Ingestion origin labels.
const (
	originManual   = "manual"
	originFallback = "fallback"
)

// Metrics holds the Prometheus metrics for an Orchestrator.
type Metrics struct {
	Searches         *prometheus.CounterVec
	SearchDuration   *prometheus.HistogramVec
	FallbackOutcomes *prometheus.CounterVec
	Ingested         *prometheus.CounterVec
	IngestFailures   prometheus.Counter
	Errors           *prometheus.CounterVec
}

// NewMetrics creates the orchestrator metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Searches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gurag_searches_total",
				Help: "Total number of answered searches by terminal search path",
			},
			[]string{"path"},
		),
		SearchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gurag_search_duration_seconds",
				Help:    "Time to answer a search in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"path"},
		),
		FallbackOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gurag_fallback_outcomes_total",
				Help: "External search outcomes (results, empty, provider_error)",
			},
			[]string{"outcome"},
		),
		Ingested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gurag_knowledge_ingested_total",
				Help: "Knowledge entries appended, by origin",
			},
			[]string{"origin"},
		),
		IngestFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gurag_writeback_failures_total",
				Help: "External results that could not be written back into the knowledge store",
			},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gurag_search_errors_total",
				Help: "Searches that failed, by error kind",
			},
			[]string{"kind"},
		),
	}
}
