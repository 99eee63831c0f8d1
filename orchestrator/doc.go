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

// Package orchestrator sequences the retrieval tiers for a query.
//
// A query is answered from the first tier that can answer it:
//
//  1. the semantic cache, when a previous answer is similar enough;
//  2. the knowledge store, through time-weighted vector search;
//  3. external search providers, whose results are also written back
//     into the knowledge store so the next similar query stops at tier 2.
//
// The tier lookups live in decide, which produces an Outcome tagged with the
// terminal search path. The side effects of each path (generation, cache
// writes, write-back) live in apply.
package orchestrator
