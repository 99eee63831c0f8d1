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

// Package search implements the vector knowledge tier.
//
// Keywords are embedded as one space-joined string and compared against
// the knowledge store. Candidates are over-fetched, re-ranked with a
// time-weighted score that favors recent entries, filtered by a raw
// similarity floor and truncated.
//
// # Scoring
//
//	recency(age) = 1.0 if age < 7 days, 0.7 if age < 30 days, else 0.5
//	final        = similarity*0.7 + recency*0.3
//
// The similarity floor applies to the raw similarity, never to the final
// score, so a stale but highly similar entry still qualifies.
package search
