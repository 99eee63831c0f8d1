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
	"math"
	"time"
)

const (
	similarityWeight = 0.7
	recencyWeight    = 0.3
)

// RecencyScore maps an age in whole days to a freshness score.
func RecencyScore(ageDays int) float64 {
	switch {
	case ageDays < 7:
		return 1.0
	case ageDays < 30:
		return 0.7
	default:
		return 0.5
	}
}

// FinalScore blends raw similarity with recency.
func FinalScore(similarity, recency float64) float64 {
	return similarity*similarityWeight + recency*recencyWeight
}

// NormalizeTimestamp pins t to UTC. Timestamps decoded without zone
// information carry a zero offset and are therefore read as UTC wall clock.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC()
}

// AgeDays returns the whole days elapsed from createdAt to now.
// Entries dated in the future count as age zero.
func AgeDays(now, createdAt time.Time) int {
	d := NormalizeTimestamp(now).Sub(NormalizeTimestamp(createdAt))
	if d <= 0 {
		return 0
	}
	return int(math.Floor(d.Hours() / 24))
}
