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


package core

import (
	"encoding/binary"
	"time"

	"golang.org/x/crypto/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SourceType identifies where a piece of knowledge came from.
type SourceType string

const (
	// SourceTypeExpertInsight is curated content written by a domain expert.
	SourceTypeExpertInsight SourceType = "expert_insight"
	// SourceTypeArxivPaper is a paper abstract fetched from arXiv.
	SourceTypeArxivPaper SourceType = "arxiv_paper"
	// SourceTypeHuggingFace is a model card summary fetched from HuggingFace.
	SourceTypeHuggingFace SourceType = "huggingface"
	// SourceTypeManual is content ingested directly by an operator.
	SourceTypeManual SourceType = "manual"
)

// SourceTypes lists every valid SourceType.
var SourceTypes = []SourceType{
	SourceTypeExpertInsight,
	SourceTypeArxivPaper,
	SourceTypeHuggingFace,
	SourceTypeManual,
}

// SearchPath names the tier that produced an answer.
type SearchPath string

const (
	SearchPathCacheHit  SearchPath = "cache_hit"
	SearchPathVectorHit SearchPath = "vector_hit"
	SearchPathMCPHit    SearchPath = "mcp_hit"
	SearchPathNotFound  SearchPath = "not_found"
)

// SourceRef is a snapshot of a source taken when an answer is produced.
// It is stored with cache entries and never re-fetched.
type SourceRef struct {
	SourceType     SourceType `json:"source_type"`
	Title          string     `json:"title,omitempty"`
	URL            string     `json:"url,omitempty"`
	Author         string     `json:"author,omitempty"`
	RelevanceScore float64    `json:"relevance_score"`
}

// CacheEntry is a previously answered query.
// Only HitCount and UpdatedAt change after insertion.
type CacheEntry struct {
	Id           ID          `json:"id"`
	QueryText    string      `json:"query_text"`
	QueryVector  []float32   `json:"query_vector"`
	ResponseText string      `json:"response_text"`
	Sources      []SourceRef `json:"sources"`
	HitCount     int64       `json:"hit_count"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"` // Refreshed on every hit
}

// KnowledgeEntry is an append-only passage in the vector knowledge store.
type KnowledgeEntry struct {
	Id           ID             `json:"id"`
	Content      string         `json:"content"`
	Vector       []float32      `json:"vector,omitempty"`
	SourceType   SourceType     `json:"source_type"`
	SourceURL    string         `json:"source_url,omitempty"`
	SourceTitle  string         `json:"source_title,omitempty"`
	SourceAuthor string         `json:"source_author,omitempty"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

// NormalizeMetadata replaces a nil metadata map with an empty one so
// consumers never observe a null value.
func (k *KnowledgeEntry) NormalizeMetadata() {
	if k.Metadata == nil {
		k.Metadata = map[string]any{}
	}
}

// SourceRef returns a SourceRef describing this entry with the given score.
func (k *KnowledgeEntry) SourceRef(score float64) SourceRef {
	return SourceRef{
		SourceType:     k.SourceType,
		Title:          k.SourceTitle,
		URL:            k.SourceURL,
		Author:         k.SourceAuthor,
		RelevanceScore: score,
	}
}

// CacheMatch is the nearest cache entry for a query vector.
type CacheMatch struct {
	Entry      *CacheEntry
	Similarity float32
}

// KnowledgeMatch is a knowledge entry scored against a query.
type KnowledgeMatch struct {
	Entry        *KnowledgeEntry
	Similarity   float32 // Raw cosine similarity from the store
	RecencyScore float64
	FinalScore   float64
}

// ExternalResult is a normalized result from an external search provider.
type ExternalResult struct {
	Content      string         `json:"content"`
	SourceType   SourceType     `json:"source_type"`
	SourceURL    string         `json:"source_url,omitempty"`
	SourceTitle  string         `json:"source_title,omitempty"`
	SourceAuthor string         `json:"source_author,omitempty"`
	Metadata     map[string]any `json:"metadata"`
}

// SourceRef returns a SourceRef describing this result.
// External results have not been scored, so the relevance is zero.
func (r *ExternalResult) SourceRef() SourceRef {
	return SourceRef{
		SourceType: r.SourceType,
		Title:      r.SourceTitle,
		URL:        r.SourceURL,
		Author:     r.SourceAuthor,
	}
}

// SearchResponse is the result of answering a query.
type SearchResponse struct {
	Query            string      `json:"query"`
	Response         string      `json:"response"`
	Sources          []SourceRef `json:"sources"`
	SearchPath       SearchPath  `json:"search_path"`
	ProcessingTimeMs float64     `json:"processing_time_ms"`
	Keywords         []string    `json:"keywords"`
}

// CacheStats summarizes the semantic cache.
type CacheStats struct {
	TotalEntries    int64   `json:"total_entries"`
	TotalHits       int64   `json:"total_hits"`
	AvgHitsPerEntry float64 `json:"avg_hits_per_entry"`
}

// Status reports the health of a deployment.
type Status struct {
	Status            string   `json:"status"`
	DatabaseConnected bool     `json:"database_connected"`
	CacheEntries      int64    `json:"cache_entries"`
	KnowledgeEntries  int64    `json:"knowledge_entries"`
	CacheHitRate      *float64 `json:"cache_hit_rate,omitempty"`
}
