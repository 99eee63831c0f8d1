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
	"errors"
	"fmt"
)

// Domain validation errors
var (
	// ErrInvalidKnowledgeEntry indicates a KnowledgeEntry failed validation.
	ErrInvalidKnowledgeEntry = errors.New("invalid knowledge entry")

	// ErrInvalidCacheEntry indicates a CacheEntry failed validation.
	ErrInvalidCacheEntry = errors.New("invalid cache entry")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidSourceType indicates an unknown SourceType value.
	ErrInvalidSourceType = errors.New("invalid source type")

	// ErrEmptyVector indicates an embedding vector is missing.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrDimensionMismatch indicates a vector does not have the deployment dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmptyQuery indicates a query is empty or whitespace.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrQueryTooLong indicates a query exceeds MaxQueryLength runes.
	ErrQueryTooLong = errors.New("query too long")

	// ErrInvalidIngestRequest indicates an ingest request is nil or malformed.
	ErrInvalidIngestRequest = errors.New("invalid ingest request")
)

// Collaborator failure kinds. Every TierError carries exactly one of these.
var (
	// ErrEmbedding indicates the embedding provider was unreachable or rejected the input.
	ErrEmbedding = errors.New("embedding error")

	// ErrGeneration indicates the answer generation provider failed.
	ErrGeneration = errors.New("generation error")

	// ErrStorage indicates a storage read or write failed.
	ErrStorage = errors.New("storage error")

	// ErrFallbackSearch indicates an external search provider failed.
	ErrFallbackSearch = errors.New("fallback search error")
)

// Tier names the pipeline stage an error occurred in.
type Tier string

const (
	TierCache    Tier = "cache"
	TierVector   Tier = "vector"
	TierFallback Tier = "fallback"
	TierIngest   Tier = "ingest"
	TierAnswer   Tier = "answer"
)

// TierError records which tier and operation a collaborator failure happened in.
// errors.Is matches both Kind and the underlying cause.
type TierError struct {
	Kind error
	Tier Tier
	Op   string
	Err  error
}

// NewTierError wraps err with its kind, tier and operation.
func NewTierError(kind error, tier Tier, op string, err error) *TierError {
	return &TierError{Kind: kind, Tier: tier, Op: op, Err: err}
}

func (e *TierError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s %s", e.Kind, e.Tier, e.Op)
	}
	return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Tier, e.Op, e.Err)
}

func (e *TierError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsValidation reports whether err is a caller input error.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrEmptyQuery, ErrQueryTooLong, ErrEmptyContent, ErrInvalidSourceType,
		ErrInvalidKnowledgeEntry, ErrInvalidCacheEntry, ErrInvalidIngestRequest,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// KindName returns a short label for the kind of err, suitable for metrics
// and API responses.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmbedding):
		return "embedding"
	case errors.Is(err, ErrGeneration):
		return "generation"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrFallbackSearch):
		return "fallback_search"
	case IsValidation(err):
		return "validation"
	default:
		return "internal"
	}
}
