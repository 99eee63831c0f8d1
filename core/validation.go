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
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// MaxQueryLength is the longest query accepted, in runes.
const MaxQueryLength = 1000

// ValidateKnowledgeEntry validates a KnowledgeEntry according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - SourceType must be one of SourceTypes
//   - Vector must be present and, when dim > 0, have exactly dim elements
//
// NOT validated (populated by storage):
//   - ID
//   - CreatedAt
func ValidateKnowledgeEntry(entry *KnowledgeEntry, dim int) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidKnowledgeEntry)
	}

	if strings.TrimSpace(entry.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidKnowledgeEntry, ErrEmptyContent)
	}

	if err := ValidateSourceType(entry.SourceType); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKnowledgeEntry, err)
	}

	if err := ValidateVector(entry.Vector, dim); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKnowledgeEntry, err)
	}

	return nil
}

// ValidateCacheEntry validates a CacheEntry before it is written.
func ValidateCacheEntry(entry *CacheEntry, dim int) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidCacheEntry)
	}

	if strings.TrimSpace(entry.QueryText) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCacheEntry, ErrEmptyQuery)
	}

	if entry.ResponseText == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCacheEntry, ErrEmptyContent)
	}

	if err := ValidateVector(entry.QueryVector, dim); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCacheEntry, err)
	}

	return nil
}

// ValidateSourceType validates that a SourceType has a valid value.
func ValidateSourceType(sourceType SourceType) error {
	if !slices.Contains(SourceTypes, sourceType) {
		return fmt.Errorf("%w: %q", ErrInvalidSourceType, sourceType)
	}
	return nil
}

// ParseSourceType converts a string to a SourceType.
// An empty string yields SourceTypeManual.
func ParseSourceType(s string) (SourceType, error) {
	if s == "" {
		return SourceTypeManual, nil
	}
	st := SourceType(strings.ToLower(strings.TrimSpace(s)))
	if err := ValidateSourceType(st); err != nil {
		return "", err
	}
	return st, nil
}

// ValidateVector checks that vec is non-empty and, when dim > 0, has dim elements.
func ValidateVector(vec []float32, dim int) error {
	if len(vec) == 0 {
		return ErrEmptyVector
	}
	if dim > 0 && len(vec) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), dim)
	}
	return nil
}

// ValidateQuery checks that a query is non-blank and not longer than MaxQueryLength.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return fmt.Errorf("%w: max %d characters", ErrQueryTooLong, MaxQueryLength)
	}
	return nil
}
