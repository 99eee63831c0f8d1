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


package ai

import (
	"context"

	"github.com/poiesic/gurag/core"
)

// Embedder generates vector embeddings from text.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The same text always maps to the same vector for a given model.
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Generator writes an answer to a query grounded in retrieved passages.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// GenerateAnswer returns the answer text. passages is never empty.
	GenerateAnswer(ctx context.Context, query string, passages []Passage) (string, error)
}

// KeywordExtractor turns a natural language query into search keywords.
// Implementations must be thread-safe for concurrent use.
type KeywordExtractor interface {
	// ExtractKeywords returns 3-7 technical keywords for query. An empty
	// keyword list is a valid result and means nothing should be searched.
	ExtractKeywords(ctx context.Context, query string) (*Keywords, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the answer generation service.
	Generator() Generator

	// KeywordExtractor returns the keyword extraction service.
	KeywordExtractor() KeywordExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}

// Passage is one piece of context handed to a Generator.
type Passage struct {
	SourceType core.SourceType
	Content    string
}

// Keywords is the result of keyword extraction.
type Keywords struct {
	Keywords []string
	// SourceTypeHint is the kind of source the query seems to ask about,
	// or empty when the extractor had no opinion.
	SourceTypeHint core.SourceType
}
