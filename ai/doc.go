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

// Package ai provides abstractions for the AI services gurag depends on.
//
// The package defines three narrow collaborator interfaces and an
// aggregate:
//
//   - Embedder: turns text into a vector
//   - Generator: writes an answer grounded in retrieved passages
//   - KeywordExtractor: reduces a natural language query to search keywords
//   - AIProvider: owns one of each and their shared configuration
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: deterministic test doubles
//   - ai/embedcache: an LRU decorator for any Embedder
//
// Public constructors in ai/openai return interface types. Mock
// constructors return concrete types so tests can inject behavior and
// assert on call counts.
//
// # Usage Example
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithAPIKey(key)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	kw, err := provider.KeywordExtractor().ExtractKeywords(ctx, "What is RAG?")
//	vec, err := provider.Embedder().EmbedText(ctx, "What is RAG?")
//
// When keyword extraction fails, callers fall back to FallbackKeywords.
package ai
