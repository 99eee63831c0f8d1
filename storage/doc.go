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


// Package storage provides the storage abstraction layer for gurag.
//
// This package defines repository interfaces that decouple storage implementation
// from retrieval logic. Two backends implement them:
//
//   - storage/badger: embedded BadgerDB, brute-force cosine similarity
//   - storage/postgres: PostgreSQL with the pgvector extension
//
// # Constructor Return Type Pattern
//
// Public constructors in the backend packages return concrete repository types
// that satisfy the interfaces here; callers that only need the contract should
// hold the interface.
//
// # Architecture
//
//   - CacheRepository: query/response pairs for the semantic cache tier
//   - KnowledgeRepository: append-only passages for the vector knowledge tier
//
// Similarity search returns raw cosine scores. Thresholds, recency weighting
// and re-ranking belong to the cache and search packages, not to storage.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
