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


package storage

import "errors"

// Repository errors shared by every backend. Backends wrap driver errors
// with these so callers can branch without importing badger or pq.
var (
	// ErrNotFound is returned when no cache or knowledge entry has the requested ID.
	ErrNotFound = errors.New("entry not found")

	// ErrTransactionFailed wraps a write that could not be committed.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrStorageClosed is returned by a backend used after Close.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery is returned for similarity queries with a
	// non-positive limit or an empty vector.
	ErrInvalidQuery = errors.New("invalid similarity query")

	// ErrSerializationFailed wraps an entry that could not be encoded or decoded.
	ErrSerializationFailed = errors.New("serialization failed")
)
