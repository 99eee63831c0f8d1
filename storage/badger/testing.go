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


package badger

import "github.com/poiesic/gurag/storage"

// NewMemoryRepositories creates in-memory cache and knowledge repositories for testing.
// Returns cacheRepo, knowledgeRepo, backend, and error.
// Caller must close both repos and backend when done.
func NewMemoryRepositories() (storage.CacheRepository, storage.KnowledgeRepository, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, err
	}

	cacheRepo, err := NewCacheRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}

	knowledgeRepo, err := NewKnowledgeRepository(backend)
	if err != nil {
		cacheRepo.Close()
		backend.Close()
		return nil, nil, nil, err
	}

	return cacheRepo, knowledgeRepo, backend, nil
}
