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

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/poiesic/gurag/core"
)

// MarshalCacheEntry serializes a CacheEntry to bytes.
func MarshalCacheEntry(entry *core.CacheEntry) ([]byte, error) {
	data, err := sonic.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalCacheEntry deserializes a CacheEntry from bytes.
func UnmarshalCacheEntry(data []byte) (*core.CacheEntry, error) {
	var entry core.CacheEntry
	if err := sonic.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &entry, nil
}

// MarshalKnowledgeEntry serializes a KnowledgeEntry to bytes.
func MarshalKnowledgeEntry(entry *core.KnowledgeEntry) ([]byte, error) {
	data, err := sonic.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalKnowledgeEntry deserializes a KnowledgeEntry from bytes.
// Missing metadata is normalized to an empty map.
func UnmarshalKnowledgeEntry(data []byte) (*core.KnowledgeEntry, error) {
	var entry core.KnowledgeEntry
	if err := sonic.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	entry.NormalizeMetadata()
	return &entry, nil
}

// MarshalSources serializes a source list for column storage.
// A nil list is written as an empty JSON array.
func MarshalSources(sources []core.SourceRef) ([]byte, error) {
	if sources == nil {
		sources = []core.SourceRef{}
	}
	data, err := sonic.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalSources deserializes a source list. Empty input yields an empty list.
func UnmarshalSources(data []byte) ([]core.SourceRef, error) {
	sources := []core.SourceRef{}
	if len(data) == 0 {
		return sources, nil
	}
	if err := sonic.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return sources, nil
}

// MarshalMetadata serializes a metadata map. A nil map is written as {}.
func MarshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	data, err := sonic.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalMetadata deserializes a metadata map. Empty input or JSON null
// yields an empty map.
func UnmarshalMetadata(data []byte) (map[string]any, error) {
	metadata := map[string]any{}
	if len(data) == 0 {
		return metadata, nil
	}
	if err := sonic.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return metadata, nil
}
