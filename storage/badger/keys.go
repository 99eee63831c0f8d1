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

import (
	"encoding/binary"

	"github.com/poiesic/gurag/core"
)

// Key prefixes for different data types.
// Sequence keys live outside the record prefixes so prefix scans never see them.
const (
	cacheEntryPrefix     = "cacent:"
	knowledgeEntryPrefix = "knoent:"
	cacheEntryIDSeq      = "seq:cacent"
	knowledgeEntryIDSeq  = "seq:knoent"
)

// makeCacheEntryKey generates a key for a cache entry by ID.
func makeCacheEntryKey(id core.ID) []byte {
	return makeIDKey(cacheEntryPrefix, id)
}

// makeKnowledgeEntryKey generates a key for a knowledge entry by ID.
func makeKnowledgeEntryKey(id core.ID) []byte {
	return makeIDKey(knowledgeEntryPrefix, id)
}

// makeIDKey generates a composite key.
// Format: prefix + 8-byte ID
func makeIDKey(prefix string, id core.ID) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort matches insertion order
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
