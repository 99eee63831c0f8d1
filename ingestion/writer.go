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


package ingestion

import (
	"context"
	"log/slog"

	"github.com/poiesic/gurag/ai"
	"github.com/poiesic/gurag/core"
	"github.com/poiesic/gurag/storage"
)

// writer embeds a single entry and appends it to the knowledge store.
type writer struct {
	repo      storage.KnowledgeRepository
	embedder  ai.Embedder
	dimension int
	logger    *slog.Logger
}

// write embeds entry.Content and appends the entry.
func (w *writer) write(ctx context.Context, entry *core.KnowledgeEntry) (*core.KnowledgeEntry, error) {
	vector, err := w.embedder.EmbedText(ctx, entry.Content)
	if err != nil {
		w.logger.Error("error generating embedding", "source_type", entry.SourceType, "err", err)
		return nil, core.NewTierError(core.ErrEmbedding, core.TierIngest, "embed", err)
	}
	entry.Vector = vector

	if err := core.ValidateKnowledgeEntry(entry, w.dimension); err != nil {
		return nil, core.NewTierError(core.ErrEmbedding, core.TierIngest, "embed", err)
	}

	added, err := w.repo.AddKnowledgeEntries(ctx, entry)
	if err != nil {
		w.logger.Error("error appending knowledge entry", "source_type", entry.SourceType, "err", err)
		return nil, core.NewTierError(core.ErrStorage, core.TierIngest, "append", err)
	}

	w.logger.Info("ingested knowledge entry", "id", added[0].Id, "source_type", added[0].SourceType)
	return added[0], nil
}
