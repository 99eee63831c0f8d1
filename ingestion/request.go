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
	"fmt"
	"maps"
	"strings"

	"github.com/poiesic/gurag/core"
)

// Request is a passage to add to the knowledge store.
type Request struct {
	Content    string         `json:"content"`
	SourceType string         `json:"source_type,omitempty"`
	URL        string         `json:"source_url,omitempty"`
	Title      string         `json:"source_title,omitempty"`
	Author     string         `json:"source_author,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// RequestFromResult converts an external search result into a Request.
func RequestFromResult(r *core.ExternalResult) *Request {
	return &Request{
		Content:    r.Content,
		SourceType: string(r.SourceType),
		URL:        r.SourceURL,
		Title:      r.SourceTitle,
		Author:     r.SourceAuthor,
		Metadata:   r.Metadata,
	}
}

// entry validates the request and builds an unembedded knowledge entry.
// An empty source type means manual.
func (r *Request) entry() (*core.KnowledgeEntry, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: request is nil", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Content) == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, core.ErrEmptyContent)
	}
	sourceType, err := core.ParseSourceType(r.SourceType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	entry := &core.KnowledgeEntry{
		Content:      r.Content,
		SourceType:   sourceType,
		SourceURL:    r.URL,
		SourceTitle:  r.Title,
		SourceAuthor: r.Author,
		Metadata:     maps.Clone(r.Metadata),
	}
	entry.NormalizeMetadata()
	return entry, nil
}
