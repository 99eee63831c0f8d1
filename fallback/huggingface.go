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


package fallback

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/poiesic/gurag/core"
)

// HuggingFaceURL is the HuggingFace Hub model search endpoint.
const HuggingFaceURL = "https://huggingface.co/api/models"

const (
	huggingFaceSite = "https://huggingface.co/"
	noDescription   = "No description available"
)

type hfModel struct {
	ID          string   `json:"id"`
	ModelID     string   `json:"modelId"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Downloads   int64    `json:"downloads"`
	Likes       int64    `json:"likes"`
	Tags        []string `json:"tags"`
}

// HuggingFaceProvider searches HuggingFace Hub models.
type HuggingFaceProvider struct {
	cfg *providerConfig
}

var _ Provider = (*HuggingFaceProvider)(nil)

// NewHuggingFaceProvider creates a HuggingFace Hub provider.
func NewHuggingFaceProvider(opts ...ProviderOption) (*HuggingFaceProvider, error) {
	cfg, err := newProviderConfig(HuggingFaceURL, nil, opts)
	if err != nil {
		return nil, err
	}
	return &HuggingFaceProvider{cfg: cfg}, nil
}

// Name implements Provider.
func (p *HuggingFaceProvider) Name() string {
	return "huggingface"
}

// Search implements Provider.
func (p *HuggingFaceProvider) Search(ctx context.Context, keywords []string, maxResults int) ([]*core.ExternalResult, error) {
	if len(keywords) == 0 {
		return []*core.ExternalResult{}, nil
	}
	if maxResults <= 0 {
		return nil, ErrInvalidMaxResults
	}

	params := url.Values{}
	params.Set("search", strings.Join(keywords, " "))
	params.Set("limit", strconv.Itoa(maxResults))

	body, err := p.cfg.get(ctx, p.cfg.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var models []hfModel
	if err := sonic.Unmarshal(body, &models); err != nil {
		return nil, fmt.Errorf("decoding huggingface response: %w", err)
	}
	if len(models) > maxResults {
		models = models[:maxResults]
	}

	results := make([]*core.ExternalResult, 0, len(models))
	for _, m := range models {
		id := m.ModelID
		if id == "" {
			id = m.ID
		}
		description := m.Description
		if description == "" {
			description = noDescription
		}
		tags := m.Tags
		if tags == nil {
			tags = []string{}
		}

		results = append(results, &core.ExternalResult{
			Content:      "HuggingFace Model: " + id + "\n\nDescription: " + description,
			SourceType:   core.SourceTypeHuggingFace,
			SourceURL:    huggingFaceSite + id,
			SourceTitle:  id,
			SourceAuthor: m.Author,
			Metadata: map[string]any{
				"downloads": m.Downloads,
				"likes":     m.Likes,
				"tags":      tags,
			},
		})
	}
	return results, nil
}
