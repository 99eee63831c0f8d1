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


package openai

import (
	"context"
	"log/slog"

	"github.com/bytedance/sonic"
	"github.com/poiesic/gurag/ai"
	"github.com/poiesic/gurag/core"
	"github.com/tmc/langchaingo/llms"
)

const (
	keywordTemperature = 0.3
	keywordMaxTokens   = 200
	keywordAttempts    = 3
	maxKeywords        = 7
)

// keywordResult matches the JSON object the model is asked to produce.
type keywordResult struct {
	Keywords       []string `json:"keywords"`
	SourceTypeHint *string  `json:"source_type_hint"`
}

// KeywordExtractor implements ai.KeywordExtractor using an OpenAI-compatible chat API.
type KeywordExtractor struct {
	client llms.Model
	logger *slog.Logger
}

// newKeywordExtractor is an internal constructor that returns the concrete type.
func newKeywordExtractor(config *ai.Config) (*KeywordExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := newChatClient(config)
	if err != nil {
		return nil, err
	}

	return &KeywordExtractor{
		client: client,
		logger: slog.Default().With("component", "openai-keywords"),
	}, nil
}

// NewKeywordExtractor creates a new keyword extractor using the provided configuration.
//
// Returns ai.KeywordExtractor interface to enforce abstraction.
func NewKeywordExtractor(config *ai.Config) (ai.KeywordExtractor, error) {
	return newKeywordExtractor(config)
}

// ExtractKeywords asks the model for search keywords. A transport failure or
// output that is still unparseable after retries degrades to
// ai.FallbackKeywords; this method only fails when ctx is done.
func (e *KeywordExtractor) ExtractKeywords(ctx context.Context, query string) (*ai.Keywords, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, keywordSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildKeywordPrompt(query)),
	}

	var lastErr error
	for attempt := 0; attempt < keywordAttempts; attempt++ {
		response, err := e.client.GenerateContent(ctx, content,
			llms.WithTemperature(keywordTemperature),
			llms.WithMaxTokens(keywordMaxTokens),
			llms.WithJSONMode(),
		)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			e.logger.Error("keyword extraction failed", "attempt", attempt+1, "err", err)
			lastErr = err
			break
		}
		if len(response.Choices) == 0 {
			e.logger.Debug("no choices returned from model")
			break
		}

		result, err := parseKeywordResult(response.Choices[0].Content)
		if err != nil {
			lastErr = err
			e.logger.Warn("error parsing keyword response",
				"attempt", attempt+1,
				"response", response.Choices[0].Content,
				"err", err)
			continue
		}

		e.logger.Info("extracted keywords", "keywords", result.Keywords, "hint", result.SourceTypeHint)
		return result, nil
	}

	keywords := ai.FallbackKeywords(query)
	e.logger.Warn("using fallback keywords", "keywords", keywords, "err", lastErr)
	return &ai.Keywords{Keywords: keywords}, nil
}

// parseKeywordResult decodes, cleans and caps the model output.
// Unknown or general source hints are dropped.
func parseKeywordResult(raw string) (*ai.Keywords, error) {
	text := repairJSON(stripCodeFence(raw))

	var parsed keywordResult
	if err := sonic.UnmarshalString(text, &parsed); err != nil {
		return nil, err
	}

	keywords := make([]string, 0, len(parsed.Keywords))
	seen := make(map[string]struct{}, len(parsed.Keywords))
	for _, kw := range parsed.Keywords {
		kw = cleanKeyword(kw)
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
		if len(keywords) == maxKeywords {
			break
		}
	}

	result := &ai.Keywords{Keywords: keywords}
	if parsed.SourceTypeHint != nil {
		switch hint := core.SourceType(*parsed.SourceTypeHint); hint {
		case core.SourceTypeExpertInsight, core.SourceTypeArxivPaper, core.SourceTypeHuggingFace:
			result.SourceTypeHint = hint
		}
	}
	return result, nil
}
