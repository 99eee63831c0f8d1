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
	"fmt"
	"strings"

	"github.com/poiesic/gurag/ai"
)

const (
	answerSystemPrompt = "You are a helpful AI research assistant with expertise in machine learning, AI, and academic research."

	answerPromptTemplate = `You are an AI research assistant. Based on the provided context, answer the user's question accurately and concisely.

Context from knowledge base:
%s

User question: %s

Instructions:
1. Synthesize information from the provided sources
2. Be specific and cite relevant details from the context
3. If the context doesn't fully answer the question, acknowledge limitations
4. Keep the response focused and informative
5. Do not make up information not present in the context
6. IMPORTANT: Respond in the same language as the user's question. If the question is in Korean, respond in Korean. If the question is in English, respond in English.

Response:`

	// Passage content beyond this many runes is cut before prompting.
	maxPassageRunes = 1000

	passageSeparator = "\n\n---\n\n"
)

const (
	keywordSystemPrompt = "You are a keyword extraction assistant. Always respond with valid JSON."

	keywordPromptTemplate = `Extract technical keywords from the following query for searching a knowledge base about AI, machine learning, and research papers.

Rules:
1. Extract 3-7 specific technical keywords or phrases
2. Convert abstract concepts to technical terms (e.g., "AI trends" → "large language models", "transformers", "AI")
3. Keep keywords concise but specific
4. Include relevant acronyms if applicable (e.g., "LLM", "RAG", "NLP")
5. Identify if the query is asking about: expert_insight, arxiv_paper, huggingface, or general

Query: %s

Respond in JSON format:
{
    "keywords": ["keyword1", "keyword2", ...],
    "source_type_hint": "expert_insight" | "arxiv_paper" | "huggingface" | null
}`
)

// buildContext renders passages as numbered source blocks.
func buildContext(passages []ai.Passage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = fmt.Sprintf("[Source %d] (%s)\n%s", i+1, p.SourceType, truncateRunes(p.Content, maxPassageRunes))
	}
	return strings.Join(parts, passageSeparator)
}

func buildAnswerPrompt(query string, passages []ai.Passage) string {
	return fmt.Sprintf(answerPromptTemplate, buildContext(passages), query)
}

func buildKeywordPrompt(query string) string {
	return fmt.Sprintf(keywordPromptTemplate, query)
}
