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


package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/gurag/ai"
)

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateAnswerFunc is called by GenerateAnswer if set.
	GenerateAnswerFunc func(ctx context.Context, query string, passages []ai.Passage) (string, error)

	mu        sync.Mutex
	callCount int
	lastCall  []ai.Passage
}

var _ ai.Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a mock generator with default behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// GenerateAnswer returns "answer to {query} from {n} sources" unless overridden.
func (m *MockGenerator) GenerateAnswer(ctx context.Context, query string, passages []ai.Passage) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastCall = append([]ai.Passage(nil), passages...)
	fn := m.GenerateAnswerFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, query, passages)
	}
	return fmt.Sprintf("answer to %s from %d sources", query, len(passages)), nil
}

// CallCount returns the number of times GenerateAnswer was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastPassages returns the passages of the most recent call.
func (m *MockGenerator) LastPassages() []ai.Passage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCall
}

// Reset clears the call history and custom behavior.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastCall = nil
	m.GenerateAnswerFunc = nil
}

// MockKeywordExtractor is a test double for ai.KeywordExtractor.
type MockKeywordExtractor struct {
	// ExtractKeywordsFunc is called by ExtractKeywords if set.
	ExtractKeywordsFunc func(ctx context.Context, query string) (*ai.Keywords, error)

	mu        sync.Mutex
	callCount int
}

var _ ai.KeywordExtractor = (*MockKeywordExtractor)(nil)

// NewMockKeywordExtractor creates a mock keyword extractor with default behavior.
func NewMockKeywordExtractor() *MockKeywordExtractor {
	return &MockKeywordExtractor{}
}

// ExtractKeywords returns ai.FallbackKeywords(query) unless overridden.
func (m *MockKeywordExtractor) ExtractKeywords(ctx context.Context, query string) (*ai.Keywords, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.ExtractKeywordsFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, query)
	}
	return &ai.Keywords{Keywords: ai.FallbackKeywords(query)}, nil
}

// CallCount returns the number of times ExtractKeywords was called.
func (m *MockKeywordExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom behavior.
func (m *MockKeywordExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.ExtractKeywordsFunc = nil
}
