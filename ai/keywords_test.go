package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackKeywords(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"drops short words", "What is RAG in AI", []string{"what", "rag"}},
		{"caps at five", "latest trends large language models retrieval augmented generation", []string{"latest", "trends", "large", "language", "models"}},
		{"empty", "   ", []string{}},
		{"counts runes", "트랜스포머 모델 설명", []string{"트랜스포머"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FallbackKeywords(tt.query))
		})
	}
}
