package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantSame bool
	}{
		{
			name:     "same content produces same ID",
			content:  "test content",
			wantSame: true,
		},
		{
			name:     "empty string",
			content:  "",
			wantSame: true,
		},
		{
			name:     "long content",
			content:  "This is a much longer piece of content that should still hash consistently",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if tt.wantSame && id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestKnowledgeEntry_NormalizeMetadata(t *testing.T) {
	entry := &KnowledgeEntry{Content: "x"}
	entry.NormalizeMetadata()
	if entry.Metadata == nil {
		t.Fatal("expected empty metadata map, got nil")
	}
	if len(entry.Metadata) != 0 {
		t.Errorf("expected empty metadata, got %v", entry.Metadata)
	}

	entry.Metadata["k"] = "v"
	entry.NormalizeMetadata()
	if entry.Metadata["k"] != "v" {
		t.Errorf("existing metadata was replaced")
	}
}

func TestKnowledgeEntry_SourceRef(t *testing.T) {
	entry := &KnowledgeEntry{
		SourceType:   SourceTypeArxivPaper,
		SourceTitle:  "Attention Is All You Need",
		SourceURL:    "http://arxiv.org/abs/1706.03762v7",
		SourceAuthor: "Ashish Vaswani, Noam Shazeer, Niki Parmar",
	}

	ref := entry.SourceRef(0.895)
	if ref.SourceType != SourceTypeArxivPaper || ref.Title != entry.SourceTitle ||
		ref.URL != entry.SourceURL || ref.Author != entry.SourceAuthor {
		t.Errorf("unexpected source ref: %+v", ref)
	}
	if ref.RelevanceScore != 0.895 {
		t.Errorf("expected relevance 0.895, got %v", ref.RelevanceScore)
	}
}

func TestExternalResult_SourceRef(t *testing.T) {
	result := &ExternalResult{
		SourceType:  SourceTypeHuggingFace,
		SourceTitle: "bert-base-uncased",
		SourceURL:   "https://huggingface.co/bert-base-uncased",
	}

	ref := result.SourceRef()
	if ref.RelevanceScore != 0 {
		t.Errorf("external results should carry zero relevance, got %v", ref.RelevanceScore)
	}
	if ref.Title != "bert-base-uncased" {
		t.Errorf("unexpected title %q", ref.Title)
	}
}
