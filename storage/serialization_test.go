package storage

import (
	"testing"
	"time"

	"github.com/poiesic/gurag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalKnowledgeEntry(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	entry := &core.KnowledgeEntry{
		Id:           core.ID(7),
		Content:      "Title: Attention Is All You Need\n\nAbstract: ...",
		Vector:       []float32{0.25, -0.5, 1},
		SourceType:   core.SourceTypeArxivPaper,
		SourceURL:    "http://arxiv.org/abs/1706.03762v7",
		SourceTitle:  "Attention Is All You Need",
		SourceAuthor: "Ashish Vaswani",
		Metadata: map[string]any{
			"arxiv_id":   "1706.03762v7",
			"categories": []any{"cs.CL"},
		},
		CreatedAt: now,
	}

	data, err := MarshalKnowledgeEntry(entry)
	require.NoError(t, err)

	decoded, err := UnmarshalKnowledgeEntry(data)
	require.NoError(t, err)
	assert.Equal(t, entry.Id, decoded.Id)
	assert.Equal(t, entry.Content, decoded.Content)
	assert.Equal(t, entry.Vector, decoded.Vector)
	assert.Equal(t, entry.SourceType, decoded.SourceType)
	assert.Equal(t, entry.Metadata, decoded.Metadata)
	assert.True(t, entry.CreatedAt.Equal(decoded.CreatedAt))
}

func TestUnmarshalKnowledgeEntry_NullMetadata(t *testing.T) {
	decoded, err := UnmarshalKnowledgeEntry([]byte(`{"id":1,"content":"x","source_type":"manual","metadata":null}`))
	require.NoError(t, err)
	require.NotNil(t, decoded.Metadata, "null metadata must surface as an empty map")
	assert.Empty(t, decoded.Metadata)
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := UnmarshalKnowledgeEntry([]byte("not json"))
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalCacheEntry([]byte("{"))
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalSources([]byte("{}"))
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalCacheEntry_PreservesSourceOrder(t *testing.T) {
	entry := &core.CacheEntry{
		Id:           core.ID(3),
		QueryText:    "what is retrieval augmented generation",
		QueryVector:  []float32{1, 0},
		ResponseText: "RAG combines retrieval with generation.",
		Sources: []core.SourceRef{
			{SourceType: core.SourceTypeExpertInsight, Title: "first", RelevanceScore: 0.9},
			{SourceType: core.SourceTypeManual, Title: "second", RelevanceScore: 0.7},
		},
		HitCount: 4,
	}

	data, err := MarshalCacheEntry(entry)
	require.NoError(t, err)

	decoded, err := UnmarshalCacheEntry(data)
	require.NoError(t, err)
	require.Len(t, decoded.Sources, 2)
	assert.Equal(t, "first", decoded.Sources[0].Title)
	assert.Equal(t, "second", decoded.Sources[1].Title)
	assert.Equal(t, int64(4), decoded.HitCount)
}

func TestSourcesAndMetadata_EmptyValues(t *testing.T) {
	data, err := MarshalSources(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	sources, err := UnmarshalSources(nil)
	require.NoError(t, err)
	assert.NotNil(t, sources)
	assert.Empty(t, sources)

	data, err = MarshalMetadata(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	metadata, err := UnmarshalMetadata([]byte("null"))
	require.NoError(t, err)
	assert.NotNil(t, metadata)
	assert.Empty(t, metadata)
}
