package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memRecord(id, docID, text string, vector []float32) Record {
	return Record{
		ID:     id,
		Vector: vector,
		Metadata: RecordMetadata{
			DocID:     docID,
			Title:     "Title of " + docID,
			ChunkText: text,
		},
	}
}

func TestMemoryVectorStore_QueryRanksBySimilarity(t *testing.T) {
	store := NewMemoryVectorStore()
	ctx := context.Background()

	err := store.Upsert(ctx, []Record{
		memRecord("a#chunk-0", "a", "aligned", []float32{1, 0, 0}),
		memRecord("b#chunk-0", "b", "orthogonal", []float32{0, 1, 0}),
		memRecord("c#chunk-0", "c", "diagonal", []float32{1, 1, 0}),
	})
	require.NoError(t, err)

	matches, err := store.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "a#chunk-0", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, "c#chunk-0", matches[1].ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestMemoryVectorStore_UpsertReplacesByID(t *testing.T) {
	store := NewMemoryVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Record{
		memRecord("a#chunk-0", "a", "old text", []float32{1, 0}),
	}))
	require.NoError(t, store.Upsert(ctx, []Record{
		memRecord("a#chunk-0", "a", "new text", []float32{1, 0}),
	}))

	matches, err := store.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new text", matches[0].Metadata.ChunkText)
}

func TestMemoryVectorStore_DeleteByDocID(t *testing.T) {
	store := NewMemoryVectorStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Record{
		memRecord("a#chunk-0", "a", "first", []float32{1, 0}),
		memRecord("a#chunk-1", "a", "second", []float32{0.9, 0.1}),
		memRecord("b#chunk-0", "b", "other", []float32{0, 1}),
	}))

	require.NoError(t, store.DeleteByDocID(ctx, "a"))

	matches, err := store.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b#chunk-0", matches[0].ID)

	// 删除不存在的文档不报错
	assert.NoError(t, store.DeleteByDocID(ctx, "missing"))
}

func TestMemoryVectorStore_QueryEmptyStore(t *testing.T) {
	store := NewMemoryVectorStore()

	matches, err := store.Query(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
