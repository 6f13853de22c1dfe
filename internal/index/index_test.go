package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studymind/internal/models"
)

// stubEmbedder returns fixed vectors per text so distances are known.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = s.vectors[t]
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors[text], nil
}

func testEmbedder() *stubEmbedder {
	return &stubEmbedder{vectors: map[string][]float32{
		"near":  {1, 0},
		"mid":   {2, 0},
		"far":   {3, 0},
		"query": {0, 0},
	}}
}

func testMetas(n int) []models.ChunkMeta {
	metas := make([]models.ChunkMeta, n)
	for i := range metas {
		metas[i] = models.ChunkMeta{Source: "notes.pdf", Page: i + 1, Chapter: "General", ChunkIndex: i}
	}
	return metas
}

func TestIndexBuild(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Should fail on empty input", func(t *testing.T) {
		t.Parallel()
		idx := New(testEmbedder(), "test-model")
		err := idx.Build(ctx, nil, nil)
		require.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("Should fail on mismatched texts and metadatas", func(t *testing.T) {
		t.Parallel()
		idx := New(testEmbedder(), "test-model")
		err := idx.Build(ctx, []string{"near", "mid"}, testMetas(1))
		require.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("Should wrap embedder failures", func(t *testing.T) {
		t.Parallel()
		idx := New(&stubEmbedder{err: errors.New("backend down")}, "test-model")
		err := idx.Build(ctx, []string{"near"}, testMetas(1))
		require.Error(t, err)
		assert.ErrorContains(t, err, "backend down")
	})

	t.Run("Should replace existing contents on rebuild", func(t *testing.T) {
		t.Parallel()
		idx := New(testEmbedder(), "test-model")
		require.NoError(t, idx.Build(ctx, []string{"near", "mid", "far"}, testMetas(3)))
		require.Equal(t, 3, idx.Count())

		require.NoError(t, idx.Build(ctx, []string{"far"}, testMetas(1)))
		assert.Equal(t, 1, idx.Count())
		texts, _, err := idx.AllEntries()
		require.NoError(t, err)
		assert.Equal(t, []string{"far"}, texts)
	})
}

func TestIndexSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Should fail before any build", func(t *testing.T) {
		t.Parallel()
		idx := New(testEmbedder(), "test-model")
		_, _, err := idx.Search(ctx, "query", 3)
		require.ErrorIs(t, err, ErrIndexNotBuilt)
	})

	t.Run("Should return nearest entries in ascending distance order", func(t *testing.T) {
		t.Parallel()
		idx := New(testEmbedder(), "test-model")
		require.NoError(t, idx.Build(ctx, []string{"far", "near", "mid"}, testMetas(3)))

		texts, metas, err := idx.Search(ctx, "query", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"near", "mid"}, texts)
		require.Len(t, metas, 2)
		assert.Equal(t, 2, metas[0].Page) // "near" was inserted second
	})

	t.Run("Should return all entries when k exceeds count", func(t *testing.T) {
		t.Parallel()
		idx := New(testEmbedder(), "test-model")
		require.NoError(t, idx.Build(ctx, []string{"near", "mid"}, testMetas(2)))

		texts, metas, err := idx.Search(ctx, "query", 10)
		require.NoError(t, err)
		assert.Len(t, texts, 2)
		assert.Len(t, metas, 2)
	})
}

func TestIndexAllEntries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Should fail before any build", func(t *testing.T) {
		t.Parallel()
		idx := New(testEmbedder(), "test-model")
		_, _, err := idx.AllEntries()
		require.ErrorIs(t, err, ErrIndexNotBuilt)
	})

	t.Run("Should preserve insertion order", func(t *testing.T) {
		t.Parallel()
		idx := New(testEmbedder(), "test-model")
		require.NoError(t, idx.Build(ctx, []string{"far", "near", "mid"}, testMetas(3)))

		texts, metas, err := idx.AllEntries()
		require.NoError(t, err)
		assert.Equal(t, []string{"far", "near", "mid"}, texts)
		assert.Equal(t, 1, metas[0].Page)
		assert.Equal(t, 3, metas[2].Page)
	})
}

func TestIndexPersistence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Should round-trip texts, metadatas and search results", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "index_abc")
		idx := New(testEmbedder(), "test-model")
		require.NoError(t, idx.Build(ctx, []string{"far", "near", "mid"}, testMetas(3)))
		require.NoError(t, idx.Persist(path))

		loaded := New(testEmbedder(), "")
		require.NoError(t, loaded.Load(path))

		wantTexts, wantMetas, err := idx.AllEntries()
		require.NoError(t, err)
		gotTexts, gotMetas, err := loaded.AllEntries()
		require.NoError(t, err)
		assert.Equal(t, wantTexts, gotTexts)
		assert.Equal(t, wantMetas, gotMetas)

		wantHits, _, err := idx.Search(ctx, "query", 2)
		require.NoError(t, err)
		gotHits, _, err := loaded.Search(ctx, "query", 2)
		require.NoError(t, err)
		assert.Equal(t, wantHits, gotHits)
	})

	t.Run("Should fail to persist an empty index", func(t *testing.T) {
		t.Parallel()
		idx := New(testEmbedder(), "test-model")
		err := idx.Persist(filepath.Join(t.TempDir(), "index_empty"))
		require.ErrorIs(t, err, ErrIndexNotBuilt)
	})

	t.Run("Should fail to load when no artifacts exist", func(t *testing.T) {
		t.Parallel()
		idx := New(testEmbedder(), "test-model")
		err := idx.Load(filepath.Join(t.TempDir(), "index_missing"))
		require.ErrorIs(t, err, ErrCorruptIndex)
	})

	t.Run("Should fail to load when one companion artifact is missing", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "index_abc")
		idx := New(testEmbedder(), "test-model")
		require.NoError(t, idx.Build(ctx, []string{"near"}, testMetas(1)))
		require.NoError(t, idx.Persist(path))
		require.NoError(t, os.Remove(path+payloadExt))

		err := New(testEmbedder(), "").Load(path)
		require.ErrorIs(t, err, ErrCorruptIndex)
	})

	t.Run("Should fail to load mismatched artifacts", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		big := filepath.Join(dir, "index_big")
		small := filepath.Join(dir, "index_small")

		idx := New(testEmbedder(), "test-model")
		require.NoError(t, idx.Build(ctx, []string{"near", "mid"}, testMetas(2)))
		require.NoError(t, idx.Persist(big))
		require.NoError(t, idx.Build(ctx, []string{"far"}, testMetas(1)))
		require.NoError(t, idx.Persist(small))

		// Pair big's vectors with small's payload.
		data, err := os.ReadFile(small + payloadExt)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(big+payloadExt, data, 0o644))

		err = New(testEmbedder(), "").Load(big)
		require.ErrorIs(t, err, ErrCorruptIndex)
	})
}
