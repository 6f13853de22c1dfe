package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"studymind/internal/models"
)

// Index is a flat, exact nearest-neighbour index over embedded chunks.
// Entry i of texts, metas and vectors refers to the same chunk; insertion
// order is the only correlation key. Build fully replaces the contents, so
// at most one build runs at a time; searches take read locks and never hold
// a lock across the embedding call. Search is brute-force exact squared
// Euclidean distance, sized for single-session corpora of at most a few
// thousand chunks.
type Index struct {
	mu        sync.RWMutex
	embedder  embeddings.Embedder
	modelName string

	dimension int
	vectors   [][]float32
	texts     []string
	metas     []models.ChunkMeta
}

// New creates an empty index around the injected embedder. modelName is
// stored in the persisted payload for provenance.
func New(embedder embeddings.Embedder, modelName string) *Index {
	return &Index{embedder: embedder, modelName: modelName}
}

// Build embeds all texts in one batch and replaces any existing contents.
func (idx *Index) Build(ctx context.Context, texts []string, metas []models.ChunkMeta) error {
	if len(texts) == 0 {
		return ErrEmptyInput
	}
	if len(texts) != len(metas) {
		return fmt.Errorf("%w: %d texts but %d metadatas", ErrEmptyInput, len(texts), len(metas))
	}

	vectors, err := idx.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding texts: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: embedder returned %d vectors for %d texts", ErrEmptyInput, len(vectors), len(texts))
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("embedding dimension mismatch at entry %d: %d != %d", i, len(v), dim)
		}
	}

	idx.mu.Lock()
	idx.dimension = dim
	idx.vectors = vectors
	idx.texts = append([]string(nil), texts...)
	idx.metas = append([]models.ChunkMeta(nil), metas...)
	idx.mu.Unlock()

	log.Debug().Int("entries", len(texts)).Int("dimension", dim).Msg("Built vector index")
	return nil
}

// Search embeds the query and returns the k nearest entries in ascending
// distance order. When k exceeds the number of stored entries, all entries
// are returned.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]string, []models.ChunkMeta, error) {
	if idx.Count() == 0 {
		return nil, nil, ErrIndexNotBuilt
	}

	queryVec, err := idx.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding query: %w", err)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	type scored struct {
		i    int
		dist float32
	}
	candidates := make([]scored, len(idx.vectors))
	for i, v := range idx.vectors {
		candidates[i] = scored{i: i, dist: sqDistance(queryVec, v)}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].dist < candidates[b].dist
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	texts := make([]string, k)
	metas := make([]models.ChunkMeta, k)
	for i := 0; i < k; i++ {
		texts[i] = idx.texts[candidates[i].i]
		metas[i] = idx.metas[candidates[i].i]
	}
	return texts, metas, nil
}

// AllEntries returns every stored text and metadata in insertion order.
func (idx *Index) AllEntries() ([]string, []models.ChunkMeta, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if len(idx.texts) == 0 {
		return nil, nil, ErrIndexNotBuilt
	}
	texts := append([]string(nil), idx.texts...)
	metas := append([]models.ChunkMeta(nil), idx.metas...)
	return texts, metas, nil
}

// Count returns the number of stored entries.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.texts)
}

func sqDistance(a, b []float32) float32 {
	var sum float32
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
