package retriever

import (
	"context"
	"errors"
	"sort"
	"strings"

	"studymind/internal/index"
	"studymind/internal/models"
)

// overFetchFactor is how many candidates are requested from the raw index
// per requested result, to leave room for filtering losses. With a chapter
// filter, recall is bounded by this factor: relevant filtered content
// outside the top 2*topK unfiltered candidates is missed. Accepted
// trade-off for single-document corpora.
const overFetchFactor = 2

// Retriever composes raw similarity search with categorical post-filtering.
type Retriever struct {
	topK int
}

func New(topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{topK: topK}
}

// Retrieve returns up to topK chunks for the query, optionally restricted
// to one chapter (case-insensitive). An empty result under a filter is a
// valid outcome, not an error. Results keep the index's ascending-distance
// order.
func (r *Retriever) Retrieve(ctx context.Context, idx *index.Index, query, chapterFilter string) ([]string, []models.ChunkMeta, error) {
	chunks, metas, err := idx.Search(ctx, query, r.topK*overFetchFactor)
	if err != nil {
		return nil, nil, err
	}

	if chapterFilter == "" || chapterFilter == models.AllChapters {
		if len(chunks) > r.topK {
			chunks = chunks[:r.topK]
			metas = metas[:r.topK]
		}
		return chunks, metas, nil
	}

	filtered := make([]string, 0, r.topK)
	filteredMetas := make([]models.ChunkMeta, 0, r.topK)
	for i, meta := range metas {
		if !strings.EqualFold(meta.Chapter, chapterFilter) {
			continue
		}
		filtered = append(filtered, chunks[i])
		filteredMetas = append(filteredMetas, meta)
		if len(filtered) >= r.topK {
			break
		}
	}
	return filtered, filteredMetas, nil
}

// Rerank orders chunks by lexical overlap with the query: the number of
// distinct query words appearing in the chunk, over the number of distinct
// query words. Ties keep their input order.
func (r *Retriever) Rerank(query string, chunks []string, metas []models.ChunkMeta) ([]string, []models.ChunkMeta, error) {
	if len(chunks) != len(metas) {
		return nil, nil, errors.New("chunks and metadatas length mismatch")
	}

	queryWords := distinctWords(query)
	scores := make([]float64, len(chunks))
	for i, chunk := range chunks {
		chunkWords := distinctWords(chunk)
		overlap := 0
		for w := range queryWords {
			if _, ok := chunkWords[w]; ok {
				overlap++
			}
		}
		scores[i] = float64(overlap) / float64(max(len(queryWords), 1))
	}

	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	sortedChunks := make([]string, len(chunks))
	sortedMetas := make([]models.ChunkMeta, len(metas))
	for i, j := range order {
		sortedChunks[i] = chunks[j]
		sortedMetas[i] = metas[j]
	}
	return sortedChunks, sortedMetas, nil
}

func distinctWords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		words[w] = struct{}{}
	}
	return words
}
