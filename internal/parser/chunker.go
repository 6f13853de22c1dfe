package parser

import (
	"errors"
	"fmt"
	"strings"

	"studymind/internal/models"
)

// ErrInvalidChunkParams reports an unusable (size, overlap) pair.
var ErrInvalidChunkParams = errors.New("invalid chunk parameters")

const chapterScanLines = 10

// Chunk splits text into overlapping windows of at most size characters.
// Each window after the first starts size-overlap characters after the
// previous window's start, so every character is covered by at least one
// window. A window that would end mid-text prefers to end on a paragraph
// break, then a line break, then a space, searched within its tail so the
// shortened window still reaches the next window's start.
func Chunk(text string, size, overlap int) ([]string, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d, overlap=%d", ErrInvalidChunkParams, size, overlap)
	}
	if len(text) == 0 {
		return nil, nil
	}
	if len(text) <= size {
		return []string{text}, nil
	}

	stride := size - overlap
	var chunks []string
	for start := 0; start < len(text); start += stride {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		chunks = append(chunks, text[start:breakPoint(text, start+stride, end)])
	}
	return chunks, nil
}

// breakPoint picks the window end inside (lo, hi], preferring the last
// paragraph break, then line break, then space. Ends strictly after lo so
// the next window, starting at lo, leaves no gap.
func breakPoint(text string, lo, hi int) int {
	tail := text[lo:hi]
	if i := strings.LastIndex(tail, "\n\n"); i >= 0 {
		return lo + i + 2
	}
	if i := strings.LastIndex(tail, "\n"); i >= 0 {
		return lo + i + 1
	}
	if i := strings.LastIndex(tail, " "); i >= 0 {
		return lo + i + 1
	}
	return hi
}

// DetectChapter scans at most the first 10 lines of a page and returns the
// first trimmed line starting with "chapter" or "lecture" (case-insensitive),
// or the default label when none matches. Chapter filters and quiz requests
// compare against these labels verbatim, so the heuristic must stay stable.
func DetectChapter(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > chapterScanLines {
		lines = lines[:chapterScanLines]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "chapter") || strings.HasPrefix(lower, "lecture") {
			return line
		}
	}
	return models.DefaultChapter
}

// ChunkPages chunks every page and attaches provenance metadata. Chunk
// indexes are 0-based per page; the start offset is the nominal
// index*(size-overlap) position within the page.
func ChunkPages(pages []models.Page, size, overlap int) ([]models.Chunk, error) {
	var out []models.Chunk
	for _, page := range pages {
		chapter := DetectChapter(page.Text)
		windows, err := Chunk(page.Text, size, overlap)
		if err != nil {
			return nil, err
		}
		for i, w := range windows {
			out = append(out, models.Chunk{
				Content: w,
				Meta: models.ChunkMeta{
					Source:     page.Source,
					Page:       page.Number,
					Chapter:    chapter,
					ChunkIndex: i,
					ChunkStart: i * (size - overlap),
				},
			})
		}
	}
	return out, nil
}
