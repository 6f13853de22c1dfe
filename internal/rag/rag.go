package rag

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"studymind/internal/config"
	"studymind/internal/index"
	"studymind/internal/llmservice"
	"studymind/internal/models"
	"studymind/internal/parser"
	"studymind/internal/quiz"
	"studymind/internal/retriever"
)

// ErrChapterNotFound is returned when a quiz is requested for a chapter
// with no indexed content.
var ErrChapterNotFound = errors.New("no content found for chapter")

// Completer is the one LLM capability the service needs.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Service wires upload -> chunk -> embed/index -> persist and
// query -> retrieve -> prompt -> answer. It is request-scoped and mostly
// synchronous; the build mutex serialises index builds since each build
// fully replaces the persisted state.
type Service struct {
	cfg       *config.Config
	embedder  embeddings.Embedder
	llm       Completer
	retriever *retriever.Retriever
	markdown  goldmark.Markdown

	buildMu sync.Mutex
}

func NewService(cfg *config.Config, embedder embeddings.Embedder, llm Completer) *Service {
	return &Service{
		cfg:       cfg,
		embedder:  embedder,
		llm:       llm,
		retriever: retriever.New(cfg.RAG.TopK),
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

type IngestResult struct {
	DocumentID string   `json:"document_id"`
	NumChunks  int      `json:"num_chunks"`
	Chapters   []string `json:"chapters"`
}

// Ingest parses the saved upload files, chunks them, builds a fresh index
// and persists it under the given document id, which then becomes current.
func (s *Service) Ingest(ctx context.Context, docID string, filePaths []string) (*IngestResult, error) {
	var chunks []models.Chunk
	for _, filePath := range filePaths {
		pages, err := parser.ExtractPages(filePath, filepath.Base(filePath))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filepath.Base(filePath), err)
		}
		pageChunks, err := parser.ChunkPages(pages, s.cfg.RAG.ChunkSize, s.cfg.RAG.ChunkOverlap)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, pageChunks...)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no text could be extracted", index.ErrEmptyInput)
	}

	texts := make([]string, len(chunks))
	metas := make([]models.ChunkMeta, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
		metas[i] = c.Meta
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	idx := index.New(s.embedder, s.cfg.EmbedLLM.Model)
	if err := idx.Build(ctx, texts, metas); err != nil {
		return nil, err
	}
	if err := idx.Persist(s.indexPath(docID)); err != nil {
		return nil, err
	}
	if err := s.setCurrent(docID); err != nil {
		return nil, err
	}

	log.Info().Str("document_id", docID).Int("chunks", len(chunks)).Msg("Ingested documents")
	return &IngestResult{
		DocumentID: docID,
		NumChunks:  len(chunks),
		Chapters:   distinctChapters(metas),
	}, nil
}

type AnswerResult struct {
	Answer     string          `json:"answer"`
	AnswerHTML string          `json:"answer_html"`
	Sources    []models.Source `json:"sources"`
	ModelUsed  string          `json:"model_used"`
}

// Answer runs retrieval-augmented question answering against the current
// index. Finding no relevant chunks is a valid outcome and produces a
// canned answer with no sources, not an error.
func (s *Service) Answer(ctx context.Context, query, chapterFilter string) (*AnswerResult, error) {
	idx, err := s.loadCurrent()
	if err != nil {
		return nil, err
	}

	chunks, metas, err := s.retriever.Retrieve(ctx, idx, query, chapterFilter)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &AnswerResult{
			Answer:    "No relevant information found in the documents.",
			Sources:   []models.Source{},
			ModelUsed: s.llm.Model(),
		}, nil
	}

	answer, err := s.llm.Complete(ctx, llmservice.AnswerPrompt(query, chunks))
	if err != nil {
		return nil, err
	}

	sources := make([]models.Source, len(chunks))
	for i, chunk := range chunks {
		sources[i] = models.Source{
			Content: snippet(chunk, 200),
			Source:  metas[i].Source,
			Page:    metas[i].Page,
			Chapter: metas[i].Chapter,
		}
	}

	return &AnswerResult{
		Answer:     answer,
		AnswerHTML: s.renderMarkdown(answer),
		Sources:    sources,
		ModelUsed:  s.llm.Model(),
	}, nil
}

type QuizResult struct {
	Chapter   string            `json:"chapter"`
	Questions string            `json:"questions"`
	Parsed    []models.Question `json:"parsed"`
	ModelUsed string            `json:"model_used"`
}

// Quiz generates multiple-choice questions from one chapter's chunks and
// parses the raw quiz text into structured records.
func (s *Service) Quiz(ctx context.Context, chapter string, numQuestions int) (*QuizResult, error) {
	idx, err := s.loadCurrent()
	if err != nil {
		return nil, err
	}

	texts, metas, err := idx.AllEntries()
	if err != nil {
		return nil, err
	}
	var chapterChunks []string
	for i, meta := range metas {
		if strings.EqualFold(meta.Chapter, chapter) {
			chapterChunks = append(chapterChunks, texts[i])
		}
	}
	if len(chapterChunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrChapterNotFound, chapter)
	}

	raw, err := s.llm.Complete(ctx, quiz.BuildPrompt(chapter, chapterChunks, numQuestions))
	if err != nil {
		return nil, err
	}

	return &QuizResult{
		Chapter:   chapter,
		Questions: raw,
		Parsed:    quiz.Parse(raw),
		ModelUsed: s.llm.Model(),
	}, nil
}

// Chapters lists the distinct chapter labels of the current index.
func (s *Service) Chapters() ([]string, error) {
	idx, err := s.loadCurrent()
	if err != nil {
		return nil, err
	}
	_, metas, err := idx.AllEntries()
	if err != nil {
		return nil, err
	}
	return distinctChapters(metas), nil
}

// Clear removes all persisted indexes, uploads and the current pointer.
func (s *Service) Clear() error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	for _, dir := range []string{s.cfg.RAG.StoreDir, s.cfg.RAG.UploadDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) indexPath(docID string) string {
	return filepath.Join(s.cfg.RAG.StoreDir, "index_"+docID)
}

const currentPointer = "CURRENT"

// setCurrent atomically rewrites the pointer file naming the active index.
func (s *Service) setCurrent(docID string) error {
	path := filepath.Join(s.cfg.RAG.StoreDir, currentPointer)
	tmp, err := os.CreateTemp(s.cfg.RAG.StoreDir, currentPointer+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(docID + "\n"); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// loadCurrent loads the index named by the pointer file. Stores written
// before the pointer existed are still honoured by falling back to the
// lexicographically last index in the directory.
func (s *Service) loadCurrent() (*index.Index, error) {
	base, err := s.currentBase()
	if err != nil {
		return nil, err
	}
	idx := index.New(s.embedder, s.cfg.EmbedLLM.Model)
	if err := idx.Load(base); err != nil {
		return nil, err
	}
	return idx, nil
}

func (s *Service) currentBase() (string, error) {
	pointer := filepath.Join(s.cfg.RAG.StoreDir, currentPointer)
	if data, err := os.ReadFile(pointer); err == nil {
		docID := strings.TrimSpace(string(data))
		if docID != "" {
			return s.indexPath(docID), nil
		}
	}

	entries, err := os.ReadDir(s.cfg.RAG.StoreDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", index.ErrIndexNotBuilt
		}
		return "", err
	}
	var bases []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "index_") && strings.HasSuffix(name, ".json") {
			bases = append(bases, strings.TrimSuffix(name, ".json"))
		}
	}
	if len(bases) == 0 {
		return "", index.ErrIndexNotBuilt
	}
	sort.Strings(bases)
	return filepath.Join(s.cfg.RAG.StoreDir, bases[len(bases)-1]), nil
}

func (s *Service) renderMarkdown(text string) string {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(text), &buf); err != nil {
		log.Warn().Err(err).Msg("Error rendering answer markdown")
		return ""
	}
	return buf.String()
}

func distinctChapters(metas []models.ChunkMeta) []string {
	seen := make(map[string]struct{})
	var chapters []string
	for _, meta := range metas {
		if _, ok := seen[meta.Chapter]; ok {
			continue
		}
		seen[meta.Chapter] = struct{}{}
		chapters = append(chapters, meta.Chapter)
	}
	sort.Strings(chapters)
	return chapters
}

func snippet(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
