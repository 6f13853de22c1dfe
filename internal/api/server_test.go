package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studymind/internal/config"
	"studymind/internal/rag"
)

type fixedEmbedder struct{}

func (fixedEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), float32(len(strings.Fields(t)))}
	}
	return out, nil
}

func (fixedEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), float32(len(strings.Fields(text)))}, nil
}

type fixedCompleter struct {
	response string
}

func (f *fixedCompleter) Complete(_ context.Context, _ string) (string, error) {
	return f.response, nil
}

func (f *fixedCompleter) Model() string { return "stub-model" }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.RAG.StoreDir = filepath.Join(t.TempDir(), "vector_store")
	cfg.RAG.UploadDir = filepath.Join(t.TempDir(), "temp_uploads")
	svc := rag.NewService(cfg, fixedEmbedder{}, &fixedCompleter{response: "Grounded answer."})
	return NewServer(cfg, svc)
}

func uploadNotes(t *testing.T, s *Server, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("files", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestServer(t *testing.T) {
	const notes = "Chapter 1: Intro\nThermodynamics studies heat and energy transfer between systems."

	t.Run("Should report healthy", func(t *testing.T) {
		s := newTestServer(t)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "healthy")
	})

	t.Run("Should reject queries before any upload", func(t *testing.T) {
		s := newTestServer(t)
		body := `{"query": "what is entropy"}`
		req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "No documents uploaded yet")
	})

	t.Run("Should reject unsupported upload formats", func(t *testing.T) {
		s := newTestServer(t)
		w := uploadNotes(t, s, "notes.exe", "binary")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "unsupported format")
	})

	t.Run("Should upload, then answer queries with sources", func(t *testing.T) {
		s := newTestServer(t)
		w := uploadNotes(t, s, "notes.txt", notes)
		require.Equal(t, http.StatusOK, w.Code)

		var uploadResp struct {
			DocumentID string   `json:"document_id"`
			NumChunks  int      `json:"num_chunks"`
			Chapters   []string `json:"chapters"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploadResp))
		assert.NotEmpty(t, uploadResp.DocumentID)
		assert.Greater(t, uploadResp.NumChunks, 0)
		assert.Equal(t, []string{"Chapter 1: Intro"}, uploadResp.Chapters)

		req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query": "what is thermodynamics"}`))
		req.Header.Set("Content-Type", "application/json")
		w = httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var queryResp struct {
			Answer    string `json:"answer"`
			ModelUsed string `json:"model_used"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queryResp))
		assert.Equal(t, "Grounded answer.", queryResp.Answer)
		assert.Equal(t, "stub-model", queryResp.ModelUsed)
	})

	t.Run("Should list chapters after upload and none before", func(t *testing.T) {
		s := newTestServer(t)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chapters", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"chapters": []}`, w.Body.String())

		require.Equal(t, http.StatusOK, uploadNotes(t, s, "notes.txt", notes).Code)

		w = httptest.NewRecorder()
		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chapters", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Chapter 1: Intro")
	})

	t.Run("Should 404 a quiz for an unknown chapter", func(t *testing.T) {
		s := newTestServer(t)
		require.Equal(t, http.StatusOK, uploadNotes(t, s, "notes.txt", notes).Code)

		req := httptest.NewRequest(http.MethodPost, "/generate-quiz", strings.NewReader(`{"chapter": "Chapter 9: Unknown"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Should clear all data", func(t *testing.T) {
		s := newTestServer(t)
		require.Equal(t, http.StatusOK, uploadNotes(t, s, "notes.txt", notes).Code)

		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/clear", nil))
		require.Equal(t, http.StatusOK, w.Code)

		req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query": "anything"}`))
		req.Header.Set("Content-Type", "application/json")
		w = httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
