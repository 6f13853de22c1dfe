package api

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"studymind/internal/config"
	"studymind/internal/helper"
	"studymind/internal/index"
	"studymind/internal/rag"
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".pptx": true,
	".xlsx": true,
	".ods":  true,
	".txt":  true,
}

// Server is the HTTP boundary around the RAG service.
type Server struct {
	cfg    *config.Config
	svc    *rag.Service
	router *gin.Engine
}

func NewServer(cfg *config.Config, svc *rag.Service) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:    cfg,
		svc:    svc,
		router: gin.New(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware(s.cfg.Server.AllowedOrigins))

	s.router.GET("/", s.handleRoot)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/models", s.handleModels)
	s.router.POST("/upload", s.handleUpload)
	s.router.POST("/query", s.handleQuery)
	s.router.POST("/generate-quiz", s.handleGenerateQuiz)
	s.router.GET("/chapters", s.handleChapters)
	s.router.DELETE("/clear", s.handleClear)
}

// Run starts the server.
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("Starting StudyMind API server")
	return s.router.Run(addr)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if wildcard {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to StudyMind AI API", "status": "healthy"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"inference_model": s.cfg.LLM.Model,
		"embedding_model": s.cfg.EmbedLLM.Model,
	})
}

// handleUpload saves the uploaded documents to the temp upload directory,
// ingests them into a fresh index and cleans the temp files up afterwards.
func (s *Server) handleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	docID, err := helper.GenerateUUID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := helper.CreateFolder(s.cfg.RAG.UploadDir); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var saved []string
	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !allowedExtensions[ext] {
			helper.CleanupFiles(saved)
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file %s has unsupported format %s", file.Filename, ext)})
			return
		}
		dst := filepath.Join(s.cfg.RAG.UploadDir, docID+"_"+filepath.Base(file.Filename))
		if err := c.SaveUploadedFile(file, dst); err != nil {
			helper.CleanupFiles(saved)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		saved = append(saved, dst)
	}
	defer helper.CleanupFiles(saved)

	result, err := s.svc.Ingest(c.Request.Context(), docID, saved)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     fmt.Sprintf("Successfully processed %d documents", len(files)),
		"document_id": result.DocumentID,
		"num_chunks":  result.NumChunks,
		"chapters":    result.Chapters,
	})
}

type queryRequest struct {
	Query         string `json:"query" binding:"required"`
	ChapterFilter string `json:"chapter_filter"`
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.svc.Answer(c.Request.Context(), req.Query, req.ChapterFilter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type quizRequest struct {
	Chapter      string `json:"chapter" binding:"required"`
	NumQuestions int    `json:"num_questions"`
}

func (s *Server) handleGenerateQuiz(c *gin.Context) {
	var req quizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.NumQuestions <= 0 {
		req.NumQuestions = 5
	}

	result, err := s.svc.Quiz(c.Request.Context(), req.Chapter, req.NumQuestions)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleChapters(c *gin.Context) {
	chapters, err := s.svc.Chapters()
	if err != nil {
		if errors.Is(err, index.ErrIndexNotBuilt) {
			c.JSON(http.StatusOK, gin.H{"chapters": []string{}})
			return
		}
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chapters": chapters})
}

func (s *Server) handleClear(c *gin.Context) {
	if err := s.svc.Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All data cleared successfully"})
}

// writeError maps the service's typed failures onto HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, index.ErrIndexNotBuilt):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No documents uploaded yet"})
	case errors.Is(err, index.ErrEmptyInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, index.ErrCorruptIndex):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case errors.Is(err, rag.ErrChapterNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
