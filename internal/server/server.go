// Package server exposes the workflow over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spigell/resume-agent/internal/document"
	"github.com/spigell/resume-agent/internal/logger"
	"github.com/spigell/resume-agent/internal/storage"
	"github.com/spigell/resume-agent/internal/workflow"
	"go.uber.org/zap"
)

const (
	HealthMessage = "Workflow service is running"

	DefaultUploadsDir = "data/resumes/original"
	shutdownTimeout   = 15 * time.Second
)

type Options struct {
	UploadsDir    string
	OutputDir     string
	MaxUploadSize int64
}

type Server struct {
	exec       workflow.Executor
	store      storage.Store
	uploadsDir string
	outputDir  string
	maxUpload  int64
	logger     *zap.Logger
}

func New(exec workflow.Executor, store storage.Store, opts Options, log *zap.Logger) *Server {
	if opts.UploadsDir == "" {
		opts.UploadsDir = DefaultUploadsDir
	}
	if opts.OutputDir == "" {
		opts.OutputDir = workflow.DefaultOutputDir
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = document.DefaultMaxFileSize
	}

	return &Server{
		exec:       exec,
		store:      store,
		uploadsDir: opts.UploadsDir,
		outputDir:  opts.OutputDir,
		maxUpload:  opts.MaxUploadSize,
		logger:     logger.WithFields(log, zap.String("component", "http")),
	}
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.accessLog())
	router.MaxMultipartMemory = s.maxUpload

	api := router.Group("/api")
	api.POST("/workflow/execute", s.execute)
	api.GET("/workflow/health", s.health)
	api.POST("/upload/resume", s.uploadResume)
	api.GET("/upload/download/resume/:candidateId/:requirementId", s.downloadResume)
	api.GET("/artifacts/:category/:key", s.artifact)

	return router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

type executeRequest struct {
	RequirementText        string `json:"requirementText"`
	RequirementID          string `json:"requirementId"`
	ResumeFilePath         string `json:"resumeFilePath"`
	CandidateID            string `json:"candidateId"`
	GenerateTailoredResume *bool  `json:"generateTailoredResume"`
	GenerateInterviewPrep  *bool  `json:"generateInterviewPrep"`
}

func (s *Server) execute(c *gin.Context) {
	var body executeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := workflow.Request{
		RequirementText:        body.RequirementText,
		RequirementID:          strings.TrimSpace(body.RequirementID),
		ResumeFilePath:         strings.TrimSpace(body.ResumeFilePath),
		CandidateID:            strings.TrimSpace(body.CandidateID),
		GenerateTailoredResume: flag(body.GenerateTailoredResume),
		GenerateInterviewPrep:  flag(body.GenerateInterviewPrep),
	}

	if req.CandidateID != "" {
		if err := storage.ValidateID(req.CandidateID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	switch {
	case req.ResumeFilePath != "":
		path, err := s.uploadedFile(req.ResumeFilePath)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.ResumeFilePath = path
	case req.CandidateID != "":
		req.ResumeFilePath = s.uploadPath(req.CandidateID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "resumeFilePath or the candidateId of an uploaded resume is required"})
		return
	}

	result := s.exec.Execute(c.Request.Context(), req)

	status := http.StatusOK
	if result.Status != workflow.StatusCompleted {
		status = http.StatusBadRequest
	}
	c.JSON(status, result)
}

func (s *Server) health(c *gin.Context) {
	c.String(http.StatusOK, HealthMessage)
}

func (s *Server) uploadResume(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only PDF resumes are accepted"})
		return
	}
	if header.Size > s.maxUpload {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file exceeds %d bytes", s.maxUpload)})
		return
	}

	candidateID := strings.TrimSpace(c.PostForm("candidateId"))
	if candidateID == "" {
		candidateID = uuid.NewString()
	}
	if err := storage.ValidateID(candidateID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		s.logger.Error("creating uploads directory", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store resume"})
		return
	}

	path := s.uploadPath(candidateID)
	if err := c.SaveUploadedFile(header, path); err != nil {
		s.logger.Error("saving uploaded resume", zap.String("path", path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store resume"})
		return
	}

	s.logger.Info("resume uploaded", zap.String(logger.FieldCandidate, candidateID), zap.Int64("bytes", header.Size))

	c.JSON(http.StatusOK, gin.H{
		"candidateId": candidateID,
		"filePath":    path,
		"fileName":    header.Filename,
		"size":        header.Size,
	})
}

func (s *Server) downloadResume(c *gin.Context) {
	candidateID, requirementID := c.Param("candidateId"), c.Param("requirementId")
	for _, id := range []string{candidateID, requirementID} {
		if err := storage.ValidateID(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	name := storage.PairKey(candidateID, requirementID) + ".pdf"
	path := filepath.Join(s.outputDir, name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tailored resume not found"})
		return
	}

	c.FileAttachment(path, name)
}

func (s *Server) artifact(c *gin.Context) {
	category, key := c.Param("category"), c.Param("key")
	if !storage.IsCategory(category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category", "categories": storage.Categories})
		return
	}
	if err := storage.ValidateKey(key); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var out map[string]any
	if err := s.store.Load(c.Request.Context(), category, key, &out); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})
			return
		}
		s.logger.Error("loading artifact", zap.String("category", category), zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load artifact"})
		return
	}

	c.JSON(http.StatusOK, out)
}

// uploadedFile resolves a client supplied resume path. Relative paths are
// taken from the uploads directory and nothing outside it is accepted.
func (s *Server) uploadedFile(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.uploadsDir, path)
	}

	base, err := filepath.Abs(s.uploadsDir)
	if err != nil {
		return "", fmt.Errorf("resolve uploads directory: %w", err)
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve resume path: %w", err)
	}

	rel, err := filepath.Rel(base, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New("resumeFilePath must point to an uploaded resume")
	}
	return target, nil
}

func (s *Server) uploadPath(candidateID string) string {
	return filepath.Join(s.uploadsDir, candidateID+".pdf")
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// flag defaults absent booleans to true.
func flag(v *bool) bool {
	return v == nil || *v
}
