// Package document reads resume text from uploaded files and renders
// tailored resumes to PDF.
package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoparser "github.com/cloudwego/eino/components/document/parser"
	"github.com/spigell/resume-agent/internal/logger"
	"github.com/spigell/resume-agent/internal/upstream"
	"go.uber.org/zap"
)

const (
	// DefaultMaxFileSize is the largest resume file accepted, 5 MiB.
	DefaultMaxFileSize int64 = 5 << 20

	parseTimeout = 30 * time.Second
)

var (
	ErrUnsupportedFormat = errors.New("unsupported resume format")
	ErrFileTooLarge      = errors.New("resume file is too large")
	ErrNoText            = errors.New("no text found in resume")
)

// Extractor returns the plain text of a resume file. PDFs go through the Eino
// PDF parser; .txt and .md files are read as is.
type Extractor struct {
	parser      *pdf.PDFParser
	maxFileSize int64
	logger      *zap.Logger
}

func NewExtractor(ctx context.Context, maxFileSize int64, log *zap.Logger) (*Extractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	if err != nil {
		return nil, fmt.Errorf("create pdf parser: %w", err)
	}

	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	return &Extractor{
		parser:      p,
		maxFileSize: maxFileSize,
		logger:      logger.WithFields(log, zap.String("component", "extractor")),
	}, nil
}

// Supported reports whether path has an extension ExtractText understands.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	return false
}

// ExtractText fails with *upstream.Error when the file is missing, too large,
// of an unsupported type or carries no text.
func (e *Extractor) ExtractText(ctx context.Context, path string) (string, error) {
	if !Supported(path) {
		return "", upstream.Wrap("extract text", path, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path)))
	}

	file, err := os.Open(path)
	if err != nil {
		return "", upstream.Wrap("extract text", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", upstream.Wrap("extract text", path, err)
	}
	if info.Size() > e.maxFileSize {
		return "", upstream.Wrap("extract text", path, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, info.Size(), e.maxFileSize))
	}

	var text string
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err = e.parsePDF(ctx, file, path)
	} else {
		var data []byte
		data, err = io.ReadAll(file)
		text = string(data)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", upstream.Wrap("extract text", path, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", upstream.Wrap("extract text", path, ErrNoText)
	}

	e.logger.Info("resume text extracted",
		zap.String("path", path),
		zap.Int64("bytes", info.Size()),
		zap.Int("characters", len(text)),
	)

	return text, nil
}

func (e *Extractor) parsePDF(ctx context.Context, file *os.File, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, parseTimeout)
	defer cancel()

	docs, err := e.parser.Parse(ctx, file,
		einoparser.WithURI(path),
		einoparser.WithExtraMeta(map[string]any{"source_file_path": path}),
	)
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if content := strings.TrimSpace(doc.Content); content != "" {
			parts = append(parts, content)
		}
	}

	return strings.Join(parts, "\n\n"), nil
}
