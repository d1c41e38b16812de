package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/spigell/resume-agent/internal/logger"
	"github.com/spigell/resume-agent/internal/upstream"
	"go.uber.org/zap"
)

const (
	pageMargin   = 50.0
	bodyFontSize = 11.0
	headingSize  = 13.0
	lineHeight   = 14.0
)

var headings = map[string]struct{}{
	"summary":        {},
	"skills":         {},
	"experience":     {},
	"education":      {},
	"projects":       {},
	"certifications": {},
}

// Renderer writes plain-text resumes as A4 PDFs.
type Renderer struct {
	logger *zap.Logger
}

func NewRenderer(log *zap.Logger) *Renderer {
	return &Renderer{logger: logger.WithFields(log, zap.String("component", "renderer"))}
}

// RenderToFile lays text out line by line, wrapping long lines and breaking
// pages automatically. Section headings are set in bold.
func (r *Renderer) RenderToFile(ctx context.Context, text, outputPath string) error {
	if strings.TrimSpace(text) == "" {
		return upstream.Wrap("render", outputPath, errors.New("resume text is empty"))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return upstream.Wrap("render", outputPath, err)
	}

	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetCreator("resume-agent", false)
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)
	doc.AddPage()

	tr := doc.UnicodeTranslatorFromDescriptor("")
	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimRight(raw, " \t")
		switch {
		case strings.TrimSpace(line) == "":
			doc.Ln(lineHeight / 2)
		case isHeading(line):
			doc.Ln(lineHeight / 2)
			doc.SetFont("Helvetica", "B", headingSize)
			doc.MultiCell(0, lineHeight+2, tr(strings.TrimSpace(line)), "", "L", false)
		default:
			doc.SetFont("Helvetica", "", bodyFontSize)
			doc.MultiCell(0, lineHeight, tr(line), "", "L", false)
		}
	}

	if err := doc.OutputFileAndClose(outputPath); err != nil {
		os.Remove(outputPath)
		return upstream.Wrap("render", outputPath, fmt.Errorf("write pdf: %w", err))
	}

	r.logger.Info("resume rendered", zap.String("path", outputPath), zap.Int("pages", doc.PageCount()))
	return nil
}

func isHeading(line string) bool {
	key := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(line), ":"))
	_, ok := headings[key]
	return ok
}
