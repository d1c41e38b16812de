// Package agents implements the model-backed pipeline stages. Each agent
// builds its prompts, calls the model through an Invoker and maps the
// response onto a model entity.
package agents

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/resume-agent/internal/ai"
	"github.com/spigell/resume-agent/internal/extract"
	"github.com/spigell/resume-agent/internal/logger"
	"github.com/spigell/resume-agent/internal/utils"
	"go.uber.org/zap"
)

// Stage names, used in errors and logs.
const (
	StageRequirement = "requirement"
	StageProfile     = "profile"
	StageAnalysis    = "analysis"
	StageTailor      = "tailor"
	StageInterview   = "interview"
)

const defaultMaxLogLength = 200

//go:embed prompts/*.md
var promptFS embed.FS

// Invoker is the model call used by agents. *ai.Retrier satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Deps aggregates the collaborators shared by all agents.
type Deps struct {
	Model        Invoker
	Codec        *extract.Codec
	Logger       *zap.Logger
	MaxLogLength int
	// Now defaults to time.Now.
	Now func() time.Time
}

// StageError reports a stage that could not produce its entity.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must abort the run even in a best-effort stage.
func IsFatal(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ai.ErrModelUnavailable)
}

type base struct {
	stage     string
	system    string
	model     Invoker
	codec     *extract.Codec
	logger    *zap.Logger
	maxLogLen int
	now       func() time.Time
}

func newBase(stage string, deps Deps) base {
	codec := deps.Codec
	if codec == nil {
		codec = extract.NewCodec()
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	maxLogLen := deps.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return base{
		stage:     stage,
		system:    mustPrompt(stage),
		model:     deps.Model,
		codec:     codec,
		logger:    logger.WithFields(deps.Logger, logger.StageField(stage)),
		maxLogLen: maxLogLen,
		now:       now,
	}
}

func (b base) call(ctx context.Context, userPrompt string) (string, error) {
	if b.model == nil {
		return "", ai.ErrModelUnavailable
	}

	b.logger.Debug("stage prompt",
		zap.Int("prompt_length", utf8.RuneCountInString(userPrompt)),
		zap.String("prompt_preview", utils.TruncateForLog(userPrompt, b.maxLogLen)),
	)

	response, err := b.model.Invoke(ctx, b.system, userPrompt)
	if err != nil {
		return "", err
	}

	b.logger.Debug("stage response",
		zap.Int("response_length", utf8.RuneCountInString(response)),
		zap.String("response_preview", utils.TruncateForLog(response, b.maxLogLen)),
	)

	return response, nil
}

func (b base) fail(err error) error {
	return &StageError{Stage: b.stage, Err: err}
}

func (b base) timestamp() time.Time {
	return b.now().UTC()
}

func mustPrompt(stage string) string {
	data, err := promptFS.ReadFile("prompts/" + stage + ".md")
	if err != nil {
		panic(fmt.Sprintf("missing embedded prompt for %s stage: %v", stage, err))
	}
	return strings.TrimSpace(string(data))
}

// section renders a labelled list for user prompts, skipping empty lists.
func section(b *strings.Builder, label string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, strings.Join(values, ", "))
}

func line(b *strings.Builder, label, value string) {
	if value = strings.TrimSpace(value); value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}
