// Package workflow sequences the pipeline stages of a single run and gates
// the optional outputs on the fit score.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spigell/resume-agent/internal/agents"
	"github.com/spigell/resume-agent/internal/logger"
	"github.com/spigell/resume-agent/internal/model"
	"github.com/spigell/resume-agent/internal/storage"
	"go.uber.org/zap"
)

const (
	DefaultThreshold = 60
	DefaultOutputDir = "data/resumes/modified"

	messageCompleted  = "Workflow completed successfully"
	messageGateFailed = "Workflow completed: fit score %d is below threshold %d"
)

type RequirementParser interface {
	Parse(ctx context.Context, requirementID, rawText string) (*model.Requirement, error)
}

type ProfileParser interface {
	Parse(ctx context.Context, candidateID, resumeText string) (*model.CandidateProfile, error)
}

type FitAnalyzer interface {
	Analyze(ctx context.Context, profile *model.CandidateProfile, req *model.Requirement) (*model.AnalysisResult, error)
}

type ResumeTailor interface {
	Tailor(ctx context.Context, profile *model.CandidateProfile, req *model.Requirement, resumeText string) (*model.TailoredResume, error)
}

type InterviewCoach interface {
	Prepare(ctx context.Context, candidateID string, req *model.Requirement, analysis *model.AnalysisResult) (*model.InterviewPrep, error)
}

type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

type Renderer interface {
	RenderToFile(ctx context.Context, text, outputPath string) error
}

// Deps aggregates the stage agents and collaborators of the orchestrator.
type Deps struct {
	Requirements RequirementParser
	Profiles     ProfileParser
	Analyzer     FitAnalyzer
	Tailor       ResumeTailor
	Coach        InterviewCoach
	Extractor    TextExtractor
	Renderer     Renderer
	Store        storage.Store
	Logger       *zap.Logger
}

type Options struct {
	// Threshold is the inclusive minimum fit score for the optional outputs.
	Threshold int
	// OutputDir receives rendered resumes.
	OutputDir string
}

func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, OutputDir: DefaultOutputDir}
}

// Orchestrator runs workflows. It holds no per-run state and is safe for
// concurrent use when its dependencies are.
type Orchestrator struct {
	deps      Deps
	threshold int
	outputDir string
	logger    *zap.Logger
	newID     func() string
}

func New(deps Deps, opts Options) (*Orchestrator, error) {
	missing := make([]string, 0)
	for name, dep := range map[string]any{
		"requirement parser": deps.Requirements,
		"profile parser":     deps.Profiles,
		"fit analyzer":       deps.Analyzer,
		"resume tailor":      deps.Tailor,
		"interview coach":    deps.Coach,
		"text extractor":     deps.Extractor,
		"renderer":           deps.Renderer,
		"store":              deps.Store,
	} {
		if isNil(dep) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("workflow dependencies missing: %s", strings.Join(sorted(missing), ", "))
	}

	if opts.Threshold < 0 || opts.Threshold > 100 {
		return nil, fmt.Errorf("fit score threshold %d is outside [0, 100]", opts.Threshold)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir
	}

	return &Orchestrator{
		deps:      deps,
		threshold: opts.Threshold,
		outputDir: opts.OutputDir,
		logger:    logger.WithFields(deps.Logger),
		newID:     uuid.NewString,
	}, nil
}

func (o *Orchestrator) Threshold() int {
	return o.threshold
}

// Execute runs one workflow to completion. It never returns nil: failures are
// reported through Result.Status and Result.Message.
func (o *Orchestrator) Execute(ctx context.Context, req Request) *Result {
	started := time.Now()

	r := &run{
		req: req,
		result: &Result{
			WorkflowID:    o.newID(),
			CandidateID:   strings.TrimSpace(req.CandidateID),
			RequirementID: strings.TrimSpace(req.RequirementID),
			States:        []State{StateStart},
		},
	}
	if r.result.CandidateID == "" {
		r.result.CandidateID = o.newID()
	}
	if r.result.RequirementID == "" {
		r.result.RequirementID = o.newID()
	}
	r.logger = logger.WithWorkflowFields(o.logger, r.result.WorkflowID, r.result.CandidateID, r.result.RequirementID)
	r.logger.Info("workflow started",
		zap.Bool("tailor", req.GenerateTailoredResume),
		zap.Bool("interview_prep", req.GenerateInterviewPrep),
	)

	result := r.result
	if err := o.execute(ctx, r); err != nil {
		result = r.failure(err)
	}
	result.ExecutionTimeMs = time.Since(started).Milliseconds()

	r.logger.Info("workflow finished",
		zap.String("status", string(result.Status)),
		zap.Int64("execution_time_ms", result.ExecutionTimeMs),
	)

	return result
}

func (o *Orchestrator) execute(ctx context.Context, r *run) error {
	res := r.result

	for _, id := range []string{res.CandidateID, res.RequirementID} {
		if err := storage.ValidateID(id); err != nil {
			return failedAt("request", err)
		}
	}

	requirement, err := o.requirement(ctx, r)
	if err != nil {
		return failedAt(agents.StageRequirement, err)
	}
	res.Requirement = requirement
	r.enter(StateRequirementParsed)

	resumeText, err := o.deps.Extractor.ExtractText(ctx, r.req.ResumeFilePath)
	if err != nil {
		return failedAt("resume extraction", err)
	}
	r.enter(StateResumeExtracted)

	profile, err := o.deps.Profiles.Parse(ctx, res.CandidateID, resumeText)
	if err != nil {
		return failedAt(agents.StageProfile, err)
	}
	profile.ID = res.CandidateID
	profile.OriginalResumePath = r.req.ResumeFilePath
	if err := o.deps.Store.Save(ctx, storage.CategoryCandidates, res.CandidateID, profile); err != nil {
		return failedAt(agents.StageProfile, err)
	}
	res.Profile = profile
	r.enter(StateProfileParsed)

	analysis, err := o.deps.Analyzer.Analyze(ctx, profile, requirement)
	if err != nil {
		return failedAt(agents.StageAnalysis, err)
	}
	pair := storage.PairKey(res.CandidateID, res.RequirementID)
	if err := o.deps.Store.Save(ctx, storage.CategoryAnalysis, pair, analysis); err != nil {
		return failedAt(agents.StageAnalysis, err)
	}
	res.Analysis = analysis
	r.enter(StateAnalyzed, zap.Int("fit_score", analysis.FitScore), zap.Bool("degraded", analysis.Degraded))

	if analysis.Degraded {
		r.warn("fit analysis used a fallback result: " + analysis.DegradedReason)
	}

	if analysis.FitScore < o.threshold {
		r.enter(StateGateFailed, zap.Int("threshold", o.threshold))
		return r.complete(fmt.Sprintf(messageGateFailed, analysis.FitScore, o.threshold))
	}
	res.GatePassed = true
	r.enter(StateGatePassed, zap.Int("threshold", o.threshold))

	if r.req.GenerateTailoredResume {
		if err := o.tailor(ctx, r, profile, requirement, resumeText); err != nil {
			return failedAt(agents.StageTailor, err)
		}
	}

	if r.req.GenerateInterviewPrep {
		prep, err := o.deps.Coach.Prepare(ctx, res.CandidateID, requirement, analysis)
		if err != nil {
			return failedAt(agents.StageInterview, err)
		}
		if err := o.deps.Store.Save(ctx, storage.CategoryInterviewPrep, pair, prep); err != nil {
			return failedAt(agents.StageInterview, err)
		}
		if prep.Degraded {
			r.warn("interview preparation used a fallback result: " + prep.DegradedReason)
		}
		res.InterviewPrep = prep
		r.enter(StatePrepGenerated, zap.Int("questions", prep.QuestionCount()))
	}

	return r.complete(messageCompleted)
}

// requirement parses the request text, or loads a stored requirement when
// only an ID was given.
func (o *Orchestrator) requirement(ctx context.Context, r *run) (*model.Requirement, error) {
	id := r.result.RequirementID

	if strings.TrimSpace(r.req.RequirementText) == "" && strings.TrimSpace(r.req.RequirementID) != "" {
		var stored model.Requirement
		if err := o.deps.Store.Load(ctx, storage.CategoryRequirements, id, &stored); err != nil {
			return nil, fmt.Errorf("reuse stored requirement: %w", err)
		}
		stored.Normalize()
		r.logger.Info("reusing stored requirement", zap.String("job_title", stored.JobTitle))
		return &stored, nil
	}

	requirement, err := o.deps.Requirements.Parse(ctx, id, r.req.RequirementText)
	if err != nil {
		return nil, err
	}
	requirement.ID = id
	if err := o.deps.Store.Save(ctx, storage.CategoryRequirements, id, requirement); err != nil {
		return nil, err
	}
	return requirement, nil
}

// tailor is best-effort: only fatal errors are returned, anything else is
// recorded as a warning and leaves ModifiedResumePath empty.
func (o *Orchestrator) tailor(ctx context.Context, r *run, profile *model.CandidateProfile, req *model.Requirement, resumeText string) error {
	res := r.result
	pair := storage.PairKey(res.CandidateID, res.RequirementID)

	tailored, err := o.deps.Tailor.Tailor(ctx, profile, req, resumeText)
	if err != nil {
		if agents.IsFatal(err) {
			return err
		}
		r.warn("resume tailoring skipped: " + err.Error())
		return nil
	}

	outputPath := filepath.Join(o.outputDir, pair+".pdf")
	if err := o.deps.Renderer.RenderToFile(ctx, tailored.Text, outputPath); err != nil {
		if agents.IsFatal(err) {
			return err
		}
		r.warn("resume rendering skipped: " + err.Error())
		return nil
	}
	tailored.PDFPath = outputPath

	if err := o.deps.Store.Save(ctx, storage.CategoryTailored, pair, tailored); err != nil {
		return err
	}

	res.TailoredResume = tailored
	res.ModifiedResumePath = outputPath
	r.enter(StateResumeTailored, zap.String("path", outputPath))
	return nil
}

type run struct {
	req    Request
	result *Result
	logger *zap.Logger
}

func (r *run) enter(state State, fields ...zap.Field) {
	r.result.States = append(r.result.States, state)
	r.logger.Info("stage completed", append([]zap.Field{logger.StageField(string(state))}, fields...)...)
}

func (r *run) warn(message string) {
	r.result.Warnings = append(r.result.Warnings, message)
	r.logger.Warn(message)
}

func (r *run) complete(message string) error {
	r.result.Status = StatusCompleted
	r.result.Success = true
	r.result.Message = message
	r.enter(StateCompleted)
	return nil
}

type stageFailure struct {
	stage string
	err   error
}

func (e *stageFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.stage, e.err)
}

func (e *stageFailure) Unwrap() error {
	return e.err
}

func failedAt(stage string, err error) error {
	return &stageFailure{stage: stage, err: err}
}

// failure builds the result of a failed run. Entities produced before the
// failure stay in the store but are not returned.
func (r *run) failure(err error) *Result {
	stage := "unknown"
	var sf *stageFailure
	if errors.As(err, &sf) {
		stage = sf.stage
		err = sf.err
	}

	r.logger.Error("workflow failed", logger.StageField(stage), zap.Error(err))

	return &Result{
		WorkflowID:    r.result.WorkflowID,
		CandidateID:   r.result.CandidateID,
		RequirementID: r.result.RequirementID,
		Status:        StatusFailed,
		Success:       false,
		Message:       fmt.Sprintf("Workflow failed at %s: %v", stage, err),
		States:        append(r.result.States, StateFailed),
		Warnings:      r.result.Warnings,
	}
}
