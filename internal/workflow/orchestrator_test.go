package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spigell/resume-agent/internal/agents"
	"github.com/spigell/resume-agent/internal/ai"
	"github.com/spigell/resume-agent/internal/extract"
	"github.com/spigell/resume-agent/internal/model"
	"github.com/spigell/resume-agent/internal/storage"
	"github.com/spigell/resume-agent/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	requirementJSON = `{"jobTitle": "Backend Engineer", "requiredSkills": ["Go", "PostgreSQL"], "technologies": ["Kubernetes"]}`
	profileJSON     = "```json\n" + `{"name": "Ann Lee", "technicalSkills": ["Go", "Kubernetes"], "workExperience": [{"company": "Acme", "position": "Engineer"}]}` + "\n```"
	prepJSON        = `{
		"basicTechnicalQuestions": [{"question": "What is a goroutine?"}],
		"intermediateTechnicalQuestions": [{"question": "How do you tune PostgreSQL?"}],
		"advancedTechnicalQuestions": [{"question": "Design a job scheduler."}],
		"behavioralQuestions": [{"question": "Describe a production incident."}]
	}`
)

func analysisJSON(score int) string {
	return fmt.Sprintf(`{"fitScore": %d, "matchingSkills": ["Go"], "missingSkills": ["PostgreSQL"], "recommendForInterview": true}`, score)
}

// routingModel answers each stage by recognising its user prompt.
type routingModel struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func newRoutingModel(score int) *routingModel {
	return &routingModel{
		responses: map[string]string{
			agents.StageRequirement: requirementJSON,
			agents.StageProfile:     profileJSON,
			agents.StageAnalysis:    analysisJSON(score),
			agents.StageTailor:      "Ann Lee\nSummary\nGo engineer\nSkills\nGo, Kubernetes",
			agents.StageInterview:   prepJSON,
		},
		errs: map[string]error{},
	}
}

func (m *routingModel) Invoke(_ context.Context, _, userPrompt string) (string, error) {
	stage := ""
	switch {
	case strings.HasPrefix(userPrompt, "Parse the following job requirement"):
		stage = agents.StageRequirement
	case strings.HasPrefix(userPrompt, "Parse the following resume"):
		stage = agents.StageProfile
	case strings.Contains(userPrompt, "=== ANALYSIS REQUEST ==="):
		stage = agents.StageAnalysis
	case strings.Contains(userPrompt, "=== ORIGINAL RESUME ==="):
		stage = agents.StageTailor
	default:
		stage = agents.StageInterview
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, stage)
	if err := m.errs[stage]; err != nil {
		return "", err
	}
	return m.responses[stage], nil
}

type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) ExtractText(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeRenderer struct {
	err   error
	paths []string
}

func (f *fakeRenderer) RenderToFile(_ context.Context, text, outputPath string) error {
	if f.err != nil {
		return f.err
	}
	f.paths = append(f.paths, outputPath)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte(text), 0o644)
}

type failingStore struct {
	storage.Store
	category string
}

func (s *failingStore) Save(ctx context.Context, category, key string, v any) error {
	if category == s.category {
		return upstream.Wrap("save", category+"/"+key, errors.New("disk full"))
	}
	return s.Store.Save(ctx, category, key, v)
}

type fixture struct {
	model     *routingModel
	extractor *fakeExtractor
	renderer  *fakeRenderer
	store     *storage.FileStore
	outputDir string
}

func newFixture(t *testing.T, score int) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFileStore(filepath.Join(dir, "data"), nil, zap.NewNop())
	require.NoError(t, err)

	return &fixture{
		model:     newRoutingModel(score),
		extractor: &fakeExtractor{text: "Ann Lee\nGo engineer with 5 years of Go and Kubernetes"},
		renderer:  &fakeRenderer{},
		store:     store,
		outputDir: filepath.Join(dir, "out"),
	}
}

func (f *fixture) orchestrator(t *testing.T, invoker agents.Invoker, store storage.Store) *Orchestrator {
	t.Helper()
	deps := agents.Deps{Model: invoker, Codec: extract.NewCodec(), Logger: zap.NewNop()}
	o, err := New(Deps{
		Requirements: agents.NewRequirementsParser(deps),
		Profiles:     agents.NewProfileParser(deps),
		Analyzer:     agents.NewFitAnalyzer(deps),
		Tailor:       agents.NewResumeTailor(deps),
		Coach:        agents.NewInterviewCoach(deps),
		Extractor:    f.extractor,
		Renderer:     f.renderer,
		Store:        store,
		Logger:       zap.NewNop(),
	}, Options{Threshold: DefaultThreshold, OutputDir: f.outputDir})
	require.NoError(t, err)
	return o
}

func (f *fixture) run(t *testing.T, req Request) *Result {
	t.Helper()
	return f.orchestrator(t, f.model, f.store).Execute(context.Background(), req)
}

func fullRequest() Request {
	return Request{
		RequirementText:        "Senior Go engineer, PostgreSQL, Kubernetes",
		ResumeFilePath:         "/tmp/ann.pdf",
		CandidateID:            "cand-1",
		RequirementID:          "req-1",
		GenerateTailoredResume: true,
		GenerateInterviewPrep:  true,
	}
}

func TestExecuteGatePassed(t *testing.T) {
	f := newFixture(t, 72)

	res := f.run(t, fullRequest())

	require.Equal(t, StatusCompleted, res.Status, res.Message)
	assert.True(t, res.Success)
	assert.True(t, res.GatePassed)
	assert.Equal(t, messageCompleted, res.Message)
	assert.NotEmpty(t, res.WorkflowID)
	assert.Equal(t, []State{
		StateStart, StateRequirementParsed, StateResumeExtracted, StateProfileParsed,
		StateAnalyzed, StateGatePassed, StateResumeTailored, StatePrepGenerated, StateCompleted,
	}, res.States)

	assert.Equal(t, 72, res.Analysis.FitScore)
	assert.Equal(t, "/tmp/ann.pdf", res.Profile.OriginalResumePath)
	assert.Equal(t, filepath.Join(f.outputDir, "cand-1.req-1.pdf"), res.ModifiedResumePath)
	assert.FileExists(t, res.ModifiedResumePath)
	require.NotNil(t, res.InterviewPrep)
	assert.NotEmpty(t, res.InterviewPrep.BasicTechnicalQuestions)
	assert.NotEmpty(t, res.InterviewPrep.IntermediateTechnicalQuestions)
	assert.NotEmpty(t, res.InterviewPrep.AdvancedTechnicalQuestions)
	assert.NotEmpty(t, res.InterviewPrep.BehavioralQuestions)
	assert.Empty(t, res.Warnings)

	ctx := context.Background()
	var req model.Requirement
	require.NoError(t, f.store.Load(ctx, storage.CategoryRequirements, "req-1", &req))
	assert.Equal(t, "Backend Engineer", req.JobTitle)
	var profile model.CandidateProfile
	require.NoError(t, f.store.Load(ctx, storage.CategoryCandidates, "cand-1", &profile))
	assert.Equal(t, "Ann Lee", profile.Name)
	var analysis model.AnalysisResult
	require.NoError(t, f.store.Load(ctx, storage.CategoryAnalysis, "cand-1.req-1", &analysis))
	assert.Equal(t, 72, analysis.FitScore)
	var tailored model.TailoredResume
	require.NoError(t, f.store.Load(ctx, storage.CategoryTailored, "cand-1.req-1", &tailored))
	assert.Equal(t, res.ModifiedResumePath, tailored.PDFPath)
	var prep model.InterviewPrep
	require.NoError(t, f.store.Load(ctx, storage.CategoryInterviewPrep, "cand-1.req-1", &prep))
	assert.Equal(t, 4, prep.QuestionCount())
}

func TestExecuteGateFailed(t *testing.T) {
	f := newFixture(t, 45)

	res := f.run(t, fullRequest())

	require.Equal(t, StatusCompleted, res.Status)
	assert.False(t, res.GatePassed)
	assert.Equal(t, []State{
		StateStart, StateRequirementParsed, StateResumeExtracted, StateProfileParsed,
		StateAnalyzed, StateGateFailed, StateCompleted,
	}, res.States)
	assert.Empty(t, res.ModifiedResumePath)
	assert.Nil(t, res.InterviewPrep)
	assert.Equal(t, []string{agents.StageRequirement, agents.StageProfile, agents.StageAnalysis}, f.model.calls)
	assert.Contains(t, res.Message, "45")
}

func TestExecuteGateBoundary(t *testing.T) {
	tests := []struct {
		score  int
		passed bool
	}{
		{score: 60, passed: true},
		{score: 59, passed: false},
		{score: 100, passed: true},
		{score: 0, passed: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.score), func(t *testing.T) {
			f := newFixture(t, tt.score)
			res := f.run(t, fullRequest())

			require.Equal(t, StatusCompleted, res.Status)
			assert.Equal(t, tt.passed, res.GatePassed)
			assert.Equal(t, tt.passed, res.InterviewPrep != nil)
		})
	}
}

func TestExecuteOptionalOutputsFollowFlags(t *testing.T) {
	f := newFixture(t, 80)
	req := fullRequest()
	req.GenerateTailoredResume = false

	res := f.run(t, req)

	require.Equal(t, StatusCompleted, res.Status)
	assert.NotContains(t, res.States, StateResumeTailored)
	assert.Contains(t, res.States, StatePrepGenerated)
	assert.Empty(t, res.ModifiedResumePath)
	assert.Empty(t, f.renderer.paths)

	f = newFixture(t, 80)
	req = fullRequest()
	req.GenerateInterviewPrep = false

	res = f.run(t, req)
	assert.Contains(t, res.States, StateResumeTailored)
	assert.NotContains(t, res.States, StatePrepGenerated)
	assert.Nil(t, res.InterviewPrep)
}

func TestExecuteModelUnavailable(t *testing.T) {
	f := newFixture(t, 90)
	retrier := ai.NewRetrier(ai.Unavailable{}, 3, 0, nil)

	res := f.orchestrator(t, retrier, f.store).Execute(context.Background(), fullRequest())

	assert.Equal(t, StatusFailed, res.Status)
	assert.False(t, res.Success)
	assert.Equal(t, []State{StateStart, StateFailed}, res.States)
	assert.Contains(t, res.Message, "Workflow failed at requirement")
	assert.Contains(t, res.Message, ai.ErrModelUnavailable.Error())
	assert.Zero(t, f.extractor.calls, "resume extraction must not run")
	assert.Nil(t, res.Requirement)
}

func TestExecuteFailureDiscardsEntities(t *testing.T) {
	f := newFixture(t, 90)
	f.model.errs[agents.StageAnalysis] = &ai.ModelCallError{Attempts: 3, Err: errors.New("503")}

	res := f.run(t, fullRequest())

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, []State{StateStart, StateRequirementParsed, StateResumeExtracted, StateProfileParsed, StateFailed}, res.States)
	assert.Nil(t, res.Requirement)
	assert.Nil(t, res.Profile)
	assert.Nil(t, res.Analysis)
	assert.Contains(t, res.Message, "analysis")

	var stored model.CandidateProfile
	assert.NoError(t, f.store.Load(context.Background(), storage.CategoryCandidates, "cand-1", &stored), "completed stages stay persisted")
}

func TestExecuteExtractionFailure(t *testing.T) {
	f := newFixture(t, 90)
	f.extractor.err = upstream.Wrap("extract text", "/tmp/ann.pdf", os.ErrNotExist)

	res := f.run(t, fullRequest())

	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Message, "resume extraction")
	assert.Equal(t, []string{agents.StageRequirement}, f.model.calls)
}

func TestExecuteUnparsableRequirementFails(t *testing.T) {
	f := newFixture(t, 90)
	f.model.responses[agents.StageRequirement] = "I could not find a job posting."

	res := f.run(t, fullRequest())

	assert.Equal(t, StatusFailed, res.Status)
	assert.Zero(t, f.extractor.calls)
}

func TestExecuteDegradedAnalysisFailsGate(t *testing.T) {
	f := newFixture(t, 90)
	f.model.responses[agents.StageAnalysis] = "Great candidate, hire immediately!"

	res := f.run(t, fullRequest())

	require.Equal(t, StatusCompleted, res.Status)
	assert.True(t, res.Analysis.Degraded)
	assert.False(t, res.GatePassed)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "fallback")
}

func TestExecuteTailoringIsBestEffort(t *testing.T) {
	f := newFixture(t, 75)
	f.model.errs[agents.StageTailor] = &ai.ModelCallError{Attempts: 3, Err: errors.New("overloaded")}

	res := f.run(t, fullRequest())

	require.Equal(t, StatusCompleted, res.Status)
	assert.Empty(t, res.ModifiedResumePath)
	assert.NotContains(t, res.States, StateResumeTailored)
	assert.Contains(t, res.States, StatePrepGenerated)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "tailoring")

	f = newFixture(t, 75)
	f.renderer.err = upstream.Wrap("render", "x.pdf", errors.New("no space"))

	res = f.run(t, fullRequest())
	require.Equal(t, StatusCompleted, res.Status)
	assert.Empty(t, res.ModifiedResumePath)
	assert.Contains(t, res.Warnings[0], "rendering")
}

func TestExecuteDegradedInterviewPrep(t *testing.T) {
	f := newFixture(t, 75)
	f.model.responses[agents.StageInterview] = "```json\n{ broken"

	res := f.run(t, fullRequest())

	require.Equal(t, StatusCompleted, res.Status)
	require.NotNil(t, res.InterviewPrep)
	assert.True(t, res.InterviewPrep.Degraded)
	assert.Equal(t, []string{agents.FallbackReviewTopic}, res.InterviewPrep.KeyTopicsToReview)
}

func TestExecutePersistenceFailureIsFatal(t *testing.T) {
	f := newFixture(t, 75)
	store := &failingStore{Store: f.store, category: storage.CategoryAnalysis}

	res := f.orchestrator(t, f.model, store).Execute(context.Background(), fullRequest())

	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Message, "disk full")
	assert.NotContains(t, res.States, StateAnalyzed)
}

func TestExecuteCancelled(t *testing.T) {
	f := newFixture(t, 75)
	ctx, cancel := context.WithCancel(context.Background())
	f.model.errs[agents.StageTailor] = context.Canceled
	cancel()

	res := f.orchestrator(t, f.model, f.store).Execute(ctx, fullRequest())

	assert.Equal(t, StatusFailed, res.Status)
}

func TestExecuteCancelledDuringTailoring(t *testing.T) {
	f := newFixture(t, 75)
	f.model.errs[agents.StageTailor] = context.Canceled

	res := f.run(t, fullRequest())

	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Message, "tailor")
	assert.Nil(t, res.InterviewPrep)
}

func TestExecuteGeneratesIdentifiers(t *testing.T) {
	f := newFixture(t, 30)
	req := fullRequest()
	req.CandidateID = ""
	req.RequirementID = ""

	res := f.run(t, req)

	require.Equal(t, StatusCompleted, res.Status)
	assert.NotEmpty(t, res.CandidateID)
	assert.NotEmpty(t, res.RequirementID)
	assert.NotEqual(t, res.CandidateID, res.RequirementID)
	assert.Equal(t, res.CandidateID, res.Profile.ID)
	assert.Equal(t, res.RequirementID, res.Requirement.ID)
}

func TestExecuteRejectsIDsThatBreakPairKeys(t *testing.T) {
	for name, mutate := range map[string]func(*Request){
		"candidate":   func(r *Request) { r.CandidateID = "cand.1" },
		"requirement": func(r *Request) { r.RequirementID = "../req" },
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, 70)
			req := fullRequest()
			mutate(&req)

			res := f.run(t, req)

			assert.Equal(t, StatusFailed, res.Status)
			assert.Equal(t, []State{StateStart, StateFailed}, res.States)
			assert.Contains(t, res.Message, "Workflow failed at request")
			assert.Empty(t, f.model.calls)
		})
	}
}

func TestExecuteReusesStoredRequirement(t *testing.T) {
	f := newFixture(t, 70)
	first := f.run(t, fullRequest())
	require.Equal(t, StatusCompleted, first.Status)

	f.model.calls = nil
	req := fullRequest()
	req.RequirementText = ""
	req.CandidateID = "cand-2"

	res := f.run(t, req)

	require.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "Backend Engineer", res.Requirement.JobTitle)
	assert.NotContains(t, f.model.calls, agents.StageRequirement)

	req.RequirementID = "unknown-req"
	res = f.run(t, req)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Message, "not found")
}

func TestNewValidates(t *testing.T) {
	_, err := New(Deps{}, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fit analyzer")

	f := newFixture(t, 0)
	o := f.orchestrator(t, f.model, f.store)
	deps := o.deps
	for _, threshold := range []int{-1, 101} {
		_, err := New(deps, Options{Threshold: threshold})
		assert.Error(t, err, "threshold %d", threshold)
	}

	o, err = New(deps, Options{Threshold: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, o.Threshold())
	assert.Equal(t, DefaultOutputDir, o.outputDir)
}
