package agents

import (
	"context"
	"errors"
	"strings"

	"github.com/spigell/resume-agent/internal/extract"
	"github.com/spigell/resume-agent/internal/model"
	"go.uber.org/zap"
)

// FallbackReviewTopic replaces the review topics of a degraded preparation.
const FallbackReviewTopic = "Unable to generate questions: the interview preparation response could not be parsed"

// InterviewCoach builds interview preparation material for a requirement.
type InterviewCoach struct {
	base
}

func NewInterviewCoach(deps Deps) *InterviewCoach {
	return &InterviewCoach{base: newBase(StageInterview, deps)}
}

// Prepare degrades instead of failing when the model call fails or the
// response is not parsable. Only fatal errors (see IsFatal) are returned.
func (c *InterviewCoach) Prepare(ctx context.Context, candidateID string, req *model.Requirement, analysis *model.AnalysisResult) (*model.InterviewPrep, error) {
	if req == nil {
		return nil, c.fail(errors.New("requirement is required"))
	}

	prep := &model.InterviewPrep{
		ID:            model.PairID(candidateID, req.ID),
		CandidateID:   candidateID,
		RequirementID: req.ID,
		CreatedAt:     c.timestamp(),
	}

	response, err := c.call(ctx, interviewPrompt(req, analysis))
	if err != nil {
		if IsFatal(err) {
			return nil, c.fail(err)
		}
		c.logger.Warn("interview preparation unavailable, using fallback", zap.Error(err))
		return c.degrade(prep, err), nil
	}

	fields, err := c.codec.Decode(response)
	if err != nil {
		c.logger.Warn("interview preparation not parsed, using fallback", zap.Error(err))
		return c.degrade(prep, err), nil
	}

	prep.BasicTechnicalQuestions = c.questions(fields, "basicTechnicalQuestions", model.DifficultyBasic)
	prep.IntermediateTechnicalQuestions = c.questions(fields, "intermediateTechnicalQuestions", model.DifficultyIntermediate)
	prep.AdvancedTechnicalQuestions = c.questions(fields, "advancedTechnicalQuestions", model.DifficultyAdvanced)
	prep.BehavioralQuestions = c.questions(fields, "behavioralQuestions", model.DifficultyBehavioral)

	points, err := extract.Records[model.TalkingPoint](fields, "talkingPoints")
	if err != nil {
		c.logger.Warn("talking points partially parsed", zap.Error(err))
	}
	prep.TalkingPoints = points
	prep.KeyTopicsToReview = fields.Strings("keyTopicsToReview")
	prep.CompanyResearchPoints = fields.Strings("companyResearchPoints")
	prep.Normalize()

	c.logger.Info("interview preparation generated", zap.Int("questions", prep.QuestionCount()))

	return prep, nil
}

func (c *InterviewCoach) degrade(prep *model.InterviewPrep, cause error) *model.InterviewPrep {
	prep.KeyTopicsToReview = []string{FallbackReviewTopic}
	prep.Fallback = model.Fallback{Degraded: true, DegradedReason: cause.Error()}
	prep.Normalize()
	return prep
}

func (c *InterviewCoach) questions(fields extract.Fields, key, difficulty string) []model.Question {
	records, err := extract.Records[model.Question](fields, key)
	if err != nil {
		c.logger.Warn("questions partially parsed", zap.String("list", key), zap.Error(err))
	}

	result := make([]model.Question, 0, len(records))
	for _, q := range records {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" {
			continue
		}
		if q.Category = strings.TrimSpace(q.Category); q.Category == "" {
			q.Category = model.DefaultQuestionCategory
		}
		if q.Difficulty = strings.ToLower(strings.TrimSpace(q.Difficulty)); q.Difficulty == "" {
			q.Difficulty = difficulty
		}
		result = append(result, q)
	}
	return result
}

func interviewPrompt(req *model.Requirement, analysis *model.AnalysisResult) string {
	var b strings.Builder

	b.WriteString("=== JOB REQUIREMENT ===\n")
	line(&b, "Job Title", req.JobTitle)
	line(&b, "Experience Level", req.ExperienceLevel)
	section(&b, "Required Skills", req.RequiredSkills)
	section(&b, "Technologies", req.Technologies)
	section(&b, "Responsibilities", req.Responsibilities)

	if analysis != nil {
		b.WriteString("\n=== CANDIDATE FIT ===\n")
		section(&b, "Matching Skills", analysis.MatchingSkills)
		section(&b, "Missing Skills", analysis.MissingSkills)
		section(&b, "Gaps", analysis.Gaps)
	}

	b.WriteString("\n=== TASK ===\n")
	b.WriteString("Prepare interview questions and talking points for this candidate.")

	return b.String()
}
