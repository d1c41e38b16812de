package agents

import (
	"context"
	"errors"
	"strings"

	"github.com/spigell/resume-agent/internal/extract"
	"github.com/spigell/resume-agent/internal/model"
	"go.uber.org/zap"
)

// ResumeTailor rewrites a resume for a specific requirement.
type ResumeTailor struct {
	base
}

func NewResumeTailor(deps Deps) *ResumeTailor {
	return &ResumeTailor{base: newBase(StageTailor, deps)}
}

// Tailor returns the rewritten resume as plain text. An empty response is an error.
func (t *ResumeTailor) Tailor(ctx context.Context, profile *model.CandidateProfile, req *model.Requirement, resumeText string) (*model.TailoredResume, error) {
	if profile == nil || req == nil {
		return nil, t.fail(errors.New("profile and requirement are required"))
	}
	if strings.TrimSpace(resumeText) == "" {
		return nil, t.fail(errors.New("original resume text is empty"))
	}

	response, err := t.call(ctx, tailorPrompt(req, resumeText))
	if err != nil {
		return nil, t.fail(err)
	}

	text := extract.StripFences(response)
	if text == "" {
		return nil, t.fail(errors.New("tailored resume is empty"))
	}

	t.logger.Info("resume tailored", zap.Int("length", len(text)))

	return &model.TailoredResume{
		CandidateID:   profile.ID,
		RequirementID: req.ID,
		Text:          text,
		CreatedAt:     t.timestamp(),
	}, nil
}

func tailorPrompt(req *model.Requirement, resumeText string) string {
	var b strings.Builder

	b.WriteString("=== JOB REQUIREMENT ===\n")
	line(&b, "Job Title", req.JobTitle)
	line(&b, "Experience Level", req.ExperienceLevel)
	section(&b, "Required Skills", req.RequiredSkills)
	section(&b, "Preferred Skills", req.PreferredSkills)
	section(&b, "Technologies", req.Technologies)
	section(&b, "Responsibilities", req.Responsibilities)

	b.WriteString("\n=== ORIGINAL RESUME ===\n")
	b.WriteString(strings.TrimSpace(resumeText))

	b.WriteString("\n\n=== TASK ===\n")
	b.WriteString("Rewrite the resume to highlight the experience and skills most relevant to this requirement. ")
	b.WriteString("Do not add anything that is not in the original resume.")

	return b.String()
}
