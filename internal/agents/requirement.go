package agents

import (
	"context"
	"errors"
	"strings"

	"github.com/spigell/resume-agent/internal/model"
	"go.uber.org/zap"
)

// RequirementsParser turns raw job requirement text into a model.Requirement.
type RequirementsParser struct {
	base
}

func NewRequirementsParser(deps Deps) *RequirementsParser {
	return &RequirementsParser{base: newBase(StageRequirement, deps)}
}

// Parse fails with a *StageError when the text is empty, the model call fails
// or the response carries no JSON object.
func (p *RequirementsParser) Parse(ctx context.Context, requirementID, rawText string) (*model.Requirement, error) {
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return nil, p.fail(errors.New("requirement text is empty"))
	}

	response, err := p.call(ctx, "Parse the following job requirement:\n\n"+rawText)
	if err != nil {
		return nil, p.fail(err)
	}

	fields, err := p.codec.Decode(response)
	if err != nil {
		return nil, p.fail(err)
	}

	req := &model.Requirement{
		ID:               requirementID,
		JobTitle:         fields.String("jobTitle", model.DefaultJobTitle),
		ExperienceLevel:  strings.ToLower(fields.String("experienceLevel", model.DefaultExperienceLevel)),
		RequiredSkills:   fields.Strings("requiredSkills"),
		PreferredSkills:  fields.Strings("preferredSkills"),
		Technologies:     fields.Strings("technologies"),
		Responsibilities: fields.Strings("responsibilities"),
		Qualifications:   fields.Strings("qualifications"),
		SkillWeights:     fields.IntMap("skillWeights"),
		ScoringCriteria:  fields.StringMap("scoringCriteria"),
		RawText:          rawText,
		CreatedAt:        p.timestamp(),
	}
	req.Normalize()

	p.logger.Info("requirement parsed",
		zap.String("job_title", req.JobTitle),
		zap.Int("required_skills", len(req.RequiredSkills)),
	)

	return req, nil
}
