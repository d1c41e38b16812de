package agents

import (
	"context"
	"errors"
	"strings"

	"github.com/spigell/resume-agent/internal/extract"
	"github.com/spigell/resume-agent/internal/model"
	"go.uber.org/zap"
)

// ProfileParser turns extracted resume text into a model.CandidateProfile.
type ProfileParser struct {
	base
}

func NewProfileParser(deps Deps) *ProfileParser {
	return &ProfileParser{base: newBase(StageProfile, deps)}
}

// Parse fails with a *StageError when the text is empty, the model call fails
// or the response carries no JSON object. Malformed work or education entries
// keep whatever fields could be read.
func (p *ProfileParser) Parse(ctx context.Context, candidateID, resumeText string) (*model.CandidateProfile, error) {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return nil, p.fail(errors.New("resume text is empty"))
	}

	response, err := p.call(ctx, "Parse the following resume:\n\n"+resumeText)
	if err != nil {
		return nil, p.fail(err)
	}

	fields, err := p.codec.Decode(response)
	if err != nil {
		return nil, p.fail(err)
	}

	work, err := extract.Records[model.WorkExperience](fields, "workExperience")
	if err != nil {
		p.logger.Warn("work experience partially parsed", zap.Error(err))
	}

	education, err := extract.Records[model.Education](fields, "education")
	if err != nil {
		p.logger.Warn("education partially parsed", zap.Error(err))
	}

	profile := &model.CandidateProfile{
		ID:              candidateID,
		Name:            fields.String("name", model.DefaultCandidateName),
		Email:           fields.String("email", ""),
		Phone:           fields.String("phone", ""),
		Summary:         fields.String("summary", ""),
		TechnicalSkills: fields.Strings("technicalSkills"),
		SoftSkills:      fields.Strings("softSkills"),
		Certifications:  fields.Strings("certifications"),
		Projects:        fields.Strings("projects"),
		WorkExperience:  work,
		Education:       education,
		CreatedAt:       p.timestamp(),
	}
	profile.Normalize()

	p.logger.Info("profile parsed",
		zap.Int("technical_skills", len(profile.TechnicalSkills)),
		zap.Int("positions", len(profile.WorkExperience)),
	)

	return profile, nil
}
