package agents

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spigell/resume-agent/internal/extract"
	"github.com/spigell/resume-agent/internal/model"
	"go.uber.org/zap"
)

const (
	fallbackAssessment     = "The analysis response could not be parsed."
	FallbackRecommendation = "Unable to parse analysis results"
)

// FitAnalyzer scores a candidate profile against a requirement.
type FitAnalyzer struct {
	base
}

func NewFitAnalyzer(deps Deps) *FitAnalyzer {
	return &FitAnalyzer{base: newBase(StageAnalysis, deps)}
}

// Analyze fails with a *StageError when the model cannot be called. A response
// without a JSON object yields a degraded result scored 0.
func (a *FitAnalyzer) Analyze(ctx context.Context, profile *model.CandidateProfile, req *model.Requirement) (*model.AnalysisResult, error) {
	if profile == nil || req == nil {
		return nil, a.fail(errors.New("profile and requirement are required"))
	}

	response, err := a.call(ctx, analysisPrompt(profile, req))
	if err != nil {
		return nil, a.fail(err)
	}

	result := &model.AnalysisResult{
		ID:            model.PairID(profile.ID, req.ID),
		CandidateID:   profile.ID,
		RequirementID: req.ID,
		AnalyzedAt:    a.timestamp(),
	}

	fields, err := a.codec.Decode(response)
	if err != nil {
		a.logger.Warn("analysis response not parsed, using fallback", zap.Error(err))
		result.OverallAssessment = fallbackAssessment
		result.Recommendations = []string{FallbackRecommendation}
		result.ExperienceMatch.ExperienceLevel = profile.ExperienceLevel()
		result.Fallback = model.Fallback{Degraded: true, DegradedReason: err.Error()}
		result.Normalize()
		return result, nil
	}

	result.FitScore = fields.Score("fitScore")
	result.CategoryScores = fields.ScoreMap("categoryScores")
	result.Strengths = fields.Strings("strengths")
	result.Gaps = fields.Strings("gaps")
	result.MatchingSkills = fields.Strings("matchingSkills")
	result.MissingSkills = fields.Strings("missingSkills")
	result.OverallAssessment = fields.String("overallAssessment", "")
	result.Recommendations = fields.Strings("recommendations")
	result.RecommendForInterview = fields.Bool("recommendForInterview", false)

	skillMatch := coverage(req.RequiredSkills, result.MatchingSkills)
	if fields.Has("skillMatchPercentage") {
		skillMatch = fields.Score("skillMatchPercentage")
	}
	result.SkillMatch = model.SkillMatch{
		MatchPercentage:       skillMatch,
		MatchedSkills:         result.MatchingSkills,
		MissingCriticalSkills: result.MissingSkills,
	}

	experience := result.CategoryScores[model.CategoryExperience]
	if fields.Has("experienceMatchPercentage") {
		experience = fields.Score("experienceMatchPercentage")
	}
	result.ExperienceMatch = model.ExperienceMatch{
		MatchPercentage: experience,
		ExperienceLevel: profile.ExperienceLevel(),
	}
	result.Normalize()

	a.logger.Info("fit analyzed",
		zap.Int("fit_score", result.FitScore),
		zap.Bool("recommend_for_interview", result.RecommendForInterview),
	)

	return result, nil
}

func analysisPrompt(profile *model.CandidateProfile, req *model.Requirement) string {
	var b strings.Builder

	b.WriteString("=== JOB REQUIREMENT ===\n")
	line(&b, "Job Title", req.JobTitle)
	line(&b, "Experience Level", req.ExperienceLevel)
	section(&b, "Required Skills", req.RequiredSkills)
	section(&b, "Preferred Skills", req.PreferredSkills)
	section(&b, "Technologies", req.Technologies)
	section(&b, "Responsibilities", req.Responsibilities)
	section(&b, "Qualifications", req.Qualifications)
	if len(req.SkillWeights) > 0 {
		section(&b, "Skill Weights", weights(req.SkillWeights))
	}

	b.WriteString("\n=== CANDIDATE PROFILE ===\n")
	line(&b, "Name", profile.Name)
	line(&b, "Summary", profile.Summary)
	section(&b, "Technical Skills", profile.TechnicalSkills)
	section(&b, "Soft Skills", profile.SoftSkills)
	section(&b, "Certifications", profile.Certifications)
	if len(profile.WorkExperience) > 0 {
		b.WriteString("Work Experience:\n")
		for _, job := range profile.WorkExperience {
			fmt.Fprintf(&b, "- %s at %s (%s)\n", job.Position, job.Company, job.Duration)
			for _, r := range job.Responsibilities {
				fmt.Fprintf(&b, "  * %s\n", r)
			}
		}
	}
	if len(profile.Education) > 0 {
		b.WriteString("Education:\n")
		for _, edu := range profile.Education {
			fmt.Fprintf(&b, "- %s in %s, %s\n", edu.Degree, edu.Field, edu.Institution)
		}
	}

	b.WriteString("\n=== ANALYSIS REQUEST ===\n")
	b.WriteString("Score how well this candidate fits the job requirement.")

	return b.String()
}

func weights(m map[string]int) []string {
	result := make([]string, 0, len(m))
	for skill, weight := range m {
		result = append(result, fmt.Sprintf("%s=%d", skill, weight))
	}
	sort.Strings(result)
	return result
}

// coverage is the share of required skills found in matched, case-insensitively.
func coverage(required, matched []string) int {
	if len(required) == 0 {
		return 0
	}
	have := make(map[string]struct{}, len(matched))
	for _, s := range matched {
		have[strings.ToLower(s)] = struct{}{}
	}
	hits := 0
	for _, s := range required {
		if _, ok := have[strings.ToLower(s)]; ok {
			hits++
		}
	}
	return extract.ClampScore(hits * 100 / len(required))
}
