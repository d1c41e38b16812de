package model

import "time"

// Category keys of AnalysisResult.CategoryScores.
const (
	CategoryTechnicalSkills = "technical_skills"
	CategoryExperience      = "experience"
	CategoryEducation       = "education"
	CategoryOverallFit      = "overall_fit"
)

// Fallback marks an entity that was produced without a usable model response.
type Fallback struct {
	Degraded       bool   `json:"degraded"`
	DegradedReason string `json:"degradedReason,omitempty"`
}

type SkillMatch struct {
	MatchPercentage       int      `json:"matchPercentage"`
	MatchedSkills         []string `json:"matchedSkills"`
	MissingCriticalSkills []string `json:"missingCriticalSkills"`
}

type ExperienceMatch struct {
	MatchPercentage int    `json:"matchPercentage"`
	ExperienceLevel string `json:"experienceLevel"`
}

// AnalysisResult scores one candidate against one requirement. Every score is in [0, 100].
type AnalysisResult struct {
	ID                    string          `json:"id"`
	CandidateID           string          `json:"candidateId"`
	RequirementID         string          `json:"requirementId"`
	FitScore              int             `json:"fitScore"`
	CategoryScores        map[string]int  `json:"categoryScores"`
	Strengths             []string        `json:"strengths"`
	Gaps                  []string        `json:"gaps"`
	MatchingSkills        []string        `json:"matchingSkills"`
	MissingSkills         []string        `json:"missingSkills"`
	OverallAssessment     string          `json:"overallAssessment"`
	Recommendations       []string        `json:"recommendations"`
	RecommendForInterview bool            `json:"recommendForInterview"`
	SkillMatch            SkillMatch      `json:"skillMatch"`
	ExperienceMatch       ExperienceMatch `json:"experienceMatch"`
	AnalyzedAt            time.Time       `json:"analyzedAt"`
	Fallback
}

func (a *AnalysisResult) Normalize() {
	if a.CategoryScores == nil {
		a.CategoryScores = map[string]int{}
	}
	a.Strengths = nonNil(a.Strengths)
	a.Gaps = nonNil(a.Gaps)
	a.MatchingSkills = nonNil(a.MatchingSkills)
	a.MissingSkills = nonNil(a.MissingSkills)
	a.Recommendations = nonNil(a.Recommendations)
	a.SkillMatch.MatchedSkills = nonNil(a.SkillMatch.MatchedSkills)
	a.SkillMatch.MissingCriticalSkills = nonNil(a.SkillMatch.MissingCriticalSkills)
}
