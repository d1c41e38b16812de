// Package model holds the entities passed between pipeline stages and
// persisted as JSON artifacts.
package model

import "time"

const (
	DefaultJobTitle        = "Unknown Position"
	DefaultExperienceLevel = "intermediate"
)

// Requirement is a parsed job requirement. It may be reused across many candidates.
type Requirement struct {
	ID               string            `json:"id"`
	JobTitle         string            `json:"jobTitle"`
	ExperienceLevel  string            `json:"experienceLevel"`
	RequiredSkills   []string          `json:"requiredSkills"`
	PreferredSkills  []string          `json:"preferredSkills"`
	Technologies     []string          `json:"technologies"`
	Responsibilities []string          `json:"responsibilities"`
	Qualifications   []string          `json:"qualifications"`
	SkillWeights     map[string]int    `json:"skillWeights"`
	ScoringCriteria  map[string]string `json:"scoringCriteria"`
	RawText          string            `json:"rawText"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// Normalize replaces nil collections with empty ones.
func (r *Requirement) Normalize() {
	r.RequiredSkills = nonNil(r.RequiredSkills)
	r.PreferredSkills = nonNil(r.PreferredSkills)
	r.Technologies = nonNil(r.Technologies)
	r.Responsibilities = nonNil(r.Responsibilities)
	r.Qualifications = nonNil(r.Qualifications)
	if r.SkillWeights == nil {
		r.SkillWeights = map[string]int{}
	}
	if r.ScoringCriteria == nil {
		r.ScoringCriteria = map[string]string{}
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
