package model

import "time"

const DefaultCandidateName = "Unknown"

type WorkExperience struct {
	Company          string   `json:"company"`
	Position         string   `json:"position"`
	Duration         string   `json:"duration"`
	StartDate        string   `json:"startDate"`
	EndDate          string   `json:"endDate"`
	Responsibilities []string `json:"responsibilities"`
	Achievements     []string `json:"achievements"`
}

type Education struct {
	Institution    string `json:"institution"`
	Degree         string `json:"degree"`
	Field          string `json:"field"`
	GraduationDate string `json:"graduationDate"`
	GPA            string `json:"gpa"`
}

// CandidateProfile is the structured form of a resume.
type CandidateProfile struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Email              string           `json:"email"`
	Phone              string           `json:"phone"`
	Summary            string           `json:"summary"`
	TechnicalSkills    []string         `json:"technicalSkills"`
	SoftSkills         []string         `json:"softSkills"`
	Certifications     []string         `json:"certifications"`
	Projects           []string         `json:"projects"`
	WorkExperience     []WorkExperience `json:"workExperience"`
	Education          []Education      `json:"education"`
	OriginalResumePath string           `json:"originalResumePath"`
	CreatedAt          time.Time        `json:"createdAt"`
}

// Normalize replaces nil collections, including those of sub-records, with empty ones.
func (p *CandidateProfile) Normalize() {
	p.TechnicalSkills = nonNil(p.TechnicalSkills)
	p.SoftSkills = nonNil(p.SoftSkills)
	p.Certifications = nonNil(p.Certifications)
	p.Projects = nonNil(p.Projects)
	if p.WorkExperience == nil {
		p.WorkExperience = []WorkExperience{}
	}
	for i := range p.WorkExperience {
		p.WorkExperience[i].Responsibilities = nonNil(p.WorkExperience[i].Responsibilities)
		p.WorkExperience[i].Achievements = nonNil(p.WorkExperience[i].Achievements)
	}
	if p.Education == nil {
		p.Education = []Education{}
	}
}

// ExperienceLevel is a coarse label used by the analysis report.
func (p *CandidateProfile) ExperienceLevel() string {
	if len(p.WorkExperience) > 0 {
		return "Experienced"
	}
	return "Entry-level"
}
