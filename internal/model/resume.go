package model

import "time"

// TailoredResume is a requirement-specific rewrite of a candidate's resume.
type TailoredResume struct {
	CandidateID   string    `json:"candidateId"`
	RequirementID string    `json:"requirementId"`
	Text          string    `json:"text"`
	PDFPath       string    `json:"pdfPath,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
