package model

import "time"

const DefaultQuestionCategory = "General"

// Question difficulty levels; each question list of InterviewPrep has one.
const (
	DifficultyBasic        = "basic"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
	DifficultyBehavioral   = "behavioral"
)

type Question struct {
	Question        string   `json:"question"`
	Category        string   `json:"category"`
	Difficulty      string   `json:"difficulty"`
	SuggestedAnswer string   `json:"suggestedAnswer"`
	KeyPoints       []string `json:"keyPoints"`
}

type TalkingPoint struct {
	Topic    string   `json:"topic"`
	Talking  string   `json:"talking"`
	Examples []string `json:"examples"`
}

type InterviewPrep struct {
	ID                             string         `json:"id"`
	CandidateID                    string         `json:"candidateId"`
	RequirementID                  string         `json:"requirementId"`
	BasicTechnicalQuestions        []Question     `json:"basicTechnicalQuestions"`
	IntermediateTechnicalQuestions []Question     `json:"intermediateTechnicalQuestions"`
	AdvancedTechnicalQuestions     []Question     `json:"advancedTechnicalQuestions"`
	BehavioralQuestions            []Question     `json:"behavioralQuestions"`
	TalkingPoints                  []TalkingPoint `json:"talkingPoints"`
	KeyTopicsToReview              []string       `json:"keyTopicsToReview"`
	CompanyResearchPoints          []string       `json:"companyResearchPoints"`
	CreatedAt                      time.Time      `json:"createdAt"`
	Fallback
}

func (p *InterviewPrep) Normalize() {
	p.BasicTechnicalQuestions = nonNilQuestions(p.BasicTechnicalQuestions)
	p.IntermediateTechnicalQuestions = nonNilQuestions(p.IntermediateTechnicalQuestions)
	p.AdvancedTechnicalQuestions = nonNilQuestions(p.AdvancedTechnicalQuestions)
	p.BehavioralQuestions = nonNilQuestions(p.BehavioralQuestions)
	if p.TalkingPoints == nil {
		p.TalkingPoints = []TalkingPoint{}
	}
	for i := range p.TalkingPoints {
		p.TalkingPoints[i].Examples = nonNil(p.TalkingPoints[i].Examples)
	}
	p.KeyTopicsToReview = nonNil(p.KeyTopicsToReview)
	p.CompanyResearchPoints = nonNil(p.CompanyResearchPoints)
}

// QuestionCount is the number of questions across all lists.
func (p *InterviewPrep) QuestionCount() int {
	return len(p.BasicTechnicalQuestions) + len(p.IntermediateTechnicalQuestions) +
		len(p.AdvancedTechnicalQuestions) + len(p.BehavioralQuestions)
}

func nonNilQuestions(questions []Question) []Question {
	if questions == nil {
		return []Question{}
	}
	for i := range questions {
		questions[i].KeyPoints = nonNil(questions[i].KeyPoints)
	}
	return questions
}
