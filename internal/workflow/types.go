package workflow

import "github.com/spigell/resume-agent/internal/model"

// State is a step of the workflow state machine.
type State string

const (
	StateStart             State = "START"
	StateRequirementParsed State = "REQUIREMENT_PARSED"
	StateResumeExtracted   State = "RESUME_EXTRACTED"
	StateProfileParsed     State = "PROFILE_PARSED"
	StateAnalyzed          State = "ANALYZED"
	StateGatePassed        State = "GATE_PASSED"
	StateGateFailed        State = "GATE_FAILED"
	StateResumeTailored    State = "RESUME_TAILORED"
	StatePrepGenerated     State = "PREP_GENERATED"
	StateCompleted         State = "COMPLETED"
	StateFailed            State = "FAILED"
)

// Status is the terminal outcome of a run.
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Request describes one run. When RequirementText is empty and RequirementID
// is set, the stored requirement with that ID is reused.
type Request struct {
	RequirementText        string `json:"requirementText" yaml:"requirementText"`
	RequirementID          string `json:"requirementId,omitempty" yaml:"requirementId"`
	ResumeFilePath         string `json:"resumeFilePath" yaml:"resumeFilePath"`
	CandidateID            string `json:"candidateId,omitempty" yaml:"candidateId"`
	GenerateTailoredResume bool   `json:"generateTailoredResume" yaml:"generateTailoredResume"`
	GenerateInterviewPrep  bool   `json:"generateInterviewPrep" yaml:"generateInterviewPrep"`
}

// Result is returned for every run, successful or not. On failure only the
// identifiers, status, message and visited states are set.
type Result struct {
	WorkflowID         string                  `json:"workflowId"`
	CandidateID        string                  `json:"candidateId,omitempty"`
	RequirementID      string                  `json:"requirementId,omitempty"`
	Status             Status                  `json:"status"`
	Success            bool                    `json:"success"`
	Message            string                  `json:"message"`
	GatePassed         bool                    `json:"gatePassed"`
	Requirement        *model.Requirement      `json:"requirement,omitempty"`
	Profile            *model.CandidateProfile `json:"candidateProfile,omitempty"`
	Analysis           *model.AnalysisResult   `json:"analysisResult,omitempty"`
	TailoredResume     *model.TailoredResume   `json:"tailoredResume,omitempty"`
	ModifiedResumePath string                  `json:"modifiedResumePath,omitempty"`
	InterviewPrep      *model.InterviewPrep    `json:"interviewPrep,omitempty"`
	States             []State                 `json:"states"`
	Warnings           []string                `json:"warnings,omitempty"`
	ExecutionTimeMs    int64                   `json:"executionTimeMs"`
}
