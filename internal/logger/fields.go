package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldWorkflow identifies a single orchestrated run.
	FieldWorkflow = "workflow_id"
	// FieldCandidate identifies the candidate profile a run is about.
	FieldCandidate = "candidate_id"
	// FieldRequirement identifies the job requirement a run is matched against.
	FieldRequirement = "requirement_id"
	// FieldStage names the pipeline state being entered or failed.
	FieldStage = "stage"
)

// WorkflowFields returns the identifiers shared by every log line of a run.
func WorkflowFields(workflowID, candidateID, requirementID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldWorkflow, Value: workflowID},
		StringField{Key: FieldCandidate, Value: candidateID},
		StringField{Key: FieldRequirement, Value: requirementID},
	)
}

// WithWorkflowFields attaches run identifiers to the logger.
func WithWorkflowFields(logger *zap.Logger, workflowID, candidateID, requirementID string) *zap.Logger {
	return WithFields(logger, WorkflowFields(workflowID, candidateID, requirementID)...)
}

func StageField(stage string) zap.Field {
	return zap.String(FieldStage, stage)
}

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// If the logger is nil or no fields are supplied, the input logger is returned
// unchanged, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}
