package logger

import "go.uber.org/zap"

const (
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"
	// FieldAttempt is the 1-based attempt number of a model call.
	FieldAttempt = "ai_attempt"
	// FieldMaxAttempts is the attempt budget of a model call.
	FieldMaxAttempts = "ai_max_attempts"
)

// CommonFields returns standard zap fields that describe the AI provider and model.
// Empty values are ignored to keep log entries compact when information is missing.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithCommonFields attaches the common AI fields to the provided logger.
// If the logger is nil, a no-op logger is created to avoid panics.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	fields := CommonFields(provider, model)
	return WithFields(logger, fields...)
}

// AttemptFields describes the position of a call inside its retry budget.
func AttemptFields(attempt, maxAttempts int) []zap.Field {
	return []zap.Field{
		zap.Int(FieldAttempt, attempt),
		zap.Int(FieldMaxAttempts, maxAttempts),
	}
}
