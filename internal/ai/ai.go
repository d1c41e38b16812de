// Package ai defines the model invocation contract used by every stage agent.
package ai

import (
	"context"
	"errors"
	"fmt"
)

// ErrModelUnavailable is returned when no model backend credential is
// configured. It is never retried.
var ErrModelUnavailable = errors.New("model service is not configured")

// Generator performs a single model call with a system and a user prompt and
// returns the raw text of the response.
type Generator interface {
	GenerateContent(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ModelCallError reports a failed model call, or the last failure of a retried one.
type ModelCallError struct {
	Attempts int
	Err      error
}

func (e *ModelCallError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("model call failed after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("model call failed: %v", e.Err)
}

func (e *ModelCallError) Unwrap() error {
	return e.Err
}

// Unavailable is the Generator used when no backend is configured.
type Unavailable struct{}

func (Unavailable) GenerateContent(context.Context, string, string) (string, error) {
	return "", ErrModelUnavailable
}
