// Package storage persists pipeline entities as JSON artifacts addressed by
// category and key. Writes to one key are last-write-wins.
package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spigell/resume-agent/internal/model"
)

// Artifact categories.
const (
	CategoryRequirements  = "requirements"
	CategoryCandidates    = "candidates"
	CategoryAnalysis      = "analysis"
	CategoryTailored      = "tailored"
	CategoryInterviewPrep = "interview-prep"
)

// Categories lists every category a Store accepts.
var Categories = []string{
	CategoryRequirements,
	CategoryCandidates,
	CategoryAnalysis,
	CategoryTailored,
	CategoryInterviewPrep,
}

var ErrNotFound = errors.New("artifact not found")

// Store is the persistence collaborator of the workflow. Failures are
// reported as *upstream.Error.
type Store interface {
	Save(ctx context.Context, category, key string, v any) error
	Load(ctx context.Context, category, key string, out any) error
}

// PairKey addresses artifacts that belong to a candidate and a requirement.
// Both IDs must pass ValidateID for the key to be unique.
func PairKey(candidateID, requirementID string) string {
	return model.PairID(candidateID, requirementID)
}

func IsCategory(category string) bool {
	return slices.Contains(Categories, category)
}

func validate(category, key string) error {
	if !IsCategory(category) {
		return fmt.Errorf("unknown category %q", category)
	}
	return ValidateKey(key)
}

// ValidateKey accepts letters, digits, '-', '_' and '.', so a key can never
// escape its category.
func ValidateKey(key string) error {
	if key == "" || strings.Trim(key, ".") == "" {
		return errors.New("artifact key is empty")
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return fmt.Errorf("artifact key %q contains %q", key, r)
		}
	}
	return nil
}

// ValidateID checks a candidate or requirement ID. IDs follow ValidateKey but
// may not contain the pair separator.
func ValidateID(id string) error {
	if err := ValidateKey(id); err != nil {
		return err
	}
	if strings.Contains(id, model.PairSeparator) {
		return fmt.Errorf("id %q contains %q", id, model.PairSeparator)
	}
	return nil
}
