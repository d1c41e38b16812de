// Package extract turns free-text model responses into typed values.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/resume-agent/internal/utils"
)

const fence = "```"

const snippetLength = 120

var errEmptyResponse = errors.New("response is empty")

// DecodeError is returned when a response does not contain a JSON object.
type DecodeError struct {
	// Snippet is a shortened copy of the text that failed to decode.
	Snippet string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("decode response: %v", e.Err)
	}
	return fmt.Sprintf("decode response %q: %v", e.Snippet, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StripFences removes a leading code fence (with or without a language tag)
// and a trailing fence. Running it on its own output is a no-op.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(s, fence); ok {
		s = dropLanguageTag(rest)
	}
	if rest, ok := strings.CutSuffix(s, fence); ok {
		s = rest
	}
	return strings.TrimSpace(s)
}

// ExtractJSON returns the JSON candidate text of a model response.
func ExtractJSON(raw string) string {
	return StripFences(raw)
}

func dropLanguageTag(s string) string {
	i := 0
	for i < len(s) && isTagByte(s[i]) {
		i++
	}
	if i == 0 {
		return s
	}

	j := i
	for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
		j++
	}
	if j == len(s) {
		return ""
	}
	switch s[j] {
	case '\r', '\n', '{', '[':
		return s[j:]
	}
	return s
}

func isTagByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '-' || b == '_' || b == '+'
}

// Codec is the stateless JSON service shared by every component that reads
// model output or writes artifacts. The zero value is ready to use.
type Codec struct{}

func NewCodec() *Codec {
	return &Codec{}
}

// Decode parses the JSON object carried by a model response once fences are
// stripped. Anything else, prose around the object included, is a
// *DecodeError.
func (c *Codec) Decode(raw string) (Fields, error) {
	candidate := ExtractJSON(raw)
	if candidate == "" {
		return nil, &DecodeError{Err: errEmptyResponse}
	}

	fields, err := decodeObject(candidate)
	if err == nil {
		return fields, nil
	}

	return nil, &DecodeError{Snippet: utils.TruncateForLog(candidate, snippetLength), Err: err}
}

// Encode renders v as indented JSON, the persisted artifact format.
func (c *Codec) Encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a persisted artifact into v.
func (c *Codec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &DecodeError{Snippet: utils.TruncateForLog(string(data), snippetLength), Err: err}
	}
	return nil
}

func decodeObject(text string) (Fields, error) {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, err
	}

	object, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", value)
	}

	return Fields(object), nil
}
