package extract

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const (
	MinScore = 0
	MaxScore = 100
)

// Fields is a decoded JSON object. Accessors never fail: an absent or
// mistyped field yields the supplied default (or an empty collection).
type Fields map[string]any

func (f Fields) Has(key string) bool {
	v, ok := f[key]
	return ok && v != nil
}

// String returns a trimmed string field. Numbers are formatted; blank values
// yield def.
func (f Fields) String(key, def string) string {
	if s, ok := coerceString(f[key]); ok && s != "" {
		return s
	}
	return def
}

// Strings returns a list of non-blank strings. A bare string is treated as a
// single-element list.
func (f Fields) Strings(key string) []string {
	return coerceStrings(f[key])
}

func (f Fields) Int(key string, def int) int {
	v, ok := f.number(key)
	if !ok {
		return def
	}
	return roundInt(v)
}

// Score returns an integer field clamped to [MinScore, MaxScore], 0 when absent.
func (f Fields) Score(key string) int {
	v, ok := f.number(key)
	if !ok {
		return MinScore
	}
	return clampScoreFloat(v)
}

// number is the finite numeric value of key.
func (f Fields) number(key string) (float64, bool) {
	v := coerceFloat(f[key])
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (f Fields) Bool(key string, def bool) bool {
	if b, ok := coerceBool(f[key]); ok {
		return b
	}
	return def
}

// Object returns a nested object, or an empty one.
func (f Fields) Object(key string) Fields {
	if m, ok := f[key].(map[string]any); ok {
		return Fields(m)
	}
	return Fields{}
}

// IntMap returns the numeric entries of a nested object.
func (f Fields) IntMap(key string) map[string]int {
	nested := f.Object(key)
	result := make(map[string]int, len(nested))
	for name := range nested {
		if v, ok := nested.number(name); ok {
			result[name] = roundInt(v)
		}
	}
	return result
}

// ScoreMap is IntMap with every value clamped to the score range.
func (f Fields) ScoreMap(key string) map[string]int {
	nested := f.Object(key)
	result := make(map[string]int, len(nested))
	for name := range nested {
		if v, ok := nested.number(name); ok {
			result[name] = clampScoreFloat(v)
		}
	}
	return result
}

func (f Fields) StringMap(key string) map[string]string {
	nested := f.Object(key)
	result := make(map[string]string, len(nested))
	for name := range nested {
		if s := nested.String(name, ""); s != "" {
			result[name] = s
		}
	}
	return result
}

// Records decodes a list of objects into T using loose typing. Entries that
// are not objects are skipped and entries that only partly match T keep the
// fields that did decode; both are reported in the returned error.
func Records[T any](f Fields, key string) ([]T, error) {
	items, ok := f[key].([]any)
	if !ok {
		return []T{}, nil
	}

	result := make([]T, 0, len(items))
	var problems []string
	for i, item := range items {
		object, ok := item.(map[string]any)
		if !ok {
			problems = append(problems, fmt.Sprintf("%s[%d]: expected an object, got %T", key, i, item))
			continue
		}

		var record T
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			TagName:          "json",
			Result:           &record,
		})
		if err != nil {
			return result, fmt.Errorf("build record decoder: %w", err)
		}
		if err := decoder.Decode(object); err != nil {
			problems = append(problems, fmt.Sprintf("%s[%d]: %v", key, i, err))
		}
		result = append(result, record)
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return result, fmt.Errorf("partial records: %s", strings.Join(problems, "; "))
	}
	return result, nil
}

func ClampScore(v int) int {
	return min(max(v, MinScore), MaxScore)
}

func clampScoreFloat(v float64) int {
	return int(math.Round(min(max(v, MinScore), MaxScore)))
}

// roundInt saturates at the int range instead of wrapping.
func roundInt(v float64) int {
	switch {
	case v >= math.MaxInt:
		return math.MaxInt
	case v <= math.MinInt:
		return math.MinInt
	}
	return int(math.Round(v))
}

func coerceBool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "yes", "y", "1":
			return true, true
		case "false", "no", "n", "0":
			return false, true
		}
		return false, false
	case float64:
		return val != 0, true
	default:
		return false, false
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		return "", false
	}
}

func coerceStrings(v any) []string {
	switch val := v.(type) {
	case []any:
		result := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := coerceString(item); ok && s != "" {
				result = append(result, s)
			}
		}
		return result
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
	}
	return []string{}
}
