// Package normalize turns raw provider output into canonical question sets
// and evaluations.
//
// Scores are never rejected for being out of range; they are clamped to
// [0,100] and rounded. Structural problems (missing fields, wrong types,
// wrong counts) are reported as *domain.ValidationError. A perQuestion
// length mismatch additionally wraps domain.ErrPerQuestionMismatch so
// callers can tell it apart from recoverable validation failures.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tjfontaine/interview-gateway/internal/core/domain"
)

// Default texts substituted for empty fields.
const (
	DefaultStrength         = "Demonstrated effort in responses"
	DefaultImprovement      = "Continue practicing to improve"
	DefaultOverallFeedback  = "Thank you for completing the interview. Review the areas for improvement and keep practicing."
	DefaultQuestionFeedback = "No specific feedback for this answer."
)

const (
	questionsField           = "questions"
	perQuestionField         = "perQuestion"
	strengthsField           = "strengths"
	areasForImprovementField = "areasForImprovement"
	overallFeedbackField     = "overallFeedback"
	questionFeedbackField    = "feedback"
)

// Questions validates a raw question payload. It accepts either an object
// with a "questions" array or a bare array.
func Questions(raw string) (domain.QuestionSet, error) {
	var v any
	if err := decode(raw, &v); err != nil {
		return nil, err
	}

	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any:
		arr, ok := t[questionsField].([]any)
		if !ok {
			return nil, invalid(questionsField, "missing or not an array")
		}
		items = arr
	default:
		return nil, invalid("", "payload is not an object or array")
	}

	if len(items) != domain.QuestionCount {
		return nil, invalid(questionsField, fmt.Sprintf("got %d entries, want %d", len(items), domain.QuestionCount))
	}

	out := make(domain.QuestionSet, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, invalid(fmt.Sprintf("%s[%d]", questionsField, i), "not a string")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, invalid(fmt.Sprintf("%s[%d]", questionsField, i), "empty")
		}
		out = append(out, s)
	}
	return out, nil
}

// Evaluation validates a raw evaluation payload for questionCount questions.
func Evaluation(raw string, questionCount int) (*domain.Evaluation, error) {
	var obj map[string]any
	if err := decode(raw, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, invalid("", "payload is not an object")
	}

	// A perQuestion count mismatch takes precedence over other field errors.
	entries, ok := obj[perQuestionField].([]any)
	if !ok {
		return nil, invalid(perQuestionField, "missing or not an array")
	}
	if len(entries) != questionCount {
		return nil, &domain.ValidationError{
			Field:  perQuestionField,
			Reason: fmt.Sprintf("got %d entries, want %d", len(entries), questionCount),
			Err:    domain.ErrPerQuestionMismatch,
		}
	}

	eval := &domain.Evaluation{}
	var err error

	if eval.Clarity, err = score(obj, string(domain.SkillClarity), ""); err != nil {
		return nil, err
	}
	if eval.Correctness, err = score(obj, string(domain.SkillCorrectness), ""); err != nil {
		return nil, err
	}
	if eval.Communication, err = score(obj, string(domain.SkillCommunication), ""); err != nil {
		return nil, err
	}

	if eval.Strengths, err = stringList(obj, strengthsField, DefaultStrength); err != nil {
		return nil, err
	}
	if eval.AreasForImprovement, err = stringList(obj, areasForImprovementField, DefaultImprovement); err != nil {
		return nil, err
	}
	if eval.OverallFeedback, err = text(obj, overallFeedbackField, "", DefaultOverallFeedback); err != nil {
		return nil, err
	}

	eval.PerQuestion = make([]domain.PerQuestionScore, len(entries))
	for i, entry := range entries {
		prefix := fmt.Sprintf("%s[%d].", perQuestionField, i)
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, invalid(strings.TrimSuffix(prefix, "."), "not an object")
		}
		pq := &eval.PerQuestion[i]
		if pq.Clarity, err = score(m, string(domain.SkillClarity), prefix); err != nil {
			return nil, err
		}
		if pq.Correctness, err = score(m, string(domain.SkillCorrectness), prefix); err != nil {
			return nil, err
		}
		if pq.Communication, err = score(m, string(domain.SkillCommunication), prefix); err != nil {
			return nil, err
		}
		if pq.Feedback, err = text(m, questionFeedbackField, prefix, DefaultQuestionFeedback); err != nil {
			return nil, err
		}
	}

	return eval, nil
}

// decode strips code fences and surrounding prose, then unmarshals.
func decode(raw string, v any) error {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return invalid("", "empty payload")
	}
	if cleaned[0] != '{' && cleaned[0] != '[' {
		cleaned = extractObject(cleaned)
		if cleaned == "" {
			return invalid("", "no JSON object found")
		}
	}
	err := json.Unmarshal([]byte(cleaned), v)
	if err == nil {
		return nil
	}
	// trailing prose after a leading object
	if obj := extractObject(cleaned); cleaned[0] == '{' && obj != "" && obj != cleaned {
		if json.Unmarshal([]byte(obj), v) == nil {
			return nil
		}
	}
	return &domain.ValidationError{Reason: "payload is not valid JSON", Err: err}
}

func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// extractObject returns the first balanced top-level {...} in s, or "".
func extractObject(s string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, ch := range s {
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func score(obj map[string]any, key, prefix string) (int, error) {
	v, ok := obj[key]
	if !ok {
		return 0, invalid(prefix+key, "missing")
	}
	f, ok := v.(float64)
	if !ok {
		return 0, invalid(prefix+key, "not a number")
	}
	return domain.ClampScore(f), nil
}

func stringList(obj map[string]any, key, fallback string) ([]string, error) {
	arr, ok := obj[key].([]any)
	if !ok {
		return nil, invalid(key, "missing or not an array")
	}

	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s := coerce(item); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = []string{fallback}
	}
	return out, nil
}

func text(obj map[string]any, key, prefix, fallback string) (string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return fallback, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", invalid(prefix+key, "not a string")
	}
	if s = strings.TrimSpace(s); s == "" {
		return fallback, nil
	}
	return s, nil
}

// coerce renders scalars as trimmed strings; anything else becomes "".
func coerce(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func invalid(field, reason string) error {
	return &domain.ValidationError{Field: field, Reason: reason}
}
