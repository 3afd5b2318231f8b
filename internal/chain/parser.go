package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// ErrGenerationFormat indicates the model produced output that does not
// satisfy the chain's structural contract (bad JSON, missing DOT graph).
// Generation is not retried; the caller surfaces the failure.
var ErrGenerationFormat = errors.New("generation output malformed")

// Parser validates and normalizes raw model output.
type Parser func(raw string) (string, error)

// Question is a single multiple-choice question.
type Question struct {
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// Quiz is the JSON contract shared by the quiz and exam chains.
type Quiz struct {
	Questions []Question `json:"questions"`
}

// parsePassthrough returns the output with surrounding whitespace trimmed.
func parsePassthrough(raw string) (string, error) {
	return strings.TrimSpace(raw), nil
}

var quizSchema = sync.OnceValues(func() (*jsonschema.Resolved, error) {
	s, err := jsonschema.For[Quiz](nil)
	if err != nil {
		return nil, err
	}
	return s.Resolve(nil)
})

// parseQuiz strips Markdown code fences, validates the payload against the
// quiz schema, and enforces that each question has exactly four options with
// the correct answer among them. Returns the cleaned JSON string.
func parseQuiz(raw string) (string, error) {
	cleaned := stripFences(raw)

	var quiz Quiz
	if err := json.Unmarshal([]byte(cleaned), &quiz); err != nil {
		return "", fmt.Errorf("%w: parsing quiz JSON: %w", ErrGenerationFormat, err)
	}

	schema, err := quizSchema()
	if err != nil {
		return "", fmt.Errorf("resolving quiz schema: %w", err)
	}
	// jsonschema-go validates unmarshaled JSON values, not Go structs.
	var payload any
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return "", fmt.Errorf("%w: parsing quiz JSON: %w", ErrGenerationFormat, err)
	}
	if err := schema.Validate(payload); err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFormat, err)
	}

	if len(quiz.Questions) == 0 {
		return "", fmt.Errorf("%w: quiz has no questions", ErrGenerationFormat)
	}
	for i, q := range quiz.Questions {
		if strings.TrimSpace(q.QuestionText) == "" {
			return "", fmt.Errorf("%w: question %d has empty text", ErrGenerationFormat, i+1)
		}
		if len(q.Options) != 4 {
			return "", fmt.Errorf("%w: question %d has %d options, want 4", ErrGenerationFormat, i+1, len(q.Options))
		}
		if !slices.Contains(q.Options, q.CorrectAnswer) {
			return "", fmt.Errorf("%w: question %d correct answer not among options", ErrGenerationFormat, i+1)
		}
	}

	return cleaned, nil
}

// dotPattern matches the first digraph block, spanning newlines greedily so a
// complete graph with nested braces is captured.
var dotPattern = regexp.MustCompile(`(?s)digraph G \{.*\}`)

// parseDOT extracts a Graphviz digraph from the output. If no digraph block
// is found, fence-stripping is the fallback; output without any graph fails.
func parseDOT(raw string) (string, error) {
	if m := dotPattern.FindString(raw); m != "" {
		return m, nil
	}
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "```dot", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)
	if !strings.Contains(cleaned, "digraph") {
		return "", fmt.Errorf("%w: no digraph in output", ErrGenerationFormat)
	}
	return cleaned, nil
}

// stripFences removes Markdown code fences around a JSON payload.
func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}
