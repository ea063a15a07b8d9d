package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError reports a malformed quiz payload.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parsing quiz payload: %s: %v", e.Reason, e.Err)
	}
	return "parsing quiz payload: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(reason string, err ...error) error {
	pe := &ParseError{Reason: reason}
	if len(err) > 0 {
		pe.Err = err[0]
	}
	return pe
}

// Normalize converts the single-quoted pseudo-JSON the authoring tools
// produce into proper JSON.
func Normalize(raw string) string {
	return strings.ReplaceAll(raw, "'", `"`)
}

// ParseDocument parses and validates a quiz question payload.
// Question IDs must be exactly 1..N with no gaps, every question must
// declare a known kind and a non-empty option list.
func ParseDocument(raw string) (Document, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader([]byte(Normalize(raw))))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return Document{}, parseErr("invalid JSON", err)
	}

	if len(doc.Questions) == 0 {
		return Document{}, parseErr("no questions")
	}
	for i, q := range doc.Questions {
		if q.ID != i+1 {
			return Document{}, parseErr(fmt.Sprintf("question %d has id %d, want %d", i+1, q.ID, i+1))
		}
		if q.Kind != KindSingleChoice && q.Kind != KindMultipleChoice {
			return Document{}, parseErr(fmt.Sprintf("question %d has unknown type %q", q.ID, q.Kind))
		}
		if q.Prompt == "" {
			return Document{}, parseErr(fmt.Sprintf("question %d has no prompt", q.ID))
		}
		if len(q.Answers) == 0 {
			return Document{}, parseErr(fmt.Sprintf("question %d has no answer options", q.ID))
		}
	}
	return doc, nil
}

// ParseAnswerKey parses a quiz answer payload and checks it against doc:
// exactly one entry per question, all answer texts drawn from the
// question's options.
func ParseAnswerKey(raw string, doc Document) (AnswerKey, error) {
	var key AnswerKey
	dec := json.NewDecoder(bytes.NewReader([]byte(Normalize(raw))))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&key); err != nil {
		return AnswerKey{}, parseErr("invalid JSON", err)
	}

	if len(key.Answers) != len(doc.Questions) {
		return AnswerKey{}, parseErr(fmt.Sprintf("key has %d answers, quiz has %d questions", len(key.Answers), len(doc.Questions)))
	}
	seen := make(map[int]bool, len(key.Answers))
	for _, entry := range key.Answers {
		if entry.QuestionID < 1 || entry.QuestionID > len(doc.Questions) {
			return AnswerKey{}, parseErr(fmt.Sprintf("key refers to unknown question %d", entry.QuestionID))
		}
		if seen[entry.QuestionID] {
			return AnswerKey{}, parseErr(fmt.Sprintf("key has multiple answers for question %d", entry.QuestionID))
		}
		seen[entry.QuestionID] = true

		q := doc.Questions[entry.QuestionID-1]
		if len(entry.Answer) == 0 {
			return AnswerKey{}, parseErr(fmt.Sprintf("key has no answer for question %d", entry.QuestionID))
		}
		if q.Kind == KindSingleChoice && len(entry.Answer) != 1 {
			return AnswerKey{}, parseErr(fmt.Sprintf("key has %d answers for single choice question %d", len(entry.Answer), entry.QuestionID))
		}
		for _, text := range entry.Answer {
			if !containsText(q.Answers, text) {
				return AnswerKey{}, parseErr(fmt.Sprintf("key answer %q is not an option of question %d", text, entry.QuestionID))
			}
		}
	}
	return key, nil
}

func containsText(options []string, text string) bool {
	for _, opt := range options {
		if opt == text {
			return true
		}
	}
	return false
}
