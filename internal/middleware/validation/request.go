package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxCorrectedIntentLength bounds corrected_intent, in characters.
const MaxCorrectedIntentLength = 100

// FieldError is a client input error naming the offending field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// PredictText extracts the text to classify. A JSON body must be an object
// with a string "text"; any other body is taken verbatim as the text. Only
// the empty string is rejected: whitespace is valid input that cleans down
// to nothing.
func PredictText(contentType string, body []byte) (string, *FieldError) {
	if strings.Contains(contentType, "application/json") {
		var req map[string]json.RawMessage
		if err := json.Unmarshal(body, &req); err != nil || req == nil {
			return "", &FieldError{Field: "text", Message: "body must be a JSON object"}
		}
		raw, ok := req["text"]
		if !ok {
			return "", &FieldError{Field: "text", Message: "is required"}
		}
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", &FieldError{Field: "text", Message: "must be a string"}
		}
		text = sanitizeString(text)
		if text == "" {
			return "", &FieldError{Field: "text", Message: "must not be empty"}
		}
		return text, nil
	}

	if !utf8.Valid(body) {
		return "", &FieldError{Field: "text", Message: "must be valid UTF-8"}
	}
	text := sanitizeString(string(body))
	if text == "" {
		return "", &FieldError{Field: "text", Message: "must not be empty"}
	}
	return text, nil
}

// Feedback is a validated feedback submission. CorrectedIntent is non-nil
// exactly when IsCorrect is false.
type Feedback struct {
	QueryID         int64
	IsCorrect       bool
	CorrectedIntent *string
}

// ParseFeedback validates a feedback body: query_id is a required integer
// >= 1, is_correct a required boolean, and corrected_intent a non-empty
// string of at most 100 characters that is required when is_correct is
// false. A correction sent alongside is_correct=true is dropped.
func ParseFeedback(body []byte) (*Feedback, *FieldError) {
	var req map[string]json.RawMessage
	if err := json.Unmarshal(body, &req); err != nil || req == nil {
		return nil, &FieldError{Field: "body", Message: "must be a JSON object"}
	}

	var fb Feedback

	raw, ok := req["query_id"]
	if !ok || isNull(raw) {
		return nil, &FieldError{Field: "query_id", Message: "is required"}
	}
	if err := json.Unmarshal(raw, &fb.QueryID); err != nil {
		return nil, &FieldError{Field: "query_id", Message: "must be an integer"}
	}
	if fb.QueryID < 1 {
		return nil, &FieldError{Field: "query_id", Message: "must be greater than or equal to 1"}
	}

	raw, ok = req["is_correct"]
	if !ok || isNull(raw) {
		return nil, &FieldError{Field: "is_correct", Message: "is required"}
	}
	if err := json.Unmarshal(raw, &fb.IsCorrect); err != nil {
		return nil, &FieldError{Field: "is_correct", Message: "must be a boolean"}
	}

	var corrected *string
	if raw, ok := req["corrected_intent"]; ok && !isNull(raw) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, &FieldError{Field: "corrected_intent", Message: "must be a string"}
		}
		if n := utf8.RuneCountInString(s); n > MaxCorrectedIntentLength {
			return nil, &FieldError{
				Field:   "corrected_intent",
				Message: fmt.Sprintf("must be at most %d characters, got %d", MaxCorrectedIntentLength, n),
			}
		}
		s = strings.TrimSpace(s)
		if s != "" {
			corrected = &s
		}
	}

	if !fb.IsCorrect {
		if corrected == nil {
			return nil, &FieldError{Field: "corrected_intent", Message: "is required when is_correct is false"}
		}
		fb.CorrectedIntent = corrected
	}

	return &fb, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
