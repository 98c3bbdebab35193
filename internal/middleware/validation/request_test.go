package validation

import (
	"strings"
	"testing"
)

func TestPredictText(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
		wantErr     bool
	}{
		{"plain text", "text/plain", "I want to cancel my order", "I want to cancel my order", false},
		{"no content type", "", "where is my package", "where is my package", false},
		{"json text", "application/json", `{"text":"track my order"}`, "track my order", false},
		{"json with charset", "application/json; charset=utf-8", `{"text":"hi"}`, "hi", false},
		{"whitespace only is valid", "text/plain", "   ", "   ", false},
		{"empty plain", "text/plain", "", "", true},
		{"json missing text", "application/json", `{"query":"x"}`, "", true},
		{"json number text", "application/json", `{"text":42}`, "", true},
		{"json null text", "application/json", `{"text":null}`, "", true},
		{"json empty text", "application/json", `{"text":""}`, "", true},
		{"json array", "application/json", `["text"]`, "", true},
		{"malformed json", "application/json", `{"text":`, "", true},
		{"invalid utf8", "text/plain", "\xff\xfe", "", true},
		{"only NUL plain", "text/plain", "\x00\x00", "", true},
		{"only NUL json", "application/json", `{"text":"\u0000"}`, "", true},
		{"NUL stripped", "text/plain", "can\x00cel", "cancel", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ferr := PredictText(tt.contentType, []byte(tt.body))
			if tt.wantErr {
				if ferr == nil {
					t.Fatalf("expected error, got %q", got)
				}
				if ferr.Field != "text" {
					t.Errorf("error field = %q, want text", ferr.Field)
				}
				return
			}
			if ferr != nil {
				t.Fatalf("unexpected error: %v", ferr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFeedback(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
		check     func(t *testing.T, fb *Feedback)
	}{
		{
			name: "correct prediction",
			body: `{"query_id": 42, "is_correct": true}`,
			check: func(t *testing.T, fb *Feedback) {
				if fb.QueryID != 42 || !fb.IsCorrect || fb.CorrectedIntent != nil {
					t.Errorf("got %+v", fb)
				}
			},
		},
		{
			name: "incorrect with correction",
			body: `{"query_id": 42, "is_correct": false, "corrected_intent": "track_order"}`,
			check: func(t *testing.T, fb *Feedback) {
				if fb.IsCorrect || fb.CorrectedIntent == nil || *fb.CorrectedIntent != "track_order" {
					t.Errorf("got %+v", fb)
				}
			},
		},
		{
			name: "correction ignored when correct",
			body: `{"query_id": 1, "is_correct": true, "corrected_intent": "other"}`,
			check: func(t *testing.T, fb *Feedback) {
				if fb.CorrectedIntent != nil {
					t.Errorf("CorrectedIntent = %q, want nil", *fb.CorrectedIntent)
				}
			},
		},
		{
			name: "correction at length limit",
			body: `{"query_id": 1, "is_correct": false, "corrected_intent": "` + strings.Repeat("a", 100) + `"}`,
			check: func(t *testing.T, fb *Feedback) {
				if len(*fb.CorrectedIntent) != 100 {
					t.Errorf("length = %d", len(*fb.CorrectedIntent))
				}
			},
		},
		{name: "incorrect without correction", body: `{"query_id": 42, "is_correct": false}`, wantField: "corrected_intent"},
		{name: "incorrect with null correction", body: `{"query_id": 42, "is_correct": false, "corrected_intent": null}`, wantField: "corrected_intent"},
		{name: "incorrect with blank correction", body: `{"query_id": 42, "is_correct": false, "corrected_intent": "  "}`, wantField: "corrected_intent"},
		{name: "correction too long", body: `{"query_id": 1, "is_correct": false, "corrected_intent": "` + strings.Repeat("a", 101) + `"}`, wantField: "corrected_intent"},
		{name: "correction not string", body: `{"query_id": 1, "is_correct": false, "corrected_intent": 5}`, wantField: "corrected_intent"},
		{name: "zero query id", body: `{"query_id": 0, "is_correct": true}`, wantField: "query_id"},
		{name: "negative query id", body: `{"query_id": -3, "is_correct": true}`, wantField: "query_id"},
		{name: "fractional query id", body: `{"query_id": 1.5, "is_correct": true}`, wantField: "query_id"},
		{name: "string query id", body: `{"query_id": "7", "is_correct": true}`, wantField: "query_id"},
		{name: "missing query id", body: `{"is_correct": true}`, wantField: "query_id"},
		{name: "missing is_correct", body: `{"query_id": 1}`, wantField: "is_correct"},
		{name: "string is_correct", body: `{"query_id": 1, "is_correct": "yes"}`, wantField: "is_correct"},
		{name: "not an object", body: `[1, true]`, wantField: "body"},
		{name: "null body", body: `null`, wantField: "body"},
		{name: "malformed", body: `{"query_id": `, wantField: "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, ferr := ParseFeedback([]byte(tt.body))
			if tt.wantField != "" {
				if ferr == nil {
					t.Fatalf("expected error on %s, got %+v", tt.wantField, fb)
				}
				if ferr.Field != tt.wantField {
					t.Errorf("error field = %q (%v), want %q", ferr.Field, ferr, tt.wantField)
				}
				if !strings.Contains(ferr.Error(), tt.wantField) {
					t.Errorf("message %q does not name the field", ferr.Error())
				}
				return
			}
			if ferr != nil {
				t.Fatalf("unexpected error: %v", ferr)
			}
			tt.check(t, fb)
		})
	}
}
