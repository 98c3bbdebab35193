package textproc

import (
	"errors"
	"strings"
	"testing"
	"unicode"
)

// splitTokenizer splits on whitespace and peels punctuation off both ends
// of each word, which is enough to exercise the filtering rules without
// depending on a statistical tokenizer.
type splitTokenizer struct {
	err error
}

func (s splitTokenizer) Tokenize(text string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []string
	for _, word := range strings.Fields(text) {
		var tail []string
		for len(word) > 0 && unicode.IsPunct(rune(word[0])) {
			out = append(out, word[:1])
			word = word[1:]
		}
		for len(word) > 0 && unicode.IsPunct(rune(word[len(word)-1])) {
			tail = append([]string{word[len(word)-1:]}, tail...)
			word = word[:len(word)-1]
		}
		if word != "" {
			out = append(out, word)
		}
		out = append(out, tail...)
	}
	return out, nil
}

func TestNormalize(t *testing.T) {
	n := NewNormalizer(splitTokenizer{})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "template spans and stopwords",
			in:   "Hello {{name}}, I want to cancel my SUBSCRIPTION!!",
			want: "hello want cancel subscription",
		},
		{
			name: "several templates",
			in:   "{{Order Number}} refund {{Currency Symbol}}{{Refund Amount}} please",
			want: "refund please",
		},
		{
			name: "template at end of text",
			in:   "track package {{ Tracking Number }}",
			want: "track package",
		},
		{
			name: "mixed tokens dropped whole",
			in:   "order abc123 shipped 2x faster",
			want: "order shipped faster",
		},
		{
			name: "only stopwords numbers punctuation",
			in:   "I am 42 ... and it is !!",
			want: "",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "non-ascii letters kept",
			in:   "Café résumé",
			want: "café résumé",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeComposesAccents(t *testing.T) {
	n := NewNormalizer(splitTokenizer{})
	// "e" followed by a combining acute accent.
	got, err := n.Normalize("cafe\u0301")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "caf\u00e9" {
		t.Errorf("got %q, want precomposed form", got)
	}
}

func TestNormalizeTokenizerError(t *testing.T) {
	boom := errors.New("tokenizer exploded")
	n := NewNormalizer(splitTokenizer{err: boom})
	if _, err := n.Normalize("anything"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped tokenizer error", err)
	}
}

func TestStripTemplates(t *testing.T) {
	tests := map[string]string{
		"{{a}}":               "",
		"x {{a}} y {{b}} z":   "x  y  z",
		"no templates":        "no templates",
		"{{a}}{{b}}":          "",
		"single {brace}":      "single {brace}",
		"open {{ only":        "open {{ only",
		"{{first}} and {{}}.": " and .",
	}
	for in, want := range tests {
		if got := StripTemplates(in); got != want {
			t.Errorf("StripTemplates(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStopwordSet(t *testing.T) {
	set := StopwordSet()
	if len(set) != 179 {
		t.Fatalf("stopword count = %d, want 179", len(set))
	}
	for _, w := range []string{"i", "my", "to", "the", "wouldn't"} {
		if _, ok := set[w]; !ok {
			t.Errorf("expected %q to be a stopword", w)
		}
	}
	for _, w := range []string{"cancel", "order", "refund"} {
		if _, ok := set[w]; ok {
			t.Errorf("%q must not be a stopword", w)
		}
	}
}

func TestNormalizeWithProse(t *testing.T) {
	n := NewNormalizer(newTestTagger(t))

	got, err := n.Normalize("Hello {{name}}, I want to cancel my SUBSCRIPTION!!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	words := strings.Fields(got)
	for _, want := range []string{"hello", "want", "cancel", "subscription"} {
		if !contains(words, want) {
			t.Errorf("normalized %q missing %q", got, want)
		}
	}
	for _, banned := range []string{"name", "i", "to", "my"} {
		if contains(words, banned) {
			t.Errorf("normalized %q should not contain %q", got, banned)
		}
	}
}
