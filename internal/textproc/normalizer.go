package textproc

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// templatePattern matches {{...}} placeholders left over from message
// templates. Non-greedy and single-line, so "{{a}} x {{b}}" keeps " x ".
var templatePattern = regexp.MustCompile(`\{\{.*?\}\}`)

// Normalizer turns raw user text into the cleaned, space-joined token string
// the lemmatizer consumes.
type Normalizer struct {
	tokenizer Tokenizer
	stopwords map[string]struct{}
}

func NewNormalizer(tokenizer Tokenizer) *Normalizer {
	return &Normalizer{
		tokenizer: tokenizer,
		stopwords: StopwordSet(),
	}
}

// Normalize removes template spans, tokenizes, lowercases, drops any token
// that is not purely alphabetic and drops stopwords. The survivors are
// joined with single spaces in their original order. The result may be
// empty.
func (n *Normalizer) Normalize(text string) (string, error) {
	text = norm.NFC.String(text)
	text = StripTemplates(text)

	tokens, err := n.tokenizer.Tokenize(text)
	if err != nil {
		return "", fmt.Errorf("normalize: %w", err)
	}

	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.ToLower(tok)
		if !isAlpha(tok) {
			continue
		}
		if _, stop := n.stopwords[tok]; stop {
			continue
		}
		kept = append(kept, tok)
	}

	return strings.Join(kept, " "), nil
}

// StripTemplates removes every {{...}} span from text.
func StripTemplates(text string) string {
	return templatePattern.ReplaceAllString(text, "")
}

// isAlpha reports whether s is non-empty and made only of letters.
func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
