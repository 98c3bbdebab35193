package textproc

import (
	"fmt"
	"strings"
)

// POS is the coarse part-of-speech class used to pick lemma rules.
type POS int

const (
	POSNone POS = iota
	POSNoun
	POSVerb
	POSAdjective
	POSAdverb
)

func (p POS) String() string {
	switch p {
	case POSNoun:
		return "noun"
	case POSVerb:
		return "verb"
	case POSAdjective:
		return "adjective"
	case POSAdverb:
		return "adverb"
	default:
		return "none"
	}
}

// CoarsePOS maps a Penn Treebank tag to its coarse class. Tags outside the
// four open classes map to POSNone.
func CoarsePOS(tag string) POS {
	switch {
	case strings.HasPrefix(tag, "J"):
		return POSAdjective
	case strings.HasPrefix(tag, "V"):
		return POSVerb
	case strings.HasPrefix(tag, "N"):
		return POSNoun
	case strings.HasPrefix(tag, "R"):
		return POSAdverb
	default:
		return POSNone
	}
}

// Lexicon knows which dictionary base forms an inflected word can have.
type Lexicon interface {
	// Lemmas returns the base forms recorded for word, or nil if unknown.
	Lemmas(word string) []string
}

type suffixRule struct {
	suffix      string
	replacement string
}

// Suffix detachment rules per class, tried in order.
var detachmentRules = map[POS][]suffixRule{
	POSNoun: {
		{"s", ""}, {"ses", "s"}, {"xes", "x"}, {"zes", "z"},
		{"ches", "ch"}, {"shes", "sh"}, {"men", "man"}, {"ies", "y"},
	},
	POSVerb: {
		{"s", ""}, {"ies", "y"}, {"es", "e"}, {"es", ""},
		{"ed", "e"}, {"ed", ""}, {"ing", "e"}, {"ing", ""},
	},
	POSAdjective: {
		{"er", ""}, {"est", ""}, {"er", "e"}, {"est", "e"},
	},
	POSAdverb: nil,
}

// Irregular forms the suffix rules cannot reach.
var irregularForms = map[POS]map[string]string{
	POSNoun: {
		"children": "child", "men": "man", "women": "woman", "people": "person",
		"feet": "foot", "teeth": "tooth", "mice": "mouse", "geese": "goose",
		"data": "datum", "criteria": "criterion", "analyses": "analysis",
	},
	POSVerb: {
		"was": "be", "were": "be", "is": "be", "are": "be", "been": "be", "am": "be",
		"has": "have", "had": "have", "did": "do", "done": "do", "does": "do",
		"went": "go", "gone": "go", "made": "make", "paid": "pay", "sent": "send",
		"got": "get", "gotten": "get", "bought": "buy", "saw": "see", "seen": "see",
		"took": "take", "taken": "take", "gave": "give", "given": "give",
		"left": "leave", "lost": "lose", "told": "tell", "said": "say",
		"received": "receive", "forgot": "forget", "forgotten": "forget",
		"found": "find", "thought": "think", "came": "come", "ran": "run",
		"wrote": "write", "written": "write", "knew": "know", "known": "know",
		"spent": "spend", "chose": "choose", "chosen": "choose",
	},
	POSAdjective: {
		"better": "good", "best": "good", "worse": "bad", "worst": "bad",
		"more": "much", "most": "much", "less": "little", "least": "little",
		"further": "far", "farther": "far",
	},
	POSAdverb: {
		"better": "well", "best": "well", "worse": "badly", "worst": "badly",
	},
}

// Lemmatizer POS-tags cleaned text and reduces each token to its base form.
type Lemmatizer struct {
	tagger  Tagger
	lexicon Lexicon
}

func NewLemmatizer(tagger Tagger, lexicon Lexicon) *Lemmatizer {
	return &Lemmatizer{tagger: tagger, lexicon: lexicon}
}

// Lemmatize tokenizes and tags the normalizer's output and returns one
// lemma per token. Empty input yields an empty slice.
func (l *Lemmatizer) Lemmatize(cleaned string) ([]string, error) {
	if strings.TrimSpace(cleaned) == "" {
		return []string{}, nil
	}

	tagged, err := l.tagger.Tag(cleaned)
	if err != nil {
		return nil, fmt.Errorf("lemmatize: %w", err)
	}

	lemmas := make([]string, 0, len(tagged))
	for _, tok := range tagged {
		lemmas = append(lemmas, l.Lemma(tok.Text, CoarsePOS(tok.Tag)))
	}
	return lemmas, nil
}

// Lemma returns the base form of word for the given class. Without a class
// hint the word is treated as a noun. Words with no known base form are
// returned unchanged.
func (l *Lemmatizer) Lemma(word string, pos POS) string {
	if pos == POSNone {
		pos = POSNoun
	}

	if base, ok := irregularForms[pos][word]; ok {
		return base
	}

	known := l.lexicon.Lemmas(word)
	if len(known) == 0 {
		return word
	}

	for _, candidate := range candidates(word, pos) {
		if contains(known, candidate) {
			return candidate
		}
	}

	return word
}

// candidates lists the base forms the suffix rules derive for word, in
// rule order. Verbs and adjectives also get the undoubled stem, so that
// "running" yields "run" and "bigger" yields "big".
func candidates(word string, pos POS) []string {
	var out []string
	for _, rule := range detachmentRules[pos] {
		if !strings.HasSuffix(word, rule.suffix) || len(word) <= len(rule.suffix) {
			continue
		}
		stem := word[:len(word)-len(rule.suffix)]
		out = append(out, stem+rule.replacement)

		if rule.replacement == "" && (pos == POSVerb || pos == POSAdjective) && rule.suffix != "s" {
			if undoubled, ok := undouble(stem); ok {
				out = append(out, undoubled)
			}
		}
	}
	return out
}

func undouble(stem string) (string, bool) {
	n := len(stem)
	if n < 3 || stem[n-1] != stem[n-2] {
		return "", false
	}
	if strings.IndexByte("aeiou", stem[n-1]) >= 0 {
		return "", false
	}
	return stem[:n-1], true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
