package textproc

import (
	"fmt"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

// GolemLexicon answers base-form lookups from golem's English dictionary.
// The dictionary is loaded once and only read afterwards.
type GolemLexicon struct {
	lemmatizer *golem.Lemmatizer
}

func NewGolemLexicon() (*GolemLexicon, error) {
	l, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("lexicon: failed to load english dictionary: %w", err)
	}
	return &GolemLexicon{lemmatizer: l}, nil
}

func (g *GolemLexicon) Lemmas(word string) []string {
	if !g.lemmatizer.InDict(word) {
		return nil
	}
	return g.lemmatizer.Lemmas(word)
}

// MapLexicon is a fixed in-memory lexicon, used by tests and tooling that
// must not load the full dictionary.
type MapLexicon map[string][]string

func (m MapLexicon) Lemmas(word string) []string {
	return m[word]
}
