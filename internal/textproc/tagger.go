package textproc

import (
	"fmt"

	"github.com/jdkato/prose/v2"
)

// Tokenizer splits text into word tokens.
type Tokenizer interface {
	Tokenize(text string) ([]string, error)
}

// TaggedToken is a token with its Penn Treebank part-of-speech tag.
type TaggedToken struct {
	Text string
	Tag  string
}

// Tagger tokenizes text and assigns a part-of-speech tag to each token.
type Tagger interface {
	Tag(text string) ([]TaggedToken, error)
}

// ProseTagger uses prose's Treebank-style tokenizer and averaged perceptron
// tagger. The perceptron model is decoded once here and only read
// afterwards, so one value serves all requests.
type ProseTagger struct {
	model *prose.Model
}

func NewProseTagger() (*ProseTagger, error) {
	doc, err := prose.NewDocument("",
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("pos tag: failed to load tagger model: %w", err)
	}
	return &ProseTagger{model: doc.Model}, nil
}

func (p *ProseTagger) Tokenize(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}

	doc, err := prose.NewDocument(text,
		prose.UsingModel(p.model),
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}

	toks := doc.Tokens()
	out := make([]string, 0, len(toks))
	for _, tok := range toks {
		out = append(out, tok.Text)
	}
	return out, nil
}

func (p *ProseTagger) Tag(text string) ([]TaggedToken, error) {
	if text == "" {
		return nil, nil
	}

	doc, err := prose.NewDocument(text,
		prose.UsingModel(p.model),
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("pos tag: %w", err)
	}

	toks := doc.Tokens()
	out := make([]TaggedToken, 0, len(toks))
	for _, tok := range toks {
		out = append(out, TaggedToken{Text: tok.Text, Tag: tok.Tag})
	}
	return out, nil
}
