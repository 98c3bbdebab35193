// Package vocab holds the immutable lookup tables the classifier was trained
// with: the token vocabulary and the class-index to intent label mapping.
// Both are loaded once at startup and shared read-only by every request.
package vocab

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// UnknownToken is the reserved vocabulary entry for out-of-vocabulary lemmas.
const UnknownToken = "<UNK>"

var ErrMissingUnknown = errors.New("vocab: missing reserved " + UnknownToken + " entry")

// Vocabulary maps lemmas to the integer indices the model's embedding layer
// expects.
type Vocabulary struct {
	tokenToID map[string]int64
	unkID     int64
	maxID     int64
}

// Load reads a JSON object of token to index from path.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}

	var raw map[string]int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("vocab: invalid JSON in %s: %w", path, err)
	}

	return New(raw)
}

// New validates and wraps a token to index mapping. The map is copied.
func New(mapping map[string]int64) (*Vocabulary, error) {
	unk, ok := mapping[UnknownToken]
	if !ok {
		return nil, ErrMissingUnknown
	}

	v := &Vocabulary{
		tokenToID: make(map[string]int64, len(mapping)),
		unkID:     unk,
	}
	for tok, id := range mapping {
		if id < 0 {
			return nil, fmt.Errorf("vocab: negative index %d for token %q", id, tok)
		}
		if id > v.maxID {
			v.maxID = id
		}
		v.tokenToID[tok] = id
	}
	return v, nil
}

// Lookup returns the index of token, or the <UNK> index if it is absent.
func (v *Vocabulary) Lookup(token string) int64 {
	if id, ok := v.tokenToID[token]; ok {
		return id
	}
	return v.unkID
}

// Encode maps lemmas to indices and wraps them in a single-row batch. An
// empty lemma sequence encodes as one <UNK>, since the recurrent model
// cannot score a zero-length sequence.
func (v *Vocabulary) Encode(lemmas []string) [][]int64 {
	if len(lemmas) == 0 {
		return [][]int64{{v.unkID}}
	}

	ids := make([]int64, len(lemmas))
	for i, lemma := range lemmas {
		ids[i] = v.Lookup(lemma)
	}
	return [][]int64{ids}
}

func (v *Vocabulary) UnknownID() int64 {
	return v.unkID
}

// MaxID is the largest index in the vocabulary; every encoded index is <= MaxID.
func (v *Vocabulary) MaxID() int64 {
	return v.maxID
}

func (v *Vocabulary) Size() int {
	return len(v.tokenToID)
}
