package vocab

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// LabelMapping translates a model output position into an intent name.
type LabelMapping struct {
	labels []string
}

// LoadLabels reads the label artifact at path. It accepts either a JSON
// array of labels or a JSON object keyed by class index ("0", "1", ...);
// object keys must cover 0..n-1 exactly.
func LoadLabels(path string) (*LabelMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		return NewLabels(list)
	}

	var indexed map[string]string
	if err := json.Unmarshal(data, &indexed); err != nil {
		return nil, fmt.Errorf("labels: %s is neither a JSON array nor an index object: %w", path, err)
	}

	keys := make([]int, 0, len(indexed))
	for k := range indexed {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("labels: invalid class index %q", k)
		}
		keys = append(keys, i)
	}
	sort.Ints(keys)

	list = make([]string, len(keys))
	for pos, i := range keys {
		if i != pos {
			return nil, fmt.Errorf("labels: class indices are not contiguous, missing %d", pos)
		}
		list[pos] = indexed[strconv.Itoa(i)]
	}
	return NewLabels(list)
}

// NewLabels validates and wraps an ordered label list. The slice is copied.
func NewLabels(labels []string) (*LabelMapping, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels: mapping is empty")
	}
	for i, l := range labels {
		if l == "" {
			return nil, fmt.Errorf("labels: empty label at index %d", i)
		}
	}
	out := make([]string, len(labels))
	copy(out, labels)
	return &LabelMapping{labels: out}, nil
}

// Label returns the intent for class index i.
func (m *LabelMapping) Label(i int) (string, error) {
	if i < 0 || i >= len(m.labels) {
		return "", fmt.Errorf("labels: class index %d out of range [0,%d)", i, len(m.labels))
	}
	return m.labels[i], nil
}

func (m *LabelMapping) Len() int {
	return len(m.labels)
}

// Labels returns a copy of the ordered label list.
func (m *LabelMapping) Labels() []string {
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}
