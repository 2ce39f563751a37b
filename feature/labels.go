package feature

import (
	"errors"
	"fmt"
)

var ErrFeatureMismatch = errors.New("feature labels do not match")

// Labels tracks a slice of features and their index locations that match up
// with the column ordering of the design matrix.
type Labels struct {
	idx    map[string]int
	labels []Feature
}

func NewLabels(labels []Feature) *Labels {
	idx := make(map[string]int)
	for i := 0; i < len(labels); i++ {
		idx[labels[i].String()] = i
	}
	fl := &Labels{
		labels: labels,
		idx:    idx,
	}
	return fl
}

func (f *Labels) Len() int {
	if f == nil {
		return 0
	}
	return len(f.labels)
}

// Index returns the design matrix column of the named feature
func (f *Labels) Index(name string) (int, bool) {
	if f == nil {
		return -1, false
	}
	if idx, exists := f.idx[name]; exists {
		return idx, exists
	}
	return -1, false
}

// Names returns the string representation of each label in column order
func (f *Labels) Names() []string {
	if f == nil {
		return nil
	}
	names := make([]string, 0, f.Len())
	for _, label := range f.labels {
		names = append(names, label.String())
	}
	return names
}

// Match checks that names lists exactly these labels in the same order. A model trained
// with a different column order would silently mix inputs.
func (f *Labels) Match(names []string) error {
	if len(names) != f.Len() {
		return fmt.Errorf("expected %d features but got %d, %w", f.Len(), len(names), ErrFeatureMismatch)
	}
	for i, name := range names {
		if idx, exists := f.Index(name); !exists || idx != i {
			return fmt.Errorf("feature %q at column %d, %w", name, i, ErrFeatureMismatch)
		}
	}
	return nil
}
