package ml

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrUnseenLabel = errors.New("unseen label")
	ErrUnknownCode = errors.New("unknown class code")
)

// LabelEncoder maps class names to 0..n-1 in lexicographic order.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

func (e *LabelEncoder) Fit(labels []string) error {
	if len(labels) == 0 {
		return errors.New("labels is empty")
	}
	classes := slices.Clone(labels)
	slices.Sort(classes)
	classes = slices.Compact(classes)

	e.classes = classes
	e.index = make(map[string]int, len(classes))
	for i, class := range classes {
		e.index[class] = i
	}
	return nil
}

func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	if e.index == nil {
		return nil, ErrNotTrained
	}
	codes := make([]int, len(labels))
	for i, label := range labels {
		code, ok := e.index[label]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnseenLabel, label)
		}
		codes[i] = code
	}
	return codes, nil
}

func (e *LabelEncoder) FitTransform(labels []string) ([]int, error) {
	if err := e.Fit(labels); err != nil {
		return nil, err
	}
	return e.Transform(labels)
}

func (e *LabelEncoder) InverseTransform(codes []int) ([]string, error) {
	if e.index == nil {
		return nil, ErrNotTrained
	}
	labels := make([]string, len(codes))
	for i, code := range codes {
		if code < 0 || code >= len(e.classes) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownCode, code)
		}
		labels[i] = e.classes[code]
	}
	return labels, nil
}

func (e *LabelEncoder) Classes() []string {
	return slices.Clone(e.classes)
}
