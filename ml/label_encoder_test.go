package ml

import (
	"errors"
	"reflect"
	"testing"
)

func TestLabelEncoderRoundTrip(t *testing.T) {
	labels := []string{"Yes", "No", "No", "Yes", "No"}

	encoder := &LabelEncoder{}
	codes, err := encoder.FitTransform(labels)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"No", "Yes"}; !reflect.DeepEqual(encoder.Classes(), want) {
		t.Fatalf("expected classes %v, got %v", want, encoder.Classes())
	}
	if want := []int{1, 0, 0, 1, 0}; !reflect.DeepEqual(codes, want) {
		t.Fatalf("expected codes %v, got %v", want, codes)
	}

	decoded, err := encoder.InverseTransform(codes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(decoded, labels) {
		t.Fatalf("round trip mismatch: %v vs %v", decoded, labels)
	}
}

func TestLabelEncoderDistinctCodes(t *testing.T) {
	encoder := &LabelEncoder{}
	if err := encoder.Fit([]string{"flu", "covid", "healthy", "covid", "malaria"}); err != nil {
		t.Fatal(err)
	}
	codes, err := encoder.Transform(encoder.Classes())
	if err != nil {
		t.Fatal(err)
	}
	seen := map[int]bool{}
	for i, code := range codes {
		if code != i {
			t.Fatalf("class %d encoded as %d", i, code)
		}
		if seen[code] {
			t.Fatalf("code %d reused", code)
		}
		seen[code] = true
	}
}

func TestLabelEncoderErrors(t *testing.T) {
	encoder := &LabelEncoder{}
	if _, err := encoder.Transform([]string{"No"}); !errors.Is(err, ErrNotTrained) {
		t.Fatalf("expected ErrNotTrained, got %v", err)
	}
	if err := encoder.Fit(nil); err == nil {
		t.Fatal("expected error for empty labels")
	}
	if err := encoder.Fit([]string{"No", "Yes"}); err != nil {
		t.Fatal(err)
	}
	if _, err := encoder.Transform([]string{"Maybe"}); !errors.Is(err, ErrUnseenLabel) {
		t.Fatalf("expected ErrUnseenLabel, got %v", err)
	}
	if _, err := encoder.InverseTransform([]int{2}); !errors.Is(err, ErrUnknownCode) {
		t.Fatalf("expected ErrUnknownCode, got %v", err)
	}
}
