package som

import (
	"testing"
)

func TestReceptiveField(t *testing.T) {
	m := trainTwoClusters(t, 5)

	// Alternate between the two clusters so each unit's windows share a
	// common last label.
	X := NewTensorFromSlice([]float32{
		0, 0,
		10, 10,
		0, 0,
		10, 10,
		0, 0,
		10, 10,
	}, 6, 2)
	ids := []string{"a", "b", "a", "b", "a", "b"}

	fields, err := m.ReceptiveField(X, ids, 2, 0.9, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) == 0 {
		t.Fatal("expected at least one receptive field")
	}
	for unit, suffix := range fields {
		if len(suffix) == 0 || len(suffix) > 2 {
			t.Errorf("unit %d: suffix %v has bad length", unit, suffix)
		}
		// The last element is the label winning the unit itself.
		last := suffix[len(suffix)-1]
		if last != "a" && last != "b" {
			t.Errorf("unit %d: unexpected label %q", unit, last)
		}
	}
}

func TestReceptiveFieldErrors(t *testing.T) {
	m := trainTwoClusters(t, 5)
	X := twoClusterData()

	if _, err := m.ReceptiveField(X, []string{"a"}, 2, 0.9, 4); err == nil {
		t.Error("length mismatch should fail")
	}
	ids := make([]string, X.Rows())
	if _, err := m.ReceptiveField(X, ids, 0, 0.9, 4); err == nil {
		t.Error("zero window length should fail")
	}
	if _, err := m.ReceptiveField(nil, nil, 2, 0.9, 4); err == nil {
		t.Error("nil input should fail")
	}
}

func TestInvertProjection(t *testing.T) {
	m := trainTwoClusters(t, 5)

	// Duplicates collapse; labels of first occurrences win.
	X := NewTensorFromSlice([]float32{
		0, 0,
		0, 0,
		10, 10,
		10, 10,
	}, 4, 2)
	ids := []string{"low", "low-dup", "high", "high-dup"}

	match, err := m.InvertProjection(X, ids, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(match) != m.Units() {
		t.Fatalf("got %d labels for %d units", len(match), m.Units())
	}

	seen := map[string]bool{}
	for _, label := range match {
		if label == "low-dup" || label == "high-dup" {
			t.Errorf("duplicate row label %q should never win", label)
		}
		seen[label] = true
	}
	// A map trained on both clusters has units closer to each.
	if !seen["low"] || !seen["high"] {
		t.Errorf("expected both cluster labels among %v", match)
	}
}

func TestInvertProjectionErrors(t *testing.T) {
	m := trainTwoClusters(t, 5)

	if _, err := m.InvertProjection(twoClusterData(), []string{"a"}, 4); err == nil {
		t.Error("length mismatch should fail")
	}
	if _, err := m.InvertProjection(nil, nil, 4); err == nil {
		t.Error("nil input should fail")
	}
}
