package som

import (
	"testing"
)

// sineWave returns a 1-D sequence oscillating between a few levels, a
// minimal signal with temporal structure.
func sineWave(n int) *Tensor {
	levels := []float32{0, 0.5, 1, 0.5, 0, -0.5, -1, -0.5}
	X := NewTensor(n, 1)
	for i := 0; i < n; i++ {
		X.Row(i)[0] = levels[i%len(levels)]
	}
	return X
}

func TestNewRecursiveValidation(t *testing.T) {
	base := Config{Width: 3, Height: 3, DataDim: 1, LearningRate: 0.1}

	if _, err := NewRecursive(RecursiveConfig{Config: base, Alpha: 0, Beta: 1}); err == nil {
		t.Error("zero alpha should fail")
	}
	if _, err := NewRecursive(RecursiveConfig{Config: base, Alpha: 1, Beta: -1}); err == nil {
		t.Error("negative beta should fail")
	}
	if _, err := NewRecursive(RecursiveConfig{Config: Config{Width: 0, Height: 3, DataDim: 1}, Alpha: 1, Beta: 1}); err == nil {
		t.Error("bad geometry should fail")
	}

	r, err := NewRecursive(RecursiveConfig{Config: base, Alpha: 2, Beta: 1})
	if err != nil {
		t.Fatal(err)
	}
	if r.ContextWeights.Rows() != 9 || r.ContextWeights.Cols() != 9 {
		t.Errorf("context weights shape %v, expected (9, 9)", r.ContextWeights.Shape)
	}
}

func TestRecursiveFit(t *testing.T) {
	r, err := NewRecursive(RecursiveConfig{
		Config: Config{Width: 3, Height: 3, DataDim: 1, LearningRate: 0.1},
		Alpha:  2,
		Beta:   1,
	})
	if err != nil {
		t.Fatal(err)
	}

	X := sineWave(200)
	if err := r.Fit(X, 10, 1, nil); err != nil {
		t.Fatal(err)
	}
	if !r.Trained {
		t.Fatal("model should be trained")
	}

	bmus, err := r.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	if len(bmus) != 200 {
		t.Fatalf("got %d predictions for 200 rows", len(bmus))
	}
	seen := map[int]bool{}
	for _, b := range bmus {
		if b < 0 || b >= r.Units() {
			t.Fatalf("BMU %d out of range", b)
		}
		seen[b] = true
	}
	if len(seen) < 2 {
		t.Error("a periodic signal should activate more than one unit")
	}
}

func TestRecursiveFitErrors(t *testing.T) {
	r, err := NewRecursive(RecursiveConfig{
		Config: Config{Width: 2, Height: 2, DataDim: 1, LearningRate: 0.1},
		Alpha:  1,
		Beta:   1,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Fit(NewTensor(10, 2), 5, 1, nil); err == nil {
		t.Error("feature mismatch should fail")
	}
	if err := r.Fit(sineWave(10), 0, 1, nil); err == nil {
		t.Error("zero effective epochs should fail")
	}
}

func TestRecursivePredictCarriesContext(t *testing.T) {
	r, err := NewRecursive(RecursiveConfig{
		Config: Config{Width: 2, Height: 2, DataDim: 1, LearningRate: 0.1},
		Alpha:  2,
		Beta:   1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Fit(sineWave(160), 8, 3, nil); err != nil {
		t.Fatal(err)
	}

	// Same value, different history: the context term may pick a
	// different winner, but lengths and determinism must hold.
	X := NewTensorFromSlice([]float32{0, 1, 0, -1, 0}, 5, 1)
	a, err := r.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("prediction %d not deterministic: %d vs %d", i, a[i], b[i])
		}
	}
}
