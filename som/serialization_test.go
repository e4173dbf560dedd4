package som

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	m := trainTwoClusters(t, 7)

	path := filepath.Join(t.TempDir(), "model.json")
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if !loaded.Trained {
		t.Error("loaded model should be marked trained")
	}
	if loaded.Width != m.Width || loaded.Height != m.Height || loaded.DataDim != m.DataDim {
		t.Errorf("geometry changed: (%d, %d, %d) vs (%d, %d, %d)",
			loaded.Width, loaded.Height, loaded.DataDim, m.Width, m.Height, m.DataDim)
	}
	if loaded.Sigma != m.Sigma || loaded.LearningRate != m.LearningRate {
		t.Errorf("hyperparameters changed: sigma %v lr %v vs sigma %v lr %v",
			loaded.Sigma, loaded.LearningRate, m.Sigma, m.LearningRate)
	}
	if loaded.LRDecay != m.LRDecay || loaded.NBDecay != m.NBDecay {
		t.Error("decay kinds changed")
	}

	wa, wb := m.Weights(), loaded.Weights()
	for i := range wa.Data {
		if wa.Data[i] != wb.Data[i] {
			t.Fatalf("weights diverge at %d: %v vs %v", i, wa.Data[i], wb.Data[i])
		}
	}

	// Predictions must carry over unchanged.
	X := twoClusterData()
	before, err := m.Predict(X, 4)
	if err != nil {
		t.Fatal(err)
	}
	after, err := loaded.Predict(X, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("prediction %d changed from %d to %d", i, before[i], after[i])
		}
	}
}

func TestSavedDocumentFields(t *testing.T) {
	m := trainTwoClusters(t, 3)

	path := filepath.Join(t.TempDir(), "model.json")
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"weights", "dimensions", "lrfunc", "nbfunc", "lr", "sigma"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("saved document is missing %q", key)
		}
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"not-json":      `{weights`,
		"bad-dims":      `{"weights": [[1, 2]], "dimensions": [2], "lrfunc": "expo", "nbfunc": "expo", "lr": 0.3, "sigma": 1.0}`,
		"no-weights":    `{"weights": [], "dimensions": [2, 2], "lrfunc": "expo", "nbfunc": "expo", "lr": 0.3, "sigma": 1.0}`,
		"bad-decay":     `{"weights": [[1], [1], [1], [1]], "dimensions": [2, 2], "lrfunc": "cosine", "nbfunc": "expo", "lr": 0.3, "sigma": 1.0}`,
		"row-mismatch":  `{"weights": [[1], [1]], "dimensions": [2, 2], "lrfunc": "expo", "nbfunc": "expo", "lr": 0.3, "sigma": 1.0}`,
		"ragged-row":    `{"weights": [[1, 2], [1], [1, 2], [1, 2]], "dimensions": [2, 2], "lrfunc": "expo", "nbfunc": "expo", "lr": 0.3, "sigma": 1.0}`,
	}

	for name, content := range cases {
		path := filepath.Join(dir, name+".json")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}

	if _, err := Load(filepath.Join(dir, "absent.json")); err == nil {
		t.Error("missing file: expected an error")
	}
}
