package som

import (
	"encoding/json"
	"fmt"
	"os"
)

// savedModel is the persisted document: weights plus the geometry and
// hyperparameters needed to rebuild the model. Scaler state is
// intentionally absent; saved weights are already in original feature
// units, so a loaded model predicts without it.
type savedModel struct {
	Weights    [][]float64 `json:"weights"`
	Dimensions []int       `json:"dimensions"`
	LRFunc     string      `json:"lrfunc"`
	NBFunc     string      `json:"nbfunc"`
	LR         float64     `json:"lr"`
	Sigma      float64     `json:"sigma"`
}

// Save writes the model to a JSON file.
func (s *Som) Save(path string) error {
	doc := savedModel{
		Weights:    make([][]float64, s.units),
		Dimensions: []int{s.Width, s.Height},
		LRFunc:     s.LRDecay.String(),
		NBFunc:     s.NBDecay.String(),
		LR:         s.LearningRate,
		Sigma:      s.Sigma,
	}
	for u := 0; u < s.units; u++ {
		row := s.weights.Row(u)
		out := make([]float64, len(row))
		for j, v := range row {
			out[j] = float64(v)
		}
		doc.Weights[u] = out
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	return nil
}

// Load reads a model saved with Save. The result is marked trained and
// carries an un-fit scaler: a later Fit call re-fits scaling from its
// own data.
func Load(path string) (*Som, error) {
	return LoadWithEngine(path, nil)
}

// LoadWithEngine is Load with an explicit engine constructor, for
// running inference on a non-default backend.
func LoadWithEngine(path string, newEngine func() Engine) (*Som, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}

	var doc savedModel
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	if len(doc.Dimensions) != 2 {
		return nil, fmt.Errorf("model dimensions must have 2 entries, got %d", len(doc.Dimensions))
	}
	if len(doc.Weights) == 0 || len(doc.Weights[0]) == 0 {
		return nil, fmt.Errorf("model has no weights")
	}

	lrKind, err := ParseDecayKind(doc.LRFunc)
	if err != nil {
		return nil, err
	}
	nbKind, err := ParseDecayKind(doc.NBFunc)
	if err != nil {
		return nil, err
	}

	width, height := doc.Dimensions[0], doc.Dimensions[1]
	dataDim := len(doc.Weights[0])

	s, err := New(Config{
		Width:        width,
		Height:       height,
		DataDim:      dataDim,
		LearningRate: doc.LR,
		Sigma:        doc.Sigma,
		LRDecay:      lrKind,
		NBDecay:      nbKind,
		NewEngine:    newEngine,
	})
	if err != nil {
		return nil, err
	}
	if len(doc.Weights) != s.units {
		return nil, fmt.Errorf("model has %d weight rows, geometry needs %d", len(doc.Weights), s.units)
	}

	for u, row := range doc.Weights {
		if len(row) != dataDim {
			return nil, fmt.Errorf("weight row %d has %d features, expected %d", u, len(row), dataDim)
		}
		out := s.weights.Row(u)
		for j, v := range row {
			out[j] = float32(v)
		}
	}
	s.Trained = true
	return s, nil
}
