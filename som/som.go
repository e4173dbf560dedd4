package som

import (
	"fmt"
	"math/rand"
)

// Config describes the fixed properties of a map. Geometry and data
// dimensionality never change over the lifetime of a model.
type Config struct {
	Width   int
	Height  int
	DataDim int

	// LearningRate is the initial learning rate.
	LearningRate float64

	// Sigma is the initial neighborhood radius. Zero selects
	// max(Width, Height)/2 + 0.01; the constant keeps the radius off
	// zero on tiny maps.
	Sigma float64

	// LRDecay and NBDecay select the annealing schedules for the
	// learning rate and the neighborhood radius. Zero value is DecayExpo.
	LRDecay DecayKind
	NBDecay DecayKind

	// Extremum selects the BMU rule. Zero value is ExtremumMin.
	Extremum Extremum

	// NewEngine constructs the compute engine for a run. Nil selects
	// the CPU engine. Every Fit and Predict call gets its own engine
	// instance, so Predict calls on a trained model may run concurrently.
	NewEngine func() Engine
}

// FitConfig holds the per-run training parameters.
type FitConfig struct {
	// NumEpochs is the number of full passes over the data.
	NumEpochs int

	// InitPCA seeds the weights from the top-2 principal components of
	// the data instead of uniform-random values. CPU engine only.
	InitPCA bool

	// TotalUpdates is the number of decay events for the learning rate
	// and neighborhood radius over the whole run.
	TotalUpdates int

	// StopLRUpdates and StopNBUpdates are fractions of the run after
	// which the corresponding parameter stops decaying.
	StopLRUpdates float64
	StopNBUpdates float64

	// BatchSize is capped at the number of samples.
	BatchSize int

	// Seed drives the run's private random source (shuffling and
	// random weight seeding).
	Seed int64

	// Observer, when non-nil, receives progress events.
	Observer Observer
}

// DefaultFitConfig mirrors the historical defaults.
func DefaultFitConfig() FitConfig {
	return FitConfig{
		NumEpochs:     10,
		InitPCA:       true,
		TotalUpdates:  50,
		StopLRUpdates: 1.0,
		StopNBUpdates: 1.0,
		BatchSize:     100,
		Seed:          44,
	}
}

// Som is a batched Self-Organizing Map.
//
// A model instance is not safe for concurrent Fit calls; a Fit in
// progress owns the weights exclusively. Predict and QuantError are
// read-only and may run concurrently with each other once trained.
type Som struct {
	Width   int
	Height  int
	DataDim int

	LearningRate float64
	Sigma        float64
	LRDecay      DecayKind
	NBDecay      DecayKind
	Extremum     Extremum

	// Trained is false until a Fit call completes. It gates nothing;
	// it documents readiness.
	Trained bool

	units     int
	weights   *Tensor // (units, dim), in original feature units once trained
	scaler    *Scaler
	newEngine func() Engine
}

// New creates an untrained map with zero-initialized weights.
func New(cfg Config) (*Som, error) {
	if cfg.Width < 1 || cfg.Height < 1 {
		return nil, fmt.Errorf("map dimensions must be positive, got (%d, %d)", cfg.Width, cfg.Height)
	}
	if cfg.DataDim < 1 {
		return nil, fmt.Errorf("data dimensionality must be positive, got %d", cfg.DataDim)
	}

	sigma := cfg.Sigma
	if sigma == 0 {
		m := cfg.Width
		if cfg.Height > m {
			m = cfg.Height
		}
		sigma = float64(m)/2.0 + 0.01
	}

	newEngine := cfg.NewEngine
	if newEngine == nil {
		newEngine = func() Engine { return NewCPUEngine() }
	}

	units := cfg.Width * cfg.Height
	return &Som{
		Width:        cfg.Width,
		Height:       cfg.Height,
		DataDim:      cfg.DataDim,
		LearningRate: cfg.LearningRate,
		Sigma:        sigma,
		LRDecay:      cfg.LRDecay,
		NBDecay:      cfg.NBDecay,
		Extremum:     cfg.Extremum,
		units:        units,
		weights:      NewTensor(units, cfg.DataDim),
		scaler:       NewScaler(),
		newEngine:    newEngine,
	}, nil
}

// Units returns the number of map units.
func (s *Som) Units() int { return s.units }

// checkInput validates shape before any mutation happens.
func (s *Som) checkInput(X *Tensor) error {
	if X == nil || len(X.Shape) != 2 {
		return fmt.Errorf("input data must be a 2-D matrix")
	}
	if X.Shape[0] < 1 {
		return fmt.Errorf("input data must contain at least one sample")
	}
	if X.Shape[1] != s.DataDim {
		return fmt.Errorf("input feature size %d does not match data dimensionality %d",
			X.Shape[1], s.DataDim)
	}
	return nil
}

// Fit trains the map on X (n x DataDim).
//
// The data is scaled to zero mean and unit variance, the weights are
// seeded (PCA or random), and the map is trained for NumEpochs passes
// with the learning rate and neighborhood radius annealed at the
// precomputed schedule steps. The final weights are unscaled back to
// the original feature units.
func (s *Som) Fit(X *Tensor, cfg FitConfig) error {
	s.Trained = false
	if err := s.checkInput(X); err != nil {
		return err
	}
	if cfg.NumEpochs < 1 {
		return fmt.Errorf("number of epochs must be positive, got %d", cfg.NumEpochs)
	}
	if cfg.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.TotalUpdates < 1 {
		return fmt.Errorf("total updates must be positive, got %d", cfg.TotalUpdates)
	}

	engine := s.newEngine()
	if cfg.InitPCA && engine.Name() != "cpu" {
		return fmt.Errorf("PCA seeding is not supported on the %q engine", engine.Name())
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	scaled := s.scaler.FitTransform(X)

	var weights *Tensor
	var err error
	if cfg.InitPCA {
		weights, err = pcaSeed(scaled, s.Width, s.Height)
		if err != nil {
			return err
		}
	} else {
		weights = randomSeed(scaled, s.units, rng)
	}

	n := scaled.Rows()
	batchSize := cfg.BatchSize
	if batchSize > n {
		batchSize = n
	}
	trainLen := n * cfg.NumEpochs / batchSize

	if err := engine.Init(weights, batchSize); err != nil {
		return err
	}
	defer engine.Release()

	lrSched := newUpdateSchedule(trainLen, cfg.StopLRUpdates, cfg.TotalUpdates)
	nbSched := newUpdateSchedule(trainLen, cfg.StopNBUpdates, cfg.TotalUpdates)

	grid := newDistanceGrid(s.Width, s.Height)

	sigma := s.NBDecay.Apply(s.Sigma, 0, nbSched.total())
	lr := s.LRDecay.Apply(s.LearningRate, 0, lrSched.total())

	base := influenceKernel(grid, sigma)
	if err := engine.SetInfluence(scaleKernel(base, lr)); err != nil {
		return err
	}

	idx := 0
	nbStep := 0
	lrStep := 0

	for epoch := 0; epoch < cfg.NumEpochs; epoch++ {
		notifyObserver(cfg.Observer, TrainEvent{
			Type: "epoch", Epoch: epoch, NumEpochs: cfg.NumEpochs,
			Step: idx, Sigma: sigma, LearningRate: lr,
		})

		batches := newBatches(scaled, batchSize, true, rng)
		numProcessed := 0

		for b := 0; b < batches.Num; b++ {
			batch := batches.Batch(b)
			if numProcessed+batchSize > n {
				// Drop the zero padding rows so they never contribute
				// an update.
				batch = truncated(batch, n-numProcessed)
			}

			act, err := engine.Forward(batch)
			if err != nil {
				return err
			}
			bmu := make([]int, act.Rows())
			for i := range bmu {
				bmu[i], _ = s.Extremum.pick(act.Row(i))
			}
			if err := engine.Update(bmu); err != nil {
				return err
			}

			// Neighborhood first, then rate: both may fire on the same
			// step, and the rate rescale must see the fresh kernel.
			if nbSched.hit(idx) {
				nbStep++
				sigma = s.NBDecay.Apply(s.Sigma, nbStep, nbSched.total())
				base = influenceKernel(grid, sigma)
				if err := engine.SetInfluence(scaleKernel(base, lr)); err != nil {
					return err
				}
				notifyObserver(cfg.Observer, TrainEvent{
					Type: "param_update", Epoch: epoch, NumEpochs: cfg.NumEpochs,
					Step: idx, Sigma: sigma, LearningRate: lr,
				})
			}
			if lrSched.hit(idx) {
				lrStep++
				lr = s.LRDecay.Apply(s.LearningRate, lrStep, lrSched.total())
				if err := engine.SetInfluence(scaleKernel(base, lr)); err != nil {
					return err
				}
				notifyObserver(cfg.Observer, TrainEvent{
					Type: "param_update", Epoch: epoch, NumEpochs: cfg.NumEpochs,
					Step: idx, Sigma: sigma, LearningRate: lr,
				})
			}

			numProcessed += batchSize
			idx++
		}
	}

	final, err := engine.Weights()
	if err != nil {
		return err
	}
	s.weights = s.scaler.InverseTransform(final)
	s.Trained = true
	return nil
}

// randomSeed draws uniform-random weights within the per-feature range
// of the data.
func randomSeed(X *Tensor, units int, rng *rand.Rand) *Tensor {
	n, dim := X.Rows(), X.Cols()

	minV := make([]float32, dim)
	maxV := make([]float32, dim)
	copy(minV, X.Row(0))
	copy(maxV, X.Row(0))
	for i := 1; i < n; i++ {
		for j, v := range X.Row(i) {
			if v < minV[j] {
				minV[j] = v
			}
			if v > maxV[j] {
				maxV[j] = v
			}
		}
	}

	weights := NewTensor(units, dim)
	for u := 0; u < units; u++ {
		out := weights.Row(u)
		for j := 0; j < dim; j++ {
			out[j] = minV[j] + rng.Float32()*(maxV[j]-minV[j])
		}
	}
	return weights
}

// predictBase computes the (n x units) activation matrix of X against
// the trained weights: unshuffled batches, forward only, padding rows
// discarded.
func (s *Som) predictBase(X *Tensor, batchSize int) (*Tensor, error) {
	if err := s.checkInput(X); err != nil {
		return nil, err
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	n := X.Rows()
	if batchSize > n {
		batchSize = n
	}

	engine := s.newEngine()
	if err := engine.Init(s.weights, batchSize); err != nil {
		return nil, err
	}
	defer engine.Release()

	batches := newBatches(X, batchSize, false, nil)
	act := NewTensor(n, s.units)
	numProcessed := 0

	for b := 0; b < batches.Num; b++ {
		batch := batches.Batch(b)
		if numProcessed+batchSize > n {
			batch = truncated(batch, n-numProcessed)
		}

		out, err := engine.Forward(batch)
		if err != nil {
			return nil, err
		}
		copy(act.Data[numProcessed*s.units:], out.Data)
		numProcessed += batch.Rows()
	}

	return act, nil
}

// Predict returns the BMU index of each input row.
func (s *Som) Predict(X *Tensor, batchSize int) ([]int, error) {
	act, err := s.predictBase(X, batchSize)
	if err != nil {
		return nil, err
	}
	bmu := make([]int, act.Rows())
	for i := range bmu {
		bmu[i], _ = s.Extremum.pick(act.Row(i))
	}
	return bmu, nil
}

// QuantError returns, for each input row, the distance to its BMU: the
// standard SOM quantization error.
func (s *Som) QuantError(X *Tensor, batchSize int) ([]float32, error) {
	act, err := s.predictBase(X, batchSize)
	if err != nil {
		return nil, err
	}
	errs := make([]float32, act.Rows())
	for i := range errs {
		_, errs[i] = s.Extremum.pick(act.Row(i))
	}
	return errs, nil
}

// MapWeights returns the weights laid out on the map grid: a
// (Height, Width, DataDim) tensor indexed (row, col, feature).
func (s *Som) MapWeights() *Tensor {
	out := NewTensor(s.Height, s.Width, s.DataDim)
	for u := 0; u < s.units; u++ {
		row := u / s.Height
		col := u % s.Height
		copy(out.Data[(col*s.Width+row)*s.DataDim:], s.weights.Row(u))
	}
	return out
}

// Weights exposes the raw (units x DataDim) weight matrix. Callers must
// treat it as read-only.
func (s *Som) Weights() *Tensor {
	return s.weights
}
