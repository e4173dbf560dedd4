package som

import (
	"fmt"
	"math"
	"math/rand"
)

// RecursiveConfig extends Config with the blending coefficients of the
// temporal variant: Alpha weighs the spatial distance, Beta the
// distance of the previous activation to the context weights.
type RecursiveConfig struct {
	Config

	Alpha float64
	Beta  float64
}

// Recursive is the temporal SOM variant. On top of the spatial weight
// matrix it maintains a (units x units) context weight matrix, and its
// activation blends spatial and temporal distance:
//
//	act[u] = exp(-alpha*||x - W[u]||^2 - beta*||prev - C[u]||^2)
//
// The BMU is the arg-max of the activation, and both matrices are
// updated online, one example at a time, in sequence order. CPU only.
type Recursive struct {
	*Som

	Alpha float64
	Beta  float64

	// ContextWeights is (units x units); row u is unit u's expectation
	// of the previous activation.
	ContextWeights *Tensor
}

// NewRecursive creates an untrained recursive map.
func NewRecursive(cfg RecursiveConfig) (*Recursive, error) {
	base, err := New(cfg.Config)
	if err != nil {
		return nil, err
	}
	if cfg.Alpha <= 0 || cfg.Beta <= 0 {
		return nil, fmt.Errorf("alpha and beta must be positive, got %v and %v", cfg.Alpha, cfg.Beta)
	}
	return &Recursive{
		Som:            base,
		Alpha:          cfg.Alpha,
		Beta:           cfg.Beta,
		ContextWeights: NewTensor(base.units, base.units),
	}, nil
}

// Fit trains the recursive map on X in sequence order. numEffectiveEpochs
// does not repeat the data; it divides the single pass into that many
// parameter-annealing segments.
func (r *Recursive) Fit(X *Tensor, numEffectiveEpochs int, seed int64, observer Observer) error {
	r.Trained = false
	if err := r.checkInput(X); err != nil {
		return err
	}
	if numEffectiveEpochs < 1 {
		return fmt.Errorf("number of effective epochs must be positive, got %d", numEffectiveEpochs)
	}

	rng := rand.New(rand.NewSource(seed))
	for i := range r.ContextWeights.Data {
		r.ContextWeights.Data[i] = rng.Float32()
	}

	n := X.Rows()
	grid := newDistanceGrid(r.Width, r.Height)

	// The time constant brings the radius near zero by the end of the
	// pass on a square map.
	lam := float64(numEffectiveEpochs)
	if r.Sigma > 1 {
		lam = float64(numEffectiveEpochs) / math.Log(r.Sigma)
	}

	epochCounter := n / numEffectiveEpochs
	if epochCounter < 1 {
		epochCounter = 1
	}

	epoch := 0
	influence, lr := r.paramUpdate(grid, lam, epoch, numEffectiveEpochs)
	notifyObserver(observer, TrainEvent{
		Type: "epoch", Epoch: epoch, NumEpochs: numEffectiveEpochs,
		Sigma: r.Sigma, LearningRate: lr,
	})

	prev := make([]float32, r.units)
	diffX := NewTensor(r.units, r.DataDim)
	diffC := NewTensor(r.units, r.units)

	for idx := 0; idx < n; idx++ {
		act := r.activate(X.Row(idx), prev, diffX, diffC)
		bmu, _ := ExtremumMax.pick(act)

		infl := influence.Row(bmu)
		for u := 0; u < r.units; u++ {
			w := infl[u]
			wRow := r.weights.Row(u)
			for j, d := range diffX.Row(u) {
				wRow[j] += d * w
			}
			cRow := r.ContextWeights.Row(u)
			for j, d := range diffC.Row(u) {
				cRow[j] += d * w
			}
		}
		copy(prev, act)

		if idx > 0 && idx%epochCounter == 0 {
			epoch++
			influence, lr = r.paramUpdate(grid, lam, epoch, numEffectiveEpochs)
			notifyObserver(observer, TrainEvent{
				Type: "epoch", Epoch: epoch, NumEpochs: numEffectiveEpochs,
				Step: idx, LearningRate: lr,
			})
		}
	}

	r.Trained = true
	return nil
}

// paramUpdate recomputes the influence matrix for an annealing segment.
func (r *Recursive) paramUpdate(grid *Tensor, lam float64, epoch, epochs int) (*Tensor, float64) {
	sigma := r.Sigma * math.Exp(-float64(epoch)/lam)
	lr := r.LRDecay.Apply(r.LearningRate, epoch, epochs)
	return scaleKernel(influenceKernel(grid, sigma), lr), lr
}

// activate fills diffX and diffC and returns the blended activation.
func (r *Recursive) activate(x []float32, prev []float32, diffX, diffC *Tensor) []float32 {
	act := make([]float32, r.units)
	for u := 0; u < r.units; u++ {
		dx := float64(0)
		w := r.weights.Row(u)
		out := diffX.Row(u)
		for j, v := range x {
			d := v - w[j]
			out[j] = d
			dx += float64(d) * float64(d)
		}

		dy := float64(0)
		c := r.ContextWeights.Row(u)
		cOut := diffC.Row(u)
		for j, v := range prev {
			d := v - c[j]
			cOut[j] = d
			dy += float64(d) * float64(d)
		}

		act[u] = float32(math.Exp(-r.Alpha*dx - r.Beta*dy))
	}
	return act
}

// Predict returns the BMU sequence for X, carrying the activation state
// from one example to the next.
func (r *Recursive) Predict(X *Tensor) ([]int, error) {
	if err := r.checkInput(X); err != nil {
		return nil, err
	}

	prev := make([]float32, r.units)
	diffX := NewTensor(r.units, r.DataDim)
	diffC := NewTensor(r.units, r.units)

	bmus := make([]int, X.Rows())
	for i := 0; i < X.Rows(); i++ {
		act := r.activate(X.Row(i), prev, diffX, diffC)
		bmus[i], _ = ExtremumMax.pick(act)
		copy(prev, act)
	}
	return bmus, nil
}
