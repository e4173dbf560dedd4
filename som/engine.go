package som

import (
	"fmt"
	"math"
)

// Extremum selects how the best matching unit is chosen from a row of
// activations.
type Extremum int

const (
	// ExtremumMin picks the unit with the smallest activation (closest
	// wins, the standard SOM rule).
	ExtremumMin Extremum = iota
	// ExtremumMax picks the unit with the largest activation, for
	// similarity-style activations.
	ExtremumMax
)

// pick returns the extremal index and value of a non-empty row.
func (e Extremum) pick(row []float32) (int, float32) {
	best := 0
	bestVal := row[0]
	for i, v := range row[1:] {
		if (e == ExtremumMin && v < bestVal) || (e == ExtremumMax && v > bestVal) {
			best = i + 1
			bestVal = v
		}
	}
	return best, bestVal
}

// Engine runs the forward and update passes of one training or
// inference run. An engine owns a private copy of the weight matrix for
// the duration of the run; callers read it back with Weights.
//
// Forward computes the Euclidean distance of every example in the batch
// to every unit. The per-(example, unit) difference vectors are the
// dominant memory cost and are retained inside the engine for the next
// Update call instead of crossing the host/device boundary.
type Engine interface {
	// Name identifies the backend ("cpu", "webgpu").
	Name() string

	// Init prepares the engine for batches of at most batchSize rows
	// against the given (units x dim) weight matrix.
	Init(weights *Tensor, batchSize int) error

	// SetInfluence replaces the (units x units) influence matrix used
	// by Update. The matrix already includes the learning rate factor.
	SetInfluence(influence *Tensor) error

	// Forward computes activations (rows x units) for a (rows x dim)
	// batch, rows <= batchSize.
	Forward(batch *Tensor) (*Tensor, error)

	// Update folds the batch-mean neighborhood update into the weights,
	// given the winning unit of each example in the last Forward batch.
	Update(bmu []int) error

	// Weights returns a host copy of the current weight matrix.
	Weights() (*Tensor, error)

	// Release frees any resources held for the run.
	Release()
}

// CPUEngine is the host-memory engine.
type CPUEngine struct {
	weights   *Tensor
	influence *Tensor
	diff      []float32 // batchSize * units * dim, reused across batches
	units     int
	dim       int
	batchSize int
	lastRows  int
}

// NewCPUEngine returns an engine computing on host memory.
func NewCPUEngine() *CPUEngine {
	return &CPUEngine{}
}

// Name implements Engine.
func (e *CPUEngine) Name() string { return "cpu" }

// Init implements Engine.
func (e *CPUEngine) Init(weights *Tensor, batchSize int) error {
	if len(weights.Shape) != 2 {
		return fmt.Errorf("weights must be 2-D, got shape %v", weights.Shape)
	}
	if batchSize < 1 {
		return fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	e.weights = weights.Clone()
	e.units = weights.Shape[0]
	e.dim = weights.Shape[1]
	e.batchSize = batchSize
	e.diff = make([]float32, batchSize*e.units*e.dim)
	e.influence = nil
	e.lastRows = 0
	return nil
}

// SetInfluence implements Engine.
func (e *CPUEngine) SetInfluence(influence *Tensor) error {
	if influence.Size() != e.units*e.units {
		return fmt.Errorf("influence size %d does not match units^2 %d",
			influence.Size(), e.units*e.units)
	}
	e.influence = influence.Clone()
	return nil
}

// Forward implements Engine.
func (e *CPUEngine) Forward(batch *Tensor) (*Tensor, error) {
	rows := batch.Rows()
	if rows > e.batchSize {
		return nil, fmt.Errorf("batch of %d rows exceeds engine batch size %d", rows, e.batchSize)
	}
	if batch.Cols() != e.dim {
		return nil, fmt.Errorf("batch has %d features, engine expects %d", batch.Cols(), e.dim)
	}

	act := NewTensor(rows, e.units)
	for b := 0; b < rows; b++ {
		in := batch.Row(b)
		actRow := act.Row(b)
		for u := 0; u < e.units; u++ {
			w := e.weights.Row(u)
			d := e.diff[(b*e.units+u)*e.dim : (b*e.units+u+1)*e.dim]
			sum := float64(0)
			for j, v := range in {
				dv := v - w[j]
				d[j] = dv
				sum += float64(dv) * float64(dv)
			}
			actRow[u] = float32(math.Sqrt(sum))
		}
	}
	e.lastRows = rows
	return act, nil
}

// Update implements Engine.
func (e *CPUEngine) Update(bmu []int) error {
	if e.influence == nil {
		return fmt.Errorf("influence matrix has not been set")
	}
	rows := len(bmu)
	if rows == 0 || rows > e.lastRows {
		return fmt.Errorf("bmu length %d does not match last forward batch of %d rows", rows, e.lastRows)
	}

	update := make([]float64, e.units*e.dim)
	for b := 0; b < rows; b++ {
		infl := e.influence.Row(bmu[b])
		for u := 0; u < e.units; u++ {
			w := float64(infl[u])
			base := (b*e.units + u) * e.dim
			out := update[u*e.dim : (u+1)*e.dim]
			for j := 0; j < e.dim; j++ {
				out[j] += float64(e.diff[base+j]) * w
			}
		}
	}

	inv := 1.0 / float64(rows)
	for i, v := range update {
		e.weights.Data[i] += float32(v * inv)
	}
	return nil
}

// Weights implements Engine.
func (e *CPUEngine) Weights() (*Tensor, error) {
	if e.weights == nil {
		return nil, fmt.Errorf("engine has not been initialized")
	}
	return e.weights.Clone(), nil
}

// Release implements Engine.
func (e *CPUEngine) Release() {
	e.weights = nil
	e.influence = nil
	e.diff = nil
}
