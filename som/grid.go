package som

import (
	"math"
)

// newDistanceGrid builds the (units x units) matrix of squared grid
// distances between all map positions. Unit i sits at row i/height,
// column i%height. The grid depends only on the map geometry and is
// built once per training run.
//
// Row and column squared offsets are precomputed per axis so the fill
// is O(units^2) additions rather than per-pair coordinate math.
func newDistanceGrid(width, height int) *Tensor {
	units := width * height
	grid := NewTensor(units, units)

	rowSq := make([]float32, width)
	colSq := make([]float32, height)

	for i := 0; i < units; i++ {
		row := i / height
		col := i % height

		for r := 0; r < width; r++ {
			d := float32(r - row)
			rowSq[r] = d * d
		}
		for c := 0; c < height; c++ {
			d := float32(c - col)
			colSq[c] = d * d
		}

		out := grid.Row(i)
		for r := 0; r < width; r++ {
			base := r * height
			for c := 0; c < height; c++ {
				out[base+c] = rowSq[r] + colSq[c]
			}
		}
	}

	return grid
}

// influenceKernel computes the Gaussian neighborhood weighting
// exp(-D / (2*sigma^2)) over the distance grid. The result is the base
// kernel for the current sigma; the learning rate is applied as a
// separate scalar factor so a rate-only change does not pay for the
// exponential again.
func influenceKernel(grid *Tensor, sigma float64) *Tensor {
	out := grid.Clone()
	denom := 2.0 * sigma * sigma
	for i, v := range out.Data {
		out.Data[i] = float32(math.Exp(-float64(v) / denom))
	}
	return out
}

// scaleKernel returns a copy of the kernel multiplied by a scalar factor.
func scaleKernel(t *Tensor, factor float64) *Tensor {
	out := t.Clone()
	f := float32(factor)
	for i := range out.Data {
		out.Data[i] *= f
	}
	return out
}
