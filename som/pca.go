package som

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// pcaSeed initializes the weight matrix from the top-2 principal
// components of the (already scaled) data: each unit's map coordinate,
// normalized to [-1, 1], picks a point in the plane spanned by the two
// components scaled by their explained variance, offset by the data
// mean. Runs on the host only.
func pcaSeed(X *Tensor, width, height int) (*Tensor, error) {
	n, dim := X.Rows(), X.Cols()
	if n < 2 {
		return nil, fmt.Errorf("PCA seeding needs at least 2 samples, got %d", n)
	}
	if dim < 2 {
		return nil, fmt.Errorf("PCA seeding needs at least 2 features, got %d", dim)
	}

	mean := make([]float64, dim)
	for i := 0; i < n; i++ {
		for j, v := range X.Row(i) {
			mean[j] += float64(v)
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}

	centered := mat.NewDense(n, dim, nil)
	for i := 0; i < n; i++ {
		for j, v := range X.Row(i) {
			centered.Set(i, j, float64(v)-mean[j])
		}
	}

	var svd mat.SVD
	if !svd.Factorize(centered, mat.SVDThin) {
		return nil, fmt.Errorf("SVD of input data did not converge")
	}
	var v mat.Dense
	svd.VTo(&v)
	singular := svd.Values(nil)

	// The right singular vectors are unit norm; scaling by the explained
	// variance s^2/(n-1) reproduces PCA component weighting.
	var explained [2]float64
	for k := 0; k < 2; k++ {
		explained[k] = singular[k] * singular[k] / float64(n-1)
	}

	units := width * height
	weights := NewTensor(units, dim)
	for u := 0; u < units; u++ {
		cx := (float64(u/height)/float64(height) - 0.5) * 2
		cy := (float64(u%height)/float64(height) - 0.5) * 2
		out := weights.Row(u)
		for j := 0; j < dim; j++ {
			out[j] = float32(cx*v.At(j, 0)*explained[0] + cy*v.At(j, 1)*explained[1] + mean[j])
		}
	}
	return weights, nil
}
