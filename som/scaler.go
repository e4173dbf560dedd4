package som

import (
	"math"
)

// scalerEps guards the division for constant features. The inverse
// transform deliberately does not subtract it, so a round trip is exact
// only up to eps-sized error.
const scalerEps = 1e-5

// Scaler normalizes features to zero mean and unit variance.
// Fit sets the per-feature mean and standard deviation; they are not
// mutated afterwards.
type Scaler struct {
	Mean  []float32
	Std   []float32
	IsFit bool
}

// NewScaler returns an un-fit scaler.
func NewScaler() *Scaler {
	return &Scaler{}
}

// Fit computes the per-feature mean and standard deviation of X (n x dim).
func (s *Scaler) Fit(X *Tensor) {
	n, dim := X.Rows(), X.Cols()

	mean := make([]float64, dim)
	for i := 0; i < n; i++ {
		row := X.Row(i)
		for j, v := range row {
			mean[j] += float64(v)
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}

	variance := make([]float64, dim)
	for i := 0; i < n; i++ {
		row := X.Row(i)
		for j, v := range row {
			d := float64(v) - mean[j]
			variance[j] += d * d
		}
	}

	s.Mean = make([]float32, dim)
	s.Std = make([]float32, dim)
	for j := range mean {
		s.Mean[j] = float32(mean[j])
		s.Std[j] = float32(math.Sqrt(variance[j] / float64(n)))
	}
	s.IsFit = true
}

// Transform returns (X - mean) / (std + eps). Callable before Fit (the
// un-fit scaler behaves as mean 0, std 0), but only meaningful after.
func (s *Scaler) Transform(X *Tensor) *Tensor {
	out := X.Clone()
	dim := X.Cols()
	mean, std := s.params(dim)
	for i := range out.Data {
		j := i % dim
		out.Data[i] = (out.Data[i] - mean[j]) / (std[j] + scalerEps)
	}
	return out
}

// InverseTransform returns X * std + mean, the algebraic inverse of
// Transform up to the eps term.
func (s *Scaler) InverseTransform(X *Tensor) *Tensor {
	out := X.Clone()
	dim := X.Cols()
	mean, std := s.params(dim)
	for i := range out.Data {
		j := i % dim
		out.Data[i] = out.Data[i]*std[j] + mean[j]
	}
	return out
}

// FitTransform fits the scaler on X and returns the transformed data.
func (s *Scaler) FitTransform(X *Tensor) *Tensor {
	s.Fit(X)
	return s.Transform(X)
}

func (s *Scaler) params(dim int) ([]float32, []float32) {
	if !s.IsFit || len(s.Mean) != dim {
		return make([]float32, dim), make([]float32, dim)
	}
	return s.Mean, s.Std
}
