package som

import (
	"math/rand"
)

// Batches is a fixed-size minibatch view over a 2-D data set. The rows
// are optionally reshuffled (training) or kept in order (inference),
// then padded with zero rows so every batch has exactly BatchSize rows.
//
// The padding rows never reach the update step: the trainer truncates
// the final batch of every epoch to the remaining real rows.
type Batches struct {
	BatchSize int
	Num       int

	data *Tensor // (Num*BatchSize, dim), padded
	dim  int
}

// newBatches slices X (n x dim) into batches of batchSize rows.
// batchSize is capped at n. When shuffle is true the rows are permuted
// first using rng; X itself is never mutated.
func newBatches(X *Tensor, batchSize int, shuffle bool, rng *rand.Rand) *Batches {
	n, dim := X.Rows(), X.Cols()

	if batchSize > n {
		batchSize = n
	}
	num := (n + batchSize - 1) / batchSize

	padded := NewTensor(num*batchSize, dim)
	if shuffle {
		for i, j := range rng.Perm(n) {
			copy(padded.Row(i), X.Row(j))
		}
	} else {
		copy(padded.Data, X.Data)
	}

	return &Batches{
		BatchSize: batchSize,
		Num:       num,
		data:      padded,
		dim:       dim,
	}
}

// Batch returns batch i as a (BatchSize x dim) view into the padded data.
func (b *Batches) Batch(i int) *Tensor {
	start := i * b.BatchSize * b.dim
	end := start + b.BatchSize*b.dim
	return &Tensor{
		Shape: []int{b.BatchSize, b.dim},
		Data:  b.data.Data[start:end],
	}
}

// truncated returns the first rows rows of a batch as a view.
func truncated(batch *Tensor, rows int) *Tensor {
	dim := batch.Cols()
	return &Tensor{
		Shape: []int{rows, dim},
		Data:  batch.Data[:rows*dim],
	}
}
