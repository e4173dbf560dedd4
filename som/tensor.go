// Package som implements a batched Self-Organizing Map: a grid of
// prototype vectors trained so that nearby units respond to similar
// inputs, yielding a topology-preserving reduction of a data set.
//
// The training loop runs on a pluggable Engine: a CPU engine, or a
// WebGPU engine that keeps the weight, difference and influence tensors
// resident on the device.
//
// Example usage:
//
//	m, _ := som.New(som.Config{Width: 10, Height: 10, DataDim: 3, LearningRate: 0.3})
//	if err := m.Fit(data, som.DefaultFitConfig()); err != nil {
//		log.Fatal(err)
//	}
//	bmus, _ := m.Predict(queries, 100)
package som

// Tensor is a dense float32 array with a row-major shape.
type Tensor struct {
	Shape []int
	Data  []float32
}

// NewTensor creates a zero-filled tensor with the given shape.
func NewTensor(shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Tensor{Shape: shape, Data: make([]float32, n)}
}

// NewTensorFromSlice wraps data in a tensor with the given shape.
// Returns nil if the shape does not match the data length.
func NewTensorFromSlice(data []float32, shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != len(data) {
		return nil
	}
	return &Tensor{Shape: shape, Data: data}
}

// Size returns the total number of elements.
func (t *Tensor) Size() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	shape := make([]int, len(t.Shape))
	copy(shape, t.Shape)
	data := make([]float32, len(t.Data))
	copy(data, t.Data)
	return &Tensor{Shape: shape, Data: data}
}

// Reshape returns a view of the tensor with a new shape, sharing the
// underlying data. Returns nil if the element count differs.
func (t *Tensor) Reshape(shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != t.Size() {
		return nil
	}
	return &Tensor{Shape: shape, Data: t.Data}
}

// Row returns a slice aliasing row i of a 2-D tensor.
func (t *Tensor) Row(i int) []float32 {
	cols := t.Shape[len(t.Shape)-1]
	return t.Data[i*cols : (i+1)*cols]
}

// Rows returns the leading dimension.
func (t *Tensor) Rows() int {
	return t.Shape[0]
}

// Cols returns the trailing dimension.
func (t *Tensor) Cols() int {
	return t.Shape[len(t.Shape)-1]
}
