package som

import (
	"fmt"

	"github.com/JaeDukSeo/somber/gpu"
)

// WebGPUEngine keeps the weight, difference and influence tensors
// resident in device memory and runs the forward and update passes as
// compute shaders. Only the activation matrix crosses back to the host
// each batch, for BMU selection.
type WebGPUEngine struct {
	kernel *gpu.MapKernel
	units  int
	dim    int
}

// NewWebGPUEngine returns an engine backed by the WebGPU device.
// Device initialization is deferred to Init.
func NewWebGPUEngine() *WebGPUEngine {
	return &WebGPUEngine{}
}

// Name implements Engine.
func (e *WebGPUEngine) Name() string { return "webgpu" }

// Init implements Engine.
func (e *WebGPUEngine) Init(weights *Tensor, batchSize int) error {
	if len(weights.Shape) != 2 {
		return fmt.Errorf("weights must be 2-D, got shape %v", weights.Shape)
	}
	if batchSize < 1 {
		return fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if err := gpu.EnsureGPU(); err != nil {
		return fmt.Errorf("webgpu init: %w", err)
	}

	if e.kernel != nil {
		e.kernel.Cleanup()
	}
	e.units = weights.Shape[0]
	e.dim = weights.Shape[1]
	e.kernel = gpu.NewMapKernel(gpu.MapSpec{
		Units:     e.units,
		Dim:       e.dim,
		BatchSize: batchSize,
	})
	return e.kernel.Build(weights.Data)
}

// SetInfluence implements Engine.
func (e *WebGPUEngine) SetInfluence(influence *Tensor) error {
	if e.kernel == nil {
		return fmt.Errorf("engine has not been initialized")
	}
	return e.kernel.UploadInfluence(influence.Data)
}

// Forward implements Engine.
func (e *WebGPUEngine) Forward(batch *Tensor) (*Tensor, error) {
	if e.kernel == nil {
		return nil, fmt.Errorf("engine has not been initialized")
	}
	rows := batch.Rows()
	act, err := e.kernel.Forward(batch.Data, rows)
	if err != nil {
		return nil, err
	}
	return NewTensorFromSlice(act, rows, e.units), nil
}

// Update implements Engine.
func (e *WebGPUEngine) Update(bmu []int) error {
	if e.kernel == nil {
		return fmt.Errorf("engine has not been initialized")
	}
	idx := make([]uint32, len(bmu))
	for i, b := range bmu {
		idx[i] = uint32(b)
	}
	return e.kernel.Update(idx)
}

// Weights implements Engine.
func (e *WebGPUEngine) Weights() (*Tensor, error) {
	if e.kernel == nil {
		return nil, fmt.Errorf("engine has not been initialized")
	}
	data, err := e.kernel.DownloadWeights()
	if err != nil {
		return nil, err
	}
	return NewTensorFromSlice(data, e.units, e.dim), nil
}

// Release implements Engine.
func (e *WebGPUEngine) Release() {
	if e.kernel != nil {
		e.kernel.Cleanup()
		e.kernel = nil
	}
}
