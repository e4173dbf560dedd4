package gpu

import (
	"fmt"

	"github.com/openfluke/webgpu/wgpu"
)

// MapSpec defines the fixed geometry of one training run:
// the number of map units, the input dimensionality and the
// maximum batch size the buffers are sized for.
type MapSpec struct {
	Units     int
	Dim       int
	BatchSize int
}

// MapKernel holds the GPU resources for the batched SOM passes.
//
// The forward pass computes, for every (example, unit) pair, the
// difference vector and its Euclidean norm. The difference tensor stays
// resident on the device and is consumed by the update pass, which
// gathers the influence row of each example's best matching unit and
// folds the batch-mean update into the weights.
type MapKernel struct {
	Spec MapSpec

	fwdPipeline *wgpu.ComputePipeline
	updPipeline *wgpu.ComputePipeline
	fwdBind     *wgpu.BindGroup
	updBind     *wgpu.BindGroup

	InputBuffer     *wgpu.Buffer // batch * dim
	WeightBuffer    *wgpu.Buffer // units * dim
	DiffBuffer      *wgpu.Buffer // batch * units * dim
	ActBuffer       *wgpu.Buffer // batch * units
	InfluenceBuffer *wgpu.Buffer // units * units
	BMUBuffer       *wgpu.Buffer // batch (u32)
	ParamsBuffer    *wgpu.Buffer // rows in the current batch (u32)

	updWorkgroups uint32
}

// NewMapKernel creates a kernel for the given spec. Build must be called
// before any dispatch.
func NewMapKernel(spec MapSpec) *MapKernel {
	return &MapKernel{Spec: spec}
}

// Build allocates all buffers, compiles both pipelines and creates the
// bind groups. The initial weights are uploaded as part of the build.
func (k *MapKernel) Build(weights []float32) error {
	c, err := GetContext()
	if err != nil {
		return err
	}
	if len(weights) != k.Spec.Units*k.Spec.Dim {
		return fmt.Errorf("weights size %d does not match units*dim %d",
			len(weights), k.Spec.Units*k.Spec.Dim)
	}
	if err := k.allocateBuffers(c, weights); err != nil {
		return err
	}
	if err := k.compile(c); err != nil {
		return err
	}
	return k.createBindGroups(c)
}

func (k *MapKernel) allocateBuffers(c *Context, weights []float32) error {
	var err error

	storage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc

	k.InputBuffer, err = c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "SOM_In",
		Size:  uint64(k.Spec.BatchSize * k.Spec.Dim * 4),
		Usage: storage,
	})
	if err != nil {
		return err
	}

	k.WeightBuffer, err = NewFloatBuffer(weights, storage)
	if err != nil {
		return fmt.Errorf("weight buf: %v", err)
	}

	k.DiffBuffer, err = c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "SOM_Diff",
		Size:  uint64(k.Spec.BatchSize * k.Spec.Units * k.Spec.Dim * 4),
		Usage: storage,
	})
	if err != nil {
		return err
	}

	k.ActBuffer, err = c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "SOM_Act",
		Size:  uint64(k.Spec.BatchSize * k.Spec.Units * 4),
		Usage: storage,
	})
	if err != nil {
		return err
	}

	k.InfluenceBuffer, err = c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "SOM_Infl",
		Size:  uint64(k.Spec.Units * k.Spec.Units * 4),
		Usage: storage,
	})
	if err != nil {
		return err
	}

	k.BMUBuffer, err = c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "SOM_BMU",
		Size:  uint64(k.Spec.BatchSize * 4),
		Usage: storage,
	})
	if err != nil {
		return err
	}

	k.ParamsBuffer, err = c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "SOM_Params",
		Size:  4, // u32
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	return err
}

func (k *MapKernel) generateForwardShader() string {
	return fmt.Sprintf(`
		@group(0) @binding(0) var<storage, read> input : array<f32>;
		@group(0) @binding(1) var<storage, read> weights : array<f32>;
		@group(0) @binding(2) var<storage, read_write> diff : array<f32>;
		@group(0) @binding(3) var<storage, read_write> act : array<f32>;
		@group(0) @binding(4) var<uniform> rows : u32;

		const UNITS: u32 = %du;
		const DIM: u32 = %du;

		@compute @workgroup_size(256)
		fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
			let idx = gid.x;
			if (idx >= rows * UNITS) {
				return;
			}

			let b = idx / UNITS;
			let u = idx %% UNITS;

			var sum: f32 = 0.0;
			for (var d: u32 = 0u; d < DIM; d++) {
				let v = input[b * DIM + d] - weights[u * DIM + d];
				diff[idx * DIM + d] = v;
				sum += v * v;
			}
			act[idx] = sqrt(sum);
		}
	`, k.Spec.Units, k.Spec.Dim)
}

func (k *MapKernel) generateUpdateShader() string {
	return fmt.Sprintf(`
		@group(0) @binding(0) var<storage, read> diff : array<f32>;
		@group(0) @binding(1) var<storage, read> influence : array<f32>;
		@group(0) @binding(2) var<storage, read> bmu : array<u32>;
		@group(0) @binding(3) var<storage, read_write> weights : array<f32>;
		@group(0) @binding(4) var<uniform> rows : u32;

		const UNITS: u32 = %du;
		const DIM: u32 = %du;

		@compute @workgroup_size(256)
		fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
			let idx = gid.x;
			if (idx >= UNITS * DIM) {
				return;
			}

			let u = idx / DIM;
			let d = idx %% DIM;

			var acc: f32 = 0.0;
			for (var b: u32 = 0u; b < rows; b++) {
				let w = influence[bmu[b] * UNITS + u];
				acc += diff[(b * UNITS + u) * DIM + d] * w;
			}
			weights[idx] += acc / f32(rows);
		}
	`, k.Spec.Units, k.Spec.Dim)
}

func (k *MapKernel) compile(c *Context) error {
	fwdMod, err := c.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "SOM_Fwd_Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: k.generateForwardShader()},
	})
	if err != nil {
		return fmt.Errorf("forward shader compile: %v", err)
	}
	k.fwdPipeline, err = c.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "SOM_Fwd_Pipe",
		Compute: wgpu.ProgrammableStageDescriptor{Module: fwdMod, EntryPoint: "main"},
	})
	fwdMod.Release()
	if err != nil {
		return fmt.Errorf("forward pipeline create: %v", err)
	}

	updMod, err := c.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "SOM_Upd_Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: k.generateUpdateShader()},
	})
	if err != nil {
		return fmt.Errorf("update shader compile: %v", err)
	}
	k.updPipeline, err = c.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "SOM_Upd_Pipe",
		Compute: wgpu.ProgrammableStageDescriptor{Module: updMod, EntryPoint: "main"},
	})
	updMod.Release()
	if err != nil {
		return fmt.Errorf("update pipeline create: %v", err)
	}

	k.updWorkgroups = (uint32(k.Spec.Units*k.Spec.Dim) + 255) / 256
	return nil
}

func (k *MapKernel) createBindGroups(c *Context) error {
	var err error
	k.fwdBind, err = c.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "SOM_Fwd_Bind",
		Layout: k.fwdPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: k.InputBuffer, Size: k.InputBuffer.GetSize()},
			{Binding: 1, Buffer: k.WeightBuffer, Size: k.WeightBuffer.GetSize()},
			{Binding: 2, Buffer: k.DiffBuffer, Size: k.DiffBuffer.GetSize()},
			{Binding: 3, Buffer: k.ActBuffer, Size: k.ActBuffer.GetSize()},
			{Binding: 4, Buffer: k.ParamsBuffer, Size: 4},
		},
	})
	if err != nil {
		return err
	}

	k.updBind, err = c.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "SOM_Upd_Bind",
		Layout: k.updPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: k.DiffBuffer, Size: k.DiffBuffer.GetSize()},
			{Binding: 1, Buffer: k.InfluenceBuffer, Size: k.InfluenceBuffer.GetSize()},
			{Binding: 2, Buffer: k.BMUBuffer, Size: k.BMUBuffer.GetSize()},
			{Binding: 3, Buffer: k.WeightBuffer, Size: k.WeightBuffer.GetSize()},
			{Binding: 4, Buffer: k.ParamsBuffer, Size: 4},
		},
	})
	return err
}

// UploadWeights replaces the device-resident weight matrix.
func (k *MapKernel) UploadWeights(weights []float32) error {
	c, err := GetContext()
	if err != nil {
		return err
	}
	c.Queue.WriteBuffer(k.WeightBuffer, 0, wgpu.ToBytes(weights))
	return nil
}

// UploadInfluence replaces the device-resident influence matrix.
func (k *MapKernel) UploadInfluence(influence []float32) error {
	c, err := GetContext()
	if err != nil {
		return err
	}
	if len(influence) != k.Spec.Units*k.Spec.Units {
		return fmt.Errorf("influence size %d does not match units^2 %d",
			len(influence), k.Spec.Units*k.Spec.Units)
	}
	c.Queue.WriteBuffer(k.InfluenceBuffer, 0, wgpu.ToBytes(influence))
	return nil
}

// Forward dispatches the distance pass for rows examples and reads the
// activation matrix (rows * units) back to the host. The difference
// tensor stays on the device for a following Update.
func (k *MapKernel) Forward(batch []float32, rows int) ([]float32, error) {
	c, err := GetContext()
	if err != nil {
		return nil, err
	}
	if rows <= 0 || rows > k.Spec.BatchSize {
		return nil, fmt.Errorf("rows %d out of range for batch size %d", rows, k.Spec.BatchSize)
	}

	c.Queue.WriteBuffer(k.ParamsBuffer, 0, wgpu.ToBytes([]uint32{uint32(rows)}))
	c.Queue.WriteBuffer(k.InputBuffer, 0, wgpu.ToBytes(batch))

	enc, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	pass := enc.BeginComputePass(nil)
	pass.SetPipeline(k.fwdPipeline)
	pass.SetBindGroup(0, k.fwdBind, nil)
	pass.DispatchWorkgroups((uint32(rows*k.Spec.Units)+255)/256, 1, 1)
	pass.End()

	cmd, err := enc.Finish(nil)
	if err != nil {
		return nil, err
	}
	c.Queue.Submit(cmd)

	return ReadBuffer(k.ActBuffer, rows*k.Spec.Units)
}

// Update dispatches the weight update for the batch last passed to
// Forward. bmu holds the winning unit index of each example; its length
// must equal the rows argument of that Forward call.
func (k *MapKernel) Update(bmu []uint32) error {
	c, err := GetContext()
	if err != nil {
		return err
	}
	if len(bmu) == 0 || len(bmu) > k.Spec.BatchSize {
		return fmt.Errorf("bmu length %d out of range for batch size %d", len(bmu), k.Spec.BatchSize)
	}

	c.Queue.WriteBuffer(k.ParamsBuffer, 0, wgpu.ToBytes([]uint32{uint32(len(bmu))}))
	c.Queue.WriteBuffer(k.BMUBuffer, 0, wgpu.ToBytes(bmu))

	enc, err := c.Device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	pass := enc.BeginComputePass(nil)
	pass.SetPipeline(k.updPipeline)
	pass.SetBindGroup(0, k.updBind, nil)
	pass.DispatchWorkgroups(k.updWorkgroups, 1, 1)
	pass.End()

	cmd, err := enc.Finish(nil)
	if err != nil {
		return err
	}
	c.Queue.Submit(cmd)
	return nil
}

// DownloadWeights reads the weight matrix back to the host.
func (k *MapKernel) DownloadWeights() ([]float32, error) {
	return ReadBuffer(k.WeightBuffer, k.Spec.Units*k.Spec.Dim)
}

// Cleanup releases all GPU resources held by the kernel.
func (k *MapKernel) Cleanup() {
	for _, b := range []*wgpu.Buffer{
		k.InputBuffer, k.WeightBuffer, k.DiffBuffer, k.ActBuffer,
		k.InfluenceBuffer, k.BMUBuffer, k.ParamsBuffer,
	} {
		if b != nil {
			b.Destroy()
		}
	}
	if k.fwdPipeline != nil {
		k.fwdPipeline.Release()
	}
	if k.updPipeline != nil {
		k.updPipeline.Release()
	}
	if k.fwdBind != nil {
		k.fwdBind.Release()
	}
	if k.updBind != nil {
		k.updBind.Release()
	}
}
