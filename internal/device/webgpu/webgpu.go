// Package webgpu implements the GPU device using WebGPU compute
// shaders via go-webgpu (zero-CGO bindings).
package webgpu

import (
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/informatrix/ndarray/internal/device"
	"github.com/informatrix/ndarray/internal/ndarray"
)

// Verify that Device implements device.Device.
var _ device.Device = (*Device)(nil)

// Device runs elementwise kernels on the GPU through WebGPU.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Shader and pipeline cache
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	mu        sync.RWMutex
}

// New creates the WebGPU device.
// Returns an error if WebGPU is not available or initialization fails.
func New() (dev *Device, err error) {
	// Recover from panic if the wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			dev = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance, instanceErr := wgpu.CreateInstance(nil)
	if instanceErr != nil {
		return nil, fmt.Errorf("webgpu: failed to create instance: %w", instanceErr)
	}
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", adapterErr)
	}

	gpu, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", deviceErr)
	}

	queue := gpu.GetQueue()
	if queue == nil {
		gpu.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	return &Device{
		instance:  instance,
		adapter:   adapter,
		device:    gpu,
		queue:     queue,
		shaders:   make(map[string]*wgpu.ShaderModule),
		pipelines: make(map[string]*wgpu.ComputePipeline),
	}, nil
}

// IsAvailable reports whether a WebGPU adapter can be initialized on
// this system.
func IsAvailable() bool {
	d, err := New()
	if err != nil {
		return false
	}
	d.Release()
	return true
}

// Name returns the device name.
func (d *Device) Name() string { return "webgpu" }

// Release frees the GPU device and its cached pipelines.
func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.pipelines {
		p.Release()
	}
	for _, s := range d.shaders {
		s.Release()
	}
	d.pipelines = map[string]*wgpu.ComputePipeline{}
	d.shaders = map[string]*wgpu.ShaderModule{}
	if d.device != nil {
		d.device.Release()
	}
	if d.adapter != nil {
		d.adapter.Release()
	}
	if d.instance != nil {
		d.instance.Release()
	}
}

// gpuBuffer is a device.Buffer backed by a GPU storage buffer.
type gpuBuffer struct {
	dev  *Device
	buf  *wgpu.Buffer
	size uint64
}

// Allocate reserves a zeroed storage buffer on the GPU.
func (d *Device) Allocate(byteSize int) (device.Buffer, error) {
	// WebGPU buffer sizes must be 4-byte aligned.
	size := (uint64(byteSize) + 3) &^ 3
	buf := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	if buf == nil {
		return nil, fmt.Errorf("%w: webgpu buffer of %d bytes", ndarray.ErrAllocation, byteSize)
	}
	return &gpuBuffer{dev: d, buf: buf, size: size}, nil
}

// Upload copies src into the GPU buffer through a mapped staging buffer.
func (b *gpuBuffer) Upload(src []byte) error {
	staging := b.dev.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             b.size,
		MappedAtCreation: wgpu.True,
	})
	if staging == nil {
		return fmt.Errorf("%w: webgpu staging buffer", ndarray.ErrAllocation)
	}
	defer staging.Release()

	mappedPtr := staging.GetMappedRange(0, b.size)
	mapped := unsafe.Slice((*byte)(mappedPtr), b.size)
	copy(mapped, src)
	staging.Unmap()

	encoder := b.dev.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(staging, 0, b.buf, 0, b.size)
	cmd := encoder.Finish(nil)
	b.dev.queue.Submit(cmd)
	return nil
}

// Download reads the GPU buffer back into dst through a staging buffer.
func (b *gpuBuffer) Download(dst []byte) error {
	staging := b.dev.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  b.size,
	})
	if staging == nil {
		return fmt.Errorf("%w: webgpu staging buffer", ndarray.ErrAllocation)
	}
	defer staging.Release()

	encoder := b.dev.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(b.buf, 0, staging, 0, b.size)
	cmd := encoder.Finish(nil)
	b.dev.queue.Submit(cmd)

	if err := staging.MapAsync(b.dev.device, wgpu.MapModeRead, 0, b.size); err != nil {
		return fmt.Errorf("%w: map staging buffer: %v", ndarray.ErrEngine, err)
	}
	mappedPtr := staging.GetMappedRange(0, b.size)
	mapped := unsafe.Slice((*byte)(mappedPtr), b.size)
	copy(dst, mapped)
	staging.Unmap()
	return nil
}

func (b *gpuBuffer) ByteSize() int { return int(b.size) }

func (b *gpuBuffer) Release() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}

// compileShader compiles WGSL into a cached ShaderModule.
func (d *Device) compileShader(name, code string) *wgpu.ShaderModule {
	d.mu.RLock()
	if shader, exists := d.shaders[name]; exists {
		d.mu.RUnlock()
		return shader
	}
	d.mu.RUnlock()

	shader := d.device.CreateShaderModuleWGSL(code)

	d.mu.Lock()
	d.shaders[name] = shader
	d.mu.Unlock()
	return shader
}

// getOrCreatePipeline returns a cached ComputePipeline or creates one.
func (d *Device) getOrCreatePipeline(name string, shader *wgpu.ShaderModule) *wgpu.ComputePipeline {
	d.mu.RLock()
	if pipeline, exists := d.pipelines[name]; exists {
		d.mu.RUnlock()
		return pipeline
	}
	d.mu.RUnlock()

	pipeline := d.device.CreateComputePipelineSimple(nil, shader, "main")

	d.mu.Lock()
	d.pipelines[name] = pipeline
	d.mu.Unlock()
	return pipeline
}

// createParams creates a 16-byte-aligned uniform buffer holding the
// element count and an optional scalar operand.
func (d *Device) createParams(n int, scalar float32) *wgpu.Buffer {
	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(n))
	binary.LittleEndian.PutUint32(params[4:8], mathFloat32bits(scalar))

	buf := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             16,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buf.GetMappedRange(0, 16)
	mapped := unsafe.Slice((*byte)(mappedPtr), 16)
	copy(mapped, params)
	buf.Unmap()
	return buf
}

func mathFloat32bits(f float32) uint32 {
	return *(*uint32)(unsafe.Pointer(&f))
}

// dispatch runs one compute pass of the pipeline over the bind group.
func (d *Device) dispatch(pipeline *wgpu.ComputePipeline, bindGroup *wgpu.BindGroup, n int) {
	encoder := d.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	workgroups := uint32((n + workgroupSize - 1) / workgroupSize)
	computePass.DispatchWorkgroups(workgroups, 1, 1)
	computePass.End()
	cmd := encoder.Finish(nil)
	d.queue.Submit(cmd)
}

func opSymbol(op ndarray.BinaryOp) string {
	switch op {
	case ndarray.OpAdd:
		return "+"
	case ndarray.OpSub:
		return "-"
	case ndarray.OpMul:
		return "*"
	case ndarray.OpDiv:
		return "/"
	default:
		return "+"
	}
}

func raw(b device.Buffer) *gpuBuffer {
	return b.(*gpuBuffer)
}

// BinaryOp computes dst = a op b elementwise on the GPU.
func (d *Device) BinaryOp(op ndarray.BinaryOp, dst, a, b device.Buffer, n int) error {
	name := "binary_" + op.String()
	shader := d.compileShader(name, binaryShader(opSymbol(op)))
	pipeline := d.getOrCreatePipeline(name, shader)

	params := d.createParams(n, 0)
	defer params.Release()

	layout := pipeline.GetBindGroupLayout(0)
	bindGroup := d.device.CreateBindGroupSimple(layout, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, raw(a).buf, 0, raw(a).size),
		wgpu.BufferBindingEntry(1, raw(b).buf, 0, raw(b).size),
		wgpu.BufferBindingEntry(2, raw(dst).buf, 0, raw(dst).size),
		wgpu.BufferBindingEntry(3, params, 0, 16),
	})
	defer bindGroup.Release()

	d.dispatch(pipeline, bindGroup, n)
	return nil
}

// BinaryScalarOp computes dst = a op scalar elementwise on the GPU.
func (d *Device) BinaryScalarOp(op ndarray.BinaryOp, dst, a device.Buffer, scalar float32, n int) error {
	name := "binary_scalar_" + op.String()
	shader := d.compileShader(name, binaryScalarShader(opSymbol(op)))
	pipeline := d.getOrCreatePipeline(name, shader)

	params := d.createParams(n, scalar)
	defer params.Release()

	layout := pipeline.GetBindGroupLayout(0)
	bindGroup := d.device.CreateBindGroupSimple(layout, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, raw(a).buf, 0, raw(a).size),
		wgpu.BufferBindingEntry(1, raw(dst).buf, 0, raw(dst).size),
		wgpu.BufferBindingEntry(2, params, 0, 16),
	})
	defer bindGroup.Release()

	d.dispatch(pipeline, bindGroup, n)
	return nil
}

// InPlaceOp computes dst = dst op b elementwise on the GPU.
func (d *Device) InPlaceOp(op ndarray.BinaryOp, dst, b device.Buffer, n int) error {
	name := "inplace_" + op.String()
	shader := d.compileShader(name, inplaceShader(opSymbol(op)))
	pipeline := d.getOrCreatePipeline(name, shader)

	params := d.createParams(n, 0)
	defer params.Release()

	layout := pipeline.GetBindGroupLayout(0)
	bindGroup := d.device.CreateBindGroupSimple(layout, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, raw(dst).buf, 0, raw(dst).size),
		wgpu.BufferBindingEntry(1, raw(b).buf, 0, raw(b).size),
		wgpu.BufferBindingEntry(2, params, 0, 16),
	})
	defer bindGroup.Release()

	d.dispatch(pipeline, bindGroup, n)
	return nil
}

// InPlaceScalarOp computes dst = dst op scalar elementwise on the GPU.
func (d *Device) InPlaceScalarOp(op ndarray.BinaryOp, dst device.Buffer, scalar float32, n int) error {
	name := "inplace_scalar_" + op.String()
	shader := d.compileShader(name, inplaceScalarShader(opSymbol(op)))
	pipeline := d.getOrCreatePipeline(name, shader)

	params := d.createParams(n, scalar)
	defer params.Release()

	layout := pipeline.GetBindGroupLayout(0)
	bindGroup := d.device.CreateBindGroupSimple(layout, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, raw(dst).buf, 0, raw(dst).size),
		wgpu.BufferBindingEntry(1, params, 0, 16),
	})
	defer bindGroup.Release()

	d.dispatch(pipeline, bindGroup, n)
	return nil
}

// Fill sets every element of dst to v on the GPU.
func (d *Device) Fill(dst device.Buffer, v float32, n int) error {
	shader := d.compileShader("fill", fillShader)
	pipeline := d.getOrCreatePipeline("fill", shader)

	params := d.createParams(n, v)
	defer params.Release()

	layout := pipeline.GetBindGroupLayout(0)
	bindGroup := d.device.CreateBindGroupSimple(layout, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, raw(dst).buf, 0, raw(dst).size),
		wgpu.BufferBindingEntry(1, params, 0, 16),
	})
	defer bindGroup.Release()

	d.dispatch(pipeline, bindGroup, n)
	return nil
}
