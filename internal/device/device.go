// Package device defines the storage and kernel interface the engine
// uses to talk to a physical device. Implementations:
//   - cpu: host memory, pure-Go kernels
//   - webgpu: GPU storage buffers and WGSL compute shaders
package device

import (
	"errors"

	"github.com/informatrix/ndarray/internal/ndarray"
)

// ErrUnsupported is returned by a device kernel that cannot execute the
// requested operation on-device. The engine falls back to executing the
// operation on the host and transferring the result.
var ErrUnsupported = errors.New("operation not supported on device")

// Buffer is one device-resident allocation.
type Buffer interface {
	// Upload copies src from host memory into the buffer.
	Upload(src []byte) error

	// Download copies the buffer into dst in host memory.
	Download(dst []byte) error

	// ByteSize returns the allocation size.
	ByteSize() int

	// Release frees the device allocation. Safe to call once.
	Release()
}

// Device allocates buffers and runs elementwise kernels. Kernels
// operate on float32 elements; n is the element count. Kernels are
// synchronous from the engine's point of view: the engine provides
// asynchrony and dependency ordering above this interface.
type Device interface {
	// Name returns a short device name for logs.
	Name() string

	// Allocate reserves byteSize bytes on the device.
	Allocate(byteSize int) (Buffer, error)

	// BinaryOp computes dst[i] = a[i] op b[i] for equal-shape operands.
	BinaryOp(op ndarray.BinaryOp, dst, a, b Buffer, n int) error

	// BinaryScalarOp computes dst[i] = a[i] op scalar.
	BinaryScalarOp(op ndarray.BinaryOp, dst, a Buffer, scalar float32, n int) error

	// InPlaceOp computes dst[i] = dst[i] op b[i].
	InPlaceOp(op ndarray.BinaryOp, dst, b Buffer, n int) error

	// InPlaceScalarOp computes dst[i] = dst[i] op scalar.
	InPlaceScalarOp(op ndarray.BinaryOp, dst Buffer, scalar float32, n int) error

	// Fill sets dst[i] = v.
	Fill(dst Buffer, v float32, n int) error

	// Release frees device-global resources.
	Release()
}
