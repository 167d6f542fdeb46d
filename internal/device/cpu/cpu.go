// Package cpu implements the host-memory device: buffers are plain Go
// byte slices and kernels are pure-Go loops over float32 views.
package cpu

import (
	"fmt"
	"unsafe"

	"github.com/informatrix/ndarray/internal/device"
	"github.com/informatrix/ndarray/internal/ndarray"
)

// Verify that Device implements device.Device.
var _ device.Device = (*Device)(nil)

// Device is the host-memory device.
type Device struct{}

// New creates the host-memory device.
func New() *Device {
	return &Device{}
}

// Name returns the device name.
func (d *Device) Name() string { return "cpu" }

// Release is a no-op for host memory.
func (d *Device) Release() {}

// Allocate reserves a zeroed host buffer.
func (d *Device) Allocate(byteSize int) (device.Buffer, error) {
	return &hostBuffer{data: make([]byte, byteSize)}, nil
}

// hostBuffer is a device.Buffer backed by host memory.
type hostBuffer struct {
	data []byte
}

func (b *hostBuffer) Upload(src []byte) error {
	if len(src) != len(b.data) {
		return fmt.Errorf("%w: upload of %d bytes into %d-byte buffer", ndarray.ErrSizeMismatch, len(src), len(b.data))
	}
	copy(b.data, src)
	return nil
}

func (b *hostBuffer) Download(dst []byte) error {
	if len(dst) != len(b.data) {
		return fmt.Errorf("%w: download of %d bytes from %d-byte buffer", ndarray.ErrSizeMismatch, len(dst), len(b.data))
	}
	copy(dst, b.data)
	return nil
}

func (b *hostBuffer) ByteSize() int { return len(b.data) }

func (b *hostBuffer) Release() { b.data = nil }

// Bytes returns the live backing slice of a host buffer. Only valid for
// buffers allocated by this device.
func Bytes(b device.Buffer) []byte {
	return b.(*hostBuffer).data
}

// F32 reinterprets host bytes as a float32 slice without copying.
func F32(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// U16 reinterprets host bytes as a uint16 slice without copying. Used
// for float16 storage.
func U16(data []byte) []uint16 {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*uint16)(unsafe.Pointer(&data[0])), len(data)/2)
}

func (d *Device) view(b device.Buffer) []float32 {
	return F32(Bytes(b))
}

// BinaryOp computes dst = a op b elementwise for equal-length operands.
func (d *Device) BinaryOp(op ndarray.BinaryOp, dst, a, b device.Buffer, n int) error {
	binaryF32(op, d.view(dst)[:n], d.view(a)[:n], d.view(b)[:n])
	return nil
}

// BinaryScalarOp computes dst = a op scalar elementwise.
func (d *Device) BinaryScalarOp(op ndarray.BinaryOp, dst, a device.Buffer, scalar float32, n int) error {
	binaryScalarF32(op, d.view(dst)[:n], d.view(a)[:n], scalar)
	return nil
}

// InPlaceOp computes dst = dst op b elementwise.
func (d *Device) InPlaceOp(op ndarray.BinaryOp, dst, b device.Buffer, n int) error {
	inplaceF32(op, d.view(dst)[:n], d.view(b)[:n])
	return nil
}

// InPlaceScalarOp computes dst = dst op scalar elementwise.
func (d *Device) InPlaceScalarOp(op ndarray.BinaryOp, dst device.Buffer, scalar float32, n int) error {
	inplaceScalarF32(op, d.view(dst)[:n], scalar)
	return nil
}

// Fill sets every element of dst to v.
func (d *Device) Fill(dst device.Buffer, v float32, n int) error {
	fillF32(d.view(dst)[:n], v)
	return nil
}
