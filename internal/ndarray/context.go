package ndarray

import "fmt"

// DeviceType identifies the kind of device an array is placed on.
type DeviceType int

// Supported device kinds.
const (
	CPU DeviceType = iota
	GPU
	CPUPinned
)

// String returns a human-readable device name.
func (d DeviceType) String() string {
	switch d {
	case CPU:
		return "CPU"
	case GPU:
		return "GPU"
	case CPUPinned:
		return "CPUPinned"
	default:
		return "Unknown"
	}
}

// Context describes the physical placement of an array: a device kind
// plus a device index. Kind and index together uniquely identify a
// placement. Context is an immutable value type with no ownership
// semantics.
type Context struct {
	kind  DeviceType
	index int
}

// NewContext creates a context for the given device kind and index.
func NewContext(kind DeviceType, index int) Context {
	return Context{kind: kind, index: index}
}

// CPUContext returns the context for host CPU device 0.
func CPUContext() Context {
	return Context{kind: CPU}
}

// GPUContext returns the context for the GPU with the given index.
func GPUContext(index int) Context {
	return Context{kind: GPU, index: index}
}

// PinnedContext returns the context for page-locked host memory on the
// given device index.
func PinnedContext(index int) Context {
	return Context{kind: CPUPinned, index: index}
}

// DeviceType returns the kind of the device.
func (c Context) DeviceType() DeviceType {
	return c.kind
}

// DeviceID returns the index of the device.
func (c Context) DeviceID() int {
	return c.index
}

// HostResident reports whether storage for this context lives in host
// memory (CPU and pinned-host placements).
func (c Context) HostResident() bool {
	return c.kind == CPU || c.kind == CPUPinned
}

// String returns the context in kind(index) form.
func (c Context) String() string {
	return fmt.Sprintf("%s(%d)", c.kind, c.index)
}
