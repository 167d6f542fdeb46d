package ndarray

// BufferHandle is an opaque token for one engine-owned buffer. The zero
// value means "no buffer". Handles are issued by Allocate and Slice and
// become invalid after the matching Free.
type BufferHandle uint64

// NilBuffer is the handle of the "none" state.
const NilBuffer BufferHandle = 0

// BinaryOp selects the elementwise operation submitted to the engine.
type BinaryOp int

// Elementwise operations.
const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
)

// String returns the operation's name.
func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	default:
		return "unknown"
	}
}

// Distribution selects a sampling kernel.
type Distribution int

// Supported distributions.
const (
	DistGaussian Distribution = iota
	DistUniform
)

// Engine is the boundary to the execution substrate that performs
// allocation, computation and scheduling. Submissions (BinaryOp,
// InPlaceOp, FillScalar, Sample, CopyBuffer) are asynchronous: they
// return once the operation is scheduled, not once it has executed.
// Operations sharing a buffer are serialized in submission order;
// operations on disjoint buffers may run concurrently and out of order.
//
// Errors from asynchronously executing operations are reported by the
// next WaitRead/WaitWrite on an affected buffer, or by WaitAll.
type Engine interface {
	// Allocate reserves a buffer for shape on the given context. With
	// deferred set, physical storage is registered but not reserved
	// until first use. Fails with ErrAllocation if the device is
	// unavailable or out of memory.
	Allocate(shape Shape, ctx Context, dtype DataType, deferred bool) (BufferHandle, error)

	// Free releases the buffer once all pending operations against it
	// have completed. Idempotent; called exactly once per buffer by the
	// handle layer. Freed handles are never reused.
	Free(h BufferHandle)

	// CopyFromHost synchronously copies len(src) elements into the
	// buffer after a write barrier. Fails with ErrSizeMismatch if the
	// length differs from the buffer's element count.
	CopyFromHost(h BufferHandle, src []float32) error

	// CopyToHost synchronously copies the buffer into dst after a read
	// barrier. Same size contract as CopyFromHost.
	CopyToHost(h BufferHandle, dst []float32) error

	// CopyBuffer schedules a device-to-device (or device-to-host) copy
	// of src into a new buffer on ctx.
	CopyBuffer(src BufferHandle, ctx Context) (BufferHandle, error)

	// BinaryOp schedules dst = a op b into a freshly allocated buffer
	// with the broadcast-resolved shape.
	BinaryOp(op BinaryOp, a, b BufferHandle) (BufferHandle, error)

	// BinaryScalarOp schedules dst = a op scalar into a new buffer.
	BinaryScalarOp(op BinaryOp, a BufferHandle, scalar float32) (BufferHandle, error)

	// InPlaceOp schedules dst = dst op src, mutating dst's buffer.
	InPlaceOp(op BinaryOp, dst, src BufferHandle) error

	// InPlaceScalarOp schedules dst = dst op scalar in place.
	InPlaceScalarOp(op BinaryOp, dst BufferHandle, scalar float32) error

	// FillScalar schedules setting every element of dst to v.
	FillScalar(dst BufferHandle, v float32) error

	// Sample schedules filling dst with draws from the distribution.
	// p1/p2 are (mean, stddev) for Gaussian and (low, high) for Uniform.
	Sample(dist Distribution, p1, p2 float32, dst BufferHandle) error

	// WaitRead blocks until every pending operation writing to the
	// buffer has completed, then returns any sticky error.
	WaitRead(h BufferHandle) error

	// WaitWrite blocks until every pending operation reading or writing
	// the buffer has completed, then returns any sticky error.
	WaitWrite(h BufferHandle) error

	// WaitAll blocks until every pending operation across all buffers
	// has completed and returns the accumulated errors, if any.
	WaitAll() error

	// Shape returns the logical shape of the buffer.
	Shape(h BufferHandle) Shape

	// Device returns the placement of the buffer.
	Device(h BufferHandle) Context

	// DType returns the storage type of the buffer.
	DType(h BufferHandle) DataType

	// Slice returns a new buffer holding rows [begin, end) of the
	// leading dimension. Fails with ErrRange on invalid bounds.
	Slice(h BufferHandle, begin, end int) (BufferHandle, error)

	// HostData returns a read-only host view of the buffer's elements.
	// Callers must have issued a read barrier first; freshness is
	// otherwise undefined. Counts as first use: a deferred buffer is
	// allocated here. For Float16 storage the view is a decoded copy.
	HostData(h BufferHandle) []float32
}
