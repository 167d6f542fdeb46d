package ndarray

import (
	"fmt"
	"sync/atomic"
)

// blob is the reference-counted owner of one engine buffer. All NDArrays
// produced by Clone share a single blob; the engine's Free is issued
// exactly once, when the last reference is released.
type blob struct {
	eng    Engine
	handle BufferHandle
	refs   atomic.Int32
}

func newBlob(eng Engine, h BufferHandle) *blob {
	b := &blob{eng: eng, handle: h}
	b.refs.Store(1)
	return b
}

// addRef increments the reference count (for Clone operations).
func (b *blob) addRef() {
	b.refs.Add(1)
}

// release decrements the reference count and frees the engine buffer
// when it reaches zero.
func (b *blob) release() {
	if b.refs.Add(-1) == 0 {
		b.eng.Free(b.handle)
	}
}

// NDArray is a reference-counted handle to one engine-owned buffer.
//
// Multiple NDArrays may share a buffer (after Clone); mutation through
// one is visible through all sharers. The zero value owns no buffer
// ("none" state) and rejects arithmetic, copy and slice operations.
//
// Operations that produce or mutate data are submitted to the engine
// asynchronously; call WaitToRead (or WaitToWrite before overwriting)
// before touching results. Buffer release is deterministic: the last
// Release triggers the engine Free immediately.
type NDArray struct {
	eng  Engine
	blob *blob
}

// options collects construction settings.
type options struct {
	dtype    DataType
	deferred bool
}

// Option configures array construction.
type Option func(*options)

// WithDType selects the storage precision (default Float32).
func WithDType(dt DataType) Option {
	return func(o *options) { o.dtype = dt }
}

// WithDeferredAlloc postpones physical storage reservation until the
// array is first used by an operation that requires storage.
func WithDeferredAlloc() Option {
	return func(o *options) { o.deferred = true }
}

// New creates an array of the given shape on ctx. Storage is reserved
// immediately unless WithDeferredAlloc is given. Fails with
// ErrAllocation if the device is unavailable or out of memory.
func New(eng Engine, shape Shape, ctx Context, opts ...Option) (*NDArray, error) {
	o := options{dtype: Float32}
	for _, opt := range opts {
		opt(&o)
	}

	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocation, err)
	}

	h, err := eng.Allocate(shape, ctx, o.dtype, o.deferred)
	if err != nil {
		return nil, err
	}
	return &NDArray{eng: eng, blob: newBlob(eng, h)}, nil
}

// FromSlice creates a CPU-resident array of the given shape and copies
// data into it synchronously. Fails with ErrSizeMismatch if len(data)
// does not match the shape's element count.
func FromSlice(eng Engine, data []float32, shape Shape) (*NDArray, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("%w: shape %v requires %d elements, got %d",
			ErrSizeMismatch, shape, shape.NumElements(), len(data))
	}

	a, err := New(eng, shape, CPUContext())
	if err != nil {
		return nil, err
	}
	if err := a.SyncCopyFromCPU(data); err != nil {
		a.Release()
		return nil, err
	}
	return a, nil
}

// FromValues creates a rank-1 CPU-resident array from data.
func FromValues(eng Engine, data []float32) (*NDArray, error) {
	return FromSlice(eng, data, Shape{len(data)})
}

// FromHandle wraps a buffer handle the caller already obtained from the
// engine, e.g. one returned by a prior engine call. The array takes
// ownership: the buffer is freed when the last reference is released.
func FromHandle(eng Engine, h BufferHandle) *NDArray {
	if h == NilBuffer {
		return &NDArray{eng: eng}
	}
	return &NDArray{eng: eng, blob: newBlob(eng, h)}
}

// IsNone reports whether the array owns no buffer.
func (a *NDArray) IsNone() bool {
	return a == nil || a.blob == nil
}

// Handle returns the opaque engine handle, or NilBuffer for the none
// state.
func (a *NDArray) Handle() BufferHandle {
	if a.IsNone() {
		return NilBuffer
	}
	return a.blob.handle
}

// Engine returns the engine this array is bound to.
func (a *NDArray) Engine() Engine {
	return a.eng
}

// Clone returns a new handle sharing this array's buffer. The share
// count is incremented; no new buffer is allocated. Mutations through
// either handle are visible through both.
func (a *NDArray) Clone() *NDArray {
	if a.IsNone() {
		return &NDArray{eng: a.eng}
	}
	a.blob.addRef()
	return &NDArray{eng: a.eng, blob: a.blob}
}

// Release drops this handle's reference. When the last reference is
// released the buffer is freed through the engine. Release on the none
// state is a no-op; the array is in the none state afterwards.
func (a *NDArray) Release() {
	if a.IsNone() {
		return
	}
	a.blob.release()
	a.blob = nil
}

// Shape returns the array's shape.
func (a *NDArray) Shape() Shape {
	if a.IsNone() {
		return nil
	}
	return a.eng.Shape(a.blob.handle)
}

// DType returns the array's storage type.
func (a *NDArray) DType() DataType {
	if a.IsNone() {
		return Float32
	}
	return a.eng.DType(a.blob.handle)
}

// Context queries the engine for the array's device placement.
func (a *NDArray) Context() Context {
	if a.IsNone() {
		return CPUContext()
	}
	return a.eng.Device(a.blob.handle)
}

// String returns a human-readable description of the array.
func (a *NDArray) String() string {
	if a.IsNone() {
		return "NDArray(none)"
	}
	return fmt.Sprintf("NDArray[%s]%v on %s", a.DType(), a.Shape(), a.Context())
}

// WaitToRead blocks until every pending operation that writes to this
// array's buffer has completed. After it returns, concurrent reads are
// safe. Errors from earlier asynchronous operations against this
// buffer are reported here.
func (a *NDArray) WaitToRead() error {
	if a.IsNone() {
		return fmt.Errorf("%w: wait on none array", ErrEngine)
	}
	return a.eng.WaitRead(a.blob.handle)
}

// WaitToWrite blocks until every pending operation that reads or writes
// this array's buffer has completed. After it returns, the caller may
// safely overwrite the buffer in place.
func (a *NDArray) WaitToWrite() error {
	if a.IsNone() {
		return fmt.Errorf("%w: wait on none array", ErrEngine)
	}
	return a.eng.WaitWrite(a.blob.handle)
}

// WaitAll blocks until every pending operation across all buffers of
// eng has completed. Used for global synchronization points, e.g.
// before process exit or around timing measurements.
func WaitAll(eng Engine) error {
	return eng.WaitAll()
}

// none returns the canonical error for operations on unowned buffers.
func (a *NDArray) none(op string) error {
	return fmt.Errorf("%w: %s on none array", ErrEngine, op)
}
