package ndarray

import "fmt"

// SyncCopyFromCPU synchronously copies src into the array's buffer.
//
// A write barrier (WaitToWrite) is taken first, so the copy cannot race
// with previously submitted operations that read or write this buffer.
// This is the way to load data from host memory that the engine does
// not track. Fails with ErrSizeMismatch if len(src) differs from the
// array's element count.
func (a *NDArray) SyncCopyFromCPU(src []float32) error {
	if a.IsNone() {
		return a.none("SyncCopyFromCPU")
	}
	return a.eng.CopyFromHost(a.blob.handle, src)
}

// SyncCopyToCPU synchronously copies the array's elements into dst.
//
// A read barrier (WaitToRead) is taken first, so every pending write to
// this buffer has completed before the copy. Fails with ErrSizeMismatch
// if len(dst) differs from the array's element count.
func (a *NDArray) SyncCopyToCPU(dst []float32) error {
	if a.IsNone() {
		return a.none("SyncCopyToCPU")
	}
	return a.eng.CopyToHost(a.blob.handle, dst)
}

// CopyTo schedules a copy of the array onto ctx and returns the new
// array. The copy runs asynchronously; WaitToRead on the result before
// consuming it.
func (a *NDArray) CopyTo(ctx Context) (*NDArray, error) {
	if a.IsNone() {
		return nil, a.none("CopyTo")
	}
	h, err := a.eng.CopyBuffer(a.blob.handle, ctx)
	if err != nil {
		return nil, err
	}
	return FromHandle(a.eng, h), nil
}

// Offset returns the linear element offset of (row, col) assuming
// row-major layout. It is defined for rank-2 arrays only; any other
// rank is an error.
func (a *NDArray) Offset(row, col int) (int, error) {
	if a.IsNone() {
		return 0, a.none("Offset")
	}
	shape := a.Shape()
	if len(shape) != 2 {
		return 0, fmt.Errorf("%w: Offset requires a rank-2 array, got shape %v", ErrRange, shape)
	}
	if row < 0 || row >= shape[0] || col < 0 || col >= shape[1] {
		return 0, fmt.Errorf("%w: index (%d, %d) out of bounds for shape %v", ErrRange, row, col, shape)
	}
	return row*shape[1] + col, nil
}

// At returns the element at (row, col) of a rank-2 array.
//
// At takes an implicit read barrier before indexing, so the value
// reflects every previously submitted write to this buffer.
func (a *NDArray) At(row, col int) (float32, error) {
	off, err := a.Offset(row, col)
	if err != nil {
		return 0, err
	}
	if err := a.WaitToRead(); err != nil {
		return 0, err
	}
	return a.eng.HostData(a.blob.handle)[off], nil
}

// Slice returns a new array holding rows [begin, end) of the leading
// dimension. The slice is a copy scheduled through the engine. Fails
// with ErrRange if end <= begin or end exceeds the leading dimension.
func (a *NDArray) Slice(begin, end int) (*NDArray, error) {
	if a.IsNone() {
		return nil, a.none("Slice")
	}
	h, err := a.eng.Slice(a.blob.handle, begin, end)
	if err != nil {
		return nil, err
	}
	return FromHandle(a.eng, h), nil
}

// Data returns a read-only host view of the array's elements. On an
// array with deferred allocation this counts as first use and forces
// storage to be reserved.
//
// The caller must have ensured synchronization with WaitToRead (or
// SyncCopyToCPU); without a prior read barrier the freshness of the
// view is undefined. Mutating the returned slice is a caller error.
func (a *NDArray) Data() []float32 {
	if a.IsNone() {
		return nil
	}
	return a.eng.HostData(a.blob.handle)
}
