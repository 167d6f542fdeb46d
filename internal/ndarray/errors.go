package ndarray

import "errors"

// Error taxonomy for the array handle layer. All failures originate in
// the engine and are surfaced synchronously at the triggering call;
// failures of asynchronously executing operations surface at the next
// Wait barrier that touches the affected buffer. Nothing is retried.
//
// Callers match with errors.Is:
//
//	if errors.Is(err, ndarray.ErrShapeMismatch) { ... }
var (
	// ErrAllocation indicates the device is unavailable or out of memory.
	ErrAllocation = errors.New("allocation failed")

	// ErrShapeMismatch indicates incompatible operand shapes for a
	// binary elementwise operation. This is a caller bug.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrSizeMismatch indicates a host buffer length that does not match
	// the array's element count on a synchronous copy.
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrRange indicates invalid slice bounds.
	ErrRange = errors.New("range error")

	// ErrEngine indicates a generic engine-level submission failure,
	// e.g. an operation on a handle in an invalid state.
	ErrEngine = errors.New("engine error")
)
