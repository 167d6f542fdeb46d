package ndarray

import "fmt"

// Elementwise arithmetic. Out-of-place operations allocate a result
// buffer with the broadcast-resolved shape and submit asynchronously;
// the returned array must not be read before WaitToRead. In-place
// operations mutate the receiver's buffer and return the receiver for
// chaining. Shape validation happens synchronously at submission:
// non-broadcastable operands fail with ErrShapeMismatch and leave both
// operands unmodified.

// Add returns a new array holding the elementwise sum a + other.
func (a *NDArray) Add(other *NDArray) (*NDArray, error) {
	return a.binary(OpAdd, other)
}

// Sub returns a new array holding the elementwise difference a - other.
func (a *NDArray) Sub(other *NDArray) (*NDArray, error) {
	return a.binary(OpSub, other)
}

// Mul returns a new array holding the elementwise product a * other.
func (a *NDArray) Mul(other *NDArray) (*NDArray, error) {
	return a.binary(OpMul, other)
}

// Div returns a new array holding the elementwise quotient a / other.
func (a *NDArray) Div(other *NDArray) (*NDArray, error) {
	return a.binary(OpDiv, other)
}

// AddScalar returns a new array holding a + scalar.
func (a *NDArray) AddScalar(scalar float32) (*NDArray, error) {
	return a.binaryScalar(OpAdd, scalar)
}

// SubScalar returns a new array holding a - scalar.
func (a *NDArray) SubScalar(scalar float32) (*NDArray, error) {
	return a.binaryScalar(OpSub, scalar)
}

// MulScalar returns a new array holding a * scalar.
func (a *NDArray) MulScalar(scalar float32) (*NDArray, error) {
	return a.binaryScalar(OpMul, scalar)
}

// DivScalar returns a new array holding a / scalar.
func (a *NDArray) DivScalar(scalar float32) (*NDArray, error) {
	return a.binaryScalar(OpDiv, scalar)
}

// AddInPlace mutates the receiver's buffer: a += other.
func (a *NDArray) AddInPlace(other *NDArray) (*NDArray, error) {
	return a.inPlace(OpAdd, other)
}

// SubInPlace mutates the receiver's buffer: a -= other.
func (a *NDArray) SubInPlace(other *NDArray) (*NDArray, error) {
	return a.inPlace(OpSub, other)
}

// MulInPlace mutates the receiver's buffer: a *= other.
func (a *NDArray) MulInPlace(other *NDArray) (*NDArray, error) {
	return a.inPlace(OpMul, other)
}

// DivInPlace mutates the receiver's buffer: a /= other.
func (a *NDArray) DivInPlace(other *NDArray) (*NDArray, error) {
	return a.inPlace(OpDiv, other)
}

// AddScalarInPlace mutates the receiver's buffer: a += scalar.
func (a *NDArray) AddScalarInPlace(scalar float32) (*NDArray, error) {
	return a.inPlaceScalar(OpAdd, scalar)
}

// SubScalarInPlace mutates the receiver's buffer: a -= scalar.
func (a *NDArray) SubScalarInPlace(scalar float32) (*NDArray, error) {
	return a.inPlaceScalar(OpSub, scalar)
}

// MulScalarInPlace mutates the receiver's buffer: a *= scalar.
func (a *NDArray) MulScalarInPlace(scalar float32) (*NDArray, error) {
	return a.inPlaceScalar(OpMul, scalar)
}

// DivScalarInPlace mutates the receiver's buffer: a /= scalar.
func (a *NDArray) DivScalarInPlace(scalar float32) (*NDArray, error) {
	return a.inPlaceScalar(OpDiv, scalar)
}

// SetScalar sets every element of the array to v (broadcast assignment).
// The write is scheduled asynchronously.
func (a *NDArray) SetScalar(v float32) error {
	if a.IsNone() {
		return a.none("SetScalar")
	}
	return a.eng.FillScalar(a.blob.handle, v)
}

func (a *NDArray) binary(op BinaryOp, other *NDArray) (*NDArray, error) {
	if a.IsNone() || other.IsNone() {
		return nil, a.none(op.String())
	}
	if _, _, err := BroadcastShapes(a.Shape(), other.Shape()); err != nil {
		return nil, err
	}

	h, err := a.eng.BinaryOp(op, a.blob.handle, other.blob.handle)
	if err != nil {
		return nil, err
	}
	return FromHandle(a.eng, h), nil
}

func (a *NDArray) binaryScalar(op BinaryOp, scalar float32) (*NDArray, error) {
	if a.IsNone() {
		return nil, a.none(op.String() + " scalar")
	}
	h, err := a.eng.BinaryScalarOp(op, a.blob.handle, scalar)
	if err != nil {
		return nil, err
	}
	return FromHandle(a.eng, h), nil
}

func (a *NDArray) inPlace(op BinaryOp, other *NDArray) (*NDArray, error) {
	if a.IsNone() || other.IsNone() {
		return nil, a.none(op.String() + " in place")
	}

	// The operand must broadcast onto the receiver without growing it.
	out, _, err := BroadcastShapes(a.Shape(), other.Shape())
	if err != nil {
		return nil, err
	}
	if !out.Equal(a.Shape()) {
		return nil, fmt.Errorf("%w: in-place %s would broadcast receiver %v to %v",
			ErrShapeMismatch, op, a.Shape(), out)
	}

	if err := a.eng.InPlaceOp(op, a.blob.handle, other.blob.handle); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *NDArray) inPlaceScalar(op BinaryOp, scalar float32) (*NDArray, error) {
	if a.IsNone() {
		return nil, a.none(op.String() + " scalar in place")
	}
	if err := a.eng.InPlaceScalarOp(op, a.blob.handle, scalar); err != nil {
		return nil, err
	}
	return a, nil
}
