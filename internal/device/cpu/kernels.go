package cpu

import "github.com/informatrix/ndarray/internal/ndarray"

// Exported kernel entry points, shared by the Device methods and the
// engine's host-fallback path.

// BinaryScalar computes dst = a op s elementwise.
func BinaryScalar(op ndarray.BinaryOp, dst, a []float32, s float32) {
	binaryScalarF32(op, dst, a, s)
}

// InPlaceScalar computes dst = dst op s elementwise.
func InPlaceScalar(op ndarray.BinaryOp, dst []float32, s float32) {
	inplaceScalarF32(op, dst, s)
}

// Fill sets every element of dst to v.
func Fill(dst []float32, v float32) {
	fillF32(dst, v)
}

// Float32 vectorized operations

func addF32(dst, a, b []float32) {
	for i := range a {
		dst[i] = a[i] + b[i]
	}
}

func subF32(dst, a, b []float32) {
	for i := range a {
		dst[i] = a[i] - b[i]
	}
}

func mulF32(dst, a, b []float32) {
	for i := range a {
		dst[i] = a[i] * b[i]
	}
}

func divF32(dst, a, b []float32) {
	for i := range a {
		dst[i] = a[i] / b[i]
	}
}

func binaryF32(op ndarray.BinaryOp, dst, a, b []float32) {
	switch op {
	case ndarray.OpAdd:
		addF32(dst, a, b)
	case ndarray.OpSub:
		subF32(dst, a, b)
	case ndarray.OpMul:
		mulF32(dst, a, b)
	case ndarray.OpDiv:
		divF32(dst, a, b)
	}
}

// Float32 scalar operations

func binaryScalarF32(op ndarray.BinaryOp, dst, a []float32, s float32) {
	switch op {
	case ndarray.OpAdd:
		for i := range a {
			dst[i] = a[i] + s
		}
	case ndarray.OpSub:
		for i := range a {
			dst[i] = a[i] - s
		}
	case ndarray.OpMul:
		for i := range a {
			dst[i] = a[i] * s
		}
	case ndarray.OpDiv:
		for i := range a {
			dst[i] = a[i] / s
		}
	}
}

// Float32 inplace operations

func inplaceF32(op ndarray.BinaryOp, a, b []float32) {
	switch op {
	case ndarray.OpAdd:
		for i := range a {
			a[i] += b[i]
		}
	case ndarray.OpSub:
		for i := range a {
			a[i] -= b[i]
		}
	case ndarray.OpMul:
		for i := range a {
			a[i] *= b[i]
		}
	case ndarray.OpDiv:
		for i := range a {
			a[i] /= b[i]
		}
	}
}

func inplaceScalarF32(op ndarray.BinaryOp, a []float32, s float32) {
	switch op {
	case ndarray.OpAdd:
		for i := range a {
			a[i] += s
		}
	case ndarray.OpSub:
		for i := range a {
			a[i] -= s
		}
	case ndarray.OpMul:
		for i := range a {
			a[i] *= s
		}
	case ndarray.OpDiv:
		for i := range a {
			a[i] /= s
		}
	}
}

func fillF32(a []float32, v float32) {
	for i := range a {
		a[i] = v
	}
}
