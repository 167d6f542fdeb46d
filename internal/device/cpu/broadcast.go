package cpu

import "github.com/informatrix/ndarray/internal/ndarray"

// BinaryBroadcast computes dst = a op b with NumPy-style broadcasting.
// dst must have outShape's element count; the fast equal-shape path is
// taken when no broadcasting is needed. Exported for the engine's
// host-fallback path.
func BinaryBroadcast(op ndarray.BinaryOp, dst, a, b []float32, aShape, bShape, outShape ndarray.Shape) {
	if aShape.Equal(bShape) {
		binaryF32(op, dst, a, b)
		return
	}

	outStrides := outShape.ComputeStrides()
	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)

	n := outShape.NumElements()
	for i := 0; i < n; i++ {
		aIdx := flatIndex(i, outStrides, aStrides)
		bIdx := flatIndex(i, outStrides, bStrides)
		switch op {
		case ndarray.OpAdd:
			dst[i] = a[aIdx] + b[bIdx]
		case ndarray.OpSub:
			dst[i] = a[aIdx] - b[bIdx]
		case ndarray.OpMul:
			dst[i] = a[aIdx] * b[bIdx]
		case ndarray.OpDiv:
			dst[i] = a[aIdx] / b[bIdx]
		}
	}
}

// InPlaceBroadcast computes dst = dst op b where b broadcasts onto
// dst's shape.
func InPlaceBroadcast(op ndarray.BinaryOp, dst, b []float32, dstShape, bShape ndarray.Shape) {
	if dstShape.Equal(bShape) {
		inplaceF32(op, dst, b)
		return
	}

	outStrides := dstShape.ComputeStrides()
	bStrides := broadcastStrides(bShape, dstShape)

	n := dstShape.NumElements()
	for i := 0; i < n; i++ {
		bIdx := flatIndex(i, outStrides, bStrides)
		switch op {
		case ndarray.OpAdd:
			dst[i] += b[bIdx]
		case ndarray.OpSub:
			dst[i] -= b[bIdx]
		case ndarray.OpMul:
			dst[i] *= b[bIdx]
		case ndarray.OpDiv:
			dst[i] /= b[bIdx]
		}
	}
}

// broadcastStrides returns the strides of inShape aligned to outShape's
// rank, with zero stride on broadcast dimensions.
func broadcastStrides(inShape, outShape ndarray.Shape) []int {
	inStrides := inShape.ComputeStrides()
	aligned := make([]int, len(outShape))
	offset := len(outShape) - len(inShape)
	for i := range outShape {
		if i < offset {
			continue
		}
		if inShape[i-offset] == 1 {
			continue
		}
		aligned[i] = inStrides[i-offset]
	}
	return aligned
}

// flatIndex maps a flat output index to a flat input index using the
// aligned (possibly zero) input strides.
func flatIndex(flatIdx int, outStrides, inStrides []int) int {
	idx := 0
	temp := flatIdx
	for i := range outStrides {
		dimIdx := temp / outStrides[i]
		temp %= outStrides[i]
		idx += dimIdx * inStrides[i]
	}
	return idx
}
