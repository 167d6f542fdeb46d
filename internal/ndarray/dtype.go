// Package ndarray provides the core array handle types for the ndarray library.
package ndarray

import "github.com/x448/float16"

// DataType represents the physical element type of an array's storage.
//
// Arithmetic is always performed in float32; Float16 is a storage-only
// precision where elements are converted on every host transfer and
// kernel access.
type DataType int

// Supported storage types.
const (
	Float32 DataType = iota
	Float16
)

// Size returns the byte size of one element.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float16:
		return 2
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float16:
		return "float16"
	default:
		return "unknown"
	}
}

// EncodeFloat16 converts float32 values to IEEE 754 half-precision bits.
func EncodeFloat16(src []float32, dst []uint16) {
	for i, v := range src {
		dst[i] = float16.Fromfloat32(v).Bits()
	}
}

// DecodeFloat16 converts IEEE 754 half-precision bits back to float32.
func DecodeFloat16(src []uint16, dst []float32) {
	for i, bits := range src {
		dst[i] = float16.Frombits(bits).Float32()
	}
}
