package ndarray

import (
	"errors"
	"testing"
)

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		shape Shape
		want  int
	}{
		{Shape{}, 1},
		{Shape{5}, 5},
		{Shape{2, 3}, 6},
		{Shape{2, 3, 4}, 24},
		{Shape{0, 4}, 0},
	}
	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.want {
			t.Errorf("%v.NumElements() = %d, want %d", tt.shape, got, tt.want)
		}
	}
}

func TestShapeValidate(t *testing.T) {
	if err := (Shape{2, 0, 3}).Validate(); err != nil {
		t.Errorf("zero-size dimension should be valid: %v", err)
	}
	if err := (Shape{2, -1}).Validate(); err == nil {
		t.Error("negative dimension should be invalid")
	}
}

func TestShapeCloneIndependent(t *testing.T) {
	s := Shape{2, 3}
	c := s.Clone()
	c[0] = 9
	if s[0] != 2 {
		t.Error("Clone shares backing storage with original")
	}
}

func TestComputeStrides(t *testing.T) {
	got := Shape{2, 3, 4}.ComputeStrides()
	want := []int{12, 4, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("strides = %v, want %v", got, want)
		}
	}
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		a, b   Shape
		want   Shape
		needed bool
	}{
		{Shape{3, 5}, Shape{3, 5}, Shape{3, 5}, false},
		{Shape{3, 1}, Shape{3, 5}, Shape{3, 5}, true},
		{Shape{1, 5}, Shape{3, 5}, Shape{3, 5}, true},
		{Shape{5}, Shape{3, 5}, Shape{3, 5}, true},
		{Shape{}, Shape{2, 2}, Shape{2, 2}, true},
	}
	for _, tt := range tests {
		got, needed, err := BroadcastShapes(tt.a, tt.b)
		if err != nil {
			t.Errorf("BroadcastShapes(%v, %v) failed: %v", tt.a, tt.b, err)
			continue
		}
		if !got.Equal(tt.want) || needed != tt.needed {
			t.Errorf("BroadcastShapes(%v, %v) = %v, %v; want %v, %v",
				tt.a, tt.b, got, needed, tt.want, tt.needed)
		}
	}
}

func TestBroadcastShapesIncompatible(t *testing.T) {
	_, _, err := BroadcastShapes(Shape{3, 4}, Shape{3, 5})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("err = %v, want ErrShapeMismatch", err)
	}
}

func TestContext(t *testing.T) {
	cpu := CPUContext()
	gpu := GPUContext(1)
	pinned := PinnedContext(0)

	if !cpu.HostResident() || !pinned.HostResident() {
		t.Error("CPU and pinned contexts must be host resident")
	}
	if gpu.HostResident() {
		t.Error("GPU context must not be host resident")
	}
	if gpu.DeviceType() != GPU || gpu.DeviceID() != 1 {
		t.Errorf("GPUContext(1) = %v", gpu)
	}
	if got := gpu.String(); got != "GPU(1)" {
		t.Errorf("String() = %q, want GPU(1)", got)
	}
	if cpu != NewContext(CPU, 0) {
		t.Error("contexts with equal kind and index must compare equal")
	}
}

func TestDataTypeSize(t *testing.T) {
	if Float32.Size() != 4 {
		t.Errorf("Float32.Size() = %d, want 4", Float32.Size())
	}
	if Float16.Size() != 2 {
		t.Errorf("Float16.Size() = %d, want 2", Float16.Size())
	}
}

func TestFloat16Roundtrip(t *testing.T) {
	src := []float32{0, 1, -1, 0.5, 65504}
	bits := make([]uint16, len(src))
	EncodeFloat16(src, bits)
	back := make([]float32, len(src))
	DecodeFloat16(bits, back)
	for i := range src {
		if back[i] != src[i] {
			t.Errorf("roundtrip of %v = %v", src[i], back[i])
		}
	}
}
