package ndarray

import (
	"errors"
	"testing"
)

func TestSyncCopyRoundtrip(t *testing.T) {
	eng := NewMockEngine()
	a := mustNew(t, eng, Shape{2, 3})
	defer a.Release()

	src := []float32{1, 2, 3, 4, 5, 6}
	if err := a.SyncCopyFromCPU(src); err != nil {
		t.Fatal(err)
	}

	dst := make([]float32, 6)
	if err := a.SyncCopyToCPU(dst); err != nil {
		t.Fatal(err)
	}
	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("element %d = %v, want %v", i, dst[i], src[i])
		}
	}
}

func TestSyncCopySizeMismatch(t *testing.T) {
	eng := NewMockEngine()
	a := mustNew(t, eng, Shape{4})
	defer a.Release()

	if err := a.SyncCopyFromCPU([]float32{1, 2}); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("short source: err = %v, want ErrSizeMismatch", err)
	}
	if err := a.SyncCopyToCPU(make([]float32, 7)); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("long destination: err = %v, want ErrSizeMismatch", err)
	}
}

func TestCopyTo(t *testing.T) {
	eng := NewMockEngine()
	a := mustFromSlice(t, eng, []float32{1, 2, 3}, Shape{3})
	defer a.Release()

	b, err := a.CopyTo(PinnedContext(0))
	if err != nil {
		t.Fatal(err)
	}
	defer b.Release()

	if err := b.WaitToRead(); err != nil {
		t.Fatal(err)
	}
	if b.Context() != PinnedContext(0) {
		t.Errorf("copy placement = %v, want %v", b.Context(), PinnedContext(0))
	}
	if b.Handle() == a.Handle() {
		t.Error("CopyTo returned the source buffer")
	}
	assertValues(t, b, []float32{1, 2, 3}, "CopyTo")

	// The copy is independent of the source.
	if err := b.SetScalar(9); err != nil {
		t.Fatal(err)
	}
	assertValues(t, a, []float32{1, 2, 3}, "source after mutating copy")
}

func TestOffset(t *testing.T) {
	eng := NewMockEngine()
	a := mustNew(t, eng, Shape{3, 4})
	defer a.Release()

	off, err := a.Offset(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if off != 9 {
		t.Errorf("Offset(2, 1) = %d, want 9", off)
	}

	for _, tc := range [][2]int{{-1, 0}, {0, -1}, {3, 0}, {0, 4}} {
		if _, err := a.Offset(tc[0], tc[1]); !errors.Is(err, ErrRange) {
			t.Errorf("Offset(%d, %d): err = %v, want ErrRange", tc[0], tc[1], err)
		}
	}
}

func TestOffsetRequiresRank2(t *testing.T) {
	eng := NewMockEngine()
	a := mustNew(t, eng, Shape{6})
	defer a.Release()

	if _, err := a.Offset(0, 0); !errors.Is(err, ErrRange) {
		t.Errorf("Offset on rank-1: err = %v, want ErrRange", err)
	}
	if _, err := a.At(0, 0); !errors.Is(err, ErrRange) {
		t.Errorf("At on rank-1: err = %v, want ErrRange", err)
	}
}

func TestAt(t *testing.T) {
	eng := NewMockEngine()
	a := mustFromSlice(t, eng, []float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	defer a.Release()

	v, err := a.At(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if v != 6 {
		t.Errorf("At(1, 2) = %v, want 6", v)
	}
}

func TestSlice(t *testing.T) {
	eng := NewMockEngine()
	a := mustFromSlice(t, eng, []float32{1, 2, 3, 4, 5, 6, 7, 8}, Shape{4, 2})
	defer a.Release()

	s, err := a.Slice(1, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Release()

	if !s.Shape().Equal(Shape{2, 2}) {
		t.Fatalf("slice shape = %v, want (2, 2)", s.Shape())
	}
	assertValues(t, s, []float32{3, 4, 5, 6}, "Slice(1, 3)")

	// The slice is a copy, not a view.
	if err := s.SetScalar(0); err != nil {
		t.Fatal(err)
	}
	assertValues(t, a, []float32{1, 2, 3, 4, 5, 6, 7, 8}, "source after mutating slice")
}

func TestFullSliceEqualsOriginal(t *testing.T) {
	eng := NewMockEngine()
	a := mustFromSlice(t, eng, []float32{1, 2, 3, 4, 5, 6}, Shape{3, 2})
	defer a.Release()

	s, err := a.Slice(0, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Release()

	if !s.Shape().Equal(a.Shape()) {
		t.Fatalf("full slice shape = %v, want %v", s.Shape(), a.Shape())
	}
	assertValues(t, s, []float32{1, 2, 3, 4, 5, 6}, "full slice data")
}

func TestSliceBounds(t *testing.T) {
	eng := NewMockEngine()
	a := mustNew(t, eng, Shape{4, 2})
	defer a.Release()

	for _, tc := range [][2]int{{-1, 2}, {2, 2}, {3, 1}, {0, 5}} {
		if _, err := a.Slice(tc[0], tc[1]); !errors.Is(err, ErrRange) {
			t.Errorf("Slice(%d, %d): err = %v, want ErrRange", tc[0], tc[1], err)
		}
	}
}

func TestDataAliasesBuffer(t *testing.T) {
	eng := NewMockEngine()
	a := mustFromSlice(t, eng, []float32{1, 2, 3}, Shape{3})
	defer a.Release()

	if err := a.WaitToRead(); err != nil {
		t.Fatal(err)
	}
	d := a.Data()
	if len(d) != 3 || d[0] != 1 || d[2] != 3 {
		t.Errorf("Data() = %v, want [1 2 3]", d)
	}
}
