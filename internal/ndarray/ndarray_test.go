package ndarray

import (
	"errors"
	"fmt"
	"testing"
)

// Test helpers

func mustNew(t *testing.T, eng Engine, shape Shape) *NDArray {
	t.Helper()
	a, err := New(eng, shape, CPUContext())
	if err != nil {
		t.Fatalf("New(%v) failed: %v", shape, err)
	}
	return a
}

func mustFromSlice(t *testing.T, eng Engine, data []float32, shape Shape) *NDArray {
	t.Helper()
	a, err := FromSlice(eng, data, shape)
	if err != nil {
		t.Fatalf("FromSlice(%v, %v) failed: %v", data, shape, err)
	}
	return a
}

func assertValues(t *testing.T, a *NDArray, want []float32, msg string) {
	t.Helper()
	got := make([]float32, a.Shape().NumElements())
	if err := a.SyncCopyToCPU(got); err != nil {
		t.Fatalf("%s: SyncCopyToCPU failed: %v", msg, err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s: element %d = %v, want %v", msg, i, got[i], want[i])
		}
	}
}

// Construction

func TestNewAllocates(t *testing.T) {
	eng := NewMockEngine()
	a := mustNew(t, eng, Shape{2, 3})
	defer a.Release()

	if a.IsNone() {
		t.Fatal("fresh array reports none state")
	}
	if !a.Shape().Equal(Shape{2, 3}) {
		t.Errorf("Shape() = %v, want (2, 3)", a.Shape())
	}
	if a.DType() != Float32 {
		t.Errorf("DType() = %v, want float32", a.DType())
	}
	if a.Context() != CPUContext() {
		t.Errorf("Context() = %v, want %v", a.Context(), CPUContext())
	}
}

func TestNewRejectsNegativeDimension(t *testing.T) {
	eng := NewMockEngine()
	_, err := New(eng, Shape{2, -1}, CPUContext())
	if !errors.Is(err, ErrAllocation) {
		t.Fatalf("New with negative dim: err = %v, want ErrAllocation", err)
	}
}

func TestNewScalarShape(t *testing.T) {
	eng := NewMockEngine()
	a := mustNew(t, eng, Shape{})
	defer a.Release()

	if n := a.Shape().NumElements(); n != 1 {
		t.Errorf("scalar NumElements() = %d, want 1", n)
	}
}

func TestNewZeroSizedDimension(t *testing.T) {
	eng := NewMockEngine()
	a := mustNew(t, eng, Shape{0, 4})
	defer a.Release()

	if n := a.Shape().NumElements(); n != 0 {
		t.Errorf("NumElements() = %d, want 0", n)
	}
	// Zero-element arrays still support barriers and copies.
	if err := a.WaitToRead(); err != nil {
		t.Errorf("WaitToRead on empty array: %v", err)
	}
	if err := a.SyncCopyToCPU(nil); err != nil {
		t.Errorf("SyncCopyToCPU on empty array: %v", err)
	}
}

func TestFromSliceSizeMismatch(t *testing.T) {
	eng := NewMockEngine()
	_, err := FromSlice(eng, []float32{1, 2, 3}, Shape{2, 2})
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("err = %v, want ErrSizeMismatch", err)
	}
	if eng.Live() != 0 {
		t.Errorf("failed FromSlice leaked %d buffers", eng.Live())
	}
}

func TestFromValues(t *testing.T) {
	eng := NewMockEngine()
	a, err := FromValues(eng, []float32{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Release()

	if !a.Shape().Equal(Shape{3}) {
		t.Errorf("Shape() = %v, want (3)", a.Shape())
	}
	assertValues(t, a, []float32{1, 2, 3}, "FromValues")
}

// Reference counting

func TestReleaseFreesExactlyOnce(t *testing.T) {
	eng := NewMockEngine()
	a := mustNew(t, eng, Shape{4})
	h := a.Handle()

	a.Release()
	if got := eng.FreeCalls[h]; got != 1 {
		t.Fatalf("Free called %d times, want 1", got)
	}

	// Release after release is a no-op.
	a.Release()
	if got := eng.FreeCalls[h]; got != 1 {
		t.Errorf("Free called %d times after double release, want 1", got)
	}
}

func TestCloneSharesBuffer(t *testing.T) {
	eng := NewMockEngine()
	a := mustFromSlice(t, eng, []float32{1, 2, 3, 4}, Shape{4})
	b := a.Clone()

	if a.Handle() != b.Handle() {
		t.Fatalf("clone handle %d != original %d", b.Handle(), a.Handle())
	}

	// Mutation through one handle is visible through the other.
	if err := b.SetScalar(7); err != nil {
		t.Fatal(err)
	}
	assertValues(t, a, []float32{7, 7, 7, 7}, "after SetScalar through clone")

	// The buffer survives releasing either handle alone.
	h := a.Handle()
	a.Release()
	if got := eng.FreeCalls[h]; got != 0 {
		t.Fatalf("buffer freed while a clone still holds it")
	}
	b.Release()
	if got := eng.FreeCalls[h]; got != 1 {
		t.Errorf("Free called %d times after last release, want 1", got)
	}
}

func TestCloneChainRefCounts(t *testing.T) {
	eng := NewMockEngine()
	a := mustNew(t, eng, Shape{2})
	h := a.Handle()

	clones := make([]*NDArray, 5)
	for i := range clones {
		clones[i] = a.Clone()
	}
	a.Release()
	for _, c := range clones {
		if eng.FreeCalls[h] != 0 {
			t.Fatal("buffer freed before last reference dropped")
		}
		c.Release()
	}
	if eng.FreeCalls[h] != 1 {
		t.Errorf("Free called %d times, want 1", eng.FreeCalls[h])
	}
}

// None state

func TestNoneStateRejectsOperations(t *testing.T) {
	eng := NewMockEngine()
	none := FromHandle(eng, NilBuffer)

	if !none.IsNone() {
		t.Fatal("FromHandle(NilBuffer) is not none")
	}

	checks := map[string]error{
		"WaitToRead":      none.WaitToRead(),
		"WaitToWrite":     none.WaitToWrite(),
		"SetScalar":       none.SetScalar(1),
		"SyncCopyFromCPU": none.SyncCopyFromCPU(nil),
		"SyncCopyToCPU":   none.SyncCopyToCPU(nil),
	}
	for op, err := range checks {
		if !errors.Is(err, ErrEngine) {
			t.Errorf("%s on none array: err = %v, want ErrEngine", op, err)
		}
	}

	if _, err := none.Add(none); !errors.Is(err, ErrEngine) {
		t.Errorf("Add on none array: err = %v, want ErrEngine", err)
	}
	if _, err := none.Slice(0, 1); !errors.Is(err, ErrEngine) {
		t.Errorf("Slice on none array: err = %v, want ErrEngine", err)
	}

	// Safe accessors degrade instead of failing.
	if none.Shape() != nil {
		t.Errorf("Shape() on none = %v, want nil", none.Shape())
	}
	if none.Data() != nil {
		t.Errorf("Data() on none = %v, want nil", none.Data())
	}
	none.Release() // no-op
}

func TestNilReceiverIsNone(t *testing.T) {
	var a *NDArray
	if !a.IsNone() {
		t.Error("nil *NDArray should report none state")
	}
}

func TestShapeResultIsACopy(t *testing.T) {
	eng := NewMockEngine()
	a := mustNew(t, eng, Shape{2, 3})
	defer a.Release()

	s := a.Shape()
	s[0] = 99
	if !a.Shape().Equal(Shape{2, 3}) {
		t.Errorf("mutating Shape() result corrupted the buffer record: %v", a.Shape())
	}
}

func TestString(t *testing.T) {
	eng := NewMockEngine()
	a := mustNew(t, eng, Shape{2, 3})
	defer a.Release()

	want := fmt.Sprintf("NDArray[float32]%v on CPU(0)", Shape{2, 3})
	if got := a.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := FromHandle(eng, NilBuffer).String(); got != "NDArray(none)" {
		t.Errorf("none String() = %q", got)
	}
}

// Wait barriers

func TestWaitSurfacesDeferredError(t *testing.T) {
	eng := NewMockEngine()
	a := mustNew(t, eng, Shape{2})
	defer a.Release()

	injected := fmt.Errorf("%w: kernel failed", ErrEngine)
	eng.FailWait = injected
	if err := a.WaitToRead(); !errors.Is(err, ErrEngine) {
		t.Errorf("WaitToRead = %v, want injected engine error", err)
	}
	// The error is consumed by the barrier that reported it.
	if err := a.WaitToRead(); err != nil {
		t.Errorf("second WaitToRead = %v, want nil", err)
	}

	eng.FailWait = injected
	if err := WaitAll(eng); !errors.Is(err, ErrEngine) {
		t.Errorf("WaitAll = %v, want injected engine error", err)
	}
}
