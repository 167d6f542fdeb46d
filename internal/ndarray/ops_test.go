package ndarray

import (
	"errors"
	"math"
	"testing"
)

func TestBinaryOps(t *testing.T) {
	tests := []struct {
		name string
		fn   func(a, b *NDArray) (*NDArray, error)
		want []float32
	}{
		{"Add", (*NDArray).Add, []float32{2, 4, 6, 8}},
		{"Sub", (*NDArray).Sub, []float32{0, 0, 0, 0}},
		{"Mul", (*NDArray).Mul, []float32{1, 4, 9, 16}},
		{"Div", (*NDArray).Div, []float32{1, 1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := NewMockEngine()
			a := mustFromSlice(t, eng, []float32{1, 2, 3, 4}, Shape{2, 2})
			defer a.Release()
			b := mustFromSlice(t, eng, []float32{1, 2, 3, 4}, Shape{2, 2})
			defer b.Release()

			c, err := tt.fn(a, b)
			if err != nil {
				t.Fatal(err)
			}
			defer c.Release()

			if err := c.WaitToRead(); err != nil {
				t.Fatal(err)
			}
			assertValues(t, c, tt.want, tt.name)
			// Operands are untouched by out-of-place operations.
			assertValues(t, a, []float32{1, 2, 3, 4}, tt.name+" left operand")
		})
	}
}

func TestBinaryBroadcast(t *testing.T) {
	eng := NewMockEngine()
	a := mustFromSlice(t, eng, []float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	defer a.Release()
	row := mustFromSlice(t, eng, []float32{10, 20, 30}, Shape{1, 3})
	defer row.Release()

	c, err := a.Add(row)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Release()

	if !c.Shape().Equal(Shape{2, 3}) {
		t.Fatalf("broadcast result shape = %v, want (2, 3)", c.Shape())
	}
	assertValues(t, c, []float32{11, 22, 33, 14, 25, 36}, "row broadcast")
}

func TestBinaryShapeMismatchLeavesOperands(t *testing.T) {
	eng := NewMockEngine()
	a := mustFromSlice(t, eng, []float32{1, 2, 3, 4}, Shape{2, 2})
	defer a.Release()
	b := mustFromSlice(t, eng, []float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	defer b.Release()

	before := eng.Live()
	if _, err := a.Add(b); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("err = %v, want ErrShapeMismatch", err)
	}
	if eng.Live() != before {
		t.Errorf("failed Add allocated a result buffer")
	}
	assertValues(t, a, []float32{1, 2, 3, 4}, "left operand after failed Add")
	assertValues(t, b, []float32{1, 2, 3, 4, 5, 6}, "right operand after failed Add")
}

func TestScalarOps(t *testing.T) {
	eng := NewMockEngine()
	a := mustFromSlice(t, eng, []float32{2, 4, 6, 8}, Shape{4})
	defer a.Release()

	tests := []struct {
		name string
		fn   func(float32) (*NDArray, error)
		want []float32
	}{
		{"AddScalar", a.AddScalar, []float32{3, 5, 7, 9}},
		{"SubScalar", a.SubScalar, []float32{1, 3, 5, 7}},
		{"MulScalar", a.MulScalar, []float32{2, 4, 6, 8}},
		{"DivScalar", a.DivScalar, []float32{2, 4, 6, 8}},
	}
	for _, tt := range tests {
		c, err := tt.fn(1)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		assertValues(t, c, tt.want, tt.name)
		c.Release()
	}
}

func TestInPlaceOpsReturnReceiver(t *testing.T) {
	eng := NewMockEngine()
	a := mustFromSlice(t, eng, []float32{1, 2, 3, 4}, Shape{4})
	defer a.Release()
	b := mustFromSlice(t, eng, []float32{1, 1, 1, 1}, Shape{4})
	defer b.Release()

	// Chaining: ((a += b) *= 2) -= 1
	r, err := a.AddInPlace(b)
	if err != nil {
		t.Fatal(err)
	}
	if r, err = r.MulScalarInPlace(2); err != nil {
		t.Fatal(err)
	}
	if r, err = r.SubScalarInPlace(1); err != nil {
		t.Fatal(err)
	}

	if r.Handle() != a.Handle() {
		t.Fatal("in-place chain did not return the receiver")
	}
	assertValues(t, a, []float32{3, 5, 7, 9}, "chained in-place ops")
}

func TestInPlaceBroadcastsOperandOnly(t *testing.T) {
	eng := NewMockEngine()
	a := mustFromSlice(t, eng, []float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	defer a.Release()
	row := mustFromSlice(t, eng, []float32{1, 1, 1}, Shape{1, 3})
	defer row.Release()

	// The operand may broadcast up to the receiver's shape.
	if _, err := a.AddInPlace(row); err != nil {
		t.Fatal(err)
	}
	assertValues(t, a, []float32{2, 3, 4, 5, 6, 7}, "in-place with broadcast operand")

	// The receiver must never grow.
	if _, err := row.AddInPlace(a); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("err = %v, want ErrShapeMismatch when receiver would broadcast", err)
	}
	assertValues(t, row, []float32{1, 1, 1}, "receiver after rejected in-place")
}

func TestSetScalar(t *testing.T) {
	eng := NewMockEngine()
	a := mustNew(t, eng, Shape{2, 3})
	defer a.Release()

	if err := a.SetScalar(5); err != nil {
		t.Fatal(err)
	}
	if err := a.WaitToRead(); err != nil {
		t.Fatal(err)
	}
	assertValues(t, a, []float32{5, 5, 5, 5, 5, 5}, "SetScalar")
}

func TestDivByZeroFollowsIEEE(t *testing.T) {
	eng := NewMockEngine()
	a := mustFromSlice(t, eng, []float32{1}, Shape{1})
	defer a.Release()
	z := mustFromSlice(t, eng, []float32{0}, Shape{1})
	defer z.Release()

	c, err := a.Div(z)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Release()

	got := make([]float32, 1)
	if err := c.SyncCopyToCPU(got); err != nil {
		t.Fatal(err)
	}
	if got[0] != float32(math.Inf(1)) {
		t.Errorf("1/0 = %v, want +Inf", got[0])
	}
}
