package ndarray

import (
	"errors"
	"testing"
)

func TestSampleUniformRange(t *testing.T) {
	eng := NewMockEngine()
	a := mustNew(t, eng, Shape{1000})
	defer a.Release()

	if err := SampleUniform(0, 1, a); err != nil {
		t.Fatal(err)
	}
	if err := a.WaitToRead(); err != nil {
		t.Fatal(err)
	}

	for i, v := range a.Data() {
		if v < 0 || v >= 1 {
			t.Fatalf("sample %d = %v outside [0, 1)", i, v)
		}
	}
}

func TestSampleGaussianSpread(t *testing.T) {
	eng := NewMockEngine()
	a := mustNew(t, eng, Shape{1000})
	defer a.Release()

	if err := SampleGaussian(10, 2, a); err != nil {
		t.Fatal(err)
	}
	if err := a.WaitToRead(); err != nil {
		t.Fatal(err)
	}

	var sum float64
	for _, v := range a.Data() {
		sum += float64(v)
	}
	mean := sum / 1000
	if mean < 9 || mean > 11 {
		t.Errorf("sample mean = %v, want roughly 10", mean)
	}
}

func TestSampleRejectsNone(t *testing.T) {
	eng := NewMockEngine()
	none := FromHandle(eng, NilBuffer)

	if err := SampleGaussian(0, 1, none); !errors.Is(err, ErrEngine) {
		t.Errorf("SampleGaussian on none: err = %v, want ErrEngine", err)
	}
	if err := SampleUniform(0, 1, none); !errors.Is(err, ErrEngine) {
		t.Errorf("SampleUniform on none: err = %v, want ErrEngine", err)
	}
}
