package synth

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestMixNormalizesToUnitPeak(t *testing.T) {
	a := Buffer{0.9, 0.1, -0.3, 0}
	b := Buffer{0.9, -0.1, -0.2, 0.5}

	got, err := Mix(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 1.0 {
		t.Errorf("peak = %v, want exactly 1.0", got[0])
	}
	if peak := floats.Norm(got, math.Inf(1)); peak != 1.0 {
		t.Errorf("max |x| = %v, want 1.0", peak)
	}
	if math.Abs(got[3]-0.5/1.8) > 1e-15 {
		t.Errorf("got[3] = %v, want %v", got[3], 0.5/1.8)
	}
}

func TestMixSinesPeakAtOne(t *testing.T) {
	a := Sine(441, DefaultSampleRate, 1000, 0.9)
	b := Sine(441, DefaultSampleRate, 1000, 0.9)

	got, err := Mix(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if peak := floats.Norm(got, math.Inf(1)); peak != 1.0 {
		t.Errorf("peak = %v, want exactly 1.0", peak)
	}
}

func TestMixQuietSumUnchanged(t *testing.T) {
	a := Buffer{0.2, -0.4}
	b := Buffer{0.3, 0.1}

	got, err := Mix(a, b)
	if err != nil {
		t.Fatal(err)
	}
	want := Buffer{0.5, -0.30000000000000004}
	if !floats.EqualApprox(got, want, 1e-15) {
		t.Errorf("Mix = %v, want %v", got, want)
	}
}

func TestMixZeros(t *testing.T) {
	a := make(Buffer, 8)
	b := make(Buffer, 8)

	got, err := Mix(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 8 || floats.Norm(got, 1) != 0 {
		t.Errorf("Mix(zeros, zeros) = %v, want 8 zeros", got)
	}
}

func TestMixDoesNotMutateInputs(t *testing.T) {
	a := Buffer{0.9, 0.9}
	b := Buffer{0.9, 0.9}
	if _, err := Mix(a, b); err != nil {
		t.Fatal(err)
	}
	if a[0] != 0.9 || b[1] != 0.9 {
		t.Error("Mix modified its inputs")
	}
}

func TestMixLengthMismatch(t *testing.T) {
	_, err := Mix(make(Buffer, 3), make(Buffer, 4))
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("err = %v, want ErrLengthMismatch", err)
	}
}
