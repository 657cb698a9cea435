package synth

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrLengthMismatch is returned by Mix when the inputs differ in length.
var ErrLengthMismatch = errors.New("synth: buffer lengths differ")

// Mix sums a and b sample by sample. If the sum peaks above 1.0 the whole
// result is divided by that peak; quieter sums are returned as-is.
func Mix(a, b Buffer) (Buffer, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w (%d vs %d)", ErrLengthMismatch, len(a), len(b))
	}
	out := make(Buffer, len(a))
	floats.AddTo(out, a, b)

	if peak := floats.Norm(out, math.Inf(1)); peak > 1.0 {
		for i := range out {
			out[i] /= peak
		}
	}
	return out, nil
}
