// Package synth generates fixed-length test signals: tones, white, pink and
// band-limited noise. Every generator returns a fresh buffer and keeps no
// state between calls, so independent specs can be synthesized concurrently.
package synth

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// DefaultSampleRate matches the playback sink and the CD-audio rate.
const DefaultSampleRate = 44100

// pinkRows is the number of integrated white-noise rows summed for pink noise.
const pinkRows = 16

// ErrInvalidSpec is wrapped by Spec.Validate failures.
var ErrInvalidSpec = errors.New("synth: invalid signal spec")

// Buffer is a mono sample buffer; index i is at time i/sampleRate.
type Buffer []float64

// Config carries the parameters shared by every generator.
type Config struct {
	SampleRate int
	// Seed fixes the noise generators. Zero draws a fresh seed per call.
	Seed uint64
}

// Len returns the number of samples for a duration in seconds.
func (c Config) Len(seconds float64) int {
	n := math.Round(float64(c.SampleRate) * seconds)
	if n <= 0 || math.IsNaN(n) {
		return 0
	}
	return int(n)
}

func (c Config) rng() *rand.Rand {
	seed := c.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Spec describes one signal to synthesize.
type Spec struct {
	Kind      Kind
	Duration  float64 // seconds
	Frequency float64 // Hz; only used by sine and band-limited noise
	Amplitude float64 // (0, 1]
}

// Validate checks the numeric fields before synthesis.
func (s Spec) Validate() error {
	if math.IsNaN(s.Duration) || math.IsInf(s.Duration, 0) || s.Duration <= 0 {
		return fmt.Errorf("%w: duration must be a positive number of seconds, got %v", ErrInvalidSpec, s.Duration)
	}
	if math.IsNaN(s.Frequency) || math.IsInf(s.Frequency, 0) || s.Frequency < 0 {
		return fmt.Errorf("%w: frequency must be >= 0 Hz, got %v", ErrInvalidSpec, s.Frequency)
	}
	if math.IsNaN(s.Amplitude) || s.Amplitude <= 0 || s.Amplitude > 1 {
		return fmt.Errorf("%w: amplitude must be in (0, 1], got %v", ErrInvalidSpec, s.Amplitude)
	}
	return nil
}

// Synthesize produces the buffer described by spec. It never fails: KindNone
// and any unrecognized kind yield an all-zero buffer of the right length.
// Callers are expected to have run spec.Validate.
func Synthesize(cfg Config, spec Spec) Buffer {
	n := cfg.Len(spec.Duration)
	switch spec.Kind {
	case KindSine:
		return Sine(n, float64(cfg.SampleRate), spec.Frequency, spec.Amplitude)
	case KindWhite:
		return White(n, cfg.rng(), spec.Amplitude)
	case KindPink:
		return Pink(n, cfg.rng(), spec.Amplitude)
	case KindBandLimited:
		low, high := BandEdges(spec.Frequency, float64(cfg.SampleRate))
		return BandLimited(n, cfg.rng(), float64(cfg.SampleRate), low, high, spec.Amplitude)
	default:
		return make(Buffer, n)
	}
}

// Sine returns amp*sin(2*pi*freq*t) sampled n times at rate.
func Sine(n int, rate, freq, amp float64) Buffer {
	out := make(Buffer, n)
	step := 2 * math.Pi * freq / rate
	for i := range out {
		out[i] = amp * math.Sin(step*float64(i))
	}
	return out
}

// White returns n i.i.d. Gaussian samples with standard deviation amp.
func White(n int, rng *rand.Rand, amp float64) Buffer {
	out := make(Buffer, n)
	for i := range out {
		out[i] = amp * rng.NormFloat64()
	}
	return out
}

// Pink approximates 1/f noise by summing the running sums of pinkRows
// independent white rows, then peak-normalizing. The slope is only roughly
// 1/f; nothing downstream relies on it being exact.
func Pink(n int, rng *rand.Rand, amp float64) Buffer {
	out := make(Buffer, n)
	var acc [pinkRows]float64
	for i := range out {
		var sum float64
		for r := range acc {
			acc[r] += rng.NormFloat64()
			sum += acc[r]
		}
		out[i] = sum
	}
	NormalizePeak(out)
	floats.Scale(amp, out)
	return out
}

// BandLimited filters white noise through a bandpass FIR between low and
// high Hz, peak-normalizes the result and scales it by amp.
func BandLimited(n int, rng *rand.Rand, rate, low, high, amp float64) Buffer {
	noise := White(n, rng, 1)
	taps := Bandpass(BandTaps, low, high, rate)
	out := Buffer(Filter(taps, noise))
	NormalizePeak(out)
	floats.Scale(amp, out)
	return out
}

// NormalizePeak divides s by its largest absolute value in place. An
// all-zero slice is left untouched.
func NormalizePeak(s []float64) {
	peak := floats.Norm(s, math.Inf(1))
	if peak == 0 {
		return
	}
	for i := range s {
		s[i] /= peak
	}
}
