package synth

import (
	"math"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
)

// BandTaps is the tap count of the band-limited noise filter.
const BandTaps = 1024

// Band-limited noise occupies freq±bandHalfWidth, floored at minBandLow.
const (
	bandHalfWidth = 1000.0
	minBandLow    = 10.0
)

// BandEdges returns the passband for band-limited noise centred on freq.
// The upper edge is kept below Nyquist, and if that leaves no room above the
// lower edge the lower edge drops to half the upper one.
func BandEdges(freq, rate float64) (low, high float64) {
	low = math.Max(minBandLow, freq-bandHalfWidth)
	high = freq + bandHalfWidth
	nyq := rate / 2
	if high >= nyq {
		high = nyq * 0.99
	}
	if low >= high {
		low = high / 2
	}
	return low, high
}

// Bandpass designs a linear-phase windowed-sinc bandpass filter with the
// given number of taps and cutoffs in Hz. The Hamming window sets roughly
// 53 dB of stopband attenuation; taps are scaled for unity gain at the
// centre of the passband.
func Bandpass(taps int, low, high, rate float64) []float64 {
	if taps <= 0 {
		return nil
	}
	fl, fh := low/rate, high/rate
	w := window.Hamming(taps)
	h := make([]float64, taps)
	mid := float64(taps-1) / 2
	for n := range h {
		x := float64(n) - mid
		h[n] = (2*fh*sinc(2*fh*x) - 2*fl*sinc(2*fl*x)) * w[n]
	}

	fc := (fl + fh) / 2
	var gain float64
	for n, v := range h {
		gain += v * math.Cos(2*math.Pi*fc*(float64(n)-mid))
	}
	if gain != 0 {
		floats.Scale(1/gain, h)
	}
	return h
}

// Filter applies FIR taps to x causally; the output has the same length as
// x and assumes zeros before the first sample.
func Filter(taps, x []float64) []float64 {
	y := make([]float64, len(x))
	for i := range x {
		var acc float64
		kmax := len(taps)
		if i+1 < kmax {
			kmax = i + 1
		}
		for k := 0; k < kmax; k++ {
			acc += taps[k] * x[i-k]
		}
		y[i] = acc
	}
	return y
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}
