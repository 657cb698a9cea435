// Package analysis computes amplitude statistics and a single-sided
// magnitude spectrum for synthesized buffers.
package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Mavwarf/acoustic/internal/synth"
)

// Epsilon keeps 20*log10 finite for empty bins.
const Epsilon = 1e-10

// SNRKind tells how to read an SNR value.
type SNRKind int

const (
	SNRNotApplicable SNRKind = iota
	SNRInfinite
	SNRValue
)

// SNR is either a number of dB or one of the two policy values.
type SNR struct {
	Kind SNRKind
	DB   float64 // only set when Kind == SNRValue
}

var (
	NotApplicable = SNR{Kind: SNRNotApplicable}
	Infinite      = SNR{Kind: SNRInfinite}
)

func (s SNR) String() string {
	switch s.Kind {
	case SNRInfinite:
		return "Inf"
	case SNRValue:
		return fmt.Sprintf("%.2f", s.DB)
	}
	return "N/A"
}

// MarshalJSON writes a number for measured values and a string otherwise.
func (s SNR) MarshalJSON() ([]byte, error) {
	if s.Kind == SNRValue {
		return json.Marshal(s.DB)
	}
	return json.Marshal(s.String())
}

// Result holds the metrics for one buffer. Freqs and MagDB are index-aligned
// and ordered by increasing frequency.
type Result struct {
	Mean     float64   `json:"mean"`
	RMS      float64   `json:"rms"`
	NoiseRMS float64   `json:"noise_rms"`
	SNR      SNR       `json:"snr_db"`
	Freqs    []float64 `json:"-"`
	MagDB    []float64 `json:"-"`
}

// Empty reports whether the result carries no spectrum (silent input).
func (r Result) Empty() bool {
	return len(r.Freqs) == 0
}

// PeakFrequency returns the bin with the largest magnitude, or 0 for an
// empty spectrum.
func (r Result) PeakFrequency() float64 {
	if r.Empty() {
		return 0
	}
	return r.Freqs[floats.MaxIdx(r.MagDB)]
}

// Analyze computes the metrics of buf, sampled at sampleRate, for a signal
// of the given kind. A silent buffer short-circuits to zero statistics, SNR
// N/A and an empty spectrum.
//
// Noise RMS and SNR follow a fixed policy rather than a measurement: a
// synthetic tone carries no separable noise (noise RMS 0, SNR infinite),
// and every other kind is all noise (noise RMS = RMS, SNR not applicable).
func Analyze(buf synth.Buffer, kind synth.Kind, sampleRate int) Result {
	if len(buf) == 0 || floats.Norm(buf, 1) == 0 {
		return Result{SNR: NotApplicable}
	}

	r := Result{
		Mean: stat.Mean(buf, nil),
		RMS:  math.Sqrt(floats.Dot(buf, buf) / float64(len(buf))),
	}
	if kind == synth.KindSine {
		r.NoiseRMS = 0
		r.SNR = Infinite
	} else {
		r.NoiseRMS = r.RMS
		r.SNR = NotApplicable
	}
	r.Freqs, r.MagDB = Spectrum(buf, sampleRate)
	return r
}

// Spectrum returns the strictly positive frequency bins of buf's DFT and
// their single-sided magnitudes (scaled by 2/N) in dB.
func Spectrum(buf []float64, sampleRate int) (freqs, magDB []float64) {
	n := len(buf)
	half := (n - 1) / 2
	if half <= 0 {
		return nil, nil
	}
	coeffs := fft.FFTReal(buf)

	freqs = make([]float64, half)
	magDB = make([]float64, half)
	binWidth := float64(sampleRate) / float64(n)
	scale := 2.0 / float64(n)
	for k := 1; k <= half; k++ {
		freqs[k-1] = float64(k) * binWidth
		magDB[k-1] = 20 * math.Log10(scale*cmplx.Abs(coeffs[k])+Epsilon)
	}
	return freqs, magDB
}
