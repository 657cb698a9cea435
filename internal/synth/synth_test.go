package synth

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var testCfg = Config{SampleRate: DefaultSampleRate, Seed: 7}

func TestLenMatchesDuration(t *testing.T) {
	for _, d := range []float64{0.01, 0.25, 1.0 / 3, 1, 2} {
		want := int(math.Round(float64(DefaultSampleRate) * d))
		for _, k := range Kinds {
			buf := Synthesize(testCfg, Spec{Kind: k, Duration: d, Frequency: 1000, Amplitude: 0.3})
			if len(buf) != want {
				t.Errorf("%s, %.4fs: len = %d, want %d", k, d, len(buf), want)
			}
		}
	}
}

func TestSynthesizeNoneIsSilent(t *testing.T) {
	buf := Synthesize(testCfg, Spec{Kind: KindNone, Duration: 0.1, Frequency: 440, Amplitude: 1})
	if len(buf) != 4410 {
		t.Fatalf("len = %d, want 4410", len(buf))
	}
	if floats.Norm(buf, 1) != 0 {
		t.Error("expected an all-zero buffer")
	}
}

func TestSynthesizeUnknownKindIsSilent(t *testing.T) {
	buf := Synthesize(testCfg, Spec{Kind: Kind(42), Duration: 0.05, Amplitude: 0.5})
	if len(buf) != testCfg.Len(0.05) {
		t.Fatalf("len = %d, want %d", len(buf), testCfg.Len(0.05))
	}
	if floats.Norm(buf, 1) != 0 {
		t.Error("unknown kind should fall back to silence")
	}
}

func TestSinePeakAndCycles(t *testing.T) {
	buf := Synthesize(testCfg, Spec{Kind: KindSine, Duration: 0.01, Frequency: 1000, Amplitude: 0.5})

	peak := floats.Norm(buf, math.Inf(1))
	if math.Abs(peak-0.5) > 1e-3 {
		t.Errorf("peak = %v, want ~0.5", peak)
	}

	// 10 cycles starting at zero cross the axis 19 times inside the window.
	crossings := 0
	for i := 1; i < len(buf); i++ {
		if buf[i-1]*buf[i] < 0 {
			crossings++
		}
	}
	if crossings != 19 {
		t.Errorf("zero crossings = %d, want 19 (10 cycles)", crossings)
	}
}

func TestWhiteNoiseStatistics(t *testing.T) {
	const amp = 0.3
	for seed := uint64(1); seed <= 5; seed++ {
		cfg := Config{SampleRate: DefaultSampleRate, Seed: seed}
		buf := Synthesize(cfg, Spec{Kind: KindWhite, Duration: 1, Amplitude: amp})

		mean, variance := stat.MeanVariance(buf, nil)
		if math.Abs(mean) > 0.01 {
			t.Errorf("seed %d: mean = %v, want ~0", seed, mean)
		}
		if math.Abs(variance-amp*amp) > 0.1*amp*amp {
			t.Errorf("seed %d: variance = %v, want ~%v", seed, variance, amp*amp)
		}
	}
}

func TestNoiseSeedIsDeterministic(t *testing.T) {
	spec := Spec{Kind: KindPink, Duration: 0.05, Amplitude: 0.3}
	a := Synthesize(testCfg, spec)
	b := Synthesize(testCfg, spec)
	if !floats.Equal(a, b) {
		t.Error("same seed produced different pink noise")
	}

	c := Synthesize(Config{SampleRate: DefaultSampleRate, Seed: 8}, spec)
	if floats.Equal(a, c) {
		t.Error("different seeds produced identical noise")
	}
}

func TestPinkNoisePeakIsAmplitude(t *testing.T) {
	buf := Synthesize(testCfg, Spec{Kind: KindPink, Duration: 0.5, Amplitude: 0.3})
	if peak := floats.Norm(buf, math.Inf(1)); math.Abs(peak-0.3) > 1e-12 {
		t.Errorf("peak = %v, want 0.3", peak)
	}
}

func TestBandLimitedPeakIsAmplitude(t *testing.T) {
	buf := Synthesize(testCfg, Spec{Kind: KindBandLimited, Duration: 0.2, Frequency: 3000, Amplitude: 0.3})
	if peak := floats.Norm(buf, math.Inf(1)); math.Abs(peak-0.3) > 1e-12 {
		t.Errorf("peak = %v, want 0.3", peak)
	}
}

func TestNormalizePeakAllZero(t *testing.T) {
	s := make([]float64, 16)
	NormalizePeak(s)
	for i, v := range s {
		if v != 0 || math.IsNaN(v) {
			t.Fatalf("s[%d] = %v, want 0", i, v)
		}
	}
}

func TestNormalizePeakNegative(t *testing.T) {
	s := []float64{0.5, -2, 1}
	NormalizePeak(s)
	want := []float64{0.25, -1, 0.5}
	if !floats.Equal(s, want) {
		t.Errorf("got %v, want %v", s, want)
	}
}

func TestBandEdges(t *testing.T) {
	tests := []struct {
		freq, low, high float64
	}{
		{1000, 10, 2000},
		{500, 10, 1500},
		{5000, 4000, 6000},
		{21500, 20500, 21829.5},
		{30000, 10914.75, 21829.5},
	}
	for _, tt := range tests {
		low, high := BandEdges(tt.freq, DefaultSampleRate)
		if math.Abs(low-tt.low) > 1e-9 || math.Abs(high-tt.high) > 1e-9 {
			t.Errorf("BandEdges(%v) = (%v, %v), want (%v, %v)", tt.freq, low, high, tt.low, tt.high)
		}
	}
}

func TestBandpassIsLinearPhase(t *testing.T) {
	h := Bandpass(BandTaps, 4000, 6000, DefaultSampleRate)
	if len(h) != BandTaps {
		t.Fatalf("len = %d, want %d", len(h), BandTaps)
	}
	for n := 0; n < len(h)/2; n++ {
		if math.Abs(h[n]-h[len(h)-1-n]) > 1e-12 {
			t.Fatalf("taps not symmetric at %d: %v vs %v", n, h[n], h[len(h)-1-n])
		}
	}
}

func TestBandpassUnityGainAtCentre(t *testing.T) {
	h := Bandpass(BandTaps, 4000, 6000, DefaultSampleRate)
	mid := float64(len(h)-1) / 2
	fc := 5000.0 / DefaultSampleRate
	var gain float64
	for n, v := range h {
		gain += v * math.Cos(2*math.Pi*fc*(float64(n)-mid))
	}
	if math.Abs(gain-1) > 1e-9 {
		t.Errorf("centre gain = %v, want 1", gain)
	}
}

func TestFilterImpulseResponse(t *testing.T) {
	taps := []float64{0.5, 0.25, 0.125}
	x := []float64{1, 0, 0, 0, 0}
	got := Filter(taps, x)
	want := []float64{0.5, 0.25, 0.125, 0, 0}
	if !floats.Equal(got, want) {
		t.Errorf("Filter = %v, want %v", got, want)
	}
}

func TestFilterShorterThanTaps(t *testing.T) {
	got := Filter([]float64{1, 1, 1, 1}, []float64{1, 2})
	want := []float64{1, 3}
	if !floats.Equal(got, want) {
		t.Errorf("Filter = %v, want %v", got, want)
	}
}

func TestValidate(t *testing.T) {
	good := Spec{Kind: KindSine, Duration: 2, Frequency: 1000, Amplitude: 0.5}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid spec rejected: %v", err)
	}

	bad := []Spec{
		{Kind: KindSine, Duration: 0, Frequency: 1000, Amplitude: 0.5},
		{Kind: KindSine, Duration: -1, Frequency: 1000, Amplitude: 0.5},
		{Kind: KindSine, Duration: math.NaN(), Frequency: 1000, Amplitude: 0.5},
		{Kind: KindSine, Duration: 1, Frequency: -5, Amplitude: 0.5},
		{Kind: KindSine, Duration: 1, Frequency: math.Inf(1), Amplitude: 0.5},
		{Kind: KindSine, Duration: 1, Frequency: 1000, Amplitude: 0},
		{Kind: KindSine, Duration: 1, Frequency: 1000, Amplitude: 1.5},
	}
	for _, s := range bad {
		err := s.Validate()
		if !errors.Is(err, ErrInvalidSpec) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidSpec", s, err)
		}
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"sine", KindSine, true},
		{"Pure Sine Wave", KindSine, true},
		{"WHITE", KindWhite, true},
		{"White Gaussian Noise", KindWhite, true},
		{"pink", KindPink, true},
		{"Band-Limited Noise", KindBandLimited, true},
		{"bandlimited", KindBandLimited, true},
		{"None", KindNone, true},
		{"", KindNone, true},
		{"brown", KindNone, false},
	}
	for _, tt := range tests {
		got, ok := ParseKind(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseKind(%q) = (%s, %t), want (%s, %t)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
