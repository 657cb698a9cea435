package display

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/Mavwarf/acoustic/internal/analysis"
	"github.com/Mavwarf/acoustic/internal/synth"
)

// Plot geometry.
const (
	ZoomSeconds  = 0.02 // time-domain window
	FloorDB      = -120.0
	CeilDB       = 0.0
	waveRows     = 9
	spectrumRows = 10
	gutter       = 10 // "+0.500 |" label column
)

// Plot draws two text charts of buf: the waveform over its first 20 ms and
// the magnitude spectrum from r over [0, sampleRate/2], clipped to
// [-120, 0] dB. width is the total line width in columns.
func Plot(w io.Writer, buf synth.Buffer, r analysis.Result, sampleRate, width int) error {
	if width < minWidth {
		width = minWidth
	}
	cols := width - gutter

	var b strings.Builder
	n := min(len(buf), int(math.Round(ZoomSeconds*float64(sampleRate))))
	b.WriteString(cyan(fmt.Sprintf("Time domain (first %.0f ms)", 1000*float64(n)/float64(sampleRate))) + "\n")
	if n == 0 {
		b.WriteString(dim("  (no samples)") + "\n")
	} else {
		waveform(&b, buf[:n], cols)
		axis(&b, cols, "0 ms", fmt.Sprintf("%.1f ms", 1000*float64(n)/float64(sampleRate)))
	}

	b.WriteString("\n" + cyan("Spectrum (dB)") + "\n")
	if r.Empty() {
		b.WriteString(dim("  (silent)") + "\n")
	} else {
		spectrum(&b, r.Freqs, r.MagDB, float64(sampleRate)/2, cols)
		axis(&b, cols, "0 Hz", fmt.Sprintf("%d Hz", sampleRate/2))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// waveform renders min/max envelopes per column, scaled to the peak.
func waveform(b *strings.Builder, seg []float64, cols int) {
	peak := 0.0
	for _, v := range seg {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak == 0 {
		peak = 1
	}
	row := func(v float64) int {
		return int(math.Round((peak - v) / (2 * peak) * (waveRows - 1)))
	}

	grid := newGrid(waveRows, cols)
	mid := (waveRows - 1) / 2
	for c := 0; c < cols; c++ {
		grid[mid][c] = '-'
	}
	for c := 0; c < cols; c++ {
		start := c * len(seg) / cols
		end := max((c+1)*len(seg)/cols, start+1)
		if start >= len(seg) {
			break
		}
		end = min(end, len(seg))
		lo, hi := seg[start], seg[start]
		for _, v := range seg[start:end] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		for rr := row(hi); rr <= row(lo); rr++ {
			grid[rr][c] = '*'
		}
	}

	for i, line := range grid {
		label := ""
		switch i {
		case 0:
			label = fmt.Sprintf("%+.3f", peak)
		case mid:
			label = "0"
		case waveRows - 1:
			label = fmt.Sprintf("%+.3f", -peak)
		}
		b.WriteString(padL(label, gutter-2) + " |" + string(line) + "\n")
	}
}

// spectrum renders one bar per column at the loudest bin it covers.
func spectrum(b *strings.Builder, freqs, magDB []float64, nyquist float64, cols int) {
	level := make([]float64, cols)
	for i := range level {
		level[i] = math.Inf(-1)
	}
	for i, f := range freqs {
		c := int(f / nyquist * float64(cols))
		if c < 0 || c >= cols {
			c = max(0, min(c, cols-1))
		}
		level[c] = math.Max(level[c], magDB[i])
	}

	grid := newGrid(spectrumRows, cols)
	for c, db := range level {
		db = math.Max(FloorDB, math.Min(CeilDB, db))
		h := int(math.Round((db - FloorDB) / (CeilDB - FloorDB) * spectrumRows))
		for rr := spectrumRows - h; rr < spectrumRows; rr++ {
			grid[rr][c] = '#'
		}
	}

	step := (CeilDB - FloorDB) / spectrumRows
	for i, line := range grid {
		label := ""
		if i == 0 || i == spectrumRows-1 || i == spectrumRows/2 {
			label = fmt.Sprintf("%.0f", CeilDB-float64(i)*step)
		}
		b.WriteString(padL(label, gutter-2) + " |" + string(line) + "\n")
	}
}

func axis(b *strings.Builder, cols int, left, right string) {
	b.WriteString(strings.Repeat(" ", gutter-1) + "+" + strings.Repeat("-", cols) + "\n")
	pad := max(1, cols-len(left)-len(right))
	b.WriteString(strings.Repeat(" ", gutter) + dim(left+strings.Repeat(" ", pad)+right) + "\n")
}

func newGrid(rows, cols int) [][]byte {
	g := make([][]byte, rows)
	for i := range g {
		g[i] = []byte(strings.Repeat(" ", cols))
	}
	return g
}
