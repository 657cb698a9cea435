// Package display renders analysis results as text for a terminal: a
// metrics report, JSON for scripts, and character plots of the waveform
// and spectrum.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/Mavwarf/acoustic/internal/analysis"
	"github.com/Mavwarf/acoustic/internal/synth"
)

// Label names a signal the way reports show it: "<kind> @ <freq> Hz".
func Label(kind synth.Kind, freq float64) string {
	return kind.Label() + " @ " + strconv.FormatFloat(freq, 'f', -1, 64) + " Hz"
}

// Report writes the metrics block for one analyzed signal.
func Report(w io.Writer, title string, r analysis.Result) error {
	_, err := fmt.Fprintf(w, "%s\n  Mean:      %.4f\n  RMS:       %.4f\n  Noise RMS: %.4f\n  SNR (dB):  %s\n",
		bold("Analysis for "+title), r.Mean, r.RMS, r.NoiseRMS, r.SNR)
	return err
}

// jsonReport is the machine-readable form of Report.
type jsonReport struct {
	Signal     string  `json:"signal"`
	SampleRate int     `json:"sample_rate"`
	Samples    int     `json:"samples"`
	PeakHz     float64 `json:"peak_hz"`
	analysis.Result
}

// WriteJSON writes the metrics as one indented JSON object.
func WriteJSON(w io.Writer, title string, n, sampleRate int, r analysis.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		Signal:     title,
		SampleRate: sampleRate,
		Samples:    n,
		PeakHz:     r.PeakFrequency(),
		Result:     r,
	})
}
