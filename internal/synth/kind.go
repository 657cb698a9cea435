package synth

import "strings"

// Kind selects which generator Synthesize runs.
type Kind int

const (
	KindNone Kind = iota
	KindSine
	KindWhite
	KindPink
	KindBandLimited
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindNone, KindSine, KindWhite, KindPink, KindBandLimited}

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSine:
		return "sine"
	case KindWhite:
		return "white"
	case KindPink:
		return "pink"
	case KindBandLimited:
		return "bandlimited"
	}
	return "unknown"
}

// Label returns the long, human-facing name used in reports.
func (k Kind) Label() string {
	switch k {
	case KindNone:
		return "None"
	case KindSine:
		return "Pure Sine Wave"
	case KindWhite:
		return "White Gaussian Noise"
	case KindPink:
		return "Pink Noise"
	case KindBandLimited:
		return "Band-Limited Noise"
	}
	return "Unknown"
}

// Description is a one-line summary for listings.
func (k Kind) Description() string {
	switch k {
	case KindNone:
		return "Silence (all-zero buffer)"
	case KindSine:
		return "Pure tone at the given frequency"
	case KindWhite:
		return "Gaussian noise with a flat power spectrum"
	case KindPink:
		return "Approximate 1/f noise from 16 integrated white rows"
	case KindBandLimited:
		return "White noise through a 1024-tap FIR bandpass around the frequency"
	}
	return ""
}

// UsesFrequency reports whether the frequency field affects the output.
func (k Kind) UsesFrequency() bool {
	return k == KindSine || k == KindBandLimited
}

// ParseKind accepts the short name or the long label, case-insensitively.
// Unknown names map to KindNone with ok=false; callers decide whether to
// warn, since synthesis treats them as silence anyway.
func ParseKind(s string) (Kind, bool) {
	s = strings.TrimSpace(s)
	for _, k := range Kinds {
		if strings.EqualFold(s, k.String()) || strings.EqualFold(s, k.Label()) {
			return k, true
		}
	}
	switch strings.ToLower(s) {
	case "", "off", "silence":
		return KindNone, true
	case "tone":
		return KindSine, true
	case "band", "band-limited", "bandpass":
		return KindBandLimited, true
	}
	return KindNone, false
}
