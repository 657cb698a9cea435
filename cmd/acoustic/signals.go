package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Mavwarf/acoustic/internal/analysis"
	"github.com/Mavwarf/acoustic/internal/audio"
	"github.com/Mavwarf/acoustic/internal/config"
	"github.com/Mavwarf/acoustic/internal/display"
	"github.com/Mavwarf/acoustic/internal/synth"
)

// signalFlags are the inputs shared by play, analyze and render.
type signalFlags struct {
	type1, type2 string
	freq1, freq2 float64
	duration     float64
}

func (f *signalFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.type1, "type1", "sine", "signal 1 kind (see 'acoustic kinds')")
	fs.Float64Var(&f.freq1, "freq1", 1000, "signal 1 frequency in Hz")
	fs.StringVar(&f.type2, "type2", "none", "signal 2 kind")
	fs.Float64Var(&f.freq2, "freq2", 500, "signal 2 frequency in Hz")
	fs.Float64Var(&f.duration, "duration", config.DefaultDuration, "duration in seconds (overrides config)")
}

// source is one synthesized input.
type source struct {
	spec synth.Spec
	buf  synth.Buffer
}

func (s source) label() string {
	return display.Label(s.spec.Kind, s.spec.Frequency)
}

// buildSources validates both signal specs and only then synthesizes them,
// so bad input computes nothing. Unknown kinds are not an error: they warn
// on warn and play as silence.
func buildSources(cfg config.Config, f signalFlags, durationSet bool, warn io.Writer) ([2]source, error) {
	var out [2]source
	dur := cfg.Duration
	if durationSet {
		dur = f.duration
	}

	inputs := [2]struct {
		kind string
		freq float64
	}{{f.type1, f.freq1}, {f.type2, f.freq2}}
	for i, in := range inputs {
		kind, ok := synth.ParseKind(in.kind)
		if !ok {
			fmt.Fprintf(warn, "Warning: unknown signal kind %q for signal %d, using silence\n", in.kind, i+1)
		}
		spec := synth.Spec{Kind: kind, Duration: dur, Frequency: in.freq, Amplitude: cfg.Amplitude(kind)}
		if err := spec.Validate(); err != nil {
			return out, fmt.Errorf("signal %d: %w", i+1, err)
		}
		out[i].spec = spec
	}

	for i := range out {
		sc := cfg.Synth()
		if sc.Seed != 0 {
			// Distinct streams so two noise signals do not coincide.
			sc.Seed += uint64(i)
		}
		out[i].buf = synth.Synthesize(sc, out[i].spec)
		glog.V(1).Infof("signal %d: %s, %d samples", i+1, out[i].label(), len(out[i].buf))
	}
	return out, nil
}

// reportOpts controls how report prints signal 1.
type reportOpts struct {
	json   bool
	noPlot bool
}

// report analyzes buf and prints it as text (with plot) or JSON.
func report(w io.Writer, title string, buf synth.Buffer, kind synth.Kind, rate int, o reportOpts) error {
	r := analysis.Analyze(buf, kind, rate)
	if o.json {
		return display.WriteJSON(w, title, len(buf), rate, r)
	}
	if err := display.Report(w, title, r); err != nil {
		return err
	}
	if o.noPlot {
		return nil
	}
	fmt.Fprintln(w)
	if r.Empty() {
		// Analyze leaves the spectrum empty only for a silent buffer.
		_, err := fmt.Fprintln(w, "(plot cleared: signal is silent)")
		return err
	}
	return display.Plot(w, buf, r, rate, display.WriterWidth(w))
}

func newPlayCmd(a *app) *cobra.Command {
	var sf signalFlags
	var ro reportOpts
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Analyze signal 1, then play the mix of both signals",
		Example: `  acoustic play --type1 sine --freq1 440
  acoustic play --type1 bandlimited --freq1 3000 --type2 pink --duration 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srcs, err := buildSources(a.cfg, sf, cmd.Flags().Changed("duration"), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			rate := a.cfg.SampleRate
			if err := report(w, "Signal 1: "+srcs[0].label(), srcs[0].buf, srcs[0].spec.Kind, rate, ro); err != nil {
				return err
			}

			mixed, err := synth.Mix(srcs[0].buf, srcs[1].buf)
			if err != nil {
				return err
			}
			var p audio.Player
			if err := p.Play(mixed, rate); err != nil {
				return err
			}
			if !ro.json {
				fmt.Fprintf(w, "\nPlaying %s + %s for %gs (Ctrl-C to stop)\n", srcs[0].label(), srcs[1].label(), srcs[0].spec.Duration)
			}
			if err := p.Wait(cmd.Context()); err != nil {
				if errors.Is(err, context.Canceled) {
					fmt.Fprintln(w, "Stopped.")
					return nil
				}
				return err
			}
			return nil
		},
	}
	sf.register(cmd.Flags())
	cmd.Flags().BoolVar(&ro.noPlot, "no-plot", false, "skip the waveform and spectrum plots")
	cmd.Flags().BoolVar(&ro.json, "json", false, "print the signal 1 metrics as JSON")
	return cmd
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var sf signalFlags
	var ro reportOpts
	var wavPath string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Report metrics and spectrum without playing",
		Long: `Analyze synthesizes the signals and reports on them without touching the
audio device. With --wav it analyzes a recorded WAV file instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if wavPath != "" {
				buf, rate, err := audio.LoadWAV(wavPath)
				if err != nil {
					return err
				}
				// A recording has no known kind; measure it as noise unless told otherwise.
				kind := synth.KindNone
				if cmd.Flags().Changed("type1") {
					kind, _ = synth.ParseKind(sf.type1)
				}
				return report(w, filepath.Base(wavPath), buf, kind, rate, ro)
			}

			srcs, err := buildSources(a.cfg, sf, cmd.Flags().Changed("duration"), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rate := a.cfg.SampleRate
			if err := report(w, "Signal 1: "+srcs[0].label(), srcs[0].buf, srcs[0].spec.Kind, rate, ro); err != nil {
				return err
			}
			if srcs[1].spec.Kind == synth.KindNone {
				return nil
			}
			if !ro.json {
				fmt.Fprintln(w)
			}
			if err := report(w, "Signal 2: "+srcs[1].label(), srcs[1].buf, srcs[1].spec.Kind, rate, ro); err != nil {
				return err
			}
			mixed, err := synth.Mix(srcs[0].buf, srcs[1].buf)
			if err != nil {
				return err
			}
			if !ro.json {
				fmt.Fprintln(w)
			}
			// The mix is never a pure tone.
			return report(w, "Mix", mixed, synth.KindNone, rate, ro)
		},
	}
	sf.register(cmd.Flags())
	cmd.Flags().StringVar(&wavPath, "wav", "", "analyze this WAV file instead of synthesizing")
	cmd.Flags().BoolVar(&ro.noPlot, "no-plot", false, "skip the waveform and spectrum plots")
	cmd.Flags().BoolVar(&ro.json, "json", false, "print metrics as JSON")
	return cmd
}

func newRenderCmd(a *app) *cobra.Command {
	var sf signalFlags
	var out string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the mix of both signals to a 16-bit WAV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srcs, err := buildSources(a.cfg, sf, cmd.Flags().Changed("duration"), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			mixed, err := synth.Mix(srcs[0].buf, srcs[1].buf)
			if err != nil {
				return err
			}
			if err := audio.WriteWAV(out, mixed, a.cfg.SampleRate); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d samples at %d Hz)\n", out, len(mixed), a.cfg.SampleRate)
			return nil
		},
	}
	sf.register(cmd.Flags())
	cmd.Flags().StringVarP(&out, "out", "o", "mix.wav", "output WAV path")
	return cmd
}
