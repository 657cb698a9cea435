package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/Mavwarf/acoustic/internal/config"
	"github.com/Mavwarf/acoustic/internal/synth"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	glog.Flush()
	if err != nil {
		fatal(err)
	}
}

// fatal prints err and exits with status 1.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// app carries state shared by every command: the persistent flags and the
// config they resolve to.
type app struct {
	configPath string
	sampleRate int
	seed       uint64
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "acoustic",
		Short: "Generate, analyze and play test signals; record serial ADC captures",
		Long: `acoustic synthesizes test signals (sine, white, pink and band-limited
noise), reports their statistics and spectrum, plays the mix of two signals,
and records sample captures sent by a microcontroller over a serial port.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "path to acoustic.toml")
	pf.IntVar(&a.sampleRate, "sample-rate", synth.DefaultSampleRate, "sample rate in Hz (overrides config)")
	pf.Uint64Var(&a.seed, "seed", 0, "noise seed, 0 for a random seed (overrides config)")
	// glog registers -v, -logtostderr and friends on the standard set.
	pf.AddGoFlagSet(flag.CommandLine)

	root.AddCommand(
		newPlayCmd(a),
		newAnalyzeCmd(a),
		newRenderCmd(a),
		newCaptureCmd(a),
		newCapturesCmd(a),
		newPortsCmd(),
		newKindsCmd(),
		newVersionCmd(),
	)
	return root
}

// load reads the config file and applies flag overrides.
func (a *app) load(cmd *cobra.Command) error {
	// Mark the standard set parsed; cobra already filled in glog's values.
	if err := flag.CommandLine.Parse(nil); err != nil {
		return err
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("sample-rate") {
		cfg.SampleRate = a.sampleRate
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = a.seed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Source != "" {
		glog.V(1).Infof("config: loaded %s", cfg.Source)
	}
	a.cfg = cfg
	return nil
}

func newKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the signal kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, k := range synth.Kinds {
				freq := ""
				if k.UsesFrequency() {
					freq = " (uses frequency)"
				}
				fmt.Fprintf(w, "  %-12s %-22s %s%s\n", k, k.Label(), k.Description(), freq)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No config needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "acoustic %s (built %s)\n", version, buildDate)
			return nil
		},
	}
}
