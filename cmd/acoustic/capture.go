package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/Mavwarf/acoustic/internal/announce"
	"github.com/Mavwarf/acoustic/internal/capture"
	"github.com/Mavwarf/acoustic/internal/config"
	"github.com/Mavwarf/acoustic/internal/mqtt"
	"github.com/Mavwarf/acoustic/internal/paths"
	"github.com/Mavwarf/acoustic/internal/store"
)

// captureFlags override the [serial] and [capture] config sections.
type captureFlags struct {
	baud    int
	timeout time.Duration
	dir     string
	history bool
	loop    bool
}

// applyCaptureFlags copies the flags the user set onto cfg.
func applyCaptureFlags(cmd *cobra.Command, cfg config.Config, f captureFlags, args []string) config.Config {
	if len(args) > 0 {
		cfg.Serial.Port = args[0]
	}
	fl := cmd.Flags()
	if fl.Changed("baud") {
		cfg.Serial.Baud = f.baud
	}
	if fl.Changed("timeout") {
		cfg.Serial.ReadTimeout.Duration = f.timeout
	}
	if fl.Changed("dir") {
		cfg.Capture.Dir = f.dir
	}
	if fl.Changed("history") {
		cfg.Capture.History = f.history
	}
	return cfg
}

// notifierFor builds the announcement channels configured in [notify].
func notifierFor(cfg config.Config) announce.Notifier {
	var n announce.Notifier
	if cfg.Notify.MQTTBroker != "" {
		n.MQTT = &mqtt.Options{
			Broker:   cfg.Notify.MQTTBroker,
			ClientID: cfg.Notify.MQTTClientID,
			Topic:    cfg.Notify.MQTTTopic,
		}
	}
	n.WebhookURL = cfg.Notify.WebhookURL
	return n
}

// recorder runs capture sessions and hands each frame to the sinks.
type recorder struct {
	reader   *capture.Reader
	csv      *store.CSVStore
	history  store.Store // nil when disabled
	notifier announce.Notifier
	out      io.Writer
	warn     io.Writer
}

// once runs one START..END session and persists it.
func (r *recorder) once(ctx context.Context) error {
	fmt.Fprintln(r.out, "Waiting for START...")
	f, err := r.reader.Run(ctx)
	if err != nil {
		return err
	}

	path, err := r.csv.Save(f)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Saved %d samples as: %s\n", len(f.Samples), path)

	var historyID string
	if r.history != nil {
		if historyID, err = r.history.Save(f); err != nil {
			// The CSV is already written; keep going.
			fmt.Fprintf(r.warn, "Warning: history: %v\n", err)
		}
	}

	if err := r.notifier.Announce(ctx, announce.NewSummary(f, path, historyID)); err != nil {
		fmt.Fprintf(r.warn, "Warning: announce: %v\n", err)
	}
	return nil
}

func newCaptureCmd(a *app) *cobra.Command {
	var cf captureFlags
	cmd := &cobra.Command{
		Use:   "capture [port]",
		Short: "Record samples sent between START and END on a serial port",
		Long: `Capture waits for a START line on the serial port, collects every integer
line until END, and saves the samples to capture_<timestamp>.csv. With
--loop it keeps recording sessions until interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := applyCaptureFlags(cmd, a.cfg, cf, args)
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()

			src, err := capture.OpenSerial(capture.SerialConfig{
				Port:        cfg.Serial.Port,
				Baud:        cfg.Serial.Baud,
				ReadTimeout: cfg.Serial.ReadTimeout.Duration,
			})
			if err != nil {
				return err
			}
			defer src.Close()
			// Closing the port unblocks a pending read on Ctrl-C.
			stop := context.AfterFunc(ctx, func() { src.Close() })
			defer stop()

			rec := &recorder{
				reader:   capture.NewReader(src, cfg.Serial.Port),
				csv:      store.NewCSVStore(paths.Expand(cfg.Capture.Dir)),
				notifier: notifierFor(cfg),
				out:      cmd.OutOrStdout(),
				warn:     cmd.ErrOrStderr(),
			}
			if cfg.Capture.History {
				h, err := store.NewSQLiteStore(cfg.HistoryFile())
				if err != nil {
					return fmt.Errorf("history: %w", err)
				}
				defer h.Close()
				rec.history = h
			}

			for {
				err := rec.once(ctx)
				if ctx.Err() != nil {
					glog.V(1).Infof("capture: interrupted: %v", err)
					return nil
				}
				if err != nil || !cf.loop {
					return err
				}
			}
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&cf.baud, "baud", capture.DefaultBaud, "baud rate (overrides config)")
	fl.DurationVar(&cf.timeout, "timeout", config.DefaultReadTimeout, "per-read timeout, 0 waits forever (overrides config)")
	fl.StringVar(&cf.dir, "dir", ".", "directory for capture CSV files (overrides config)")
	fl.BoolVar(&cf.history, "history", false, "also record the capture in the history database")
	fl.BoolVar(&cf.loop, "loop", false, "keep capturing sessions until interrupted")
	return cmd
}

func newCapturesCmd(a *app) *cobra.Command {
	var fromCSV, asJSON bool
	var cleanDays int
	cmd := &cobra.Command{
		Use:   "captures [n]",
		Short: "List recent captures from the history database or capture directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit := 10
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 0 {
					return fmt.Errorf("captures: invalid count %q", args[0])
				}
				limit = n
			}

			var s store.Store
			if fromCSV {
				s = store.NewCSVStore(paths.Expand(a.cfg.Capture.Dir))
			} else {
				path := a.cfg.HistoryFile()
				if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("no capture history at %s (enable [capture] history or use --csv)", path)
				}
				h, err := store.NewSQLiteStore(path)
				if err != nil {
					return err
				}
				defer h.Close()
				s = h
			}

			w := cmd.OutOrStdout()
			if cmd.Flags().Changed("clean") {
				n, err := s.Clean(cleanDays)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "Removed %d captures older than %d days from %s.\n", n, cleanDays, s.Path())
				return nil
			}

			recs, err := s.List(limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}
			printRecords(w, recs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromCSV, "csv", false, "list CSV files in the capture directory instead of the history database")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	cmd.Flags().IntVar(&cleanDays, "clean", 30, "remove captures older than this many days")
	return cmd
}

func printRecords(w io.Writer, recs []store.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No captures.")
		return
	}
	fmt.Fprintf(w, "%-20s %8s  %-14s %s\n", "CAPTURED", "SAMPLES", "PORT", "NAME")
	for _, r := range recs {
		port := r.Port
		if port == "" {
			port = "-"
		}
		fmt.Fprintf(w, "%-20s %8d  %-14s %s\n", r.CapturedAt.Format("2006-01-02 15:04:05"), r.Count, port, r.Name)
	}
}

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := capture.Ports()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(ports) == 0 {
				fmt.Fprintln(w, "No serial ports found.")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintln(w, p)
			}
			return nil
		},
	}
}
