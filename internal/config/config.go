package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Mavwarf/acoustic/internal/paths"
	"github.com/Mavwarf/acoustic/internal/synth"
)

// Defaults for keys missing from the config file.
const (
	DefaultSampleRate     = synth.DefaultSampleRate
	DefaultDuration       = 2.0
	DefaultSineAmplitude  = 0.5
	DefaultNoiseAmplitude = 0.3
	DefaultPort           = "COM3"
	DefaultBaud           = 115200
	DefaultReadTimeout    = 10 * time.Second
	DefaultMQTTTopic      = "acoustic/capture"
)

// Duration is a time.Duration written as a Go duration string ("10s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Level holds the output amplitude for a family of signals.
type Level struct {
	Amplitude float64 `toml:"amplitude"`
}

// Serial configures the capture device.
type Serial struct {
	Port        string   `toml:"port"`
	Baud        int      `toml:"baud"`
	ReadTimeout Duration `toml:"read_timeout"`
}

// Capture configures where completed captures go.
type Capture struct {
	Dir         string `toml:"dir"`
	History     bool   `toml:"history"`
	HistoryPath string `toml:"history_path"`
}

// Notify configures capture announcements. Empty fields disable the
// corresponding channel.
type Notify struct {
	MQTTBroker   string `toml:"mqtt_broker"`
	MQTTTopic    string `toml:"mqtt_topic"`
	MQTTClientID string `toml:"mqtt_client_id"`
	WebhookURL   string `toml:"webhook_url"`
}

// Config holds every setting read from acoustic.toml.
type Config struct {
	SampleRate int     `toml:"sample_rate"`
	Seed       uint64  `toml:"seed"`
	Duration   float64 `toml:"duration"`
	Sine       Level   `toml:"sine"`
	Noise      Level   `toml:"noise"`
	Serial     Serial  `toml:"serial"`
	Capture    Capture `toml:"capture"`
	Notify     Notify  `toml:"notify"`

	// Source is the file the config was read from, empty for defaults.
	Source string `toml:"-"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		SampleRate: DefaultSampleRate,
		Duration:   DefaultDuration,
		Sine:       Level{Amplitude: DefaultSineAmplitude},
		Noise:      Level{Amplitude: DefaultNoiseAmplitude},
		Serial: Serial{
			Port:        DefaultPort,
			Baud:        DefaultBaud,
			ReadTimeout: Duration{DefaultReadTimeout},
		},
		Capture: Capture{Dir: "."},
		Notify:  Notify{MQTTTopic: DefaultMQTTTopic},
	}
}

// Amplitude returns the configured output level for kind.
func (c Config) Amplitude(kind synth.Kind) float64 {
	if kind == synth.KindSine {
		return c.Sine.Amplitude
	}
	return c.Noise.Amplitude
}

// Synth returns the generator settings.
func (c Config) Synth() synth.Config {
	return synth.Config{SampleRate: c.SampleRate, Seed: c.Seed}
}

// HistoryFile returns the capture history database path.
func (c Config) HistoryFile() string {
	if c.Capture.HistoryPath != "" {
		return paths.Expand(c.Capture.HistoryPath)
	}
	return paths.HistoryPath()
}

// Validate checks value ranges. All problems are reported together.
func (c Config) Validate() error {
	var errs []error
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate))
	}
	if math.IsNaN(c.Duration) || math.IsInf(c.Duration, 0) || c.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be a positive number of seconds, got %v", c.Duration))
	}
	for name, amp := range map[string]float64{"sine": c.Sine.Amplitude, "noise": c.Noise.Amplitude} {
		if math.IsNaN(amp) || amp <= 0 || amp > 1 {
			errs = append(errs, fmt.Errorf("%s.amplitude must be in (0, 1], got %v", name, amp))
		}
	}
	if c.Serial.Baud <= 0 {
		errs = append(errs, fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud))
	}
	if c.Serial.ReadTimeout.Duration < 0 {
		errs = append(errs, fmt.Errorf("serial.read_timeout must not be negative, got %s", c.Serial.ReadTimeout))
	}
	if c.Notify.MQTTBroker != "" && c.Notify.MQTTTopic == "" {
		errs = append(errs, errors.New("notify.mqtt_topic is required when mqtt_broker is set"))
	}
	if len(errs) == 0 {
		return nil
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Error() < errs[j].Error() })
	return fmt.Errorf("config: %w", errors.Join(errs...))
}

// Load reads and parses a config file. It tries, in order:
//  1. explicitPath (if non-empty; it must exist)
//  2. acoustic.toml next to the running binary
//  3. acoustic.toml in paths.DataDir()
//
// When no file is found the defaults are returned.
func Load(explicitPath string) (Config, error) {
	if explicitPath != "" {
		return readConfig(explicitPath)
	}

	// Next to binary
	exe, err := os.Executable()
	if err == nil {
		p := filepath.Join(filepath.Dir(exe), paths.ConfigFileName)
		if _, err := os.Stat(p); err == nil {
			return readConfig(p)
		}
	}

	// User config directory
	p := filepath.Join(paths.DataDir(), paths.ConfigFileName)
	if _, err := os.Stat(p); err == nil {
		return readConfig(p)
	}

	return Default(), nil
}

// readConfig decodes path over the defaults, so keys absent from the file
// keep their default values. Unknown keys are an error.
func readConfig(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config: %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Source = path
	return cfg, nil
}
