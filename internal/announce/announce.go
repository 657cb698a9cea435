// Package announce tells other systems that a capture finished, over MQTT
// and an HTTP webhook. Delivery is best-effort: failures are returned to
// the caller but never undo the capture.
package announce

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/stat"

	"github.com/Mavwarf/acoustic/internal/capture"
	"github.com/Mavwarf/acoustic/internal/mqtt"
	"github.com/Mavwarf/acoustic/internal/webhook"
)

// Summary is the payload sent for one capture.
type Summary struct {
	ID         string    `json:"id"`
	Port       string    `json:"port"`
	CapturedAt time.Time `json:"captured_at"`
	Count      int       `json:"count"`
	File       string    `json:"file,omitempty"`
	History    string    `json:"history_id,omitempty"`
	Min        int64     `json:"min"`
	Max        int64     `json:"max"`
	Mean       float64   `json:"mean"`
}

// NewSummary describes f. file and historyID name where it was stored and
// may be empty.
func NewSummary(f *capture.Frame, file, historyID string) Summary {
	s := Summary{
		ID:         f.ID.String(),
		Port:       f.Port,
		CapturedAt: f.CapturedAt,
		Count:      len(f.Samples),
		File:       file,
		History:    historyID,
	}
	if len(f.Samples) == 0 {
		return s
	}
	s.Min = slices.Min(f.Samples)
	s.Max = slices.Max(f.Samples)
	vals := make([]float64, len(f.Samples))
	for i, v := range f.Samples {
		vals[i] = float64(v)
	}
	s.Mean = stat.Mean(vals, nil)
	return s
}

// Notifier fans a Summary out to the configured channels. A zero-value
// Notifier has no channels and Announce is a no-op.
type Notifier struct {
	MQTT       *mqtt.Options
	WebhookURL string
	Headers    map[string]string
}

// Enabled reports whether any channel is configured.
func (n Notifier) Enabled() bool {
	return n.MQTT != nil || n.WebhookURL != ""
}

// Announce sends s to every channel. All channels are attempted; the
// returned error joins the failures.
func (n Notifier) Announce(ctx context.Context, s Summary) error {
	if !n.Enabled() {
		return nil
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}

	var errs []error
	if n.MQTT != nil {
		if err := mqtt.Publish(*n.MQTT, payload); err != nil {
			errs = append(errs, err)
		} else {
			glog.V(1).Infof("announce: published capture %s to %s", s.ID, n.MQTT.Topic)
		}
	}
	if n.WebhookURL != "" {
		if err := webhook.Send(ctx, n.WebhookURL, payload, n.Headers); err != nil {
			errs = append(errs, err)
		} else {
			glog.V(1).Infof("announce: posted capture %s to webhook", s.ID)
		}
	}
	return errors.Join(errs...)
}
