// Package store persists completed capture frames, either as one CSV file
// per capture or as rows in a SQLite history database.
package store

import (
	"errors"
	"time"

	"github.com/Mavwarf/acoustic/internal/capture"
)

// ErrNotFound is returned by Samples when no capture has the given name.
var ErrNotFound = errors.New("store: capture not found")

// Record summarizes one stored capture.
type Record struct {
	Name       string    `json:"name"` // file path (CSV) or capture ID (SQLite)
	Port       string    `json:"port,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
	Count      int       `json:"count"`
}

// Store abstracts capture persistence.
type Store interface {
	// Write
	Save(f *capture.Frame) (string, error) // returns the new record's name

	// Read
	List(limit int) ([]Record, error) // newest first, 0 = all
	Samples(name string) ([]int64, error)

	// Maintenance
	Clean(days int) (int, error) // remove captures older than days, return removed count

	// Metadata
	Path() string
}
