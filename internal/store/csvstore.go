package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/Mavwarf/acoustic/internal/capture"
	"github.com/Mavwarf/acoustic/internal/paths"
)

// Header is the single column name written at the top of every CSV file.
const Header = "ADC Value"

const (
	filePrefix = "capture_"
	fileSuffix = ".csv"
	fileLayout = "20060102_150405"
)

// FileName returns the capture file name for t, with microsecond
// resolution: capture_YYYYMMDD_HHMMSS_ffffff.csv.
func FileName(t time.Time) string {
	return fmt.Sprintf("%s%s_%06d%s", filePrefix, t.Format(fileLayout), t.Nanosecond()/1000, fileSuffix)
}

// parseFileName recovers the capture time from a FileName result.
func parseFileName(name string) (time.Time, bool) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, filePrefix) || !strings.HasSuffix(base, fileSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(base, filePrefix), fileSuffix)
	if len(stamp) != len(fileLayout)+7 || stamp[len(fileLayout)] != '_' {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(fileLayout, stamp[:len(fileLayout)], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	micros, err := strconv.Atoi(stamp[len(fileLayout)+1:])
	if err != nil {
		return time.Time{}, false
	}
	return t.Add(time.Duration(micros) * time.Microsecond), true
}

// CSVStore implements Store with one CSV file per capture in a directory.
type CSVStore struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	last time.Time // newest stamp handed out
}

// NewCSVStore returns a CSVStore writing into dir. The directory is
// created on first save.
func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir, now: time.Now}
}

// Save writes f's samples to a new timestamped file and returns its path.
// The timestamp is the save time, not the capture time.
func (c *CSVStore) Save(f *capture.Frame) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, f.Samples); err != nil {
		return "", fmt.Errorf("store: encode csv: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		path := filepath.Join(c.dir, FileName(c.nextStamp()))
		if _, err := os.Stat(path); err == nil {
			// Left behind by an earlier process; try the next stamp.
			continue
		}
		if err := paths.AtomicWrite(path, buf.Bytes()); err != nil {
			return "", fmt.Errorf("store: write %s: %w", path, err)
		}
		return path, nil
	}
}

// nextStamp returns a save time strictly after the previous one, so two
// captures saved within the same microsecond still get distinct names.
func (c *CSVStore) nextStamp() time.Time {
	t := c.now().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}

// List returns the capture files in the directory, newest first. Files
// that cannot be parsed are skipped with a warning.
func (c *CSVStore) List(limit int) ([]Record, error) {
	files, err := c.files()
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].CapturedAt.After(files[j].CapturedAt) })

	out := make([]Record, 0, len(files))
	for _, f := range files {
		if limit > 0 && len(out) == limit {
			break
		}
		samples, err := ReadCSVFile(f.Name)
		if err != nil {
			glog.Warningf("store: skipping %v", err)
			continue
		}
		f.Count = len(samples)
		out = append(out, f)
	}
	return out, nil
}

// Samples reads the capture file at name. Relative names are resolved
// against the store directory.
func (c *CSVStore) Samples(name string) ([]int64, error) {
	if !filepath.IsAbs(name) && filepath.Dir(name) == "." {
		name = filepath.Join(c.dir, name)
	}
	samples, err := ReadCSVFile(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return samples, err
}

// Clean removes capture files whose name stamps are older than days.
func (c *CSVStore) Clean(days int) (int, error) {
	files, err := c.files()
	if err != nil {
		return 0, err
	}
	cutoff := c.now().AddDate(0, 0, -days)
	removed := 0
	for _, f := range files {
		if !f.CapturedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(f.Name); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (c *CSVStore) Path() string {
	return c.dir
}

// files lists capture files without reading them.
func (c *CSVStore) files() ([]Record, error) {
	matches, err := filepath.Glob(filepath.Join(c.dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, m := range matches {
		t, ok := parseFileName(m)
		if !ok {
			continue
		}
		out = append(out, Record{Name: m, CapturedAt: t})
	}
	return out, nil
}

// WriteCSV writes the header row followed by one row per sample.
func WriteCSV(w io.Writer, samples []int64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{Header}); err != nil {
		return err
	}
	for _, v := range samples {
		if err := cw.Write([]string{strconv.FormatInt(v, 10)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a capture file: a header row then one integer per row.
func ReadCSV(r io.Reader) ([]int64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 1
	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("store: csv: missing header")
		}
		return nil, fmt.Errorf("store: csv: %w", err)
	}
	if strings.TrimSpace(strings.TrimPrefix(head[0], "\ufeff")) != Header {
		return nil, fmt.Errorf("store: csv: unexpected header %q", head[0])
	}

	samples := []int64{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return samples, nil
		}
		if err != nil {
			return nil, fmt.Errorf("store: csv: %w", err)
		}
		v, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("store: csv: line %d: %w", line, err)
		}
		samples = append(samples, v)
	}
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	samples, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}
