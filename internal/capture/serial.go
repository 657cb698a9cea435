package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// DefaultBaud is the rate the recording firmware talks at.
const DefaultBaud = 115200

// ErrReadTimeout is returned when no byte arrives within the read timeout.
var ErrReadTimeout = errors.New("capture: read timeout")

// SerialConfig describes the device end of a capture.
type SerialConfig struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
}

// SerialSource reads newline-terminated lines from a serial port.
type SerialSource struct {
	port io.Closer
	r    *bufio.Reader

	closeOnce sync.Once
	closeErr  error
}

// OpenSerial opens the port described by cfg. Errors wrap ErrStreamFailure.
func OpenSerial(cfg SerialConfig) (*SerialSource, error) {
	baud := cfg.Baud
	if baud <= 0 {
		baud = DefaultBaud
	}
	p, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("%w: could not open port %s: %w", ErrStreamFailure, cfg.Port, err)
	}
	if cfg.ReadTimeout > 0 {
		if err := p.SetReadTimeout(cfg.ReadTimeout); err != nil {
			p.Close()
			return nil, fmt.Errorf("%w: port %s: set timeout: %w", ErrStreamFailure, cfg.Port, err)
		}
	}
	return NewLineSource(p), nil
}

// NewLineSource wraps any port-like stream. A Read that returns no bytes
// and no error is treated as a timeout.
func NewLineSource(rc io.ReadCloser) *SerialSource {
	return &SerialSource{port: rc, r: bufio.NewReader(timeoutReader{rc})}
}

// ReadLine returns the next line with surrounding whitespace removed. A
// final unterminated line is returned before io.EOF.
func (s *SerialSource) ReadLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Close releases the port. It may be called more than once, including
// from another goroutine to unblock a pending ReadLine.
func (s *SerialSource) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.port.Close() })
	return s.closeErr
}

// Ports lists the serial ports the OS currently reports.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// timeoutReader turns the (0, nil) result serial ports give on a read
// timeout into ErrReadTimeout, so bufio does not spin on it.
type timeoutReader struct {
	r io.Reader
}

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n == 0 && err == nil && len(p) > 0 {
		return 0, ErrReadTimeout
	}
	return n, err
}
