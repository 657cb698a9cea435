// Package capture records integer samples sent by a serial device between a
// START line and an END line.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
)

// Sentinel lines that open and close a capture window.
const (
	StartToken = "START"
	EndToken   = "END"
)

var (
	// ErrStreamFailure wraps every error that aborts a session.
	ErrStreamFailure = errors.New("capture: stream failure")
	// ErrBusy is returned when Run is called while a session is active.
	ErrBusy = errors.New("capture: session already active")
)

// State is the position of a session in the protocol.
type State int

const (
	StateAwaitingStart State = iota
	StateCapturing
	StateComplete
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateAwaitingStart:
		return "awaiting-start"
	case StateCapturing:
		return "capturing"
	case StateComplete:
		return "complete"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Terminal reports whether no further lines are accepted.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateAborted
}

// LineSource yields one trimmed text line per call. Any error, including a
// read timeout, ends the session.
type LineSource interface {
	ReadLine() (string, error)
}

// Frame is the result of one completed START…END cycle.
type Frame struct {
	ID         uuid.UUID
	Port       string
	Samples    []int64
	CapturedAt time.Time
}

// Session is the protocol state machine without any I/O. Feed it lines in
// order; once it reports StateComplete, Samples holds the payload.
type Session struct {
	state   State
	samples []int64
}

// State returns the current protocol state.
func (s *Session) State() State {
	return s.state
}

// Samples returns the values accepted so far.
func (s *Session) Samples() []int64 {
	return s.samples
}

// Feed advances the machine by one line and returns the new state. Lines
// before START are ignored; inside the window, lines that are not plain
// decimal integers are dropped, since devices interleave log output.
func (s *Session) Feed(line string) State {
	line = strings.TrimSpace(line)
	switch s.state {
	case StateAwaitingStart:
		if line == StartToken {
			s.state = StateCapturing
			s.samples = []int64{}
		}
	case StateCapturing:
		if line == EndToken {
			s.state = StateComplete
			return s.state
		}
		if v, ok := parseSample(line); ok {
			s.samples = append(s.samples, v)
		} else {
			glog.V(2).Infof("capture: dropped line %q", line)
		}
	}
	return s.state
}

// Abort moves the machine to StateAborted and forgets partial samples.
func (s *Session) Abort() {
	s.state = StateAborted
	s.samples = nil
}

// parseSample accepts ASCII digits only; signs, spaces and values that
// overflow int64 are rejected.
func parseSample(line string) (int64, bool) {
	if line == "" {
		return 0, false
	}
	for i := 0; i < len(line); i++ {
		if line[i] < '0' || line[i] > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Reader drives a Session from a LineSource. A Reader owns its source and
// runs at most one session at a time.
type Reader struct {
	src  LineSource
	port string
	now  func() time.Time

	busy  atomic.Bool
	mu    sync.Mutex
	state State
}

// NewReader returns a Reader over src; port names the device in errors.
func NewReader(src LineSource, port string) *Reader {
	return &Reader{src: src, port: port, now: time.Now}
}

// State returns the state of the current or most recent session.
func (r *Reader) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reader) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Run reads lines until END or a stream failure. It has no line or time
// limit of its own; cancel ctx or rely on the source's read timeout to
// bound it. On failure no frame is returned and the error wraps
// ErrStreamFailure.
func (r *Reader) Run(ctx context.Context) (*Frame, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer r.busy.Store(false)

	var s Session
	r.setState(s.State())
	glog.Infof("capture: waiting for %s on %s", StartToken, r.port)

	for {
		if err := ctx.Err(); err != nil {
			return r.abort(&s, err)
		}
		line, err := r.src.ReadLine()
		if err != nil {
			return r.abort(&s, err)
		}

		prev := s.State()
		st := s.Feed(line)
		if st != prev {
			glog.V(1).Infof("capture: %s: %s -> %s", r.port, prev, st)
			r.setState(st)
		}
		if st == StateComplete {
			f := &Frame{
				ID:         uuid.New(),
				Port:       r.port,
				Samples:    s.Samples(),
				CapturedAt: r.now(),
			}
			glog.Infof("capture: %s: %d samples", r.port, len(f.Samples))
			return f, nil
		}
	}
}

func (r *Reader) abort(s *Session, cause error) (*Frame, error) {
	discarded := len(s.Samples())
	s.Abort()
	r.setState(s.State())
	glog.Warningf("capture: %s: aborted, %d partial samples discarded: %v", r.port, discarded, cause)
	return nil, fmt.Errorf("%w: port %s: %w", ErrStreamFailure, r.port, cause)
}
