package capture

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"
)

// Compile-time interface check.
var _ LineSource = (*SerialSource)(nil)

// scriptSource replays lines, then returns err (io.EOF if nil).
type scriptSource struct {
	lines []string
	err   error
	reads int
}

func (s *scriptSource) ReadLine() (string, error) {
	if s.reads < len(s.lines) {
		line := s.lines[s.reads]
		s.reads++
		return line, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func runScript(t *testing.T, src LineSource) (*Frame, *Reader, error) {
	t.Helper()
	r := NewReader(src, "COM-TEST")
	f, err := r.Run(context.Background())
	return f, r, err
}

func TestRunDropsNoiseAndNonNumeric(t *testing.T) {
	src := &scriptSource{lines: []string{"noise", "START", "12", "abc", "34", "END"}}
	f, r, err := runScript(t, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := []int64{12, 34}; !reflect.DeepEqual(f.Samples, want) {
		t.Errorf("samples = %v, want %v", f.Samples, want)
	}
	if r.State() != StateComplete {
		t.Errorf("state = %s, want complete", r.State())
	}
	if f.Port != "COM-TEST" {
		t.Errorf("port = %q", f.Port)
	}
	if f.CapturedAt.IsZero() {
		t.Error("CapturedAt not set")
	}
}

func TestRunEmptyCapture(t *testing.T) {
	f, _, err := runScript(t, &scriptSource{lines: []string{"START", "END"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.Samples == nil || len(f.Samples) != 0 {
		t.Errorf("samples = %#v, want empty non-nil slice", f.Samples)
	}
}

func TestRunStreamFailureDiscardsPartial(t *testing.T) {
	cause := errors.New("device unplugged")
	f, r, err := runScript(t, &scriptSource{lines: []string{"START", "12"}, err: cause})
	if f != nil {
		t.Fatalf("frame = %+v, want nil", f)
	}
	if !errors.Is(err, ErrStreamFailure) {
		t.Errorf("err = %v, want ErrStreamFailure", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("err = %v, want it to wrap the cause", err)
	}
	if !strings.Contains(err.Error(), "COM-TEST") {
		t.Errorf("err = %q, want port name", err)
	}
	if r.State() != StateAborted {
		t.Errorf("state = %s, want aborted", r.State())
	}
}

func TestRunFailureBeforeStart(t *testing.T) {
	f, r, err := runScript(t, &scriptSource{lines: []string{"boot", "ready"}, err: ErrReadTimeout})
	if f != nil || !errors.Is(err, ErrStreamFailure) || !errors.Is(err, ErrReadTimeout) {
		t.Fatalf("got (%v, %v), want timeout stream failure", f, err)
	}
	if r.State() != StateAborted {
		t.Errorf("state = %s, want aborted", r.State())
	}
}

func TestRunEOFIsStreamFailure(t *testing.T) {
	_, _, err := runScript(t, &scriptSource{lines: []string{"START", "1", "2"}})
	if !errors.Is(err, ErrStreamFailure) || !errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want EOF stream failure", err)
	}
}

func TestRunStopsAtEnd(t *testing.T) {
	src := &scriptSource{lines: []string{"START", "7", "END", "8", "END"}}
	f, _, err := runScript(t, src)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(f.Samples, []int64{7}) {
		t.Errorf("samples = %v, want [7]", f.Samples)
	}
	if src.reads != 3 {
		t.Errorf("read %d lines, want 3", src.reads)
	}
}

func TestRunIsReusable(t *testing.T) {
	src := &scriptSource{lines: []string{"START", "1", "END", "START", "2", "3", "END"}}
	r := NewReader(src, "p")

	first, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Samples, []int64{1}) || !reflect.DeepEqual(second.Samples, []int64{2, 3}) {
		t.Errorf("sessions = %v, %v", first.Samples, second.Samples)
	}
	if first.ID == second.ID {
		t.Error("sessions share an ID")
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewReader(&scriptSource{lines: []string{"START", "1", "END"}}, "p")
	f, err := r.Run(ctx)
	if f != nil || !errors.Is(err, ErrStreamFailure) || !errors.Is(err, context.Canceled) {
		t.Errorf("got (%v, %v), want cancelled stream failure", f, err)
	}
}

// blockingSource blocks every read until released.
type blockingSource struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSource) ReadLine() (string, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-b.release
	return "", io.EOF
}

func TestRunRejectsConcurrentSession(t *testing.T) {
	src := &blockingSource{started: make(chan struct{}, 1), release: make(chan struct{})}
	r := NewReader(src, "p")

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background())
		done <- err
	}()

	select {
	case <-src.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first session never started reading")
	}
	if _, err := r.Run(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("second Run err = %v, want ErrBusy", err)
	}
	close(src.release)
	if err := <-done; !errors.Is(err, ErrStreamFailure) {
		t.Errorf("first Run err = %v, want stream failure", err)
	}
}

func TestSessionFeed(t *testing.T) {
	var s Session
	steps := []struct {
		line string
		want State
	}{
		{"END", StateAwaitingStart},
		{"start", StateAwaitingStart},
		{"  START\r", StateCapturing},
		{"-5", StateCapturing},
		{"1e3", StateCapturing},
		{"", StateCapturing},
		{"0042", StateCapturing},
		{"99999999999999999999", StateCapturing},
		{"START", StateCapturing},
		{"END ", StateComplete},
		{"5", StateComplete},
	}
	for i, st := range steps {
		if got := s.Feed(st.line); got != st.want {
			t.Fatalf("step %d (%q): state = %s, want %s", i, st.line, got, st.want)
		}
	}
	if !reflect.DeepEqual(s.Samples(), []int64{42}) {
		t.Errorf("samples = %v, want [42]", s.Samples())
	}
}

func TestParseSample(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"0", 0, true},
		{"1023", 1023, true},
		{"+1", 0, false},
		{"-1", 0, false},
		{"12 34", 0, false},
		{"١٢", 0, false},
		{"9223372036854775808", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseSample(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseSample(%q) = (%d, %t), want (%d, %t)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestStateTerminal(t *testing.T) {
	if StateAwaitingStart.Terminal() || StateCapturing.Terminal() {
		t.Error("non-terminal state reported terminal")
	}
	if !StateComplete.Terminal() || !StateAborted.Terminal() {
		t.Error("terminal state reported non-terminal")
	}
}
