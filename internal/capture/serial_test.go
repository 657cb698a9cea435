package capture

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
)

// chunkPort hands out its chunks one Read at a time. An empty chunk
// simulates a read timeout; after the last chunk it returns io.EOF.
type chunkPort struct {
	chunks []string
	closed bool
	closes int
}

func (c *chunkPort) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	chunk := c.chunks[0]
	c.chunks = c.chunks[1:]
	return copy(p, chunk), nil
}

func (c *chunkPort) Close() error {
	c.closed = true
	c.closes++
	return nil
}

func TestLineSourceSplitsAndTrims(t *testing.T) {
	port := &chunkPort{chunks: []string{"STA", "RT\r\n1", "2\r\n  34 \r\nEN", "D\r\n"}}
	src := NewLineSource(port)

	var got []string
	for {
		line, err := src.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.Fatalf("ReadLine: %v", err)
			}
			break
		}
		got = append(got, line)
	}
	want := []string{"START", "12", "34", "END"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %q, want %q", got, want)
	}

	if err := src.Close(); err != nil || !port.closed {
		t.Errorf("Close: err=%v closed=%t", err, port.closed)
	}
}

func TestLineSourceFinalUnterminatedLine(t *testing.T) {
	src := NewLineSource(&chunkPort{chunks: []string{"START\n", "END"}})
	if line, _ := src.ReadLine(); line != "START" {
		t.Fatalf("first line = %q", line)
	}
	line, err := src.ReadLine()
	if err != nil || line != "END" {
		t.Fatalf("second line = (%q, %v), want END", line, err)
	}
	if _, err := src.ReadLine(); !errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want io.EOF", err)
	}
}

func TestLineSourceTimeout(t *testing.T) {
	src := NewLineSource(&chunkPort{chunks: []string{"START\n12\n", ""}})
	r := NewReader(src, "/dev/ttyACM0")

	f, err := r.Run(context.Background())
	if f != nil {
		t.Fatalf("frame = %+v, want nil", f)
	}
	if !errors.Is(err, ErrReadTimeout) || !errors.Is(err, ErrStreamFailure) {
		t.Errorf("err = %v, want read timeout stream failure", err)
	}
}

func TestLineSourceCloseOnce(t *testing.T) {
	port := &chunkPort{}
	src := NewLineSource(port)
	src.Close()
	src.Close()
	if port.closes != 1 {
		t.Errorf("port closed %d times, want 1", port.closes)
	}
}
