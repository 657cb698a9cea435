// Package audio plays sample buffers on the default output device and
// reads and writes them as WAV files.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/golang/glog"

	"github.com/Mavwarf/acoustic/internal/synth"
)

// ErrSampleRate is returned when a buffer's rate differs from the rate the
// output device was opened at. The device is opened once per process.
var ErrSampleRate = errors.New("audio: sample rate differs from open device")

var (
	otoCtx     *oto.Context
	otoRate    int
	otoOnce    sync.Once
	otoInitErr error
)

func getContext(rate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   rate,
			ChannelCount: 1,
			Format:       oto.FormatFloat32LE,
		}
		var readyChan chan struct{}
		otoCtx, readyChan, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-readyChan
			otoRate = rate
		}
	})
	if otoInitErr != nil {
		return nil, otoInitErr
	}
	if rate != otoRate {
		return nil, fmt.Errorf("%w: device at %d Hz, buffer at %d Hz", ErrSampleRate, otoRate, rate)
	}
	return otoCtx, nil
}

// Player plays one buffer at a time. Starting a new buffer stops the one
// before it. The zero value is ready to use.
type Player struct {
	mu   sync.Mutex
	cur  *oto.Player
	done chan struct{}
}

// Play starts buf at rate and returns without waiting for it to finish.
func (p *Player) Play(buf synth.Buffer, rate int) error {
	ctx, err := getContext(rate)
	if err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	op := ctx.NewPlayer(bytes.NewReader(EncodeFloat32LE(buf)))
	done := make(chan struct{})
	p.cur, p.done = op, done
	op.Play()
	glog.V(1).Infof("audio: playing %d samples at %d Hz", len(buf), rate)

	go p.drain(op, done)
	return nil
}

// drain polls until op finishes, then releases it unless Stop got there
// first.
func (p *Player) drain(op *oto.Player, done chan struct{}) {
	for op.IsPlaying() {
		time.Sleep(5 * time.Millisecond)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == op {
		p.cur = nil
		if err := op.Close(); err != nil {
			glog.Warningf("audio: close player: %v", err)
		}
		close(done)
	}
}

// Stop halts playback. It is safe to call when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.cur == nil {
		return
	}
	p.cur.Pause()
	if err := p.cur.Close(); err != nil {
		glog.Warningf("audio: close player: %v", err)
	}
	p.cur = nil
	close(p.done)
}

// IsPlaying reports whether a buffer is still being played.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cur != nil
}

// Wait blocks until the current buffer has drained or was stopped. If ctx
// ends first, playback is stopped and ctx's error returned.
func (p *Player) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.Stop()
		return ctx.Err()
	}
}

// EncodeFloat32LE converts samples to the little-endian float32 PCM the
// output device consumes. Values are clamped to [-1, 1].
func EncodeFloat32LE(buf synth.Buffer) []byte {
	out := make([]byte, 4*len(buf))
	for i, v := range buf {
		f := float32(math.Max(-1, math.Min(1, v)))
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}
