package audio

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/Mavwarf/acoustic/internal/synth"
)

func TestEncodeFloat32LE(t *testing.T) {
	pcm := EncodeFloat32LE(synth.Buffer{0, 0.5, -1, 3, -3})
	if len(pcm) != 20 {
		t.Fatalf("len = %d, want 20", len(pcm))
	}
	want := []float32{0, 0.5, -1, 1, -1}
	for i, w := range want {
		got := math.Float32frombits(binary.LittleEndian.Uint32(pcm[4*i:]))
		if got != w {
			t.Errorf("sample %d = %v, want %v", i, got, w)
		}
	}
}

func TestEncodeFloat32LEEmpty(t *testing.T) {
	if pcm := EncodeFloat32LE(nil); len(pcm) != 0 {
		t.Errorf("len = %d, want 0", len(pcm))
	}
}

func TestIdlePlayer(t *testing.T) {
	var p Player
	if p.IsPlaying() {
		t.Error("zero Player reports playing")
	}
	// Stop and Wait are no-ops without a device.
	p.Stop()
	p.Stop()
	if err := p.Wait(context.Background()); err != nil {
		t.Errorf("Wait = %v, want nil", err)
	}
}
