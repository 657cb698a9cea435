package audio

import (
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/transforms"
	"github.com/go-audio/wav"

	"github.com/Mavwarf/acoustic/internal/synth"
)

// maxWAVSize is the maximum WAV file size we'll load (50 MB).
const maxWAVSize = 50 * 1024 * 1024

// wavBitDepth is the depth WriteWAV encodes at.
const wavBitDepth = 16

// WriteWAV writes buf as a 16-bit PCM mono WAV file. Samples outside
// [-1, 1] are clamped.
func WriteWAV(path string, buf synth.Buffer, rate int) (err error) {
	if rate <= 0 {
		return fmt.Errorf("wav: invalid sample rate %d", rate)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("wav: %w", cerr)
		}
	}()

	scale := float64(int(1)<<(wavBitDepth-1) - 1)
	ib := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           make([]int, len(buf)),
		SourceBitDepth: wavBitDepth,
	}
	for i, v := range buf {
		ib.Data[i] = int(math.Round(math.Max(-1, math.Min(1, v)) * scale))
	}

	enc := wav.NewEncoder(f, rate, wavBitDepth, 1, 1)
	if err := enc.Write(ib); err != nil {
		return fmt.Errorf("wav: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: encode: %w", err)
	}
	return nil
}

// LoadWAV reads a PCM WAV file and returns its samples scaled to [-1, 1]
// together with the file's sample rate. Multi-channel files are downmixed
// to mono.
func LoadWAV(path string) (synth.Buffer, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("wav: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("wav: %w", err)
	}
	if info.Size() > maxWAVSize {
		return nil, 0, fmt.Errorf("wav: file too large (%d bytes, max %d)", info.Size(), maxWAVSize)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("wav: %s: not a valid WAV file", path)
	}
	ib, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("wav: %s: %w", path, err)
	}
	if ib.Format == nil || ib.Format.SampleRate <= 0 {
		return nil, 0, fmt.Errorf("wav: %s: missing format", path)
	}
	depth := int(dec.BitDepth)
	if depth != 8 && depth != 16 && depth != 24 && depth != 32 {
		return nil, 0, fmt.Errorf("wav: unsupported bit depth %d", depth)
	}

	fb := ib.AsFloatBuffer()
	if fb.Format.NumChannels > 1 {
		if err := transforms.MonoDownmix(fb); err != nil {
			return nil, 0, fmt.Errorf("wav: downmix: %w", err)
		}
	}

	out := make(synth.Buffer, len(fb.Data))
	full := math.Exp2(float64(depth - 1))
	for i, v := range fb.Data {
		if depth == 8 {
			// 8-bit WAV is unsigned around 128.
			v -= 128
		}
		out[i] = v / full
	}
	return out, fb.Format.SampleRate, nil
}
