package audio

import (
	"fmt"
	"math"
	"time"
)

const (
	BitDepth = 16
	MaxInt16 = 32767
	MinInt16 = -32768
)

// Buffer is interleaved signed 16-bit PCM.
type Buffer struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// NewBuffer allocates a silent buffer of the given frame count.
func NewBuffer(frames, sampleRate, channels int) *Buffer {
	return &Buffer{
		Samples:    make([]int16, frames*channels),
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// Frames returns the number of sample frames (one sample per channel).
func (b *Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback length.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// FramesFor converts a duration to a frame count at this buffer's rate.
func (b *Buffer) FramesFor(d time.Duration) int {
	if d <= 0 || b.SampleRate <= 0 {
		return 0
	}
	return int(int64(d) * int64(b.SampleRate) / int64(time.Second))
}

// SameFormat reports whether two buffers share sample rate and channel count.
func (b *Buffer) SameFormat(o *Buffer) bool {
	return b.SampleRate == o.SampleRate && b.Channels == o.Channels
}

func (b *Buffer) String() string {
	return fmt.Sprintf("pcm16 %dHz %dch %d frames", b.SampleRate, b.Channels, b.Frames())
}

// Repeat concatenates the buffer with itself n times. n < 1 yields an empty buffer.
func (b *Buffer) Repeat(n int) *Buffer {
	if n < 1 {
		return &Buffer{SampleRate: b.SampleRate, Channels: b.Channels}
	}
	out := make([]int16, 0, len(b.Samples)*n)
	for i := 0; i < n; i++ {
		out = append(out, b.Samples...)
	}
	return &Buffer{Samples: out, SampleRate: b.SampleRate, Channels: b.Channels}
}

// Trim returns the first frames frames. A buffer that is already shorter is
// returned as a copy of itself.
func (b *Buffer) Trim(frames int) *Buffer {
	if frames < 0 {
		frames = 0
	}
	n := frames * b.Channels
	if n > len(b.Samples) {
		n = len(b.Samples)
	}
	out := make([]int16, n)
	copy(out, b.Samples[:n])
	return &Buffer{Samples: out, SampleRate: b.SampleRate, Channels: b.Channels}
}

// FadeOut ramps the last d of the buffer linearly down to silence. The last
// frame of the window is always exactly zero. A window longer than the buffer
// covers the whole buffer.
func (b *Buffer) FadeOut(d time.Duration) *Buffer {
	out := b.Trim(b.Frames())
	frames := out.Frames()
	window := out.FramesFor(d)
	if window > frames {
		window = frames
	}
	if window <= 0 {
		return out
	}
	start := frames - window
	for k := 0; k < window; k++ {
		gain := 1 - float64(k+1)/float64(window)
		base := (start + k) * out.Channels
		for c := 0; c < out.Channels; c++ {
			out.Samples[base+c] = Clip16(float64(out.Samples[base+c]) * gain)
		}
	}
	return out
}

// Gain scales every sample by db decibels.
func (b *Buffer) Gain(db float64) *Buffer {
	g := DBToGain(db)
	out := make([]int16, len(b.Samples))
	for i, s := range b.Samples {
		out[i] = Clip16(float64(s) * g)
	}
	return &Buffer{Samples: out, SampleRate: b.SampleRate, Channels: b.Channels}
}

// DBToGain converts decibels to a linear amplitude multiplier.
func DBToGain(db float64) float64 {
	return math.Pow(10, db/20)
}

// Clip16 rounds v to the nearest integer and saturates it to the int16 range.
func Clip16(v float64) int16 {
	v = math.Round(v)
	if v > MaxInt16 {
		return MaxInt16
	}
	if v < MinInt16 {
		return MinInt16
	}
	return int16(v)
}

// Overlay sums over onto base starting at frame 0. The result has base's
// length and format; samples of over past base's end are ignored.
// Sums saturate instead of wrapping.
func Overlay(base, over *Buffer) *Buffer {
	out := make([]int16, len(base.Samples))
	for i, s := range base.Samples {
		sum := float64(s)
		if i < len(over.Samples) {
			sum += float64(over.Samples[i])
		}
		out[i] = Clip16(sum)
	}
	return &Buffer{Samples: out, SampleRate: base.SampleRate, Channels: base.Channels}
}
