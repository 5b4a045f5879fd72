package audio

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultMusicVolumeDB = -15.0
	DefaultFadeOut       = 3000 * time.Millisecond
)

// MixOptions controls how background music sits under the narration.
type MixOptions struct {
	MusicVolumeDB float64
	FadeOut       time.Duration
}

// DefaultMixOptions returns -15 dB music with a 3 s fade-out.
func DefaultMixOptions() MixOptions {
	return MixOptions{
		MusicVolumeDB: DefaultMusicVolumeDB,
		FadeOut:       DefaultFadeOut,
	}
}

// Mix overlays the background asset under narration WAV bytes and returns the
// mixed WAV. The output always has exactly the narration's length and format.
func Mix(narration []byte, backgroundPath string, opts MixOptions) ([]byte, error) {
	voice, err := Decode(narration, "narration")
	if err != nil {
		return nil, err
	}
	bg, err := LoadFile(backgroundPath)
	if err != nil {
		return nil, err
	}
	mixed, err := MixBuffers(voice, bg, opts)
	if err != nil {
		return nil, err
	}
	return Encode(mixed), nil
}

// MixBuffers is Mix on decoded buffers. The background is cut to the part
// that can be heard, converted to the narration's format, looped, trimmed,
// faded, attenuated and summed in that order.
func MixBuffers(narration, background *Buffer, opts MixOptions) (*Buffer, error) {
	frames := narration.Frames()
	if !background.SameFormat(narration) {
		if need := sourceFrames(frames, background.SampleRate, narration.SampleRate); background.Frames() > need {
			background = background.Trim(need)
		}
		log.Debug().
			Str("narration", narration.String()).
			Str("background", background.String()).
			Msg("Converting background to narration format")
		background = Convert(background, narration.SampleRate, narration.Channels)
	}

	bed, err := LoopTo(background, frames)
	if err != nil {
		return nil, err
	}
	bed = bed.FadeOut(opts.FadeOut).Gain(opts.MusicVolumeDB)
	return Overlay(narration, bed), nil
}

// LoopTo repeats b until it covers at least frames, then trims it to exactly
// frames. The repeat count is frames/len+1, which can overshoot by one whole
// copy when frames is a multiple of the background length.
func LoopTo(b *Buffer, frames int) (*Buffer, error) {
	have := b.Frames()
	if have < frames {
		if have == 0 {
			return nil, &DecodeError{Source: "background", Err: errors.New("background has no audio frames")}
		}
		times := loopTimes(have, frames)
		log.Debug().Int("times", times).Int("frames", frames).Msg("Looping background")
		b = b.Repeat(times)
	}
	return b.Trim(frames), nil
}

// loopTimes is the number of copies LoopTo concatenates before trimming.
func loopTimes(have, frames int) int {
	return frames/have + 1
}

// sourceFrames is how many background frames at srcRate cover frames at
// dstRate once resampled, with one extra frame for interpolation.
func sourceFrames(frames, srcRate, dstRate int) int {
	n := int64(frames) * int64(srcRate)
	need := n / int64(dstRate)
	if n%int64(dstRate) != 0 {
		need++
	}
	return int(need) + 1
}

// Mixer binds MixOptions so callers can mix without passing them each time.
type Mixer struct {
	Options MixOptions
}

// NewMixer creates a mixer with the given options.
func NewMixer(opts MixOptions) *Mixer {
	return &Mixer{Options: opts}
}

// Mix runs Mix with the mixer's options.
func (m *Mixer) Mix(narration []byte, backgroundPath string) ([]byte, error) {
	return Mix(narration, backgroundPath, m.Options)
}
