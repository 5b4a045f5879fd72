package audio

// Convert returns b rendered at the given sample rate and channel count.
// Channels are mixed first (mono downmix averages, upmix duplicates), then
// the rate is changed by linear interpolation. A buffer already in the
// target format is returned unchanged.
func Convert(b *Buffer, sampleRate, channels int) *Buffer {
	out := b
	if out.Channels != channels {
		out = remix(out, channels)
	}
	if out.SampleRate != sampleRate {
		out = resample(out, sampleRate)
	}
	return out
}

func remix(b *Buffer, channels int) *Buffer {
	frames := b.Frames()
	out := NewBuffer(frames, b.SampleRate, channels)
	for f := 0; f < frames; f++ {
		src := b.Samples[f*b.Channels : (f+1)*b.Channels]
		dst := out.Samples[f*channels : (f+1)*channels]
		switch {
		case channels == 1:
			var sum float64
			for _, s := range src {
				sum += float64(s)
			}
			dst[0] = Clip16(sum / float64(len(src)))
		case b.Channels == 1:
			for c := range dst {
				dst[c] = src[0]
			}
		default:
			for c := range dst {
				dst[c] = src[c%b.Channels]
			}
		}
	}
	return out
}

func resample(b *Buffer, sampleRate int) *Buffer {
	inFrames := b.Frames()
	outFrames := int(int64(inFrames) * int64(sampleRate) / int64(b.SampleRate))
	out := NewBuffer(outFrames, sampleRate, b.Channels)
	if inFrames == 0 {
		return out
	}
	step := float64(b.SampleRate) / float64(sampleRate)
	for f := 0; f < outFrames; f++ {
		pos := float64(f) * step
		i := int(pos)
		frac := pos - float64(i)
		j := i + 1
		if j >= inFrames {
			j = inFrames - 1
		}
		if i >= inFrames {
			i = inFrames - 1
		}
		for c := 0; c < b.Channels; c++ {
			a := float64(b.Samples[i*b.Channels+c])
			z := float64(b.Samples[j*b.Channels+c])
			out.Samples[f*b.Channels+c] = Clip16(a + (z-a)*frac)
		}
	}
	return out
}
