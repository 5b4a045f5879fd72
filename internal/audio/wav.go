package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE

	// streaming writers leave the data size at its maximum
	unknownDataSize = 0xFFFFFFFF

	// MaxChannels bounds the channel count accepted from a WAV header.
	MaxChannels = 8
)

// Decode parses WAV bytes into a 16-bit buffer. source names the input in errors.
func Decode(data []byte, source string) (*Buffer, error) {
	return DecodeReader(bytes.NewReader(data), source)
}

// DecodeReader parses a WAV stream into a 16-bit buffer. 8, 24 and 32-bit
// integer PCM are rescaled to 16 bits; float encodings are rejected.
func DecodeReader(r io.ReadSeeker, source string) (*Buffer, error) {
	d := wav.NewDecoder(r)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return nil, &DecodeError{Source: source, Err: err}
	}
	if d.NumChans == 0 || d.SampleRate == 0 {
		return nil, &DecodeError{Source: source, Err: errors.New("missing fmt chunk")}
	}
	if int(d.NumChans) > MaxChannels {
		return nil, &DecodeError{Source: source, Err: fmt.Errorf("unsupported channel count %d", d.NumChans)}
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, &DecodeError{Source: source, Err: fmt.Errorf("unsupported wav encoding %d", d.WavAudioFormat)}
	}
	switch d.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, &DecodeError{Source: source, Err: fmt.Errorf("unsupported bit depth %d", d.BitDepth)}
	}

	ib, err := d.FullPCMBuffer()
	if err != nil {
		return nil, &DecodeError{Source: source, Err: err}
	}
	if ib == nil {
		return nil, &DecodeError{Source: source, Err: errors.New("no pcm data chunk")}
	}
	if got := len(ib.Data) * int(d.BitDepth/8); got < d.PCMSize && uint32(d.PCMSize) != unknownDataSize {
		return nil, &DecodeError{Source: source, Err: fmt.Errorf("data chunk truncated: %d of %d bytes", got, d.PCMSize)}
	}
	return fromIntBuffer(ib, int(d.BitDepth), int(d.SampleRate), int(d.NumChans)), nil
}

func fromIntBuffer(ib *goaudio.IntBuffer, bitDepth, sampleRate, channels int) *Buffer {
	// drop a trailing partial frame
	n := len(ib.Data) - len(ib.Data)%channels
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		v := ib.Data[i]
		switch bitDepth {
		case 8:
			v = (v - 128) << 8
		case 24:
			v >>= 8
		case 32:
			v >>= 16
		}
		out[i] = int16(v)
	}
	return &Buffer{Samples: out, SampleRate: sampleRate, Channels: channels}
}

// LoadFile reads and decodes a WAV file from disk.
func LoadFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &AssetNotFoundError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeReader(f, path)
}

// Encode renders the buffer as an in-memory canonical 44-byte-header PCM WAV.
func Encode(b *Buffer) []byte {
	const bitsPerSample = BitDepth
	dataSize := len(b.Samples) * 2
	blockAlign := b.Channels * bitsPerSample / 8
	byteRate := b.SampleRate * blockAlign

	out := make([]byte, 44+dataSize)
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], wavFormatPCM)
	binary.LittleEndian.PutUint16(out[22:], uint16(b.Channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(b.SampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], bitsPerSample)
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range b.Samples {
		binary.LittleEndian.PutUint16(out[44+i*2:], uint16(s))
	}
	return out
}

// WriteFile encodes the buffer to path as 16-bit PCM.
func WriteFile(path string, b *Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	enc := wav.NewEncoder(f, b.SampleRate, BitDepth, b.Channels, wavFormatPCM)
	if err := enc.Write(b.intBuffer()); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	return f.Close()
}

func (b *Buffer) intBuffer() *goaudio.IntBuffer {
	data := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		data[i] = int(s)
	}
	return &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: b.Channels, SampleRate: b.SampleRate},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
}
