package audio

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEncodeHeader(t *testing.T) {
	b := &Buffer{Samples: []int16{1, -1, 256, 0}, SampleRate: 24000, Channels: 2}
	out := Encode(b)

	if len(out) != 44+8 {
		t.Fatalf("len = %d, want 52", len(out))
	}
	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WAVE" || string(out[36:40]) != "data" {
		t.Errorf("bad chunk ids: %q %q %q", out[0:4], out[8:12], out[36:40])
	}
	if got := binary.LittleEndian.Uint16(out[22:]); got != 2 {
		t.Errorf("channels = %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint32(out[24:]); got != 24000 {
		t.Errorf("sample rate = %d, want 24000", got)
	}
	if got := binary.LittleEndian.Uint32(out[28:]); got != 24000*4 {
		t.Errorf("byte rate = %d, want %d", got, 24000*4)
	}
	if got := binary.LittleEndian.Uint32(out[40:]); got != 8 {
		t.Errorf("data size = %d, want 8", got)
	}
	// 256 = 0x0100 little-endian
	if out[48] != 0x00 || out[49] != 0x01 {
		t.Errorf("sample 256 encoded as [%02x %02x]", out[48], out[49])
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		rate     int
		channels int
	}{
		{"mono 16k", 16000, 1},
		{"stereo 44.1k", 44100, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuffer(300, tt.rate, tt.channels)
			for i := range b.Samples {
				b.Samples[i] = int16(i*97 - 20000)
			}
			got, err := Decode(Encode(b), "roundtrip")
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !got.SameFormat(b) {
				t.Fatalf("format = %s, want %s", got, b)
			}
			if len(got.Samples) != len(b.Samples) {
				t.Fatalf("len = %d, want %d", len(got.Samples), len(b.Samples))
			}
			for i := range b.Samples {
				if got.Samples[i] != b.Samples[i] {
					t.Fatalf("sample %d = %d, want %d", i, got.Samples[i], b.Samples[i])
				}
			}
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, in := range [][]byte{
		[]byte("hello world, this is not audio at all"),
		{0x00, 0x01},
	} {
		_, err := Decode(in, "upload")
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Errorf("Decode(%q) err = %v, want *DecodeError", in, err)
			continue
		}
		if de.Source != "upload" {
			t.Errorf("Source = %q, want upload", de.Source)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	if err := WriteFile(path, constBuffer(50, 8000, 1, 42)); err != nil {
		t.Fatal(err)
	}
	b, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if b.Frames() != 50 || b.Samples[0] != 42 {
		t.Errorf("loaded %s first=%d, want 50 frames of 42", b, b.Samples[0])
	}

	_, err = LoadFile(filepath.Join(dir, "missing.wav"))
	var nf *AssetNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want *AssetNotFoundError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("AssetNotFoundError should unwrap to os.ErrNotExist")
	}
}

func TestDecodeRejectsTooManyChannels(t *testing.T) {
	in := Encode(NewBuffer(4, 8000, MaxChannels+1))
	_, err := Decode(in, "narration")
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DecodeError", err)
	}
}

func TestDecodeRejectsTruncatedData(t *testing.T) {
	full := Encode(constBuffer(100, 8000, 1, 7))

	short := full[:len(full)-50]
	huge := append([]byte(nil), full[:44]...)
	binary.LittleEndian.PutUint32(huge[40:], 1<<30)

	for name, in := range map[string][]byte{"cut": short, "oversized header": huge} {
		_, err := Decode(in, "upload")
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Errorf("%s: err = %v, want *DecodeError", name, err)
		}
	}
}

func TestWriteFileMatchesEncode(t *testing.T) {
	b := NewBuffer(120, 22050, 2)
	for i := range b.Samples {
		b.Samples[i] = int16(i*311 - 15000)
	}
	path := filepath.Join(t.TempDir(), "out.wav")
	if err := WriteFile(path, b); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 44+len(b.Samples)*2 {
		t.Errorf("file size = %d, want %d", len(data), 44+len(b.Samples)*2)
	}
	got, err := Decode(data, path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.SameFormat(b) || len(got.Samples) != len(b.Samples) {
		t.Fatalf("decoded %s, want %s", got, b)
	}
	for i := range b.Samples {
		if got.Samples[i] != b.Samples[i] {
			t.Fatalf("sample %d = %d, want %d", i, got.Samples[i], b.Samples[i])
		}
	}
}
