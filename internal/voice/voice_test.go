package voice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/snappy-loop/fairytales/internal/audio"
	"github.com/snappy-loop/fairytales/internal/models"
)

func sampleWAV() []byte {
	b := audio.NewBuffer(100, 16000, 1)
	for i := range b.Samples {
		b.Samples[i] = int16(i * 10)
	}
	return audio.Encode(b)
}

func newTestNormalizer(t *testing.T, voiceDir, ffmpeg string) *Normalizer {
	t.Helper()
	n := NewNormalizer(voiceDir, "", ffmpeg)
	n.tempDir = t.TempDir()
	return n
}

func TestPrepareUploadWritesAndCleansUp(t *testing.T) {
	n := newTestNormalizer(t, "", "")
	p, err := n.Prepare(context.Background(), models.UploadedVoice(sampleWAV()))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if p.Preset != "" {
		t.Errorf("Preset = %q, want empty for uploads", p.Preset)
	}
	buf, err := audio.LoadFile(p.Path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if buf.Frames() != 100 || buf.SampleRate != 16000 {
		t.Errorf("sample = %s", buf)
	}

	p.Close()
	if _, err := os.Stat(p.Path); !os.IsNotExist(err) {
		t.Errorf("temp sample still exists after Close: %v", err)
	}
	p.Close()
}

func TestPrepareUploadRejectsGarbage(t *testing.T) {
	n := newTestNormalizer(t, "", "")
	_, err := n.Prepare(context.Background(), models.UploadedVoice([]byte("not audio at all")))
	var refErr *ReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("err = %v, want ReferenceError", err)
	}
	entries, _ := os.ReadDir(n.tempDir)
	if len(entries) != 0 {
		t.Errorf("temp dir not cleaned: %d entries", len(entries))
	}
}

func TestPrepareUploadFFmpegFailure(t *testing.T) {
	n := newTestNormalizer(t, "", filepath.Join(t.TempDir(), "no-ffmpeg"))
	_, err := n.Prepare(context.Background(), models.UploadedVoice([]byte("ID3 mp3 bytes")))
	var refErr *ReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("err = %v, want ReferenceError", err)
	}
	entries, _ := os.ReadDir(n.tempDir)
	if len(entries) != 0 {
		t.Errorf("temp dir not cleaned: %d entries", len(entries))
	}
}

func TestPreparePreset(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Islam.wav"), sampleWAV(), 0o644); err != nil {
		t.Fatal(err)
	}
	n := newTestNormalizer(t, dir, "")

	tests := []struct {
		name     string
		ref      models.VoiceReference
		wantPath string
		wantName string
	}{
		{"default preset has a sample", models.VoiceReference{}, filepath.Join(dir, "Islam.wav"), "Islam.wav"},
		{"named speaker without file", models.PresetVoice("Puck"), "", "Puck"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := n.Prepare(context.Background(), tt.ref)
			if err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			defer p.Close()
			if p.Path != tt.wantPath || p.Preset != tt.wantName {
				t.Errorf("got (%q, %q), want (%q, %q)", p.Path, p.Preset, tt.wantPath, tt.wantName)
			}
		})
	}

	// presets are never deleted
	p, _ := n.Prepare(context.Background(), models.VoiceReference{})
	p.Close()
	if _, err := os.Stat(filepath.Join(dir, "Islam.wav")); err != nil {
		t.Errorf("preset sample removed by Close: %v", err)
	}
}

func TestDefaultVoiceOverride(t *testing.T) {
	n := NewNormalizer("", "Narrator.wav", "")
	p, err := n.Prepare(context.Background(), models.VoiceReference{})
	if err != nil {
		t.Fatal(err)
	}
	if p.Preset != "Narrator.wav" || p.Path != "" {
		t.Errorf("got (%q, %q)", p.Path, p.Preset)
	}
}

func TestPreparePresetStaysInVoiceDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "voices")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "secret.txt"), []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Islam.wav"), sampleWAV(), 0o644); err != nil {
		t.Fatal(err)
	}
	n := newTestNormalizer(t, dir, "")

	for _, name := range []string{"../secret.txt", "./../secret.txt", "sub/../../secret.txt", `..\secret.txt`, "..", "."} {
		t.Run(name, func(t *testing.T) {
			p, err := n.Prepare(context.Background(), models.PresetVoice(name))
			if err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			defer p.Close()
			if p.Path != "" {
				t.Errorf("Path = %q, want no sample file for %q", p.Path, name)
			}
		})
	}
}
