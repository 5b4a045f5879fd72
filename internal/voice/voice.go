package voice

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/snappy-loop/fairytales/internal/audio"
	"github.com/snappy-loop/fairytales/internal/models"
)

// ReferenceError reports an uploaded voice sample that could not be turned
// into a PCM WAV file.
type ReferenceError struct {
	Err error
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("invalid voice reference: %v", e.Err)
}

func (e *ReferenceError) Unwrap() error { return e.Err }

// Prepared is a voice reference ready for a synthesis engine. Path is a PCM
// WAV sample on disk, or empty when only a named preset is available.
type Prepared struct {
	Path   string
	Preset string

	temp bool
}

// Close removes the temporary sample, if one was created. Safe to call more than once.
func (p *Prepared) Close() {
	if p == nil || !p.temp || p.Path == "" {
		return
	}
	if err := os.Remove(p.Path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", p.Path).Msg("Failed to remove voice sample")
	}
	p.temp = false
}

// Normalizer turns VoiceReferences into files synthesis engines accept.
type Normalizer struct {
	voiceDir     string
	defaultVoice string
	ffmpegPath   string
	tempDir      string
}

// NewNormalizer creates a normalizer. ffmpegPath may be empty to disable the
// transcoding fallback for uploads that are not plain WAV.
func NewNormalizer(voiceDir, defaultVoice, ffmpegPath string) *Normalizer {
	if defaultVoice == "" {
		defaultVoice = models.DefaultVoicePreset
	}
	return &Normalizer{
		voiceDir:     voiceDir,
		defaultVoice: defaultVoice,
		ffmpegPath:   ffmpegPath,
	}
}

// Prepare resolves ref. The caller must Close the result.
func (n *Normalizer) Prepare(ctx context.Context, ref models.VoiceReference) (*Prepared, error) {
	if ref.IsUploaded() {
		return n.prepareUpload(ctx, ref.Uploaded())
	}
	return n.preparePreset(ref.Preset()), nil
}

func (n *Normalizer) preparePreset(name string) *Prepared {
	if name == models.DefaultVoicePreset {
		name = n.defaultVoice
	}
	if n.voiceDir != "" && isPlainName(name) {
		path := filepath.Join(n.voiceDir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return &Prepared{Path: path, Preset: name}
		}
	}
	log.Debug().Str("preset", name).Msg("No sample file for preset, using named speaker")
	return &Prepared{Preset: name}
}

// isPlainName reports whether name is a bare file name that stays inside the
// voice directory when joined to it.
func isPlainName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return name == filepath.Base(name) && !strings.ContainsAny(name, `/\`)
}

func (n *Normalizer) prepareUpload(ctx context.Context, data []byte) (*Prepared, error) {
	out, err := os.CreateTemp(n.tempDir, "voice-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create voice sample: %w", err)
	}
	path := out.Name()
	out.Close()
	prepared := &Prepared{Path: path, temp: true}

	buf, decodeErr := audio.Decode(data, "voice upload")
	if decodeErr == nil {
		if err := audio.WriteFile(path, buf); err != nil {
			prepared.Close()
			return nil, fmt.Errorf("write voice sample: %w", err)
		}
		log.Debug().Str("format", buf.String()).Msg("Voice upload normalized")
		return prepared, nil
	}

	if n.ffmpegPath == "" {
		prepared.Close()
		return nil, &ReferenceError{Err: decodeErr}
	}
	log.Debug().Err(decodeErr).Msg("Voice upload is not plain PCM WAV, transcoding with ffmpeg")
	if err := n.transcode(ctx, data, path); err != nil {
		prepared.Close()
		return nil, &ReferenceError{Err: err}
	}
	return prepared, nil
}

// transcode converts arbitrary audio to 16-bit mono PCM WAV at dst.
func (n *Normalizer) transcode(ctx context.Context, data []byte, dst string) error {
	in, err := os.CreateTemp(n.tempDir, "voice-src-*")
	if err != nil {
		return fmt.Errorf("create ffmpeg input: %w", err)
	}
	defer os.Remove(in.Name())
	if _, err := in.Write(data); err != nil {
		in.Close()
		return fmt.Errorf("write ffmpeg input: %w", err)
	}
	in.Close()

	cmd := exec.CommandContext(ctx, n.ffmpegPath,
		"-y",
		"-i", in.Name(),
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", "22050",
		"-loglevel", "error",
		dst,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg transcode: %w: %s", err, out)
	}
	return nil
}
