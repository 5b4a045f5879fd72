package handlers

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/snappy-loop/fairytales/internal/models"
)

var (
	errInvalidVoice  = errors.New("voice sample must be a WAV file")
	errVoiceTooLarge = errors.New("voice sample is too large")
)

// isWAV checks the RIFF/WAVE container magic.
func isWAV(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}

// checkVoice validates an uploaded sample and wraps it as a reference.
func (h *Handler) checkVoice(data []byte) (models.VoiceReference, error) {
	if int64(len(data)) > h.maxUploadBytes {
		return models.VoiceReference{}, fmt.Errorf("%w (limit %d bytes)", errVoiceTooLarge, h.maxUploadBytes)
	}
	if !isWAV(data) {
		return models.VoiceReference{}, errInvalidVoice
	}
	return models.UploadedVoice(data), nil
}

// formVoice reads the optional "voice" file field of a parsed multipart form.
// Without a file the "voice_preset" field (or the default preset) is used.
func (h *Handler) formVoice(r *http.Request) (models.VoiceReference, error) {
	file, header, err := r.FormFile("voice")
	if errors.Is(err, http.ErrMissingFile) {
		return models.PresetVoice(r.FormValue("voice_preset")), nil
	}
	if err != nil {
		return models.VoiceReference{}, fmt.Errorf("%w: %v", errInvalidVoice, err)
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		return models.VoiceReference{}, fmt.Errorf("%w (limit %d bytes)", errVoiceTooLarge, h.maxUploadBytes)
	}
	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return models.VoiceReference{}, fmt.Errorf("read voice sample: %w", err)
	}
	if len(data) == 0 {
		return models.PresetVoice(r.FormValue("voice_preset")), nil
	}
	return h.checkVoice(data)
}

// encodedVoice decodes a base64 sample from a JSON or WebSocket request.
func (h *Handler) encodedVoice(b64, preset string) (models.VoiceReference, error) {
	if b64 == "" {
		return models.PresetVoice(preset), nil
	}
	if int64(base64.StdEncoding.DecodedLen(len(b64))) > h.maxUploadBytes+2 {
		return models.VoiceReference{}, fmt.Errorf("%w (limit %d bytes)", errVoiceTooLarge, h.maxUploadBytes)
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return models.VoiceReference{}, fmt.Errorf("%w: invalid base64", errInvalidVoice)
	}
	return h.checkVoice(data)
}
