package llm

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	unifiedgenai "google.golang.org/genai"
)

// prebuiltVoices are the Gemini TTS voice names a preset may select directly.
var prebuiltVoices = map[string]bool{
	"Zephyr": true, "Puck": true, "Charon": true, "Kore": true, "Fenrir": true,
	"Leda": true, "Orus": true, "Aoede": true, "Callirrhoe": true, "Autonoe": true,
	"Enceladus": true, "Iapetus": true, "Umbriel": true, "Algieba": true,
	"Despina": true, "Erinome": true, "Algenib": true, "Rasalgethi": true,
	"Laomedeia": true, "Achernar": true, "Alnilam": true, "Schedar": true,
	"Gacrux": true, "Pulcherrima": true, "Achird": true, "Zubenelgenubi": true,
	"Vindemiatrix": true, "Sadachbia": true, "Sadaltager": true, "Sulafat": true,
}

var audioLBits = regexp.MustCompile(`audio/L(\d+)`)

// voiceFor picks the prebuilt voice for a preset, falling back to the default.
func (c *Client) voiceFor(speakerWAVPath, preset string) string {
	if prebuiltVoices[preset] {
		return preset
	}
	if speakerWAVPath != "" && preset == "" {
		log.Warn().Str("voice", c.ttsVoice).Msg("Gemini TTS cannot clone an uploaded voice, using default voice")
	}
	return c.ttsVoice
}

// Synthesize narrates text with Gemini TTS and returns WAV bytes. Gemini picks
// the language from the text; languageCode is only logged.
func (c *Client) Synthesize(ctx context.Context, text, languageCode, speakerWAVPath, preset string) ([]byte, error) {
	if c.unifiedClient == nil {
		return nil, errors.New("gemini TTS is not configured")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("nothing to narrate")
	}
	voice := c.voiceFor(speakerWAVPath, preset)

	contents := []*unifiedgenai.Content{
		{
			Role: "user",
			Parts: []*unifiedgenai.Part{
				unifiedgenai.NewPartFromText("[tone: warm, unhurried bedtime storyteller] " + text),
			},
		},
	}

	temp := float32(1.0)
	config := &unifiedgenai.GenerateContentConfig{
		Temperature:        &temp,
		ResponseModalities: []string{"audio"},
		SpeechConfig: &unifiedgenai.SpeechConfig{
			VoiceConfig: &unifiedgenai.VoiceConfig{
				PrebuiltVoiceConfig: &unifiedgenai.PrebuiltVoiceConfig{
					VoiceName: voice,
				},
			},
		},
	}

	log.Debug().
		Str("model", c.modelTTS).
		Str("voice", voice).
		Str("language", languageCode).
		Msg("Calling unified genai TTS GenerateContentStream")

	// Collect audio data from streaming response
	var audioBuffer bytes.Buffer
	var lastMimeType string

	for resp, err := range c.unifiedClient.Models.GenerateContentStream(ctx, c.modelTTS, contents, config) {
		if err != nil {
			return nil, fmt.Errorf("TTS stream error: %w", err)
		}
		if len(resp.Candidates) == 0 {
			continue
		}
		cand := resp.Candidates[0]
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				audioBuffer.Write(part.InlineData.Data)
				if part.InlineData.MIMEType != "" {
					lastMimeType = part.InlineData.MIMEType
				}
			}
		}
	}

	if audioBuffer.Len() == 0 {
		return nil, errors.New("TTS returned no audio data")
	}

	audioBytes := audioBuffer.Bytes()
	if strings.HasPrefix(lastMimeType, "audio/L") {
		log.Debug().Str("mime_type", lastMimeType).Msg("Converting raw PCM to WAV")
		audioBytes = convertToWAV(audioBytes, lastMimeType)
	}

	log.Info().
		Str("caller", "Synthesize").
		Int("audio_size_bytes", len(audioBytes)).
		Str("voice", voice).
		Str("mime_type", lastMimeType).
		Msg("TTS audio generated")
	return audioBytes, nil
}

// convertToWAV wraps raw little-endian mono PCM in a WAV container.
func convertToWAV(audioData []byte, mimeType string) []byte {
	params := parseAudioMimeType(mimeType)
	bitsPerSample := params.bitsPerSample
	sampleRate := params.rate
	numChannels := 1
	dataSize := len(audioData)
	bytesPerSample := bitsPerSample / 8
	blockAlign := numChannels * bytesPerSample
	byteRate := sampleRate * blockAlign
	chunkSize := 36 + dataSize

	header := new(bytes.Buffer)
	binary.Write(header, binary.LittleEndian, []byte("RIFF"))
	binary.Write(header, binary.LittleEndian, uint32(chunkSize))
	binary.Write(header, binary.LittleEndian, []byte("WAVE"))
	binary.Write(header, binary.LittleEndian, []byte("fmt "))
	binary.Write(header, binary.LittleEndian, uint32(16))
	binary.Write(header, binary.LittleEndian, uint16(1))
	binary.Write(header, binary.LittleEndian, uint16(numChannels))
	binary.Write(header, binary.LittleEndian, uint32(sampleRate))
	binary.Write(header, binary.LittleEndian, uint32(byteRate))
	binary.Write(header, binary.LittleEndian, uint16(blockAlign))
	binary.Write(header, binary.LittleEndian, uint16(bitsPerSample))
	binary.Write(header, binary.LittleEndian, []byte("data"))
	binary.Write(header, binary.LittleEndian, uint32(dataSize))

	return append(header.Bytes(), audioData...)
}

type audioParams struct {
	bitsPerSample int
	rate          int
}

// parseAudioMimeType parses bits per sample and rate from e.g. "audio/L16;codec=pcm;rate=24000".
func parseAudioMimeType(mimeType string) audioParams {
	params := audioParams{bitsPerSample: 16, rate: 24000}

	for _, part := range strings.Split(mimeType, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(strings.ToLower(part), "rate=") {
			if rate, err := strconv.Atoi(strings.SplitN(part, "=", 2)[1]); err == nil {
				params.rate = rate
			}
		} else if m := audioLBits.FindStringSubmatch(part); len(m) > 1 {
			if bits, err := strconv.Atoi(m[1]); err == nil {
				params.bitsPerSample = bits
			}
		}
	}
	return params
}
