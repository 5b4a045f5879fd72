package xtts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// maxErrorBody caps how much of an error response is kept in SynthesisError.
const maxErrorBody = 512

// SynthesisError reports a failed call to the XTTS server.
type SynthesisError struct {
	StatusCode int // 0 for transport failures
	Message    string
	Err        error
}

func (e *SynthesisError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("xtts: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("xtts: %s: %v", e.Message, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Client talks to a Coqui XTTS-v2 HTTP server.
type Client struct {
	baseURL string
	http    *http.Client

	healthInterval time.Duration
}

// NewClient creates an XTTS client. timeout bounds a whole synthesis request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:        baseURL,
		http:           &http.Client{Timeout: timeout},
		healthInterval: 5 * time.Second,
	}
}

// Synthesize narrates text in the given language. speakerWAVPath, when set, is
// uploaded as the voice to clone; otherwise preset names a server-side speaker.
func (c *Client) Synthesize(ctx context.Context, text, languageCode, speakerWAVPath, preset string) ([]byte, error) {
	form, contentType, err := ttsRequestForm(text, languageCode, speakerWAVPath, preset)
	if err != nil {
		return nil, &SynthesisError{Message: "build request", Err: err}
	}

	endpoint, err := url.JoinPath(c.baseURL, "tts")
	if err != nil {
		return nil, &SynthesisError{Message: "build url", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, form)
	if err != nil {
		return nil, &SynthesisError{Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "audio/wav")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &SynthesisError{Message: "send request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &SynthesisError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(body))}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SynthesisError{Message: "read response", Err: err}
	}
	if len(data) == 0 {
		return nil, &SynthesisError{Message: "empty response", Err: io.ErrUnexpectedEOF}
	}
	log.Info().
		Str("language", languageCode).
		Int("text_len", len(text)).
		Int("bytes", len(data)).
		Dur("took", time.Since(start)).
		Msg("XTTS narration received")
	return data, nil
}

// -F text=... -F language=... -F speaker_wav=@sample.wav | -F speaker=name
func ttsRequestForm(text, languageCode, speakerWAVPath, preset string) (*bytes.Buffer, string, error) {
	form := new(bytes.Buffer)
	writer := multipart.NewWriter(form)

	if err := writer.WriteField("text", text); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("language", languageCode); err != nil {
		return nil, "", err
	}

	if speakerWAVPath != "" {
		fw, err := writer.CreateFormFile("speaker_wav", filepath.Base(speakerWAVPath))
		if err != nil {
			return nil, "", err
		}
		fd, err := os.Open(speakerWAVPath)
		if err != nil {
			return nil, "", err
		}
		defer fd.Close()
		if _, err := io.Copy(fw, fd); err != nil {
			return nil, "", err
		}
	} else if preset != "" {
		if err := writer.WriteField("speaker", preset); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return form, writer.FormDataContentType(), nil
}

// Healthy reports whether GET /health answers 200.
func (c *Client) Healthy(ctx context.Context) bool {
	endpoint, err := url.JoinPath(c.baseURL, "health")
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// WaitForHealthy blocks until the server answers health checks or ctx ends.
func (c *Client) WaitForHealthy(ctx context.Context) error {
	log.Info().Str("url", c.baseURL).Msg("Waiting for XTTS server")
	for {
		if c.Healthy(ctx) {
			log.Info().Msg("XTTS server is healthy")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.healthInterval):
		}
		log.Debug().Dur("retry_in", c.healthInterval).Msg("XTTS not ready")
	}
}
