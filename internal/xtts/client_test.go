package xtts

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestSynthesize_PresetSpeaker asserts the multipart form carries text, language and speaker name.
func TestSynthesize_PresetSpeaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tts" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.FormValue("text"); got != "Once upon a time" {
			t.Errorf("text = %q", got)
		}
		if got := r.FormValue("language"); got != "fr" {
			t.Errorf("language = %q", got)
		}
		if got := r.FormValue("speaker"); got != "Islam.wav" {
			t.Errorf("speaker = %q", got)
		}
		if _, _, err := r.FormFile("speaker_wav"); err == nil {
			t.Error("unexpected speaker_wav file")
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFFdata"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	got, err := c.Synthesize(context.Background(), "Once upon a time", "fr", "", "Islam.wav")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(got) != "RIFFdata" {
		t.Errorf("body = %q", got)
	}
}

// TestSynthesize_UploadsSample asserts a speaker sample is sent as a file part.
func TestSynthesize_UploadsSample(t *testing.T) {
	sample := filepath.Join(t.TempDir(), "voice.wav")
	if err := os.WriteFile(sample, []byte("sample-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("speaker_wav")
		if err != nil {
			t.Fatalf("speaker_wav: %v", err)
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if string(data) != "sample-bytes" || hdr.Filename != "voice.wav" {
			t.Errorf("file = %q (%s)", data, hdr.Filename)
		}
		if r.FormValue("speaker") != "" {
			t.Error("speaker name sent alongside sample")
		}
		w.Write([]byte("RIFF"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.Synthesize(context.Background(), "Hi", "en", sample, "ignored"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
}

// TestSynthesize_Errors asserts upstream and transport failures surface as SynthesisError.
func TestSynthesize_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Synthesize(context.Background(), "Hi", "en", "", "")
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("err = %v, want SynthesisError", err)
	}
	if synthErr.StatusCode != http.StatusServiceUnavailable || !strings.Contains(synthErr.Message, "model not loaded") {
		t.Errorf("got %+v", synthErr)
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer empty.Close()
	if _, err := NewClient(empty.URL, time.Second).Synthesize(context.Background(), "Hi", "en", "", ""); !errors.As(err, &synthErr) {
		t.Errorf("empty body err = %v, want SynthesisError", err)
	}

	_, err = c.Synthesize(context.Background(), "Hi", "en", filepath.Join(t.TempDir(), "missing.wav"), "")
	if !errors.As(err, &synthErr) {
		t.Errorf("missing sample err = %v, want SynthesisError", err)
	}

	srv.Close()
	if _, err := c.Synthesize(context.Background(), "Hi", "en", "", ""); !errors.As(err, &synthErr) {
		t.Errorf("transport err = %v, want SynthesisError", err)
	}
}

func TestWaitForHealthy(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %s", r.URL.Path)
		}
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	c.healthInterval = time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.WaitForHealthy(ctx); err != nil {
		t.Fatalf("WaitForHealthy: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWaitForHealthyContextDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	c.healthInterval = time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.WaitForHealthy(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}
