package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"LLM_PROVIDER", "TTS_ENGINE", "MUSIC_VOLUME_DB", "FADE_OUT", "KAFKA_BROKERS", "S3_ENDPOINT", "MAX_VOICE_UPLOAD_BYTES"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.LLMProvider != "googleai" {
		t.Errorf("LLMProvider = %q", cfg.LLMProvider)
	}
	if cfg.TTSEngine != "xtts" {
		t.Errorf("TTSEngine = %q", cfg.TTSEngine)
	}
	if cfg.MusicVolumeDB != -15 {
		t.Errorf("MusicVolumeDB = %v, want -15", cfg.MusicVolumeDB)
	}
	if cfg.FadeOut != 3*time.Second {
		t.Errorf("FadeOut = %v, want 3s", cfg.FadeOut)
	}
	if cfg.MaxVoiceUploadBytes != 10*1024*1024 {
		t.Errorf("MaxVoiceUploadBytes = %d", cfg.MaxVoiceUploadBytes)
	}
	if cfg.EventsEnabled() || cfg.StorageEnabled() {
		t.Error("optional integrations should be disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("TTS_ENGINE", "Gemini")
	t.Setenv("MUSIC_VOLUME_DB", "-9.5")
	t.Setenv("FADE_OUT", "1500ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("S3_ENDPOINT", "http://minio:9000")
	t.Setenv("XTTS_TIMEOUT", "not-a-duration")

	cfg := Load()
	if cfg.LLMProvider != "openai" || cfg.TTSEngine != "gemini" {
		t.Errorf("provider/engine = %q/%q", cfg.LLMProvider, cfg.TTSEngine)
	}
	if cfg.MusicVolumeDB != -9.5 {
		t.Errorf("MusicVolumeDB = %v", cfg.MusicVolumeDB)
	}
	if cfg.FadeOut != 1500*time.Millisecond {
		t.Errorf("FadeOut = %v", cfg.FadeOut)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if !cfg.StorageEnabled() || !cfg.EventsEnabled() {
		t.Error("expected storage and events enabled")
	}
	if cfg.XTTSTimeout != 5*time.Minute {
		t.Errorf("invalid duration should fall back to default, got %v", cfg.XTTSTimeout)
	}
}

func TestNegativeFadeOutClamped(t *testing.T) {
	t.Setenv("FADE_OUT", "-2s")
	if got := Load().FadeOut; got != 0 {
		t.Errorf("FadeOut = %v, want 0", got)
	}
}

func TestWebhookConfig(t *testing.T) {
	t.Setenv("WEBHOOK_URL", "")
	if Load().WebhookEnabled() {
		t.Error("webhook should be disabled without a URL")
	}

	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/tales")
	t.Setenv("WEBHOOK_MAX_RETRIES", "3")
	t.Setenv("WEBHOOK_RETRY_BASE_DELAY", "1ms")
	cfg := Load()
	if !cfg.WebhookEnabled() || cfg.WebhookMaxRetries != 3 {
		t.Errorf("webhook = %v/%d", cfg.WebhookEnabled(), cfg.WebhookMaxRetries)
	}
	if cfg.WebhookRetryBaseDelay != 100*time.Millisecond {
		t.Errorf("WebhookRetryBaseDelay = %v, want clamped to 100ms", cfg.WebhookRetryBaseDelay)
	}
}
