package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	// Server
	HTTPAddr string
	LogLevel string
	Timezone string

	// Story generation
	LLMProvider string // googleai or openai

	// Gemini API
	GeminiAPIKey      string
	GeminiAPIEndpoint string // if set, overrides default Gemini API base URL
	GeminiModelStory  string
	GeminiModelTitle  string
	GeminiModelTTS    string // TTS model, e.g. gemini-2.5-pro-preview-tts
	GeminiTTSVoice    string // prebuilt voice used when a preset has no mapping, e.g. Zephyr

	// OpenAI (LLM_PROVIDER=openai)
	OpenAIAPIKey string
	OpenAIModel  string

	// Speech synthesis
	TTSEngine   string // xtts or gemini
	XTTSURL     string
	XTTSTimeout time.Duration

	// Assets
	AssetDir       string
	ThemeTablePath string // empty uses the built-in table
	VoiceDir       string
	DefaultVoice   string
	FFmpegPath     string // empty disables the transcoding fallback

	// Mixing
	MusicVolumeDB float64
	FadeOut       time.Duration

	// Upload
	MaxVoiceUploadBytes int64

	// Database (optional)
	DatabaseURL string

	// Kafka (optional)
	KafkaBrokers     []string
	KafkaTopicEvents string

	// Webhook (optional)
	WebhookURL            string
	WebhookSecret         string
	WebhookMaxRetries     int
	WebhookRetryBaseDelay time.Duration
	WebhookRetryMaxDelay  time.Duration

	// S3/Storage (optional)
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UseSSL       bool
	S3PublicURL    string
	AudioURLExpiry time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("TZ", "UTC"),

		LLMProvider: strings.ToLower(getEnv("LLM_PROVIDER", "googleai")),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiAPIEndpoint: getEnv("GEMINI_API_ENDPOINT", ""),
		GeminiModelStory:  getEnv("GEMINI_MODEL_STORY", "gemini-2.5-flash"),
		GeminiModelTitle:  getEnv("GEMINI_MODEL_TITLE", "gemini-2.5-flash-lite"),
		GeminiModelTTS:    getEnv("GEMINI_MODEL_TTS", "gemini-2.5-pro-preview-tts"),
		GeminiTTSVoice:    getEnv("GEMINI_TTS_VOICE", "Zephyr"),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),

		TTSEngine:   strings.ToLower(getEnv("TTS_ENGINE", "xtts")),
		XTTSURL:     getEnv("XTTS_URL", "http://localhost:8020"),
		XTTSTimeout: getEnvDuration("XTTS_TIMEOUT", 5*time.Minute),

		AssetDir:       getEnv("ASSET_DIR", "assets/music"),
		ThemeTablePath: getEnv("THEME_TABLE_PATH", ""),
		VoiceDir:       getEnv("VOICE_DIR", "assets/voices"),
		DefaultVoice:   getEnv("DEFAULT_VOICE", "Islam.wav"),
		FFmpegPath:     getEnv("FFMPEG_PATH", ""),

		MusicVolumeDB: getEnvFloat("MUSIC_VOLUME_DB", -15),
		FadeOut:       clampMinDuration(getEnvDuration("FADE_OUT", 3*time.Second), 0),

		MaxVoiceUploadBytes: getEnvInt64("MAX_VOICE_UPLOAD_BYTES", 10*1024*1024), // 10MB

		DatabaseURL: getEnv("DATABASE_URL", ""),

		KafkaBrokers:     getEnvList("KAFKA_BROKERS"),
		KafkaTopicEvents: getEnv("KAFKA_TOPIC_EVENTS", "fairytales.events.v1"),

		WebhookURL:            getEnv("WEBHOOK_URL", ""),
		WebhookSecret:         getEnv("WEBHOOK_SECRET", ""),
		WebhookMaxRetries:     getEnvInt("WEBHOOK_MAX_RETRIES", 5),
		WebhookRetryBaseDelay: clampMinDuration(getEnvDuration("WEBHOOK_RETRY_BASE_DELAY", 2*time.Second), 100*time.Millisecond),
		WebhookRetryMaxDelay:  getEnvDuration("WEBHOOK_RETRY_MAX_DELAY", time.Minute),

		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3Bucket:       getEnv("S3_BUCKET", "fairytales"),
		S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("S3_SECRET_KEY", ""),
		S3UseSSL:       getEnvBool("S3_USE_SSL", false),
		S3PublicURL:    getEnv("S3_PUBLIC_URL", ""),
		AudioURLExpiry: getEnvDuration("AUDIO_URL_EXPIRY", time.Hour),
	}
}

// StorageEnabled reports whether an S3 endpoint is configured.
func (c *Config) StorageEnabled() bool {
	return c.S3Endpoint != ""
}

// WebhookEnabled reports whether tale events are posted to a webhook.
func (c *Config) WebhookEnabled() bool {
	return c.WebhookURL != ""
}

// EventsEnabled reports whether Kafka brokers are configured.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// clampMinDuration returns v if v >= min, otherwise min.
func clampMinDuration(v, min time.Duration) time.Duration {
	if v < min {
		return min
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
