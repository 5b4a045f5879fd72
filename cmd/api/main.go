package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/snappy-loop/fairytales/internal/audio"
	"github.com/snappy-loop/fairytales/internal/config"
	"github.com/snappy-loop/fairytales/internal/database"
	"github.com/snappy-loop/fairytales/internal/handlers"
	"github.com/snappy-loop/fairytales/internal/kafka"
	"github.com/snappy-loop/fairytales/internal/llm"
	"github.com/snappy-loop/fairytales/internal/services"
	"github.com/snappy-loop/fairytales/internal/storage"
	"github.com/snappy-loop/fairytales/internal/theme"
	"github.com/snappy-loop/fairytales/internal/voice"
	"github.com/snappy-loop/fairytales/internal/webhook"
	"github.com/snappy-loop/fairytales/internal/xtts"
	"github.com/snappy-loop/fairytales/migrations"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Starting Fairy Tale Narrator")

	ctx := context.Background()

	llmClient := llm.NewClient(llm.Options{
		Provider:     cfg.LLMProvider,
		GeminiAPIKey: cfg.GeminiAPIKey,
		APIEndpoint:  cfg.GeminiAPIEndpoint,
		ModelStory:   cfg.GeminiModelStory,
		ModelTitle:   cfg.GeminiModelTitle,
		ModelTTS:     cfg.GeminiModelTTS,
		TTSVoice:     cfg.GeminiTTSVoice,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		OpenAIModel:  cfg.OpenAIModel,
	})
	defer llmClient.Close()

	var narrator services.Narrator
	switch cfg.TTSEngine {
	case "gemini":
		narrator = llmClient
	default:
		xttsClient := xtts.NewClient(cfg.XTTSURL, cfg.XTTSTimeout)
		healthCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := xttsClient.WaitForHealthy(healthCtx); err != nil {
			log.Warn().Err(err).Str("url", cfg.XTTSURL).Msg("XTTS server not ready, narration will fail until it is")
		}
		cancel()
		narrator = xttsClient
	}
	log.Info().Str("engine", cfg.TTSEngine).Msg("Speech synthesis configured")

	var table *theme.Table
	if cfg.ThemeTablePath != "" {
		table, err = theme.LoadTable(cfg.ThemeTablePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.ThemeTablePath).Msg("Failed to load theme table")
		}
	}
	themes := theme.NewResolver(cfg.AssetDir, table)

	mixOpts := audio.DefaultMixOptions()
	mixOpts.MusicVolumeDB = cfg.MusicVolumeDB
	mixOpts.FadeOut = cfg.FadeOut

	deps := services.TaleDeps{
		Stories:  llmClient,
		Titles:   llmClient,
		Themes:   themes,
		Voices:   voice.NewNormalizer(cfg.VoiceDir, cfg.DefaultVoice, cfg.FFmpegPath),
		Narrator: narrator,
		Mixer:    audio.NewMixer(mixOpts),
	}

	// Optional tale history
	var db *database.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		if err := migrations.Run(ctx, db.DB); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		deps.Repo = database.NewTaleRepository(db)
	}

	// Optional audio archive
	if cfg.StorageEnabled() {
		storageClient, err := storage.NewClient(ctx, storage.Options{
			Endpoint:  cfg.S3Endpoint,
			UseSSL:    cfg.S3UseSSL,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize storage client")
		}
		if err := storageClient.EnsureBucket(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to ensure S3 bucket")
		}
		deps.Archive = storageClient
	}

	// Optional tale events
	var publishers []services.EventPublisher
	if cfg.EventsEnabled() {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicEvents)
		defer producer.Close()
		publishers = append(publishers, producer)
	}
	if cfg.WebhookEnabled() {
		notifier := webhook.NewNotifier(webhook.Options{
			URL:            cfg.WebhookURL,
			Secret:         cfg.WebhookSecret,
			MaxRetries:     cfg.WebhookMaxRetries,
			RetryBaseDelay: cfg.WebhookRetryBaseDelay,
			RetryMaxDelay:  cfg.WebhookRetryMaxDelay,
		})
		notifier.Start(ctx)
		defer notifier.Stop()
		publishers = append(publishers, notifier)
	}
	deps.Publisher = services.Publishers(publishers...)

	taleService := services.NewTaleService(deps, cfg.AudioURLExpiry)

	var health handlers.HealthChecker
	if db != nil {
		health = db
	}
	h := handlers.NewHandler(taleService, themes, health, cfg.MaxVoiceUploadBytes)

	r := mux.NewRouter()
	r.HandleFunc("/", h.Index).Methods("GET")
	r.HandleFunc("/tales", h.CreateTaleForm).Methods("POST")
	r.HandleFunc("/feedback", h.Feedback).Methods("POST")
	r.HandleFunc("/healthz", h.Health).Methods("GET")

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/tales", h.CreateTale).Methods("POST")
	api.HandleFunc("/tales/ws", h.TalesWS).Methods("GET")
	api.HandleFunc("/tales/{id}", h.GetTale).Methods("GET")
	api.HandleFunc("/tales/{id}/audio", h.GetTaleAudio).Methods("GET")

	// Generation runs inside the request, so writes need room for the LLM and TTS calls.
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.XTTSTimeout + 5*time.Minute,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server exited")
}
