package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/snappy-loop/fairytales/internal/audio"
	"github.com/snappy-loop/fairytales/internal/config"
	"github.com/snappy-loop/fairytales/internal/kafka"
	"github.com/snappy-loop/fairytales/internal/models"
	"github.com/snappy-loop/fairytales/internal/theme"
)

func newResolver(assetDir, tablePath string) (*theme.Resolver, error) {
	table, err := theme.LoadTable(tablePath)
	if err != nil {
		return nil, err
	}
	return theme.NewResolver(assetDir, table), nil
}

func newMixCommand(cfg *config.Config) *cobra.Command {
	var (
		narrationPath string
		themeText     string
		outPath       string
		assetDir      string
		tablePath     string
		opts          = audio.MixOptions{MusicVolumeDB: cfg.MusicVolumeDB, FadeOut: cfg.FadeOut}
	)
	cmd := &cobra.Command{
		Use:   "mix",
		Short: "Mix a narration WAV with the background music for a theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.FadeOut < 0 {
				return fmt.Errorf("--fade-out must not be negative")
			}
			resolver, err := newResolver(assetDir, tablePath)
			if err != nil {
				return err
			}
			narration, err := os.ReadFile(narrationPath)
			if err != nil {
				return fmt.Errorf("read narration: %w", err)
			}
			background := resolver.Resolve(themeText)
			log.Info().
				Str("theme", themeText).
				Str("background", background).
				Float64("volume_db", opts.MusicVolumeDB).
				Dur("fade_out", opts.FadeOut).
				Msg("Mixing")

			mixed, err := audio.NewMixer(opts).Mix(narration, background)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, mixed, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&narrationPath, "narration", "", "narration WAV file")
	cmd.Flags().StringVar(&themeText, "theme", "", "story theme used to pick the music")
	cmd.Flags().StringVar(&outPath, "out", "narrated_fairy_tale.wav", "output WAV file")
	cmd.Flags().Float64Var(&opts.MusicVolumeDB, "volume-db", opts.MusicVolumeDB, "background gain in dB")
	cmd.Flags().DurationVar(&opts.FadeOut, "fade-out", opts.FadeOut, "background fade-out length")
	cmd.Flags().StringVar(&assetDir, "assets", cfg.AssetDir, "background music directory")
	cmd.Flags().StringVar(&tablePath, "themes", cfg.ThemeTablePath, "theme table YAML (default: built-in)")
	cmd.MarkFlagRequired("narration")
	return cmd
}

func newThemeCommand(cfg *config.Config) *cobra.Command {
	var (
		assetDir  string
		tablePath string
	)
	cmd := &cobra.Command{
		Use:   "theme <text>",
		Short: "Print the background music asset chosen for a theme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := newResolver(assetDir, tablePath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resolver.Resolve(args[0]))
			return nil
		},
	}
	cmd.Flags().StringVar(&assetDir, "assets", cfg.AssetDir, "background music directory")
	cmd.Flags().StringVar(&tablePath, "themes", cfg.ThemeTablePath, "theme table YAML (default: built-in)")
	return cmd
}

// eventLogger logs each tale event it receives.
type eventLogger struct{}

func (eventLogger) HandleTaleEvent(_ context.Context, ev *models.TaleEvent) error {
	entry := log.Info()
	if ev.Event == models.EventTaleFailed {
		entry = log.Warn().Str("error_code", ev.ErrorCode)
	}
	entry.
		Str("tale_id", ev.TaleID.String()).
		Str("event", ev.Event).
		Str("language", ev.Language).
		Str("theme", ev.Theme).
		Str("music", ev.MusicAsset).
		Str("title", ev.Title).
		Str("audio_url", ev.AudioURL).
		Time("occurred_at", ev.OccurredAt).
		Msg("Tale event")
	return nil
}

func newEventsCommand(cfg *config.Config) *cobra.Command {
	var (
		brokers []string
		topic   string
		groupID string
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow the tale event stream and log each finished tale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(brokers) == 0 {
				return fmt.Errorf("no Kafka brokers: set KAFKA_BROKERS or --brokers")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			consumer := kafka.NewConsumer(brokers, topic, groupID, eventLogger{})
			defer consumer.Close()
			if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&brokers, "brokers", cfg.KafkaBrokers, "Kafka brokers")
	cmd.Flags().StringVar(&topic, "topic", cfg.KafkaTopicEvents, "tale event topic")
	cmd.Flags().StringVar(&groupID, "group", "", "consumer group (empty reads from the start without committing)")
	return cmd
}
