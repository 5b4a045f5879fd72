package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/snappy-loop/fairytales/internal/config"
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

	if err := newRootCommand(cfg).Execute(); err != nil {
		log.Error().Err(err).Msg("taletool failed")
		os.Exit(1)
	}
}

func newRootCommand(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "taletool",
		Short:         "Offline tools for the fairy tale narrator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMixCommand(cfg),
		newThemeCommand(cfg),
		newEventsCommand(cfg),
	)
	return root
}
