package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dorhakim100/camjam/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "camjam",
	Short: "Headless participant of a CamJam mesh video room",
	Long: `camjam joins a CamJam room as a regular participant: it negotiates one WebRTC
link per remote peer, sends a looping video and audio file as its camera and
microphone, and exposes a small HTTP control API for status, reconnects and
media toggles.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func main() {
	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default config/config.$CONFIG_ENV.yaml)")
	rootCmd.AddCommand(joinCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("camjam failed")
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
