package main

import (
	"log/slog"
	"os"
	"time"

	// Ensure API keys from .env are loaded
	_ "github.com/joho/godotenv/autoload"

	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "prism",
	Short: "Normalized chat access to multiple LLM providers",
	Long: `prism talks to OpenAI, Anthropic, Gemini, Ollama and Hugging Face
backends through one canonical interface, normalizes their streaming wire
formats, and can run deterministic tools before a model call.`,
	PersistentPreRun: func(*cobra.Command, []string) {
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
		log := zerolog.New(output).With().Timestamp().Logger()
		slog.SetDefault(slog.New(
			zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}),
		))
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
