// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/sozercan/instrument-lens/internal/analyzer"
	"github.com/sozercan/instrument-lens/internal/config"
	"github.com/sozercan/instrument-lens/internal/llm"
	"github.com/sozercan/instrument-lens/internal/server"
)

func main() {
	configFile := pflag.String("config", "", "path to a YAML config file")
	envFile := pflag.String("env-file", ".env", "path to a dotenv file loaded before the environment is read")
	pflag.Parse()

	config.LoadEnvFile(*envFile)

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	slog.SetDefault(cfg.Log.Logger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llmProvider, err := llm.NewProvider(ctx, &cfg.LLM)
	switch {
	case errors.Is(err, llm.ErrMissingCredential):
		slog.Warn("no model API credential configured, /analyze will fail until one is set",
			"provider", cfg.LLM.Provider)
	case err != nil:
		log.Fatalf("failed to create LLM provider: %v", err)
	}

	srv := server.New(*cfg, analyzer.New(llmProvider, cfg.Analyzer))
	slog.Info("starting server", "host", cfg.Server.Host, "port", cfg.Server.Port)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
