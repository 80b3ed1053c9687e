// Command ragcored assembles the core (storage, caches, provider client,
// ingestion pipeline, flow engine) into a ragservice.Service and keeps it
// resident. The HTTP/SSE transport that would drive it is an external
// collaborator per spec.md and is not part of this binary; this entry
// point exists so the wiring can be exercised headless and so a future
// transport can import ragservice directly instead of duplicating this
// assembly.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zoeflow/ragcore/internal/config"
	"github.com/zoeflow/ragcore/internal/ragservice"
)

func main() {
	dataDir := flag.String("data-dir", ".", "root directory under which content/ is laid out")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load(*dataDir)
	if cfg.OpenRouterAPIKey == "" {
		slog.Warn("OPENROUTER_API_KEY is not set; provider calls will fail")
	}

	svc, err := ragservice.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to construct service", "error", err)
		os.Exit(1)
	}
	_ = svc

	slog.Info("ragcored ready", "dataDir", cfg.RootDir, "vectorBackend", cfg.VectorBackend)

	<-ctx.Done()
	slog.Info("shutting down")
}
