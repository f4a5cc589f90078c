package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dashvoice/dashvoice/internal/api"
	"github.com/dashvoice/dashvoice/internal/config"
	"github.com/dashvoice/dashvoice/internal/logging"
	"github.com/dashvoice/dashvoice/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Use stderr before logger is initialized
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("starting dashvoice", "version", "0.1.0")

	if cfg.DashScope.APIKey == "" {
		logger.Error("DASHSCOPE_API_KEY is not set")
		os.Exit(1)
	}

	if cfg.AuthDisabled() {
		logger.Warn("HTTP bearer authentication is disabled (BEARER_TOKEN is empty)")
	}

	logger.Info("configuration loaded",
		"log_level", cfg.Logging.Level,
		"log_format", cfg.Logging.Format,
		"http_port", cfg.Server.Port,
		"dashscope_url", cfg.DashScope.URL,
		"default_voice", cfg.DashScope.DefaultVoice,
		"synthesis_timeout", cfg.DashScope.SynthesisTimeout(),
		"enable_save", cfg.Storage.EnableSave,
		"storage_type", cfg.Storage.Type,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	var store storage.Store
	if cfg.Storage.EnableSave {
		store, err = storage.New(cfg.Storage, logger)
		if err != nil {
			logger.Error("failed to initialize storage", "error", err)
			os.Exit(1)
		}
		logger.Info("storage ready", "type", cfg.Storage.Type)
	}

	server := api.New(cfg, logger, store)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
}
