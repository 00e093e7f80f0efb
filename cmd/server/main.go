package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iot-ahmad/smart-v1/internal/assistant"
	"github.com/iot-ahmad/smart-v1/internal/config"
	"github.com/iot-ahmad/smart-v1/internal/metrics"
	"github.com/iot-ahmad/smart-v1/internal/pipeline"
	"github.com/iot-ahmad/smart-v1/internal/server"
	"github.com/iot-ahmad/smart-v1/internal/session"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "voice-relay"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", serviceName, serviceVersion)
		return
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("bind_address", cfg.Server.BindAddress),
		slog.Int64("max_upload_bytes", cfg.Server.MaxUploadBytes),
		slog.String("assistant_base_url", cfg.Assistant.BaseURL),
		slog.String("transcription_model", cfg.Assistant.TranscriptionModel),
		slog.String("fast_model", cfg.Assistant.FastModel),
		slog.String("strong_model", cfg.Assistant.StrongModel),
		slog.String("tts_model", cfg.Assistant.TTSModel),
		slog.String("language", cfg.Assistant.Language),
		slog.Int("target_sample_rate", cfg.Audio.TargetSampleRate),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize the process-wide session
	state := session.NewState()

	// Construct the assistant client only when a credential is present. Without
	// one the service still serves status and retrieval endpoints; the upload
	// pipeline reports a configuration error instead.
	var assistantClient pipeline.Assistant
	if cfg.Assistant.HasCredential() {
		client, err := assistant.NewClient(assistant.Config{
			BaseURL:            cfg.Assistant.BaseURL,
			APIKey:             cfg.Assistant.APIKey,
			TranscriptionModel: cfg.Assistant.TranscriptionModel,
			TTSModel:           cfg.Assistant.TTSModel,
			TTSVoice:           cfg.Assistant.TTSVoice,
			TTSFormat:          cfg.Assistant.TTSFormat,
			Language:           cfg.Assistant.Language,
			SystemPrompt:       cfg.Assistant.SystemPrompt,
			MaxTokens:          cfg.Assistant.MaxTokens,
			Temperature:        cfg.Assistant.Temperature,
			RequestTimeout:     cfg.Assistant.GetRequestTimeout(),
			MaxRetries:         cfg.Assistant.MaxRetries,
		})
		if err != nil {
			logger.Error("Failed to create assistant client", slog.String("error", err.Error()))
			os.Exit(1)
		}
		assistantClient = client
		logger.Info("Assistant client initialized",
			slog.String("base_url", cfg.Assistant.BaseURL),
		)
	} else {
		logger.Warn("No GROQ_API_KEY or OPENAI_API_KEY set, upload pipeline disabled")
	}

	// Initialize pipeline runner
	catalog := assistant.Catalog{
		Fast:   cfg.Assistant.FastModel,
		Strong: cfg.Assistant.StrongModel,
	}
	runner := pipeline.NewRunner(assistantClient, state, catalog, logger, appMetrics)

	// Initialize and start HTTP server
	httpServer := server.NewHTTPServer(cfg, logger, state, runner, appMetrics, serviceName, serviceVersion)
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.Port)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Get final statistics
	info := state.Snapshot()
	logger.Info("Final session statistics",
		slog.Uint64("uploads_begun", info.UploadsBegun),
		slog.Uint64("uploads_committed", info.UploadsCommitted),
		slog.Uint64("uploads_failed", info.UploadsFailed),
		slog.Uint64("resets", info.Resets),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
