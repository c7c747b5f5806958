package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayumi-support/kiroku-engine/internal/api"
	"github.com/ayumi-support/kiroku-engine/internal/config"
	"github.com/ayumi-support/kiroku-engine/internal/dbfill"
	"github.com/ayumi-support/kiroku-engine/internal/extract"
	"github.com/ayumi-support/kiroku-engine/internal/hotfolder"
	"github.com/ayumi-support/kiroku-engine/internal/limiter"
	"github.com/ayumi-support/kiroku-engine/internal/media"
	"github.com/ayumi-support/kiroku-engine/internal/pdfrender"
	"github.com/ayumi-support/kiroku-engine/internal/retry"
	"github.com/ayumi-support/kiroku-engine/internal/storage"
	"github.com/ayumi-support/kiroku-engine/internal/transcribe"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file")
	flag.StringVar(&overrides.HTTPAddr, "addr", "", "http listen address")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (trace..error)")
	flag.StringVar(&overrides.UploadDir, "upload-dir", "", "upload directory")
	flag.StringVar(&overrides.HotFolder, "hot-folder", "", "hot folder to watch for audio")
	flag.Parse()

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("kiroku-engine starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, dir := range []string{cfg.UploadDir, cfg.TempDir, cfg.GeneratedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("failed to create working directory")
		}
	}

	// Transcription pipeline
	prober := media.NewProber(cfg.Audio.FFprobePath)
	cutter := media.NewCutter(cfg.Audio.FFmpegPath, cfg.TempDir)
	pre := media.NewPreprocessor(cfg.Audio.FFmpegPath, cfg.Audio.FFprobePath, cfg.TempDir)
	whisper := transcribe.NewWhisperClient(cfg.Whisper.URL, cfg.Whisper.APIKey, cfg.Whisper.Model,
		cfg.Whisper.Language, retry.Config{MaxAttempts: cfg.Whisper.MaxAttempts, Timeout: cfg.Whisper.Timeout}, log)
	orchestrator := transcribe.NewOrchestrator(prober, cutter, pre, whisper,
		cfg.Audio.SegmentWindow.Seconds(), cfg.Audio.MaxDuration.Seconds(), log)

	// Extraction and record auto-fill
	extractAPIKey := cfg.Extract.APIKey
	if extractAPIKey == "" {
		extractAPIKey = cfg.Whisper.APIKey
	}
	extractor := extract.New(extractAPIKey, cfg.Extract.BaseURL, cfg.Extract.Model,
		retry.Config{MaxAttempts: cfg.Extract.MaxAttempts, Timeout: cfg.Extract.Timeout}, log)
	filler := dbfill.New(extractor, log)

	// Document rendering
	renderer := pdfrender.New(cfg.PDF.RendererURL, cfg.GeneratedDir, cfg.PDF.Timeout, log)

	// Archive storage
	archive, err := storage.New(cfg.S3, cfg.UploadDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init archive storage")
	}

	// Workload slots
	audioSlots := limiter.NewSlots(cfg.Audio.Concurrency)
	extractSlots := limiter.NewSlots(cfg.Extract.Concurrency)
	pdfSlots := limiter.NewSlots(cfg.PDF.Concurrency)
	rateLimiter := limiter.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)

	// Retention pruner
	pruner := storage.NewRetentionPruner(
		[]string{cfg.UploadDir, cfg.TempDir, cfg.GeneratedDir}, cfg.Retention, log)
	pruner.Start()
	defer pruner.Stop()

	// Hot folder
	if cfg.HotFolder != "" {
		watcher := hotfolder.New(cfg.HotFolder, orchestrator, audioSlots, log)
		if err := watcher.Start(); err != nil {
			log.Fatal().Err(err).Str("dir", cfg.HotFolder).Msg("failed to start hot folder watcher")
		}
		defer watcher.Stop()
	}

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	handlers := api.Handlers{
		Audio: api.NewAudioHandler(cfg.UploadDir, cfg.MaxUploadMB, orchestrator, extractor,
			prober, pre, audioSlots, extractSlots, archive, httpLog),
		Documents: api.NewDocumentsHandler(extractor, renderer, pdfSlots, archive, httpLog),
		Database:  api.NewDatabaseHandler(filler, extractSlots, httpLog),
		Health: api.NewHealthHandler(cfg.Audio.FFmpegPath, cfg.Audio.FFprobePath,
			cfg.Whisper.APIKey != "", extractAPIKey != "", version, startTime),
	}
	srv := api.NewServer(cfg, handlers, rateLimiter, httpLog)

	// Start HTTP server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), api.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("kiroku-engine stopped")
}
