package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/bonellirj/EchoDo/internal/api"
	"github.com/bonellirj/EchoDo/internal/backend"
	"github.com/bonellirj/EchoDo/internal/capture"
	"github.com/bonellirj/EchoDo/internal/config"
	"github.com/bonellirj/EchoDo/internal/pipeline"
	"github.com/bonellirj/EchoDo/internal/prefs"
	"github.com/bonellirj/EchoDo/internal/task"
	"github.com/bonellirj/EchoDo/internal/telemetry"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file")
	flag.StringVar(&overrides.HTTPAddr, "addr", "", "http listen address")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flag.StringVar(&overrides.BackendURL, "backend-url", "", "audio-to-task backend URL")
	flag.StringVar(&overrides.DataDir, "data-dir", "", "data directory for task and preference files")
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
	log.Info().Str("version", version).Msg("echodo starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tc := telemetry.NewClient(cfg.LogAPIURL, cfg.LogAPIToken, cfg.Dev,
		log.With().Str("component", "telemetry").Logger())
	defer tc.Flush()

	// Stores
	tasks, err := task.NewStore(cfg.DataDir, tc, log.With().Str("component", "tasks").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open task store")
	}
	preferences, err := prefs.NewStore(cfg.DataDir, tc, log.With().Str("component", "prefs").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open preferences store")
	}
	if err := preferences.Watch(ctx); err != nil {
		log.Warn().Err(err).Msg("preferences file watcher unavailable")
	}

	// Event bus feeding SSE clients
	bus := pipeline.NewBus()
	preferences.OnChange(func(p prefs.Preferences) {
		bus.Publish(pipeline.EventPreferencesUpdated, p)
	})

	// Voice pipeline
	recorder := capture.NewFFmpegRecorder(cfg.CaptureDevice,
		log.With().Str("component", "capture").Logger())
	if !recorder.Supported() {
		log.Warn().Msg("ffmpeg not found, voice recording disabled")
	}

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, tc,
		log.With().Str("component", "backend").Logger())
	materializer := task.NewMaterializer(tasks, tc,
		log.With().Str("component", "materializer").Logger())

	orch := pipeline.New(pipeline.Options{
		Recorder:     recorder,
		Backend:      client,
		Materializer: materializer,
		Models:       preferences,
		Bus:          bus,
		Telemetry:    tc,
		MaxSeconds:   cfg.MaxRecordingSeconds,
		TickInterval: cfg.TimerTickInterval,
		Log:          log.With().Str("component", "pipeline").Logger(),
	})
	defer orch.Close()

	// HTTP Server
	srv := api.NewServer(cfg, api.Deps{
		Orchestrator: orch,
		Tasks:        tasks,
		Preferences:  preferences,
		Bus:          bus,
		Recorder:     recorder,
		Version:      version,
		StartTime:    startTime,
	}, log.With().Str("component", "http").Logger())

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

	// Stop any active recording before shutting down the server.
	orch.Reset()

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("echodo stopped")
}
