// SAGE backend - screen context monitoring, chat, voice input, and
// persistence behind a WebSocket/REST surface for the desktop UI.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"

	"github.com/Dedeep007/SAGE/internal/agent"
	"github.com/Dedeep007/SAGE/internal/config"
	"github.com/Dedeep007/SAGE/internal/llm"
	"github.com/Dedeep007/SAGE/internal/monitor"
	"github.com/Dedeep007/SAGE/internal/ocr"
	"github.com/Dedeep007/SAGE/internal/orchestrator"
	"github.com/Dedeep007/SAGE/internal/screen"
	"github.com/Dedeep007/SAGE/internal/server"
	"github.com/Dedeep007/SAGE/internal/store"
	"github.com/Dedeep007/SAGE/internal/suggest"
	"github.com/Dedeep007/SAGE/internal/voice"
)

var logLevelMap = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	envFile := pflag.StringP("env", "e", ".env", "env file path")
	logLevel := pflag.StringP("log-level", "l", "", "log level (debug|info|warn|error)")
	pflag.Parse()

	_ = godotenv.Load(*envFile)

	level := *logLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	lvl, ok := logLevelMap[level]
	if !ok {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: lvl})))

	cfg := config.Load()

	if !cfg.ChatConfigured() {
		slog.Warn("GROQ_API_KEY not set; chat, suggestions, and transcription are disabled")
	}

	region, err := screen.ParseRegion(cfg.CaptureRegion)
	if err != nil {
		slog.Error("invalid capture region", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(store.Config{Path: cfg.DBPath, MaxHistory: cfg.DBMaxHistory})
	if err != nil {
		slog.Error("database open failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = st.Close() }()

	client := llm.New(llm.Config{
		APIKey:          cfg.GroqAPIKey,
		BaseURL:         cfg.GroqBaseURL,
		Model:           cfg.Model,
		TranscribeModel: cfg.TranscribeModel,
		Temperature:     cfg.Temperature,
		MaxTokens:       cfg.MaxTokens,
	})

	ag := agent.New(client, agent.Config{
		Model:      cfg.Model,
		MaxHistory: cfg.MaxContextHistory,
	})

	capturer := screen.New(screen.Config{
		Region:     region,
		Preprocess: cfg.ScreenPreprocessing,
	})
	defer capturer.Close()

	mon := monitor.New(capturer, ocr.NewTesseract(), monitor.Config{
		Interval:            time.Duration(cfg.ScreenCaptureInterval * float64(time.Second)),
		ConfidenceThreshold: cfg.OCRConfidenceThreshold,
	})

	// Suggestions without an API key would only log errors.
	binder := suggest.New(ag, cfg.SuggestionCooldown, cfg.SuggestionsEnabled && cfg.ChatConfigured())

	var vp *voice.Processor
	if cfg.VoiceEnabled {
		vp = voice.New(client, voice.Config{
			SampleRate:      cfg.SampleRate,
			ExcludedDevices: cfg.ExcludedAudioDevices,
		})
	}

	orch := orchestrator.New(orchestrator.Deps{
		Config:  cfg,
		Store:   st,
		Agent:   ag,
		Monitor: mon,
		Binder:  binder,
		Voice:   vp,
	})

	srv := server.New(orch)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.Start(ctx); err != nil {
		slog.Error("orchestrator start failed", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("sage server starting", "http", cfg.HTTPAddr, "model", cfg.Model)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	orch.Stop()
	slog.Info("shutdown complete")
}
