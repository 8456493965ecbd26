package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vdtran/voicebox/internal/brain"
	"github.com/vdtran/voicebox/internal/config"
	"github.com/vdtran/voicebox/internal/dispatch"
	"github.com/vdtran/voicebox/internal/events"
	"github.com/vdtran/voicebox/internal/history"
	"github.com/vdtran/voicebox/internal/httpapi"
	"github.com/vdtran/voicebox/internal/interactionlog"
	"github.com/vdtran/voicebox/internal/observability"
	"github.com/vdtran/voicebox/internal/pipeline"
	"github.com/vdtran/voicebox/internal/search"
	"github.com/vdtran/voicebox/internal/speech"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("upload dir init failed: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	sink, err := interactionlog.NewSink(ctx, cfg.DatabaseURL, cfg.UploadDir)
	if err != nil {
		log.Fatalf("interaction log init failed: %v", err)
	}
	defer sink.Close()

	transcriber := pickTranscriber(cfg)
	synthesizer := pickSynthesizer(ctx, cfg)

	adapter, err := brain.NewAdapter(brain.Config{
		Mode:    cfg.BrainAdapterMode,
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
	})
	if err != nil {
		log.Fatalf("brain adapter init failed: %v", err)
	}

	var searcher search.Client
	if cfg.SerperAPIKey != "" {
		searcher = search.NewSerperClient(search.SerperConfig{
			APIKey: cfg.SerperAPIKey,
			GL:     cfg.SearchGL,
			HL:     cfg.SearchHL,
		})
		log.Printf("web search: serper (gl=%s hl=%s)", cfg.SearchGL, cfg.SearchHL)
	} else {
		log.Printf("web search: disabled (SERPER_API_KEY not set)")
	}

	pool := dispatch.NewPool(cfg.WorkerPoolSize, metrics)
	defer pool.Close()

	hist := history.NewStore(cfg.HistoryMaxTurns)
	hub := events.NewHub()

	pipe := pipeline.New(pipeline.Config{
		Pool:              pool,
		History:           hist,
		Transcriber:       transcriber,
		Synthesizer:       synthesizer,
		Brain:             adapter,
		Searcher:          searcher,
		LogSink:           sink,
		Hub:               hub,
		Metrics:           metrics,
		UploadDir:         cfg.UploadDir,
		STTStageTimeout:   cfg.STTStageTimeout,
		ReplyStageTimeout: cfg.ReplyStageTimeout,
	})

	api := httpapi.New(cfg, pipe, hub, sink, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

func pickTranscriber(cfg config.Config) speech.Transcriber {
	mode := strings.ToLower(strings.TrimSpace(cfg.SpeechProvider))
	if mode == "" {
		mode = "auto"
	}

	tryGoogle := func() speech.Transcriber {
		if cfg.GoogleSTTKey == "" {
			return nil
		}
		log.Printf("speech provider: google (lang=%s)", cfg.STTLanguage)
		return speech.NewGoogleSTT(speech.GoogleSTTConfig{
			APIKey:   cfg.GoogleSTTKey,
			Language: cfg.STTLanguage,
		})
	}

	switch mode {
	case "google":
		if t := tryGoogle(); t != nil {
			return t
		}
		log.Fatalf("SPEECH_PROVIDER=google but GOOGLE_STT_API_KEY is not set")
	case "mock":
		log.Printf("speech provider: mock")
		return speech.NewMockProvider()
	case "auto":
		if t := tryGoogle(); t != nil {
			return t
		}
		log.Printf("speech provider: mock (no google key)")
		return speech.NewMockProvider()
	default:
		log.Fatalf("invalid SPEECH_PROVIDER: %q (expected auto|google|mock)", cfg.SpeechProvider)
	}
	return nil
}

func pickSynthesizer(ctx context.Context, cfg config.Config) speech.Synthesizer {
	mode := strings.ToLower(strings.TrimSpace(cfg.TTSProvider))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "polly":
		p, err := speech.NewPollySynthesizer(ctx, speech.PollyConfig{
			Region:  cfg.PollyRegion,
			VoiceID: cfg.PollyVoice,
		})
		if err != nil {
			log.Fatalf("polly synthesizer init failed: %v", err)
		}
		log.Printf("tts provider: polly (region=%s voice=%s)", cfg.PollyRegion, cfg.PollyVoice)
		return p
	case "gtts", "auto":
		log.Printf("tts provider: gtts (lang=%s)", cfg.TTSLanguage)
		return speech.NewGTTS(speech.GTTSConfig{Language: cfg.TTSLanguage})
	case "mock":
		log.Printf("tts provider: mock")
		return speech.NewMockProvider()
	default:
		log.Fatalf("invalid TTS_PROVIDER: %q (expected auto|gtts|polly|mock)", cfg.TTSProvider)
	}
	return nil
}
