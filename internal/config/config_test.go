package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.WorkerPoolSize != 2 {
		t.Fatalf("WorkerPoolSize = %d, want 2", cfg.WorkerPoolSize)
	}
	if cfg.STTStageTimeout != 15*time.Second {
		t.Fatalf("STTStageTimeout = %v, want 15s", cfg.STTStageTimeout)
	}
	if cfg.ReplyStageTimeout != 60*time.Second {
		t.Fatalf("ReplyStageTimeout = %v, want 60s", cfg.ReplyStageTimeout)
	}
	if cfg.HistoryMaxTurns != 64 {
		t.Fatalf("HistoryMaxTurns = %d, want 64", cfg.HistoryMaxTurns)
	}
	if cfg.SpeechProvider != "auto" || cfg.TTSProvider != "auto" || cfg.BrainAdapterMode != "auto" {
		t.Fatalf("provider modes = %q/%q/%q, want auto defaults",
			cfg.SpeechProvider, cfg.TTSProvider, cfg.BrainAdapterMode)
	}
}

func TestLoadOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_WORKER_POOL_SIZE", "4")
	t.Setenv("APP_STT_STAGE_TIMEOUT", "7s")
	t.Setenv("APP_HISTORY_MAX_TURNS", "0")
	t.Setenv("SERPER_API_KEY", "  key-123  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WorkerPoolSize != 4 {
		t.Fatalf("WorkerPoolSize = %d, want 4", cfg.WorkerPoolSize)
	}
	if cfg.STTStageTimeout != 7*time.Second {
		t.Fatalf("STTStageTimeout = %v, want 7s", cfg.STTStageTimeout)
	}
	if cfg.HistoryMaxTurns != 0 {
		t.Fatalf("HistoryMaxTurns = %d, want 0 (unbounded)", cfg.HistoryMaxTurns)
	}
	if cfg.SerperAPIKey != "key-123" {
		t.Fatalf("SerperAPIKey = %q, want trimmed value", cfg.SerperAPIKey)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"APP_WORKER_POOL_SIZE":    "0",
		"APP_STT_STAGE_TIMEOUT":   "-1s",
		"APP_HISTORY_MAX_TURNS":   "-5",
		"APP_REPLY_STAGE_TIMEOUT": "nonsense",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%q succeeded, want error", key, val)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_UPLOAD_DIR",
		"APP_WORKER_POOL_SIZE",
		"APP_STT_STAGE_TIMEOUT",
		"APP_REPLY_STAGE_TIMEOUT",
		"APP_HISTORY_MAX_TURNS",
		"SPEECH_PROVIDER",
		"APP_STT_LANGUAGE",
		"GOOGLE_STT_API_KEY",
		"TTS_PROVIDER",
		"APP_TTS_LANGUAGE",
		"POLLY_REGION",
		"POLLY_VOICE_ID",
		"BRAIN_ADAPTER_MODE",
		"GEMINI_API_KEY",
		"GEMINI_MODEL",
		"GEMINI_BASE_URL",
		"SERPER_API_KEY",
		"APP_SEARCH_GL",
		"APP_SEARCH_HL",
		"DATABASE_URL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
