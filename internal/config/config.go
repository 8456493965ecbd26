package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the voicebox request server.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	UploadDir string

	WorkerPoolSize    int
	STTStageTimeout   time.Duration
	ReplyStageTimeout time.Duration

	HistoryMaxTurns int

	SpeechProvider string
	STTLanguage    string
	GoogleSTTKey   string

	TTSProvider string
	TTSLanguage string
	PollyRegion string
	PollyVoice  string

	BrainAdapterMode string
	GeminiAPIKey     string
	GeminiModel      string
	GeminiBaseURL    string

	SerperAPIKey string
	SearchGL     string
	SearchHL     string

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "voicebox"),
		UploadDir:        envOrDefault("APP_UPLOAD_DIR", "./uploads"),
		SpeechProvider:   envOrDefault("SPEECH_PROVIDER", "auto"),
		// The original deployment served Vietnamese speakers; keep that default.
		STTLanguage:      envOrDefault("APP_STT_LANGUAGE", "vi-VN"),
		GoogleSTTKey:     trimSpaceEnv("GOOGLE_STT_API_KEY"),
		TTSProvider:      envOrDefault("TTS_PROVIDER", "auto"),
		TTSLanguage:      envOrDefault("APP_TTS_LANGUAGE", "vi"),
		PollyRegion:      envOrDefault("POLLY_REGION", "us-east-1"),
		PollyVoice:       envOrDefault("POLLY_VOICE_ID", "Joanna"),
		BrainAdapterMode: envOrDefault("BRAIN_ADAPTER_MODE", "auto"),
		GeminiAPIKey:     trimSpaceEnv("GEMINI_API_KEY"),
		GeminiModel:      envOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL:    envOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		SerperAPIKey:     trimSpaceEnv("SERPER_API_KEY"),
		SearchGL:         envOrDefault("APP_SEARCH_GL", "vn"),
		SearchHL:         envOrDefault("APP_SEARCH_HL", "vi"),
		DatabaseURL:      trimSpaceEnv("DATABASE_URL"),

		WorkerPoolSize:    2,
		STTStageTimeout:   15 * time.Second,
		ReplyStageTimeout: 60 * time.Second,
		HistoryMaxTurns:   64,
		ShutdownTimeout:   15 * time.Second,
	}

	var err error
	cfg.WorkerPoolSize, err = intFromEnv("APP_WORKER_POOL_SIZE", cfg.WorkerPoolSize)
	if err != nil {
		return Config{}, err
	}
	cfg.STTStageTimeout, err = durationFromEnv("APP_STT_STAGE_TIMEOUT", cfg.STTStageTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ReplyStageTimeout, err = durationFromEnv("APP_REPLY_STAGE_TIMEOUT", cfg.ReplyStageTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryMaxTurns, err = intFromEnv("APP_HISTORY_MAX_TURNS", cfg.HistoryMaxTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}

	if cfg.WorkerPoolSize <= 0 {
		return Config{}, fmt.Errorf("APP_WORKER_POOL_SIZE must be positive")
	}
	if cfg.STTStageTimeout <= 0 {
		return Config{}, fmt.Errorf("APP_STT_STAGE_TIMEOUT must be positive")
	}
	if cfg.ReplyStageTimeout <= 0 {
		return Config{}, fmt.Errorf("APP_REPLY_STAGE_TIMEOUT must be positive")
	}
	if cfg.HistoryMaxTurns < 0 {
		return Config{}, fmt.Errorf("APP_HISTORY_MAX_TURNS must be >= 0")
	}
	if strings.TrimSpace(cfg.UploadDir) == "" {
		return Config{}, fmt.Errorf("APP_UPLOAD_DIR must not be empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimSpaceEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimSpaceEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimSpaceEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
