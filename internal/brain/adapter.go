package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Adapter produces a conversational reply for a fully composed prompt.
type Adapter interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config controls adapter construction.
type Config struct {
	Mode    string
	APIKey  string
	Model   string
	BaseURL string
}

func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewGeminiAdapter(cfg.BaseURL, cfg.Model, cfg.APIKey), nil
		}
		return NewMockAdapter(), nil
	case "gemini":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("gemini api key is required for gemini mode")
		}
		return NewGeminiAdapter(cfg.BaseURL, cfg.Model, cfg.APIKey), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported brain adapter mode %q", cfg.Mode)
	}
}
