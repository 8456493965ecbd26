package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/vdtran/voicebox/internal/audio"
)

const defaultGoogleSTTBaseURL = "https://www.google.com/speech-api/v2/recognize"

var errNoTranscript = errors.New("no transcript in response")

// GoogleSTT calls the Google speech-api v2 recognize endpoint with the raw
// audio body and picks the best-confidence alternative from the JSON-lines
// response.
type GoogleSTT struct {
	baseURL  string
	apiKey   string
	language string
	client   *http.Client
}

type GoogleSTTConfig struct {
	BaseURL  string
	APIKey   string
	Language string
}

func NewGoogleSTT(cfg GoogleSTTConfig) *GoogleSTT {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultGoogleSTTBaseURL
	}
	lang := strings.TrimSpace(cfg.Language)
	if lang == "" {
		lang = "vi-VN"
	}
	return &GoogleSTT{
		baseURL:  base,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		language: lang,
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

func (g *GoogleSTT) Transcribe(ctx context.Context, audioPath string) (string, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("empty audio artifact")
	}

	params := url.Values{}
	params.Set("client", "chromium")
	params.Set("lang", g.language)
	if g.apiKey != "" {
		params.Set("key", g.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"?"+params.Encode(), bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeFor(data))

	res, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return "", fmt.Errorf("speech api status %d: %s", res.StatusCode, string(body))
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return parseRecognizeResponse(body)
}

func contentTypeFor(data []byte) string {
	if audio.IsWAV(data) {
		rate := 16000
		if len(data) >= 28 {
			if r := int(binary.LittleEndian.Uint32(data[24:28])); r > 0 {
				rate = r
			}
		}
		return fmt.Sprintf("audio/l16; rate=%d", rate)
	}
	return "application/octet-stream"
}

// The endpoint replies with one JSON object per line; the first non-empty
// result carries the alternatives, best confidence first.
func parseRecognizeResponse(body []byte) (string, error) {
	type alternative struct {
		Transcript string  `json:"transcript"`
		Confidence float64 `json:"confidence"`
	}
	type result struct {
		Alternative []alternative `json:"alternative"`
		Final       bool          `json:"final"`
	}
	type response struct {
		Result []result `json:"result"`
	}

	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var parsed response
		if err := json.Unmarshal([]byte(line), &parsed); err != nil {
			continue
		}
		for _, r := range parsed.Result {
			for _, alt := range r.Alternative {
				text := strings.TrimSpace(alt.Transcript)
				if text != "" {
					return text, nil
				}
			}
		}
	}
	return "", errNoTranscript
}
