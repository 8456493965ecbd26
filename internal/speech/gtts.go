package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultGTTSBaseURL = "https://translate.google.com/translate_tts"

	// The endpoint rejects long q values; split on this many runes and
	// concatenate the MP3 segments. MP3 frames are self-contained so naive
	// concatenation plays fine.
	gttsMaxChunkRunes = 200
)

// GTTS synthesizes speech through the Google Translate TTS endpoint and
// writes MP3 output.
type GTTS struct {
	baseURL  string
	language string
	client   *http.Client
}

type GTTSConfig struct {
	BaseURL  string
	Language string
}

func NewGTTS(cfg GTTSConfig) *GTTS {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultGTTSBaseURL
	}
	lang := strings.TrimSpace(cfg.Language)
	if lang == "" {
		lang = "vi"
	}
	return &GTTS{
		baseURL:  base,
		language: lang,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (g *GTTS) AudioExt() string { return ".mp3" }

func (g *GTTS) Synthesize(ctx context.Context, text, outPath string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("empty synthesis text")
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer out.Close()

	for _, chunk := range splitChunks(text, gttsMaxChunkRunes) {
		if err := g.fetchChunk(ctx, chunk, out); err != nil {
			return err
		}
	}
	return nil
}

func (g *GTTS) fetchChunk(ctx context.Context, chunk string, out io.Writer) error {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", g.language)
	params.Set("q", chunk)
	params.Set("textlen", fmt.Sprintf("%d", utf8.RuneCountInString(chunk)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	res, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return fmt.Errorf("tts status %d: %s", res.StatusCode, string(body))
	}
	if _, err := io.Copy(out, res.Body); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// splitChunks breaks text into rune-bounded pieces, preferring to cut at a
// space so words are not split mid-syllable.
func splitChunks(text string, maxRunes int) []string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return []string{text}
	}

	var chunks []string
	for len(runes) > 0 {
		if len(runes) <= maxRunes {
			chunks = append(chunks, strings.TrimSpace(string(runes)))
			break
		}
		cut := maxRunes
		for i := maxRunes; i > maxRunes/2; i-- {
			if runes[i] == ' ' {
				cut = i
				break
			}
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[:cut])))
		runes = runes[cut:]
	}

	out := chunks[:0]
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
