package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGTTSSynthesizeWritesArtifact(t *testing.T) {
	var gotLang string
	var queries []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang = r.URL.Query().Get("tl")
		queries = append(queries, r.URL.Query().Get("q"))
		w.Write([]byte("MP3FRAME:" + r.URL.Query().Get("q") + ";"))
	}))
	defer ts.Close()

	g := NewGTTS(GTTSConfig{BaseURL: ts.URL, Language: "vi"})
	outPath := filepath.Join(t.TempDir(), "reply.mp3")
	if err := g.Synthesize(context.Background(), "mời bạn nói lại", outPath); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !strings.Contains(string(data), "mời bạn nói lại") {
		t.Fatalf("artifact content = %q, missing synthesized text", data)
	}
	if gotLang != "vi" {
		t.Fatalf("tl param = %q, want vi", gotLang)
	}
	if len(queries) != 1 {
		t.Fatalf("request count = %d, want 1 for short text", len(queries))
	}
}

func TestGTTSLongTextIsChunked(t *testing.T) {
	var queries []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		w.Write([]byte("seg;"))
	}))
	defer ts.Close()

	long := strings.Repeat("từng câu một ", 40)
	g := NewGTTS(GTTSConfig{BaseURL: ts.URL, Language: "vi"})
	outPath := filepath.Join(t.TempDir(), "reply.mp3")
	if err := g.Synthesize(context.Background(), long, outPath); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	if len(queries) < 2 {
		t.Fatalf("request count = %d, want chunked requests for long text", len(queries))
	}
	for i, q := range queries {
		if len([]rune(q)) > gttsMaxChunkRunes {
			t.Fatalf("chunk %d has %d runes, over the %d limit", i, len([]rune(q)), gttsMaxChunkRunes)
		}
	}
}

func TestGTTSRejectsEmptyText(t *testing.T) {
	g := NewGTTS(GTTSConfig{Language: "vi"})
	if err := g.Synthesize(context.Background(), "   ", filepath.Join(t.TempDir(), "x.mp3")); err == nil {
		t.Fatalf("Synthesize() accepted blank text, want error")
	}
}

func TestSplitChunksPrefersWordBoundaries(t *testing.T) {
	text := strings.Repeat("word ", 100)
	chunks := splitChunks(strings.TrimSpace(text), 30)
	for i, c := range chunks {
		if strings.HasPrefix(c, " ") || strings.HasSuffix(c, " ") {
			t.Fatalf("chunk %d = %q has surrounding spaces", i, c)
		}
		if len([]rune(c)) > 30 {
			t.Fatalf("chunk %d exceeds limit: %q", i, c)
		}
	}
	if got := strings.Join(chunks, " "); got != strings.TrimSpace(text) {
		t.Fatalf("rejoined chunks = %q, lost content", got)
	}
}
