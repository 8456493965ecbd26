package speech

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vdtran/voicebox/internal/audio"
)

func writeTempWAV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, audio.SilenceWAV(100*time.Millisecond, 16000), 0o644); err != nil {
		t.Fatalf("write temp wav: %v", err)
	}
	return path
}

func TestGoogleSTTTranscribe(t *testing.T) {
	var gotContentType, gotLang string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotLang = r.URL.Query().Get("lang")
		// The endpoint emits an empty result line before the real one.
		w.Write([]byte("{\"result\":[]}\n"))
		w.Write([]byte(`{"result":[{"alternative":[{"transcript":"xin chào","confidence":0.92}],"final":true}],"result_index":0}`))
	}))
	defer ts.Close()

	stt := NewGoogleSTT(GoogleSTTConfig{BaseURL: ts.URL, Language: "vi-VN"})
	text, err := stt.Transcribe(context.Background(), writeTempWAV(t))
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "xin chào" {
		t.Fatalf("Transcribe() = %q, want %q", text, "xin chào")
	}
	if gotLang != "vi-VN" {
		t.Fatalf("lang param = %q, want vi-VN", gotLang)
	}
	if gotContentType != "audio/l16; rate=16000" {
		t.Fatalf("Content-Type = %q, want audio/l16 with wav sample rate", gotContentType)
	}
}

func TestGoogleSTTNoTranscript(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("{\"result\":[]}\n"))
	}))
	defer ts.Close()

	stt := NewGoogleSTT(GoogleSTTConfig{BaseURL: ts.URL})
	if _, err := stt.Transcribe(context.Background(), writeTempWAV(t)); !errors.Is(err, errNoTranscript) {
		t.Fatalf("Transcribe() error = %v, want errNoTranscript", err)
	}
}

func TestGoogleSTTServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer ts.Close()

	stt := NewGoogleSTT(GoogleSTTConfig{BaseURL: ts.URL})
	if _, err := stt.Transcribe(context.Background(), writeTempWAV(t)); err == nil {
		t.Fatalf("Transcribe() succeeded on HTTP 403, want error")
	}
}

func TestGoogleSTTDefaultEndpointIsTLS(t *testing.T) {
	stt := NewGoogleSTT(GoogleSTTConfig{})
	if !strings.HasPrefix(stt.baseURL, "https://") {
		t.Fatalf("default base URL = %q, want https", stt.baseURL)
	}
}
