package brain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiGenerate(t *testing.T) {
	var gotPath, gotPrompt string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			gotPrompt = req.Contents[0].Parts[0].Text
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{
					{"text": "  It is sunny today.\n"},
				}}},
			},
		})
	}))
	defer ts.Close()

	a := NewGeminiAdapter(ts.URL, "gemini-2.0-flash", "test-key")
	reply, err := a.Generate(context.Background(), "User: weather\nAssistant:")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if reply != "It is sunny today." {
		t.Fatalf("Generate() = %q, want trimmed reply", reply)
	}
	if gotPath != "/models/gemini-2.0-flash:generateContent" {
		t.Fatalf("request path = %q", gotPath)
	}
	if !strings.Contains(gotPrompt, "User: weather") {
		t.Fatalf("prompt sent = %q, missing composed content", gotPrompt)
	}
}

func TestGeminiGenerateErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"http error": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":{"message":"quota"}}`, http.StatusTooManyRequests)
		},
		"no candidates": func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"candidates":[]}`))
		},
		"empty reply": func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(handler)
			defer ts.Close()
			a := NewGeminiAdapter(ts.URL, "", "key")
			if _, err := a.Generate(context.Background(), "hi"); err == nil {
				t.Fatalf("Generate() succeeded, want error")
			}
		})
	}
}

func TestNewAdapterModes(t *testing.T) {
	if _, err := NewAdapter(Config{Mode: "gemini"}); err == nil {
		t.Fatalf("gemini mode without key succeeded, want error")
	}
	if _, err := NewAdapter(Config{Mode: "bogus"}); err == nil {
		t.Fatalf("unknown mode succeeded, want error")
	}

	a, err := NewAdapter(Config{Mode: "auto"})
	if err != nil {
		t.Fatalf("auto mode error = %v", err)
	}
	if _, ok := a.(*MockAdapter); !ok {
		t.Fatalf("auto mode without key = %T, want *MockAdapter", a)
	}

	a, err = NewAdapter(Config{Mode: "auto", APIKey: "k"})
	if err != nil {
		t.Fatalf("auto mode with key error = %v", err)
	}
	if _, ok := a.(*GeminiAdapter); !ok {
		t.Fatalf("auto mode with key = %T, want *GeminiAdapter", a)
	}
}
