package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSerperSearch(t *testing.T) {
	var gotKey string
	var gotReq serperRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"organic": []map[string]any{
				{"snippet": "Hanoi: 31C, humid"},
				{"snippet": "  "},
				{"snippet": "Rain likely Thursday"},
				{"snippet": "Typhoon season update"},
				{"snippet": "A fourth result"},
			},
		})
	}))
	defer ts.Close()

	c := NewSerperClient(SerperConfig{URL: ts.URL, APIKey: "secret", GL: "vn", HL: "vi"})
	snippets, err := c.Search(context.Background(), "hanoi weather")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	want := []string{"Hanoi: 31C, humid", "Rain likely Thursday", "Typhoon season update"}
	if len(snippets) != len(want) {
		t.Fatalf("Search() = %v, want %v", snippets, want)
	}
	for i := range want {
		if snippets[i] != want[i] {
			t.Fatalf("snippet %d = %q, want %q", i, snippets[i], want[i])
		}
	}
	if gotKey != "secret" {
		t.Fatalf("X-API-KEY = %q, want secret", gotKey)
	}
	if gotReq.Q != "hanoi weather" || gotReq.GL != "vn" || gotReq.HL != "vi" {
		t.Fatalf("request = %+v, want query with locale params", gotReq)
	}
}

func TestSerperSearchEmptyResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"organic":[]}`))
	}))
	defer ts.Close()

	c := NewSerperClient(SerperConfig{URL: ts.URL})
	snippets, err := c.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(snippets) != 0 {
		t.Fatalf("Search() = %v, want empty", snippets)
	}
}

func TestSerperSearchHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := NewSerperClient(SerperConfig{URL: ts.URL})
	if _, err := c.Search(context.Background(), "anything"); err == nil {
		t.Fatalf("Search() succeeded on HTTP 401, want error")
	}
}
