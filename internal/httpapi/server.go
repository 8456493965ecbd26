package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/vdtran/voicebox/internal/config"
	"github.com/vdtran/voicebox/internal/events"
	"github.com/vdtran/voicebox/internal/interactionlog"
	"github.com/vdtran/voicebox/internal/observability"
	"github.com/vdtran/voicebox/internal/pipeline"
)

// RequestHandler runs one voice request end to end. Satisfied by
// *pipeline.Pipeline; tests swap in a stub.
type RequestHandler interface {
	Handle(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

const maxUploadBytes = 16 << 20

type Server struct {
	cfg      config.Config
	handler  RequestHandler
	hub      *events.Hub
	sink     interactionlog.Sink
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, handler RequestHandler, hub *events.Hub, sink interactionlog.Sink, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		handler: handler,
		hub:     hub,
		sink:    sink,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same origin,
				// so other sites can't watch the live interaction feed if the
				// server is ever exposed beyond localhost.
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/upload-audio", s.handleUploadAudio)
	r.Get("/uploads/{filename}", s.handleServeUpload)
	r.Get("/v1/interactions", s.handleListInteractions)
	r.Get("/v1/events/ws", s.handleEventsWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"log_sink": s.sinkMode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ready",
		"log_sink": s.sinkMode(),
	})
}

type uploadResponse struct {
	Text      string `json:"text"`
	ReplyText string `json:"reply_text"`
	MP3URL    string `json:"mp3_url"`
	Fallback  bool   `json:"fallback,omitempty"`
}

func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_multipart", err.Error())
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing_file", "no file part in the request")
		return
	}
	defer part.Close()

	name := sanitizeFilename(header.Filename)
	if name == "" {
		respondError(w, http.StatusBadRequest, "empty_filename", "no selected file")
		return
	}

	audioPath, err := s.saveUpload(part, name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "save_failed", err.Error())
		return
	}

	res, err := s.handler.Handle(r.Context(), pipeline.Request{
		AudioPath:  audioPath,
		UploadName: name,
		CallerKey:  callerKey(r),
		ReceivedAt: time.Now(),
	})
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrStageTimeout):
			respondError(w, http.StatusGatewayTimeout, "stage_timeout", err.Error())
		case errors.Is(err, pipeline.ErrAdapterFailure):
			respondError(w, http.StatusBadGateway, "adapter_failure", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "internal", err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, uploadResponse{
		Text:      res.RecognizedText,
		ReplyText: res.ReplyText,
		MP3URL:    s.artifactURL(r, res.AudioFilename),
		Fallback:  res.Fallback,
	})
}

func (s *Server) handleServeUpload(w http.ResponseWriter, r *http.Request) {
	name := sanitizeFilename(chi.URLParam(r, "filename"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "invalid_filename", "invalid filename")
		return
	}

	path := filepath.Join(s.cfg.UploadDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		respondError(w, http.StatusNotFound, "not_found", "no such file")
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleListInteractions(w http.ResponseWriter, r *http.Request) {
	if s.sink == nil {
		respondJSON(w, http.StatusOK, map[string]any{"interactions": []interactionlog.Record{}})
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	records, err := s.sink.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "log_read_failed", err.Error())
		return
	}
	if records == nil {
		records = []interactionlog.Record{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"interactions": records})
}

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "event hub not configured")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch, cancel := s.hub.Subscribe()
	defer cancel()
	if s.metrics != nil {
		s.metrics.EventSubscribers.Set(float64(s.hub.SubscriberCount()))
		defer func() {
			s.metrics.EventSubscribers.Set(float64(s.hub.SubscriberCount()))
		}()
	}

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	// Reader loop exists only to notice the peer going away.
	go func() {
		defer stop()
		conn.SetReadLimit(1 << 10)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
	}
}

func (s *Server) saveUpload(part io.Reader, name string) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(s.cfg.UploadDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, part); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, nil
}

// artifactURL builds an absolute URL for the reply audio using the host the
// client reached us on.
func (s *Server) artifactURL(r *http.Request, filename string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/uploads/%s", scheme, r.Host, filename)
}

// callerKey identifies the origin of a request for conversation history.
// The client IP without the port, falling back to the raw remote address.
func callerKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// sanitizeFilename strips any path components from a client-supplied name.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

func (s *Server) sinkMode() string {
	if s.sink == nil {
		return "disabled"
	}
	if _, ok := s.sink.(*interactionlog.PostgresSink); ok {
		return "postgres"
	}
	return "csv"
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
