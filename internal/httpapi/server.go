package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/outloud/chatterboxd/internal/config"
	"github.com/outloud/chatterboxd/internal/observability"
)

// Synthesizer is the warm-model contract the handlers depend on.
type Synthesizer interface {
	EnsureLoaded(ctx context.Context) error
	Generate(ctx context.Context, text string) ([]byte, error)
	Loaded() bool
	Device() string
	SampleRate() int
}

type Server struct {
	cfg     config.Config
	engine  Synthesizer
	metrics *observability.Metrics

	// One synthesis at a time. The worker protocol is strictly ordered
	// and the model saturates the device anyway, so concurrent requests
	// queue here instead of interleaving.
	synthMu sync.Mutex

	upgrader websocket.Upgrader

	// terminate is what /shutdown invokes; tests swap it out so the
	// test process does not signal itself.
	terminate func() error
}

func New(cfg config.Config, engine Synthesizer, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		engine:  engine,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// The daemon binds to loopback, but keep browser pages on
				// other origins from driving it if that ever changes.
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
		terminate: func() error {
			p, err := os.FindProcess(os.Getpid())
			if err != nil {
				return err
			}
			return p.Signal(syscall.SIGTERM)
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/speak", s.handleSpeak)
	r.Get("/speak/stream", s.handleSpeakStream)
	r.Post("/shutdown", s.handleShutdown)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	var device any
	if d := s.engine.Device(); d != "" {
		device = d
	}
	s.metrics.Requests.WithLabelValues("/health", "200").Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"model_loaded": s.engine.Loaded(),
		"device":       device,
	})
}

func (s *Server) handleShutdown(w http.ResponseWriter, _ *http.Request) {
	s.metrics.Requests.WithLabelValues("/shutdown", "200").Inc()
	respondJSON(w, http.StatusOK, map[string]any{"status": "shutting down"})
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	// Best effort: the response races process death, same as the wire
	// contract promises.
	go func() {
		if err := s.terminate(); err != nil {
			log.Printf("self-terminate failed: %v", err)
		}
	}()
}

type errorResponse struct {
	Error string `json:"error"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
