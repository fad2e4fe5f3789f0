package httpapi

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/outloud/chatterboxd/internal/audio"
	"github.com/outloud/chatterboxd/internal/textchunk"
)

type speakRequest struct {
	Text         string `json:"text"`
	MaxChunkSize int    `json:"max_chunk_size"`
	Sanitize     bool   `json:"sanitize"`
}

type speakResponse struct {
	AudioPath  string `json:"audio_path"`
	SampleRate int    `json:"sample_rate"`
	Chunks     int    `json:"chunks"`
}

// handleSpeak synthesizes the request text into a temp WAV file and
// returns its path. The file belongs to the caller afterwards: the
// daemon never reads or deletes it, and the path is only as durable as
// the OS temp directory.
func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		s.metrics.Requests.WithLabelValues("/speak", "400").Inc()
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Text == "" {
		// Client fault; the model is not touched.
		s.metrics.Requests.WithLabelValues("/speak", "400").Inc()
		respondError(w, http.StatusBadRequest, "No text provided")
		return
	}

	s.synthMu.Lock()
	defer s.synthMu.Unlock()

	started := time.Now()

	if err := s.ensureLoaded(r.Context()); err != nil {
		s.metrics.Requests.WithLabelValues("/speak", "500").Inc()
		log.Printf("model load failed: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	chunks, segments, err := s.synthesize(r, req.Text, req.MaxChunkSize, req.Sanitize)
	if err != nil {
		s.metrics.Requests.WithLabelValues("/speak", "500").Inc()
		log.Printf("synthesis failed: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(segments) == 0 {
		s.metrics.Requests.WithLabelValues("/speak", "500").Inc()
		s.metrics.EngineErrors.WithLabelValues("assemble").Inc()
		respondError(w, http.StatusInternalServerError, "No audio generated")
		return
	}

	sampleRate := s.engine.SampleRate()
	pcm, err := audio.Assemble(segments, sampleRate, s.cfg.Silence())
	if err != nil {
		s.metrics.Requests.WithLabelValues("/speak", "500").Inc()
		s.metrics.EngineErrors.WithLabelValues("assemble").Inc()
		log.Printf("assembly failed: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	path := filepath.Join(os.TempDir(), "outloud-"+uuid.NewString()+".wav")
	if err := audio.WriteWAVPCM16LEFile(path, pcm, sampleRate); err != nil {
		s.metrics.Requests.WithLabelValues("/speak", "500").Inc()
		s.metrics.EngineErrors.WithLabelValues("write").Inc()
		log.Printf("write %s failed: %v", path, err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.metrics.Requests.WithLabelValues("/speak", "200").Inc()
	s.metrics.ChunksPerRequest.Observe(float64(len(chunks)))
	s.metrics.ObserveSynthesisLatency(time.Since(started))

	respondJSON(w, http.StatusOK, speakResponse{
		AudioPath:  path,
		SampleRate: sampleRate,
		Chunks:     len(chunks),
	})
}

// handleSpeakStream streams one websocket event per synthesized chunk so
// the CLI can start playback before the full text is done. Each chunk
// event carries a complete standalone WAV payload.
func (s *Server) handleSpeakStream(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if text == "" {
		s.metrics.Requests.WithLabelValues("/speak/stream", "400").Inc()
		respondError(w, http.StatusBadRequest, "No text provided")
		return
	}
	maxChunk, _ := strconv.Atoi(r.URL.Query().Get("max_chunk_size"))
	sanitize := r.URL.Query().Get("sanitize") == "true"

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.metrics.Requests.WithLabelValues("/speak/stream", "200").Inc()

	writeEvent := func(v any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
		return conn.WriteJSON(v) == nil
	}
	fail := func(stage string, err error) {
		s.metrics.EngineErrors.WithLabelValues(stage).Inc()
		log.Printf("stream synthesis failed (%s): %v", stage, err)
		writeEvent(map[string]any{"type": "error", "error": err.Error()})
	}

	s.synthMu.Lock()
	defer s.synthMu.Unlock()

	if err := s.ensureLoaded(r.Context()); err != nil {
		fail("load", err)
		return
	}

	if sanitize {
		text = textchunk.SanitizeForSpeech(text)
	}
	chunks := s.split(text, maxChunk)
	sampleRate := s.engine.SampleRate()

	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		pcm, err := s.engine.Generate(r.Context(), chunk)
		if err != nil {
			fail("generate", err)
			return
		}
		wav, err := audio.EncodeWAVPCM16LE(pcm, sampleRate)
		if err != nil {
			fail("encode", err)
			return
		}
		ok := writeEvent(map[string]any{
			"type":         "chunk",
			"index":        i,
			"sample_rate":  sampleRate,
			"audio_base64": base64.StdEncoding.EncodeToString(wav),
		})
		if !ok {
			return
		}
	}
	writeEvent(map[string]any{"type": "done", "chunks": len(chunks)})
}

// ensureLoaded wraps the engine load with the loaded gauge. A failure
// leaves the engine unloaded; the next request retries the load.
func (s *Server) ensureLoaded(ctx context.Context) error {
	if err := s.engine.EnsureLoaded(ctx); err != nil {
		s.metrics.EngineErrors.WithLabelValues("load").Inc()
		return err
	}
	s.metrics.ModelLoaded.Set(1)
	return nil
}

func (s *Server) split(text string, maxChunk int) []string {
	if maxChunk <= 0 {
		maxChunk = s.cfg.MaxChunkChars
	}
	return textchunk.Split(text, maxChunk)
}

// synthesize chunks the text and generates one PCM segment per
// non-blank chunk. The chunk count is reported to the client even when
// blank chunks were skipped.
func (s *Server) synthesize(r *http.Request, text string, maxChunk int, sanitize bool) ([]string, [][]byte, error) {
	if sanitize {
		text = textchunk.SanitizeForSpeech(text)
	}
	chunks := s.split(text, maxChunk)

	var segments [][]byte
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		pcm, err := s.engine.Generate(r.Context(), chunk)
		if err != nil {
			s.metrics.EngineErrors.WithLabelValues("generate").Inc()
			return nil, nil, err
		}
		segments = append(segments, pcm)
	}
	return chunks, segments, nil
}
