// Package engine holds the warm TTS model behind a Python worker
// subprocess. The worker loads the Chatterbox model once and answers
// synthesis requests over a JSON-line stdin/stdout protocol, so the
// daemon pays the multi-second model load exactly once per process.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrNotLoaded is returned by Generate before a successful load.
	ErrNotLoaded = errors.New("model not loaded")
	// ErrWorkerClosed is returned after Close.
	ErrWorkerClosed = errors.New("tts worker closed")
)

// Config selects the Python interpreter and worker script.
type Config struct {
	Python string
	Script string
}

// Engine owns the worker subprocess and the load state. The load is
// one-way: once LOADED it stays loaded until the process exits.
type Engine struct {
	cfg Config

	mu         sync.Mutex
	worker     *worker
	device     string
	sampleRate int
	closed     bool
}

// New returns an unloaded engine. No subprocess is started until
// EnsureLoaded.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// EnsureLoaded starts the worker and performs a warmup synthesis that
// surfaces dependency errors early and reports the selected compute
// device and output sample rate. Subsequent calls are no-ops.
func (e *Engine) EnsureLoaded(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrWorkerClosed
	}
	if e.worker != nil {
		return nil
	}

	py, err := resolvePython(e.cfg.Python)
	if err != nil {
		return err
	}
	script, err := resolveScript(e.cfg.Script)
	if err != nil {
		return err
	}

	w, info, err := startWorker(ctx, py, script)
	if err != nil {
		return fmt.Errorf("model load failed: %w", err)
	}
	e.worker = w
	e.device = info.Device
	e.sampleRate = info.SampleRate
	return nil
}

// Generate synthesizes text into PCM16LE mono samples. The engine is
// single-flight: concurrent callers serialize on the worker.
func (e *Engine) Generate(ctx context.Context, text string) ([]byte, error) {
	e.mu.Lock()
	w := e.worker
	closed := e.closed
	e.mu.Unlock()

	if closed {
		return nil, ErrWorkerClosed
	}
	if w == nil {
		return nil, ErrNotLoaded
	}
	return w.Synthesize(ctx, text)
}

// Loaded reports whether the model is resident.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.worker != nil
}

// Device returns the compute device the worker selected ("mps", "cuda"
// or "cpu"), or "" before load.
func (e *Engine) Device() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.device
}

// SampleRate returns the fixed output sample rate, or 0 before load.
func (e *Engine) SampleRate() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sampleRate
}

// Close stops the worker subprocess. Safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	w := e.worker
	e.worker = nil
	e.mu.Unlock()

	if w != nil {
		return w.Close()
	}
	return nil
}

func resolvePython(configured string) (string, error) {
	py := strings.TrimSpace(configured)
	if py != "" {
		return py, nil
	}
	// Prefer a local venv if present.
	for _, candidate := range []string{".venv/bin/python3", ".venv/bin/python", "python3"} {
		if p, err := exec.LookPath(candidate); err == nil && strings.TrimSpace(p) != "" {
			return p, nil
		}
	}
	return "", fmt.Errorf("CHATTERBOX_PYTHON not set and python3 not found on PATH")
}

func resolveScript(configured string) (string, error) {
	script := strings.TrimSpace(configured)
	if script == "" {
		script = "scripts/chatterbox_worker.py"
	}
	if !filepath.IsAbs(script) {
		if wd, err := os.Getwd(); err == nil {
			script = filepath.Join(wd, script)
		}
	}
	if _, err := os.Stat(script); err != nil {
		return "", fmt.Errorf("chatterbox worker script not found: %s", script)
	}
	return script, nil
}
