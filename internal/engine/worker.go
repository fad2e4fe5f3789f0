package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// workerEnv quiets the Python model stack during load. Verbosity only;
// no behavioral effect.
var workerEnv = []string{
	"TQDM_DISABLE=1",
	"HF_HUB_DISABLE_TELEMETRY=1",
	"TOKENIZERS_PARALLELISM=false",
	"PYTORCH_ENABLE_MPS_FALLBACK=1",
}

const warmupTimeout = 120 * time.Second

// worker is one Python subprocess speaking newline-delimited JSON:
// one request line in, one response object out, strictly in order.
type worker struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	dec    *json.Decoder
	closed bool
}

type workerRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type workerResponse struct {
	ID          string `json:"id"`
	OK          bool   `json:"ok"`
	Device      string `json:"device"`
	SampleRate  int    `json:"sample_rate"`
	AudioBase64 string `json:"audio_base64"`
	Error       string `json:"error"`
}

// workerInfo is what the warmup handshake reports about the loaded model.
type workerInfo struct {
	Device     string
	SampleRate int
}

// startWorker launches the Python worker and fires a warmup request so
// missing weights or an unusable device surface as a load error instead
// of failing the first real request.
func startWorker(ctx context.Context, pythonPath, scriptPath string) (*worker, workerInfo, error) {
	cmd := exec.Command(pythonPath, "-u", scriptPath)
	cmd.Env = append(os.Environ(), workerEnv...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, workerInfo{}, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, workerInfo{}, err
	}
	if err := cmd.Start(); err != nil {
		return nil, workerInfo{}, err
	}

	w := &worker{cmd: cmd, stdin: stdin, dec: json.NewDecoder(stdout)}

	warmupCtx, cancel := context.WithTimeout(ctx, warmupTimeout)
	defer cancel()
	resp, err := w.roundTrip(warmupCtx, "warmup")
	if err != nil {
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, workerInfo{}, fmt.Errorf("chatterbox worker failed to start: %s", msg)
	}

	info := workerInfo{Device: resp.Device, SampleRate: resp.SampleRate}
	if info.SampleRate <= 0 {
		info.SampleRate = 24000
	}
	if strings.TrimSpace(info.Device) == "" {
		info.Device = "cpu"
	}
	return w, info, nil
}

// Synthesize sends one chunk to the worker and returns the decoded
// PCM16LE payload. Single-flight guarded by mu: the JSON protocol has
// no interleaving, so requests serialize here.
func (w *worker) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := w.roundTrip(ctx, text)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.AudioBase64) == "" {
		return []byte{}, nil
	}
	pcm, err := base64.StdEncoding.DecodeString(resp.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("decode audio_base64: %w", err)
	}
	return pcm, nil
}

func (w *worker) roundTrip(ctx context.Context, text string) (workerResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return workerResponse{}, ErrWorkerClosed
	}
	if err := ctx.Err(); err != nil {
		return workerResponse{}, err
	}

	id := fmt.Sprintf("req-%d", time.Now().UnixNano())
	b, _ := json.Marshal(workerRequest{ID: id, Text: text})
	b = append(b, '\n')
	if _, err := w.stdin.Write(b); err != nil {
		return workerResponse{}, err
	}

	// Decode exactly one response. A mismatched id means the stream is
	// desynchronized and the worker cannot be trusted anymore.
	var resp workerResponse
	if err := w.dec.Decode(&resp); err != nil {
		return workerResponse{}, err
	}
	if resp.ID != id {
		return workerResponse{}, fmt.Errorf("chatterbox worker out-of-sync (got %q, expected %q)", resp.ID, id)
	}
	if !resp.OK {
		msg := strings.TrimSpace(resp.Error)
		if msg == "" {
			msg = "unknown chatterbox error"
		}
		return workerResponse{}, fmt.Errorf("%s", msg)
	}
	return resp, nil
}

// Close shuts the worker down, giving it a moment to exit on its own
// before killing it.
func (w *worker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	stdin := w.stdin
	cmd := w.cmd
	w.stdin = nil
	w.cmd = nil
	w.mu.Unlock()

	if stdin != nil {
		_ = stdin.Close()
	}
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	_ = cmd.Process.Signal(os.Interrupt)
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-time.After(1200 * time.Millisecond):
		_ = cmd.Process.Kill()
		<-done
	case <-done:
	}
	return nil
}
