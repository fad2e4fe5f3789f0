//go:build unix

package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// stubWorker is a shell stand-in for the Python worker: it answers every
// request line with a canned response echoing the request id.
const stubWorker = `
while read line; do
  id=$(printf '%s' "$line" | sed 's/.*"id":"\([^"]*\)".*/\1/')
  printf '{"id":"%s","ok":true,"device":"cpu","sample_rate":16000,"audio_base64":"AAAAAAAA"}\n' "$id"
done
`

const stubFailingWorker = `
while read line; do
  id=$(printf '%s' "$line" | sed 's/.*"id":"\([^"]*\)".*/\1/')
  printf '{"id":"%s","ok":false,"error":"weights missing"}\n' "$id"
done
`

func writeStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.sh")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestWorkerRoundTrip(t *testing.T) {
	w, info, err := startWorker(context.Background(), "/bin/sh", writeStub(t, stubWorker))
	if err != nil {
		t.Fatalf("startWorker() error = %v", err)
	}
	defer w.Close()

	if info.Device != "cpu" || info.SampleRate != 16000 {
		t.Fatalf("warmup info = %+v, want cpu/16000", info)
	}

	pcm, err := w.Synthesize(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	// "AAAAAAAA" is 6 zero bytes of PCM.
	if len(pcm) != 6 {
		t.Fatalf("decoded payload = %d bytes, want 6", len(pcm))
	}
}

func TestWorkerReportedError(t *testing.T) {
	_, _, err := startWorker(context.Background(), "/bin/sh", writeStub(t, stubFailingWorker))
	if err == nil {
		t.Fatalf("startWorker() should surface the worker's load error")
	}
}

func TestWorkerSynthesizeAfterClose(t *testing.T) {
	w, _, err := startWorker(context.Background(), "/bin/sh", writeStub(t, stubWorker))
	if err != nil {
		t.Fatalf("startWorker() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := w.Synthesize(context.Background(), "late"); err == nil {
		t.Fatalf("Synthesize after Close should fail")
	}
}
