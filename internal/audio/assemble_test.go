package audio

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestAssembleLength(t *testing.T) {
	const sampleRate = 16000
	segA := make([]byte, 1000*bytesPerSample)
	segB := make([]byte, 500*bytesPerSample)

	out, err := Assemble([][]byte{segA, segB}, sampleRate, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	// 0.2s of silence at 16 kHz is exactly 3200 samples, inserted once.
	wantSamples := 1000 + 3200 + 500
	if got := len(out) / bytesPerSample; got != wantSamples {
		t.Fatalf("assembled length = %d samples, want %d", got, wantSamples)
	}
}

func TestAssembleSingleSegmentNoSilence(t *testing.T) {
	seg := []byte{1, 2, 3, 4}
	out, err := Assemble([][]byte{seg}, 16000, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if !bytes.Equal(out, seg) {
		t.Fatalf("single segment should pass through unchanged, got %d bytes", len(out))
	}
}

func TestAssembleOrderAndGapPlacement(t *testing.T) {
	segA := []byte{1, 1}
	segB := []byte{2, 2}
	segC := []byte{3, 3}

	out, err := Assemble([][]byte{segA, segB, segC}, 10, time.Second)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	gap := SilenceBuffer(10, time.Second)
	want := bytes.Join([][]byte{segA, segB, segC}, gap)
	if !bytes.Equal(out, want) {
		t.Fatalf("assembled = %v, want %v", out, want)
	}
	if !bytes.HasPrefix(out, segA) || !bytes.HasSuffix(out, segC) {
		t.Fatalf("silence must only sit between segments: %v", out)
	}
}

func TestAssembleEmpty(t *testing.T) {
	_, err := Assemble(nil, 16000, 200*time.Millisecond)
	if !errors.Is(err, ErrNoSegments) {
		t.Fatalf("Assemble(nil) error = %v, want ErrNoSegments", err)
	}
}

func TestSilenceBuffer(t *testing.T) {
	if got := SilenceBuffer(24000, 200*time.Millisecond); len(got) != 4800*bytesPerSample {
		t.Fatalf("SilenceBuffer(24000, 200ms) = %d bytes, want %d", len(got), 4800*bytesPerSample)
	}
	for i, b := range SilenceBuffer(8000, 10*time.Millisecond) {
		if b != 0 {
			t.Fatalf("silence byte %d = %d, want 0", i, b)
		}
	}
	if got := SilenceBuffer(16000, 0); got != nil {
		t.Fatalf("zero-duration silence should be nil, got %d bytes", len(got))
	}
}
