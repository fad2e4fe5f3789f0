package audio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestEncodeWAVPCM16LEHeader(t *testing.T) {
	pcm := make([]byte, 2048)
	wav, err := EncodeWAVPCM16LE(pcm, 24000)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16LE() error = %v", err)
	}

	if len(wav) != 44+len(pcm) {
		t.Fatalf("wav size = %d, want %d", len(wav), 44+len(pcm))
	}
	if !bytes.Equal(wav[0:4], []byte("RIFF")) || !bytes.Equal(wav[8:12], []byte("WAVE")) {
		t.Fatalf("bad container magic: %q %q", wav[0:4], wav[8:12])
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 24000 {
		t.Fatalf("sample rate = %d, want 24000", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 1 {
		t.Fatalf("channels = %d, want mono", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Fatalf("data size = %d, want %d", got, len(pcm))
	}
}

func TestWriteWAVPCM16LEFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	pcm := []byte{0, 1, 2, 3}
	if err := WriteWAVPCM16LEFile(path, pcm, 16000); err != nil {
		t.Fatalf("WriteWAVPCM16LEFile() error = %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want, _ := EncodeWAVPCM16LE(pcm, 16000)
	if !bytes.Equal(b, want) {
		t.Fatalf("file contents differ from encoded stream")
	}
}
