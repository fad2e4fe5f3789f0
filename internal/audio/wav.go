package audio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
)

// EncodeWAVPCM16LE wraps raw PCM16LE mono audio bytes in a WAV container.
func EncodeWAVPCM16LE(pcm []byte, sampleRate int) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteWAVPCM16LETo(&buf, pcm, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWAVPCM16LEFile writes raw PCM16LE mono audio bytes as a WAV file.
// The file is the uncompressed container handed to the CLI by /speak;
// the caller owns it from then on.
func WriteWAVPCM16LEFile(path string, pcm []byte, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAVPCM16LETo(f, pcm, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteWAVPCM16LETo writes raw PCM16LE mono audio bytes to out as a WAV stream.
func WriteWAVPCM16LETo(out io.Writer, pcm []byte, sampleRate int) error {
	const (
		numChannels   = 1
		bitsPerSample = 16
		pcmFormat     = 1
	)
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	dataSize := uint32(len(pcm))
	w := bufio.NewWriter(out)

	// RIFF header, fmt chunk, then the data chunk. Write errors surface
	// on Flush, so the header fields can be emitted without per-field
	// error checks.
	w.WriteString("RIFF")
	binary.Write(w, binary.LittleEndian, uint32(36)+dataSize)
	w.WriteString("WAVE")

	w.WriteString("fmt ")
	binary.Write(w, binary.LittleEndian, uint32(16))
	binary.Write(w, binary.LittleEndian, uint16(pcmFormat))
	binary.Write(w, binary.LittleEndian, uint16(numChannels))
	binary.Write(w, binary.LittleEndian, uint32(sampleRate))
	binary.Write(w, binary.LittleEndian, uint32(sampleRate*numChannels*bitsPerSample/8))
	binary.Write(w, binary.LittleEndian, uint16(numChannels*bitsPerSample/8))
	binary.Write(w, binary.LittleEndian, uint16(bitsPerSample))

	w.WriteString("data")
	binary.Write(w, binary.LittleEndian, dataSize)
	if _, err := w.Write(pcm); err != nil {
		return err
	}
	return w.Flush()
}
