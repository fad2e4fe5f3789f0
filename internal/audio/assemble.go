// Package audio stitches synthesized PCM segments and wraps them in a
// WAV container. All waveforms are mono PCM16LE at the engine's sample
// rate.
package audio

import (
	"errors"
	"time"
)

const bytesPerSample = 2

// ErrNoSegments is returned when assembly is asked to join an empty
// segment list, which means upstream chunking or synthesis produced
// nothing usable.
var ErrNoSegments = errors.New("no audio segments to assemble")

// Assemble concatenates PCM16LE segments in order, inserting silence
// between each adjacent pair. No silence is added before the first or
// after the last segment.
func Assemble(segments [][]byte, sampleRate int, silence time.Duration) ([]byte, error) {
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	gap := SilenceBuffer(sampleRate, silence)

	total := len(gap) * (len(segments) - 1)
	for _, seg := range segments {
		total += len(seg)
	}

	out := make([]byte, 0, total)
	for i, seg := range segments {
		out = append(out, seg...)
		if i < len(segments)-1 {
			out = append(out, gap...)
		}
	}
	return out, nil
}

// SilenceBuffer returns d worth of zero samples as PCM16LE bytes.
func SilenceBuffer(sampleRate int, d time.Duration) []byte {
	if sampleRate <= 0 || d <= 0 {
		return nil
	}
	samples := int(d.Seconds() * float64(sampleRate))
	return make([]byte, samples*bytesPerSample)
}
