package audio

import (
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// RenderConfig describes one offline render.
type RenderConfig struct {
	Note    int
	Seconds float64
	Preset  []byte // ToJSON format, optional
}

// RenderNote plays one held note from a freshly loaded oscillator and
// returns mono samples in [-1, 1].
func RenderNote(cfg RenderConfig) ([]float32, error) {
	if cfg.Seconds <= 0 {
		return nil, fmt.Errorf("seconds must be positive: %v", cfg.Seconds)
	}
	s := newState()
	if cfg.Preset != nil {
		if err := s.applyJSON(cfg.Preset); err != nil {
			return nil, err
		}
	}
	s.noteOn(cfg.Note)

	frames := int(math.Round(cfg.Seconds * sampleRate))
	samples := make([]float32, 0, frames)
	for len(samples) < frames {
		n := frames - len(samples)
		if n > maxFrames {
			n = maxFrames
		}
		block := s.block[:n]
		s.renderBlock(block)
		for _, value := range block {
			samples = append(samples, float32(value))
		}
	}
	return samples, nil
}

// WriteWAV writes samples as 16-bit mono PCM.
func WriteWAV(w io.WriteSeeker, samples []float32) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(float64ToInt16(float64(s)))
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finish WAV: %w", err)
	}
	return nil
}

// PeakFrequency returns the strongest non-DC frequency of samples in Hz.
func PeakFrequency(samples []float32) float64 {
	return peakFrequency(samples)
}
