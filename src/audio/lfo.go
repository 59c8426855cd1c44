package audio

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ----- LFO Wave ----- //

const (
	lfoWaveTriangle = iota
	lfoWaveSine
	lfoWaveSquare
	lfoWaveSaw
)

var lfoWaveNames = []string{"triangle", "sine", "square", "saw"}

func lfoWaveFromString(s string) (int, error) {
	for i, name := range lfoWaveNames {
		if name == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown lfo wave %q", s)
}

// ----- Shape LFO ----- //

// shapeLfo is the host-side modulation source behind the shape_lfo input.
// It advances once per block, so its resolution is the block length.
type shapeLfo struct {
	wave  int
	rate  float64 // Hz
	depth float64 // 0 ~ 1
	phase float64 // 0 ~ 1
}

type lfoJSON struct {
	Wave  string  `json:"wave"`
	Rate  float64 `json:"rate"`
	Depth float64 `json:"depth"`
}

func newShapeLfo() *shapeLfo {
	return &shapeLfo{
		wave:  lfoWaveTriangle,
		rate:  1,
		depth: 0,
	}
}

func (l *shapeLfo) applyJSON(data json.RawMessage) error {
	var j lfoJSON
	err := json.Unmarshal(data, &j)
	if err != nil {
		return fmt.Errorf("failed to apply JSON to lfo: %w", err)
	}
	wave, err := lfoWaveFromString(j.Wave)
	if err != nil {
		return err
	}
	l.wave = wave
	l.rate = j.Rate
	l.depth = math.Max(0, math.Min(1, j.Depth))
	return nil
}

func (l *shapeLfo) toJSON() json.RawMessage {
	return toRawMessage(&lfoJSON{
		Wave:  lfoWaveNames[l.wave],
		Rate:  l.rate,
		Depth: l.depth,
	})
}

func (l *shapeLfo) set(key string, value string) error {
	switch key {
	case "wave":
		wave, err := lfoWaveFromString(value)
		if err != nil {
			return err
		}
		l.wave = wave
	case "rate":
		value, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		l.rate = value
	case "depth":
		value, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		l.depth = math.Max(0, math.Min(1, value))
	default:
		return fmt.Errorf("unknown lfo param %q", key)
	}
	return nil
}

func (l *shapeLfo) value() float64 {
	p := l.phase
	switch l.wave {
	case lfoWaveSine:
		return math.Sin(2 * math.Pi * p)
	case lfoWaveSquare:
		if p < 0.5 {
			return 1
		}
		return -1
	case lfoWaveSaw:
		return p*2 - 1
	default:
		if p < 0.5 {
			return p*4 - 1
		}
		return p*(-4) + 3
	}
}

// step returns the Q31 value for the coming block and moves on by frames.
func (l *shapeLfo) step(frames int) int32 {
	value := l.value() * l.depth
	l.phase += l.rate * float64(frames) * secPerSample
	l.phase -= math.Floor(l.phase)
	return f32ToQ31(float32(value))
}

func (l *shapeLfo) reset() {
	l.phase = 0
}
