package audio

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ----- Param Index ----- //

const (
	paramID1 = iota
	paramID2
	paramID3
	paramID4
	paramID5
	paramID6
	paramShape
	paramShiftShape
	numParams
)

const (
	paramFreq      = paramID1
	paramNP        = paramID2
	paramLfoTarget = paramID3
)

// ----- OSC Params ----- //

// oscParams is the per-block snapshot the host hands to the oscillator.
type oscParams struct {
	shapeLfo int32  // Q31
	pitch    uint16 // note in the high byte, fine-tune in the low byte
}

// ----- Panel ----- //

// panel keeps the raw values as the user set them, one per index.
type panel struct {
	values [numParams]uint16
}

func newPanel() *panel {
	p := &panel{}
	p.values[paramFreq] = 8
	p.values[paramNP] = 6
	p.values[paramLfoTarget] = lfoTargetDelay
	p.values[paramShape] = 146      // M = 0.2
	p.values[paramShiftShape] = 921 // b = 0.8
	return p
}

type panelJSON struct {
	Freq       uint16 `json:"freq"`
	NP         uint16 `json:"np"`
	LfoTarget  string `json:"lfoTarget"`
	Shape      uint16 `json:"shape"`
	ShiftShape uint16 `json:"shiftShape"`
}

func (p *panel) applyJSON(data json.RawMessage) error {
	var j panelJSON
	err := json.Unmarshal(data, &j)
	if err != nil {
		return fmt.Errorf("failed to apply JSON to panel: %w", err)
	}
	target, err := parseLfoTarget(j.LfoTarget)
	if err != nil {
		return err
	}
	p.values[paramFreq] = j.Freq
	p.values[paramNP] = j.NP
	p.values[paramLfoTarget] = target
	p.values[paramShape] = j.Shape
	p.values[paramShiftShape] = j.ShiftShape
	return nil
}

func (p *panel) toJSON() json.RawMessage {
	return toRawMessage(&panelJSON{
		Freq:       p.values[paramFreq],
		NP:         p.values[paramNP],
		LfoTarget:  lfoTargetToString(p.values[paramLfoTarget]),
		Shape:      p.values[paramShape],
		ShiftShape: p.values[paramShiftShape],
	})
}

// set parses a key-value pair and returns the index it was stored at.
func (p *panel) set(key string, value string) (uint16, error) {
	var index uint16
	switch key {
	case "freq":
		index = paramFreq
	case "np":
		index = paramNP
	case "lfo_target":
		target, err := parseLfoTarget(value)
		if err != nil {
			return 0, err
		}
		p.values[paramLfoTarget] = target
		return paramLfoTarget, nil
	case "shape":
		index = paramShape
	case "shiftshape":
		index = paramShiftShape
	default:
		return 0, fmt.Errorf("unknown param %q", key)
	}
	raw, err := strconv.ParseUint(value, 10, 16)
	if err != nil {
		return 0, err
	}
	p.values[index] = uint16(raw)
	return index, nil
}

// send writes one value to the oscillator and repairs what the id1/id2
// fall-through clobbered with the values the user actually chose.
func (p *panel) send(v *vosim, index uint16) {
	v.param(index, p.values[index])
	if index < paramLfoTarget {
		for i := index + 1; i <= paramLfoTarget; i++ {
			v.param(i, p.values[i])
		}
	}
}

// applyTo replays every value in index order, the way the hardware loads a
// program.
func (p *panel) applyTo(v *vosim) {
	for i := uint16(0); i < numParams; i++ {
		v.param(i, p.values[i])
	}
}

func parseLfoTarget(value string) (uint16, error) {
	switch value {
	case "", "delay":
		return lfoTargetDelay, nil
	case "attenuation":
		return lfoTargetAttenuation, nil
	}
	raw, err := strconv.ParseUint(value, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid lfo target %q", value)
	}
	return uint16(raw), nil
}

func lfoTargetToString(target uint16) string {
	if target == lfoTargetDelay {
		return "delay"
	}
	return "attenuation"
}
