package audio

import "github.com/chewxy/math32"

// ----- VOSIM ----- //

// Voice simulation oscillator after W. Kaegi:
// https://kaegi.nl/werner/userfiles/downloads/vosim-system.pdf
//
// Each period starts with a run of sin^2 bumps (the sine zone), each one
// attenuated by b relative to the previous, followed by a silent delay M.

const (
	flagNone  = 0
	flagReset = 1 << 0
)

const (
	lfoTargetDelay = iota
	lfoTargetAttenuation
)

const (
	minDelay          = 0.1
	maxDelay          = 0.8
	softclipThreshold = 0.05
)

type vosim struct {
	w0        float32
	phase     float32
	m         float32 // delay M, as a fraction of the period
	b         float32 // attenuation constant
	np        uint16  // number of periods before the pulse goes silent
	freq      uint16  // proportional to 1/T, T being the bump width
	lfoTarget uint16
	lfo       float32
	lfoz      float32
	flags     uint16
}

func newVosim() *vosim {
	v := &vosim{}
	v.init(platformDesktop, apiVersion)
	return v
}

func (v *vosim) init(platform uint32, api uint32) {
	v.w0 = 0
	v.phase = 0
	v.m = 0.2
	v.b = 0.8
	v.freq = 8
	v.np = 6
	v.lfoTarget = lfoTargetDelay
	v.lfo = 0
	v.lfoz = 0
	v.flags = flagNone
}

// cycle renders len(yn) samples. Pending flags are applied here and only
// here, so control calls between blocks never touch the phase directly.
func (v *vosim) cycle(p *oscParams, yn []int32) {
	if len(yn) == 0 {
		return
	}
	flags := v.flags
	v.flags = flagNone
	reset := flags&flagReset != 0

	w0 := w0ForNote(uint8(p.pitch>>8), uint8(p.pitch&0xFF))
	v.w0 = w0
	phase := v.phase
	if reset {
		phase = 0
	}

	lfo := q31ToF32(p.shapeLfo)
	v.lfo = lfo
	lfoz := v.lfoz
	if reset {
		lfoz = lfo
	}
	lfoInc := (lfo - lfoz) / float32(len(yn))

	np := int(v.np)
	freq := float32(v.freq)

	for i := range yn {
		delay, atten := v.modulate(lfoz)
		out := pulse(phase, w0, delay, atten, np, freq)
		yn[i] = f32ToQ31(softclip(softclipThreshold, out))

		phase += w0
		phase -= math32.Floor(phase)
		lfoz += lfoInc
	}

	v.phase = phase
	v.lfoz = lfoz
}

// modulate folds the LFO into a triangle and applies it to either the
// delay or the attenuation. The other one passes through untouched.
func (v *vosim) modulate(lfo float32) (delay float32, atten float32) {
	tri := lfo
	if tri > 0.5 {
		tri = 1 - tri
	}
	tri = 2*tri - 0.5

	if v.lfoTarget == lfoTargetDelay {
		return clipMinMax(minDelay, v.m+tri, maxDelay), v.b
	}
	return v.m, clipMinMax(-1, v.b+tri, 1)
}

// pulse is the raw VOSIM output at phase before soft clipping.
func pulse(phase float32, w0 float32, delay float32, atten float32, np int, freq float32) float32 {
	zone := 1 - delay
	var width float32
	if freq > 0 {
		width = zone / freq
	}
	// a bump is never narrower than one sample
	if width < w0 {
		width = w0
		zone = w0 * freq
	}
	if phase > zone {
		return 0
	}

	period := phase / width
	n := int(period)
	shift := period - float32(n)

	out := sinf(shift / 2)
	out *= out
	for i := 0; i < n; i++ {
		if i >= np-1 {
			return 0
		}
		out *= atten
	}
	return out
}

func (v *vosim) noteOn(p *oscParams) {
	v.flags |= flagReset
}

func (v *vosim) noteOff(p *oscParams) {
}

// param keeps the hardware quirk where id1 and id2 fall through: writing
// id1 also writes np and lfoTarget, writing id2 also writes lfoTarget.
func (v *vosim) param(index uint16, value uint16) {
	valf := paramValToF32(value)

	switch index {
	case paramID1:
		v.freq = value
		fallthrough
	case paramID2:
		v.np = value
		fallthrough
	case paramID3:
		v.lfoTarget = value
	case paramID4, paramID5, paramID6:
	case paramShape:
		v.m = valf*0.7 + 0.1
	case paramShiftShape:
		v.b = 2*valf - 1
	}
}
