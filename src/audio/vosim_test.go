package audio

import (
	"math"
	"testing"
)

func renderFrames(v *vosim, p *oscParams, frames int) []int32 {
	yn := make([]int32, frames)
	v.cycle(p, yn)
	return yn
}

func TestVosimInit(t *testing.T) {
	v := &vosim{phase: 0.3, flags: flagReset, lfoTarget: lfoTargetAttenuation}
	v.init(platformDesktop, apiVersion)
	expectEqual(t, v.phase, float32(0))
	expectEqual(t, v.w0, float32(0))
	expectEqual(t, v.m, float32(0.2))
	expectEqual(t, v.b, float32(0.8))
	expectEqual(t, v.freq, uint16(8))
	expectEqual(t, v.np, uint16(6))
	expectEqual(t, v.lfoTarget, uint16(lfoTargetDelay))
	expectEqual(t, v.lfo, float32(0))
	expectEqual(t, v.lfoz, float32(0))
	expectEqual(t, v.flags, uint16(flagNone))
}

func TestCycleWritesEveryFrame(t *testing.T) {
	limit := float64(f32ToQ31(1 - softclipThreshold))
	for _, frames := range []int{1, 7, 64, 100} {
		v := newVosim()
		p := &oscParams{pitch: makePitch(60, 0), shapeLfo: f32ToQ31(0.3)}
		yn := make([]int32, frames)
		for i := range yn {
			yn[i] = math.MinInt32
		}
		v.cycle(p, yn)
		for i, q := range yn {
			if q == math.MinInt32 {
				t.Fatalf("frames=%v: sample %v not written", frames, i)
			}
			if math.Abs(float64(q)) > limit+1 {
				t.Fatalf("frames=%v: sample %v out of range: %v", frames, i, q)
			}
		}
	}
}

func TestCycleIgnoresEmptyBlock(t *testing.T) {
	v := newVosim()
	v.noteOn(nil)
	v.cycle(&oscParams{pitch: makePitch(60, 0)}, nil)
	expectEqual(t, v.flags, uint16(flagReset))
}

func TestPhaseStaysInRange(t *testing.T) {
	for note := 0; note < 256; note += 7 {
		for _, fine := range []uint8{0, 100, 255} {
			v := newVosim()
			p := &oscParams{pitch: makePitch(uint8(note), fine)}
			for block := 0; block < 8; block++ {
				renderFrames(v, p, 61)
				if v.phase < 0 || v.phase >= 1 {
					t.Fatalf("note=%v fine=%v: phase out of range: %v", note, fine, v.phase)
				}
			}
		}
	}
}

func TestBlockSplitting(t *testing.T) {
	p := &oscParams{pitch: makePitch(57, 30)}

	whole := newVosim()
	expected := renderFrames(whole, p, 64)

	split := newVosim()
	actual := append(renderFrames(split, p, 20), renderFrames(split, p, 44)...)

	expectEqual(t, split.phase, whole.phase)
	for i := range expected {
		if expected[i] != actual[i] {
			t.Fatalf("sample %v differs: %v != %v", i, actual[i], expected[i])
		}
	}
}

func TestNoteOnResetsPhase(t *testing.T) {
	v := newVosim()
	p := &oscParams{pitch: makePitch(69, 0), shapeLfo: f32ToQ31(0.4)}
	renderFrames(v, p, 37)
	if v.phase == 0 {
		t.Fatalf("phase should have moved")
	}
	v.noteOn(p)
	expectEqual(t, v.flags, uint16(flagReset))

	p.shapeLfo = f32ToQ31(-0.2)
	yn := renderFrames(v, p, 1)
	expectEqual(t, yn[0], int32(0))
	expectEqual(t, v.phase, w0ForNote(69, 0))
	expectEqual(t, v.flags, uint16(flagNone))
	// no interpolation from the previous block's LFO after a reset
	expectEqual(t, v.lfoz, v.lfo)
}

func TestNoteOffDoesNothing(t *testing.T) {
	v := newVosim()
	renderFrames(v, &oscParams{pitch: makePitch(69, 0)}, 10)
	before := *v
	v.noteOff(nil)
	expectEqual(t, *v, before)
}

func TestLfoInterpolation(t *testing.T) {
	v := newVosim()
	p := &oscParams{pitch: makePitch(69, 0)}
	renderFrames(v, p, 16)
	p.shapeLfo = f32ToQ31(0.5)
	renderFrames(v, p, 16)
	expectNearlyEqual(t, float64(v.lfoz), 0.5)
	expectNearlyEqual(t, float64(v.lfo), 0.5)
}

func TestParamShapeRange(t *testing.T) {
	v := newVosim()
	for value := 0; value <= 2000; value++ {
		v.param(paramShape, uint16(value))
		if v.m < minDelay-1e-6 || v.m > maxDelay+1e-6 {
			t.Fatalf("shape %v: delay out of range: %v", value, v.m)
		}
		v.param(paramShiftShape, uint16(value))
		if v.b < -1 || v.b > 1 {
			t.Fatalf("shiftshape %v: attenuation out of range: %v", value, v.b)
		}
	}
	v.param(paramShape, 0)
	expectNearlyEqual(t, float64(v.m), 0.1)
	v.param(paramShiftShape, 0)
	expectEqual(t, v.b, float32(-1))
	v.param(paramShiftShape, paramValMax)
	expectEqual(t, v.b, float32(1))
}

func TestParamFallThrough(t *testing.T) {
	v := newVosim()
	v.param(paramID1, 3)
	expectEqual(t, v.freq, uint16(3))
	expectEqual(t, v.np, uint16(3))
	expectEqual(t, v.lfoTarget, uint16(3))

	v.param(paramID2, 5)
	expectEqual(t, v.freq, uint16(3))
	expectEqual(t, v.np, uint16(5))
	expectEqual(t, v.lfoTarget, uint16(5))

	v.param(paramID3, lfoTargetDelay)
	expectEqual(t, v.np, uint16(5))
	expectEqual(t, v.lfoTarget, uint16(lfoTargetDelay))

	before := *v
	v.param(paramID4, 9)
	v.param(paramID5, 9)
	v.param(paramID6, 9)
	v.param(numParams, 9)
	v.param(1000, 9)
	expectEqual(t, *v, before)
}

func TestModulateTriangle(t *testing.T) {
	v := newVosim()
	v.m = 0.5
	delay, atten := v.modulate(0)
	expectNearlyEqual(t, float64(delay), 0.1)
	expectEqual(t, atten, v.b)
	delay, _ = v.modulate(0.25)
	expectNearlyEqual(t, float64(delay), 0.5)
	delay, _ = v.modulate(0.5)
	expectNearlyEqual(t, float64(delay), 0.8)
	// folded back above 0.5
	delay, _ = v.modulate(0.75)
	expectNearlyEqual(t, float64(delay), 0.5)
	delay, _ = v.modulate(-1)
	expectNearlyEqual(t, float64(delay), 0.1)
}

func TestAttenuationTargetKeepsDelay(t *testing.T) {
	v := newVosim()
	v.param(paramLfoTarget, lfoTargetAttenuation)
	for lfo := float32(-1); lfo <= 1; lfo += 0.05 {
		delay, atten := v.modulate(lfo)
		expectEqual(t, delay, v.m)
		if atten < -1 || atten > 1 {
			t.Fatalf("lfo %v: attenuation out of range: %v", lfo, atten)
		}
	}

	p := &oscParams{pitch: makePitch(48, 0)}
	renderFrames(v, p, 8)
	start := v.phase
	p.shapeLfo = f32ToQ31(0.9)
	yn := renderFrames(v, p, 64)

	w0 := w0ForNote(48, 0)
	zone := 1 - v.m
	phase := start
	for i, q := range yn {
		if phase > zone+1e-6 && q != 0 {
			t.Fatalf("sample %v: expected silence in the delay part, got %v", i, q)
		}
		phase += w0
		phase -= float32(math.Floor(float64(phase)))
	}
}

func TestDelayTargetStaysClamped(t *testing.T) {
	v := newVosim()
	for lfo := float32(-1); lfo <= 1; lfo += 0.01 {
		delay, atten := v.modulate(lfo)
		expectEqual(t, atten, v.b)
		if delay < minDelay || delay > maxDelay {
			t.Fatalf("lfo %v: delay out of range: %v", lfo, delay)
		}
	}
}

func TestPulseDecay(t *testing.T) {
	w0 := w0ForNote(69, 0)
	const np = 6
	const freq = 8
	const atten = 0.5
	// delay 0.2 gives eight bumps of width 0.1
	prev := 2.0
	for k := 0; k < freq; k++ {
		phase := (float32(k) + 0.5) * 0.1
		peak := float64(pulse(phase, w0, 0.2, atten, np, freq))
		if k < np {
			if math.Abs(peak-math.Pow(atten, float64(k))) > 0.001 {
				t.Errorf("bump %v: expected %v, but got %v", k, math.Pow(atten, float64(k)), peak)
			}
			if peak > prev {
				t.Errorf("bump %v: %v is louder than the previous %v", k, peak, prev)
			}
			prev = peak
		} else {
			expectEqual(t, peak, 0.0)
		}
	}
	expectEqual(t, pulse(0, w0, 0.2, atten, np, freq), float32(0))
	expectEqual(t, pulse(0.85, w0, 0.2, atten, np, freq), float32(0))
}

func TestPulseWidthFloor(t *testing.T) {
	// 0.9/8 would be narrower than one sample, so the bumps widen to w0 and
	// the sine zone stretches past the nominal 0.9
	w0 := float32(0.2)
	out := pulse(0.3, w0, 0.1, 1, 6, 8)
	expectNearlyEqual(t, float64(out), 1)
	out = pulse(0.95, w0, 0.1, 1, 6, 8)
	expectNearlyEqual(t, float64(out), 0.5)
}

func TestMiddleA(t *testing.T) {
	v := newVosim()
	yn := renderFrames(v, &oscParams{pitch: makePitch(69, 0)}, 64)
	expectEqual(t, yn[0], int32(0))
	for i := 0; i < 6; i++ {
		if yn[i] >= yn[i+1] {
			t.Errorf("expected rising output in the first bump at %v: %v >= %v", i, yn[i], yn[i+1])
		}
	}
	for i, q := range yn {
		x := float64(q31ToF32(q))
		if math.IsNaN(x) || math.IsInf(x, 0) || x < -1 || x > 1 {
			t.Fatalf("sample %v out of range: %v", i, x)
		}
	}
}

func TestDegenerateParams(t *testing.T) {
	for _, index := range []uint16{paramFreq, paramNP} {
		v := newVosim()
		v.param(index, 0)
		for _, note := range []uint8{0, 60, 127, 151} {
			for block := 0; block < 4; block++ {
				p := &oscParams{pitch: makePitch(note, 0), shapeLfo: f32ToQ31(float32(block) / 4)}
				for i, q := range renderFrames(v, p, 64) {
					x := float64(q31ToF32(q))
					if math.IsNaN(x) || math.IsInf(x, 0) || math.Abs(x) > 1 {
						t.Fatalf("param %v note %v: sample %v out of range: %v", index, note, i, x)
					}
				}
			}
		}
	}
	out := pulse(0, w0ForNote(60, 0), 0.2, 0.8, 6, 0)
	expectEqual(t, out, float32(0))
}

func TestCycleDoesNotAllocate(t *testing.T) {
	v := newVosim()
	p := &oscParams{pitch: makePitch(60, 0), shapeLfo: f32ToQ31(0.7)}
	yn := make([]int32, maxFrames)
	allocs := testing.AllocsPerRun(100, func() {
		v.cycle(p, yn)
	})
	expectEqual(t, allocs, 0.0)
}

func BenchmarkCycle(b *testing.B) {
	v := newVosim()
	p := &oscParams{pitch: makePitch(60, 0), shapeLfo: f32ToQ31(0.7)}
	yn := make([]int32, maxFrames)
	for i := 0; i < b.N; i++ {
		v.cycle(p, yn)
	}
}
