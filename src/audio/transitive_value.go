package audio

import "math"

// ----- Transition Kind ----- //

const (
	transitionNone = iota
	transitionLinear
	transitionExponential
)

// ----- Transitive Value ----- //

type transitiveValue struct {
	kind         int
	duration     float64 // ms
	endThreshold float64
	initialValue float64
	targetValue  float64
	value        float64
	pos          int
}

func (tv *transitiveValue) init(value float64) {
	tv.kind = transitionNone
	tv.duration = 0
	tv.endThreshold = 0
	tv.initialValue = value
	tv.targetValue = value
	tv.value = value
	tv.pos = 0
}

func (tv *transitiveValue) linear(duration float64, targetValue float64) {
	tv.start(transitionLinear, duration, targetValue, 0)
}

func (tv *transitiveValue) exponential(duration float64, targetValue float64, endThreshold float64) {
	tv.start(transitionExponential, duration, targetValue, endThreshold)
}

func (tv *transitiveValue) start(kind int, duration float64, targetValue float64, endThreshold float64) {
	if duration <= 0 {
		tv.init(targetValue)
		return
	}
	tv.kind = kind
	tv.duration = duration
	tv.endThreshold = endThreshold
	tv.pos = 0
	tv.initialValue = tv.value
	tv.targetValue = targetValue
}

// step moves one sample forward and reports whether the transition ended.
func (tv *transitiveValue) step() bool {
	switch tv.kind {
	case transitionLinear:
		t := float64(tv.pos) * secPerSample * 1000 / tv.duration
		if t >= 1 {
			tv.end()
			return true
		}
		tv.value = t*tv.targetValue + (1-t)*tv.initialValue
		tv.pos++
	case transitionExponential:
		t := float64(tv.pos) * secPerSample * 1000 / tv.duration
		tv.value = setTargetAtTime(tv.initialValue, tv.targetValue, t)
		if math.Abs(tv.value-tv.targetValue) < tv.endThreshold {
			tv.end()
			return true
		}
		tv.pos++
	}
	return false
}

func (tv *transitiveValue) end() {
	tv.kind = transitionNone
	tv.value = tv.targetValue
	tv.pos = 0
}

// 63% closer to target when pos=1.0
func setTargetAtTime(initialValue float64, targetValue float64, pos float64) float64 {
	return targetValue + (initialValue-targetValue)*math.Exp(-pos)
}

// ----- Gate ----- //

const (
	gateAttack  = 2.0  // ms
	gateRelease = 60.0 // ms, time constant
)

// gate is the host VCA in front of the oscillator. The oscillator has no
// envelope of its own, so note-off silences it here.
type gate struct {
	tv transitiveValue
}

func (g *gate) open() {
	g.tv.linear(gateAttack, 1)
}

func (g *gate) close() {
	g.tv.exponential(gateRelease, 0, 0.0001)
}

func (g *gate) step() float64 {
	g.tv.step()
	return g.tv.value
}

func (g *gate) isClosed() bool {
	return g.tv.kind == transitionNone && g.tv.value == 0
}
