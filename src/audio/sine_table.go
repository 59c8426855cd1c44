package audio

import "github.com/chewxy/math32"

const sineTableSize = 1024

var sineTable = newWavetable(sineTableSize, func(x float32) float32 {
	return math32.Sin(2 * math32.Pi * x)
})

// wavetable holds one cycle plus a guard point so that lookups never wrap.
type wavetable struct {
	values []float32
}

func newWavetable(samples int, phaseToValue func(x float32) float32) *wavetable {
	wt := &wavetable{
		values: make([]float32, samples+1),
	}
	for i := range wt.values {
		wt.values[i] = phaseToValue(float32(i) / float32(samples))
	}
	return wt
}

// at interpolates linearly; x is a phase in cycles and may be outside [0,1).
func (wt *wavetable) at(x float32) float32 {
	x -= math32.Floor(x)
	pos := x * float32(len(wt.values)-1)
	index := int(pos)
	if index >= len(wt.values)-1 {
		index = len(wt.values) - 2
	}
	frac := pos - float32(index)
	return wt.values[index] + (wt.values[index+1]-wt.values[index])*frac
}
