package audio

import "github.com/chewxy/math32"

// ----- Host Primitives ----- //

// Float stand-ins for what the hardware runtime gives a user oscillator.

const (
	noteTableSize = 152
	noteModScale  = 1.0 / 255
	noteMaxHz     = 23679.643054
	paramValMax   = 1023
	q31Max        = 0x7FFFFFFF
)

var noteHzTable = makeNoteHzTable()

func makeNoteHzTable() [noteTableSize]float32 {
	var table [noteTableSize]float32
	for note := range table {
		table[note] = baseFreq * math32.Pow(2, float32(note-69)/12)
	}
	return table
}

func noteToHz(note int) float32 {
	if note < 0 {
		note = 0
	}
	if note >= noteTableSize {
		note = noteTableSize - 1
	}
	return noteHzTable[note]
}

// w0ForNote returns the phase increment per sample for a note and a
// fine-tune byte (mod/255 of the way to the next semitone).
func w0ForNote(note uint8, mod uint8) float32 {
	f0 := noteToHz(int(note))
	f1 := noteToHz(int(note) + 1)
	f := f0 + (f1-f0)*float32(mod)*noteModScale
	if f > noteMaxHz {
		f = noteMaxHz
	}
	return f / sampleRate
}

func q31ToF32(q int32) float32 {
	return float32(float64(q) / (q31Max + 1))
}

func f32ToQ31(x float32) int32 {
	return int32(float64(x) * q31Max)
}

func paramValToF32(value uint16) float32 {
	if value > paramValMax {
		value = paramValMax
	}
	return float32(value) / paramValMax
}

func clipMinMax(lo float32, x float32, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// softclip is the identity near zero and bends toward ±(1-c) at full scale.
func softclip(c float32, x float32) float32 {
	x = clipMinMax(-1, x, 1)
	return x - c*x*x*x
}

// sinf returns sin(2*pi*x).
func sinf(x float32) float32 {
	return sineTable.at(x)
}

func makePitch(note uint8, fine uint8) uint16 {
	return uint16(note)<<8 | uint16(fine)
}
