package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"sync"

	"github.com/hajimehoshi/oto"
)

const (
	sampleRate      = 48000
	channelNum      = 2
	bitDepthInBytes = 2
	samplesPerCycle = 1024
	fftSize         = 2048 // multiple of samplesPerCycle
	maxFrames       = 64   // largest block the oscillator renders at once
)
const bytesPerSample = bitDepthInBytes * channelNum
const bufferSizeInBytes = samplesPerCycle * bytesPerSample // should be >= 4096
const secPerSample = 1.0 / sampleRate
const baseFreq = 440.0
const outputGain = 0.5
const bendRange = 2.0 // semitones

const (
	platformDesktop = 0x10
	apiVersion      = 0x010100
)

// ----- Utility ----- //

func toRawMessage(v interface{}) json.RawMessage {
	bytes, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return json.RawMessage(bytes)
}

// ----- State ----- //

// state is everything the host owns around one oscillator. All entry
// points into osc go through methods of state while it is locked.
type state struct {
	sync.Mutex
	osc         *vosim
	panel       *panel
	lfo         *shapeLfo
	gate        *gate
	activeNotes []int
	lastNote    int
	bend        int // -8192 ~ 8191
	yn          [maxFrames]int32
	block       [maxFrames]float64
	pos         int64
	out         []float64 // length: fftSize
}

func newState() *state {
	return &state{
		osc:         newVosim(),
		panel:       newPanel(),
		lfo:         newShapeLfo(),
		gate:        &gate{},
		activeNotes: make([]int, 0, 128),
		lastNote:    69,
		out:         make([]float64, fftSize),
	}
}

func (s *state) params(frames int) oscParams {
	return oscParams{
		pitch:    s.pitch(),
		shapeLfo: s.lfo.step(frames),
	}
}

func (s *state) pitch() uint16 {
	note := float64(s.lastNote) + float64(s.bend)/8192*bendRange
	if note < 0 {
		note = 0
	}
	if note > noteTableSize-1 {
		note = noteTableSize - 1
	}
	n := math.Floor(note)
	fine := math.Round((note - n) * 255)
	return makePitch(uint8(n), uint8(fine))
}

// renderBlock renders len(out) <= maxFrames samples in [-1, 1].
func (s *state) renderBlock(out []float64) {
	yn := s.yn[:len(out)]
	p := s.params(len(out))
	s.osc.cycle(&p, yn)
	for i, q := range yn {
		value := float64(q31ToF32(q)) * s.gate.step() * outputGain
		s.out[s.pos%fftSize] = value
		s.pos++
		out[i] = value
	}
}

func (s *state) noteOn(note int) {
	if note < 0 || note > 127 {
		return
	}
	s.removeNote(note)
	if len(s.activeNotes) < cap(s.activeNotes) {
		s.activeNotes = s.activeNotes[:len(s.activeNotes)+1]
		for i := len(s.activeNotes) - 1; i >= 1; i-- {
			s.activeNotes[i] = s.activeNotes[i-1]
		}
		s.activeNotes[0] = note
	}
	s.lastNote = note
	p := oscParams{pitch: s.pitch()}
	s.osc.noteOn(&p)
	s.gate.open()
}

func (s *state) noteOff(note int) {
	s.removeNote(note)
	if len(s.activeNotes) > 0 {
		s.lastNote = s.activeNotes[0]
		return
	}
	p := oscParams{pitch: s.pitch()}
	s.osc.noteOff(&p)
	s.gate.close()
}

func (s *state) removeNote(note int) {
	removed := 0
	for i := 0; i < len(s.activeNotes); i++ {
		if s.activeNotes[i] == note {
			removed++
		} else {
			s.activeNotes[i-removed] = s.activeNotes[i]
		}
	}
	s.activeNotes = s.activeNotes[:len(s.activeNotes)-removed]
}

func (s *state) setParam(key string, value string) error {
	index, err := s.panel.set(key, value)
	if err != nil {
		return err
	}
	s.panel.send(s.osc, index)
	return nil
}

type stateJSON struct {
	Panel json.RawMessage `json:"panel"`
	Lfo   json.RawMessage `json:"lfo"`
}

func (s *state) applyJSON(data json.RawMessage) error {
	var j stateJSON
	err := json.Unmarshal(data, &j)
	if err != nil {
		return fmt.Errorf("failed to apply JSON to state: %w", err)
	}
	if j.Panel != nil {
		if err := s.panel.applyJSON(j.Panel); err != nil {
			return err
		}
	}
	if j.Lfo != nil {
		if err := s.lfo.applyJSON(j.Lfo); err != nil {
			return err
		}
	}
	s.panel.applyTo(s.osc)
	return nil
}

func (s *state) toJSON() json.RawMessage {
	return toRawMessage(&stateJSON{
		Panel: s.panel.toJSON(),
		Lfo:   s.lfo.toJSON(),
	})
}

// ----- Audio ----- //

// Audio plays one VOSIM oscillator through the default output device.
type Audio struct {
	ctx        context.Context
	otoContext *oto.Context
	CommandCh  chan []string
	state      *state
	presets    *presetManager
	fftResult  []float64 // length: fftSize
}

var _ io.Reader = (*Audio)(nil)

// NewAudio opens the output device. presetDir may be empty.
func NewAudio(presetDir string) (*Audio, error) {
	otoContext, err := oto.NewContext(sampleRate, channelNum, bitDepthInBytes, bufferSizeInBytes)
	if err != nil {
		return nil, err
	}
	audio := newAudio(presetDir)
	audio.otoContext = otoContext
	go processCommands(audio, audio.CommandCh)
	return audio, nil
}

func newAudio(presetDir string) *Audio {
	return &Audio{
		ctx:       context.Background(),
		CommandCh: make(chan []string, 256),
		state:     newState(),
		presets:   newPresetManager(presetDir),
		fftResult: make([]float64, fftSize),
	}
}

func processCommands(audio *Audio, commandCh <-chan []string) {
	for command := range commandCh {
		if err := audio.update(command); err != nil {
			log.Printf("failed to run command %v: %v\n", command, err)
		}
	}
	log.Println("processCommands() ended.")
}

// ApplyJSON ...
func (a *Audio) ApplyJSON(data []byte) error {
	a.state.Lock()
	defer a.state.Unlock()
	return a.state.applyJSON(data)
}

// ToJSON ...
func (a *Audio) ToJSON() []byte {
	a.state.Lock()
	defer a.state.Unlock()
	return a.state.toJSON()
}

// LoadPreset applies a preset file written by ToJSON.
func (a *Audio) LoadPreset(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return a.ApplyJSON(data)
}

func (a *Audio) Read(buf []byte) (int, error) {
	select {
	case <-a.ctx.Done():
		log.Println("Read() interrupted.")
		return 0, io.EOF
	default:
	}
	a.state.Lock()
	defer a.state.Unlock()
	frames := len(buf) / bytesPerSample
	for done := 0; done < frames; {
		n := frames - done
		if n > maxFrames {
			n = maxFrames
		}
		block := a.state.block[:n]
		a.state.renderBlock(block)
		writeBuffer(block, buf[done*bytesPerSample:], 0)
		writeBuffer(block, buf[done*bytesPerSample:], 1)
		done += n
	}
	return frames * bytesPerSample, nil
}

func writeBuffer(out []float64, buf []byte, ch int) {
	for i, value := range out {
		b := float64ToInt16(value)
		buf[bytesPerSample*i+2*ch] = byte(b)
		buf[bytesPerSample*i+2*ch+1] = byte(b >> 8)
	}
}

func float64ToInt16(value float64) int16 {
	if value > 1 {
		value = 1
	} else if value < -1 {
		value = -1
	}
	return int16(value * 32767)
}

func (a *Audio) update(command []string) error {
	if len(command) == 0 {
		return fmt.Errorf("empty command")
	}
	a.state.Lock()
	defer a.state.Unlock()

	switch command[0] {
	case "set":
		if len(command) != 3 {
			return fmt.Errorf("invalid key-value pair %v", command[1:])
		}
		return a.state.setParam(command[1], command[2])
	case "lfo":
		if len(command) != 3 {
			return fmt.Errorf("invalid key-value pair %v", command[1:])
		}
		return a.state.lfo.set(command[1], command[2])
	case "preset":
		if len(command) != 2 {
			return fmt.Errorf("preset name required")
		}
		return a.presets.apply(command[1], a.state)
	case "note_on", "note_off":
		if len(command) != 2 {
			return fmt.Errorf("note number required")
		}
		note, err := strconv.ParseInt(command[1], 10, 32)
		if err != nil {
			return err
		}
		if command[0] == "note_on" {
			a.state.noteOn(int(note))
		} else {
			a.state.noteOff(int(note))
		}
	case "bend":
		if len(command) != 2 {
			return fmt.Errorf("bend value required")
		}
		bend, err := strconv.ParseInt(command[1], 10, 32)
		if err != nil {
			return err
		}
		if bend < -8192 || bend > 8191 {
			return fmt.Errorf("bend out of range: %d", bend)
		}
		a.state.bend = int(bend)
	default:
		return fmt.Errorf("unknown command %v", command[0])
	}
	return nil
}

// Close ...
func (a *Audio) Close() error {
	log.Println("Closing Audio...")
	close(a.CommandCh)
	if a.otoContext == nil {
		return nil
	}
	return a.otoContext.Close()
}

// Start ...
func (a *Audio) Start(ctx context.Context) error {
	p := a.otoContext.NewPlayer()
	defer func() {
		if err := p.Close(); err != nil {
			log.Printf("error: %v", err)
		}
	}()
	a.ctx = ctx

	// block until cancel() called
	if _, err := io.CopyBuffer(p, a, make([]byte, bufferSizeInBytes)); err != nil {
		return err
	}
	log.Println("Start() ended.")
	return nil
}

// GetFFT returns the magnitude spectrum of the last fftSize samples played.
func (a *Audio) GetFFT() []float64 {
	a.state.Lock()
	// out:       | 4 | 1 | 2 | 3 |
	// offset:        ^
	// fftResult: | 1 | 2 | 3 | 4 |
	offset := a.state.pos % fftSize
	copy(a.fftResult, a.state.out[offset:])
	copy(a.fftResult[fftSize-offset:], a.state.out[:offset])
	a.state.Unlock()
	return analyzeSpectrum(a.fftResult)
}

// AddMidiEvent ...
func (a *Audio) AddMidiEvent(data []byte) {
	if len(data) < 3 {
		return
	}
	a.state.Lock()
	defer a.state.Unlock()
	switch data[0] >> 4 {
	case 0x8:
		a.state.noteOff(int(data[1]))
	case 0x9:
		if data[2] == 0 {
			a.state.noteOff(int(data[1]))
		} else {
			a.state.noteOn(int(data[1]))
		}
	case 0xB:
		if err := a.state.controlChange(data[1], data[2]); err != nil {
			log.Printf("failed to apply CC %v: %v\n", data[1], err)
		}
	case 0xE:
		a.state.bend = (int(data[2])<<7 | int(data[1])) - 8192
	}
}

// ----- Control Change ----- //

type ccMapping struct {
	key string
	min int
	max int
}

var ccMappings = map[byte]ccMapping{
	16: {key: "freq", min: 1, max: 32},
	17: {key: "np", min: 1, max: 16},
	18: {key: "lfo_target", min: 0, max: 1},
	74: {key: "shape", min: 0, max: paramValMax},
	71: {key: "shiftshape", min: 0, max: paramValMax},
}

func (s *state) controlChange(cc byte, value byte) error {
	m, ok := ccMappings[cc]
	if !ok {
		return nil
	}
	raw := m.min + (m.max-m.min)*int(value)/127
	return s.setParam(m.key, strconv.Itoa(raw))
}
