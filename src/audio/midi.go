package audio

import (
	"context"
	"fmt"
	"log"

	"gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/rtmididrv"
)

// ListenToMidiIn forwards raw messages from MIDI IN port number port.
// The channel is closed when ctx is done or the port cannot be opened.
func ListenToMidiIn(ctx context.Context, port int) <-chan []byte {
	ch := make(chan []byte, 65536)
	go func() {
		defer close(ch)
		drv, err := rtmididrv.New()
		if err != nil {
			log.Printf("failed to initialize MIDI driver: %v\n", err)
			return
		}
		defer func() {
			if err := drv.Close(); err != nil {
				log.Printf("failed to close MIDI driver: %v\n", err)
			}
		}()
		in, err := openMidiIn(drv, port)
		if err != nil {
			log.Printf("failed to open MIDI IN: %v\n", err)
			return
		}
		log.Println("opened " + in.String())
		defer func() {
			if err := in.Close(); err != nil {
				log.Printf("failed to close MIDI IN: %v\n", err)
			}
		}()
		err = in.SetListener(func(data []byte, deltaMicroseconds int64) {
			msg := make([]byte, len(data))
			copy(msg, data)
			select {
			case ch <- msg:
			default:
				log.Println("[WARN] MIDI IN buffer full, message dropped")
			}
		})
		if err != nil {
			log.Println("failed to set listener: " + err.Error())
			return
		}
		defer func() {
			log.Println("stop listening MIDI IN...")
			if err := in.StopListening(); err != nil {
				log.Printf("failed to stop listening: %v\n", err)
			}
		}()
		<-ctx.Done()
	}()
	return ch
}

func openMidiIn(drv midi.Driver, port int) (midi.In, error) {
	ins, err := drv.Ins()
	if err != nil {
		return nil, err
	}
	log.Printf("MIDI IN: %v\n", ins)
	if port < 0 || port >= len(ins) {
		return nil, fmt.Errorf("MIDI IN %d not found (%d available)", port, len(ins))
	}
	in := ins[port]
	if err := in.Open(); err != nil {
		return nil, err
	}
	return in, nil
}
