package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jinjor/vosim/src/audio"
	"golang.org/x/sync/errgroup"
)

var (
	sockFileName = flag.String("sock", "/tmp/vosim.sock", "unix socket for commands and reports")
	presetFile   = flag.String("preset", "", "preset JSON to load on start")
	presetDir    = flag.String("presets", "", "directory searched by the preset command")
	midiPort     = flag.Int("midi", -1, "MIDI IN port number, -1 to disable")
	reportRate   = flag.Int("report-rate", 60, "spectrum reports per second, 0 to disable")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Lshortfile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := audio.NewAudio(*presetDir)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	defer a.Close()

	if *presetFile != "" {
		if err := a.LoadPreset(*presetFile); err != nil {
			log.Fatalf("failed to load preset: %v\n", err)
		}
		log.Printf("loaded %s\n", *presetFile)
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(signalCh)
		cancel()
	}()
	go func() {
		sig := <-signalCh
		log.Printf("Caught signal %s: shutting down...\n", sig)
		cancel()
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Start(ctx)
	})
	if *midiPort >= 0 {
		g.Go(func() error {
			for data := range audio.ListenToMidiIn(ctx, *midiPort) {
				a.AddMidiEvent(data)
			}
			log.Println("MIDI IN ended.")
			return nil
		})
	}
	g.Go(func() error {
		return withIPCConnection(ctx, *sockFileName, func(conn net.Conn) error {
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return receiveCommands(ctx, conn, a.CommandCh)
			})
			if *reportRate > 0 {
				g.Go(func() error {
					return sendReports(ctx, conn, a, *reportRate)
				})
			}
			return g.Wait()
		})
	})
	if err := g.Wait(); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("main() ended.")
}

func withIPCConnection(ctx context.Context, path string, f func(net.Conn) error) error {
	os.Remove(path)
	listener, err := new(net.ListenConfig).Listen(ctx, "unix", path)
	if err != nil {
		return err
	}
	defer func() {
		log.Println("Closing IPC...")
		os.Remove(path)
	}()
	// Accept and ReadLine do not watch ctx
	stop := make(chan struct{})
	defer close(stop)
	closeOnDone := func(c io.Closer) {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		c.Close()
	}
	go closeOnDone(listener)
	log.Printf("start listening on %s...\n", path)
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	go closeOnDone(conn)
	err = f(conn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func receiveCommands(ctx context.Context, conn net.Conn, commandCh chan<- []string) error {
	reader := bufio.NewReader(conn)
	var line []byte
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("Connection interrupted")
			break loop
		default:
		}
		next, isPrefix, err := reader.ReadLine()
		if err == io.EOF {
			break loop
		}
		if err != nil {
			return err
		}
		line = append(line, next...)
		if isPrefix {
			continue
		}
		command, err := parseCommand(string(line))
		line = line[:0]
		if err != nil {
			log.Printf("failed to parse command: %v\n", err)
			continue
		}
		if len(command) == 0 {
			continue
		}
		log.Printf("received: %v\n", command)
		commandCh <- command
	}
	log.Println("receiveCommands() ended.")
	return nil
}

func parseCommand(line string) ([]string, error) {
	fields := strings.Fields(line)
	for i, item := range fields {
		escaped, err := url.QueryUnescape(item)
		if err != nil {
			return nil, fmt.Errorf("bad escape in %q: %w", item, err)
		}
		fields[i] = escaped
	}
	return fields, nil
}

func sendReports(ctx context.Context, conn net.Conn, a *audio.Audio, rate int) error {
	t := time.NewTicker(time.Second / time.Duration(rate))
	defer t.Stop()
	var sb strings.Builder
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("sendReports() interrupted")
			break loop
		case <-t.C:
			sb.Reset()
			sb.WriteString("fft")
			for _, value := range a.GetFFT() {
				sb.WriteByte(' ')
				sb.WriteString(strconv.FormatFloat(value, 'f', 6, 64))
			}
			sb.WriteByte('\n')
			if _, err := conn.Write([]byte(sb.String())); err != nil {
				log.Printf("stop reporting: %v\n", err)
				break loop
			}
		}
	}
	log.Println("sendReports() ended.")
	return nil
}
