package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jinjor/vosim/src/audio"
	"golang.org/x/sync/errgroup"
)

func main() {
	notes := flag.String("notes", "45,57,69", "comma separated MIDI notes, one file each")
	seconds := flag.Float64("seconds", 2, "length of each file")
	presetFile := flag.String("preset", "", "preset JSON")
	flag.Parse()
	dir := flag.Arg(0)
	if dir == "" {
		log.Fatalln("usage: render [flags] <output dir>")
	}
	log.SetFlags(log.Lshortfile)

	var preset []byte
	if *presetFile != "" {
		data, err := os.ReadFile(*presetFile)
		if err != nil {
			log.Fatalf("error: %v\n", err)
		}
		preset = data
	}
	noteList, err := parseNotes(*notes)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}

	g, _ := errgroup.WithContext(context.Background())
	for _, note := range noteList {
		note := note
		g.Go(func() error {
			samples, err := audio.RenderNote(audio.RenderConfig{
				Note:    note,
				Seconds: *seconds,
				Preset:  preset,
			})
			if err != nil {
				return fmt.Errorf("note %d: %w", note, err)
			}
			path := filepath.Join(dir, fmt.Sprintf("vosim_%03d.wav", note))
			if err := writeFile(path, samples); err != nil {
				return err
			}
			log.Printf("saved %s (peak %.1f Hz)\n", path, audio.PeakFrequency(samples))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("Successfully rendered.")
}

func writeFile(path string, samples []float32) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := audio.WriteWAV(file, samples); err != nil {
		file.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return file.Close()
}

func parseNotes(s string) ([]int, error) {
	var notes []int
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		note, err := strconv.Atoi(item)
		if err != nil {
			return nil, err
		}
		if note < 0 || note > 127 {
			return nil, fmt.Errorf("note out of range: %d", note)
		}
		notes = append(notes, note)
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("no notes given")
	}
	return notes, nil
}
