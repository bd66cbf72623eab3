// Command gbcore runs a ROM headlessly for a fixed number of frames,
// optionally exporting the final framebuffer as a PNG and asserting its
// CRC32, in the spirit of the pack's blargg-test-runner CLIs.
package main

import (
	"flag"
	"fmt"
	"hash/crc32"
	"log"
	"os"
	"strings"
	"time"

	"github.com/kjallen-dev/gbcore/internal/cart"
	"github.com/kjallen-dev/gbcore/internal/console"
	"github.com/kjallen-dev/gbcore/internal/trace"
)

type cliFlags struct {
	ROMPath string
	BootROM string
	Trace   bool
	SaveRAM bool

	Frames int
	PNGOut string
	Expect string
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.ROMPath, "rom", "", "path to ROM (.gb)")
	flag.StringVar(&f.BootROM, "bootrom", "", "optional DMG boot ROM")
	flag.BoolVar(&f.Trace, "trace", false, "log invalid opcodes and unknown interrupt timings")
	flag.BoolVar(&f.SaveRAM, "save", true, "persist battery RAM to ROM.sav on exit, load on start")
	flag.IntVar(&f.Frames, "frames", 300, "frames to run")
	flag.StringVar(&f.PNGOut, "outpng", "", "write the final framebuffer to PNG at path")
	flag.StringVar(&f.Expect, "expect", "", "assert framebuffer CRC32 (hex)")
	flag.Parse()
	return f
}

func mustRead(path string) []byte {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	return b
}

func main() {
	f := parseFlags()
	rom := mustRead(f.ROMPath)
	boot := mustRead(f.BootROM)

	if len(rom) >= 0x150 {
		if h, err := cart.ParseHeader(rom); err == nil {
			log.Printf("ROM: %q type=%s banks=%d ram=%dB", h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes)
		}
	}

	var sink trace.Sink
	if f.Trace {
		sink = trace.LogSink{Printf: log.Printf}
	}
	c := console.New(rom, boot, sink)

	savPath := strings.TrimSuffix(f.ROMPath, ".gb") + ".sav"
	if f.SaveRAM && f.ROMPath != "" {
		if data, err := os.ReadFile(savPath); err == nil {
			if c.LoadBattery(data) {
				log.Printf("loaded save RAM: %s (%d bytes)", savPath, len(data))
			}
		}
	}

	frames := f.Frames
	if frames <= 0 {
		frames = 1
	}
	start := time.Now()
	for i := 0; i < frames; i++ {
		c.StepFrame()
		if err := c.Err(); err != nil {
			log.Fatalf("cpu halted with error after frame %d: %v", i, err)
		}
	}
	dur := time.Since(start)

	fb := c.Framebuffer()
	sum := crc32.ChecksumIEEE(fb)
	fps := float64(frames) / dur.Seconds()
	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x", frames, dur.Truncate(time.Millisecond), fps, sum)

	if f.PNGOut != "" {
		out, err := os.Create(f.PNGOut)
		if err != nil {
			log.Fatalf("create %s: %v", f.PNGOut, err)
		}
		defer out.Close()
		if err := c.Screen().WritePNG(out); err != nil {
			log.Fatalf("write PNG: %v", err)
		}
		log.Printf("wrote %s", f.PNGOut)
	}

	if f.Expect != "" {
		want := strings.TrimPrefix(strings.ToLower(f.Expect), "0x")
		got := fmt.Sprintf("%08x", sum)
		if got != want {
			log.Fatalf("checksum mismatch: got %s, want %s", got, want)
		}
	}

	if f.SaveRAM && f.ROMPath != "" {
		if data, ok := c.SaveBattery(); ok && data != nil {
			if err := os.WriteFile(savPath, data, 0644); err == nil {
				log.Printf("wrote %s", savPath)
			}
		}
	}
}
