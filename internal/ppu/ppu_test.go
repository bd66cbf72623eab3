package ppu

import (
	"testing"

	"github.com/kjallen-dev/gbcore/internal/interrupt"
	"github.com/kjallen-dev/gbcore/internal/lcd"
)

func newTestPPU() (*PPU, *interrupt.Controller) {
	ic := interrupt.New()
	return New(ic, lcd.New(), nil), ic
}

func statMode(p *PPU) byte { return p.CPURead(0xFF41) & 0x03 }

func TestPPUModeSequenceOneLine(t *testing.T) {
	p, _ := newTestPPU()
	p.CPUWrite(0xFF40, 0x80)
	if m := statMode(p); m != 0 {
		t.Fatalf("expected mode to stay HBLANK on the after-turn-on line, got %d", m)
	}
	p.Tick(456) // skip the after-turn-on line; line 1 runs the normal sequence
	if ly := p.CPURead(0xFF44); ly != 1 {
		t.Fatalf("expected LY=1, got %d", ly)
	}
	if m := statMode(p); m != 2 {
		t.Fatalf("expected mode 2 at start of line 1, got %d", m)
	}
	p.Tick(80)
	if m := statMode(p); m != 3 {
		t.Fatalf("expected mode 3 at dot 80, got %d", m)
	}
	p.Tick(172)
	if m := statMode(p); m != 0 {
		t.Fatalf("expected mode 0 at dot 252, got %d", m)
	}
	p.Tick(456 - 252)
	if ly := p.CPURead(0xFF44); ly != 2 {
		t.Fatalf("expected LY=2, got %d", ly)
	}
	if m := statMode(p); m != 2 {
		t.Fatalf("expected mode 2 at new line, got %d", m)
	}
}

func TestPPUVBlankAndSTATOnVBlank(t *testing.T) {
	p, ic := newTestPPU()
	p.CPUWrite(0xFF41, 1<<4) // STAT IRQ on VBlank entry
	p.CPUWrite(0xFF40, 0x80)
	p.Tick(144 * 456)
	if ic.IF&(1<<interrupt.VBlank) == 0 {
		t.Fatal("expected VBlank IF set at LY=144")
	}
	if ic.IF&(1<<interrupt.Stat) == 0 {
		t.Fatal("expected STAT IF set on VBlank entry when enabled")
	}
}

func TestSTATModeAndLYCCoincidence(t *testing.T) {
	p, ic := newTestPPU()
	p.CPUWrite(0xFF41, (1<<3)|(1<<5)|(1<<6))
	p.CPUWrite(0xFF45, 2)
	p.CPUWrite(0xFF40, 0x80)

	// Dot 252 of line 0, the after-turn-on line whose STAT mode is HBLANK
	// throughout; the combined line rose as soon as the OAM/HBlank sources
	// were enabled.
	p.Tick(80 + 172)
	if ic.IF&(1<<interrupt.Stat) == 0 {
		t.Fatal("expected STAT IRQ with the HBlank/OAM sources enabled")
	}
	ic.Clear(interrupt.Stat)

	// Finish line 0, all of line 1, into line 2. Line 1's HBlank entry
	// raises STAT again; at LY=2 the combined line is already high from the
	// HBlank source, so the LYC match sets the flag without a new edge.
	p.Tick((456 - (80 + 172)) + 456 + 1)
	if ic.IF&(1<<interrupt.Stat) == 0 {
		t.Fatal("expected STAT IRQ between the end of line 0 and LY=2")
	}
	if p.CPURead(0xFF41)&(1<<2) == 0 {
		t.Fatal("expected the LYC=LY flag set at LY=2")
	}
}

func TestPixelTransferLengthScalesWithSCXMod8(t *testing.T) {
	for scx := byte(0); scx < 8; scx++ {
		p, _ := newTestPPU()
		p.CPUWrite(0xFF43, scx)
		p.CPUWrite(0xFF40, 0x80)
		p.Tick(456) // skip the after-turn-on line
		p.Tick(80)  // into mode 3 on line 1
		want := 172 + int(scx&7)
		p.Tick(want - 1)
		if m := statMode(p); m != 3 {
			t.Fatalf("scx=%d: expected still mode 3 one dot before %d, got %d", scx, want, m)
		}
		p.Tick(1)
		if m := statMode(p); m != 0 {
			t.Fatalf("scx=%d: expected mode 0 at dot 80+%d, got %d", scx, want, m)
		}
	}
}

func TestLY153TrickLine(t *testing.T) {
	p, _ := newTestPPU()
	p.CPUWrite(0xFF45, 0) // LYC=0, coincidence should fire at the illusory LY=0
	p.CPUWrite(0xFF41, 1<<6)
	p.CPUWrite(0xFF40, 0x80)

	// Run to the start of true line 153 (the after-turn-on line plus 152
	// further full lines lands exactly on LY=153, dot=0).
	p.Tick(456 * 153)
	if ly := p.CPURead(0xFF44); ly != 153 {
		t.Fatalf("expected internal LY=153, got %d", ly)
	}

	p.Tick(2)
	if ly := p.CPURead(0xFF44); ly != 0 {
		t.Fatalf("expected reported LY=0 from dot 2 on the trick line, got %d", ly)
	}
	if p.ly != 153 {
		t.Fatalf("expected true line counter to stay 153, got %d", p.ly)
	}

	p.Tick(453) // dot 454: STAT mode flips to HBLANK while still on true line 153
	if m := statMode(p); m != 0 {
		t.Fatalf("expected mode HBLANK at dot 454 of the trick line, got %d", m)
	}
	if p.ly != 153 {
		t.Fatalf("expected true line counter still 153 at dot 454, got %d", p.ly)
	}

	p.Tick(2) // wrap to the new frame
	if p.ly != 0 {
		t.Fatalf("expected true line counter to wrap to 0 for the new frame, got %d", p.ly)
	}
	if m := statMode(p); m != 2 {
		t.Fatalf("expected mode OAM at the start of the new frame, got %d", m)
	}
}

func TestOAMScanCapsAtTenSprites(t *testing.T) {
	p, _ := newTestPPU()
	for i := 0; i < 20; i++ {
		base := uint16(0xFE00 + i*4)
		p.CPUWrite(base, 20)  // Y=20 -> covers LY 4..11
		p.CPUWrite(base+1, 8) // X
		p.CPUWrite(base+2, 0) // tile
		p.CPUWrite(base+3, 0) // attrs
	}
	p.CPUWrite(0xFF40, 0x80)
	p.ly = 4
	p.scanOAM()
	if p.nHit != 10 {
		t.Fatalf("expected OAM scan to cap at 10 hits, got %d", p.nHit)
	}
}
