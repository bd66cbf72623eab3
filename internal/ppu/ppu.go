// Package ppu implements the picture processing unit: the VRAM/OAM stores,
// the LCDC/STAT/scroll/palette register file, and the per-dot mode-2/3/0/1
// scanline state machine. Tick advances one dot per call (so the
// console's master clock can interleave the PPU with the CPU and DMA
// exactly as hardware does between dots); within mode 3, an actual
// per-dot fetcher sequencer (dotstate.go, fetcher.go) pushes
// background/window pixels through a FIFO one dot at a time, so SCX%8
// discard, window mid-line activation, and the LY=153 trick line all fall
// out of the dot count rather than being special-cased after the fact.
// Sprites are not fetched per dot: when mode 3 ends they are composed over
// the line's background color indices, and the finished line is written to
// the screen at that point.
package ppu

import (
	"github.com/kjallen-dev/gbcore/internal/bus"
	"github.com/kjallen-dev/gbcore/internal/interrupt"
	"github.com/kjallen-dev/gbcore/internal/lcd"
	"github.com/kjallen-dev/gbcore/internal/trace"
)

const (
	modeHBlank byte = 0
	modeVBlank byte = 1
	modeOAM    byte = 2
	modeXfer   byte = 3
)

const (
	dotsOAM    = 80
	dotsLine   = 456
	linesFrame = 154
)

// phase is the PPU's internal control-flow state, which is not always the
// same thing STAT reports: during the one scanline right after the LCD is
// re-enabled, phase still walks OAM-scan/transfer/hblank in the normal
// dot-accurate order, but the externally visible mode stays HBLANK the
// whole time (see OAM_SCAN_AFTER_TURN_ON below).
type phase int

const (
	phaseOAM phase = iota
	phaseXfer
	phaseHBlank
	phaseVBlank
)

// xferState names mode 3's sub-states: a fixed 3-dot dummy fetch, the
// SCX%8 discard that follows it, an initial 8-pixel silent pop before
// anything reaches the screen, and finally real pixel output.
type xferState int

const (
	xferDummy xferState = iota
	xferDiscard
	xferDiscardWX0SCX7
	xferOutput0
	xferOutput8
)

type vramStore struct{ data [0x2000]byte }

func (v *vramStore) Read(addr uint16) byte     { return v.data[addr-0x8000] }
func (v *vramStore) Write(addr uint16, b byte) { v.data[addr-0x8000] = b }

type oamStore struct{ data [0xA0]byte }

func (o *oamStore) Read(addr uint16) byte     { return o.data[addr-0xFE00] }
func (o *oamStore) Write(addr uint16, b byte) { o.data[addr-0xFE00] = b }

// LineRegs is a snapshot of the registers that affect rendering, captured
// when mode 3 samples them (every register at the SCX discard point, and
// WindowDrawn when the line finishes), so a host renderer (or a test) can inspect
// exactly what a given scanline was drawn with even after SCX/SCY/WX/WY
// have since changed mid-frame.
type LineRegs struct {
	Scx, Scy, Bgp, Obp0, Obp1, Wy, Wx byte
	WinLine                           int
	WindowDrawn                       bool
}

// PPU owns VRAM, OAM, the LCDC-family registers, and the scanline/mode
// state machine, and renders finished pixels into an lcd.Lcd.
type PPU struct {
	vram vramStore
	oam  oamStore

	vramBus *bus.Bus
	oamBus  *bus.Bus

	interrupts *interrupt.Controller
	screen     *lcd.Lcd
	sink       trace.Sink

	lcdc, stat        byte
	scy, scx, ly, lyc byte
	bgp, obp0, obp1   byte
	wy, wx            byte

	dot   int
	mode  byte
	phase phase

	afterTurnOn bool // this is the one scanline right after LCD enable

	statLine bool // combined STAT IRQ condition, edge-triggered

	windowLine       int // internal window row counter, only advances on lines it draws
	windowActiveLine bool

	xferState     xferState
	dummyDotsLeft int
	discardTarget int
	discarded     int
	lx            int // 0..167; screen x = lx-8
	lf            lineFetcher
	bgci          [160]byte
	pendingRegs   LineRegs

	hits [10]Sprite
	nHit int

	lineRegs [144]LineRegs
}

func New(ic *interrupt.Controller, screen *lcd.Lcd, sink trace.Sink) *PPU {
	if sink == nil {
		sink = trace.NopSink{}
	}
	p := &PPU{interrupts: ic, screen: screen, sink: sink}
	p.vramBus = bus.New(&p.vram)
	p.oamBus = bus.New(&p.oam)
	p.mode = modeOAM
	return p
}

// VramBus/OamBus/OamStore let the console wire the DMA controller and the
// address decoder against the same backing storage this PPU renders from.
func (p *PPU) VramBus() *bus.Bus   { return p.vramBus }
func (p *PPU) OamBus() *bus.Bus    { return p.oamBus }
func (p *PPU) OamStore() *oamStore { return &p.oam }

func (p *PPU) LineRegs(ly int) LineRegs {
	if ly < 0 || ly >= 144 {
		return LineRegs{}
	}
	return p.lineRegs[ly]
}

func (p *PPU) lcdEnabled() bool { return p.lcdc&0x80 != 0 }

// reportedLY is what FF44 and LYC comparison see. It differs from the true
// line counter only during the LY=153 trick line, where real hardware
// reports LY=0 from the line's third dot onward despite still being on
// line 153 internally.
func (p *PPU) reportedLY() byte {
	if p.ly == 153 && p.dot >= 2 {
		return 0
	}
	return p.ly
}

// CPURead/CPUWrite dispatch VRAM, OAM, and the FF40-FF4B register block.
// VRAM/OAM access is blocked out (reads 0xFF, writes drop) whenever this
// PPU or the DMA controller currently holds the corresponding bus.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if p.vramBus.IsAcquiredByOther(bus.CPU) {
			return 0xFF
		}
		return p.vram.Read(addr)
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if p.oamBus.IsAcquiredByOther(bus.CPU) {
			return 0xFF
		}
		return p.oam.Read(addr)
	}
	return p.readReg(addr)
}

func (p *PPU) CPUWrite(addr uint16, v byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if p.vramBus.IsAcquiredByOther(bus.CPU) {
			return
		}
		p.vram.Write(addr, v)
		return
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if p.oamBus.IsAcquiredByOther(bus.CPU) {
			return
		}
		p.oam.Write(addr, v)
		return
	}
	p.writeReg(addr, v)
}

func (p *PPU) readReg(addr uint16) byte {
	switch addr {
	case 0xFF40:
		return p.lcdc
	case 0xFF41:
		return 0x80 | (p.stat & 0x7F)
	case 0xFF42:
		return p.scy
	case 0xFF43:
		return p.scx
	case 0xFF44:
		return p.reportedLY()
	case 0xFF45:
		return p.lyc
	case 0xFF47:
		return p.bgp
	case 0xFF48:
		return p.obp0
	case 0xFF49:
		return p.obp1
	case 0xFF4A:
		return p.wy
	case 0xFF4B:
		return p.wx
	}
	return 0xFF
}

func (p *PPU) writeReg(addr uint16, v byte) {
	switch addr {
	case 0xFF40:
		prev := p.lcdc
		p.lcdc = v
		if prev&0x80 != 0 && v&0x80 == 0 {
			p.disableLCD()
		} else if prev&0x80 == 0 && v&0x80 != 0 {
			p.enableLCD()
		}
	case 0xFF41:
		p.stat = p.stat&0x07 | v&0x78
		p.updateStatLine()
	case 0xFF42:
		p.scy = v
	case 0xFF43:
		p.scx = v
	case 0xFF45:
		p.lyc = v
		p.updateCoincidence()
	case 0xFF47:
		p.bgp = v
	case 0xFF48:
		p.obp0 = v
	case 0xFF49:
		p.obp1 = v
	case 0xFF4A:
		p.wy = v
	case 0xFF4B:
		p.wx = v
	}
}

func (p *PPU) disableLCD() {
	p.ly, p.dot = 0, 0
	p.vramBus.Release(bus.PPU)
	p.oamBus.Release(bus.PPU)
	p.phase = phaseOAM
	p.setMode(modeHBlank)
	p.updateCoincidence()
}

func (p *PPU) enableLCD() {
	p.ly, p.dot = 0, 0
	p.windowLine = 0
	p.afterTurnOn = true
	p.enterOAMScan()
}

// Tick advances the PPU state machine by the given number of dots (1 dot
// per T-cycle at normal speed). It is a no-op while the LCD is off.
func (p *PPU) Tick(dots int) {
	for i := 0; i < dots; i++ {
		p.tickOne()
	}
}

func (p *PPU) tickOne() {
	if !p.lcdEnabled() {
		return
	}

	switch p.phase {
	case phaseOAM:
		p.tickOAMScanDot(p.dot)
	case phaseXfer:
		p.tickPixelTransferDot()
	case phaseHBlank:
		p.tickHBlankDot()
	case phaseVBlank:
		p.tickVBlankDot()
	}

	p.dot++
	if p.dot >= dotsLine {
		p.dot = 0
		p.advanceLine()
	}
}

// advanceLine runs at the dot-456 line wrap: it is the one place LY moves.
// Line 153 does not increment to 154; it wraps straight back to 0 and
// starts the next frame's OAM scan, the tail end of the LY=153 trick.
func (p *PPU) advanceLine() {
	if p.ly == 153 {
		p.ly = 0
		p.windowLine = 0
		p.enterOAMScan()
		p.updateCoincidence()
		return
	}
	p.ly++
	p.updateCoincidence()
	if p.ly == 144 {
		p.phase = phaseVBlank
		p.setMode(modeVBlank)
		p.interrupts.Request(interrupt.VBlank)
	} else if p.ly < 144 {
		p.enterOAMScan()
	}
}

func (p *PPU) setMode(mode byte) {
	p.mode = mode
	p.stat = p.stat&^0x03 | mode&0x03
	p.updateStatLine()
}

// updateCoincidence refreshes STAT bit2 (LYC==LY) and re-evaluates the
// combined STAT IRQ line. Dots 2-6 of the LY=153 trick line update the
// bit but suppress the IRQ edge: on real hardware the coincidence this
// briefly reports at LY=0 never actually raises an interrupt.
func (p *PPU) updateCoincidence() {
	if p.reportedLY() == p.lyc {
		p.stat |= 1 << 2
	} else {
		p.stat &^= 1 << 2
	}
	if p.ly == 153 && p.dot >= 2 && p.dot <= 6 {
		p.statLine = p.lineCondition()
		return
	}
	p.updateStatLine()
}

// lineCondition computes the OR of every enabled STAT IRQ source without
// touching statLine, so callers that need to suppress a particular edge
// (the LY=153 trick) can still keep statLine in sync for the next check.
func (p *PPU) lineCondition() bool {
	line := p.stat&(1<<2) != 0 && p.stat&(1<<6) != 0
	line = line || (p.mode == modeHBlank && p.stat&(1<<3) != 0)
	line = line || (p.mode == modeOAM && p.stat&(1<<5) != 0)
	line = line || (p.mode == modeVBlank && p.stat&(1<<4) != 0)
	return line
}

// updateStatLine recomputes the combined STAT IRQ condition and requests
// the Stat interrupt only on the rising edge, matching the real
// "STAT IRQ is level-combined internally, edge-triggered externally"
// behavior: several sources becoming active at once still only fires one
// interrupt.
func (p *PPU) updateStatLine() {
	line := p.lineCondition()
	if line && !p.statLine && p.interrupts != nil {
		p.interrupts.Request(interrupt.Stat)
	}
	p.statLine = line
}

// evalOAMEntry is OAM_SCAN_EVEN/ODD's per-entry check: one sprite, judged
// against the current line and appended to the hit buffer if it
// intersects, is selected, and the 10-sprite cap hasn't been hit yet.
func (p *PPU) evalOAMEntry(i int) {
	if p.nHit >= 10 {
		return
	}
	base := i * 4
	rawY := p.oam.data[base]
	height := byte(8)
	if p.lcdc&0x04 != 0 {
		height = 16
	}
	top := int(rawY) - 16
	if int(p.ly) < top || int(p.ly) >= top+int(height) {
		return
	}
	x := p.oam.data[base+1]
	if x >= 168 {
		return
	}
	p.hits[p.nHit] = Sprite{OAMIndex: i, Y: byte(top), X: x, Tile: p.oam.data[base+2], Attr: p.oam.data[base+3]}
	p.nHit++
}

// scanOAM is the batch equivalent of stepping all 40 OAM_SCAN_EVEN/ODD
// pairs at once; kept as a standalone helper for direct testing and
// wherever OAM-scan results are needed outside the dot-by-dot path.
func (p *PPU) scanOAM() {
	p.nHit = 0
	for i := 0; i < 40 && p.nHit < 10; i++ {
		p.evalOAMEntry(i)
	}
}

type State struct {
	Vram              [0x2000]byte
	Oam               [0xA0]byte
	Lcdc, Stat        byte
	Scy, Scx, Ly, Lyc byte
	Bgp, Obp0, Obp1   byte
	Wy, Wx            byte
	Dot               int
	Mode              byte
	Phase             int
	AfterTurnOn       bool
	StatLine          bool
	WindowLine        int
	WindowActiveLine  bool
	XferState         int
	DiscardTarget     int
	Discarded         int
	Lx                int
	BGCI              [160]byte
	VramBus, OamBus   bus.State
}

// SaveState does not preserve the line fetcher's in-flight phase or FIFO
// contents: on load the fetcher restarts at tile column SCX>>3 of map row
// 0 of the 0x9800 map, so a save/load taken mid-mode-3 can draw wrong,
// repeated or skipped pixels for the rest of the resumed line. Saves
// taken at mode boundaries (the common case for a host frontend) are
// unaffected.
func (p *PPU) SaveState() State {
	return State{
		Vram: p.vram.data, Oam: p.oam.data,
		Lcdc: p.lcdc, Stat: p.stat,
		Scy: p.scy, Scx: p.scx, Ly: p.ly, Lyc: p.lyc,
		Bgp: p.bgp, Obp0: p.obp0, Obp1: p.obp1, Wy: p.wy, Wx: p.wx,
		Dot: p.dot, Mode: p.mode, Phase: int(p.phase), AfterTurnOn: p.afterTurnOn,
		StatLine: p.statLine, WindowLine: p.windowLine, WindowActiveLine: p.windowActiveLine,
		XferState: int(p.xferState), DiscardTarget: p.discardTarget, Discarded: p.discarded, Lx: p.lx,
		BGCI:    p.bgci,
		VramBus: p.vramBus.SaveState(), OamBus: p.oamBus.SaveState(),
	}
}

func (p *PPU) LoadState(s State) {
	p.vram.data, p.oam.data = s.Vram, s.Oam
	p.lcdc, p.stat = s.Lcdc, s.Stat
	p.scy, p.scx, p.ly, p.lyc = s.Scy, s.Scx, s.Ly, s.Lyc
	p.bgp, p.obp0, p.obp1, p.wy, p.wx = s.Bgp, s.Obp0, s.Obp1, s.Wy, s.Wx
	p.dot, p.mode, p.phase, p.afterTurnOn = s.Dot, s.Mode, phase(s.Phase), s.AfterTurnOn
	p.statLine, p.windowLine, p.windowActiveLine = s.StatLine, s.WindowLine, s.WindowActiveLine
	p.xferState, p.discardTarget, p.discarded, p.lx = xferState(s.XferState), s.DiscardTarget, s.Discarded, s.Lx
	p.bgci = s.BGCI
	p.vramBus.LoadState(s.VramBus)
	p.oamBus.LoadState(s.OamBus)
	p.vramBus.Rebind(&p.vram)
	p.oamBus.Rebind(&p.oam)
	p.lf.reset(&p.vram, 0x9800, p.lcdc&0x10 != 0, 0, uint16(p.scx>>3), 0)
}
