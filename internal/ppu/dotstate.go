package ppu

import "github.com/kjallen-dev/gbcore/internal/bus"

// enterOAMScan starts a visible line's mode-2 phase. On the one line right
// after the LCD is enabled (OAM_SCAN_AFTER_TURN_ON), the buses are not
// acquired and no sprite is ever judged, but STAT still reports HBLANK
// rather than OAM for the whole line, not OAM-then-transfer as usual.
func (p *PPU) enterOAMScan() {
	p.phase = phaseOAM
	p.nHit = 0
	if p.afterTurnOn {
		p.setMode(modeHBlank)
		return
	}
	p.setMode(modeOAM)
	p.vramBus.Acquire(bus.PPU)
	p.oamBus.Acquire(bus.PPU)
}

// tickOAMScanDot runs OAM_SCAN_EVEN/ODD: each pair of dots judges one OAM
// entry, so all 40 are covered across the 80-dot window. The bus oddity at
// dots 76/78 (OAM released, then OAM+VRAM re-acquired two dots later) is
// cosmetic at this core's granularity but kept for fidelity with real
// bus-contention traces.
func (p *PPU) tickOAMScanDot(d int) {
	if !p.afterTurnOn {
		if d%2 == 1 {
			p.evalOAMEntry(d / 2)
		}
		switch d {
		case 76:
			p.oamBus.Release(bus.PPU)
		case 78:
			p.oamBus.Acquire(bus.PPU)
			p.vramBus.Acquire(bus.PPU)
		}
	}
	if d == dotsOAM-1 {
		p.beginPixelTransfer()
	}
}

// beginPixelTransfer sets up mode 3's first sub-state. STAT mode only
// flips to PIXEL_TRANSFER when this isn't the after-turn-on line; that
// line's externally visible mode stays HBLANK straight through.
//
// The line fetcher is pointed at the real first BG tile here, not at
// startRealFetch: on real hardware the dummy fetch at the start of mode 3
// is the first tile's own fetch, not idle time, so PIXEL_TRANSFER_DUMMY_0's
// first two dots already advance it (the third is the one genuinely dead
// bus-settle dot before SCX is sampled).
func (p *PPU) beginPixelTransfer() {
	p.phase = phaseXfer
	if !p.afterTurnOn {
		p.setMode(modeXfer)
	}
	p.afterTurnOn = false
	p.xferState = xferDummy
	p.dummyDotsLeft = 3
	p.windowActiveLine = false
	p.lx = 0
	p.discarded = 0

	bgY := uint16(p.ly) + uint16(p.scy)
	mapBase := uint16(0x9800)
	if p.lcdc&0x08 != 0 {
		mapBase = 0x9C00
	}
	mapRow := (bgY >> 3) & 31
	startCol := uint16(p.scx>>3) & 31
	p.lf.out.Clear() // drop pixels left over from the previous line's last fetch
	p.lf.reset(&p.vram, mapBase, p.lcdc&0x10 != 0, mapRow, startCol, byte(bgY&7))
}

func (p *PPU) tickPixelTransferDot() {
	switch p.xferState {
	case xferDummy:
		if p.dummyDotsLeft > 1 {
			p.lf.tick()
		}
		p.dummyDotsLeft--
		if p.dummyDotsLeft == 0 {
			p.startRealFetch()
		}
	case xferDiscard, xferDiscardWX0SCX7:
		p.lf.tick()
		if p.lf.out.Len() > 0 {
			p.lf.out.Pop()
			p.discarded++
			if p.discarded >= p.discardTarget {
				p.xferState = xferOutput0
			}
		}
	case xferOutput0:
		p.lf.tick()
		if p.lf.out.Len() > 0 {
			p.lf.out.Pop()
			p.lx++
			if p.lx >= 8 {
				p.xferState = xferOutput8
			}
		}
	case xferOutput8:
		p.tickOutput8()
	}
}

// startRealFetch is PIXEL_TRANSFER_DUMMY_0's exit: it samples SCX (the
// discard_target for this line). The fetcher itself keeps running from
// wherever beginPixelTransfer left it. The WX0/SCX7 corner case discards a
// full tile instead of SCX%8 pixels, the one case where the window can
// reach column 0 on the very dot the normal discard would otherwise still
// be running.
func (p *PPU) startRealFetch() {
	scx := p.scx
	discard := int(scx & 7)
	wx0scx7 := p.lcdc&0x20 != 0 && p.wx == 0 && scx&7 == 7
	if wx0scx7 {
		p.xferState = xferDiscardWX0SCX7
		discard = 8
	} else {
		p.xferState = xferDiscard
	}
	p.discardTarget = discard
	p.discarded = 0

	p.pendingRegs = LineRegs{
		Scx: p.scx, Scy: p.scy, Bgp: p.bgp, Obp0: p.obp0, Obp1: p.obp1,
		Wy: p.wy, Wx: p.wx, WinLine: p.windowLine,
	}

	if p.discardTarget == 0 {
		p.xferState = xferOutput0
	}
}

// tickOutput8 is PIXEL_TRANSFER_8: one real BG/window pixel (or one
// window-activation stall dot) per successful fetch. Sprite compositing
// happens once the whole line's BG color indices are known, in
// finishPixelTransfer, rather than interrupting the BG fetcher mid-tile
// the way real hardware's OBJ fetch does (see DESIGN.md).
func (p *PPU) tickOutput8() {
	screenX := p.lx - 8
	if !p.windowActiveLine && p.lcdc&0x20 != 0 && p.ly >= p.wy && p.wx <= 166 && screenX+7 >= int(p.wx) {
		p.activateWindow()
		return
	}
	p.lf.tick()
	if p.lf.out.Len() == 0 {
		return
	}
	ci, _ := p.lf.out.Pop()
	if p.lcdc&0x01 == 0 {
		ci = 0
	}
	p.bgci[screenX] = ci
	p.lx++
	if screenX == 159 {
		p.finishPixelTransfer()
	}
}

// activateWindow is WIN_PREFETCHER_ACTIVATING: a one-dot stall where the
// BG FIFO is torn down and the fetcher is redirected at the window tile
// map, starting from its own column 0 rather than wherever the BG fetch
// had reached.
func (p *PPU) activateWindow() {
	p.windowActiveLine = true
	p.lf.out.Clear()
	mapBase := uint16(0x9800)
	if p.lcdc&0x40 != 0 {
		mapBase = 0x9C00
	}
	mapRow := (uint16(p.windowLine) >> 3) & 31
	p.lf.reset(&p.vram, mapBase, p.lcdc&0x10 != 0, mapRow, 0, byte(p.windowLine&7))
	p.windowLine++
}

// finishPixelTransfer composes sprites over the finished BG/window line,
// resolves palettes, and blits into the framebuffer, then hands off to
// HBLANK.
func (p *PPU) finishPixelTransfer() {
	var objci, objpal [160]byte
	if p.lcdc&0x02 != 0 {
		objci, objpal = composeSpriteLine(&p.vram, p.hits[:p.nHit], p.ly, p.bgci, p.lcdc&0x04 != 0)
	}
	for x := 0; x < 160; x++ {
		if objci[x] != 0 {
			palette := p.obp0
			if objpal[x] == 1 {
				palette = p.obp1
			}
			shade := (palette >> (objci[x] * 2)) & 0x03
			p.screen.SetPixel(x, int(p.ly), shade)
			continue
		}
		shade := (p.bgp >> (p.bgci[x] * 2)) & 0x03
		p.screen.SetPixel(x, int(p.ly), shade)
	}

	p.pendingRegs.WindowDrawn = p.windowActiveLine
	if int(p.ly) < 144 {
		p.lineRegs[p.ly] = p.pendingRegs
	}

	p.vramBus.Release(bus.PPU)
	p.oamBus.Release(bus.PPU)
	p.phase = phaseHBlank
	p.setMode(modeHBlank)
}

// tickHBlankDot carries the remainder of a visible line once pixel
// transfer ends; LY itself only moves at the dot-456 wrap (advanceLine).
// Real hardware also fires an OAM STAT lookahead one dot before mode 2
// actually begins (HBLANK_453); this core does not reproduce that
// specific one-dot-early edge (see DESIGN.md).
func (p *PPU) tickHBlankDot() {}

// tickVBlankDot carries the LY=153 trick line's two extra mode flips: the
// true line counter stays 153 the whole time (reportedLY/updateCoincidence
// handle the LY=0 illusion), but STAT mode briefly reports HBLANK for the
// last two dots before the frame wraps.
func (p *PPU) tickVBlankDot() {
	if p.ly != 153 {
		return
	}
	switch p.dot {
	case 2:
		p.updateCoincidence()
	case 7:
		p.updateCoincidence()
	case 454:
		p.setMode(modeHBlank)
	}
}
