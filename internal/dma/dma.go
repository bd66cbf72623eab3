// Package dma implements the OAM DMA controller described in spec §4.4: a
// two-stage request delay followed by a 160-T-cycle byte-at-a-time pump
// from source_high<<8 into OAM. The MMU drives the actual source reads (so
// that CPU/DMA external-bus conflicts can be resolved in one place); this
// package only tracks the state machine and the OAM write side, which the
// DMA performs itself since it is OAM's bus owner while transferring.
package dma

import "github.com/kjallen-dev/gbcore/internal/bus"

type request int

const (
	none request = iota
	pending1
	pending0
)

// Oam is the raw, unconditional OAM store the DMA writes into directly.
type Oam interface {
	Write(addr uint16, v byte)
}

type Dma struct {
	oam    Oam
	oamBus *bus.Bus

	req        request
	sourceHigh byte
	active     bool
	cursor     int
}

func New(oam Oam, oamBus *bus.Bus) *Dma {
	return &Dma{oam: oam, oamBus: oamBus}
}

func (d *Dma) Rebind(oam Oam, oamBus *bus.Bus) { d.oam, d.oamBus = oam, oamBus }

// StartTransfer is invoked by the address decoder on a write to FF46.
func (d *Dma) StartTransfer(sourceHigh byte) {
	d.req = pending1
	d.sourceHigh = sourceHigh
}

func (d *Dma) IsTransferring() bool { return d.active }

// Advance steps the request-delay state machine by one T-cycle. The MMU
// calls this once per T-cycle before deciding whether to pump a byte.
func (d *Dma) Advance() {
	switch d.req {
	case pending1:
		d.req = pending0
	case pending0:
		d.req = none
		d.active = true
		d.cursor = 0
		d.oamBus.Acquire(bus.DMA)
	}
}

func (d *Dma) Active() bool { return d.active }

// SourceAddr returns the address the next byte should be read from. Source
// addresses at or above 0xE0xx wrap bit 13, capping the effective base at
// 0xDF00.
func (d *Dma) SourceAddr() uint16 {
	high := d.sourceHigh
	if high >= 0xE0 {
		high &^= 0x20
	}
	return uint16(high)<<8 | uint16(d.cursor)
}

// ReceiveByte is called by the MMU with the byte read from SourceAddr();
// the DMA writes it into OAM and advances its cursor, releasing the OAM
// bus once the 160-byte transfer completes.
func (d *Dma) ReceiveByte(v byte) {
	d.oam.Write(0xFE00+uint16(d.cursor), v)
	d.cursor++
	if d.cursor == 160 {
		d.active = false
		d.oamBus.Release(bus.DMA)
	}
}

type State struct {
	Req        request
	SourceHigh byte
	Active     bool
	Cursor     int
}

func (d *Dma) SaveState() State {
	return State{Req: d.req, SourceHigh: d.sourceHigh, Active: d.active, Cursor: d.cursor}
}

func (d *Dma) LoadState(s State) {
	d.req, d.sourceHigh, d.active, d.cursor = s.Req, s.SourceHigh, s.Active, s.Cursor
}
