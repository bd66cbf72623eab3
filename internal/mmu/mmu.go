package mmu

import (
	"github.com/kjallen-dev/gbcore/internal/bus"
	"github.com/kjallen-dev/gbcore/internal/dma"
)

// BusKind groups addresses by which physical bus they sit on, for the
// CPU/DMA same-T-cycle conflict rule: a CPU access and DMA's source read
// only interact when they land on the same physical bus.
type BusKind int

const (
	External BusKind = iota // cartridge ROM/RAM, WRAM, IO, HRAM
	Video                   // VRAM (0x8000-0x9FFF)
)

func busKindOf(addr uint16) BusKind {
	if addr >= 0x8000 && addr <= 0x9FFF {
		return Video
	}
	return External
}

// Mmu is the CPU-facing memory controller. It fronts the address decoder
// with an acquirable bus.Bus carrying one request/flush lane per master
// (CPU, DMA). The CPU's opcode-table steps post a request on one T-cycle
// and flush it on a later one, observing whatever actually holds the bus at
// flush time rather than at post time; DMA's source read posts and flushes
// within a single TickT0.
type Mmu struct {
	decoder     *Decoder
	dma         *dma.Dma
	externalBus *bus.Bus

	bootROMMapped bool

	dmaReadThisCycle bool
	dmaReadKind      BusKind
	dmaReadValue     byte

	// dmaBusHeld marks that DMA's Acquire from the previous TickT0 is still
	// in effect; it is released at the start of the next TickT0 rather than
	// at the end of the current one, so a CPU flush occurring later in the
	// same T-cycle still observes DMA holding the bus.
	dmaBusHeld bool
}

func New(decoder *Decoder, d *dma.Dma) *Mmu {
	return &Mmu{decoder: decoder, dma: d, externalBus: bus.New(decoder)}
}

func (m *Mmu) Decoder() *Decoder { return m.decoder }

// UnmapBootROM is called by the FF50 write handler. The mapping never comes
// back, even across a load-state restore.
func (m *Mmu) UnmapBootROM()       { m.bootROMMapped = false }
func (m *Mmu) BootROMMapped() bool { return m.bootROMMapped }
func (m *Mmu) MapBootROM()         { m.bootROMMapped = true }

// TickT0 must be called once per T-cycle, before the CPU acts: it releases
// DMA's bus hold from the read it flushed last cycle, advances DMA's
// request-delay state machine, and performs this cycle's source read (post
// then immediate flush, since the DMA is both poster and sole consumer of
// its own lane) if a transfer is active, recording which bus that read
// touched for this cycle's CPU conflict checks.
func (m *Mmu) TickT0() {
	if m.dmaBusHeld {
		m.externalBus.Release(bus.DMA)
		m.dmaBusHeld = false
	}
	m.dma.Advance()
	m.dmaReadThisCycle = false
	if m.dma.Active() {
		addr := m.dma.SourceAddr()
		m.externalBus.Acquire(bus.DMA)
		m.dmaBusHeld = true
		m.externalBus.ReadRequest(bus.DMA, addr)
		v := m.externalBus.FlushReadRequest(bus.DMA)
		m.dma.ReceiveByte(v)
		m.dmaReadThisCycle = true
		m.dmaReadKind = busKindOf(addr)
		m.dmaReadValue = v
	}
}

// PostCPURead and FlushCPURead are the CPU's t0/t2 lane pair for a memory
// read. Post must be called on the T-cycle the access begins; Flush must be
// called on the T-cycle (after that cycle's TickT0) the access resolves.
// The generic bus primitive would return 0xFF for any flush while DMA holds
// the bus; the MMU's own conflict rule is narrower (same bus kind only,
// sharing DMA's value rather than reading 0xFF) and overrides it here.
func (m *Mmu) PostCPURead(addr uint16) { m.externalBus.ReadRequest(bus.CPU, addr) }

func (m *Mmu) FlushCPURead(addr uint16) byte {
	v := m.externalBus.FlushReadRequest(bus.CPU)
	if m.dmaReadThisCycle && busKindOf(addr) == m.dmaReadKind {
		return m.dmaReadValue
	}
	if m.externalBus.IsAcquiredByOther(bus.CPU) {
		// DMA holds the bus but this T-cycle's source read was on the other
		// kind of bus; the generic flush saw 0xFF, but there is no real
		// conflict, so read straight through.
		return m.decoder.Read(addr)
	}
	return v
}

func (m *Mmu) PostCPUWrite(addr uint16, v byte) { m.externalBus.WriteRequest(bus.CPU, addr, v) }

func (m *Mmu) FlushCPUWrite(addr uint16) {
	if m.dmaReadThisCycle && busKindOf(addr) == m.dmaReadKind {
		m.externalBus.FlushWriteRequest(bus.CPU) // drop: consume the pending request without storing
		return
	}
	if m.externalBus.IsAcquiredByOther(bus.CPU) {
		// Same bypass as FlushCPURead: no real kind conflict, so lift DMA's
		// hold for this flush rather than let the generic lane drop the write.
		m.externalBus.Release(bus.DMA)
		m.externalBus.FlushWriteRequest(bus.CPU)
		m.externalBus.Acquire(bus.DMA)
		return
	}
	m.externalBus.FlushWriteRequest(bus.CPU)
}

// CPURead and CPUWrite are a synchronous convenience pair for callers
// outside the CPU's T-cycle stepping (tests, boot-state initialization):
// post and flush in the same call, on whatever DMA conflict state is
// already current.
func (m *Mmu) CPURead(addr uint16) byte {
	m.PostCPURead(addr)
	return m.FlushCPURead(addr)
}

func (m *Mmu) CPUWrite(addr uint16, v byte) {
	m.PostCPUWrite(addr, v)
	m.FlushCPUWrite(addr)
}

type State struct {
	BootROMMapped bool
}

func (m *Mmu) SaveState() State  { return State{BootROMMapped: m.bootROMMapped} }
func (m *Mmu) LoadState(s State) {
	if !s.BootROMMapped {
		m.bootROMMapped = false
	}
}
