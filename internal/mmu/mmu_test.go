package mmu

import (
	"testing"

	"github.com/kjallen-dev/gbcore/internal/bus"
	"github.com/kjallen-dev/gbcore/internal/dma"
)

type fakeOam struct{ data [160]byte }

func (o *fakeOam) Write(addr uint16, v byte) { o.data[addr-0xFE00] = v }
func (o *fakeOam) Read(addr uint16) byte     { return o.data[addr-0xFE00] }

func buildTestDecoder(wram []byte) *Decoder {
	return NewBuilder().MapDirect(0xC000, 0xDFFF, wram, 0).Build()
}

func TestCPUReadWriteRoundTrip(t *testing.T) {
	wram := make([]byte, 0x2000)
	d := buildTestDecoder(wram)
	oam := &fakeOam{}
	m := New(d, dma.New(oam, bus.New(oam)))

	m.TickT0()
	m.CPUWrite(0xC010, 0x42)
	m.TickT0()
	if got := m.CPURead(0xC010); got != 0x42 {
		t.Fatalf("read back = %#x, want 0x42", got)
	}
}

func TestDmaEchoOnSameBusReadDuringTransfer(t *testing.T) {
	wram := make([]byte, 0x2000)
	for i := range wram {
		wram[i] = byte(i)
	}
	d := buildTestDecoder(wram)
	oam := &fakeOam{}
	dm := dma.New(oam, bus.New(oam))
	m := New(d, dm)

	dm.StartTransfer(0xC0)
	m.TickT0() // pending1 -> pending0
	m.TickT0() // pending0 -> active; this same tick also pumps byte 0 (wram[0])
	if v := m.CPURead(0xC0FF); v != wram[0] {
		t.Fatalf("expected CPU read during DMA to echo the DMA-sourced byte %#x, got %#x", wram[0], v)
	}
}

func TestCPUWriteDroppedWhenConflictingWithDma(t *testing.T) {
	wram := make([]byte, 0x2000)
	d := buildTestDecoder(wram)
	oam := &fakeOam{}
	dm := dma.New(oam, bus.New(oam))
	m := New(d, dm)

	dm.StartTransfer(0xC0)
	m.TickT0()
	m.TickT0() // now active, consumed wram[0]

	before := wram[0x50]
	m.TickT0() // consumes wram[1]; conflicts with any External-bus CPU write this cycle
	m.CPUWrite(0xC050, 0xAA)
	if wram[0x50] != before {
		t.Fatalf("expected conflicting CPU write to be dropped, wram[0x50] changed to %#x", wram[0x50])
	}
}

func TestCPUWriteSucceedsWhenDmaInactive(t *testing.T) {
	wram := make([]byte, 0x2000)
	d := buildTestDecoder(wram)
	oam := &fakeOam{}
	m := New(d, dma.New(oam, bus.New(oam)))
	m.TickT0()
	m.CPUWrite(0xC001, 0x99)
	if wram[1] != 0x99 {
		t.Fatalf("expected write to land, wram[1] = %#x", wram[1])
	}
}

func TestBootROMUnmapIsSticky(t *testing.T) {
	d := buildTestDecoder(make([]byte, 0x2000))
	oam := &fakeOam{}
	m := New(d, dma.New(oam, bus.New(oam)))
	m.MapBootROM()
	m.UnmapBootROM()
	s := m.SaveState()
	m.MapBootROM()
	m.LoadState(s)
	if m.BootROMMapped() {
		t.Fatal("expected boot ROM to remain unmapped after load-state")
	}
}
