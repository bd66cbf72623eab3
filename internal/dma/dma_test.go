package dma

import (
	"github.com/kjallen-dev/gbcore/internal/bus"
	"testing"
)

type fakeOam struct{ data [160]byte }

func (o *fakeOam) Write(addr uint16, v byte) { o.data[addr-0xFE00] = v }
func (o *fakeOam) Read(addr uint16) byte     { return o.data[addr-0xFE00] }

func TestRequestDelayBeforeActive(t *testing.T) {
	oam := &fakeOam{}
	b := bus.New(oam)
	d := New(oam, b)
	d.StartTransfer(0xC0)

	if d.Active() {
		t.Fatal("should not be active immediately")
	}
	d.Advance()
	if d.Active() {
		t.Fatal("should still be pending after one advance")
	}
	d.Advance()
	if !d.Active() {
		t.Fatal("expected active after two advances")
	}
	if !b.IsAcquiredBy(bus.DMA) {
		t.Fatal("expected OAM bus acquired by DMA once active")
	}
}

func TestFullTransferReleasesOamBus(t *testing.T) {
	oam := &fakeOam{}
	b := bus.New(oam)
	d := New(oam, b)
	d.StartTransfer(0xC0)
	d.Advance()
	d.Advance()

	for i := 0; i < 160; i++ {
		addr := d.SourceAddr()
		if addr != 0xC000+uint16(i) {
			t.Fatalf("step %d: source addr = %#x, want %#x", i, addr, 0xC000+uint16(i))
		}
		d.ReceiveByte(byte(i))
	}
	if d.Active() {
		t.Fatal("expected transfer complete")
	}
	if b.IsAcquiredBy(bus.DMA) {
		t.Fatal("expected OAM bus released after transfer")
	}
	for i := 0; i < 160; i++ {
		if oam.data[i] != byte(i) {
			t.Fatalf("oam[%d] = %#x, want %#x", i, oam.data[i], byte(i))
		}
	}
}

func TestHighSourceWraps(t *testing.T) {
	oam := &fakeOam{}
	b := bus.New(oam)
	d := New(oam, b)
	d.StartTransfer(0xFF)
	if got := d.SourceAddr(); got != 0xDF00 {
		t.Fatalf("source addr = %#x, want 0xDF00", got)
	}
}
