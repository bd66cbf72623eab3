package cart

import "testing"

func TestMBC1_ROMBanking(t *testing.T) {
	rom := make([]byte, 128*1024)
	for bank := 0; bank < 8; bank++ {
		rom[bank*0x4000] = byte(bank)
	}
	m := NewMBC1(rom, 0)

	if got := m.ReadRom(0x0000); got != 0x00 {
		t.Fatalf("bank0 read got %02X want 00", got)
	}
	if got := m.ReadRom(0x4000); got != 0x01 {
		t.Fatalf("bank1 read got %02X want 01", got)
	}

	m.WriteRom(0x2000, 0x03)
	if got := m.ReadRom(0x4000); got != 0x03 {
		t.Fatalf("bank3 read got %02X want 03", got)
	}

	m.WriteRom(0x2000, 0x00)
	if got := m.ReadRom(0x4000); got != 0x01 {
		t.Fatalf("bank0->1 remap failed: got %02X", got)
	}
}

func TestMBC1_RAMBanking_Mode1(t *testing.T) {
	rom := make([]byte, 128*1024)
	m := NewMBC1(rom, 32*1024)

	m.WriteRom(0x0000, 0x0A) // enable RAM
	m.WriteRom(0x6000, 0x01) // mode 1: RAM banking
	m.WriteRom(0x4000, 0x02) // select RAM bank 2

	m.WriteRam(0xA000, 0x77)
	if got := m.ReadRam(0xA000); got != 0x77 {
		t.Fatalf("RAM bank2 RW failed: got %02X", got)
	}
}

func TestMBC1_RAMDisabledReadsFF(t *testing.T) {
	rom := make([]byte, 32*1024)
	m := NewMBC1(rom, 8*1024)
	if got := m.ReadRam(0xA000); got != 0xFF {
		t.Fatalf("disabled RAM read got %02X want FF", got)
	}
}
