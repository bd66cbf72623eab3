package cart

import "testing"

func TestMBC3_RTC_RegistersAreInertStorage(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC3(rom, 0x2000)

	m.WriteRom(0x0000, 0x0A) // RAM/RTC enable
	m.WriteRom(0x4000, 0x08) // select RTC seconds register
	m.WriteRam(0xA000, 5)
	if got := m.ReadRam(0xA000); got != 5 {
		t.Fatalf("rtc seconds got %d want 5", got)
	}

	m.WriteRom(0x4000, 0x0A) // select RTC hours register
	m.WriteRam(0xA000, 7)
	if got := m.ReadRam(0xA000); got != 7 {
		t.Fatalf("rtc hours got %d want 7", got)
	}

	// Switching back to seconds must not have been disturbed by the hours write.
	m.WriteRom(0x4000, 0x08)
	if got := m.ReadRam(0xA000); got != 5 {
		t.Fatalf("rtc seconds disturbed: got %d want 5", got)
	}
}

func TestMBC3_RAMBanking(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC3(rom, 4*0x2000)

	m.WriteRom(0x0000, 0x0A)
	m.WriteRom(0x4000, 0x02) // RAM bank 2
	m.WriteRam(0xA000, 0x42)
	if got := m.ReadRam(0xA000); got != 0x42 {
		t.Fatalf("ram bank2 RW failed: got %02X", got)
	}

	m.WriteRom(0x4000, 0x00) // RAM bank 0
	if got := m.ReadRam(0xA000); got == 0x42 {
		t.Fatalf("bank 0 should not alias bank 2's data")
	}
}

func TestMBC3_ROMBankZeroRemapsToOne(t *testing.T) {
	rom := make([]byte, 0x4000*4)
	rom[0x4000] = 0xAB
	m := NewMBC3(rom, 0)
	m.WriteRom(0x2000, 0x00)
	if got := m.ReadRom(0x4000); got != 0xAB {
		t.Fatalf("bank0->1 remap failed: got %02X", got)
	}
}
