package apu

import "testing"

func TestUnusedBitsReadHigh(t *testing.T) {
	a := New()
	if got := a.CPURead(0xFF11); got&0x3F != 0x3F {
		t.Fatalf("NR11 unused bits = %#02x, want low 6 bits set", got)
	}
}

func TestWaveRAMRoundTrips(t *testing.T) {
	a := New()
	a.CPUWrite(0xFF30, 0xAB)
	if got := a.CPURead(0xFF30); got != 0xAB {
		t.Fatalf("wave RAM[0] = %#02x, want 0xAB", got)
	}
}

func TestPowerOffClearsAndGatesRegisters(t *testing.T) {
	a := New()
	a.CPUWrite(0xFF12, 0xF0)
	a.CPUWrite(0xFF26, 0x00) // power off
	if got := a.CPURead(0xFF12); got != readMask[0xFF12] {
		t.Fatalf("NR12 after power off = %#02x, want cleared", got)
	}
	a.CPUWrite(0xFF12, 0xFF) // ignored while off
	if got := a.CPURead(0xFF12); got != readMask[0xFF12] {
		t.Fatalf("NR12 write while powered off should be ignored, got %#02x", got)
	}
	if got := a.CPURead(0xFF26); got&0x80 != 0 {
		t.Fatal("expected NR52 power bit clear")
	}
}

func TestWaveRAMUnaffectedByPower(t *testing.T) {
	a := New()
	a.CPUWrite(0xFF26, 0x00)
	a.CPUWrite(0xFF30, 0x42)
	if got := a.CPURead(0xFF30); got != 0x42 {
		t.Fatalf("wave RAM should be writable while powered off, got %#02x", got)
	}
}

func TestSaveLoadStateRoundTrip(t *testing.T) {
	a := New()
	a.CPUWrite(0xFF24, 0x77)
	s := a.SaveState()

	a2 := New()
	a2.LoadState(s)
	if a2.CPURead(0xFF24) != 0x77 {
		t.Fatal("NR50 mismatch after LoadState")
	}
}
