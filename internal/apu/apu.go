// Package apu backs the sound registers FF10-FF3F. Synthesis is explicitly
// out of scope: each register is a plain storage location, with only the
// handful of write-masks and power-toggle behavior real hardware enforces
// at the register level (unused bits always read 1, wave RAM is free-form,
// and turning the APU off clears every other register and ignores writes
// to them until it's turned back on).
package apu

// readMask ORs onto every register read, per the Pan Docs "unused bits
// read as 1" table; FF30-FF3F (wave RAM) is handled separately below.
var readMask = map[uint16]byte{
	0xFF10: 0x80,
	0xFF11: 0x3F,
	0xFF12: 0x00,
	0xFF13: 0xFF,
	0xFF14: 0xBF,
	0xFF16: 0x3F,
	0xFF17: 0x00,
	0xFF18: 0xFF,
	0xFF19: 0xBF,
	0xFF1A: 0x7F,
	0xFF1B: 0xFF,
	0xFF1C: 0x9F,
	0xFF1D: 0xFF,
	0xFF1E: 0xBF,
	0xFF20: 0xFF,
	0xFF21: 0x00,
	0xFF22: 0x00,
	0xFF23: 0xBF,
	0xFF24: 0x00,
	0xFF25: 0x00,
	0xFF26: 0x70,
}

// powerGated is every register that is cleared to 0x00 when NR52's power
// bit goes off and ignores writes while it stays off (reads still OR in
// readMask).
func powerGated(addr uint16) bool {
	return addr >= 0xFF10 && addr <= 0xFF25
}

type APU struct {
	regs [0xFF26 - 0xFF10 + 1]byte
	wave [16]byte // FF30-FF3F, always writable regardless of power
	on   bool
}

func New() *APU {
	return &APU{on: true}
}

func (a *APU) CPURead(addr uint16) byte {
	if addr >= 0xFF30 && addr <= 0xFF3F {
		return a.wave[addr-0xFF30]
	}
	if addr == 0xFF26 {
		return (boolToByte(a.on) << 7) | readMask[addr]
	}
	if addr > 0xFF26 {
		return 0xFF // FF27-FF2F: unused, no backing register
	}
	return a.regs[addr-0xFF10] | readMask[addr]
}

func (a *APU) CPUWrite(addr uint16, v byte) {
	if addr >= 0xFF30 && addr <= 0xFF3F {
		a.wave[addr-0xFF30] = v
		return
	}
	if addr == 0xFF26 {
		wasOn := a.on
		a.on = v&0x80 != 0
		if wasOn && !a.on {
			for i := range a.regs {
				if powerGated(0xFF10 + uint16(i)) {
					a.regs[i] = 0
				}
			}
		}
		return
	}
	if addr > 0xFF26 {
		return
	}
	if !a.on && powerGated(addr) {
		return
	}
	a.regs[addr-0xFF10] = v
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

type State struct {
	Regs [0xFF26 - 0xFF10 + 1]byte
	Wave [16]byte
	On   bool
}

func (a *APU) SaveState() State {
	return State{Regs: a.regs, Wave: a.wave, On: a.on}
}

func (a *APU) LoadState(s State) {
	a.regs, a.wave, a.on = s.Regs, s.Wave, s.On
}
