package cart

import (
	"bytes"
	"encoding/gob"
)

// MBC3 implements ROM/RAM banking plus the RTC register file. The RTC is
// modeled as inert storage only: registers 0x08-0x0C (S, M, H, DL, DH) hold
// whatever the game last wrote through the latch sequence, but nothing
// advances them against wall-clock time.
type MBC3 struct {
	rom []byte
	ram []byte

	ramEnabled bool
	romBank    byte // 7 bits, 0 remaps to 1
	ramBank    byte // 0-3 selects RAM; 0x08-0x0C selects an RTC register

	rtc        [5]byte // S, M, H, DL, DH latched values
	latchState byte     // tracks the 0x00 -> 0x01 latch write sequence
}

func NewMBC3(rom []byte, ramSize int) *MBC3 {
	m := &MBC3{rom: rom, romBank: 1}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	return m
}

func (m *MBC3) ReadRom(addr uint16) byte {
	if addr < 0x4000 {
		if int(addr) < len(m.rom) {
			return m.rom[addr]
		}
		return 0xFF
	}
	bank := int(m.romBank)
	if bank == 0 {
		bank = 1
	}
	off := bank*0x4000 + int(addr-0x4000)
	if off < len(m.rom) {
		return m.rom[off]
	}
	return 0xFF
}

func (m *MBC3) WriteRom(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x4000:
		v := value & 0x7F
		if v == 0 {
			v = 1
		}
		m.romBank = v
	case addr < 0x6000:
		m.ramBank = value
	default:
		if m.latchState == 0x00 && value == 0x01 {
			// latch is a no-op snapshot since rtc[] already holds the live values
		}
		m.latchState = value
	}
}

func (m *MBC3) ReadRam(addr uint16) byte {
	if !m.ramEnabled {
		return 0xFF
	}
	if m.ramBank >= 0x08 && m.ramBank <= 0x0C {
		return m.rtc[m.ramBank-0x08]
	}
	if len(m.ram) == 0 {
		return 0xFF
	}
	off := int(m.ramBank&0x03)*0x2000 + int(addr-0xA000)
	if off >= 0 && off < len(m.ram) {
		return m.ram[off]
	}
	return 0xFF
}

func (m *MBC3) WriteRam(addr uint16, value byte) {
	if !m.ramEnabled {
		return
	}
	if m.ramBank >= 0x08 && m.ramBank <= 0x0C {
		m.rtc[m.ramBank-0x08] = value
		return
	}
	if len(m.ram) == 0 {
		return
	}
	off := int(m.ramBank&0x03)*0x2000 + int(addr-0xA000)
	if off >= 0 && off < len(m.ram) {
		m.ram[off] = value
	}
}

func (m *MBC3) SaveRAM() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC3) LoadRAM(data []byte) {
	if len(m.ram) == 0 || len(data) == 0 {
		return
	}
	copy(m.ram, data)
}

type mbc3State struct {
	RamEnabled           bool
	RomBank, RamBank     byte
	Rtc                  [5]byte
	LatchState           byte
	Ram                  []byte
}

func (m *MBC3) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(mbc3State{
		RamEnabled: m.ramEnabled, RomBank: m.romBank, RamBank: m.ramBank,
		Rtc: m.rtc, LatchState: m.latchState, Ram: m.ram,
	})
	return buf.Bytes()
}

func (m *MBC3) LoadState(data []byte) {
	var s mbc3State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	m.ramEnabled, m.romBank, m.ramBank = s.RamEnabled, s.RomBank, s.RamBank
	m.rtc, m.latchState = s.Rtc, s.LatchState
	if len(s.Ram) == len(m.ram) {
		copy(m.ram, s.Ram)
	}
}
