package cart

import (
	"bytes"
	"encoding/gob"
)

// MBC1 implements ROM banking up to 2MB and RAM banking up to 32KB.
// Battery persistence is exposed via BatteryBacked; RTC does not apply.
type MBC1 struct {
	rom []byte
	ram []byte

	romBankLow5       byte // lower 5 bits of ROM bank number (0 remaps to 1)
	ramBankOrRomHigh2 byte // RAM bank in mode 1, ROM bank high bits in mode 0
	ramEnabled        bool
	modeSelect        byte // 0: ROM banking, 1: RAM banking
}

func NewMBC1(rom []byte, ramSize int) *MBC1 {
	m := &MBC1{rom: rom, romBankLow5: 1}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	return m
}

func (m *MBC1) ReadRom(addr uint16) byte {
	if addr < 0x4000 {
		if m.modeSelect == 0 {
			if int(addr) < len(m.rom) {
				return m.rom[addr]
			}
			return 0xFF
		}
		bank := int(m.ramBankOrRomHigh2&0x03) << 5
		off := bank*0x4000 + int(addr)
		if off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	}
	bank := int(m.effectiveROMBank())
	off := bank*0x4000 + int(addr-0x4000)
	if off < len(m.rom) {
		return m.rom[off]
	}
	return 0xFF
}

func (m *MBC1) WriteRom(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x4000:
		m.romBankLow5 = value & 0x1F
		if m.romBankLow5 == 0 {
			m.romBankLow5 = 1
		}
	case addr < 0x6000:
		m.ramBankOrRomHigh2 = value & 0x03
	default:
		m.modeSelect = value & 0x01
	}
}

func (m *MBC1) ReadRam(addr uint16) byte {
	if !m.ramEnabled || len(m.ram) == 0 {
		return 0xFF
	}
	off := m.ramOffset(addr)
	if off >= 0 && off < len(m.ram) {
		return m.ram[off]
	}
	return 0xFF
}

func (m *MBC1) WriteRam(addr uint16, value byte) {
	if !m.ramEnabled || len(m.ram) == 0 {
		return
	}
	off := m.ramOffset(addr)
	if off >= 0 && off < len(m.ram) {
		m.ram[off] = value
	}
}

func (m *MBC1) ramOffset(addr uint16) int {
	bank := 0
	if m.modeSelect == 1 {
		bank = int(m.ramBankOrRomHigh2 & 0x03)
	}
	return bank*0x2000 + int(addr-0xA000)
}

func (m *MBC1) effectiveROMBank() byte {
	high := m.ramBankOrRomHigh2 & 0x03
	return m.romBankLow5 | (high << 5)
}

func (m *MBC1) SaveRAM() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC1) LoadRAM(data []byte) {
	if len(m.ram) == 0 || len(data) == 0 {
		return
	}
	copy(m.ram, data)
}

type mbc1State struct {
	RomBankLow5, RamBankOrRomHigh2 byte
	RamEnabled                     bool
	ModeSelect                     byte
	Ram                            []byte
}

func (m *MBC1) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(mbc1State{
		RomBankLow5: m.romBankLow5, RamBankOrRomHigh2: m.ramBankOrRomHigh2,
		RamEnabled: m.ramEnabled, ModeSelect: m.modeSelect, Ram: m.ram,
	})
	return buf.Bytes()
}

func (m *MBC1) LoadState(data []byte) {
	var s mbc1State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	m.romBankLow5, m.ramBankOrRomHigh2 = s.RomBankLow5, s.RamBankOrRomHigh2
	m.ramEnabled, m.modeSelect = s.RamEnabled, s.ModeSelect
	if len(s.Ram) == len(m.ram) {
		copy(m.ram, s.Ram)
	}
}
