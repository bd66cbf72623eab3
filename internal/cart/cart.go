package cart

// Cartridge is the bus-facing contract a mapper must satisfy. ROM and RAM
// are split so the MMU can route 0x0000-0x7FFF and 0xA000-0xBFFF accesses
// without the mapper re-deriving which region an address belongs to.
type Cartridge interface {
	ReadRom(addr uint16) byte
	WriteRom(addr uint16, v byte) // bank-control writes; ROM itself is read-only
	ReadRam(addr uint16) byte
	WriteRam(addr uint16, v byte)

	SaveState() []byte
	LoadState(data []byte)
}

// BatteryBacked is an optional interface for cartridges with external RAM
// that should be persisted across sessions.
type BatteryBacked interface {
	SaveRAM() []byte
	LoadRAM(data []byte)
}

// New picks a mapper implementation from the ROM header's cartridge type byte.
func New(rom []byte) Cartridge {
	h, err := ParseHeader(rom)
	if err != nil {
		return NewROMOnly(rom)
	}
	switch h.CartType {
	case 0x00:
		return NewROMOnly(rom)
	case 0x01, 0x02, 0x03:
		return NewMBC1(rom, h.RAMSizeBytes)
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		return NewMBC3(rom, h.RAMSizeBytes)
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return NewMBC5(rom, h.RAMSizeBytes)
	default:
		return NewROMOnly(rom)
	}
}
