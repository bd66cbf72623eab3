// Package mmu implements the 16-bit address decoder and the two-lane
// (CPU, DMA) per-T-cycle memory schedule described by the bus arbitration
// design: CPU and DMA post requests against a shared view of memory and the
// MMU resolves both lanes in a fixed order each T-cycle.
package mmu

// Kind distinguishes a direct memory-backed region from a register/device
// hook that needs custom read/write behavior.
type Kind int

const (
	Direct Kind = iota
	Hook
)

// Access is the decoded entry for one address: either a slice+offset into a
// flat memory region, or a pair of read/write callbacks for devices wired
// through the bus (PPU VRAM/OAM, cartridge, APU, timer, interrupts, etc).
type Access struct {
	Kind Kind

	Region []byte
	Offset int

	ReadFn  func(addr uint16) byte
	WriteFn func(addr uint16, v byte)
}

func (a Access) read(addr uint16) byte {
	if a.Kind == Direct {
		if a.Region == nil {
			return 0xFF
		}
		return a.Region[a.Offset]
	}
	if a.ReadFn == nil {
		return 0xFF
	}
	return a.ReadFn(addr)
}

func (a Access) write(addr uint16, v byte) {
	if a.Kind == Direct {
		if a.Region != nil {
			a.Region[a.Offset] = v
		}
		return
	}
	if a.WriteFn != nil {
		a.WriteFn(addr, v)
	}
}

// Decoder is a fully-built 64K table of Access entries.
type Decoder struct {
	table [65536]Access
}

// Builder incrementally fills a Decoder. Later Map calls overwrite earlier
// ones for the same address, which lets a caller register a broad default
// and then carve out more specific sub-ranges (e.g. boot ROM over 0x0000-0x00FF).
type Builder struct {
	d *Decoder
}

func NewBuilder() *Builder { return &Builder{d: &Decoder{}} }

func (b *Builder) MapDirect(lo, hi uint16, region []byte, base int) *Builder {
	for addr := int(lo); addr <= int(hi); addr++ {
		b.d.table[addr] = Access{Kind: Direct, Region: region, Offset: base + (addr - int(lo))}
	}
	return b
}

func (b *Builder) MapHook(lo, hi uint16, read func(addr uint16) byte, write func(addr uint16, v byte)) *Builder {
	for addr := int(lo); addr <= int(hi); addr++ {
		b.d.table[addr] = Access{Kind: Hook, ReadFn: read, WriteFn: write}
	}
	return b
}

func (b *Builder) Build() *Decoder { return b.d }

func (d *Decoder) Read(addr uint16) byte          { return d.table[addr].read(addr) }
func (d *Decoder) Write(addr uint16, v byte)      { d.table[addr].write(addr, v) }
func (d *Decoder) Entry(addr uint16) Access       { return d.table[addr] }
func (d *Decoder) SetEntry(addr uint16, a Access) { d.table[addr] = a }
