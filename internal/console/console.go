// Package console wires the cartridge, address decoder, CPU, PPU, timer,
// joypad, serial port, APU, and DMA controller into one machine driven by
// a fixed per-T-cycle step order, and assembles/restores save states
// across all of them.
package console

import (
	"github.com/kjallen-dev/gbcore/internal/apu"
	"github.com/kjallen-dev/gbcore/internal/cart"
	"github.com/kjallen-dev/gbcore/internal/cpu"
	"github.com/kjallen-dev/gbcore/internal/dma"
	"github.com/kjallen-dev/gbcore/internal/interrupt"
	"github.com/kjallen-dev/gbcore/internal/joypad"
	"github.com/kjallen-dev/gbcore/internal/lcd"
	"github.com/kjallen-dev/gbcore/internal/mmu"
	"github.com/kjallen-dev/gbcore/internal/ppu"
	"github.com/kjallen-dev/gbcore/internal/savestate"
	"github.com/kjallen-dev/gbcore/internal/serial"
	"github.com/kjallen-dev/gbcore/internal/timer"
	"github.com/kjallen-dev/gbcore/internal/trace"
)

const cyclesPerFrame = 456 * 154 // dots per line x lines per frame

// Console is a full DMG machine. Step advances it by exactly one T-cycle,
// in the fixed order the hardware's shared clock implies: the MMU resolves
// DMA's source read first since a CPU access in the same cycle may land on
// the same bus, the timer and PPU advance on every cycle regardless of
// what the CPU is doing, and the CPU acts last so its reads/writes observe
// this cycle's DMA conflict state.
type Console struct {
	rom  []byte
	cart cart.Cartridge

	bootROM       []byte
	bootROMActive bool

	decoder *mmu.Decoder
	mmu     *mmu.Mmu

	interrupts *interrupt.Controller
	cpu        *cpu.Cpu
	ppu        *ppu.PPU
	timer      *timer.Timer
	joypad     *joypad.Joypad
	serial     *serial.Serial
	apu        *apu.APU
	dma        *dma.Dma
	screen     *lcd.Lcd

	wram [0x2000]byte
	hram [0x7F]byte
	io   [0x80]byte // backing for IO registers with no dedicated component

	dmaLatch byte

	sink trace.Sink
}

// New builds a Console for rom, with an optional bootROM (nil skips the
// boot sequence and resets straight to DMG post-boot state).
func New(rom []byte, bootROM []byte, sink trace.Sink) *Console {
	if sink == nil {
		sink = trace.NopSink{}
	}
	c := &Console{
		rom:     rom,
		cart:    cart.New(rom),
		bootROM: bootROM,
		screen:  lcd.New(),
		sink:    sink,
	}
	c.interrupts = interrupt.New()
	c.ppu = ppu.New(c.interrupts, c.screen, sink)
	c.timer = timer.New(c.interrupts)
	c.joypad = joypad.New(c.interrupts)
	c.serial = serial.New(c.interrupts, nil)
	c.apu = apu.New()
	c.dma = dma.New(c.ppu.OamStore(), c.ppu.OamBus())

	c.decoder = c.buildDecoder()
	c.mmu = mmu.New(c.decoder, c.dma)
	c.cpu = cpu.New(c.mmu, c.interrupts, sink)

	if len(bootROM) >= 0x100 {
		c.bootROMActive = true
		c.mmu.MapBootROM()
		c.cpu.PC = 0x0000
		c.cpu.SP = 0xFFFE
	} else {
		c.resetPostBoot()
	}
	return c
}

// resetPostBoot mirrors the DMG boot ROM's hand-off state for runs that
// skip boot ROM execution entirely.
func (c *Console) resetPostBoot() {
	c.cpu.ResetPostBoot()
	c.decoder.Write(0xFF00, 0xCF)
	c.decoder.Write(0xFF05, 0x00)
	c.decoder.Write(0xFF06, 0x00)
	c.decoder.Write(0xFF07, 0x00)
	c.decoder.Write(0xFF40, 0x91)
	c.decoder.Write(0xFF42, 0x00)
	c.decoder.Write(0xFF43, 0x00)
	c.decoder.Write(0xFF45, 0x00)
	c.decoder.Write(0xFF47, 0xFC)
	c.decoder.Write(0xFF48, 0xFF)
	c.decoder.Write(0xFF49, 0xFF)
	c.decoder.Write(0xFF4A, 0x00)
	c.decoder.Write(0xFF4B, 0x00)
	c.decoder.Write(0xFFFF, 0x00)
}

func (c *Console) buildDecoder() *mmu.Decoder {
	b := mmu.NewBuilder()

	b.MapHook(0x0000, 0x00FF, c.readLowROM, c.cart.WriteRom)
	b.MapHook(0x0100, 0x7FFF, c.cart.ReadRom, c.cart.WriteRom)
	b.MapHook(0xA000, 0xBFFF, c.cart.ReadRam, c.cart.WriteRam)

	b.MapDirect(0xC000, 0xDFFF, c.wram[:], 0)
	b.MapDirect(0xE000, 0xFDFF, c.wram[:], 0) // echo RAM mirrors C000-DDFF

	b.MapHook(0x8000, 0x9FFF, c.ppu.CPURead, c.ppu.CPUWrite)
	b.MapHook(0xFE00, 0xFE9F, c.ppu.CPURead, c.ppu.CPUWrite)
	b.MapHook(0xFEA0, 0xFEFF, func(uint16) byte { return 0xFF }, func(uint16, byte) {})

	b.MapDirect(0xFF00, 0xFF7F, c.io[:], 0) // generic backing, overridden below
	b.MapHook(0xFF00, 0xFF00, func(uint16) byte { return c.joypad.Read() }, func(_ uint16, v byte) { c.joypad.Write(v) })
	b.MapHook(0xFF01, 0xFF01, func(uint16) byte { return c.serial.ReadSB() }, func(_ uint16, v byte) { c.serial.WriteSB(v) })
	b.MapHook(0xFF02, 0xFF02, func(uint16) byte { return c.serial.ReadSC() }, func(_ uint16, v byte) { c.serial.WriteSC(v) })
	b.MapHook(0xFF04, 0xFF04, func(uint16) byte { return c.timer.ReadDiv() }, func(_ uint16, v byte) { c.timer.WriteDiv(v) })
	b.MapHook(0xFF05, 0xFF05, func(uint16) byte { return c.timer.ReadTima() }, func(_ uint16, v byte) { c.timer.WriteTima(v) })
	b.MapHook(0xFF06, 0xFF06, func(uint16) byte { return c.timer.ReadTma() }, func(_ uint16, v byte) { c.timer.WriteTma(v) })
	b.MapHook(0xFF07, 0xFF07, func(uint16) byte { return c.timer.ReadTac() }, func(_ uint16, v byte) { c.timer.WriteTac(v) })
	b.MapHook(0xFF0F, 0xFF0F, func(uint16) byte { return c.interrupts.ReadIF() }, func(_ uint16, v byte) { c.interrupts.WriteIF(v) })
	b.MapHook(0xFF10, 0xFF3F, c.apu.CPURead, c.apu.CPUWrite)
	b.MapHook(0xFF40, 0xFF4B, c.ppu.CPURead, c.ppu.CPUWrite)
	b.MapHook(0xFF46, 0xFF46, func(uint16) byte { return c.dmaLatch }, c.startDMA)
	b.MapHook(0xFF50, 0xFF50, func(uint16) byte { return 0xFF }, c.writeBootROMDisable)

	b.MapDirect(0xFF80, 0xFFFE, c.hram[:], 0)
	b.MapHook(0xFFFF, 0xFFFF, func(uint16) byte { return c.interrupts.ReadIE() }, func(_ uint16, v byte) { c.interrupts.WriteIE(v) })

	return b.Build()
}

func (c *Console) readLowROM(addr uint16) byte {
	if c.bootROMActive && int(addr) < len(c.bootROM) {
		return c.bootROM[addr]
	}
	return c.cart.ReadRom(addr)
}

func (c *Console) startDMA(_ uint16, v byte) {
	c.dmaLatch = v
	c.dma.StartTransfer(v)
}

func (c *Console) writeBootROMDisable(_ uint16, v byte) {
	if v != 0 {
		c.bootROMActive = false
		c.mmu.UnmapBootROM()
	}
}

// Step advances the machine by exactly one T-cycle.
func (c *Console) Step() {
	c.mmu.TickT0()
	c.timer.Tick()
	c.ppu.Tick(1)
	c.cpu.Tick()
}

// StepFrame runs one frame's worth of T-cycles (70224 at normal speed).
func (c *Console) StepFrame() {
	for i := 0; i < cyclesPerFrame; i++ {
		c.Step()
	}
}

// Err reports a fatal CPU error (invalid opcode), if one has occurred.
func (c *Console) Err() error { return c.cpu.Err() }

func (c *Console) Framebuffer() []byte { return c.screen.Framebuffer() }
func (c *Console) Screen() *lcd.Lcd    { return c.screen }

// SetButton updates one joypad line's pressed state.
func (c *Console) SetButton(b joypad.Button, pressed bool) { c.joypad.SetPressed(b, pressed) }

// SaveBattery/LoadBattery expose the cartridge's persistent RAM, if any.
func (c *Console) SaveBattery() ([]byte, bool) {
	bb, ok := c.cart.(cart.BatteryBacked)
	if !ok {
		return nil, false
	}
	return bb.SaveRAM(), true
}

func (c *Console) LoadBattery(data []byte) bool {
	bb, ok := c.cart.(cart.BatteryBacked)
	if !ok {
		return false
	}
	bb.LoadRAM(data)
	return true
}

// SaveState assembles a full snapshot of every component in the fixed
// envelope order savestate.Envelope defines.
func (c *Console) SaveState() ([]byte, error) {
	var cartType byte
	if h, err := cart.ParseHeader(c.rom); err == nil {
		cartType = h.CartType
	}
	return savestate.Encode(savestate.Envelope{
		CPU:       c.cpu.SaveState(),
		Mmu:       c.mmu.SaveState(),
		Interrupt: c.interrupts.SaveState(),
		Timer:     c.timer.SaveState(),
		Joypad:    c.joypad.SaveState(),
		Serial:    c.serial.SaveState(),
		Apu:       c.apu.SaveState(),
		PPU:       c.ppu.SaveState(),
		Dma:       c.dma.SaveState(),
		CartType:  cartType,
		Cart:      c.cart.SaveState(),
	})
}

// LoadState restores every component from a snapshot produced by SaveState.
// Bus ownership state (VRAM/OAM acquirers, including DMA's hold on the OAM
// bus) is carried inside ppu.State; ppu.LoadState rebinds both buses and
// the DMA controller is rebound here against this Console's own backing
// stores, since those aren't part of the serialized snapshot.
func (c *Console) LoadState(data []byte) error {
	var e savestate.Envelope
	if err := savestate.Decode(data, &e); err != nil {
		return err
	}
	c.cpu.LoadState(e.CPU)
	c.mmu.LoadState(e.Mmu)
	c.interrupts.LoadState(e.Interrupt)
	c.timer.LoadState(e.Timer)
	c.joypad.LoadState(e.Joypad)
	c.serial.LoadState(e.Serial)
	c.apu.LoadState(e.Apu)
	c.ppu.LoadState(e.PPU)
	c.dma.LoadState(e.Dma)
	c.dma.Rebind(c.ppu.OamStore(), c.ppu.OamBus())
	c.cart.LoadState(e.Cart)
	c.bootROMActive = c.mmu.BootROMMapped()
	return nil
}
