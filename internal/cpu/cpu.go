// Package cpu implements the SM83 core: register file, ALU, the IME state
// machine, HALT/STOP handling, and interrupt dispatch. Instructions run as
// a queue of micro-ops (see microop.go/tables.go), one micro-op per M-cycle
// of four Ticks,
// so that a multi-cycle instruction's individual memory accesses observe
// the bus/DMA/PPU arbitration state at the exact T-cycle they occur on
// rather than only at the instruction's start.
package cpu

import (
	"fmt"

	"github.com/kjallen-dev/gbcore/internal/interrupt"
	"github.com/kjallen-dev/gbcore/internal/mmu"
	"github.com/kjallen-dev/gbcore/internal/trace"
)

type imeState int

const (
	imeDisabled imeState = iota
	imePending
	imeEnabled
)

// InvalidInstructionError is fatal: opcodes D3 DB DD E3 E4 EB EC ED F4 FC FD
// do not exist on real hardware and this core does not guess a behavior.
type InvalidInstructionError struct {
	PC     uint16
	Opcode byte
}

func (e *InvalidInstructionError) Error() string {
	return fmt.Sprintf("invalid instruction %#02x at pc=%#04x", e.Opcode, e.PC)
}

var invalidOpcodes = map[byte]bool{
	0xD3: true, 0xDB: true, 0xDD: true, 0xE3: true, 0xE4: true,
	0xEB: true, 0xEC: true, 0xED: true, 0xF4: true, 0xFC: true, 0xFD: true,
}

type Cpu struct {
	A, F byte
	B, C byte
	D, E byte
	H, L byte
	SP   uint16
	PC   uint16

	ime     imeState
	halted  bool
	haltBug bool
	stopped bool

	mem        *mmu.Mmu
	interrupts *interrupt.Controller
	sink       trace.Sink

	tPhase    int // 0-3, which T-cycle of the current M-cycle we're on
	remaining int // T-cycles left before the CPU is free to act again

	steps      []microOp
	stepIdx    int
	onComplete func(c *Cpu)

	wasEIPending bool
	isrVector    uint16

	scratch8  byte
	scratchLo byte
	scratchHi byte

	err error // set by an invalid instruction; Tick becomes a no-op after this
}

func New(mem *mmu.Mmu, ic *interrupt.Controller, sink trace.Sink) *Cpu {
	if sink == nil {
		sink = trace.NopSink{}
	}
	return &Cpu{mem: mem, interrupts: ic, sink: sink, SP: 0xFFFE}
}

// ResetPostBoot sets the registers a DMG leaves behind after its internal
// boot ROM hands off control, for runs that skip boot ROM execution.
func (c *Cpu) ResetPostBoot() {
	c.A, c.F = 0x01, 0xB0
	c.B, c.C = 0x00, 0x13
	c.D, c.E = 0x00, 0xD8
	c.H, c.L = 0x01, 0x4D
	c.SP, c.PC = 0xFFFE, 0x0100
	c.ime = imeDisabled
}

// Err reports a fatal invalid-instruction error, if one occurred.
func (c *Cpu) Err() error { return c.err }

// Tick advances the CPU by one T-cycle. Most calls are no-ops: the CPU only
// acts once every `remaining` T-cycles. While remaining is counting down, a
// running instruction's current micro-op is posted to the bus at t0 of its
// M-cycle, flushed and resolved at t2, and the queue advances to the next
// micro-op at t3 — so a multi-M-cycle instruction's later memory accesses
// see whatever the bus/DMA/PPU state actually is at the T-cycle they occur
// on, not just at the T-cycle the instruction was fetched.
func (c *Cpu) Tick() {
	if c.err != nil {
		return
	}
	if c.remaining > 0 {
		c.remaining--
		c.tPhase = (c.tPhase + 1) & 3
		switch c.tPhase {
		case 0:
			c.postCurrentStep()
		case 2:
			c.resolveCurrentStep()
		case 3:
			c.advanceStep()
		}
		return
	}
	c.tPhase = 0

	pending := c.interrupts.Pending()
	if c.halted {
		if pending != 0 {
			latency := interruptLatency(c.sink, pending, true, c.tPhase, c.PC)
			c.remaining = latency - 1
			c.halted = false
			return
		}
		c.remaining = 3
		return
	}

	if c.ime == imeEnabled && pending != 0 {
		c.beginISR(pending)
		c.postCurrentStep()
		return
	}

	c.beginFetch()
	c.postCurrentStep()
}

type State struct {
	A, F, B, C, D, E, H, L byte
	SP, PC                 uint16
	Ime                    imeState
	Halted, HaltBug        bool
	Stopped                bool
}

func (c *Cpu) SaveState() State {
	return State{c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L, c.SP, c.PC, c.ime, c.halted, c.haltBug, c.stopped}
}

func (c *Cpu) LoadState(s State) {
	c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L = s.A, s.F, s.B, s.C, s.D, s.E, s.H, s.L
	c.SP, c.PC = s.SP, s.PC
	c.ime, c.halted, c.haltBug, c.stopped = s.Ime, s.Halted, s.HaltBug, s.Stopped
	c.remaining, c.tPhase = 0, 0
	c.steps, c.stepIdx, c.onComplete = nil, 0, nil
}
