package cpu

// stepKind discriminates what, if anything, a micro-op does on the bus.
type stepKind int

const (
	opNone  stepKind = iota // pure register computation or internal delay
	opRead                  // post a read address; store consumes the flushed byte
	opWrite                 // post a write address/value computed up front
)

// microOp is one M-cycle's worth of work: at most one posted memory access
// (spec §4.5's "at most one memory request per step"), plus an optional
// register-side effect that runs once that access (if any) has flushed.
// branch, when set, is evaluated right after run and can truncate the rest
// of the instruction's steps, modeling conditional instructions whose
// shorter (not-taken) timing skips the trailing M-cycles entirely.
type microOp struct {
	kind   stepKind
	addr   func(c *Cpu) uint16
	val    func(c *Cpu) byte
	store  func(c *Cpu, v byte)
	run    func(c *Cpu)
	branch func(c *Cpu) bool
}

// opcodeTable[op][:stepCount[op]] holds the M-cycles of a non-prefixed
// instruction beyond the universal opcode-fetch M-cycle every instruction
// starts with. cbTable is the same shape for CB-prefixed instructions,
// beyond the CB-prefix fetch and the suffix-opcode fetch. isrTable is the
// interrupt service routine's full 5 M-cycles, with no preceding fetch.
// Instructions with zero extra M-cycles (plain-register ALU, LD r,r', the
// control opcodes, JP (HL)...) instead run their whole effect immediately
// through immediate/cbImmediate, at the T-cycle the opcode itself becomes
// known, since there is no later M-cycle left to host it.
var (
	opcodeTable [256][6]microOp
	stepCount   [256]int
	immediate   [256]func(c *Cpu)

	cbTable     [256][4]microOp
	cbStepCount [256]int
	cbImmediate [256]func(c *Cpu)

	isrTable [5]microOp
)

func setRow(opcode byte, steps []microOp) {
	stepCount[opcode] = len(steps)
	copy(opcodeTable[opcode][:], steps)
}

func setImmediate(opcode byte, fn func(c *Cpu)) {
	immediate[opcode] = fn
}

func setCBRow(opcode byte, steps []microOp) {
	cbStepCount[opcode] = len(steps)
	copy(cbTable[opcode][:], steps)
}

func setCBImmediate(opcode byte, fn func(c *Cpu)) {
	cbImmediate[opcode] = fn
}

// readPC reads the byte at PC and advances PC, the shared shape of every
// operand/immediate fetch beyond the opcode itself.
func readPC(store func(c *Cpu, v byte)) microOp {
	return microOp{
		kind: opRead,
		addr: func(c *Cpu) uint16 { return c.PC },
		store: func(c *Cpu, v byte) {
			if store != nil {
				store(c, v)
			}
			c.PC++
		},
	}
}

func readAt(addr func(c *Cpu) uint16, store func(c *Cpu, v byte)) microOp {
	return microOp{kind: opRead, addr: addr, store: store}
}

func writeAt(addr func(c *Cpu) uint16, val func(c *Cpu) byte) microOp {
	return microOp{kind: opWrite, addr: addr, val: val}
}

func writeAtThen(addr func(c *Cpu) uint16, val func(c *Cpu) byte, run func(c *Cpu)) microOp {
	return microOp{kind: opWrite, addr: addr, val: val, run: run}
}

func internal(run func(c *Cpu)) microOp {
	return microOp{kind: opNone, run: run}
}

// postCurrentStep issues, at T-cycle t0 of an M-cycle, the one memory
// request (if any) the current micro-op makes.
func (c *Cpu) postCurrentStep() {
	if c.stepIdx < 0 || c.stepIdx >= len(c.steps) {
		return
	}
	op := &c.steps[c.stepIdx]
	switch op.kind {
	case opRead:
		c.mem.PostCPURead(op.addr(c))
	case opWrite:
		c.mem.PostCPUWrite(op.addr(c), op.val(c))
	}
}

// resolveCurrentStep flushes, at T-cycle t2, whatever was posted, then runs
// the step's register-side effect and, for conditional instructions, the
// branch check that may truncate the remaining steps.
func (c *Cpu) resolveCurrentStep() {
	if c.stepIdx < 0 || c.stepIdx >= len(c.steps) {
		return
	}
	op := &c.steps[c.stepIdx]
	switch op.kind {
	case opRead:
		v := c.mem.FlushCPURead(op.addr(c))
		if op.store != nil {
			op.store(c, v)
		}
	case opWrite:
		c.mem.FlushCPUWrite(op.addr(c))
	}
	if op.run != nil {
		op.run(c)
	}
	if op.branch != nil && !op.branch(c) {
		trimmed := len(c.steps) - (c.stepIdx + 1)
		c.steps = c.steps[:c.stepIdx+1]
		c.remaining -= trimmed * 4
	}
}

// advanceStep moves to the next queued micro-op at the T-cycle boundary
// between M-cycles. Once the current step group is exhausted it either
// finishes the instruction (running onComplete) or, for a redirect left by
// a fetch resolving mid-M-cycle, simply lands on the freshly installed
// table row. Called every M-cycle boundary regardless of whether anything
// is actually in flight, so it is a no-op once a unit has already
// completed (e.g. during a HALT-wake latency countdown).
func (c *Cpu) advanceStep() {
	if c.stepIdx >= len(c.steps) {
		return
	}
	c.stepIdx++
	if c.stepIdx >= len(c.steps) {
		if c.onComplete != nil {
			c.onComplete(c)
		}
	}
}

// beginFetch starts a fresh instruction's opcode-fetch M-cycle. The fetched
// byte's resolution (onFetchedOpcode) is what actually installs the
// instruction's steps, since the opcode must be known before it can be
// looked up in opcodeTable.
func (c *Cpu) beginFetch() {
	c.wasEIPending = c.ime == imePending
	c.steps = fetchUnit[:]
	c.stepIdx = 0
	c.remaining = 3
	c.onComplete = (*Cpu).finishFetchedInstruction
}

// fetchUnit is the universal opcode-fetch M-cycle every instruction starts
// with. PC only advances here when the HALT bug isn't in effect: on real
// hardware the bug is the fetch silently failing to increment PC, so the
// byte right after HALT gets decoded twice.
var fetchUnit = [1]microOp{
	{
		kind: opRead,
		addr: func(c *Cpu) uint16 { return c.PC },
		store: func(c *Cpu, v byte) {
			if c.haltBug {
				c.haltBug = false
			} else {
				c.PC++
			}
			c.onFetchedOpcode(v)
		},
	},
}

// onFetchedOpcode runs at the fetch M-cycle's t2, once the opcode byte and
// PC are both settled: it applies the invalid-opcode fatal path, or else
// installs either the opcode's immediate effect (zero extra M-cycles) or
// its row of opcodeTable[opcode][:stepCount[opcode]] as the steps to run
// one per M-cycle from here.
func (c *Cpu) onFetchedOpcode(opcode byte) {
	if invalidOpcodes[opcode] {
		c.sink.OnInvalidInstruction(c.PC-1, opcode)
		c.err = &InvalidInstructionError{PC: c.PC - 1, Opcode: opcode}
		c.steps = nil
		c.stepIdx = -1
		c.remaining = 0
		return
	}
	if fn := immediate[opcode]; fn != nil {
		fn(c)
	}
	n := stepCount[opcode]
	c.steps = opcodeTable[opcode][:n]
	c.stepIdx = -1
	c.remaining += n * 4
}

func (c *Cpu) finishFetchedInstruction() {
	if c.wasEIPending {
		c.ime = imeEnabled
	}
}

// dispatchCB runs at the CB-prefix's suffix-byte fetch resolve: it installs
// either the CB opcode's immediate register effect or its cbTable row.
func (c *Cpu) dispatchCB(opcode byte) {
	if fn := cbImmediate[opcode]; fn != nil {
		fn(c)
	}
	n := cbStepCount[opcode]
	c.steps = cbTable[opcode][:n]
	c.stepIdx = -1
	c.remaining += n * 4
}

// beginISR installs the 5-M-cycle interrupt service routine directly; there
// is no preceding fetch uncertainty since the vector is already known.
func (c *Cpu) beginISR(pending byte) {
	bit := 0
	for i := 0; i < 5; i++ {
		if pending&(1<<uint(i)) != 0 {
			bit = i
			break
		}
	}
	c.ime = imeDisabled
	c.interrupts.Clear(bit)
	c.isrVector = [5]uint16{0x40, 0x48, 0x50, 0x58, 0x60}[bit]

	c.steps = isrTable[:]
	c.stepIdx = 0
	c.remaining = 5*4 - 1
	c.onComplete = nil
}

func init() {
	buildOpcodeTable()
	buildCBTable()
	buildISR()
}

func buildISR() {
	isrTable[0] = internal(nil)
	isrTable[1] = internal(func(c *Cpu) { c.SP-- })
	isrTable[2] = writeAtThen(
		func(c *Cpu) uint16 { return c.SP },
		func(c *Cpu) byte { return byte(c.PC >> 8) },
		func(c *Cpu) { c.SP-- },
	)
	isrTable[3] = writeAt(func(c *Cpu) uint16 { return c.SP }, func(c *Cpu) byte { return byte(c.PC) })
	isrTable[4] = internal(func(c *Cpu) { c.PC = c.isrVector })
}
