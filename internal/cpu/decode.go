package cpu

// Helpers for the 16-bit register-pair field used by most opcode groups:
// group1 (SP as the 4th pair) is used by LD rr,d16 / INC rr / DEC rr / ADD HL,rr;
// group3 (AF as the 4th pair) is used by PUSH rr / POP rr. These, and the
// flag/ALU helpers below, are pure register computation shared by the
// micro-op table built in tables.go; none of them touch the bus.

func (c *Cpu) getRP1(i int) uint16 {
	switch i {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		return c.HL()
	default:
		return c.SP
	}
}

func (c *Cpu) setRP1(i int, v uint16) {
	switch i {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHL(v)
	default:
		c.SP = v
	}
}

func (c *Cpu) getRP3(i int) uint16 {
	switch i {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		return c.HL()
	default:
		return c.AF()
	}
}

func (c *Cpu) setRP3(i int, v uint16) {
	switch i {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHL(v)
	default:
		c.setAF(v)
	}
}

func (c *Cpu) condTaken(cc int) bool {
	switch cc {
	case 0:
		return !c.flagZ()
	case 1:
		return c.flagZ()
	case 2:
		return !c.flagC()
	default:
		return c.flagC()
	}
}

func flagsZNH(z, n, h bool) byte {
	var f byte
	if z {
		f |= flagZ
	}
	if n {
		f |= flagN
	}
	if h {
		f |= flagH
	}
	return f
}

func carryFlag(cy bool) byte {
	if cy {
		return flagC
	}
	return 0
}

func (c *Cpu) aluOp(op int, v byte) {
	switch op {
	case 0: // ADD
		res, z, n, h, cy := add8(c.A, v)
		c.A, c.F = res, flagsZNH(z, n, h)|carryFlag(cy)
	case 1: // ADC
		res, z, n, h, cy := adc8(c.A, v, c.flagC())
		c.A, c.F = res, flagsZNH(z, n, h)|carryFlag(cy)
	case 2: // SUB
		res, z, n, h, cy := sub8(c.A, v)
		c.A, c.F = res, flagsZNH(z, n, h)|carryFlag(cy)
	case 3: // SBC
		res, z, n, h, cy := sbc8(c.A, v, c.flagC())
		c.A, c.F = res, flagsZNH(z, n, h)|carryFlag(cy)
	case 4: // AND
		res, z, n, h, cy := and8(c.A, v)
		c.A, c.F = res, flagsZNH(z, n, h)|carryFlag(cy)
	case 5: // XOR
		res, z, n, h, cy := xor8(c.A, v)
		c.A, c.F = res, flagsZNH(z, n, h)|carryFlag(cy)
	case 6: // OR
		res, z, n, h, cy := or8(c.A, v)
		c.A, c.F = res, flagsZNH(z, n, h)|carryFlag(cy)
	case 7: // CP
		z, n, h, cy := cp8(c.A, v)
		c.F = flagsZNH(z, n, h) | carryFlag(cy)
	}
}

func (c *Cpu) addHL(rhs uint16) {
	hl := c.HL()
	sum := uint32(hl) + uint32(rhs)
	h := (hl&0xFFF)+(rhs&0xFFF) > 0xFFF
	c.setHL(uint16(sum))
	c.F = c.F&flagZ | flagsZNH(false, false, h) | carryFlag(sum > 0xFFFF)
}

// spOffset computes the shared SP+e8 arithmetic used by ADD SP,r8 and
// LD HL,SP+r8; off is the already-fetched signed displacement byte.
func spOffset(sp uint16, off byte) (res uint16, h, cy bool) {
	res = uint16(int32(sp) + int32(int8(off)))
	h = (sp&0xF)+uint16(off&0xF) > 0xF
	cy = (sp&0xFF)+uint16(off) > 0xFF
	return
}
