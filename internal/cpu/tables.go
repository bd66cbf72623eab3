package cpu

// buildOpcodeTable populates opcodeTable/stepCount/immediate for every
// non-prefixed opcode, following the same x/y/z field decomposition the
// opcode map is conventionally described by (x=op>>6, y=(op>>3)&7,
// z=op&7). Each regular group below is built with a loop over the field
// that varies; opcodes with idiosyncratic timing (STOP, the stack and
// branch instructions, the 16-bit loads) are spelled out individually.
func buildOpcodeTable() {
	setImmediate(0x00, func(c *Cpu) {})

	for rp := 0; rp < 4; rp++ {
		rp := rp
		setRow(byte(0x01+rp*0x10), []microOp{
			readPC(func(c *Cpu, v byte) { c.scratchLo = v }),
			readPC(func(c *Cpu, v byte) { c.setRP1(rp, uint16(v)<<8|uint16(c.scratchLo)) }),
		})
		setRow(byte(0x03+rp*0x10), []microOp{
			internal(func(c *Cpu) { c.setRP1(rp, c.getRP1(rp)+1) }),
		})
		setRow(byte(0x0B+rp*0x10), []microOp{
			internal(func(c *Cpu) { c.setRP1(rp, c.getRP1(rp)-1) }),
		})
		setRow(byte(0x09+rp*0x10), []microOp{
			internal(func(c *Cpu) { c.addHL(c.getRP1(rp)) }),
		})
	}

	setRow(0x02, []microOp{writeAt(func(c *Cpu) uint16 { return c.BC() }, func(c *Cpu) byte { return c.A })})
	setRow(0x12, []microOp{writeAt(func(c *Cpu) uint16 { return c.DE() }, func(c *Cpu) byte { return c.A })})
	setRow(0x22, []microOp{writeAtThen(func(c *Cpu) uint16 { return c.HL() }, func(c *Cpu) byte { return c.A },
		func(c *Cpu) { c.setHL(c.HL() + 1) })})
	setRow(0x32, []microOp{writeAtThen(func(c *Cpu) uint16 { return c.HL() }, func(c *Cpu) byte { return c.A },
		func(c *Cpu) { c.setHL(c.HL() - 1) })})

	setRow(0x0A, []microOp{readAt(func(c *Cpu) uint16 { return c.BC() }, func(c *Cpu, v byte) { c.A = v })})
	setRow(0x1A, []microOp{readAt(func(c *Cpu) uint16 { return c.DE() }, func(c *Cpu, v byte) { c.A = v })})
	setRow(0x2A, []microOp{readAt(func(c *Cpu) uint16 { return c.HL() }, func(c *Cpu, v byte) {
		c.A = v
		c.setHL(c.HL() + 1)
	})})
	setRow(0x3A, []microOp{readAt(func(c *Cpu) uint16 { return c.HL() }, func(c *Cpu, v byte) {
		c.A = v
		c.setHL(c.HL() - 1)
	})})

	for reg := 0; reg < 8; reg++ {
		reg := reg
		if reg == 6 {
			continue
		}
		incOp, decOp := byte(0x04+reg*8), byte(0x05+reg*8)
		setImmediate(incOp, func(c *Cpu) {
			res, z, n, h := inc8(c.reg8(reg))
			c.setReg8(reg, res)
			c.F = c.F&flagC | flagsZNH(z, n, h)
		})
		setImmediate(decOp, func(c *Cpu) {
			res, z, n, h := dec8(c.reg8(reg))
			c.setReg8(reg, res)
			c.F = c.F&flagC | flagsZNH(z, n, h)
		})
		op := byte(0x06 + reg*8)
		setRow(op, []microOp{readPC(func(c *Cpu, v byte) { c.setReg8(reg, v) })})
	}
	setRow(0x34, []microOp{
		readAt(func(c *Cpu) uint16 { return c.HL() }, func(c *Cpu, v byte) {
			res, z, n, h := inc8(v)
			c.scratch8 = res
			c.F = c.F&flagC | flagsZNH(z, n, h)
		}),
		writeAt(func(c *Cpu) uint16 { return c.HL() }, func(c *Cpu) byte { return c.scratch8 }),
	})
	setRow(0x35, []microOp{
		readAt(func(c *Cpu) uint16 { return c.HL() }, func(c *Cpu, v byte) {
			res, z, n, h := dec8(v)
			c.scratch8 = res
			c.F = c.F&flagC | flagsZNH(z, n, h)
		}),
		writeAt(func(c *Cpu) uint16 { return c.HL() }, func(c *Cpu) byte { return c.scratch8 }),
	})
	setRow(0x36, []microOp{
		readPC(func(c *Cpu, v byte) { c.scratch8 = v }),
		writeAt(func(c *Cpu) uint16 { return c.HL() }, func(c *Cpu) byte { return c.scratch8 }),
	})

	setImmediate(0x07, func(c *Cpu) { res, cy := rlc(c.A); c.A = res; c.F = carryFlag(cy) })
	setImmediate(0x0F, func(c *Cpu) { res, cy := rrc(c.A); c.A = res; c.F = carryFlag(cy) })
	setImmediate(0x17, func(c *Cpu) { res, cy := rl(c.A, c.flagC()); c.A = res; c.F = carryFlag(cy) })
	setImmediate(0x1F, func(c *Cpu) { res, cy := rr(c.A, c.flagC()); c.A = res; c.F = carryFlag(cy) })
	setImmediate(0x27, func(c *Cpu) { c.A, c.F = daa(c.A, c.F) })
	setImmediate(0x2F, func(c *Cpu) { c.A = ^c.A; c.F = c.F&(flagZ|flagC) | flagN | flagH })
	setImmediate(0x37, func(c *Cpu) { c.F = c.F&flagZ | flagC })
	setImmediate(0x3F, func(c *Cpu) { c.F = c.F&flagZ | (c.F&flagC)^flagC })

	setRow(0x08, []microOp{
		readPC(func(c *Cpu, v byte) { c.scratchLo = v }),
		readPC(func(c *Cpu, v byte) { c.scratchHi = v }),
		writeAt(func(c *Cpu) uint16 { return uint16(c.scratchHi)<<8 | uint16(c.scratchLo) },
			func(c *Cpu) byte { return byte(c.SP) }),
		writeAt(func(c *Cpu) uint16 { return (uint16(c.scratchHi)<<8 | uint16(c.scratchLo)) + 1 },
			func(c *Cpu) byte { return byte(c.SP >> 8) }),
	})

	setImmediate(0x10, func(c *Cpu) {
		c.mem.CPURead(c.PC) // consume the padding byte; STOP's 1 M-cycle quirk isn't modeled beyond this
		c.PC++
		c.stopped = true
	})

	setRow(0x18, []microOp{
		readPC(func(c *Cpu, v byte) { c.scratch8 = v }),
		internal(func(c *Cpu) { c.PC = uint16(int32(c.PC) + int32(int8(c.scratch8))) }),
	})
	for i := 0; i < 4; i++ {
		i := i
		setRow(byte(0x20+i*8), []microOp{
			{
				kind: opRead,
				addr: func(c *Cpu) uint16 { return c.PC },
				store: func(c *Cpu, v byte) {
					c.scratch8 = v
					c.PC++
				},
				branch: func(c *Cpu) bool { return c.condTaken(i) },
			},
			internal(func(c *Cpu) { c.PC = uint16(int32(c.PC) + int32(int8(c.scratch8))) }),
		})
	}

	for y := 0; y < 8; y++ {
		for z := 0; z < 8; z++ {
			op := byte(0x40 + y*8 + z)
			if op == 0x76 {
				continue
			}
			y, z := y, z
			switch {
			case y == 6:
				setRow(op, []microOp{writeAt(func(c *Cpu) uint16 { return c.HL() }, func(c *Cpu) byte { return c.reg8(z) })})
			case z == 6:
				setRow(op, []microOp{readAt(func(c *Cpu) uint16 { return c.HL() }, func(c *Cpu, v byte) { c.setReg8(y, v) })})
			default:
				setImmediate(op, func(c *Cpu) { c.setReg8(y, c.reg8(z)) })
			}
		}
	}
	setImmediate(0x76, func(c *Cpu) {
		if c.ime != imeEnabled && c.interrupts.Pending() != 0 {
			c.haltBug = true
		} else {
			c.halted = true
		}
	})

	for y := 0; y < 8; y++ {
		for z := 0; z < 8; z++ {
			op := byte(0x80 + y*8 + z)
			y, z := y, z
			if z == 6 {
				setRow(op, []microOp{readAt(func(c *Cpu) uint16 { return c.HL() }, func(c *Cpu, v byte) { c.aluOp(y, v) })})
			} else {
				setImmediate(op, func(c *Cpu) { c.aluOp(y, c.reg8(z)) })
			}
		}
	}
	for y := 0; y < 8; y++ {
		y := y
		setRow(byte(0xC6+y*8), []microOp{readPC(func(c *Cpu, v byte) { c.aluOp(y, v) })})
	}

	for i := 0; i < 4; i++ {
		i := i
		setRow(byte(0xC0+i*8), []microOp{
			{kind: opNone, branch: func(c *Cpu) bool { return c.condTaken(i) }},
			readAt(func(c *Cpu) uint16 { return c.SP }, func(c *Cpu, v byte) { c.scratchLo = v; c.SP++ }),
			readAt(func(c *Cpu) uint16 { return c.SP }, func(c *Cpu, v byte) { c.scratchHi = v; c.SP++ }),
			internal(func(c *Cpu) { c.PC = uint16(c.scratchHi)<<8 | uint16(c.scratchLo) }),
		})
	}
	setRow(0xC9, []microOp{
		readAt(func(c *Cpu) uint16 { return c.SP }, func(c *Cpu, v byte) { c.scratchLo = v; c.SP++ }),
		readAt(func(c *Cpu) uint16 { return c.SP }, func(c *Cpu, v byte) { c.scratchHi = v; c.SP++ }),
		internal(func(c *Cpu) { c.PC = uint16(c.scratchHi)<<8 | uint16(c.scratchLo) }),
	})
	setRow(0xD9, []microOp{
		readAt(func(c *Cpu) uint16 { return c.SP }, func(c *Cpu, v byte) { c.scratchLo = v; c.SP++ }),
		readAt(func(c *Cpu) uint16 { return c.SP }, func(c *Cpu, v byte) { c.scratchHi = v; c.SP++ }),
		internal(func(c *Cpu) {
			c.PC = uint16(c.scratchHi)<<8 | uint16(c.scratchLo)
			c.ime = imeEnabled
		}),
	})

	for i := 0; i < 4; i++ {
		i := i
		setRow(byte(0xC4+i*8), []microOp{
			readPC(func(c *Cpu, v byte) { c.scratchLo = v }),
			{
				kind: opRead,
				addr: func(c *Cpu) uint16 { return c.PC },
				store: func(c *Cpu, v byte) {
					c.scratchHi = v
					c.PC++
				},
				branch: func(c *Cpu) bool { return c.condTaken(i) },
			},
			internal(func(c *Cpu) { c.SP-- }),
			writeAtThen(func(c *Cpu) uint16 { return c.SP }, func(c *Cpu) byte { return byte(c.PC >> 8) },
				func(c *Cpu) { c.SP-- }),
			writeAtThen(func(c *Cpu) uint16 { return c.SP }, func(c *Cpu) byte { return byte(c.PC) },
				func(c *Cpu) { c.PC = uint16(c.scratchHi)<<8 | uint16(c.scratchLo) }),
		})
	}
	setRow(0xCD, []microOp{
		readPC(func(c *Cpu, v byte) { c.scratchLo = v }),
		readPC(func(c *Cpu, v byte) { c.scratchHi = v }),
		internal(func(c *Cpu) { c.SP-- }),
		writeAtThen(func(c *Cpu) uint16 { return c.SP }, func(c *Cpu) byte { return byte(c.PC >> 8) },
			func(c *Cpu) { c.SP-- }),
		writeAtThen(func(c *Cpu) uint16 { return c.SP }, func(c *Cpu) byte { return byte(c.PC) },
			func(c *Cpu) { c.PC = uint16(c.scratchHi)<<8 | uint16(c.scratchLo) }),
	})

	for i := 0; i < 4; i++ {
		i := i
		setRow(byte(0xC2+i*8), []microOp{
			readPC(func(c *Cpu, v byte) { c.scratchLo = v }),
			{
				kind: opRead,
				addr: func(c *Cpu) uint16 { return c.PC },
				store: func(c *Cpu, v byte) {
					c.scratchHi = v
					c.PC++
				},
				branch: func(c *Cpu) bool { return c.condTaken(i) },
			},
			internal(func(c *Cpu) { c.PC = uint16(c.scratchHi)<<8 | uint16(c.scratchLo) }),
		})
	}
	setRow(0xC3, []microOp{
		readPC(func(c *Cpu, v byte) { c.scratchLo = v }),
		readPC(func(c *Cpu, v byte) { c.scratchHi = v }),
		internal(func(c *Cpu) { c.PC = uint16(c.scratchHi)<<8 | uint16(c.scratchLo) }),
	})
	setImmediate(0xE9, func(c *Cpu) { c.PC = c.HL() })

	for rp := 0; rp < 4; rp++ {
		rp := rp
		setRow(byte(0xC5+rp*0x10), []microOp{
			internal(func(c *Cpu) { c.SP-- }),
			writeAtThen(func(c *Cpu) uint16 { return c.SP }, func(c *Cpu) byte { return byte(c.getRP3(rp) >> 8) },
				func(c *Cpu) { c.SP-- }),
			writeAt(func(c *Cpu) uint16 { return c.SP }, func(c *Cpu) byte { return byte(c.getRP3(rp)) }),
		})
		setRow(byte(0xC1+rp*0x10), []microOp{
			readAt(func(c *Cpu) uint16 { return c.SP }, func(c *Cpu, v byte) { c.scratchLo = v; c.SP++ }),
			readAt(func(c *Cpu) uint16 { return c.SP }, func(c *Cpu, v byte) {
				c.scratchHi = v
				c.SP++
				c.setRP3(rp, uint16(c.scratchHi)<<8|uint16(c.scratchLo))
			}),
		})
	}

	for y := 0; y < 8; y++ {
		y := y
		setRow(byte(0xC7+y*8), []microOp{
			internal(func(c *Cpu) { c.SP-- }),
			writeAtThen(func(c *Cpu) uint16 { return c.SP }, func(c *Cpu) byte { return byte(c.PC >> 8) },
				func(c *Cpu) { c.SP-- }),
			writeAtThen(func(c *Cpu) uint16 { return c.SP }, func(c *Cpu) byte { return byte(c.PC) },
				func(c *Cpu) { c.PC = uint16(y) * 8 }),
		})
	}

	setRow(0xE0, []microOp{
		readPC(func(c *Cpu, v byte) { c.scratchLo = v }),
		writeAt(func(c *Cpu) uint16 { return 0xFF00 | uint16(c.scratchLo) }, func(c *Cpu) byte { return c.A }),
	})
	setRow(0xF0, []microOp{
		readPC(func(c *Cpu, v byte) { c.scratchLo = v }),
		readAt(func(c *Cpu) uint16 { return 0xFF00 | uint16(c.scratchLo) }, func(c *Cpu, v byte) { c.A = v }),
	})
	setRow(0xE2, []microOp{writeAt(func(c *Cpu) uint16 { return 0xFF00 | uint16(c.C) }, func(c *Cpu) byte { return c.A })})
	setRow(0xF2, []microOp{readAt(func(c *Cpu) uint16 { return 0xFF00 | uint16(c.C) }, func(c *Cpu, v byte) { c.A = v })})
	setRow(0xEA, []microOp{
		readPC(func(c *Cpu, v byte) { c.scratchLo = v }),
		readPC(func(c *Cpu, v byte) { c.scratchHi = v }),
		writeAt(func(c *Cpu) uint16 { return uint16(c.scratchHi)<<8 | uint16(c.scratchLo) }, func(c *Cpu) byte { return c.A }),
	})
	setRow(0xFA, []microOp{
		readPC(func(c *Cpu, v byte) { c.scratchLo = v }),
		readPC(func(c *Cpu, v byte) { c.scratchHi = v }),
		readAt(func(c *Cpu) uint16 { return uint16(c.scratchHi)<<8 | uint16(c.scratchLo) }, func(c *Cpu, v byte) { c.A = v }),
	})

	setRow(0xE8, []microOp{
		readPC(func(c *Cpu, v byte) { c.scratch8 = v }),
		internal(nil),
		internal(func(c *Cpu) {
			res, h, cy := spOffset(c.SP, c.scratch8)
			c.SP = res
			c.F = flagsZNH(false, false, h) | carryFlag(cy)
		}),
	})
	setRow(0xF8, []microOp{
		readPC(func(c *Cpu, v byte) { c.scratch8 = v }),
		internal(func(c *Cpu) {
			res, h, cy := spOffset(c.SP, c.scratch8)
			c.setHL(res)
			c.F = flagsZNH(false, false, h) | carryFlag(cy)
		}),
	})
	setRow(0xF9, []microOp{internal(func(c *Cpu) { c.SP = c.HL() })})

	setImmediate(0xF3, func(c *Cpu) { c.ime = imeDisabled })
	setImmediate(0xFB, func(c *Cpu) { c.ime = imePending })

	setRow(0xCB, []microOp{readPC(func(c *Cpu, v byte) { c.dispatchCB(v) })})
}

// buildCBTable populates cbTable/cbStepCount/cbImmediate for the 256
// CB-prefixed opcodes, again by the x/y/z decomposition: x=0 is the
// rotate/shift group keyed by y, x=1/2/3 are BIT/RES/SET keyed by bit
// index y. In every group, z=6 ((HL)) costs an extra read+write-back
// M-cycle (or just a read for BIT, which touches no register state);
// every other z is a same-M-cycle register operation.
func buildCBTable() {
	rotate := func(c *Cpu, y int, v byte) (byte, bool) {
		switch y {
		case 0:
			return rlc(v)
		case 1:
			return rrc(v)
		case 2:
			return rl(v, c.flagC())
		case 3:
			return rr(v, c.flagC())
		case 4:
			return sla(v)
		case 5:
			return sra(v)
		case 6:
			return swap(v), false
		default:
			return srl(v)
		}
	}
	rotateFlags := func(y int, res byte, cy bool) byte {
		if y == 6 {
			return flagsZNH(res == 0, false, false)
		}
		return flagsZNH(res == 0, false, false) | carryFlag(cy)
	}

	for y := 0; y < 8; y++ {
		for z := 0; z < 8; z++ {
			op := byte(y*8 + z)
			y, z := y, z
			if z == 6 {
				setCBRow(op, []microOp{
					readAt(func(c *Cpu) uint16 { return c.HL() }, func(c *Cpu, v byte) {
						res, cy := rotate(c, y, v)
						c.scratch8 = res
						c.F = rotateFlags(y, res, cy)
					}),
					writeAt(func(c *Cpu) uint16 { return c.HL() }, func(c *Cpu) byte { return c.scratch8 }),
				})
			} else {
				setCBImmediate(op, func(c *Cpu) {
					res, cy := rotate(c, y, c.reg8(z))
					c.setReg8(z, res)
					c.F = rotateFlags(y, res, cy)
				})
			}
		}
	}

	for y := 0; y < 8; y++ {
		for z := 0; z < 8; z++ {
			op := byte(0x40 + y*8 + z)
			y, z := y, z
			bitCheck := func(c *Cpu, v byte) {
				zero := v&(1<<uint(y)) == 0
				c.F = c.F&flagC | flagsZNH(zero, false, true)
			}
			if z == 6 {
				setCBRow(op, []microOp{readAt(func(c *Cpu) uint16 { return c.HL() }, bitCheck)})
			} else {
				setCBImmediate(op, func(c *Cpu) { bitCheck(c, c.reg8(z)) })
			}
		}
	}

	for y := 0; y < 8; y++ {
		for z := 0; z < 8; z++ {
			op := byte(0x80 + y*8 + z)
			y, z := y, z
			if z == 6 {
				setCBRow(op, []microOp{
					readAt(func(c *Cpu) uint16 { return c.HL() }, func(c *Cpu, v byte) { c.scratch8 = v &^ (1 << uint(y)) }),
					writeAt(func(c *Cpu) uint16 { return c.HL() }, func(c *Cpu) byte { return c.scratch8 }),
				})
			} else {
				setCBImmediate(op, func(c *Cpu) { c.setReg8(z, c.reg8(z)&^(1<<uint(y))) })
			}
		}
	}

	for y := 0; y < 8; y++ {
		for z := 0; z < 8; z++ {
			op := byte(0xC0 + y*8 + z)
			y, z := y, z
			if z == 6 {
				setCBRow(op, []microOp{
					readAt(func(c *Cpu) uint16 { return c.HL() }, func(c *Cpu, v byte) { c.scratch8 = v | (1 << uint(y)) }),
					writeAt(func(c *Cpu) uint16 { return c.HL() }, func(c *Cpu) byte { return c.scratch8 }),
				})
			} else {
				setCBImmediate(op, func(c *Cpu) { c.setReg8(z, c.reg8(z)|(1<<uint(y))) })
			}
		}
	}
}
