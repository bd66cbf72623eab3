// Package joypad implements the JOYP (FF00) register: a 2x4 button matrix
// multiplexed by the CPU's column-select writes, requesting JOYPAD on any
// falling edge of a selected, previously-released line.
package joypad

import "github.com/kjallen-dev/gbcore/internal/interrupt"

type Button int

const (
	Right Button = iota
	Left
	Up
	Down
	A
	B
	Select
	Start
)

type Joypad struct {
	interrupts *interrupt.Controller

	selectButtons   bool // P15: bit 5 low selects A/B/Select/Start
	selectDirection bool // P14: bit 4 low selects Right/Left/Up/Down

	direction byte // bit0 Right, bit1 Left, bit2 Up, bit3 Down; 1 = released
	buttons   byte // bit0 A, bit1 B, bit2 Select, bit3 Start; 1 = released
}

func New(ic *interrupt.Controller) *Joypad {
	return &Joypad{interrupts: ic, direction: 0x0F, buttons: 0x0F}
}

// SetPressed updates a single button's state and requests JOYPAD on a
// falling edge of the corresponding line if its group is currently selected.
func (j *Joypad) SetPressed(b Button, pressed bool) {
	before := j.Read()
	switch {
	case b <= Down:
		bit := byte(1) << uint(b)
		if pressed {
			j.direction &^= bit
		} else {
			j.direction |= bit
		}
	default:
		bit := byte(1) << uint(b-A)
		if pressed {
			j.buttons &^= bit
		} else {
			j.buttons |= bit
		}
	}
	after := j.Read()
	// Falling edge on any output line (1 -> 0) requests the interrupt.
	if before&^after&0x0F != 0 {
		j.interrupts.Request(interrupt.Joypad)
	}
}

func (j *Joypad) Read() byte {
	lines := byte(0x0F)
	if j.selectDirection {
		lines &= j.direction
	}
	if j.selectButtons {
		lines &= j.buttons
	}
	out := byte(0xC0) | lines
	if !j.selectDirection {
		out |= 0x10
	}
	if !j.selectButtons {
		out |= 0x20
	}
	return out
}

func (j *Joypad) Write(v byte) {
	j.selectDirection = v&0x10 == 0
	j.selectButtons = v&0x20 == 0
}

type State struct {
	SelectButtons, SelectDirection bool
	Direction, Buttons             byte
}

func (j *Joypad) SaveState() State {
	return State{j.selectButtons, j.selectDirection, j.direction, j.buttons}
}

func (j *Joypad) LoadState(s State) {
	j.selectButtons, j.selectDirection = s.SelectButtons, s.SelectDirection
	j.direction, j.buttons = s.Direction, s.Buttons
}
