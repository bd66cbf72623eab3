// Package savestate assembles the per-component State/SaveState/LoadState
// values scattered across cpu, mmu, bus, interrupt, timer, joypad, serial,
// apu, ppu, dma and cart into one versioned snapshot, the way each
// component's own SaveState already does for itself with gob.
package savestate

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/kjallen-dev/gbcore/internal/apu"
	"github.com/kjallen-dev/gbcore/internal/cpu"
	"github.com/kjallen-dev/gbcore/internal/dma"
	"github.com/kjallen-dev/gbcore/internal/interrupt"
	"github.com/kjallen-dev/gbcore/internal/joypad"
	"github.com/kjallen-dev/gbcore/internal/mmu"
	"github.com/kjallen-dev/gbcore/internal/ppu"
	"github.com/kjallen-dev/gbcore/internal/serial"
	"github.com/kjallen-dev/gbcore/internal/timer"
)

// magic identifies a snapshot file; version bumps whenever the envelope's
// field order or any component's State shape changes in a way gob can't
// paper over (a field rename, not just an addition).
var magic = [4]byte{'G', 'B', 'C', 'S'}

const version = 1

// Envelope is the fixed component order every snapshot is written and read
// in. Cart is kept as an opaque blob (its own mapper-specific SaveState)
// since its shape depends on which mapper cart.New picked for this ROM.
type Envelope struct {
	CPU       cpu.State
	Mmu       mmu.State
	Interrupt interrupt.State
	Timer     timer.State
	Joypad    joypad.State
	Serial    serial.State
	Apu       apu.State
	PPU       ppu.State
	Dma       dma.State
	CartType  byte
	Cart      []byte
}

// Encode writes the magic header, version, and gob-encoded envelope.
func Encode(e Envelope) ([]byte, error) {
	var body bytes.Buffer
	if err := gob.NewEncoder(&body).Encode(e); err != nil {
		return nil, fmt.Errorf("savestate: encode: %w", err)
	}

	var out bytes.Buffer
	out.Write(magic[:])
	binary.Write(&out, binary.BigEndian, uint32(version))
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// Decode validates the header and decodes the envelope into dst.
func Decode(data []byte, dst *Envelope) error {
	if len(data) < 8 || [4]byte{data[0], data[1], data[2], data[3]} != magic {
		return fmt.Errorf("savestate: bad magic")
	}
	v := binary.BigEndian.Uint32(data[4:8])
	if v != version {
		return fmt.Errorf("savestate: unsupported version %d (want %d)", v, version)
	}
	return gob.NewDecoder(bytes.NewReader(data[8:])).Decode(dst)
}
