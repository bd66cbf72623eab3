// Package serial implements SB/SC (FF01/FF02). Only the internal-clock
// transfer path is modeled: a write to SC with bit7 and bit0 set shifts all
// 8 bits out immediately and raises SERIAL, matching the no-link-cable
// behavior most single-player ROMs rely on.
package serial

import "github.com/kjallen-dev/gbcore/internal/interrupt"

// Sink receives a transferred byte; the default is a no-op (no link cable).
type Sink interface {
	SendByte(v byte) (received byte)
}

type NopSink struct{}

func (NopSink) SendByte(byte) byte { return 0xFF }

type Serial struct {
	interrupts *interrupt.Controller
	sink       Sink

	sb byte
	sc byte
}

func New(ic *interrupt.Controller, sink Sink) *Serial {
	if sink == nil {
		sink = NopSink{}
	}
	return &Serial{interrupts: ic, sink: sink, sc: 0x7E}
}

func (s *Serial) ReadSB() byte { return s.sb }
func (s *Serial) WriteSB(v byte) { s.sb = v }

func (s *Serial) ReadSC() byte { return s.sc | 0x7E }

func (s *Serial) WriteSC(v byte) {
	s.sc = v & 0x81
	if s.sc&0x81 == 0x81 { // start transfer, internal clock
		s.sb = s.sink.SendByte(s.sb)
		s.sc &^= 0x80
		s.interrupts.Request(interrupt.Serial)
	}
}

type State struct {
	Sb, Sc byte
}

func (s *Serial) SaveState() State  { return State{s.sb, s.sc} }
func (s *Serial) LoadState(st State) { s.sb, s.sc = st.Sb, st.Sc }
