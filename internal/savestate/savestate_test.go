package savestate

import (
	"testing"

	"github.com/kjallen-dev/gbcore/internal/interrupt"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ic := interrupt.New()
	ic.IE = 0x1F
	e := Envelope{
		Interrupt: ic.SaveState(),
		CartType:  0x13,
		Cart:      []byte{1, 2, 3},
	}
	e.CPU.PC = 0x1234
	e.PPU.Ly = 42

	data, err := Encode(e)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var got Envelope
	if err := Decode(data, &got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.CPU.PC != 0x1234 {
		t.Fatalf("PC = %#04x, want 0x1234", got.CPU.PC)
	}
	if got.PPU.Ly != 42 {
		t.Fatalf("Ly = %d, want 42", got.PPU.Ly)
	}
	if got.Interrupt.IE != 0x1F {
		t.Fatalf("IE = %#02x, want 0x1F", got.Interrupt.IE)
	}
	if got.CartType != 0x13 || string(got.Cart) != "\x01\x02\x03" {
		t.Fatal("cart blob mismatch")
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	var got Envelope
	if err := Decode([]byte("not a savestate"), &got); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestDecodeRejectsWrongVersion(t *testing.T) {
	e := Envelope{}
	data, _ := Encode(e)
	data[4], data[5], data[6], data[7] = 0, 0, 0, 99
	var got Envelope
	if err := Decode(data, &got); err == nil {
		t.Fatal("expected error for unsupported version")
	}
}
