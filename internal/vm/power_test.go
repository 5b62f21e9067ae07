package vm

import "testing"

func TestPowerManager_WriteOffCodeHalts(t *testing.T) {
	p := NewPowerManager()

	if p.Halted() {
		t.Fatal("expected not halted initially")
	}

	if err := p.Store(0, Half, powerOffCode); err != nil {
		t.Fatal(err)
	}

	if !p.Halted() {
		t.Fatal("expected halted after writing the power-off sentinel")
	}

	v, err := p.Load(0, Half)
	if err != nil {
		t.Fatal(err)
	}

	if v != powerOffCode {
		t.Fatalf("readback = %#x, want %#x", v, powerOffCode)
	}
}

func TestPowerManager_OtherValuesDoNotHalt(t *testing.T) {
	p := NewPowerManager()

	if err := p.Store(0, Half, 0x1234); err != nil {
		t.Fatal(err)
	}

	if p.Halted() {
		t.Fatal("expected not halted for a non-sentinel write")
	}
}

func TestPowerManager_WrongWidthOrAddrFaults(t *testing.T) {
	p := NewPowerManager()

	if err := p.Store(0, Byte, 1); err == nil {
		t.Fatal("expected an error for a non-half-word store")
	}

	if err := p.Store(2, Half, 1); err == nil {
		t.Fatal("expected an error for a non-zero address")
	}

	if _, err := p.Load(0, Word32); err == nil {
		t.Fatal("expected an error for a non-half-word load")
	}
}
