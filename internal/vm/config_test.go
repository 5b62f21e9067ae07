package vm

import "testing"

func TestConfig_WithRAMSizeOverridesDefault(t *testing.T) {
	h := New(WithRAMSize(4096))

	if got := h.RAM().Size(); got != 4096 {
		t.Fatalf("RAM size = %d, want 4096", got)
	}
}

func TestConfig_WithSerialSelectsDestination(t *testing.T) {
	h := New(WithSerial(SerialTest))

	if h.cfg.Serial != SerialTest {
		t.Fatalf("cfg.Serial = %v, want SerialTest", h.cfg.Serial)
	}
}

func TestConfig_WithDebugSetsFlag(t *testing.T) {
	h := New(WithDebug(true))

	if !h.cfg.Debug {
		t.Fatal("expected cfg.Debug true")
	}
}

func TestConfig_DefaultRAMBaseAndSize(t *testing.T) {
	h := New()

	if h.RAM().Base() != 0x8000_0000 {
		t.Fatalf("RAM base = %#x, want 0x80000000", h.RAM().Base())
	}

	if h.RAM().Size() != 128*1024*1024 {
		t.Fatalf("RAM size = %d, want 128MiB", h.RAM().Size())
	}
}
