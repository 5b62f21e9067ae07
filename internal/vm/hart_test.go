package vm

// hart_test.go exercises the step loop end-to-end against the concrete
// scenarios spec §8 names: ADDI chain, load/store, branch, illegal
// instruction trap, timer interrupt, and page fault on an unmapped page.

import "testing"

func TestHart_AddiChain(t *testing.T) {
	th := newTestHarness(t)
	h := th.Make()
	h.PC = h.RAM().Base()

	loadProgram(h, []uint32{
		asmADDI(1, 0, 7),
		asmADDI(1, 1, -3),
		asmEBREAK(),
	})

	for i := 0; i < 3; i++ {
		h.Step()
	}

	if h.X[1] != 4 {
		t.Fatalf("x1 = %d, want 4", h.X[1])
	}

	mcause, _ := h.PeekCSR(csrMCAUSE)
	if Cause(mcause) != CauseBreakpoint {
		t.Fatalf("mcause = %s, want breakpoint", Cause(mcause))
	}
}

func TestHart_LoadStore(t *testing.T) {
	th := newTestHarness(t)
	h := th.Make()
	h.PC = h.RAM().Base()

	loadProgram(h, []uint32{
		asmLUI(2, 0x80000),
		asmADDI(2, 2, 0x100),
		asmLUI(3, 0x12345),
		asmADDI(3, 3, 0x678),
		asmSW(2, 3, 0),
		asmLW(4, 2, 0),
		asmEBREAK(),
	})

	for i := 0; i < 7; i++ {
		h.Step()
	}

	if h.X[4] != 0x12345678 {
		t.Fatalf("x4 = %#x, want 0x12345678", h.X[4])
	}
}

func TestHart_BranchLoop(t *testing.T) {
	th := newTestHarness(t)
	h := th.Make()
	h.PC = h.RAM().Base()

	loadProgram(h, []uint32{
		asmADDI(5, 0, 5),
		asmADDI(6, 0, 5),
		asmBNE(5, 6, -4),
		asmADDI(7, 0, 1),
		asmEBREAK(),
	})

	for i := 0; i < 4; i++ {
		h.Step()
	}

	if h.X[7] != 1 {
		t.Fatalf("x7 = %d, want 1", h.X[7])
	}
}

func TestHart_IllegalInstructionTrap(t *testing.T) {
	th := newTestHarness(t)
	h := th.Make()
	h.PC = h.RAM().Base()

	handlerAddr := h.RAM().Base() + 0x1000
	h.CSR.Set(csrMTVEC, handlerAddr) // direct mode, low two bits clear

	loadProgram(h, []uint32{0xFFFFFFFF})
	if err := h.Bus().WriteWord(handlerAddr, asmEBREAK()); err != nil {
		t.Fatal(err)
	}

	h.Step()

	if h.PC != handlerAddr {
		t.Fatalf("PC = %#x, want %#x", h.PC, handlerAddr)
	}

	mcause, _ := h.PeekCSR(csrMCAUSE)
	if Cause(mcause) != CauseIllegalInstruction {
		t.Fatalf("mcause = %s, want illegal-instruction", Cause(mcause))
	}

	mepc, _ := h.PeekCSR(csrMEPC)
	if mepc != h.RAM().Base() {
		t.Fatalf("mepc = %#x, want RAM base", mepc)
	}
}

func TestHart_TimerInterrupt(t *testing.T) {
	th := newTestHarness(t)
	h := th.Make()
	h.PC = h.RAM().Base()

	h.X[1] = 0x0200_0000 + 0x4000 // CLINT mtimecmp

	loadProgram(h, []uint32{
		asmADDI(2, 0, 100),
		encodeS(opcStore, 0b011, 1, 2, 0), // sd x2, 0(x1): full 64-bit mtimecmp = 100
		asmADDI(8, 0, 0x80),
		asmCSRRW(0, 8, csrMIE), // mie.MTIE
		asmADDI(9, 0, 0x08),
		asmCSRRS(0, 9, csrMSTATUS), // mstatus.MIE
		asmJAL(0, 0),               // spin
	})

	const limit = 200

	taken := false

	for i := 0; i < limit; i++ {
		h.Step()

		mcause, _ := h.PeekCSR(csrMCAUSE)
		if mcause&(1<<63) != 0 {
			taken = true
			break
		}
	}

	if !taken {
		t.Fatalf("interrupt not taken within %d retirements", limit)
	}

	mcause, _ := h.PeekCSR(csrMCAUSE)
	if mcause&0x7F != Word(InterruptMachineTimer) {
		t.Fatalf("mcause low bits = %d, want %d (machine timer)", mcause&0x7F, InterruptMachineTimer)
	}
}

// TestHart_UndelegatedInterruptAtUserPrivilegeTrapsToMachine regresses a
// delegated() that treated every interrupt taken below M-mode as delegated
// regardless of mideleg. With mideleg left clear, a timer interrupt taken
// while running at User privilege must still land in M-mode.
func TestHart_UndelegatedInterruptAtUserPrivilegeTrapsToMachine(t *testing.T) {
	th := newTestHarness(t)
	h := th.Make()
	h.PC = h.RAM().Base()
	h.Priv = User

	// mie.MTIE is set directly (a guest csrrw at User privilege would itself
	// take an illegal-instruction exception, since mie requires M) — the
	// instruction stream only needs to arm mtimecmp and spin.
	h.CSR.Set(csrMIE, 0x80)

	h.X[1] = 0x0200_0000 + 0x4000 // CLINT mtimecmp

	loadProgram(h, []uint32{
		asmADDI(2, 0, 100),
		encodeS(opcStore, 0b011, 1, 2, 0), // sd x2, 0(x1): full 64-bit mtimecmp = 100
		asmJAL(0, 0),                      // spin
	})

	const limit = 200

	taken := false

	for i := 0; i < limit; i++ {
		h.Step()

		mcause, _ := h.PeekCSR(csrMCAUSE)
		if mcause&(1<<63) != 0 {
			taken = true
			break
		}
	}

	if !taken {
		t.Fatalf("interrupt not taken within %d retirements", limit)
	}

	if h.Priv != Machine {
		t.Fatalf("priv after trap = %s, want M (mideleg clear, must not delegate)", h.Priv)
	}

	mcause, _ := h.PeekCSR(csrMCAUSE)
	if mcause&0x7F != Word(InterruptMachineTimer) {
		t.Fatalf("mcause low bits = %d, want %d (machine timer)", mcause&0x7F, InterruptMachineTimer)
	}
}

func TestHart_PageFaultOnUnmapped(t *testing.T) {
	th := newTestHarness(t)
	h := th.Make()
	h.PC = h.RAM().Base()

	pageTable := h.RAM().Base() + 0x2000
	stvecAddr := h.RAM().Base() + 0x3000

	h.CSR.Set(csrSTVEC, stvecAddr)
	h.CSR.Set(csrMEDELEG, Word(1)<<uint(CauseLoadPageFault))

	// Identity-map the gigapage containing RAM (so the code we're about to
	// run in S-mode can still be fetched); address 0 is left unmapped so
	// the lw below faults.
	codeVPN2 := (h.RAM().Base() >> 30) & 0x1FF
	codePTEAddr := pageTable + codeVPN2*8
	codePagePPN := h.RAM().Base() >> 12
	codePTE := (codePagePPN << 10) | pteV | pteR | pteW | pteX | pteA | pteD

	if err := h.Bus().WriteDword(codePTEAddr, uint64(codePTE)); err != nil {
		t.Fatal(err)
	}

	satp := (Word(satpModeSv39) << 60) | (pageTable >> 12)
	h.X[1] = satp

	loadProgram(h, []uint32{
		asmCSRRW(0, 1, csrSATP),
		asmSRET(),
	})

	mstatus := h.CSR.Mstatus()
	mstatus = setField(mstatus, mstatusSPP, 8, 1, 1) // SPP=1 (S): sret drops to S, not U
	h.CSR.SetMstatus(mstatus)
	h.CSR.Set(csrSEPC, h.RAM().Base()+8)

	if err := h.Bus().WriteWord(h.RAM().Base()+8, asmLW(4, 0, 0)); err != nil {
		t.Fatal(err)
	}

	h.Step() // csrrw satp
	h.Step() // sret -> S mode at RAM+8

	if h.Priv != Supervisor {
		t.Fatalf("priv = %s, want S", h.Priv)
	}

	h.Step() // lw x4, 0(x0) against an all-zero page table -> page fault

	stval, _ := h.PeekCSR(csrSTVAL)
	if stval != 0 {
		t.Fatalf("stval = %#x, want 0", stval)
	}

	scause, _ := h.PeekCSR(csrSCAUSE)
	if Cause(scause) != CauseLoadPageFault {
		t.Fatalf("scause = %s, want load-page-fault", Cause(scause))
	}

	if h.Priv != Supervisor {
		t.Fatalf("priv after trap = %s, want S (delegated)", h.Priv)
	}

	if h.PC != stvecAddr {
		t.Fatalf("PC = %#x, want stvec %#x", h.PC, stvecAddr)
	}
}

// TestHart_FenceIInvalidatesTranslationCache regresses a FENCEI handler
// that flushed only the icache: spec §4.8 requires fence.i to also flush
// the translation cache, since self-modifying code that repoints its own
// page mapping and then issues only fence.i (the documented-sufficient
// sequence) must not keep executing against a stale translation.
func TestHart_FenceIInvalidatesTranslationCache(t *testing.T) {
	th := newTestHarness(t)
	h := th.Make()
	h.PC = h.RAM().Base()

	pageTable := h.RAM().Base() + 0x2000
	dataAddr := h.RAM().Base() + 0x5000

	vpn2 := (dataAddr >> 30) & 0x1FF
	pteAddr := pageTable + vpn2*8
	pagePPN := (dataAddr >> 30) << 18 // gigapage-aligned PPN covering dataAddr
	pte := (pagePPN << 10) | pteV | pteR | pteW | pteA | pteD

	if err := h.Bus().WriteDword(pteAddr, uint64(pte)); err != nil {
		t.Fatal(err)
	}

	satp := (Word(satpModeSv39) << 60) | (pageTable >> 12)
	h.CSR.Set(csrSATP, satp)

	if _, err := h.MMU.Translate(dataAddr, IntentLoad, Supervisor); err != nil {
		t.Fatalf("warming the translation cache: %v", err)
	}

	// Tear down the mapping without going through MMU.Invalidate: the
	// cached translation should still satisfy this intent until something
	// flushes it.
	if err := h.Bus().WriteDword(pteAddr, 0); err != nil {
		t.Fatal(err)
	}

	if _, err := h.MMU.Translate(dataAddr, IntentLoad, Supervisor); err != nil {
		t.Fatalf("expected the stale cache entry to still satisfy this translation: %v", err)
	}

	loadProgram(h, []uint32{
		asmFENCEI(),
		asmEBREAK(),
	})

	h.Step() // fence.i

	if _, err := h.MMU.Translate(dataAddr, IntentLoad, Supervisor); err == nil {
		t.Fatal("expected fence.i to flush the translation cache, exposing the torn-down mapping")
	}
}

func TestHart_X0AlwaysZero(t *testing.T) {
	th := newTestHarness(t)
	h := th.Make()
	h.PC = h.RAM().Base()

	loadProgram(h, []uint32{
		asmADDI(0, 0, 123), // write to x0
		asmEBREAK(),
	})

	h.Step()

	if h.X[0] != 0 {
		t.Fatalf("x0 = %d, want 0", h.X[0])
	}
}
