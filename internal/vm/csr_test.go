package vm

import (
	"errors"
	"testing"
)

func newCSRFile() *CSRFile {
	return NewCSRFile(NewClock(), nil)
}

func TestCSR_UnmappedAddressIsIllegal(t *testing.T) {
	f := newCSRFile()

	_, err := f.Access(0x7FF, CSRWrite, 0, false, Machine)
	if err == nil {
		t.Fatal("expected error reading an unmapped CSR")
	}

	var exc Exception
	if !errors.As(err, &exc) || exc.Code != CauseIllegalInstruction {
		t.Fatalf("err = %v, want IllegalInstruction exception", err)
	}
}

func TestCSR_PrivilegeCheckRejectsLowerMode(t *testing.T) {
	f := newCSRFile()

	// satp's minimum privilege is S (address bits 9:8 == 01); U-mode access
	// must fault.
	if _, err := f.Access(csrSATP, CSRWrite, 0, true, User); err == nil {
		t.Fatal("expected illegal instruction accessing satp from U-mode")
	}

	if _, err := f.Access(csrSATP, CSRWrite, 0x123, true, Machine); err != nil {
		t.Fatalf("unexpected error from M-mode: %v", err)
	}
}

func TestCSR_ReadOnlyRejectsWrite(t *testing.T) {
	f := newCSRFile()

	if _, err := f.Access(csrMISA, CSRWrite, 0, true, Machine); err == nil {
		t.Fatal("expected illegal instruction writing a read-only CSR")
	}
}

func TestCSR_WriteMaskLeavesUnmaskedBitsUnchanged(t *testing.T) {
	f := newCSRFile()

	// mepc's writeMask clears bit 0 (instructions are at least 2-byte
	// aligned); writing an odd value must not stick.
	if _, err := f.Access(csrMEPC, CSRWrite, 0x1001, true, Machine); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, _ := f.Access(csrMEPC, CSRWrite, 0, false, Machine)
	if v != 0x1000 {
		t.Fatalf("mepc = %#x, want 0x1000 (bit 0 masked)", v)
	}
}

func TestCSR_SstatusShadowsMstatusFS(t *testing.T) {
	f := newCSRFile()

	f.SetMstatus(mstatusFS)

	v, _ := f.Get(csrSSTATUS)
	if v&mstatusFS != mstatusFS {
		t.Fatalf("sstatus = %#x, want FS bits visible through the shadow", v)
	}

	if v&mstatusSD == 0 {
		t.Fatalf("sstatus = %#x, want SD set when FS is dirty", v)
	}
}

func TestCSR_SieIsDelegatedSubsetOfMie(t *testing.T) {
	f := newCSRFile()

	f.Set(csrMIE, mieWriteMask) // enable everything at M

	v, _ := f.Get(csrSIE)
	if v != sieMask {
		t.Fatalf("sie = %#x, want %#x (S-delegated subset only)", v, sieMask)
	}

	if _, err := f.Access(csrSIE, CSRWrite, 0, true, Supervisor); err != nil {
		t.Fatalf("unexpected error writing sie: %v", err)
	}

	mie, _ := f.Get(csrMIE)
	if mie&sieMask != 0 {
		t.Fatalf("mie = %#x, want S-delegated bits cleared after sie write of 0", mie)
	}
}

func TestCSR_FflagsFrmComposeFcsr(t *testing.T) {
	f := newCSRFile()

	f.Set(csrFFLAGS, 0x1F)
	f.Set(csrFRM, 0x5)

	fcsr, _ := f.Get(csrFCSR)
	if fcsr != (0x5<<5)|0x1F {
		t.Fatalf("fcsr = %#x, want frm/fflags composed", fcsr)
	}
}

func TestCSR_CsrrsWithZeroSourceDoesNotWrite(t *testing.T) {
	f := newCSRFile()

	f.Set(csrMSCRATCH, 0x42)

	old, err := f.Access(csrMSCRATCH, CSRSetBits, 0, false, Machine)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if old != 0x42 {
		t.Fatalf("old = %#x, want 0x42", old)
	}

	v, _ := f.Get(csrMSCRATCH)
	if v != 0x42 {
		t.Fatalf("mscratch = %#x, want unchanged at 0x42", v)
	}
}
