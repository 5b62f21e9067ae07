package vm

// trap.go implements the trap controller (spec §4.9): delegation,
// privilege transition, cause/epc/tval bookkeeping, and mtvec/stvec
// vectoring. It generalizes the teacher's intr.go (a single fixed M-mode-
// shaped `interrupt.Handle` that pushes PSR/PC to a stack) to the two
// privilege-mode, delegation-aware RISC-V model.

// Trap carries the inputs the trap controller needs beyond what's already
// in the CSR file: whether this is an interrupt or an exception, its
// cause code, the faulting/trapping PC, and the tval to record.
type Trap struct {
	Interrupt bool
	Cause     uint
	PC        Word
	Tval      Word
}

// TrapController drives privilege transitions on trap entry and xret.
type TrapController struct {
	csr   *CSRFile
	icache *ICache
	mmu   *MMU
}

func NewTrapController(csr *CSRFile, icache *ICache, mmu *MMU) *TrapController {
	return &TrapController{csr: csr, icache: icache, mmu: mmu}
}

// delegated reports whether a trap with the given cause/interrupt-ness
// should be taken in S-mode rather than M-mode, given current privilege
// (spec §4.9 Delegation).
func (t *TrapController) delegated(priv Privilege, tr Trap) bool {
	if priv == Machine {
		return false
	}

	if tr.Interrupt {
		return t.csr.Mideleg()&(1<<tr.Cause) != 0
	}

	return t.csr.Medeleg()&(1<<tr.Cause) != 0
}

// Enter executes trap entry (spec §4.9 "Entry"), returning the new PC and
// privilege. It invalidates the icache on every privilege transition.
func (t *TrapController) Enter(priv Privilege, tr Trap) (Word, Privilege) {
	toS := t.delegated(priv, tr)

	target := Machine
	if toS {
		target = Supervisor
	}

	mstatus := t.csr.Mstatus()

	causeBit := Word(0)
	if tr.Interrupt {
		causeBit = Word(1) << 63
	}

	if target == Machine {
		mstatus = setField(mstatus, mstatusMPP, 11, 2, Word(priv))
		if mstatus&mstatusMIE != 0 {
			mstatus |= mstatusMPIE
		} else {
			mstatus &^= mstatusMPIE
		}

		mstatus &^= mstatusMIE

		t.csr.setRaw(csrMEPC, tr.PC)
		t.csr.setRaw(csrMCAUSE, causeBit|Word(tr.Cause))
		t.csr.setRaw(csrMTVAL, tr.Tval)
		t.csr.SetMstatus(mstatus)
	} else {
		mstatus = setField(mstatus, mstatusSPP, 8, 1, Word(priv)&1)
		if mstatus&mstatusSIE != 0 {
			mstatus |= mstatusSPIE
		} else {
			mstatus &^= mstatusSPIE
		}

		mstatus &^= mstatusSIE

		t.csr.setRaw(csrSEPC, tr.PC)
		t.csr.setRaw(csrSCAUSE, causeBit|Word(tr.Cause))
		t.csr.setRaw(csrSTVAL, tr.Tval)
		t.csr.SetMstatus(mstatus)
	}

	tvecAddr := Word(csrMTVEC)
	if target == Supervisor {
		tvecAddr = csrSTVEC
	}

	tvec := t.csr.raw(tvecAddr)
	base := tvec &^ 0x3
	mode := tvec & 0x3

	newPC := base
	if mode == 1 && tr.Interrupt {
		newPC = base + 4*Word(tr.Cause)
	}

	t.icache.Invalidate()
	t.mmu.Invalidate()

	return newPC, target
}

// Return executes mret/sret (spec §4.9 "Return"). fromM selects which
// xstatus/xepc pair to use; it does not itself check privilege-below-M
// for mret or TSR for sret — the executor does that before calling in,
// since only it knows the instruction's own required privilege.
func (t *TrapController) Return(fromM bool) (Word, Privilege) {
	mstatus := t.csr.Mstatus()

	if fromM {
		pp := Privilege((mstatus & mstatusMPP) >> 11)
		pie := mstatus&mstatusMPIE != 0

		if pie {
			mstatus |= mstatusMIE
		} else {
			mstatus &^= mstatusMIE
		}

		mstatus |= mstatusMPIE
		mstatus = setField(mstatus, mstatusMPP, 11, 2, Word(User))

		if pp != Machine {
			mstatus &^= mstatusMPRV
		}

		t.csr.SetMstatus(mstatus)
		t.icache.Invalidate()
		t.mmu.Invalidate()

		return t.csr.raw(csrMEPC), pp
	}

	pp := Privilege((mstatus & mstatusSPP) >> 8)
	pie := mstatus&mstatusSPIE != 0

	if pie {
		mstatus |= mstatusSIE
	} else {
		mstatus &^= mstatusSIE
	}

	mstatus |= mstatusSPIE
	mstatus = setField(mstatus, mstatusSPP, 8, 1, 0)
	mstatus &^= mstatusMPRV

	t.csr.SetMstatus(mstatus)
	t.icache.Invalidate()
	t.mmu.Invalidate()

	return t.csr.raw(csrSEPC), pp
}

// PendingInterrupt returns the highest-priority enabled-and-pending
// interrupt for the given privilege/global-enable state, or ok=false if
// none should be taken (spec §4.9 "Interrupt sampling").
func (t *TrapController) PendingInterrupt(priv Privilege) (Interrupt, bool) {
	pending := t.csr.Mip() & t.csr.Mie()
	if pending == 0 {
		return 0, false
	}

	mstatus := t.csr.Mstatus()
	mie := mstatus&mstatusMIE != 0
	sie := mstatus&mstatusSIE != 0

	for _, irq := range interruptPriority {
		bit := Word(1) << uint(irq)
		if pending&bit == 0 {
			continue
		}

		delegatedToS := t.csr.Mideleg()&bit != 0

		switch {
		case !delegatedToS:
			// Machine-owned: visible at M unless masked by MIE; always
			// visible when running below M.
			if priv != Machine || mie {
				return irq, true
			}
		default:
			// Delegated to S: never taken while running in M; visible at
			// S unless masked by SIE, always visible when running in U.
			if priv == Machine {
				continue
			}

			if priv == Supervisor && !sie {
				continue
			}

			return irq, true
		}
	}

	return 0, false
}

// setField replaces a width-bit field at the given LSB position of v.
func setField(v Word, mask Word, lsb uint, width uint, value Word) Word {
	_ = mask

	clearMask := ((Word(1) << width) - 1) << lsb

	return (v &^ clearMask) | ((value << lsb) & clearMask)
}
