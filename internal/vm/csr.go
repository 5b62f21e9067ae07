package vm

// csr.go implements the CSR machine (spec §4.4): permission-checked,
// mask-validated access to the architecturally addressable register file,
// with composite/shadow registers (sstatus, sie, sip, fflags, frm, misa,
// mhartid, time) computed on read and decomposed on write. This
// generalizes the teacher's plain Word-keyed register file (types.go's
// ControlRegister/PSR) to RISC-V's much larger, privilege-gated address
// space.

import "github.com/rvemu/core/internal/log"

// CSROp selects the read-modify-write operation CSRRW/CSRRS/CSRRC perform.
type CSROp int

const (
	CSRWrite CSROp = iota
	CSRSetBits
	CSRClearBits
)

// csrDef is one CSR's declarative definition: how to read and validate a
// write, independent of storage. Plain registers use readMask/writeMask
// directly; composite registers (sstatus, time, ...) supply read/write
// closures that reach into the file's other state.
type csrDef struct {
	minPriv  Privilege
	readOnly bool // true for the 0b11 quadrant (bits 11:10 of the address)

	readMask  Word
	writeMask Word

	read  func(f *CSRFile) Word
	write func(f *CSRFile, old, proposed Word) Word
}

// CSRFile is the hart's control-and-status register file.
type CSRFile struct {
	regs map[Word]Word
	defs map[Word]*csrDef
	log  *log.Logger

	clock *Clock

	// onSatpWrite, when set, invalidates the MMU translation cache; wired
	// by the hart at construction time (spec §3 translation-cache
	// invalidation on satp write).
	onSatpWrite func()
}

func addrMinPriv(addr Word) Privilege { return Privilege((addr >> 8) & 0x3) }
func addrReadOnly(addr Word) bool     { return (addr>>10)&0x3 == 0x3 }

func NewCSRFile(clock *Clock, logger *log.Logger) *CSRFile {
	if logger == nil {
		logger = log.DefaultLogger()
	}

	f := &CSRFile{
		regs:  make(map[Word]Word),
		defs:  make(map[Word]*csrDef),
		log:   logger,
		clock: clock,
	}

	f.install()

	return f
}

func (f *CSRFile) def(addr Word, d csrDef) {
	cp := d
	cp.minPriv = addrMinPriv(addr)
	cp.readOnly = addrReadOnly(addr) || cp.readOnly
	f.defs[addr] = &cp
}

func (f *CSRFile) install() {
	plain := func(addr Word, mask Word) {
		f.def(addr, csrDef{readMask: mask, writeMask: mask})
	}

	plain(csrMTVEC, ^Word(0))
	plain(csrMSCRATCH, ^Word(0))
	plain(csrMEPC, ^Word(1))
	plain(csrMCAUSE, ^Word(0))
	plain(csrMTVAL, ^Word(0))
	plain(csrMEDELEG, 0xFFFF) // exception causes in use
	plain(csrMIDELEG, 0xFFF)
	plain(csrSTVEC, ^Word(0))
	plain(csrSSCRATCH, ^Word(0))
	plain(csrSEPC, ^Word(1))
	plain(csrSCAUSE, ^Word(0))
	plain(csrSTVAL, ^Word(0))
	plain(csrMCOUNTEREN, 0x7)
	plain(csrSCOUNTEREN, 0x7)
	plain(csrMENVCFG, 0)
	plain(csrSENVCFG, 0)

	f.def(csrMIE, csrDef{readMask: mieWriteMask, writeMask: mieWriteMask})
	f.def(csrMIP, csrDef{readMask: mieWriteMask, writeMask: mipWriteMask})

	f.def(csrMISA, csrDef{
		readOnly: true,
		read: func(f *CSRFile) Word {
			mxl := Word(2) << 62 // MXL=2 selects RV64
			ext := Word(0)

			for _, c := range "ISUMF" {
				ext |= 1 << uint(c-'A')
			}

			return mxl | ext
		},
	})

	f.def(csrMHARTID, csrDef{readOnly: true, read: func(f *CSRFile) Word { return 0 }})
	f.def(csrMVENDORID, csrDef{readOnly: true, read: func(f *CSRFile) Word { return 0 }})
	f.def(csrMARCHID, csrDef{readOnly: true, read: func(f *CSRFile) Word { return 0 }})
	f.def(csrMIMPID, csrDef{readOnly: true, read: func(f *CSRFile) Word { return 0 }})

	f.def(csrMSTATUS, csrDef{
		readMask:  ^Word(0),
		writeMask: mstatusWriteMask,
		read: func(f *CSRFile) Word {
			v := f.regs[csrMSTATUS]
			if v&mstatusFS == mstatusFS || v&mstatusXS == mstatusXS {
				v |= mstatusSD
			} else {
				v &^= mstatusSD
			}

			return v
		},
	})
	f.def(csrMSTATUSH, csrDef{readOnly: true, read: func(f *CSRFile) Word { return 0 }})

	f.def(csrSSTATUS, csrDef{
		readMask:  sstatusMask,
		writeMask: sstatusMask &^ mstatusSD,
		read: func(f *CSRFile) Word {
			v := f.regs[csrMSTATUS] & sstatusMask
			if f.regs[csrMSTATUS]&mstatusFS == mstatusFS {
				v |= mstatusSD
			}

			return v
		},
		write: func(f *CSRFile, _, proposed Word) Word {
			m := f.regs[csrMSTATUS]
			keep := Word(sstatusMask &^ mstatusSD)
			m = (m &^ keep) | (proposed & keep)
			f.regs[csrMSTATUS] = m

			return m
		},
	})

	f.def(csrSIE, csrDef{
		readMask:  sieMask,
		writeMask: sieMask,
		read:      func(f *CSRFile) Word { return f.regs[csrMIE] & sieMask },
		write: func(f *CSRFile, _, proposed Word) Word {
			m := (f.regs[csrMIE] &^ sieMask) | (proposed & sieMask)
			f.regs[csrMIE] = m

			return m
		},
	})

	f.def(csrSIP, csrDef{
		readMask:  sieMask,
		writeMask: sieMask & mipWriteMask,
		read:      func(f *CSRFile) Word { return f.regs[csrMIP] & sieMask },
		write: func(f *CSRFile, _, proposed Word) Word {
			keep := Word(sieMask & mipWriteMask)
			m := (f.regs[csrMIP] &^ keep) | (proposed & keep)
			f.regs[csrMIP] = m

			return m
		},
	})

	f.def(csrSATP, csrDef{
		readMask:  ^Word(0),
		writeMask: ^Word(0),
		write: func(f *CSRFile, _, proposed Word) Word {
			f.regs[csrSATP] = proposed
			if f.onSatpWrite != nil {
				f.onSatpWrite()
			}

			return proposed
		},
	})

	f.def(csrFFLAGS, csrDef{
		readMask:  0x1F,
		writeMask: 0x1F,
		read:      func(f *CSRFile) Word { return f.regs[csrFCSR] & 0x1F },
		write: func(f *CSRFile, _, proposed Word) Word {
			v := (f.regs[csrFCSR] &^ Word(0x1F)) | (proposed & 0x1F)
			f.regs[csrFCSR] = v

			return v
		},
	})
	f.def(csrFRM, csrDef{
		readMask:  0x7,
		writeMask: 0x7,
		read:      func(f *CSRFile) Word { return (f.regs[csrFCSR] >> 5) & 0x7 },
		write: func(f *CSRFile, _, proposed Word) Word {
			v := (f.regs[csrFCSR] &^ Word(0x7<<5)) | ((proposed & 0x7) << 5)
			f.regs[csrFCSR] = v

			return v
		},
	})
	f.def(csrFCSR, csrDef{readMask: 0xFF, writeMask: 0xFF})

	f.def(csrMCYCLE, csrDef{readMask: ^Word(0), read: func(f *CSRFile) Word { return f.clock.Now() }})
	f.def(csrMINSTRET, csrDef{readMask: ^Word(0), read: func(f *CSRFile) Word { return f.regs[csrMINSTRET] }})
	f.def(csrCYCLE, csrDef{readOnly: true, read: func(f *CSRFile) Word { return f.clock.Now() }})
	f.def(csrTIME, csrDef{readOnly: true, read: func(f *CSRFile) Word { return f.clock.Now() }})
	f.def(csrINSTRET, csrDef{readOnly: true, read: func(f *CSRFile) Word { return f.regs[csrMINSTRET] }})
}

// Get reads addr without any privilege check or side effect, for the
// non-mutating debug accessor (spec §6, §7 "Debugger reads").
func (f *CSRFile) Get(addr Word) (Word, bool) {
	d, ok := f.defs[addr]
	if !ok {
		return 0, false
	}

	if d.read != nil {
		return d.read(f) & orMask(d.readMask), true
	}

	return f.regs[addr] & d.readMask, true
}

func orMask(m Word) Word {
	if m == 0 {
		return ^Word(0)
	}

	return m
}

// Set writes addr without any privilege check, for tests and the loader
// that need to seed CSR state (e.g. satp) before the first step.
func (f *CSRFile) Set(addr Word, value Word) {
	d, ok := f.defs[addr]
	if !ok {
		f.regs[addr] = value
		return
	}

	if d.write != nil {
		d.write(f, f.regs[addr], value)
		return
	}

	f.regs[addr] = (f.regs[addr] &^ d.writeMask) | (value & d.writeMask)
}

// IncRetired bumps minstret; called once per retirement by the step loop.
func (f *CSRFile) IncRetired() { f.regs[csrMINSTRET]++ }

// Access implements the CSR instruction semantics of spec §4.4: permission
// check, read, compute-proposed, validate-and-merge, with write suppressed
// when write is false (CSRRS/CSRRC with a zero source register, per §4.8).
func (f *CSRFile) Access(addr Word, op CSROp, src Word, write bool, priv Privilege) (Word, error) {
	d, ok := f.defs[addr]
	if !ok {
		return 0, except(CauseIllegalInstruction)
	}

	if priv < d.minPriv {
		return 0, except(CauseIllegalInstruction)
	}

	old := f.regs[addr]
	if d.read != nil {
		old = d.read(f)
	} else {
		old &= d.readMask
	}

	if !write {
		return old, nil
	}

	if d.readOnly {
		return 0, except(CauseIllegalInstruction)
	}

	var proposed Word

	switch op {
	case CSRWrite:
		proposed = src
	case CSRSetBits:
		proposed = old | src
	case CSRClearBits:
		proposed = old &^ src
	}

	if d.write != nil {
		d.write(f, old, proposed)
	} else {
		f.regs[addr] = (f.regs[addr] &^ d.writeMask) | (proposed & d.writeMask)
	}

	return old, nil
}

// Mstatus/Sstatus/Mip/Mie/Mcause/etc. convenience accessors used by the
// trap controller and executor, bypassing the privilege-checked Access
// path since these are internal, not guest-issued, reads/writes.
func (f *CSRFile) raw(addr Word) Word      { return f.regs[addr] }
func (f *CSRFile) setRaw(addr Word, v Word) { f.regs[addr] = v }

func (f *CSRFile) Mstatus() Word { v, _ := f.Get(csrMSTATUS); return v }
func (f *CSRFile) SetMstatus(v Word) { f.setRaw(csrMSTATUS, v) }

func (f *CSRFile) Mip() Word     { return f.raw(csrMIP) }
func (f *CSRFile) Mie() Word     { return f.raw(csrMIE) }
func (f *CSRFile) Medeleg() Word { return f.raw(csrMEDELEG) }
func (f *CSRFile) Mideleg() Word { return f.raw(csrMIDELEG) }

func (f *CSRFile) SetPending(irq Interrupt, pending bool) {
	bit := Word(1) << uint(irq)
	if pending {
		f.setRaw(csrMIP, f.raw(csrMIP)|bit)
	} else {
		f.setRaw(csrMIP, f.raw(csrMIP)&^bit)
	}
}

func (f *CSRFile) FCSR() Word      { return f.raw(csrFCSR) }
func (f *CSRFile) SetFCSR(v Word)  { f.setRaw(csrFCSR, v&0xFF) }
func (f *CSRFile) OrFFlags(bits Word) {
	f.setRaw(csrFCSR, f.raw(csrFCSR)|(bits&0x1F))
}

func (f *CSRFile) Satp() Word { return f.raw(csrSATP) }
