package vm

// mmu.go implements the Sv39/Sv48 page-table walker (spec §4.5), grounded
// on original_source's isa/riscv/mmu/page_table/riscv64.rs PTEFlags
// layout. It owns a one-entry-per-intent translation cache (spec §3),
// generalizing the teacher's unconditional RAM access (mem.go's Fetch/
// Store with only a privilege bit) to a full two-stage walk.

import "github.com/rvemu/core/internal/log"

// Intent is the access kind a translation is performed for; permission
// checks and the translation cache are both keyed on it.
type Intent int

const (
	IntentFetch Intent = iota
	IntentLoad
	IntentStore
)

const (
	pteV = 1 << 0
	pteR = 1 << 1
	pteW = 1 << 2
	pteX = 1 << 3
	pteU = 1 << 4
	pteG = 1 << 5
	pteA = 1 << 6
	pteD = 1 << 7
)

const (
	satpModeBare = 0
	satpModeSv39 = 8
	satpModeSv48 = 9
)

type tlbEntry struct {
	valid       bool
	vpn         Word
	effPriv     Privilege
	mstatusBits Word
	asid        Word
	paddrPage   Word // physical page base, offset added at use
	pageShift   uint
}

// MMU is the address translator.
type MMU struct {
	bus *Bus
	csr *CSRFile
	log *log.Logger

	cache [3]tlbEntry // indexed by Intent
}

func NewMMU(bus *Bus, csr *CSRFile, logger *log.Logger) *MMU {
	if logger == nil {
		logger = log.DefaultLogger()
	}

	return &MMU{bus: bus, csr: csr, log: logger}
}

// Invalidate drops all cached translations. Called on sfence.vma, fence.i,
// satp writes, and trap entry/return (spec §3). Changes to mstatus
// MPRV/MPP/SUM/MXR do not call it; those bits are part of the cache key
// instead (see translationBits).
func (m *MMU) Invalidate() {
	for i := range m.cache {
		m.cache[i] = tlbEntry{}
	}
}

// translationBits are the mstatus fields that affect translation
// semantics and therefore must be part of the cache key.
func translationBits(mstatus Word) Word {
	return mstatus & (mstatusSUM | mstatusMXR | mstatusMPRV | mstatusMPP)
}

// Translate converts vaddr to a physical address for the given intent at
// the hart's current privilege, per spec §4.5.
func (m *MMU) Translate(vaddr Word, intent Intent, priv Privilege) (Word, error) {
	satp := m.csr.Satp()
	mode := (satp >> 60) & 0xF
	mstatus := m.csr.Mstatus()

	effPriv := priv
	if intent != IntentFetch && mstatus&mstatusMPRV != 0 {
		effPriv = Privilege((mstatus & mstatusMPP) >> 11)
	}

	if mode == satpModeBare || effPriv == Machine {
		return vaddr, nil
	}

	vpnBase := vaddr &^ 0xFFF
	asid := (satp >> 44) & 0xFFFF

	if e := m.cache[intent]; e.valid && e.vpn == vpnBase && e.effPriv == effPriv &&
		e.mstatusBits == translationBits(mstatus) && e.asid == asid {
		return e.paddrPage | (vaddr & ((Word(1) << e.pageShift) - 1)), nil
	}

	paddrPage, pageShift, err := m.walk(vaddr, mode, satp, intent, effPriv, mstatus)
	if err != nil {
		return 0, err
	}

	m.cache[intent] = tlbEntry{
		valid: true, vpn: vpnBase, effPriv: effPriv,
		mstatusBits: translationBits(mstatus), asid: asid,
		paddrPage: paddrPage, pageShift: pageShift,
	}

	mask := (Word(1) << pageShift) - 1

	return paddrPage | (vaddr & mask), nil
}

func faultCause(intent Intent) Cause {
	switch intent {
	case IntentFetch:
		return CauseInstructionPageFault
	case IntentStore:
		return CauseStorePageFault
	default:
		return CauseLoadPageFault
	}
}

// walk performs the page-table descent and returns the translated page's
// physical base (with the low pageShift bits clear) plus that shift.
func (m *MMU) walk(vaddr Word, mode Word, satp Word, intent Intent, priv Privilege, mstatus Word) (Word, uint, error) {
	levels := 3
	if mode == satpModeSv48 {
		levels = 4
	}

	vpn := make([]Word, levels)
	for i := 0; i < levels; i++ {
		vpn[i] = (vaddr >> (12 + 9*uint(i))) & 0x1FF
	}

	ppn := satp & ((Word(1) << 44) - 1)

	for level := levels - 1; level >= 0; level-- {
		pteAddr := (ppn << 12) + vpn[level]*8

		raw, err := m.bus.ReadDword(pteAddr)
		if err != nil {
			return 0, 0, exceptVal(faultCause(intent), vaddr)
		}

		pte := Word(raw)
		if pte&pteV == 0 || (pte&pteW != 0 && pte&pteR == 0) {
			return 0, 0, exceptVal(faultCause(intent), vaddr)
		}

		if pte&(pteR|pteW|pteX) == 0 {
			// non-leaf
			ppn = (pte >> 10) & ((Word(1) << 44) - 1)

			if level == 0 {
				return 0, 0, exceptVal(faultCause(intent), vaddr)
			}

			continue
		}

		// leaf
		if err := checkPerm(pte, intent, priv, mstatus); err != nil {
			return 0, 0, reTag(err, vaddr)
		}

		pagePPN := (pte >> 10) & ((Word(1) << 44) - 1)
		shift := 12 + 9*uint(level)

		if level > 0 {
			lowMask := (Word(1) << (9 * uint(level))) - 1
			if pagePPN&lowMask != 0 {
				return 0, 0, exceptVal(faultCause(intent), vaddr) // misaligned superpage
			}
		}

		newPTE := pte | pteA
		if intent == IntentStore {
			newPTE |= pteD
		}

		if newPTE != pte {
			if err := m.bus.WriteDword(pteAddr, uint64(newPTE)); err != nil {
				return 0, 0, exceptVal(faultCause(intent), vaddr)
			}
		}

		// pagePPN's low bits covering the superpage offset are already
		// verified zero above; the caller ORs in vaddr's low bits.
		return pagePPN << 12, shift, nil
	}

	return 0, 0, exceptVal(faultCause(intent), vaddr)
}

func checkPerm(pte Word, intent Intent, priv Privilege, mstatus Word) error {
	switch intent {
	case IntentFetch:
		if pte&pteX == 0 {
			return except(CauseInstructionPageFault)
		}
	case IntentLoad:
		readable := pte&pteR != 0 || (mstatus&mstatusMXR != 0 && pte&pteX != 0)
		if !readable {
			return except(CauseLoadPageFault)
		}
	case IntentStore:
		if pte&pteW == 0 {
			return except(CauseStorePageFault)
		}
	}

	if pte&pteU != 0 {
		if priv == User {
			return nil
		}

		if intent == IntentFetch {
			return except(faultCause(intent))
		}

		if mstatus&mstatusSUM == 0 {
			return except(faultCause(intent))
		}

		return nil
	}

	if priv == User {
		return except(faultCause(intent))
	}

	return nil
}

// PeekTranslate performs a translation without touching A/D bits or the
// translation cache, for the non-mutating debug accessor (spec §7).
func (m *MMU) PeekTranslate(vaddr Word, priv Privilege) (Word, error) {
	satp := m.csr.Satp()
	mode := (satp >> 60) & 0xF

	if mode == satpModeBare || priv == Machine {
		return vaddr, nil
	}

	levels := 3
	if mode == satpModeSv48 {
		levels = 4
	}

	vpn := make([]Word, levels)
	for i := 0; i < levels; i++ {
		vpn[i] = (vaddr >> (12 + 9*uint(i))) & 0x1FF
	}

	ppn := satp & ((Word(1) << 44) - 1)

	for level := levels - 1; level >= 0; level-- {
		pteAddr := (ppn << 12) + vpn[level]*8

		raw, err := m.bus.ReadDword(pteAddr)
		if err != nil {
			return 0, except(CauseLoadPageFault)
		}

		pte := Word(raw)
		if pte&pteV == 0 {
			return 0, except(CauseLoadPageFault)
		}

		if pte&(pteR|pteW|pteX) == 0 {
			ppn = (pte >> 10) & ((Word(1) << 44) - 1)
			continue
		}

		pagePPN := (pte >> 10) & ((Word(1) << 44) - 1)
		shift := 12 + 9*uint(level)
		mask := (Word(1) << shift) - 1

		return (pagePPN << 12 &^ mask) | (vaddr & mask), nil
	}

	return 0, except(CauseLoadPageFault)
}
