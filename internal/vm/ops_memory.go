package vm

// ops_memory.go implements loads, stores, and the fence family (spec
// §4.8 "Loads/Stores", §4.6 icache invalidation). Effective address is a
// signed add; translation and bus errors both feed the same tval = the
// effective virtual address.

func init() {
	registerLoad(LB, Byte, true)
	registerLoad(LH, Half, true)
	registerLoad(LW, Word32, true)
	registerLoad(LD, Word64, true)
	registerLoad(LBU, Byte, false)
	registerLoad(LHU, Half, false)
	registerLoad(LWU, Word32, false)

	registerStore(SB, Byte)
	registerStore(SH, Half)
	registerStore(SW, Word32)
	registerStore(SD, Word64)

	register(FENCE, func(h *Hart, d Decoded, _ *Word) error {
		return nil
	})

	register(FENCEI, func(h *Hart, d Decoded, _ *Word) error {
		h.icache.Invalidate()
		h.MMU.Invalidate()
		return nil
	})
}

func registerLoad(op Op, width Width, signed bool) {
	register(op, func(h *Hart, d Decoded, _ *Word) error {
		vaddr := h.X[d.Rs1] + d.Imm

		paddr, err := h.MMU.Translate(vaddr, IntentLoad, h.Priv)
		if err != nil {
			return reTag(err, vaddr)
		}

		v, merr := h.bus.ReadWidth(paddr, width)
		if merr != nil {
			return memException(merr, vaddr, false)
		}

		if signed {
			v = SignExtend(v, uint(width)*8)
		} else {
			v = ZeroExtend(v, uint(width)*8)
		}

		h.SetX(d.Rd, v)

		return nil
	})
}

func registerStore(op Op, width Width) {
	register(op, func(h *Hart, d Decoded, _ *Word) error {
		vaddr := h.X[d.Rs1] + d.Imm

		paddr, err := h.MMU.Translate(vaddr, IntentStore, h.Priv)
		if err != nil {
			return reTag(err, vaddr)
		}

		if merr := h.bus.WriteWidth(paddr, width, h.X[d.Rs2]); merr != nil {
			return memException(merr, vaddr, true)
		}

		return nil
	})
}

// reTag rewrites a page-fault Exception's Tval to the faulting virtual
// address (the MMU itself only sees vaddr before the cache-keyed lookup,
// so this is already correct, but callers pass through explicitly to
// keep the contract visible at each call site).
func reTag(err error, vaddr Word) error {
	if exc, ok := err.(Exception); ok {
		exc.Tval = vaddr
		return exc
	}

	return err
}

func memException(err error, vaddr Word, store bool) error {
	me, ok := err.(*MemError)
	if !ok {
		return err
	}

	if me.Kind == MemErrMisaligned {
		if store {
			return exceptVal(CauseStoreMisaligned, vaddr)
		}

		return exceptVal(CauseLoadMisaligned, vaddr)
	}

	if store {
		return exceptVal(CauseStoreFault, vaddr)
	}

	return exceptVal(CauseLoadFault, vaddr)
}
