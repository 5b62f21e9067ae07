package vm

import "math"

// ops_fp.go implements the F extension (spec §4.3, §4.8 "F ops"). Every
// handler is wrapped so that a disabled FPU (mstatus.FS == Off) raises
// IllegalInstruction up front, and a successful op always leaves
// mstatus.FS dirty and ORs the accumulated sticky flags into fcsr
// (spec §4.8: "executing any FP op leaves FS=Dirty and updates fflags").

const mstatusFSOff = 0

func fsEnabled(h *Hart) bool {
	return h.CSR.Mstatus()&mstatusFS != mstatusFSOff
}

func markFPDirty(h *Hart) {
	m := h.CSR.Mstatus()
	m = (m &^ Word(mstatusFS)) | (Word(0b11) << 13)
	h.CSR.SetMstatus(m)
	h.CSR.OrFFlags(h.FPU.TakeFlags())
}

func registerFP(op Op, fn handler) {
	register(op, func(h *Hart, d Decoded, nextPC *Word) error {
		if !fsEnabled(h) {
			return except(CauseIllegalInstruction)
		}

		if err := fn(h, d, nextPC); err != nil {
			return err
		}

		markFPDirty(h)

		return nil
	})
}

func init() {
	registerFP(FLW, func(h *Hart, d Decoded, _ *Word) error {
		vaddr := h.X[d.Rs1] + d.Imm

		paddr, err := h.MMU.Translate(vaddr, IntentLoad, h.Priv)
		if err != nil {
			return reTag(err, vaddr)
		}

		v, merr := h.bus.ReadWidth(paddr, Word32)
		if merr != nil {
			return memException(merr, vaddr, false)
		}

		h.FPU.WriteBitsW(d.Rd, v)

		return nil
	})

	registerFP(FSW, func(h *Hart, d Decoded, _ *Word) error {
		vaddr := h.X[d.Rs1] + d.Imm

		paddr, err := h.MMU.Translate(vaddr, IntentStore, h.Priv)
		if err != nil {
			return reTag(err, vaddr)
		}

		if merr := h.bus.WriteWidth(paddr, Word32, h.FPU.ReadBitsW(d.Rs2)); merr != nil {
			return memException(merr, vaddr, true)
		}

		return nil
	})

	registerFP(FADDS, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF32(d.Rd, h.FPU.Add(h.FPU.ReadF32(d.Rs1), h.FPU.ReadF32(d.Rs2)))
		return nil
	})
	registerFP(FSUBS, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF32(d.Rd, h.FPU.Sub(h.FPU.ReadF32(d.Rs1), h.FPU.ReadF32(d.Rs2)))
		return nil
	})
	registerFP(FMULS, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF32(d.Rd, h.FPU.Mul(h.FPU.ReadF32(d.Rs1), h.FPU.ReadF32(d.Rs2)))
		return nil
	})
	registerFP(FDIVS, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF32(d.Rd, h.FPU.Div(h.FPU.ReadF32(d.Rs1), h.FPU.ReadF32(d.Rs2)))
		return nil
	})
	registerFP(FSQRTS, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF32(d.Rd, h.FPU.Sqrt(h.FPU.ReadF32(d.Rs1)))
		return nil
	})

	registerFP(FMADDS, fma(false, false))
	registerFP(FMSUBS, fma(false, true))
	registerFP(FNMSUBS, fma(true, false))
	registerFP(FNMADDS, fma(true, true))

	registerFP(FSGNJS, sgnj(false, false))
	registerFP(FSGNJNS, sgnj(true, false))
	registerFP(FSGNJXS, sgnj(false, true))

	registerFP(FMINS, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF32(d.Rd, h.FPU.Min(h.FPU.ReadF32(d.Rs1), h.FPU.ReadF32(d.Rs2)))
		return nil
	})
	registerFP(FMAXS, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF32(d.Rd, h.FPU.Max(h.FPU.ReadF32(d.Rs1), h.FPU.ReadF32(d.Rs2)))
		return nil
	})

	registerFP(FCVTWS, func(h *Hart, d Decoded, _ *Word) error {
		h.SetX(d.Rd, h.FPU.ToInt32(h.FPU.ReadF32(d.Rs1)))
		return nil
	})
	registerFP(FCVTWUS, func(h *Hart, d Decoded, _ *Word) error {
		h.SetX(d.Rd, h.FPU.ToUint32(h.FPU.ReadF32(d.Rs1)))
		return nil
	})
	registerFP(FCVTLS, func(h *Hart, d Decoded, _ *Word) error {
		h.SetX(d.Rd, h.FPU.ToInt64(h.FPU.ReadF32(d.Rs1)))
		return nil
	})
	registerFP(FCVTLUS, func(h *Hart, d Decoded, _ *Word) error {
		h.SetX(d.Rd, h.FPU.ToUint64(h.FPU.ReadF32(d.Rs1)))
		return nil
	})

	registerFP(FCVTSW, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF32(d.Rd, h.FPU.FromInt32(int32(uint32(h.X[d.Rs1]))))
		return nil
	})
	registerFP(FCVTSWU, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF32(d.Rd, h.FPU.FromUint32(uint32(h.X[d.Rs1])))
		return nil
	})
	registerFP(FCVTSL, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF32(d.Rd, h.FPU.FromInt64(int64(h.X[d.Rs1])))
		return nil
	})
	registerFP(FCVTSLU, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF32(d.Rd, h.FPU.FromUint64(uint64(h.X[d.Rs1])))
		return nil
	})

	registerFP(FMVXW, func(h *Hart, d Decoded, _ *Word) error {
		h.SetX(d.Rd, h.FPU.ReadBitsW(d.Rs1))
		return nil
	})
	registerFP(FMVWX, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteBitsW(d.Rd, h.X[d.Rs1])
		return nil
	})

	registerFP(FEQS, func(h *Hart, d Decoded, _ *Word) error {
		h.SetX(d.Rd, boolWord(h.FPU.CompareEQ(h.FPU.ReadF32(d.Rs1), h.FPU.ReadF32(d.Rs2))))
		return nil
	})
	registerFP(FLTS, func(h *Hart, d Decoded, _ *Word) error {
		h.SetX(d.Rd, boolWord(h.FPU.CompareLT(h.FPU.ReadF32(d.Rs1), h.FPU.ReadF32(d.Rs2))))
		return nil
	})
	registerFP(FLES, func(h *Hart, d Decoded, _ *Word) error {
		h.SetX(d.Rd, boolWord(h.FPU.CompareLE(h.FPU.ReadF32(d.Rs1), h.FPU.ReadF32(d.Rs2))))
		return nil
	})
	registerFP(FCLASSS, func(h *Hart, d Decoded, _ *Word) error {
		h.SetX(d.Rd, h.FPU.Classify(h.FPU.ReadF32(d.Rs1)))
		return nil
	})

	registerDoublePrecisionStubs()
}

func fma(negMul, negAdd bool) handler {
	return func(h *Hart, d Decoded, _ *Word) error {
		r := h.FPU.FMA(h.FPU.ReadF32(d.Rs1), h.FPU.ReadF32(d.Rs2), h.FPU.ReadF32(d.Rs3), negMul, negAdd)
		h.FPU.WriteF32(d.Rd, r)

		return nil
	}
}

func sgnj(negate, xor bool) handler {
	return func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF32(d.Rd, Sgnj(h.FPU.ReadF32(d.Rs1), h.FPU.ReadF32(d.Rs2), negate, xor))
		return nil
	}
}

// registerDoublePrecisionStubs wires the binary64 opcodes to plain Go
// float64 arithmetic with no rounding-mode or exception-flag fidelity,
// matching the original's double-precision todo!() stubs (spec §4.3, §9,
// SPEC_FULL.md "Soft-FPU double precision").
func registerDoublePrecisionStubs() {
	registerFP(FLD, func(h *Hart, d Decoded, _ *Word) error {
		vaddr := h.X[d.Rs1] + d.Imm

		paddr, err := h.MMU.Translate(vaddr, IntentLoad, h.Priv)
		if err != nil {
			return reTag(err, vaddr)
		}

		v, merr := h.bus.ReadWidth(paddr, Word64)
		if merr != nil {
			return memException(merr, vaddr, false)
		}

		h.FPU.WriteBitsD(d.Rd, v)

		return nil
	})
	registerFP(FSD, func(h *Hart, d Decoded, _ *Word) error {
		vaddr := h.X[d.Rs1] + d.Imm

		paddr, err := h.MMU.Translate(vaddr, IntentStore, h.Priv)
		if err != nil {
			return reTag(err, vaddr)
		}

		if merr := h.bus.WriteWidth(paddr, Word64, h.FPU.ReadBitsD(d.Rs2)); merr != nil {
			return memException(merr, vaddr, true)
		}

		return nil
	})

	registerFP(FADDD, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF64(d.Rd, h.FPU.ReadF64(d.Rs1)+h.FPU.ReadF64(d.Rs2))
		return nil
	})
	registerFP(FSUBD, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF64(d.Rd, h.FPU.ReadF64(d.Rs1)-h.FPU.ReadF64(d.Rs2))
		return nil
	})
	registerFP(FMULD, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF64(d.Rd, h.FPU.ReadF64(d.Rs1)*h.FPU.ReadF64(d.Rs2))
		return nil
	})
	registerFP(FDIVD, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF64(d.Rd, h.FPU.ReadF64(d.Rs1)/h.FPU.ReadF64(d.Rs2))
		return nil
	})
	registerFP(FSQRTD, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF64(d.Rd, math.Sqrt(h.FPU.ReadF64(d.Rs1)))
		return nil
	})
	registerFP(FCVTSD, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF32(d.Rd, float32(h.FPU.ReadF64(d.Rs1)))
		return nil
	})
	registerFP(FCVTDS, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteF64(d.Rd, float64(h.FPU.ReadF32(d.Rs1)))
		return nil
	})
	registerFP(FMVXD, func(h *Hart, d Decoded, _ *Word) error {
		h.SetX(d.Rd, h.FPU.ReadBitsD(d.Rs1))
		return nil
	})
	registerFP(FMVDX, func(h *Hart, d Decoded, _ *Word) error {
		h.FPU.WriteBitsD(d.Rd, h.X[d.Rs1])
		return nil
	})
}
