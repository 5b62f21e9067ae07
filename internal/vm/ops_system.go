package vm

// ops_system.go implements the SYSTEM opcode family (spec §4.8 "System",
// "CSR ops", §4.9 "xRET"): environment calls, breakpoints, wfi-as-nop,
// the fence variants that touch the MMU/icache caches, and the CSR
// read-modify-write instructions built on csr.go's Access.

func init() {
	register(ECALL, func(h *Hart, d Decoded, _ *Word) error {
		switch h.Priv {
		case User:
			return except(CauseEnvCallU)
		case Supervisor:
			return except(CauseEnvCallS)
		default:
			return except(CauseEnvCallM)
		}
	})

	register(EBREAK, func(h *Hart, d Decoded, _ *Word) error {
		return except(CauseBreakpoint)
	})

	register(WFI, func(h *Hart, d Decoded, _ *Word) error {
		return nil
	})

	register(SFENCEVMA, func(h *Hart, d Decoded, _ *Word) error {
		if h.Priv == User {
			return except(CauseIllegalInstruction)
		}

		if h.Priv == Supervisor && h.CSR.Mstatus()&mstatusTVM != 0 {
			return except(CauseIllegalInstruction)
		}

		h.MMU.Invalidate()
		h.icache.Invalidate()

		return nil
	})

	register(MRET, func(h *Hart, d Decoded, nextPC *Word) error {
		if h.Priv != Machine {
			return except(CauseIllegalInstruction)
		}

		pc, priv := h.trap.Return(true)
		h.PC = pc
		h.Priv = priv
		*nextPC = pc

		return nil
	})

	register(SRET, func(h *Hart, d Decoded, nextPC *Word) error {
		if h.Priv == User {
			return except(CauseIllegalInstruction)
		}

		if h.Priv == Supervisor && h.CSR.Mstatus()&mstatusTSR != 0 {
			return except(CauseIllegalInstruction)
		}

		pc, priv := h.trap.Return(false)
		h.PC = pc
		h.Priv = priv
		*nextPC = pc

		return nil
	})

	registerCSR(CSRRW, CSRWrite, false)
	registerCSR(CSRRS, CSRSetBits, true)
	registerCSR(CSRRC, CSRClearBits, true)
	registerCSR(CSRRWI, CSRWrite, false)
	registerCSR(CSRRSI, CSRSetBits, true)
	registerCSR(CSRRCI, CSRClearBits, true)
}

// registerCSR wires one of the six CSR instructions. immediate selects
// whether the source is the 5-bit zimm carried in d.Imm (the *I variants)
// or the register x[rs1]; suppressWhenZero marks CSRRS/CSRRC's rule that
// a zero source suppresses the write side effect (spec §4.8 "CSR ops").
func registerCSR(op Op, csrOp CSROp, suppressWhenZero bool) {
	immediate := op == CSRRWI || op == CSRRSI || op == CSRRCI

	register(op, func(h *Hart, d Decoded, _ *Word) error {
		var src Word
		if immediate {
			src = d.Imm
		} else {
			src = h.X[d.Rs1]
		}

		write := true
		if suppressWhenZero && src == 0 {
			write = false
		}

		if op == CSRRW || op == CSRRWI {
			// CSRRW/CSRRWI always write, but if rd==x0 the read can be
			// skipped (no architectural effect either way here).
			write = true
		}

		old, err := h.CSR.Access(d.CSR, csrOp, src, write, h.Priv)
		if err != nil {
			return err
		}

		h.SetX(d.Rd, old)

		return nil
	})
}
