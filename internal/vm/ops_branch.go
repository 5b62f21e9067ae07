package vm

// ops_branch.go implements branches and jumps (spec §4.8 "Branches",
// "Jumps"): misaligned targets raise InstructionMisaligned since this
// build does not implement the compressed extension.

func init() {
	registerBranch(BEQ, func(a, b Word) bool { return a == b })
	registerBranch(BNE, func(a, b Word) bool { return a != b })
	registerBranch(BLT, func(a, b Word) bool { return int64(a) < int64(b) })
	registerBranch(BGE, func(a, b Word) bool { return int64(a) >= int64(b) })
	registerBranch(BLTU, func(a, b Word) bool { return a < b })
	registerBranch(BGEU, func(a, b Word) bool { return a >= b })

	register(JAL, func(h *Hart, d Decoded, nextPC *Word) error {
		target := h.PC + d.Imm
		if target%4 != 0 {
			return exceptVal(CauseInstructionMisaligned, target)
		}

		h.SetX(d.Rd, h.PC+4)
		*nextPC = target

		return nil
	})

	register(JALR, func(h *Hart, d Decoded, nextPC *Word) error {
		target := (h.X[d.Rs1] + d.Imm) &^ 1
		if target%4 != 0 {
			return exceptVal(CauseInstructionMisaligned, target)
		}

		h.SetX(d.Rd, h.PC+4)
		*nextPC = target

		return nil
	})
}

func registerBranch(op Op, cmp func(a, b Word) bool) {
	register(op, func(h *Hart, d Decoded, nextPC *Word) error {
		if !cmp(h.X[d.Rs1], h.X[d.Rs2]) {
			return nil
		}

		target := h.PC + d.Imm
		if target%4 != 0 {
			return exceptVal(CauseInstructionMisaligned, target)
		}

		*nextPC = target

		return nil
	})
}
