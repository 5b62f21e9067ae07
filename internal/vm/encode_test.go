package vm

// encode_test.go assembles raw instruction words by hand, the stand-in
// for an assembler (out of scope per spec §1/§6): every test program in
// this package is a literal []uint32 slice built from these encoders,
// matching SPEC_FULL.md's "golden-style instruction sequences assembled
// as literal word slices" test-tooling note.

func encodeR(opcode, funct3, funct7 uint32, rd, rs1, rs2 Register) uint32 {
	return opcode | uint32(rd)<<7 | funct3<<12 | uint32(rs1)<<15 | uint32(rs2)<<20 | funct7<<25
}

func encodeI(opcode, funct3 uint32, rd, rs1 Register, imm12 int32) uint32 {
	return opcode | uint32(rd)<<7 | funct3<<12 | uint32(rs1)<<15 | (uint32(imm12)&0xFFF)<<20
}

func encodeS(opcode, funct3 uint32, rs1, rs2 Register, imm12 int32) uint32 {
	u := uint32(imm12) & 0xFFF
	return opcode | (u&0x1F)<<7 | funct3<<12 | uint32(rs1)<<15 | uint32(rs2)<<20 | (u>>5)<<25
}

func encodeB(opcode, funct3 uint32, rs1, rs2 Register, imm13 int32) uint32 {
	u := uint32(imm13)
	bit11 := (u >> 11) & 1
	bit4_1 := (u >> 1) & 0xF
	bit10_5 := (u >> 5) & 0x3F
	bit12 := (u >> 12) & 1

	return opcode | bit11<<7 | bit4_1<<8 | funct3<<12 | uint32(rs1)<<15 | uint32(rs2)<<20 | bit10_5<<25 | bit12<<31
}

func encodeU(opcode uint32, rd Register, imm20 uint32) uint32 {
	return opcode | uint32(rd)<<7 | (imm20 << 12)
}

func encodeJ(opcode uint32, rd Register, imm21 int32) uint32 {
	u := uint32(imm21)
	bit19_12 := (u >> 12) & 0xFF
	bit11 := (u >> 11) & 1
	bit10_1 := (u >> 1) & 0x3FF
	bit20 := (u >> 20) & 1

	return opcode | uint32(rd)<<7 | bit19_12<<12 | bit11<<20 | bit10_1<<21 | bit20<<31
}

func encodeSystem(funct3 uint32, rd, rs1 Register, csr uint32) uint32 {
	return opcSystem | uint32(rd)<<7 | funct3<<12 | uint32(rs1)<<15 | csr<<20
}

func asmADDI(rd, rs1 Register, imm int32) uint32 { return encodeI(opcOpImm, 0b000, rd, rs1, imm) }
func asmANDI(rd, rs1 Register, imm int32) uint32 { return encodeI(opcOpImm, 0b111, rd, rs1, imm) }
func asmADD(rd, rs1, rs2 Register) uint32        { return encodeR(opcOp, 0b000, 0x00, rd, rs1, rs2) }
func asmLUI(rd Register, imm20 uint32) uint32     { return encodeU(opcLUI, rd, imm20) }
func asmJAL(rd Register, imm int32) uint32        { return encodeJ(opcJAL, rd, imm) }
func asmBNE(rs1, rs2 Register, imm int32) uint32  { return encodeB(opcBranch, 0b001, rs1, rs2, imm) }
func asmSW(rs1, rs2 Register, imm int32) uint32   { return encodeS(opcStore, 0b010, rs1, rs2, imm) }
func asmLW(rd, rs1 Register, imm int32) uint32    { return encodeI(opcLoad, 0b010, rd, rs1, imm) }
func asmEBREAK() uint32                            { return encodeSystem(0, 0, 0, 0x001) }
func asmECALL() uint32                             { return encodeSystem(0, 0, 0, 0x000) }
func asmMRET() uint32                               { return encodeSystem(0, 0, 0, 0x302) }
func asmSRET() uint32                               { return encodeSystem(0, 0, 0, 0x102) }
func asmCSRRW(rd, rs1 Register, csr uint32) uint32 { return encodeSystem(0b001, rd, rs1, csr) }
func asmCSRRS(rd, rs1 Register, csr uint32) uint32 { return encodeSystem(0b010, rd, rs1, csr) }
func asmCSRRWI(rd Register, zimm uint32, csr uint32) uint32 {
	return encodeSystem(0b101, rd, Register(zimm), csr)
}
func asmFENCEI() uint32 { return encodeI(opcMiscMem, 0b001, 0, 0, 0) }

// loadProgram writes words into RAM starting at the RAM base.
func loadProgram(h *Hart, words []uint32) {
	base := h.RAM().Base()
	for i, w := range words {
		if err := h.Bus().WriteWord(base+Word(i*4), w); err != nil {
			panic(err)
		}
	}
}
