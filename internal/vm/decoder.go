package vm

// decoder.go implements the two-stage decoder described in spec §4.6: a mask
// decoder handles instructions keyed by their full funct7/funct12 (SYSTEM,
// AMO-shaped FP ops), falling through to a funct3/funct7 table decoder for
// the arithmetic and memory opcodes. Both stages are plain Go switches over
// the opcode table in isa.go, which plays the part of the build-time
// generated instruction table: immutable, and consulted only by Decode.

import "fmt"

// Decoded is the canonical tagged decoded-instruction value (spec §3):
// a fixed operand shape regardless of the original encoding format.
type Decoded struct {
	Op  Op
	Raw RawInstruction

	Rd, Rs1, Rs2, Rs3 Register
	Rm                uint32 // rounding mode, or funct3 for integer ops that need it
	Imm               Word   // sign-extended to Word at decode; U-type values are already shifted into bits 31:12
	CSR               Word
}

func (d Decoded) String() string {
	return fmt.Sprintf("%s rd=%s rs1=%s rs2=%s imm=%s", d.Op, d.Rd, d.Rs1, d.Rs2, d.Imm)
}

// Decode decodes a raw instruction word. It returns ok=false if no
// instruction matches, which the executor turns into IllegalInstruction.
func Decode(raw RawInstruction) (Decoded, bool) {
	if d, ok := decodeMasked(raw); ok {
		return d, true
	}

	return decodeFunct(raw)
}

// decodeMasked matches instructions whose full bit pattern beyond the opcode
// must be checked: SYSTEM (funct12) and the FP opcodes keyed on funct7.
func decodeMasked(raw RawInstruction) (Decoded, bool) {
	switch raw.Opcode() {
	case opcSystem:
		return decodeSystem(raw)
	case opcOpFP, opcMadd, opcMsub, opcNmsub, opcNmadd, opcLoadFP, opcStoreFP:
		return decodeFP(raw)
	default:
		return Decoded{}, false
	}
}

func decodeSystem(raw RawInstruction) (Decoded, bool) {
	f3 := raw.Funct3()
	if f3 != 0 {
		// CSR instructions: funct3 selects the op; rs1/imm selects
		// register vs immediate source.
		var op Op

		switch f3 {
		case 0b001:
			op = CSRRW
		case 0b010:
			op = CSRRS
		case 0b011:
			op = CSRRC
		case 0b101:
			op = CSRRWI
		case 0b110:
			op = CSRRSI
		case 0b111:
			op = CSRRCI
		default:
			return Decoded{}, false
		}

		return Decoded{
			Op: op, Raw: raw, Rd: raw.Rd(), Rs1: raw.Rs1(),
			Imm: Word(uint32(raw.Rs1())), // rs1 field doubles as the 5-bit zimm for *I variants
			CSR: raw.CSRAddr(),
		}, true
	}

	switch raw.Funct12() {
	case 0x000:
		return Decoded{Op: ECALL, Raw: raw}, true
	case 0x001:
		return Decoded{Op: EBREAK, Raw: raw}, true
	case 0x302:
		return Decoded{Op: MRET, Raw: raw}, true
	case 0x102:
		return Decoded{Op: SRET, Raw: raw}, true
	case 0x105:
		return Decoded{Op: WFI, Raw: raw}, true
	default:
		if raw.Funct7() == 0x09 {
			return Decoded{Op: SFENCEVMA, Raw: raw, Rs1: raw.Rs1(), Rs2: raw.Rs2()}, true
		}

		return Decoded{}, false
	}
}

// decodeFunct handles opcodes whose operation is selected by funct3 (and, for
// OP/OP-32, funct7).
func decodeFunct(raw RawInstruction) (Decoded, bool) {
	switch raw.Opcode() {
	case opcLUI:
		return Decoded{Op: LUI, Raw: raw, Rd: raw.Rd(), Imm: raw.UImm()}, true
	case opcAUIPC:
		return Decoded{Op: AUIPC, Raw: raw, Rd: raw.Rd(), Imm: raw.UImm()}, true
	case opcJAL:
		return Decoded{Op: JAL, Raw: raw, Rd: raw.Rd(), Imm: raw.JImm()}, true
	case opcJALR:
		if raw.Funct3() != 0 {
			return Decoded{}, false
		}

		return Decoded{Op: JALR, Raw: raw, Rd: raw.Rd(), Rs1: raw.Rs1(), Imm: raw.IImm()}, true
	case opcBranch:
		return decodeBranch(raw)
	case opcLoad:
		return decodeLoad(raw)
	case opcStore:
		return decodeStore(raw)
	case opcOpImm:
		return decodeOpImm(raw, false)
	case opcOpImm32:
		return decodeOpImm(raw, true)
	case opcOp:
		return decodeOp(raw, false)
	case opcOp32:
		return decodeOp(raw, true)
	case opcMiscMem:
		if raw.Funct3() == 0b001 {
			return Decoded{Op: FENCEI, Raw: raw}, true
		}

		return Decoded{Op: FENCE, Raw: raw}, true
	default:
		return Decoded{}, false
	}
}

func decodeBranch(raw RawInstruction) (Decoded, bool) {
	ops := map[uint32]Op{0b000: BEQ, 0b001: BNE, 0b100: BLT, 0b101: BGE, 0b110: BLTU, 0b111: BGEU}

	op, ok := ops[raw.Funct3()]
	if !ok {
		return Decoded{}, false
	}

	return Decoded{Op: op, Raw: raw, Rs1: raw.Rs1(), Rs2: raw.Rs2(), Imm: raw.BImm()}, true
}

func decodeLoad(raw RawInstruction) (Decoded, bool) {
	ops := map[uint32]Op{0b000: LB, 0b001: LH, 0b010: LW, 0b011: LD, 0b100: LBU, 0b101: LHU, 0b110: LWU}

	op, ok := ops[raw.Funct3()]
	if !ok {
		return Decoded{}, false
	}

	return Decoded{Op: op, Raw: raw, Rd: raw.Rd(), Rs1: raw.Rs1(), Imm: raw.IImm()}, true
}

func decodeStore(raw RawInstruction) (Decoded, bool) {
	ops := map[uint32]Op{0b000: SB, 0b001: SH, 0b010: SW, 0b011: SD}

	op, ok := ops[raw.Funct3()]
	if !ok {
		return Decoded{}, false
	}

	return Decoded{Op: op, Raw: raw, Rs1: raw.Rs1(), Rs2: raw.Rs2(), Imm: raw.SImm()}, true
}

func decodeOpImm(raw RawInstruction, w32 bool) (Decoded, bool) {
	f3 := raw.Funct3()
	d := Decoded{Raw: raw, Rd: raw.Rd(), Rs1: raw.Rs1(), Imm: raw.IImm()}

	if w32 {
		switch f3 {
		case 0b000:
			d.Op = ADDIW
		case 0b001:
			d.Op, d.Imm = SLLIW, raw.Shamt(32)
		case 0b101:
			if raw.Funct7()&0x20 != 0 {
				d.Op = SRAIW
			} else {
				d.Op = SRLIW
			}

			d.Imm = raw.Shamt(32)
		default:
			return Decoded{}, false
		}

		return d, true
	}

	switch f3 {
	case 0b000:
		d.Op = ADDI
	case 0b010:
		d.Op = SLTI
	case 0b011:
		d.Op = SLTIU
	case 0b100:
		d.Op = XORI
	case 0b110:
		d.Op = ORI
	case 0b111:
		d.Op = ANDI
	case 0b001:
		d.Op, d.Imm = SLLI, raw.Shamt(64)
	case 0b101:
		if raw.Funct7()&0x20 != 0 {
			d.Op = SRAI
		} else {
			d.Op = SRLI
		}

		d.Imm = raw.Shamt(64)
	default:
		return Decoded{}, false
	}

	return d, true
}

func decodeOp(raw RawInstruction, w32 bool) (Decoded, bool) {
	f3, f7 := raw.Funct3(), raw.Funct7()
	d := Decoded{Raw: raw, Rd: raw.Rd(), Rs1: raw.Rs1(), Rs2: raw.Rs2()}

	if f7 == 0x01 { // M extension
		muls := map[uint32]Op{0b000: MUL, 0b001: MULH, 0b010: MULHSU, 0b011: MULHU,
			0b100: DIV, 0b101: DIVU, 0b110: REM, 0b111: REMU}
		mulsW := map[uint32]Op{0b000: MULW, 0b100: DIVW, 0b101: DIVUW, 0b110: REMW, 0b111: REMUW}

		table := muls
		if w32 {
			table = mulsW
		}

		op, ok := table[f3]
		if !ok {
			return Decoded{}, false
		}

		d.Op = op

		return d, true
	}

	if w32 {
		switch {
		case f3 == 0b000 && f7 == 0x00:
			d.Op = ADDW
		case f3 == 0b000 && f7 == 0x20:
			d.Op = SUBW
		case f3 == 0b001 && f7 == 0x00:
			d.Op = SLLW
		case f3 == 0b101 && f7 == 0x00:
			d.Op = SRLW
		case f3 == 0b101 && f7 == 0x20:
			d.Op = SRAW
		default:
			return Decoded{}, false
		}

		return d, true
	}

	switch {
	case f3 == 0b000 && f7 == 0x00:
		d.Op = ADD
	case f3 == 0b000 && f7 == 0x20:
		d.Op = SUB
	case f3 == 0b001:
		d.Op = SLL
	case f3 == 0b010:
		d.Op = SLT
	case f3 == 0b011:
		d.Op = SLTU
	case f3 == 0b100:
		d.Op = XOR
	case f3 == 0b101 && f7 == 0x00:
		d.Op = SRL
	case f3 == 0b101 && f7 == 0x20:
		d.Op = SRA
	case f3 == 0b110:
		d.Op = OR
	case f3 == 0b111:
		d.Op = AND
	default:
		return Decoded{}, false
	}

	return d, true
}

func decodeFP(raw RawInstruction) (Decoded, bool) {
	d := Decoded{Raw: raw, Rd: raw.Rd(), Rs1: raw.Rs1(), Rs2: raw.Rs2(), Rs3: raw.Rs3(), Rm: raw.Rm()}

	switch raw.Opcode() {
	case opcLoadFP:
		switch raw.Funct3() {
		case 0b010:
			d.Op = FLW
		case 0b011:
			d.Op = FLD
		default:
			return Decoded{}, false
		}

		d.Imm = raw.IImm()

		return d, true
	case opcStoreFP:
		switch raw.Funct3() {
		case 0b010:
			d.Op = FSW
		case 0b011:
			d.Op = FSD
		default:
			return Decoded{}, false
		}

		d.Imm = raw.SImm()

		return d, true
	case opcMadd:
		d.Op = FMADDS
		return d, true
	case opcMsub:
		d.Op = FMSUBS
		return d, true
	case opcNmsub:
		d.Op = FNMSUBS
		return d, true
	case opcNmadd:
		d.Op = FNMADDS
		return d, true
	}

	f7 := raw.Funct7()
	fmt_ := f7 & 0x3    // bottom two bits of funct7 select S(00)/D(01)
	f7base := f7 &^ 0x3 // funct7 with the format bits cleared

	type key struct {
		f5  uint32
		fmt uint32
	}

	ops := map[key]Op{
		{0x00, 0}: FADDS, {0x04, 0}: FSUBS, {0x08, 0}: FMULS, {0x0c, 0}: FDIVS,
		{0x2c, 0}: FSQRTS,
		{0x00, 1}: FADDD, {0x04, 1}: FSUBD, {0x08, 1}: FMULD, {0x0c, 1}: FDIVD,
		{0x2c, 1}: FSQRTD,
	}

	if op, ok := ops[key{f7base, fmt_}]; ok {
		d.Op = op
		return d, true
	}

	switch f7 {
	case 0x10: // sign-injection, min/max (funct3 selects which)
		switch raw.Funct3() {
		case 0b000:
			d.Op = FSGNJS
		case 0b001:
			d.Op = FSGNJNS
		case 0b010:
			d.Op = FSGNJXS
		default:
			return Decoded{}, false
		}

		return d, true
	case 0x14:
		if raw.Funct3() == 0 {
			d.Op = FMINS
		} else {
			d.Op = FMAXS
		}

		return d, true
	case 0x60:
		switch raw.Rs2() {
		case 0:
			d.Op = FCVTWS
		case 1:
			d.Op = FCVTWUS
		case 2:
			d.Op = FCVTLS
		case 3:
			d.Op = FCVTLUS
		default:
			return Decoded{}, false
		}

		return d, true
	case 0x68:
		switch raw.Rs2() {
		case 0:
			d.Op = FCVTSW
		case 1:
			d.Op = FCVTSWU
		case 2:
			d.Op = FCVTSL
		case 3:
			d.Op = FCVTSLU
		default:
			return Decoded{}, false
		}

		return d, true
	case 0x70:
		if raw.Funct3() == 0 {
			d.Op = FMVXW
		} else {
			d.Op = FCLASSS
		}

		return d, true
	case 0x71:
		d.Op = FMVXD
		return d, true
	case 0x78:
		d.Op = FMVWX
		return d, true
	case 0x79:
		d.Op = FMVDX
		return d, true
	case 0x50:
		switch raw.Funct3() {
		case 0b010:
			d.Op = FEQS
		case 0b001:
			d.Op = FLTS
		case 0b000:
			d.Op = FLES
		default:
			return Decoded{}, false
		}

		return d, true
	case 0x20:
		d.Op = FCVTSD
		return d, true
	case 0x21:
		d.Op = FCVTDS
		return d, true
	}

	return Decoded{}, false
}
