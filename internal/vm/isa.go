package vm

// isa.go enumerates the instructions this hart understands. In the original
// system this table is generated from a JSON ISA description at build time
// (spec §4.6, §6); here it is written out directly as the generated table
// would render, since no code generator is in scope for this repository.

// Op identifies a decoded instruction's operation. It plays the role the
// teacher's Opcode type plays for the LC-3: a dense, closed enumeration that
// the executor dispatches on.
type Op uint16

// Instruction mnemonics, grouped by the extension that defines them.
const (
	opInvalid Op = iota

	// RV32I/RV64I base.
	LUI
	AUIPC
	JAL
	JALR
	BEQ
	BNE
	BLT
	BGE
	BLTU
	BGEU
	LB
	LH
	LW
	LBU
	LHU
	LWU
	LD
	SB
	SH
	SW
	SD
	ADDI
	SLTI
	SLTIU
	XORI
	ORI
	ANDI
	SLLI
	SRLI
	SRAI
	ADD
	SUB
	SLL
	SLT
	SLTU
	XOR
	SRL
	SRA
	OR
	AND
	FENCE
	FENCEI
	ECALL
	EBREAK
	ADDIW
	SLLIW
	SRLIW
	SRAIW
	ADDW
	SUBW
	SLLW
	SRLW
	SRAW

	// M extension.
	MUL
	MULH
	MULHSU
	MULHU
	DIV
	DIVU
	REM
	REMU
	MULW
	DIVW
	DIVUW
	REMW
	REMUW

	// Zicsr.
	CSRRW
	CSRRS
	CSRRC
	CSRRWI
	CSRRSI
	CSRRCI

	// Privileged / trap-return.
	MRET
	SRET
	WFI
	SFENCEVMA

	// F extension (single precision; double-precision opcodes decode but
	// execute as stubs, see fpu.go).
	FLW
	FSW
	FMADDS
	FMSUBS
	FNMSUBS
	FNMADDS
	FADDS
	FSUBS
	FMULS
	FDIVS
	FSQRTS
	FSGNJS
	FSGNJNS
	FSGNJXS
	FMINS
	FMAXS
	FCVTWS
	FCVTWUS
	FCVTLS
	FCVTLUS
	FMVXW
	FEQS
	FLTS
	FLES
	FCLASSS
	FCVTSW
	FCVTSWU
	FCVTSL
	FCVTSLU
	FMVWX

	// Double-precision counterparts, stubbed per spec §4.3/§9.
	FLD
	FSD
	FADDD
	FSUBD
	FMULD
	FDIVD
	FSQRTD
	FCVTSD
	FCVTDS
	FMVXD
	FMVDX
)

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}

	return "UNKNOWN"
}

var opNames = map[Op]string{
	LUI: "lui", AUIPC: "auipc", JAL: "jal", JALR: "jalr",
	BEQ: "beq", BNE: "bne", BLT: "blt", BGE: "bge", BLTU: "bltu", BGEU: "bgeu",
	LB: "lb", LH: "lh", LW: "lw", LBU: "lbu", LHU: "lhu", LWU: "lwu", LD: "ld",
	SB: "sb", SH: "sh", SW: "sw", SD: "sd",
	ADDI: "addi", SLTI: "slti", SLTIU: "sltiu", XORI: "xori", ORI: "ori", ANDI: "andi",
	SLLI: "slli", SRLI: "srli", SRAI: "srai",
	ADD: "add", SUB: "sub", SLL: "sll", SLT: "slt", SLTU: "sltu", XOR: "xor",
	SRL: "srl", SRA: "sra", OR: "or", AND: "and",
	FENCE: "fence", FENCEI: "fence.i", ECALL: "ecall", EBREAK: "ebreak",
	ADDIW: "addiw", SLLIW: "slliw", SRLIW: "srliw", SRAIW: "sraiw",
	ADDW: "addw", SUBW: "subw", SLLW: "sllw", SRLW: "srlw", SRAW: "sraw",
	MUL: "mul", MULH: "mulh", MULHSU: "mulhsu", MULHU: "mulhu",
	DIV: "div", DIVU: "divu", REM: "rem", REMU: "remu",
	MULW: "mulw", DIVW: "divw", DIVUW: "divuw", REMW: "remw", REMUW: "remuw",
	CSRRW: "csrrw", CSRRS: "csrrs", CSRRC: "csrrc",
	CSRRWI: "csrrwi", CSRRSI: "csrrsi", CSRRCI: "csrrci",
	MRET: "mret", SRET: "sret", WFI: "wfi", SFENCEVMA: "sfence.vma",
	FLW: "flw", FSW: "fsw",
	FMADDS: "fmadd.s", FMSUBS: "fmsub.s", FNMSUBS: "fnmsub.s", FNMADDS: "fnmadd.s",
	FADDS: "fadd.s", FSUBS: "fsub.s", FMULS: "fmul.s", FDIVS: "fdiv.s", FSQRTS: "fsqrt.s",
	FSGNJS: "fsgnj.s", FSGNJNS: "fsgnjn.s", FSGNJXS: "fsgnjx.s",
	FMINS: "fmin.s", FMAXS: "fmax.s",
	FCVTWS: "fcvt.w.s", FCVTWUS: "fcvt.wu.s", FCVTLS: "fcvt.l.s", FCVTLUS: "fcvt.lu.s",
	FMVXW: "fmv.x.w", FEQS: "feq.s", FLTS: "flt.s", FLES: "fle.s", FCLASSS: "fclass.s",
	FCVTSW: "fcvt.s.w", FCVTSWU: "fcvt.s.wu", FCVTSL: "fcvt.s.l", FCVTSLU: "fcvt.s.lu",
	FMVWX: "fmv.w.x",
	FLD:    "fld", FSD: "fsd", FADDD: "fadd.d", FSUBD: "fsub.d", FMULD: "fmul.d", FDIVD: "fdiv.d",
	FSQRTD: "fsqrt.d", FCVTSD: "fcvt.s.d", FCVTDS: "fcvt.d.s", FMVXD: "fmv.x.d", FMVDX: "fmv.d.x",
}

// Base opcode field values (bits 0-6), per the RV32/64 base ISA.
const (
	opcLoad    = 0x03
	opcLoadFP  = 0x07
	opcMiscMem = 0x0f
	opcOpImm   = 0x13
	opcAUIPC   = 0x17
	opcOpImm32 = 0x1b
	opcStore   = 0x23
	opcStoreFP = 0x27
	opcAMO     = 0x2f
	opcOp      = 0x33
	opcLUI     = 0x37
	opcOp32    = 0x3b
	opcMadd    = 0x43
	opcMsub    = 0x47
	opcNmsub   = 0x4b
	opcNmadd   = 0x4f
	opcOpFP    = 0x53
	opcBranch  = 0x63
	opcJALR    = 0x67
	opcJAL     = 0x6f
	opcSystem  = 0x73
)
