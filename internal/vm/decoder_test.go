package vm

import "testing"

func TestDecode_IType(t *testing.T) {
	d, ok := Decode(RawInstruction(asmADDI(5, 6, -10)))
	if !ok {
		t.Fatal("expected ADDI to decode")
	}

	if d.Op != ADDI || d.Rd != 5 || d.Rs1 != 6 {
		t.Fatalf("decoded = %+v, want ADDI x5, x6, -10", d)
	}

	if int64(d.Imm) != -10 {
		t.Fatalf("Imm = %d, want -10", int64(d.Imm))
	}
}

func TestDecode_RType(t *testing.T) {
	d, ok := Decode(RawInstruction(asmADD(1, 2, 3)))
	if !ok {
		t.Fatal("expected ADD to decode")
	}

	if d.Op != ADD || d.Rd != 1 || d.Rs1 != 2 || d.Rs2 != 3 {
		t.Fatalf("decoded = %+v, want ADD x1, x2, x3", d)
	}
}

func TestDecode_MExtension(t *testing.T) {
	raw := encodeR(opcOp, 0b000, 0x01, 7, 8, 9) // MUL x7, x8, x9
	d, ok := Decode(RawInstruction(raw))
	if !ok {
		t.Fatal("expected MUL to decode")
	}

	if d.Op != MUL {
		t.Fatalf("Op = %s, want MUL", d.Op)
	}
}

func TestDecode_SType(t *testing.T) {
	d, ok := Decode(RawInstruction(asmSW(10, 11, -4)))
	if !ok {
		t.Fatal("expected SW to decode")
	}

	if d.Op != SW || d.Rs1 != 10 || d.Rs2 != 11 || int64(d.Imm) != -4 {
		t.Fatalf("decoded = %+v, want SW x11, -4(x10)", d)
	}
}

func TestDecode_BType(t *testing.T) {
	d, ok := Decode(RawInstruction(asmBNE(1, 2, -4)))
	if !ok {
		t.Fatal("expected BNE to decode")
	}

	if d.Op != BNE || d.Rs1 != 1 || d.Rs2 != 2 || int64(d.Imm) != -4 {
		t.Fatalf("decoded = %+v, want BNE x1, x2, -4", d)
	}
}

func TestDecode_UType(t *testing.T) {
	d, ok := Decode(RawInstruction(asmLUI(4, 0xABCDE)))
	if !ok {
		t.Fatal("expected LUI to decode")
	}

	if d.Op != LUI || d.Rd != 4 || d.Imm != SignExtend(Word(0xABCDE)<<12, 32) {
		t.Fatalf("decoded = %+v, want LUI x4, 0xabcde", d)
	}
}

func TestDecode_JType(t *testing.T) {
	d, ok := Decode(RawInstruction(asmJAL(1, 2048)))
	if !ok {
		t.Fatal("expected JAL to decode")
	}

	if d.Op != JAL || d.Rd != 1 || int64(d.Imm) != 2048 {
		t.Fatalf("decoded = %+v, want JAL x1, 2048", d)
	}
}

func TestDecode_SystemCSR(t *testing.T) {
	d, ok := Decode(RawInstruction(asmCSRRW(1, 2, csrMTVEC)))
	if !ok {
		t.Fatal("expected CSRRW to decode")
	}

	if d.Op != CSRRW || d.Rd != 1 || d.Rs1 != 2 || d.CSR != csrMTVEC {
		t.Fatalf("decoded = %+v, want CSRRW x1, x2, mtvec", d)
	}
}

func TestDecode_SystemFixedOps(t *testing.T) {
	cases := []struct {
		raw  uint32
		want Op
	}{
		{asmECALL(), ECALL},
		{asmEBREAK(), EBREAK},
		{asmMRET(), MRET},
		{asmSRET(), SRET},
	}

	for _, c := range cases {
		d, ok := Decode(RawInstruction(c.raw))
		if !ok {
			t.Fatalf("expected %s to decode", c.want)
		}

		if d.Op != c.want {
			t.Errorf("decoded op = %s, want %s", d.Op, c.want)
		}
	}
}

func TestDecode_FPLoadStore(t *testing.T) {
	flw := encodeI(opcLoadFP, 0b010, 1, 2, 16)
	d, ok := Decode(RawInstruction(flw))
	if !ok {
		t.Fatal("expected FLW to decode")
	}

	if d.Op != FLW || d.Rd != 1 || d.Rs1 != 2 || int64(d.Imm) != 16 {
		t.Fatalf("decoded = %+v, want FLW f1, 16(x2)", d)
	}
}

func TestDecode_FPArithmetic(t *testing.T) {
	// FADD.S f1, f2, f3: opc=OP-FP, funct7=0x00 (add, single), rs2=f3.
	raw := encodeR(opcOpFP, 0b000, 0x00, 1, 2, 3)
	d, ok := Decode(RawInstruction(raw))
	if !ok {
		t.Fatal("expected FADD.S to decode")
	}

	if d.Op != FADDS {
		t.Fatalf("Op = %s, want FADDS", d.Op)
	}
}

func TestDecode_IllegalOpcodeFails(t *testing.T) {
	if _, ok := Decode(RawInstruction(0xFFFFFFFF)); ok {
		t.Fatal("expected 0xffffffff to fail decoding")
	}
}

func TestDecode_UnrecognizedFunct3InKnownOpcodeFails(t *testing.T) {
	// opcBranch with funct3=0b010/0b011 is not a defined branch op.
	raw := encodeB(opcBranch, 0b010, 1, 2, 4)
	if _, ok := Decode(RawInstruction(raw)); ok {
		t.Fatal("expected an undefined branch funct3 to fail decoding")
	}
}
