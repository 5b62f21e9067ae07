package vm

// fpu.go implements the soft-FPU (spec §4.3): thirty-two NaN-boxed FP
// registers, single-precision arithmetic built on Go's native float32 (IEEE
// 754 binary32, round-to-nearest-even — the only rounding mode this build
// honors; the instruction rm field and fcsr.frm are not consulted), and
// double-precision stubs that reuse the same
// plumbing without a conformance claim, matching the original's todo!()
// double-precision paths.

import (
	"math"
)

const (
	fflagNX = 1 << 0
	fflagUF = 1 << 1
	fflagOF = 1 << 2
	fflagDZ = 1 << 3
	fflagNV = 1 << 4
)

// canonicalNaN32 is the canonical quiet NaN bit pattern for binary32.
const canonicalNaN32 uint32 = 0x7FC00000

// nanBoxTag marks the upper 32 bits of a NaN-boxed single-precision value.
const nanBoxTag uint64 = 0xFFFFFFFF00000000

// FPU holds the 32 floating-point registers and the sticky exception
// flags accumulated by the last operation (spec §4.3, ORed into fcsr by
// the executor after every FP instruction).
type FPU struct {
	regs   [NumFPRegisters]uint64
	lastFlags Word
}

func NewFPU() *FPU { return &FPU{} }

// ReadF32 unboxes register r as a float32. A register that was never
// validly NaN-boxed is read back as a quiet NaN, per the NaN-boxing rule
// (spec §3 Glossary).
func (f *FPU) ReadF32(r Register) float32 {
	v := f.regs[r]
	if v&nanBoxTag != nanBoxTag {
		return math.Float32frombits(canonicalNaN32)
	}

	return math.Float32frombits(uint32(v))
}

func (f *FPU) WriteF32(r Register, v float32) {
	f.regs[r] = nanBoxTag | uint64(math.Float32bits(v))
}

func (f *FPU) ReadF64(r Register) float64 { return math.Float64frombits(f.regs[r]) }
func (f *FPU) WriteF64(r Register, v float64) {
	f.regs[r] = math.Float64bits(v)
}

func (f *FPU) ReadBitsW(r Register) Word  { return Word(uint32(f.regs[r])) }
func (f *FPU) WriteBitsW(r Register, v Word) { f.WriteF32(r, math.Float32frombits(uint32(v))) }
func (f *FPU) ReadBitsD(r Register) Word  { return Word(f.regs[r]) }
func (f *FPU) WriteBitsD(r Register, v Word) { f.regs[r] = uint64(v) }

func (f *FPU) setFlags(flags Word) { f.lastFlags |= flags }

// TakeFlags returns and clears the sticky flags accumulated since the
// last call, for the executor to OR into fcsr.fflags.
func (f *FPU) TakeFlags() Word {
	v := f.lastFlags
	f.lastFlags = 0

	return v
}

func isSNaN32(v float32) bool {
	bits := math.Float32bits(v)
	return bits&0x7F800000 == 0x7F800000 && bits&0x007FFFFF != 0 && bits&0x00400000 == 0
}

func (f *FPU) classify(v float32) Word {
	bits := math.Float32bits(v)
	neg := bits>>31 != 0

	switch {
	case math.IsInf(float64(v), -1):
		return 1 << 0
	case math.IsInf(float64(v), 1):
		return 1 << 7
	case isSNaN32(v):
		return 1 << 8
	case math.IsNaN(float64(v)):
		return 1 << 9
	case v == 0:
		if neg {
			return 1 << 3
		}

		return 1 << 4
	case bits&0x7F800000 == 0: // subnormal
		if neg {
			return 1 << 2
		}

		return 1 << 5
	default:
		if neg {
			return 1 << 1
		}

		return 1 << 6
	}
}

func (f *FPU) Classify(v float32) Word { return f.classify(v) }

// minMaxNumber implements IEEE 754-2019 minimumNumber/maximumNumber (spec
// §4.3): numbers are propagated over quiet NaNs; a signaling NaN in either
// operand raises NV.
func (f *FPU) minMaxNumber(a, b float32, max bool) float32 {
	if isSNaN32(a) || isSNaN32(b) {
		f.setFlags(fflagNV)
	}

	aNaN, bNaN := math.IsNaN(float64(a)), math.IsNaN(float64(b))

	switch {
	case aNaN && bNaN:
		return math.Float32frombits(canonicalNaN32)
	case aNaN:
		return b
	case bNaN:
		return a
	}

	if a == 0 && b == 0 {
		aNeg := math.Signbit(float64(a))

		if max {
			if !aNeg {
				return a
			}

			return b
		}

		if aNeg {
			return a
		}

		return b
	}

	if max {
		if a > b {
			return a
		}

		return b
	}

	if a < b {
		return a
	}

	return b
}

func (f *FPU) Min(a, b float32) float32 { return f.minMaxNumber(a, b, false) }
func (f *FPU) Max(a, b float32) float32 { return f.minMaxNumber(a, b, true) }

func (f *FPU) Add(a, b float32) float32 { r := a + b; f.checkResult32(r); return r }
func (f *FPU) Sub(a, b float32) float32 { r := a - b; f.checkResult32(r); return r }
func (f *FPU) Mul(a, b float32) float32 { r := a * b; f.checkResult32(r); return r }

func (f *FPU) Div(a, b float32) float32 {
	if b == 0 && a != 0 && !math.IsNaN(float64(a)) {
		f.setFlags(fflagDZ)
	}

	r := a / b
	f.checkResult32(r)

	return r
}

func (f *FPU) Sqrt(a float32) float32 {
	if a < 0 {
		f.setFlags(fflagNV)
		return math.Float32frombits(canonicalNaN32)
	}

	r := float32(math.Sqrt(float64(a)))
	f.checkResult32(r)

	return r
}

// FMA computes (a*b)+c, negating operands as the fused-multiply-add
// variants require, in a single rounding step via math.FMA.
func (f *FPU) FMA(a, b, c float32, negMul, negAdd bool) float32 {
	if negMul {
		a = -a
	}

	if negAdd {
		c = -c
	}

	r := float32(math.FMA(float64(a), float64(b), float64(c)))
	f.checkResult32(r)

	return r
}

func (f *FPU) checkResult32(r float32) {
	if math.IsNaN(float64(r)) {
		f.setFlags(fflagNV)
	} else if math.IsInf(float64(r), 0) {
		f.setFlags(fflagOF)
	}
}

// Sgnj implements the sign-injection family: copy, negate, xor of signs.
func Sgnj(a, b float32, negate, xor bool) float32 {
	av, bv := math.Float32bits(a), math.Float32bits(b)
	sign := bv & 0x80000000

	if negate {
		sign ^= 0x80000000
	}

	if xor {
		sign = (av ^ bv) & 0x80000000
	}

	return math.Float32frombits((av &^ 0x80000000) | sign)
}

// CompareEQ/LT/LE implement feq.s (quiet) and flt.s/fle.s (signaling).
func (f *FPU) CompareEQ(a, b float32) bool {
	if isSNaN32(a) || isSNaN32(b) {
		f.setFlags(fflagNV)
	}

	return a == b
}

func (f *FPU) compareSignaling(a, b float32) {
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		f.setFlags(fflagNV)
	}
}

func (f *FPU) CompareLT(a, b float32) bool {
	f.compareSignaling(a, b)
	return a < b
}

func (f *FPU) CompareLE(a, b float32) bool {
	f.compareSignaling(a, b)
	return a <= b
}

// ToInt32/ToUint32/ToInt64/ToUint64 convert a float to integer with
// round-to-nearest-even and saturate on overflow, setting NV (spec §4.3).
func (f *FPU) ToInt32(v float32) Word {
	if math.IsNaN(float64(v)) {
		f.setFlags(fflagNV)
		return Word(uint32(math.MaxInt32))
	}

	r := math.RoundToEven(float64(v))
	if r > math.MaxInt32 {
		f.setFlags(fflagNV)
		return Word(uint32(math.MaxInt32))
	}

	if r < math.MinInt32 {
		f.setFlags(fflagNV)
		return SignExtend(Word(1)<<31, 32)
	}

	if r != float64(v) {
		f.setFlags(fflagNX)
	}

	return SignExtend(Word(uint32(int32(r))), 32)
}

func (f *FPU) ToUint32(v float32) Word {
	if math.IsNaN(float64(v)) || v < 0 {
		f.setFlags(fflagNV)
		if v < 0 {
			return 0
		}

		return Word(uint32(math.MaxUint32))
	}

	r := math.RoundToEven(float64(v))
	if r > math.MaxUint32 {
		f.setFlags(fflagNV)
		return Word(uint32(math.MaxUint32))
	}

	if r != float64(v) {
		f.setFlags(fflagNX)
	}

	return SignExtend(Word(uint32(r)), 32)
}

func (f *FPU) ToInt64(v float32) Word {
	if math.IsNaN(float64(v)) {
		f.setFlags(fflagNV)
		return Word(uint64(math.MaxInt64))
	}

	r := math.RoundToEven(float64(v))
	if r >= math.MaxInt64 {
		f.setFlags(fflagNV)
		return Word(uint64(math.MaxInt64))
	}

	if r < math.MinInt64 {
		f.setFlags(fflagNV)
		return Word(1) << 63
	}

	if r != float64(v) {
		f.setFlags(fflagNX)
	}

	return Word(int64(r))
}

func (f *FPU) ToUint64(v float32) Word {
	if math.IsNaN(float64(v)) || v < 0 {
		f.setFlags(fflagNV)
		if v < 0 {
			return 0
		}

		return Word(uint64(math.MaxUint64))
	}

	r := math.RoundToEven(float64(v))
	if r != float64(v) {
		f.setFlags(fflagNX)
	}

	return Word(uint64(r))
}

func (f *FPU) FromInt32(v int32) float32   { return float32(v) }
func (f *FPU) FromUint32(v uint32) float32 { return float32(v) }
func (f *FPU) FromInt64(v int64) float32   { return float32(v) }
func (f *FPU) FromUint64(v uint64) float32 { return float32(v) }
