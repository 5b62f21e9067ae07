package vm

// mem.go implements physical RAM and the device bus (spec §4.1). The bus
// generalizes the teacher's MMIO type (io.go: a map keyed by a handful of
// fixed addresses) to an ordered, binary-searched set of address windows,
// since the RISC-V address map has windows of very different sizes (a
// 64KiB CLINT, a 64MiB PLIC, an 8-byte UART) rather than individual
// registers.

import (
	"sort"

	"github.com/rvemu/core/internal/log"
)

// Width is an access width in bytes; the bus and every device operate on
// one of these four.
type Width int

const (
	Byte  Width = 1
	Half  Width = 2
	Word32 Width = 4
	Word64 Width = 8
)

// Device is a memory-mapped peripheral. Addr is the offset within the
// device's own window, already validated to be in range by the bus.
type Device interface {
	Name() string
	Load(addr Word, width Width) (Word, error)
	Store(addr Word, width Width, value Word) error
}

// window is one entry in the bus's address map.
type window struct {
	base, size Word
	dev        Device
}

// RAM is a flat byte-addressable array mapped at a fixed base.
type RAM struct {
	base  Word
	bytes []byte
}

func NewRAM(base Word, size int) *RAM {
	return &RAM{base: base, bytes: make([]byte, size)}
}

func (r *RAM) Name() string { return "ram" }

func (r *RAM) Size() Word { return Word(len(r.bytes)) }

func (r *RAM) Base() Word { return r.base }

func (r *RAM) Load(addr Word, width Width) (Word, error) {
	off := int(addr)
	if off < 0 || off+int(width) > len(r.bytes) {
		return 0, &MemError{Addr: r.base + addr, Width: int(width), Kind: MemErrFault}
	}

	var v uint64
	for i := 0; i < int(width); i++ {
		v |= uint64(r.bytes[off+i]) << (8 * i)
	}

	return Word(v), nil
}

func (r *RAM) Store(addr Word, width Width, value Word) error {
	off := int(addr)
	if off < 0 || off+int(width) > len(r.bytes) {
		return &MemError{Addr: r.base + addr, Width: int(width), Kind: MemErrFault}
	}

	for i := 0; i < int(width); i++ {
		r.bytes[off+i] = byte(value >> (8 * i))
	}

	return nil
}

// Bytes gives the loader direct access to RAM for PT_LOAD segment copies.
func (r *RAM) Bytes() []byte { return r.bytes }

// Bus is the device-bus/MMIO router (spec §4.1, §4.2). It owns RAM as the
// fallback window and a sorted list of device windows above it.
type Bus struct {
	ram     *RAM
	windows []window
	log     *log.Logger
}

func NewBus(ram *RAM, logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.DefaultLogger()
	}

	return &Bus{ram: ram, log: logger}
}

// Map registers a device window. Windows must be disjoint; Map does not
// re-validate this at run time (construction-time invariant, spec §3).
func (b *Bus) Map(base Word, size Word, dev Device) {
	b.windows = append(b.windows, window{base: base, size: size, dev: dev})
	sort.Slice(b.windows, func(i, j int) bool { return b.windows[i].base < b.windows[j].base })
}

// find returns the window containing [addr, addr+width), or nil if RAM
// should handle it (or no window matches at all).
func (b *Bus) find(addr Word, width Width) *window {
	i := sort.Search(len(b.windows), func(i int) bool { return b.windows[i].base+b.windows[i].size > addr })
	if i == len(b.windows) {
		return nil
	}

	w := &b.windows[i]
	if addr < w.base || addr+Word(width) > w.base+w.size {
		return nil
	}

	return w
}

func readBus[T ~uint8 | ~uint16 | ~uint32 | ~uint64](b *Bus, addr Word) (T, error) {
	var zero T

	width := Width(sizeOf[T]())
	if addr%Word(width) != 0 {
		return zero, &MemError{Addr: addr, Width: int(width), Kind: MemErrMisaligned}
	}

	if w := b.find(addr, width); w != nil {
		v, err := w.dev.Load(addr-w.base, width)
		return T(v), err
	}

	if addr >= b.ram.base && addr+Word(width) <= b.ram.base+b.ram.Size() {
		v, err := b.ram.Load(addr-b.ram.base, width)
		return T(v), err
	}

	return zero, &MemError{Addr: addr, Width: int(width), Kind: MemErrFault}
}

func writeBus[T ~uint8 | ~uint16 | ~uint32 | ~uint64](b *Bus, addr Word, value T) error {
	width := Width(sizeOf[T]())
	if addr%Word(width) != 0 {
		return &MemError{Addr: addr, Width: int(width), Kind: MemErrMisaligned}
	}

	if w := b.find(addr, width); w != nil {
		return w.dev.Store(addr-w.base, width, Word(value))
	}

	if addr >= b.ram.base && addr+Word(width) <= b.ram.base+b.ram.Size() {
		return b.ram.Store(addr-b.ram.base, width, Word(value))
	}

	return &MemError{Addr: addr, Width: int(width), Kind: MemErrFault}
}

func sizeOf[T ~uint8 | ~uint16 | ~uint32 | ~uint64]() int {
	var v T

	switch any(v).(type) {
	case uint8:
		return 1
	case uint16:
		return 2
	case uint32:
		return 4
	default:
		return 8
	}
}

// ReadByte, ReadHalf, ReadWord, ReadDword and their Write counterparts are
// the typed bus accessors spec §4.1 calls read<T>/write<T>.
func (b *Bus) ReadByte(addr Word) (uint8, error)   { return readBus[uint8](b, addr) }
func (b *Bus) ReadHalf(addr Word) (uint16, error)  { return readBus[uint16](b, addr) }
func (b *Bus) ReadWord(addr Word) (uint32, error)  { return readBus[uint32](b, addr) }
func (b *Bus) ReadDword(addr Word) (uint64, error) { return readBus[uint64](b, addr) }

func (b *Bus) WriteByte(addr Word, v uint8) error   { return writeBus(b, addr, v) }
func (b *Bus) WriteHalf(addr Word, v uint16) error  { return writeBus(b, addr, v) }
func (b *Bus) WriteWord(addr Word, v uint32) error  { return writeBus(b, addr, v) }
func (b *Bus) WriteDword(addr Word, v uint64) error { return writeBus(b, addr, v) }

// ReadWidth and WriteWidth dispatch on a runtime Width, used by the
// executor's load/store handlers which only know the width at decode time.
func (b *Bus) ReadWidth(addr Word, width Width) (Word, error) {
	switch width {
	case Byte:
		v, err := b.ReadByte(addr)
		return Word(v), err
	case Half:
		v, err := b.ReadHalf(addr)
		return Word(v), err
	case Word32:
		v, err := b.ReadWord(addr)
		return Word(v), err
	default:
		v, err := b.ReadDword(addr)
		return Word(v), err
	}
}

func (b *Bus) WriteWidth(addr Word, width Width, value Word) error {
	switch width {
	case Byte:
		return b.WriteByte(addr, uint8(value))
	case Half:
		return b.WriteHalf(addr, uint16(value))
	case Word32:
		return b.WriteWord(addr, uint32(value))
	default:
		return b.WriteDword(addr, uint64(value))
	}
}
