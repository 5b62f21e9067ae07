// Package elfload loads an ELF32/ELF64 RISC-V image into a Hart's
// physical memory (spec §6 "ELF loader"). It uses the standard library's
// debug/elf rather than a hand-rolled parser: no third-party ELF crate
// appears anywhere in the retrieval pack this project draws its
// dependency stack from, and debug/elf is the idiomatic tool for the job
// (see DESIGN.md).
package elfload

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/rvemu/core/internal/vm"
)

// Image is a parsed, loadable ELF file.
type Image struct {
	Entry   uint64
	symbols map[string]uint64
}

// Load parses r as an ELF32 or ELF64 file and streams every PT_LOAD
// segment into h's bus at its virtual address, which this flat-model
// board treats as physical (spec §6). Non-ELF input is rejected.
func Load(h *vm.Hart, r io.ReaderAt) (*Image, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("elfload: not an ELF file: %w", err)
	}
	defer f.Close()

	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("elfload: machine %s is not EM_RISCV", f.Machine)
	}

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err != nil && err != io.EOF {
			return nil, fmt.Errorf("elfload: reading segment at %#x: %w", prog.Vaddr, err)
		}

		for i, b := range data {
			if err := h.Bus().WriteByte(vm.Word(prog.Vaddr)+vm.Word(i), b); err != nil {
				return nil, fmt.Errorf("elfload: writing segment byte at %#x: %w", prog.Vaddr+uint64(i), err)
			}
		}

		for i := uint64(len(data)); i < prog.Memsz; i++ {
			if err := h.Bus().WriteByte(vm.Word(prog.Vaddr)+vm.Word(i), 0); err != nil {
				return nil, fmt.Errorf("elfload: zeroing bss byte at %#x: %w", prog.Vaddr+i, err)
			}
		}
	}

	img := &Image{Entry: f.Entry, symbols: make(map[string]uint64)}

	if syms, err := f.Symbols(); err == nil {
		for _, s := range syms {
			img.symbols[s.Name] = s.Value
		}
	}

	return img, nil
}

// Symbol looks up a symbol's value, for the integration harness's
// `.tohost` location (spec §6).
func (img *Image) Symbol(name string) (uint64, bool) {
	v, ok := img.symbols[name]
	return v, ok
}
