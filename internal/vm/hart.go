package vm

// hart.go assembles the core engine into one Hart, the RISC-V analog of
// the teacher's LC3 struct in vm.go: all architectural state plus its
// collaborators (bus, CSR file, MMU, icache, clock, trap controller,
// FPU), constructed with OptionFn functional options that are applied in a
// single pass before any collaborator is built.

import (
	"context"

	"github.com/rvemu/core/internal/log"
)

// Hart is a single RISC-V hardware thread: the unit this emulator steps.
type Hart struct {
	PC   Word
	X    [NumIntRegisters]Word
	Priv Privilege

	FPU *FPU
	CSR *CSRFile
	MMU *MMU

	bus    *Bus
	ram    *RAM
	icache *ICache
	clock  *Clock
	trap   *TrapController

	UART  *UART
	Power *PowerManager
	CLINT *CLINT
	PLIC  *PLIC

	cfg Config
	log *log.Logger
}

// New constructs a Hart. Options run once, before any collaborator is
// constructed, so WithRAMSize/WithLogger/WithSerial all take effect before
// RAM, the bus and the devices are built from the resulting Config.
func New(opts ...OptionFn) *Hart {
	h := &Hart{
		cfg: defaultConfig(),
		log: log.DefaultLogger(),
	}

	for _, opt := range opts {
		opt(h)
	}

	h.ram = NewRAM(h.cfg.RAMBase, h.cfg.RAMSize)
	h.bus = NewBus(h.ram, h.log)
	h.clock = NewClock()
	h.CSR = NewCSRFile(h.clock, h.log)
	h.FPU = NewFPU()
	h.icache = NewICache()
	h.MMU = NewMMU(h.bus, h.CSR, h.log)
	h.CSR.onSatpWrite = func() {
		h.MMU.Invalidate()
		h.icache.Invalidate()
	}
	h.trap = NewTrapController(h.CSR, h.icache, h.MMU)

	h.UART = NewUART()
	h.Power = NewPowerManager()
	h.CLINT = NewCLINT(h.clock, h.CSR)
	h.PLIC = NewPLIC(h.CSR)

	h.bus.Map(0x1000_0000, 8, h.UART)
	h.bus.Map(0x0200_0000, clintSize, h.CLINT)
	h.bus.Map(0x0C00_0000, plicSize, h.PLIC)
	h.bus.Map(0x0010_0000, 2, h.Power)

	h.Priv = Machine

	return h
}

// Bus gives the loader direct access to place program bytes.
func (h *Hart) Bus() *Bus { return h.bus }
func (h *Hart) RAM() *RAM { return h.ram }

// SetX writes integer register r, honoring the hard-wired x0 (spec §3).
func (h *Hart) SetX(r Register, v Word) {
	if r != 0 {
		h.X[r] = v
	}
}

// Halted reports whether the power manager has latched a halt request
// (spec §4.10 "The loop exits when the board's status becomes halt").
func (h *Hart) Halted() bool { return h.Power.Halted() }

// StepPredicate lets a host caller stop the run loop early (tests, a
// future debugger), mirroring spec §5's cancellation-by-predicate model.
type StepPredicate func(h *Hart) bool

// Run drives the step loop until the board halts, ctx is cancelled, or
// pred returns true, matching the teacher's exec.go Run(ctx) shape.
func (h *Hart) Run(ctx context.Context, pred StepPredicate) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if h.Halted() {
			return nil
		}

		if pred != nil && pred(h) {
			return nil
		}

		h.Step()
	}
}

// Step executes one iteration of the step loop (spec §4.10).
func (h *Hart) Step() {
	if irq, ok := h.trap.PendingInterrupt(h.Priv); ok {
		h.takeTrap(Trap{Interrupt: true, Cause: uint(irq), PC: h.PC})
		return
	}

	paddr, err := h.MMU.Translate(h.PC, IntentFetch, h.Priv)
	if err != nil {
		h.takeTrap(trapFromErr(err, h.PC))
		return
	}

	inst, hit := h.icache.Lookup(h.PC)
	if !hit {
		raw, err := h.bus.ReadWord(paddr)
		if err != nil {
			h.takeTrap(Trap{Cause: uint(CauseInstructionFault), PC: h.PC, Tval: h.PC})
			return
		}

		decoded, ok := Decode(RawInstruction(raw))
		if !ok {
			h.takeTrap(Trap{Cause: uint(CauseIllegalInstruction), PC: h.PC, Tval: Word(raw)})
			return
		}

		inst = decoded
		h.icache.Fill(h.PC, inst)
	}

	nextPC := h.PC + 4

	if err := h.execute(inst, &nextPC); err != nil {
		h.takeTrap(trapFromErr(err, h.PC))
		return
	}

	h.X[0] = 0
	h.PC = nextPC
	h.CSR.IncRetired()
	h.clock.Advance()
}

func trapFromErr(err error, pc Word) Trap {
	if exc, ok := err.(Exception); ok {
		return Trap{Cause: uint(exc.Code), PC: pc, Tval: exc.Tval}
	}

	return Trap{Cause: uint(CauseInstructionFault), PC: pc}
}

func (h *Hart) takeTrap(tr Trap) {
	newPC, newPriv := h.trap.Enter(h.Priv, tr)
	h.PC = newPC
	h.Priv = newPriv
}

// PeekCSR and PeekWord are the non-mutating debug accessors SPEC_FULL.md's
// supplement calls for (spec §7 "Debugger reads never mutate..."): they
// never touch icache/MMU caches or architectural state.
func (h *Hart) PeekCSR(addr Word) (Word, bool) {
	return h.CSR.Get(addr)
}

func (h *Hart) PeekWord(vaddr Word) (uint32, error) {
	paddr, err := h.MMU.PeekTranslate(vaddr, h.Priv)
	if err != nil {
		return 0, err
	}

	return h.bus.ReadWord(paddr)
}
