package vm

// plic.go implements the platform-level interrupt controller (spec
// §4.2), with the two-context model SPEC_FULL.md calls for (M-mode and
// S-mode external-interrupt lines for hart 0), grounded on the original's
// device/plic/mod.rs layout constants.

const (
	plicNumSources = 32 // source 0 reserved, matches spec §4.2

	plicPriorityBase  = 0x000000
	plicPendingBase   = 0x001000
	plicEnableBase    = 0x002000
	plicEnableStride  = 0x80
	plicContextBase   = 0x200000
	plicContextStride = 0x1000

	plicSize = 0x04000000

	plicContextM = 0
	plicContextS = 1
)

// PLIC is the external-interrupt gateway.
type PLIC struct {
	csr *CSRFile

	priority [plicNumSources]Word
	pending  uint32 // bit i set => source i is pending
	enable   [2]uint32
	threshold [2]Word
}

func NewPLIC(csr *CSRFile) *PLIC {
	return &PLIC{csr: csr}
}

func (p *PLIC) Name() string { return "plic" }

// RaiseIRQ marks source as pending (edge-triggered). No device in this
// build currently drives this path — the UART models interrupts as
// optional per spec §4.2 — but the gateway is wired end-to-end so a future
// device only needs to call this.
func (p *PLIC) RaiseIRQ(source uint) {
	if source == 0 || source >= plicNumSources {
		return
	}

	p.pending |= 1 << source
	p.reevaluate()
}

func (p *PLIC) best(ctx int) (source uint, priority Word) {
	for s := uint(1); s < plicNumSources; s++ {
		if p.pending&(1<<s) == 0 || p.enable[ctx]&(1<<s) == 0 {
			continue
		}

		if p.priority[s] > p.threshold[ctx] && p.priority[s] > priority {
			source, priority = s, p.priority[s]
		}
	}

	return source, priority
}

func (p *PLIC) reevaluate() {
	s, _ := p.best(plicContextM)
	p.csr.SetPending(InterruptMachineExternal, s != 0)

	s, _ = p.best(plicContextS)
	p.csr.SetPending(InterruptSupervisorExternal, s != 0)
}

func (p *PLIC) Load(addr Word, width Width) (Word, error) {
	if width != Word32 {
		return 0, &MemError{Addr: addr, Width: int(width), Kind: MemErrFault}
	}

	switch {
	case addr >= plicPriorityBase && addr < plicPriorityBase+4*plicNumSources:
		return p.priority[addr/4], nil
	case addr == plicPendingBase:
		return Word(p.pending), nil
	case addr == plicEnableBase:
		return Word(p.enable[plicContextM]), nil
	case addr == plicEnableBase+plicEnableStride:
		return Word(p.enable[plicContextS]), nil
	case addr == plicContextBase:
		return p.threshold[plicContextM], nil
	case addr == plicContextBase+4: // claim
		s, _ := p.best(plicContextM)
		p.pending &^= 1 << s
		p.reevaluate()
		return Word(s), nil
	case addr == plicContextBase+plicContextStride:
		return p.threshold[plicContextS], nil
	case addr == plicContextBase+plicContextStride+4: // claim
		s, _ := p.best(plicContextS)
		p.pending &^= 1 << s
		p.reevaluate()
		return Word(s), nil
	default:
		return 0, &MemError{Addr: addr, Width: int(width), Kind: MemErrFault}
	}
}

func (p *PLIC) Store(addr Word, width Width, value Word) error {
	if width != Word32 {
		return &MemError{Addr: addr, Width: int(width), Kind: MemErrFault}
	}

	switch {
	case addr >= plicPriorityBase && addr < plicPriorityBase+4*plicNumSources:
		p.priority[addr/4] = value & 0x7
	case addr == plicPendingBase:
		return &MemError{Addr: addr, Width: int(width), Kind: MemErrFault}
	case addr == plicEnableBase:
		p.enable[plicContextM] = uint32(value)
	case addr == plicEnableBase+plicEnableStride:
		p.enable[plicContextS] = uint32(value)
	case addr == plicContextBase:
		p.threshold[plicContextM] = value
	case addr == plicContextBase+4: // complete: accepted and ignored; pending was already cleared at claim time
	case addr == plicContextBase+plicContextStride:
		p.threshold[plicContextS] = value
	case addr == plicContextBase+plicContextStride+4: // complete
	default:
		return &MemError{Addr: addr, Width: int(width), Kind: MemErrFault}
	}

	p.reevaluate()

	return nil
}
