package vm

// clint.go implements the core-local interruptor (spec §4.2), laid out
// per SPEC_FULL.md's ACLINT supplement: msip/mtimecmp/mtime at the
// addresses real firmware (OpenSBI) expects, even though this board is
// fixed at one hart. mtime is derived as clock.Now()+offset so that a
// guest write to mtime only ever shifts the offset (spec §3), never the
// underlying virtual clock the rest of the hart relies on for retirement
// counting.

const (
	clintMSIPBase      = 0x0000
	clintMTimeCmpBase  = 0x4000
	clintMTimeBase     = 0xBFF8
	clintSize          = 0x10000
)

// CLINT is the machine-software and machine-timer interrupt source.
type CLINT struct {
	clock  *Clock
	csr    *CSRFile
	offset Word
	cmp    Word
}

func NewCLINT(clock *Clock, csr *CSRFile) *CLINT {
	c := &CLINT{clock: clock, csr: csr, cmp: ^Word(0)}
	c.arm()

	return c
}

func (c *CLINT) Name() string { return "clint" }

func (c *CLINT) mtime() Word { return c.clock.Now() + c.offset }

// arm re-evaluates MTIP given the current mtime/mtimecmp relationship and,
// if not yet due, schedules a callback for when it will be (spec §4.2).
func (c *CLINT) arm() {
	if c.cmp <= c.mtime() {
		c.csr.SetPending(InterruptMachineTimer, true)
		return
	}

	c.csr.SetPending(InterruptMachineTimer, false)

	due := c.cmp - c.offset
	c.clock.After(due, func() {
		if c.cmp <= c.mtime() {
			c.csr.SetPending(InterruptMachineTimer, true)
		}
	})
}

func (c *CLINT) Load(addr Word, width Width) (Word, error) {
	switch {
	case addr == clintMSIPBase && width == Word32:
		v := Word(0)
		if c.csr.Mip()&mipMSIP != 0 {
			v = 1
		}

		return v, nil
	case addr == clintMTimeCmpBase && width == Word64:
		return c.cmp, nil
	case addr == clintMTimeCmpBase && width == Word32:
		return c.cmp & 0xFFFFFFFF, nil
	case addr == clintMTimeCmpBase+4 && width == Word32:
		return (c.cmp >> 32) & 0xFFFFFFFF, nil
	case addr == clintMTimeBase && width == Word64:
		return c.mtime(), nil
	case addr == clintMTimeBase && width == Word32:
		return c.mtime() & 0xFFFFFFFF, nil
	case addr == clintMTimeBase+4 && width == Word32:
		return (c.mtime() >> 32) & 0xFFFFFFFF, nil
	default:
		return 0, &MemError{Addr: addr, Width: int(width), Kind: MemErrFault}
	}
}

func (c *CLINT) Store(addr Word, width Width, value Word) error {
	switch {
	case addr == clintMSIPBase && width == Word32:
		c.csr.SetPending(InterruptMachineSoftware, value&1 != 0)
		return nil
	case addr == clintMTimeCmpBase && width == Word64:
		c.cmp = value
		c.arm()

		return nil
	case addr == clintMTimeCmpBase && width == Word32:
		c.cmp = (c.cmp &^ 0xFFFFFFFF) | (value & 0xFFFFFFFF)
		c.arm()

		return nil
	case addr == clintMTimeCmpBase+4 && width == Word32:
		c.cmp = (c.cmp &^ (Word(0xFFFFFFFF) << 32)) | ((value & 0xFFFFFFFF) << 32)
		c.arm()

		return nil
	case addr == clintMTimeBase && width == Word64:
		c.offset = value - c.clock.Now()
		c.arm()

		return nil
	case addr == clintMTimeBase && width == Word32:
		cur := c.mtime()
		newVal := (cur &^ 0xFFFFFFFF) | (value & 0xFFFFFFFF)
		c.offset = newVal - c.clock.Now()
		c.arm()

		return nil
	case addr == clintMTimeBase+4 && width == Word32:
		cur := c.mtime()
		newVal := (cur &^ (Word(0xFFFFFFFF) << 32)) | ((value & 0xFFFFFFFF) << 32)
		c.offset = newVal - c.clock.Now()
		c.arm()

		return nil
	default:
		return &MemError{Addr: addr, Width: int(width), Kind: MemErrFault}
	}
}
