package vm

import "fmt"

// Exception is an architectural exception: normal control flow for the
// guest, caught by the step loop and handed to the trap controller (spec
// §7). It plays the role the teacher's acv/interruptableError types play
// for the LC-3's access-control-violation traps.
type Exception struct {
	Code Cause
	Tval Word
}

func (e Exception) Error() string {
	return fmt.Sprintf("exception %s (tval=%s)", e.Code, e.Tval)
}

// Is lets callers match exceptions by cause with errors.Is, ignoring Tval.
func (e Exception) Is(target error) bool {
	t, ok := target.(Exception)
	if !ok {
		return false
	}

	return e.Code == t.Code
}

func except(code Cause) error           { return Exception{Code: code} }
func exceptVal(code Cause, tval Word) error { return Exception{Code: code, Tval: tval} }

// Cause is the architectural exception/interrupt cause code (low bits of
// mcause/scause; the high bit distinguishing interrupt from exception is
// tracked separately, see Trap).
type Cause uint

const (
	CauseInstructionMisaligned Cause = 0
	CauseInstructionFault      Cause = 1
	CauseIllegalInstruction    Cause = 2
	CauseBreakpoint            Cause = 3
	CauseLoadMisaligned        Cause = 4
	CauseLoadFault             Cause = 5
	CauseStoreMisaligned       Cause = 6
	CauseStoreFault            Cause = 7
	CauseEnvCallU              Cause = 8
	CauseEnvCallS              Cause = 9
	CauseEnvCallM              Cause = 11
	CauseInstructionPageFault  Cause = 12
	CauseLoadPageFault         Cause = 13
	CauseStorePageFault        Cause = 15
)

var causeNames = map[Cause]string{
	CauseInstructionMisaligned: "instruction-address-misaligned",
	CauseInstructionFault:      "instruction-access-fault",
	CauseIllegalInstruction:    "illegal-instruction",
	CauseBreakpoint:            "breakpoint",
	CauseLoadMisaligned:        "load-address-misaligned",
	CauseLoadFault:             "load-access-fault",
	CauseStoreMisaligned:       "store/amo-address-misaligned",
	CauseStoreFault:            "store/amo-access-fault",
	CauseEnvCallU:              "environment-call-from-u-mode",
	CauseEnvCallS:              "environment-call-from-s-mode",
	CauseEnvCallM:              "environment-call-from-m-mode",
	CauseInstructionPageFault:  "instruction-page-fault",
	CauseLoadPageFault:         "load-page-fault",
	CauseStorePageFault:        "store/amo-page-fault",
}

func (c Cause) String() string {
	if name, ok := causeNames[c]; ok {
		return name
	}

	return fmt.Sprintf("cause(%d)", uint(c))
}

// Interrupt is an interrupt cause code, numbered per the privileged spec's
// mip/mie bit assignments.
type Interrupt uint

const (
	InterruptSupervisorSoftware Interrupt = 1
	InterruptMachineSoftware    Interrupt = 3
	InterruptSupervisorTimer    Interrupt = 5
	InterruptMachineTimer       Interrupt = 7
	InterruptSupervisorExternal Interrupt = 9
	InterruptMachineExternal    Interrupt = 11
)

// interruptPriority lists interrupt causes in the order spec §4.9 requires
// they be considered: highest priority first.
var interruptPriority = []Interrupt{
	InterruptMachineExternal,
	InterruptMachineSoftware,
	InterruptMachineTimer,
	InterruptSupervisorExternal,
	InterruptSupervisorSoftware,
	InterruptSupervisorTimer,
}

// MemError reports a physical-memory or device-bus access fault (spec
// §4.1). The executor translates it into the matching Exception with tval
// set to the effective address.
type MemError struct {
	Addr  Word
	Width int
	Kind  MemErrorKind
}

type MemErrorKind uint8

const (
	MemErrMisaligned MemErrorKind = iota
	MemErrFault
)

func (e *MemError) Error() string {
	kind := "fault"
	if e.Kind == MemErrMisaligned {
		kind = "misaligned"
	}

	return fmt.Sprintf("memory %s at %s (width=%d)", kind, e.Addr, e.Width)
}
