package vm

// csr_defs.go enumerates the CSR addresses and static masks this hart
// implements, grounded on the original's isa/riscv/csr_reg table and
// extended per SPEC_FULL.md's misa/mhartid supplement.

const (
	csrFFLAGS = 0x001
	csrFRM    = 0x002
	csrFCSR   = 0x003

	csrCYCLE   = 0xC00
	csrTIME    = 0xC01
	csrINSTRET = 0xC02

	csrSSTATUS    = 0x100
	csrSIE        = 0x104
	csrSTVEC      = 0x105
	csrSCOUNTEREN = 0x106
	csrSENVCFG    = 0x10A
	csrSSCRATCH   = 0x140
	csrSEPC       = 0x141
	csrSCAUSE     = 0x142
	csrSTVAL      = 0x143
	csrSIP        = 0x144
	csrSATP       = 0x180

	csrMSTATUS    = 0x300
	csrMISA       = 0x301
	csrMEDELEG    = 0x302
	csrMIDELEG    = 0x303
	csrMIE        = 0x304
	csrMTVEC      = 0x305
	csrMCOUNTEREN = 0x306
	csrMSTATUSH   = 0x310
	csrMSCRATCH   = 0x340
	csrMEPC       = 0x341
	csrMCAUSE     = 0x342
	csrMTVAL      = 0x343
	csrMIP        = 0x344
	csrMENVCFG    = 0x30A

	csrMCYCLE   = 0xB00
	csrMINSTRET = 0xB02

	csrMVENDORID = 0xF11
	csrMARCHID   = 0xF12
	csrMIMPID    = 0xF13
	csrMHARTID   = 0xF14
)

// mstatus field bit positions (RV64 layout).
const (
	mstatusSIE  = 1 << 1
	mstatusMIE  = 1 << 3
	mstatusSPIE = 1 << 5
	mstatusUBE  = 1 << 6
	mstatusMPIE = 1 << 7
	mstatusSPP  = 1 << 8
	mstatusVS   = 0b11 << 9
	mstatusMPP  = 0b11 << 11
	mstatusFS   = 0b11 << 13
	mstatusXS   = 0b11 << 15
	mstatusMPRV = 1 << 17
	mstatusSUM  = 1 << 18
	mstatusMXR  = 1 << 19
	mstatusTVM  = 1 << 20
	mstatusTW   = 1 << 21
	mstatusTSR  = 1 << 22
	mstatusSD   = 1 << 63
)

// sstatusMask is the subset of mstatus visible through sstatus (spec §3
// shadow relationship).
const sstatusMask = mstatusSIE | mstatusMIE&0 | mstatusSPIE | mstatusUBE | mstatusSPP |
	mstatusVS | mstatusFS | mstatusXS | mstatusSUM | mstatusMXR | mstatusSD

// mstatusWriteMask is the set of bits software may change via a raw CSR
// write; MIE/SIE etc. are included, read-only composite bits (SD) are not.
const mstatusWriteMask = mstatusSIE | mstatusMIE | mstatusSPIE | mstatusMPIE |
	mstatusSPP | mstatusMPP | mstatusFS | mstatusMPRV | mstatusSUM | mstatusMXR |
	mstatusTVM | mstatusTW | mstatusTSR

// mip/mie bit positions, matching the Interrupt cause codes in errors.go.
const (
	mipSSIP = 1 << InterruptSupervisorSoftware
	mipMSIP = 1 << InterruptMachineSoftware
	mipSTIP = 1 << InterruptSupervisorTimer
	mipMTIP = 1 << InterruptMachineTimer
	mipSEIP = 1 << InterruptSupervisorExternal
	mipMEIP = 1 << InterruptMachineExternal
)

// mipWriteMask is the set of mip bits software (not hardware) may set
// directly: only the software-interrupt-pending bits that delegation
// allows the kernel to poke for inter-processor signalling; SEIP/STIP are
// writable too per the privileged spec so a kernel can clear a pending bit
// it has already serviced via PLIC claim, MEIP/MTIP/MSIP are hardware-set.
const mipWriteMask = mipSSIP | mipSTIP | mipSEIP

const mieWriteMask = mipSSIP | mipMSIP | mipSTIP | mipMTIP | mipSEIP | mipMEIP

// sieMask/sipMask are the S-mode-delegated subset exposed through
// sie/sip (spec §3 shadow relationship); actual delegation is further
// gated at runtime by mideleg.
const sieMask = mipSSIP | mipSTIP | mipSEIP
