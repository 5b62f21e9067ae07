package vm

// config.go mirrors the teacher's OptionFn construction pattern (vm.go:
// `New(opts ...OptionFn)` applying options in two passes) generalized to
// the hart's configuration record (spec §6 "Configuration").

import (
	"github.com/rvemu/core/internal/log"
)

// SerialDestination names where UART output is routed (spec §6). It is
// recorded in Config only; the UART does not consult it and always queues
// transmitted bytes for PopOutput.
type SerialDestination int

const (
	SerialStdio SerialDestination = iota
	SerialTest
)

// Config is the process-wide configuration record (spec §6).
type Config struct {
	RAMBase  Word
	RAMSize  int
	Serial   SerialDestination
	LogLevel log.Level
	Debug    bool
}

// OptionFn configures a Hart at construction time, before any
// collaborator exists, matching the shape of vm.go's functional options.
type OptionFn func(*Hart)

func defaultConfig() Config {
	return Config{
		RAMBase: 0x8000_0000,
		RAMSize: 128 * 1024 * 1024,
		Serial:  SerialStdio,
	}
}

// WithRAMSize overrides the default 128MiB RAM allocation.
func WithRAMSize(size int) OptionFn {
	return func(h *Hart) { h.cfg.RAMSize = size }
}

// WithLogger rebinds the hart's logger. Since it runs before collaborator
// construction (see New), every collaborator that accepts a *log.Logger
// is built with this value already in place, mirroring the teacher's
// log.go withLogger propagation without a second wiring pass.
func WithLogger(logger *log.Logger) OptionFn {
	return func(h *Hart) { h.log = logger }
}

// WithSerial sets Config.Serial, the UART's host-facing destination. The
// UART itself does not read the setting.
func WithSerial(dest SerialDestination) OptionFn {
	return func(h *Hart) { h.cfg.Serial = dest }
}

// WithDebug marks the hart for REPL entry before stepping (spec §6); the
// core itself does not implement the REPL, only carries the flag for a
// host caller to act on.
func WithDebug(debug bool) OptionFn {
	return func(h *Hart) { h.cfg.Debug = debug }
}
