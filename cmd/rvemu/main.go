// Command rvemu boots a RISC-V ELF image on the core hart (spec §6 "CLI
// (collaborator)"): a positional ELF path plus -g/--debug, -v/--verbose,
// and --loglevel.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/rvemu/core/internal/console"
	"github.com/rvemu/core/internal/elfload"
	"github.com/rvemu/core/internal/log"
	"github.com/rvemu/core/internal/vm"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("rvemu", flag.ContinueOnError)

	debug := fs.Bool("g", false, "enter the debugger before stepping")
	fs.BoolVar(debug, "debug", false, "enter the debugger before stepping")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.BoolVar(verbose, "verbose", false, "verbose logging")
	logLevel := fs.String("loglevel", "info", "log level: error, warn, info, debug, trace")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: rvemu [-g] [-v] [--loglevel LEVEL] <elf-path>")
		return 2
	}

	logger := log.DefaultLogger()
	log.LogLevel.Set(parseLevel(*logLevel, *verbose))

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "rvemu:", err)
		return 1
	}
	defer f.Close()

	hart := vm.New(vm.WithLogger(logger), vm.WithDebug(*debug))

	if _, err := elfload.Load(hart, f); err != nil {
		fmt.Fprintln(os.Stderr, "rvemu:", err)
		return 1
	}

	hart.PC = hart.RAM().Base()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var con *console.Console
	if c, err := console.NewConsole(os.Stdin, os.Stdout, os.Stderr); err == nil {
		con = c
		defer con.Restore()

		go con.Run(ctx, hart.UART)
	} else if !errors.Is(err, console.ErrNoTTY) {
		fmt.Fprintln(os.Stderr, "rvemu: console:", err)
	}

	if err := hart.Run(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "rvemu:", err)
		return 1
	}

	if !hart.Halted() {
		return 1
	}

	return 0
}

func parseLevel(s string, verbose bool) slog.Level {
	if verbose {
		return log.Debug
	}

	switch s {
	case "error":
		return log.Error
	case "warn":
		return log.Warn
	case "debug", "trace":
		return log.Debug
	default:
		return log.Info
	}
}
