// Package console adapts a real terminal to the emulated UART, the way
// the teacher's internal/tty package adapts one to the LC-3's keyboard
// and display devices.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/rvemu/core/internal/vm"
)

// ErrNoTTY is returned if standard input is not a terminal; asynchronous
// I/O is not supported in that case (spec §5: the auxiliary I/O thread is
// optional, the core runs fine headless).
var ErrNoTTY = errors.New("console: not a TTY")

// Console pumps bytes between a real terminal and the emulated UART,
// mirroring spec §5's "one host I/O thread may poll the terminal and
// UART channels" model with Go channels standing in for the lock-free
// MPMC queues.
type Console struct {
	in    *os.File
	out   *term.Terminal
	fd    int
	state *term.State

	keyCh chan uint8
}

// NewConsole puts sin into raw mode; Run wires it to a UART. Callers must
// call Restore to return the terminal to its initial state (spec §5
// "Terminal raw-mode is acquired/released via a scoped guard that
// guarantees restoration on every exit path").
func NewConsole(sin, sout, serr *os.File) (*Console, error) {
	fd := int(sin.Fd())

	if !term.IsTerminal(fd) {
		return nil, ErrNoTTY
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoTTY, err)
	}

	c := &Console{
		fd:    fd,
		in:    sin,
		out:   term.NewTerminal(sin, ""),
		state: saved,
		keyCh: make(chan uint8, 1),
	}

	if err := c.setTerminalParams(1, 0); err != nil {
		return nil, err
	}

	return c, nil
}

// Run starts the poller goroutines and blocks until ctx is cancelled or a
// terminal I/O error occurs.
func (c *Console) Run(ctx context.Context, uart *vm.UART) {
	ctx, cancel := context.WithCancelCause(ctx)

	go c.readTerminal(ctx, cancel)
	go c.updateUARTInput(ctx, uart)
	go c.drainUARTOutput(ctx, uart)

	<-ctx.Done()
}

// Restore returns the terminal to its initial state and unblocks any
// in-progress read.
func (c *Console) Restore() {
	_ = c.in.SetReadDeadline(time.Now())
	_ = term.Restore(c.fd, c.state)
}

func (c *Console) setTerminalParams(vmin, vtime byte) error {
	_ = syscall.SetNonblock(c.fd, true)

	termIO, err := unix.IoctlGetTermios(c.fd, getTermiosIoctl)
	if err != nil {
		return err
	}

	termIO.Cc[unix.VMIN] = vmin
	termIO.Cc[unix.VTIME] = vtime

	if err := unix.IoctlSetTermios(c.fd, setTermiosIoctl, termIO); err != nil {
		return err
	}

	return c.in.SetReadDeadline(time.Time{})
}

func (c *Console) readTerminal(ctx context.Context, cancel context.CancelCauseFunc) {
	buf := bufio.NewReader(c.in)

	_ = syscall.SetNonblock(c.fd, false)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		b, err := buf.ReadByte()
		if err != nil {
			cancel(err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case c.keyCh <- b:
		}
	}
}

func (c *Console) updateUARTInput(ctx context.Context, uart *vm.UART) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-c.keyCh:
			uart.PushInput(b)
		}
	}
}

// drainUARTOutput polls the UART's output queue and writes it to the
// terminal. A real lock-free queue would let the UART wake this
// goroutine directly; this poll loop is the pragmatic stand-in the
// teacher's display-listener callback plays for the LC-3.
func (c *Console) drainUARTOutput(ctx context.Context, uart *vm.UART) {
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if out := uart.PopOutput(); len(out) > 0 {
				_, _ = io.WriteString(c.out, string(out))
			}
		}
	}
}
