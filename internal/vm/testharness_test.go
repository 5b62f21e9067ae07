package vm

// testharness_test.go is the package's shared test scaffolding, in the
// style of the teacher's test_test.go: a thin wrapper constructing a Hart
// with a logger that forwards to *testing.T.

import (
	"context"
	"testing"
	"time"

	"github.com/rvemu/core/internal/log"
)

type testHarness struct {
	*testing.T
}

func newTestHarness(t *testing.T) *testHarness {
	return &testHarness{T: t}
}

func (h *testHarness) Make(opts ...OptionFn) *Hart {
	all := append([]OptionFn{WithLogger(log.NewFormattedLogger(testWriter{h.T}))}, opts...)
	return New(all...)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Logf("%s", p)

	return len(p), nil
}

// runUntilHalt steps h until it halts or the deadline expires, failing
// the test on timeout so a runaway program can't hang the suite.
func runUntilHalt(t *testing.T, h *Hart, maxSteps int) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	steps := 0
	err := h.Run(ctx, func(h *Hart) bool {
		steps++
		return steps >= maxSteps
	})

	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !h.Halted() && steps >= maxSteps {
		t.Fatalf("program did not halt within %d steps", maxSteps)
	}
}
