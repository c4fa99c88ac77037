package analyze

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/spisarov/cadenza/src/assert"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("these tests drive /bin/sh")
	}
}

// TestRunnerCapturesOutput checks stdout, stderr and exit code capture of a
// normally terminating process.
func TestRunnerCapturesOutput(t *testing.T) {
	skipWithoutShell(t)

	runner := &ToolRunner{Binary: "/bin/sh"}

	res := runner.Run(
		context.Background(),
		[]string{"-c", "echo out here; echo err here >&2; exit 3"},
		RunOptions{},
	)

	assert.Equal(t, 3, res.ExitCode, "wrong exit code")
	assert.Equal(t, "out here\n", res.Stdout, "wrong stdout")
	assert.Equal(t, "err here\n", res.Stderr, "wrong stderr")
	assert.Equal(t, false, res.TimedOut, "the run should not have timed out")
}

// TestRunnerMissingBinary makes sure a binary which cannot be spawned still
// produces a uniform result instead of an error.
func TestRunnerMissingBinary(t *testing.T) {
	runner := &ToolRunner{Binary: "/no/such/binary/anywhere"}

	res := runner.Run(context.Background(), []string{"--help"}, RunOptions{})

	assert.Equal(t, ExitCodeUnavailable, res.ExitCode,
		"expected the unavailable exit code")

	if res.Stderr == "" {
		t.Errorf("expected the spawn failure reason in stderr")
	}
}

// TestRunnerTimeout makes sure a process which overstays its welcome is
// killed and reported as timed out.
func TestRunnerTimeout(t *testing.T) {
	skipWithoutShell(t)

	runner := &ToolRunner{Binary: "/bin/sh"}

	start := time.Now()
	res := runner.Run(
		context.Background(),
		[]string{"-c", "sleep 10"},
		RunOptions{Timeout: 100 * time.Millisecond},
	)

	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("the process was not killed in time, took %s", elapsed)
	}

	assert.Equal(t, true, res.TimedOut, "the run should have timed out")
	assert.Equal(t, ExitCodeUnavailable, res.ExitCode,
		"a killed process has no exit code")
}

// TestRunnerTimeoutKillsChildren makes sure the timeout kill reaches the
// processes forked by the tool. An orphan holding the output pipes used to
// stall Run until it exited on its own.
func TestRunnerTimeoutKillsChildren(t *testing.T) {
	skipWithoutShell(t)

	runner := &ToolRunner{Binary: "/bin/sh"}

	start := time.Now()
	res := runner.Run(
		context.Background(),
		[]string{"-c", "sleep 10 & sleep 10"},
		RunOptions{Timeout: 100 * time.Millisecond},
	)

	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("forked children kept the run alive, took %s", elapsed)
	}

	assert.Equal(t, true, res.TimedOut, "the run should have timed out")
	assert.Equal(t, ExitCodeUnavailable, res.ExitCode,
		"a killed process has no exit code")
}

// TestRunnerStdoutCap makes sure a process which floods stdout is cut off
// at the cap instead of eating all the memory.
func TestRunnerStdoutCap(t *testing.T) {
	skipWithoutShell(t)

	runner := &ToolRunner{Binary: "/bin/sh"}

	res := runner.Run(
		context.Background(),
		[]string{"-c", "while :; do echo 0123456789012345678901234567890123456789; done"},
		RunOptions{MaxStdout: 2048, Timeout: 30 * time.Second},
	)

	assert.Equal(t, 2048, len(res.Stdout), "stdout was not capped")
	assert.Equal(t, false, res.TimedOut,
		"the flood should have been stopped by the cap, not the timeout")
}
