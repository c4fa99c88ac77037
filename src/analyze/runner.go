package analyze

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"time"
)

// ExitCodeUnavailable is reported when the external tool never produced an
// exit code. That happens when it could not be spawned at all or when it
// was killed by a timeout.
const ExitCodeUnavailable = -1

// Default capture caps for the external tool's output. Beat timestamp
// listings for very long files stay well under these.
const (
	DefaultMaxStdout = 4 * 1024 * 1024
	DefaultMaxStderr = 256 * 1024
)

// waitDelay bounds how long Run waits on the output pipes once the process
// is gone. A decoder helper which survived the kill could otherwise hold
// the pipes open for its whole natural lifetime.
const waitDelay = 2 * time.Second

// RunOptions control a single external tool invocation.
type RunOptions struct {
	// Timeout is the wall-clock limit after which the process is forcibly
	// killed. Zero means no timeout.
	Timeout time.Duration

	// MaxStdout and MaxStderr limit how many bytes of output are kept.
	// Once the stdout cap is reached the process is killed early since
	// nothing more useful can be read from it. Stderr past its cap is
	// discarded silently.
	MaxStdout int
	MaxStderr int
}

// RunResult is the uniform result of an external tool invocation. There is
// no error variant on purpose: spawn failures, timeouts and non-zero exits
// all end up here and callers branch on the fields instead of on an error.
type RunResult struct {
	// ExitCode is the process exit code or ExitCodeUnavailable.
	ExitCode int

	// TimedOut is true when the process was killed by the timeout.
	TimedOut bool

	Stdout string
	Stderr string
}

// ToolRunner invokes the aubio binary. It is the sole boundary with the
// slow and failure-prone outside world, everything else in the package
// assumes it absorbs all process-level chaos.
type ToolRunner struct {
	// Binary is the name of (or path to) the executable.
	Binary string
}

var _ Tool = (*ToolRunner)(nil)

// Run executes the binary with the given arguments. stdin is closed,
// stdout and stderr are captured incrementally up to their caps. Run never
// fails, see RunResult.
func (r *ToolRunner) Run(
	ctx context.Context,
	args []string,
	opts RunOptions,
) RunResult {
	res := RunResult{ExitCode: ExitCodeUnavailable}

	if opts.MaxStdout <= 0 {
		opts.MaxStdout = DefaultMaxStdout
	}
	if opts.MaxStderr <= 0 {
		opts.MaxStderr = DefaultMaxStderr
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	// A dedicated cancel is used for killing the process early when the
	// stdout cap is reached.
	ctx, kill := context.WithCancel(ctx)
	defer kill()

	stdout := &cappedBuffer{max: opts.MaxStdout, onFull: kill}
	stderr := &cappedBuffer{max: opts.MaxStderr}

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	// The tool forks decoder helpers which inherit the output pipes. The
	// kill has to take out the whole process group, otherwise Run would
	// block on the pipes until the helpers exit on their own.
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = waitDelay

	err := cmd.Run()

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)

	if err == nil {
		res.ExitCode = 0
		return res
	}

	if errors.Is(err, exec.ErrWaitDelay) {
		// The process itself exited cleanly, only an orphan kept its
		// output pipes open past the kill.
		res.ExitCode = 0
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// A process killed by a signal reports -1 here which matches
		// ExitCodeUnavailable.
		res.ExitCode = exitErr.ExitCode()
		return res
	}

	// The process could not be started at all. Surface the reason through
	// the stderr field so that the caller has a uniform result shape.
	if res.Stderr == "" {
		res.Stderr = err.Error()
	}

	return res
}

// cappedBuffer collects writes up to `max` bytes and discards the rest.
// When the cap is reached onFull is called exactly once.
type cappedBuffer struct {
	mu     sync.Mutex
	buf    []byte
	max    int
	full   bool
	onFull func()
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining := b.max - len(b.buf)
	if remaining > 0 {
		if len(p) < remaining {
			remaining = len(p)
		}
		b.buf = append(b.buf, p[:remaining]...)
	}

	if len(b.buf) >= b.max && !b.full {
		b.full = true
		if b.onFull != nil {
			b.onFull()
		}
	}

	// Discarded bytes are still reported as written so that the process
	// does not receive a pipe error.
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
