package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/mailjudge/go-verifier/types"
	"go.uber.org/zap"
)

// ExecParam defines a single run of the compiled artifact
type ExecParam struct {
	Args []string

	// Input is bound to stdin, Output and Stderr receive stdout and stderr
	Input  string
	Output string
	Stderr string

	MemoryLimit float64 // MB
	TimeLimit   time.Duration
}

// ExecResult is the outcome of a run. Accepted means the program exited
// with 0 and its output still needs to be compared.
type ExecResult struct {
	Status   types.Status
	ExitCode int
	Signal   syscall.Signal
	Time     time.Duration
	Memory   Size // peak of the sampled resident memory
}

// Exec runs the artifact while polling its memory usage and elapsed time.
// Limit breaches are reported as status, returned errors are environment
// failures.
func (r *Runner) Exec(ctx context.Context, p ExecParam) (*ExecResult, error) {
	if r.Sampler == nil {
		return nil, errors.New("runner: no memory sampler")
	}
	in, err := os.Open(p.Input)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(p.Output)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	errOut, err := os.Create(p.Stderr)
	if err != nil {
		return nil, fmt.Errorf("create stderr: %w", err)
	}
	defer errOut.Close()

	c, done, err := start(p.Args, in, out, errOut)
	if err != nil {
		return nil, fmt.Errorf("start program: %w", err)
	}

	w := &waiter{
		interval:    r.pollInterval(),
		timeLimit:   p.TimeLimit,
		memoryLimit: p.MemoryLimit,
		sampler:     r.Sampler,
	}
	wr := w.Wait(ctx, c.Process.Pid, done)

	rt := &ExecResult{Time: wr.elapsed, Memory: Size(wr.peak)}
	switch wr.status {
	case waitMemoryLimitExceeded:
		kill(c)
		<-done
		rt.Status = types.StatusMemoryLimitExceeded
		return rt, nil

	case waitTimeLimitExceeded:
		kill(c)
		<-done
		rt.Status = types.StatusTimeLimitExceeded
		return rt, nil

	case waitCanceled:
		kill(c)
		<-done
		return nil, wr.err
	}

	var ee *exec.ExitError
	if wr.err != nil && !errors.As(wr.err, &ee) {
		return nil, fmt.Errorf("wait program: %w", wr.err)
	}
	rt.Status = classify(c, rt)
	r.logger().Debug("program exited",
		zap.Int("exitCode", rt.ExitCode),
		zap.Stringer("signal", rt.Signal),
		zap.Duration("time", rt.Time),
		zap.Stringer("memory", rt.Memory))
	return rt, nil
}

// classify maps the termination of the program to a status.
// A segmentation fault is treated as security violation.
func classify(c *exec.Cmd, rt *ExecResult) types.Status {
	ws, ok := exitStatus(c)
	if !ok {
		return types.StatusRuntimeError
	}
	if ws.Signaled() {
		rt.Signal = ws.Signal()
		rt.ExitCode = -int(rt.Signal)
		if rt.Signal == syscall.SIGSEGV {
			return types.StatusSecurityViolation
		}
		return types.StatusRuntimeError
	}
	rt.ExitCode = ws.ExitStatus()
	if rt.ExitCode != 0 {
		return types.StatusRuntimeError
	}
	return types.StatusAccepted
}
