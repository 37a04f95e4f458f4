package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/mailjudge/go-verifier/types"
	"go.uber.org/zap"
)

// CompileParam defines a compiler invocation
type CompileParam struct {
	Args      []string
	Output    string // stdout and stderr are both written here
	TimeLimit time.Duration
}

// CompileResult is the outcome of a compiler invocation
type CompileResult struct {
	Status   types.Status // Accepted, CompilationError or CompilationTimeLimitExceeded
	ExitCode int
	Time     time.Duration
}

// Compile runs the compiler and waits up to the time limit, the compiler is
// killed when the limit is exceeded. Failing to start the compiler is
// returned as error.
func (r *Runner) Compile(ctx context.Context, p CompileParam) (*CompileResult, error) {
	out, err := os.Create(p.Output)
	if err != nil {
		return nil, fmt.Errorf("create compiler output: %w", err)
	}
	defer out.Close()

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		return nil, err
	}
	defer devNull.Close()

	startTime := time.Now()
	c, done, err := start(p.Args, devNull, out, out)
	if err != nil {
		return nil, fmt.Errorf("start compiler: %w", err)
	}
	r.logger().Debug("compiler started", zap.Strings("args", p.Args), zap.Int("pid", c.Process.Pid))

	timer := time.NewTimer(p.TimeLimit)
	defer timer.Stop()

	select {
	case err := <-done:
		rt := &CompileResult{Status: types.StatusAccepted, Time: time.Since(startTime)}
		if err == nil {
			return rt, nil
		}
		var ee *exec.ExitError
		if !errors.As(err, &ee) {
			return nil, fmt.Errorf("wait compiler: %w", err)
		}
		rt.Status = types.StatusCompilationError
		rt.ExitCode = ee.ExitCode()
		return rt, nil

	case <-timer.C:
		kill(c)
		<-done
		return &CompileResult{
			Status:   types.StatusCompilationTimeLimitExceeded,
			ExitCode: -1,
			Time:     time.Since(startTime),
		}, nil

	case <-ctx.Done():
		kill(c)
		<-done
		return nil, ctx.Err()
	}
}
