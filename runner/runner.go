// Package runner compiles submissions and runs the compiled artifact
// against test inputs while enforcing time and memory limits.
package runner

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	sandbox "github.com/criyle/go-sandbox/runner"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Size represent data size in bytes
type Size = sandbox.Size

// DefaultPollInterval is the interval between two memory samples
const DefaultPollInterval = time.Millisecond

// Runner runs compilers and compiled artifacts one at a time
type Runner struct {
	PollInterval time.Duration
	Sampler      MemorySampler
	Logger       *zap.Logger
}

// New creates a runner sampling memory from procfs
func New(logger *zap.Logger) (*Runner, error) {
	s, err := NewProcfsSampler()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		PollInterval: DefaultPollInterval,
		Sampler:      s,
		Logger:       logger,
	}, nil
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) pollInterval() time.Duration {
	if r.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return r.PollInterval
}

// start spawns args in a new process group which is killed together with the
// verifier
func start(args []string, stdin, stdout, stderr *os.File) (*exec.Cmd, <-chan error, error) {
	if len(args) == 0 {
		return nil, nil, errors.New("runner: empty command")
	}
	c := exec.Command(args[0], args[1:]...)
	c.Stdin = stdin
	c.Stdout = stdout
	c.Stderr = stderr
	c.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
	if err := c.Start(); err != nil {
		return nil, nil, err
	}
	done := make(chan error, 1)
	go func() {
		done <- c.Wait()
	}()
	return c, done, nil
}

// kill kills the process group of c
func kill(c *exec.Cmd) {
	pid := c.Process.Pid
	unix.Kill(-pid, unix.SIGKILL)
	c.Process.Kill()
}

// exitStatus extracts the wait status of an exited process
func exitStatus(c *exec.Cmd) (syscall.WaitStatus, bool) {
	if c.ProcessState == nil {
		return 0, false
	}
	ws, ok := c.ProcessState.Sys().(syscall.WaitStatus)
	return ws, ok
}
