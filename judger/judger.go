// Package judger judges one submission: it compiles the sources, confines
// the artifact and runs it against every test of the task in order,
// stopping at the first test that is not accepted.
package judger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mailjudge/go-verifier/language"
	"github.com/mailjudge/go-verifier/pkg/diff"
	"github.com/mailjudge/go-verifier/problem"
	"github.com/mailjudge/go-verifier/recipe"
	"github.com/mailjudge/go-verifier/runner"
	"github.com/mailjudge/go-verifier/types"
	"go.uber.org/zap"
)

// File names inside the scratch directory
const (
	TargetName         = "target"
	CompilerOutputName = "compiler_output"
	OutputName         = "output"
	StderrName         = "stderr"
)

// maxDiagnostic bounds the compiler output and stderr kept in results
const maxDiagnostic = 64 << 10

// Runner compiles and runs programs
type Runner interface {
	Compile(ctx context.Context, p runner.CompileParam) (*runner.CompileResult, error)
	Exec(ctx context.Context, p runner.ExecParam) (*runner.ExecResult, error)
}

// Confiner installs the sandbox profile of the artifact
type Confiner interface {
	Confine(ctx context.Context, target string, profile *recipe.Recipe) error
}

// Config defines the judger
type Config struct {
	// ScratchDir is removed and recreated at the start of every run
	ScratchDir       string
	CompileTimeLimit time.Duration
	Runner           Runner
	Confiner         Confiner
	Logger           *zap.Logger
}

// Judger judges submissions serially, it must not be used concurrently as
// the scratch directory and the artifact path are shared between runs
type Judger struct {
	scratchDir       string
	target           string
	compileTimeLimit time.Duration
	runner           Runner
	confiner         Confiner
	logger           *zap.Logger
}

// New creates a judger
func New(conf Config) (*Judger, error) {
	dir, err := filepath.Abs(conf.ScratchDir)
	if err != nil {
		return nil, err
	}
	if conf.Runner == nil || conf.Confiner == nil {
		return nil, errors.New("judger: runner and confiner are required")
	}
	logger := conf.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Judger{
		scratchDir:       dir,
		target:           filepath.Join(dir, TargetName),
		compileTimeLimit: conf.CompileTimeLimit,
		runner:           conf.Runner,
		confiner:         conf.Confiner,
		logger:           logger,
	}, nil
}

// Target returns the artifact path shared by all runs
func (j *Judger) Target() string {
	return j.target
}

// Judge judges files written in lang against task. Failures of the
// environment are reported as Internal Error with the cause in Result.Error.
func (j *Judger) Judge(ctx context.Context, lang *language.Language, task *problem.Config, files []string) (result types.Result) {
	result.FailedTest = types.NoFailedTest
	if lang == nil || task == nil {
		result.Status = types.StatusInternalError
		result.Error = "judger: language and task are required"
		return result
	}

	errResult := func(err error) types.Result {
		j.logger.Warn("internal error", zap.String("task", task.Name), zap.String("language", lang.Name), zap.Error(err))
		return types.Result{
			Status:         types.StatusInternalError,
			CompilerOutput: result.CompilerOutput,
			FailedTest:     types.NoFailedTest,
			Error:          err.Error(),
		}
	}
	defer func() {
		if r := recover(); r != nil {
			result = errResult(fmt.Errorf("judger panic: %v", r))
		}
	}()

	limit, err := task.Limit(lang.Name)
	if err != nil {
		return errResult(err)
	}
	if err := j.reset(); err != nil {
		return errResult(err)
	}
	bindings := recipe.Bindings{Files: files, Target: j.target}

	// compile
	args, err := lang.Compile.Args(bindings)
	if err != nil {
		return errResult(err)
	}
	compileOutput := filepath.Join(j.scratchDir, CompilerOutputName)
	cr, err := j.runner.Compile(ctx, runner.CompileParam{
		Args:      args,
		Output:    compileOutput,
		TimeLimit: j.compileTimeLimit,
	})
	if err != nil {
		return errResult(err)
	}
	result.CompilerOutput = readDiagnostic(compileOutput)
	j.logger.Debug("compiled", zap.Stringer("status", cr.Status), zap.Duration("time", cr.Time))
	if cr.Status != types.StatusAccepted {
		result.Status = cr.Status
		return result
	}

	// confine, never run without an active profile
	if err := j.confiner.Confine(ctx, j.target, lang.Profile); err != nil {
		return errResult(err)
	}

	// run tests in order
	args, err = lang.Run.Args(bindings)
	if err != nil {
		return errResult(err)
	}
	output := filepath.Join(j.scratchDir, OutputName)
	stderr := filepath.Join(j.scratchDir, StderrName)
	for i, c := range task.Cases {
		index := i + 1
		er, err := j.runner.Exec(ctx, runner.ExecParam{
			Args:        args,
			Input:       c.Input,
			Output:      output,
			Stderr:      stderr,
			MemoryLimit: limit.Memory,
			TimeLimit:   limit.TimeLimit(),
		})
		if err != nil {
			return errResult(fmt.Errorf("test %d (%s): %w", index, c.Name, err))
		}
		result.Stderr = readDiagnostic(stderr)
		result.Time = er.Time
		result.Memory = er.Memory.Byte()

		status := er.Status
		if status == types.StatusAccepted {
			if err := diff.CompareFiles(c.Answer, output); err != nil {
				if !diff.IsDifferent(err) {
					return errResult(fmt.Errorf("test %d (%s): %w", index, c.Name, err))
				}
				j.logger.Debug("wrong answer", zap.Int("test", index), zap.String("diff", err.Error()))
				status = types.StatusWrongAnswer
			}
		}
		j.logger.Debug("test finished",
			zap.Int("test", index),
			zap.Stringer("status", status),
			zap.Duration("time", er.Time),
			zap.Stringer("memory", er.Memory))
		if status != types.StatusAccepted {
			result.Status = status
			result.FailedTest = index
			return result
		}
	}
	result.Status = types.StatusAccepted
	return result
}

// reset removes everything left by the previous run
func (j *Judger) reset() error {
	if err := os.RemoveAll(j.scratchDir); err != nil {
		return fmt.Errorf("reset scratch dir: %w", err)
	}
	if err := os.MkdirAll(j.scratchDir, 0755); err != nil {
		return fmt.Errorf("reset scratch dir: %w", err)
	}
	return nil
}

func readDiagnostic(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	b := make([]byte, maxDiagnostic)
	n, _ := io.ReadFull(f, b)
	return string(b[:n])
}
