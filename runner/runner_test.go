package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/mailjudge/go-verifier/types"
	"go.uber.org/zap/zaptest"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	r, err := New(zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return r
}

type fixedSampler uint64

func (f fixedSampler) RSS(int) (uint64, error) { return uint64(f), nil }

func execParam(t *testing.T, script, input string) ExecParam {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "1.in")
	if err := os.WriteFile(in, []byte(input), 0644); err != nil {
		t.Fatal(err)
	}
	return ExecParam{
		Args:        []string{"/bin/sh", "-c", script},
		Input:       in,
		Output:      filepath.Join(dir, "output"),
		Stderr:      filepath.Join(dir, "stderr"),
		MemoryLimit: 256,
		TimeLimit:   2 * time.Second,
	}
}

func TestExec_Accepted(t *testing.T) {
	r := newTestRunner(t)
	p := execParam(t, "cat; echo warn >&2", "1 2\n")
	rt, err := r.Exec(context.Background(), p)
	if err != nil {
		t.Fatalf("Exec error: %v", err)
	}
	if rt.Status != types.StatusAccepted || rt.ExitCode != 0 {
		t.Fatalf("unexpected result %+v", rt)
	}
	if b, _ := os.ReadFile(p.Output); string(b) != "1 2\n" {
		t.Errorf("output = %q", b)
	}
	if b, _ := os.ReadFile(p.Stderr); string(b) != "warn\n" {
		t.Errorf("stderr = %q", b)
	}
}

func TestExec_TimeLimitExceeded(t *testing.T) {
	r := newTestRunner(t)
	p := execParam(t, "sleep 10", "")
	p.TimeLimit = 200 * time.Millisecond
	start := time.Now()
	rt, err := r.Exec(context.Background(), p)
	if err != nil {
		t.Fatalf("Exec error: %v", err)
	}
	if rt.Status != types.StatusTimeLimitExceeded {
		t.Errorf("got %v, want TLE", rt.Status)
	}
	if d := time.Since(start); d > 5*time.Second {
		t.Errorf("child was not killed in time: %v", d)
	}
}

func TestExec_MemoryLimitBeforeTimeLimit(t *testing.T) {
	r := newTestRunner(t)
	r.Sampler = fixedSampler(100 << 20)
	p := execParam(t, "sleep 10", "")
	p.MemoryLimit = 64
	p.TimeLimit = 5 * time.Second
	rt, err := r.Exec(context.Background(), p)
	if err != nil {
		t.Fatalf("Exec error: %v", err)
	}
	if rt.Status != types.StatusMemoryLimitExceeded {
		t.Errorf("got %v, want MLE", rt.Status)
	}
	if rt.Memory.Byte() != 100<<20 {
		t.Errorf("peak memory = %v", rt.Memory)
	}
}

const allocEnv = "VERIFIER_TEST_ALLOC_MB"

// TestAllocProcess is not a real test, it is the child of
// TestExec_MemoryLimitExceeded and allocates the requested memory
func TestAllocProcess(t *testing.T) {
	if os.Getenv(allocEnv) != "1" {
		t.Skip("run as child process only")
	}
	b := make([]byte, 256<<20)
	for i := 0; i < len(b); i += 4096 {
		b[i] = 1
	}
	time.Sleep(10 * time.Second)
	runtime.KeepAlive(b)
	os.Exit(0)
}

func TestExec_MemoryLimitExceeded(t *testing.T) {
	t.Setenv(allocEnv, "1")
	r := newTestRunner(t)
	p := execParam(t, "", "")
	p.Args = []string{os.Args[0], "-test.run=^TestAllocProcess$"}
	p.MemoryLimit = 64
	p.TimeLimit = 8 * time.Second
	rt, err := r.Exec(context.Background(), p)
	if err != nil {
		t.Fatalf("Exec error: %v", err)
	}
	if rt.Status != types.StatusMemoryLimitExceeded {
		t.Fatalf("got %v, want MLE", rt.Status)
	}
	if rt.Memory.Byte() <= 64<<20 {
		t.Errorf("peak memory = %v, want above the limit", rt.Memory)
	}
	if rt.Time >= p.TimeLimit {
		t.Errorf("killed after %v, memory limit must stop the program first", rt.Time)
	}
}

func TestExec_RuntimeError(t *testing.T) {
	r := newTestRunner(t)
	rt, err := r.Exec(context.Background(), execParam(t, "exit 3", ""))
	if err != nil {
		t.Fatalf("Exec error: %v", err)
	}
	if rt.Status != types.StatusRuntimeError || rt.ExitCode != 3 {
		t.Errorf("unexpected result %+v", rt)
	}
}

func TestExec_SegmentationFault(t *testing.T) {
	r := newTestRunner(t)
	rt, err := r.Exec(context.Background(), execParam(t, "kill -SEGV $$", ""))
	if err != nil {
		t.Fatalf("Exec error: %v", err)
	}
	if rt.Status != types.StatusSecurityViolation || rt.Signal != syscall.SIGSEGV {
		t.Errorf("unexpected result %+v", rt)
	}
}

func TestExec_OtherSignal(t *testing.T) {
	r := newTestRunner(t)
	rt, err := r.Exec(context.Background(), execParam(t, "kill -TERM $$", ""))
	if err != nil {
		t.Fatalf("Exec error: %v", err)
	}
	if rt.Status != types.StatusRuntimeError || rt.Signal != syscall.SIGTERM {
		t.Errorf("unexpected result %+v", rt)
	}
}

func TestExec_EnvironmentErrors(t *testing.T) {
	r := newTestRunner(t)
	p := execParam(t, "true", "")
	p.Input = filepath.Join(t.TempDir(), "missing.in")
	if _, err := r.Exec(context.Background(), p); err == nil {
		t.Error("expected error for missing input")
	}
	p = execParam(t, "true", "")
	p.Args = []string{filepath.Join(t.TempDir(), "no-such-binary")}
	if _, err := r.Exec(context.Background(), p); err == nil {
		t.Error("expected error for spawn failure")
	}
}

func TestProcfsSampler(t *testing.T) {
	s, err := NewProcfsSampler()
	if err != nil {
		t.Fatalf("NewProcfsSampler error: %v", err)
	}
	rss, err := s.RSS(os.Getpid())
	if err != nil {
		t.Fatalf("RSS error: %v", err)
	}
	if rss == 0 {
		t.Error("expected non zero rss for the test process")
	}
}

func compileParam(t *testing.T, script string, limit time.Duration) CompileParam {
	t.Helper()
	return CompileParam{
		Args:      []string{"/bin/sh", "-c", script},
		Output:    filepath.Join(t.TempDir(), "compiler_output"),
		TimeLimit: limit,
	}
}

func TestCompile(t *testing.T) {
	r := newTestRunner(t)
	p := compileParam(t, "echo compiled; echo note >&2", time.Second*5)
	rt, err := r.Compile(context.Background(), p)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if rt.Status != types.StatusAccepted {
		t.Errorf("got %v", rt.Status)
	}
	b, _ := os.ReadFile(p.Output)
	if !strings.Contains(string(b), "compiled") || !strings.Contains(string(b), "note") {
		t.Errorf("compiler output = %q", b)
	}
}

func TestCompile_Error(t *testing.T) {
	r := newTestRunner(t)
	p := compileParam(t, "echo 'a.cpp:1: error' >&2; exit 1", time.Second*5)
	rt, err := r.Compile(context.Background(), p)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if rt.Status != types.StatusCompilationError || rt.ExitCode != 1 {
		t.Errorf("unexpected result %+v", rt)
	}
	if b, _ := os.ReadFile(p.Output); len(b) == 0 {
		t.Error("expected captured compiler output")
	}
}

func TestCompile_TimeLimitExceeded(t *testing.T) {
	r := newTestRunner(t)
	rt, err := r.Compile(context.Background(), compileParam(t, "sleep 10; exit 0", 100*time.Millisecond))
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if rt.Status != types.StatusCompilationTimeLimitExceeded {
		t.Errorf("got %v", rt.Status)
	}
}

func TestCompile_SpawnFailure(t *testing.T) {
	r := newTestRunner(t)
	p := compileParam(t, "", time.Second)
	p.Args = []string{filepath.Join(t.TempDir(), "no-such-compiler")}
	if _, err := r.Compile(context.Background(), p); err == nil {
		t.Error("expected spawn error")
	}
}
