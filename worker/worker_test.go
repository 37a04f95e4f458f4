package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mailjudge/go-verifier/language"
	"github.com/mailjudge/go-verifier/problem"
	"github.com/mailjudge/go-verifier/types"
	"go.uber.org/zap/zaptest"
)

type fakeJudger struct {
	mu    sync.Mutex
	files [][]string
	rt    types.Result
	delay time.Duration
}

func (f *fakeJudger) Judge(_ context.Context, lang *language.Language, task *problem.Config, files []string) types.Result {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, files)
	return f.rt
}

func newTestWorker(t *testing.T, j Judger) (Worker, string) {
	t.Helper()
	root := t.TempDir()
	taskDir := filepath.Join(root, "tasks", "sum")
	if err := os.MkdirAll(taskDir, 0755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(taskDir, problem.InfoFile), []byte("[C++]\nmemory=64\ntime=1\n"), 0644)
	w := New(Config{
		Judger:    j,
		Languages: language.Default(),
		Tasks:     problem.Store{Root: filepath.Join(root, "tasks")},
		Logger:    zaptest.NewLogger(t),
	})
	w.Start()
	t.Cleanup(w.Shutdown)
	return w, root
}

func submit(t *testing.T, w Worker, s *types.Submission) Response {
	t.Helper()
	ch, err := w.Submit(context.Background(), s)
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	select {
	case rt := <-ch:
		return rt
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for response")
	}
	return Response{}
}

func TestWorker_Judge(t *testing.T) {
	j := &fakeJudger{rt: types.Result{Status: types.StatusWrongAnswer, FailedTest: 2}}
	w, root := newTestWorker(t, j)
	sol := filepath.Join(root, "solutions", "7")
	os.MkdirAll(sol, 0755)
	for _, n := range []string{"b.cpp", "a.cpp", "notes.txt"} {
		os.WriteFile(filepath.Join(sol, n), []byte("x"), 0644)
	}
	rt := submit(t, w, &types.Submission{ID: 7, Task: "sum", Language: "C++", SolutionDir: sol, Status: types.StatusWaiting})
	if rt.Result.Status != types.StatusWrongAnswer || rt.Result.FailedTest != 2 {
		t.Errorf("unexpected result %+v", rt.Result)
	}
	if rt.Submission.ID != 7 {
		t.Errorf("unexpected submission %+v", rt.Submission)
	}
	if len(j.files) != 1 || len(j.files[0]) != 2 || filepath.Base(j.files[0][0]) != "a.cpp" {
		t.Errorf("unexpected judged files %v", j.files)
	}
}

func TestWorker_InvalidFormat(t *testing.T) {
	j := &fakeJudger{rt: types.Result{Status: types.StatusAccepted}}
	w, root := newTestWorker(t, j)
	cases := []*types.Submission{
		{ID: 1, Task: "sum", Language: "C++", Files: []string{"/s/a.cpp"}, Status: types.StatusInvalidSolutionFormatWaiting},
		{ID: 2, Task: "sum", Language: "Pascal", Files: []string{"/s/a.pas"}},
		{ID: 3, Task: "nope", Language: "C++", Files: []string{"/s/a.cpp"}},
		{ID: 4, Task: "sum", Language: "C++", SolutionDir: filepath.Join(root, "missing")},
		{ID: 5, Task: "sum", Language: "C", Files: []string{"/s/a.cpp"}},
		{ID: 6, Task: "sum", Language: "C"},
	}
	for _, s := range cases {
		rt := submit(t, w, s)
		if rt.Result.Status != types.StatusInvalidSolutionFormatError {
			t.Errorf("submission %d: got %v", s.ID, rt.Result.Status)
		}
		if rt.Result.FailedTest != types.NoFailedTest {
			t.Errorf("submission %d: failed test = %d", s.ID, rt.Result.FailedTest)
		}
	}
	if len(j.files) != 0 {
		t.Errorf("judger must not be invoked, got %v", j.files)
	}
}

func TestWorker_Observer(t *testing.T) {
	var observed []Response
	var mu sync.Mutex
	w := New(Config{
		Judger:    &fakeJudger{rt: types.Result{Status: types.StatusAccepted, FailedTest: types.NoFailedTest}},
		Languages: language.Default(),
		Tasks:     problem.Store{Root: t.TempDir()},
		Observer: func(r Response) {
			mu.Lock()
			observed = append(observed, r)
			mu.Unlock()
		},
	})
	w.Start()
	defer w.Shutdown()
	submit(t, w, &types.Submission{ID: 1, Task: "missing", Language: "C"})
	mu.Lock()
	defer mu.Unlock()
	if len(observed) != 1 || observed[0].Submission.ID != 1 {
		t.Errorf("unexpected observed responses %+v", observed)
	}
}

func TestWorker_SubmitAfterShutdown(t *testing.T) {
	w, _ := newTestWorker(t, &fakeJudger{})
	w.Shutdown()
	if _, err := w.Submit(context.Background(), &types.Submission{}); !errors.Is(err, ErrShutdown) {
		t.Errorf("expected ErrShutdown, got %v", err)
	}
}

func TestWorker_ShutdownAnswersQueued(t *testing.T) {
	j := &fakeJudger{rt: types.Result{Status: types.StatusAccepted, FailedTest: types.NoFailedTest}, delay: 200 * time.Millisecond}
	w, _ := newTestWorker(t, j)

	var chs []<-chan Response
	for i := range 3 {
		ch, err := w.Submit(context.Background(), &types.Submission{
			ID: int64(i + 1), Task: "sum", Language: "C++", Files: []string{"/s/a.cpp"},
		})
		if err != nil {
			t.Fatalf("Submit error: %v", err)
		}
		chs = append(chs, ch)
	}
	time.Sleep(50 * time.Millisecond)
	w.Shutdown()

	for i, ch := range chs {
		select {
		case rt := <-ch:
			if i == 0 {
				if rt.Err != nil || rt.Result.Status != types.StatusAccepted {
					t.Errorf("running submission: unexpected response %+v", rt)
				}
				continue
			}
			if !errors.Is(rt.Err, ErrShutdown) || rt.Result.Status != types.StatusInternalError {
				t.Errorf("submission %d: unexpected response %+v", i+1, rt)
			}
			if rt.Submission.ID != int64(i+1) {
				t.Errorf("submission %d: got id %d", i+1, rt.Submission.ID)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("submission %d: no response after shutdown", i+1)
		}
	}
}
