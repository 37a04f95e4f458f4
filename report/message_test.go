package report

import (
	"testing"

	"github.com/mailjudge/go-verifier/types"
)

func TestMessage_WrongAnswer(t *testing.T) {
	s := &types.Submission{ID: 12, Task: "sum", Language: "C++"}
	got := Message(s, types.Result{Status: types.StatusWrongAnswer, FailedTest: 3, CompilerOutput: "warning"})
	want := "Task: sum\nLanguage: C++\nSolution Id: 12\n>>> Result: Wrong Answer <<<\nFailed test: 3\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMessage_CompilationError(t *testing.T) {
	s := &types.Submission{ID: 1, Task: "sum", Language: "C"}
	got := Message(s, types.Result{Status: types.StatusCompilationError, FailedTest: types.NoFailedTest, CompilerOutput: "a.c:1: error\n"})
	want := "Task: sum\nLanguage: C\nSolution Id: 1\n>>> Result: Compilation Error <<<\nCompiler output:\na.c:1: error\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMessage_InternalError(t *testing.T) {
	s := &types.Submission{ID: 5}
	got := Message(s, types.Result{Status: types.StatusInternalError, FailedTest: 2, Error: "aa-enforce failed"})
	want := "Solution Id: 5\n>>> Result: Internal Error <<<\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
