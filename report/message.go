// Package report formats judging results for the submitter.
package report

import (
	"fmt"
	"strings"

	"github.com/mailjudge/go-verifier/types"
)

// Message returns the plain text result sent to the submitter. The failed
// test is only shown for Wrong Answer and the compiler output only for
// Compilation Error, internal details are never included.
func Message(s *types.Submission, r types.Result) string {
	var b strings.Builder
	if s.Task != "" {
		fmt.Fprintf(&b, "Task: %s\n", s.Task)
	}
	if s.Language != "" {
		fmt.Fprintf(&b, "Language: %s\n", s.Language)
	}
	fmt.Fprintf(&b, "Solution Id: %d\n", s.ID)
	fmt.Fprintf(&b, ">>> Result: %s <<<\n", r.Status)
	if r.Status == types.StatusWrongAnswer && r.FailedTest != types.NoFailedTest {
		fmt.Fprintf(&b, "Failed test: %d\n", r.FailedTest)
	}
	if r.Status == types.StatusCompilationError && r.CompilerOutput != "" {
		fmt.Fprintf(&b, "Compiler output:\n%s", r.CompilerOutput)
	}
	return b.String()
}

