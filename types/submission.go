package types

import "time"

// NoFailedTest is the failed test index of a submission that failed no test
const NoFailedTest = -1

// Submission defines a solution queued for judging
type Submission struct {
	ID        int64     `json:"id"`
	Time      time.Time `json:"time"`
	Submitter string    `json:"submitter,omitempty"`
	Task      string    `json:"task"`
	Language  string    `json:"language"`

	// Files are the submitted files, SolutionDir is searched for files with
	// the language extensions when Files is empty
	Files       []string `json:"files,omitempty"`
	SolutionDir string   `json:"solutionDir,omitempty"`

	// Status is the queue state, InvalidSolutionFormatWaiting marks a
	// submission already rejected by the intake
	Status Status `json:"status"`
}

// Result is the verdict of one judging run with its diagnostics
type Result struct {
	Status         Status `json:"status"`
	CompilerOutput string `json:"compilerOutput"`
	// FailedTest is the 1-based position of the first failed test
	FailedTest int `json:"failedTest"`

	// diagnostics of the last executed test
	Stderr string        `json:"stderr,omitempty"`
	Time   time.Duration `json:"time,omitempty"`
	Memory uint64        `json:"memory,omitempty"` // byte

	// Error holds the internal cause of an Internal Error, it is logged and
	// not shown to the submitter
	Error string `json:"-"`
}
