package types

import (
	"fmt"
	"strconv"
)

// Status defines the verdict of a submission
type Status int

// Defines verdict status, the numeric values are persisted by the intake
// and must not be reordered
const (
	StatusAccepted Status = iota

	// intake lifecycle
	StatusCopying
	StatusWaiting

	StatusWrongAnswer
	StatusRuntimeError
	StatusInternalError
	StatusCompilationError
	StatusTimeLimitExceeded
	StatusMemoryLimitExceeded
	StatusSecurityViolation

	// intake lifecycle
	StatusInvalidSolutionFormatError
	StatusInvalidSolutionFormatWaiting

	StatusCompilationTimeLimitExceeded
)

var statusToString = []string{
	"Accepted",
	"Copying",
	"Waiting",
	"Wrong Answer",
	"Runtime Error",
	"Internal Error",
	"Compilation Error",
	"Time Limit Exceeded",
	"Memory Limit Exceeded",
	"Security Violation Error",
	"Invalid Solution Format Error",
	"Invalid Solution Format Waiting",
	"Compilation Time Limit Exceeded",
}

// stringToStatus map string to corresponding Status
var stringToStatus = make(map[string]Status)

func (s Status) String() string {
	si := int(s)
	if si < 0 || si >= len(statusToString) {
		return "Unknown Status (" + strconv.Itoa(si) + ")"
	}
	return statusToString[si]
}

// Terminal reports whether the status is a final verdict produced by judging
// rather than a queue state
func (s Status) Terminal() bool {
	switch s {
	case StatusCopying, StatusWaiting, StatusInvalidSolutionFormatWaiting:
		return false
	}
	return s >= 0 && int(s) < len(statusToString)
}

// MarshalText encodes status as its display string
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes status from its display string
func (s *Status) UnmarshalText(b []byte) error {
	v, err := StringToStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// StringToStatus convert string to Status
func StringToStatus(s string) (Status, error) {
	v, ok := stringToStatus[s]
	if !ok {
		return 0, fmt.Errorf("invalid string converting: %s", s)
	}
	return v, nil
}

func init() {
	for i, v := range statusToString {
		stringToStatus[v] = Status(i)
	}
}
