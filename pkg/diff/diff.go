// Package diff provides function to compare contents from reader and
// returns error information if they are different.
//
// Both contents are split into lines, "\n", "\r\n" and a lone "\r" all end
// a line. They must have the same number of lines and every line must be
// equal, except that white spaces at the end of the last line are ignored.
package diff

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// DifferentError reports the first difference between two contents
type DifferentError struct {
	Line     int // 1-based, 0 when the number of lines differs
	Expected string
	Actual   string
}

func (e *DifferentError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("expected %v lines, actual %v lines", e.Expected, e.Actual)
	}
	return fmt.Sprintf("At line %d,\nexpected: %q\nactual: %q", e.Line, e.Expected, e.Actual)
}

// IsDifferent reports whether err is caused by different contents rather
// than by failing to read them
func IsDifferent(err error) bool {
	var d *DifferentError
	return errors.As(err, &d)
}

// Compare compares actual with expected.
// if they are the same except space at the end of the last line,
// no error is returned
// otherwise, if error occurred / not same, error will be
// returned
func Compare(expected, actual io.Reader) error {
	exp, err := readLines(expected)
	if err != nil {
		return fmt.Errorf("read expected: %w", err)
	}
	act, err := readLines(actual)
	if err != nil {
		return fmt.Errorf("read actual: %w", err)
	}
	if len(exp) != len(act) {
		return &DifferentError{Expected: fmt.Sprint(len(exp)), Actual: fmt.Sprint(len(act))}
	}
	if n := len(exp); n > 0 {
		exp[n-1] = strings.TrimRightFunc(exp[n-1], unicode.IsSpace)
		act[n-1] = strings.TrimRightFunc(act[n-1], unicode.IsSpace)
	}
	for i := range exp {
		if exp[i] != act[i] {
			return &DifferentError{Line: i + 1, Expected: exp[i], Actual: act[i]}
		}
	}
	return nil
}

// CompareFiles compares the content of two files with Compare
func CompareFiles(expected, actual string) error {
	ef, err := os.Open(expected)
	if err != nil {
		return err
	}
	defer ef.Close()

	af, err := os.Open(actual)
	if err != nil {
		return err
	}
	defer af.Close()

	return Compare(ef, af)
}

// readLines splits on line endings, a final line without one still counts
func readLines(r io.Reader) ([]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	content := strings.ReplaceAll(string(b), "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n"), nil
}
