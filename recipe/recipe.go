// Package recipe expands command and profile templates.
//
// A template contains placeholders of the form [[ prefix VAR suffix ]].
// The text between the delimiters is the placeholder body. The variable
// name inside the body is replaced by its bound value and the delimiters
// are dropped. List variables repeat the body once per element with no
// separator added, so any separator must be written inside the body:
//
//	[[$SRC_FILES...]]        --> a.cppb.cppc.cpp
//	[[$SRC_FILES... ]]       --> a.cpp b.cpp c.cpp
//	[[$SRC_FILES... -r, ]]   --> a.cpp -r, b.cpp -r, c.cpp -r,
//	[[$SRC_FILES_TAIL... ]]  --> b.cpp c.cpp
//	[[$SRC_FILES_RTAIL... ]] --> a.cpp b.cpp
//	[[$SRC_FILES_HEAD]]      --> a.cpp
//	[[$SRC_FILES_RHEAD]]     --> c.cpp
//
// An unbound variable or an empty list collapses the whole placeholder to
// the empty string. Templates are parsed once into segments and expanded
// many times.
package recipe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// Var is a placeholder variable name
type Var string

// Supported variables, listed in the order they take precedence when a
// single placeholder body mentions more than one of them
const (
	VarSrcFilesTail  Var = "$SRC_FILES_TAIL..."
	VarSrcFilesRTail Var = "$SRC_FILES_RTAIL..."
	VarSrcFiles      Var = "$SRC_FILES..."
	VarSrcFilesHead  Var = "$SRC_FILES_HEAD"
	VarSrcFilesRHead Var = "$SRC_FILES_RHEAD"
	VarTargetPath    Var = "$TARGET_PATH"
)

var vars = []Var{
	VarSrcFilesTail,
	VarSrcFilesRTail,
	VarSrcFiles,
	VarSrcFilesHead,
	VarSrcFilesRHead,
	VarTargetPath,
}

const (
	openDelim  = "[["
	closeDelim = "]]"
)

// ErrEmptyCommand is returned by Args when the expansion has no words
var ErrEmptyCommand = errors.New("recipe: expanded to an empty command")

// Multi reports whether the variable binds to a list
func (v Var) Multi() bool {
	return strings.HasSuffix(string(v), "...")
}

// Bindings holds the values placeholders are expanded with
type Bindings struct {
	// Files are the submission files in submission order
	Files []string
	// Target is the compiled artifact path, empty means unbound
	Target string
}

// list returns the values bound to a list variable
func (b Bindings) list(v Var) []string {
	n := len(b.Files)
	switch v {
	case VarSrcFiles:
		return b.Files
	case VarSrcFilesTail:
		if n > 1 {
			return b.Files[1:]
		}
	case VarSrcFilesRTail:
		if n > 1 {
			return b.Files[:n-1]
		}
	}
	return nil
}

// single returns the value bound to a single value variable
func (b Bindings) single(v Var) (string, bool) {
	n := len(b.Files)
	switch v {
	case VarSrcFilesHead:
		if n > 0 {
			return b.Files[0], true
		}
	case VarSrcFilesRHead:
		if n > 0 {
			return b.Files[n-1], true
		}
	case VarTargetPath:
		return b.Target, b.Target != ""
	}
	return "", false
}

// Segment is one piece of a parsed template
type Segment interface {
	expand(sb *strings.Builder, b Bindings)
}

// Literal is template text copied verbatim
type Literal string

// Placeholder is a [[ ... ]] occurrence bound to one variable.
// Parts holds the body split around every occurrence of the variable.
type Placeholder struct {
	Var   Var
	Parts []string
}

func (l Literal) expand(sb *strings.Builder, _ Bindings) {
	sb.WriteString(string(l))
}

func (p Placeholder) expand(sb *strings.Builder, b Bindings) {
	if p.Var.Multi() {
		for _, v := range b.list(p.Var) {
			sb.WriteString(strings.Join(p.Parts, v))
		}
		return
	}
	if v, ok := b.single(p.Var); ok {
		sb.WriteString(strings.Join(p.Parts, v))
	}
}

// Recipe is a parsed template
type Recipe struct {
	source   string
	segments []Segment
}

// Parse splits the template into literal and placeholder segments.
// A [[ ... ]] pair whose body names no known variable is kept as literal text.
func Parse(s string) *Recipe {
	r := &Recipe{source: s}
	rest := s
	var lit strings.Builder
	for {
		start := strings.Index(rest, openDelim)
		if start < 0 {
			break
		}
		end := strings.Index(rest[start+len(openDelim):], closeDelim)
		if end < 0 {
			break
		}
		end += start + len(openDelim)
		// the innermost opening delimiter owns the body
		if inner := strings.LastIndex(rest[:end], openDelim); inner > start {
			start = inner
		}
		body := rest[start+len(openDelim) : end]
		lit.WriteString(rest[:start])
		v, ok := findVar(body)
		if !ok {
			lit.WriteString(rest[start : end+len(closeDelim)])
		} else {
			if lit.Len() > 0 {
				r.segments = append(r.segments, Literal(lit.String()))
				lit.Reset()
			}
			r.segments = append(r.segments, Placeholder{
				Var:   v,
				Parts: strings.Split(body, string(v)),
			})
		}
		rest = rest[end+len(closeDelim):]
	}
	lit.WriteString(rest)
	if lit.Len() > 0 {
		r.segments = append(r.segments, Literal(lit.String()))
	}
	return r
}

func findVar(body string) (Var, bool) {
	for _, v := range vars {
		if strings.Contains(body, string(v)) {
			return v, true
		}
	}
	return "", false
}

// Segments returns the parsed segments
func (r *Recipe) Segments() []Segment {
	return r.segments
}

// Expand substitutes every placeholder with its bindings
func (r *Recipe) Expand(b Bindings) string {
	var sb strings.Builder
	for _, s := range r.segments {
		s.expand(&sb, b)
	}
	return sb.String()
}

// Args expands the recipe and splits it into argv with shell word splitting
// rules. No shell is involved in running the result.
func (r *Recipe) Args(b Bindings) ([]string, error) {
	cmd := r.Expand(b)
	args, err := shlex.Split(cmd)
	if err != nil {
		return nil, fmt.Errorf("recipe: split %q: %w", cmd, err)
	}
	if len(args) == 0 {
		return nil, ErrEmptyCommand
	}
	return args, nil
}

func (r *Recipe) String() string {
	return r.source
}
