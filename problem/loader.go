package problem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-ini/ini"
)

// Task directory layout
const (
	InfoFile  = "task_info.ini"
	InputExt  = ".in"
	AnswerExt = ".out"
)

// ErrInvalidName is returned for task names that are not a single path element
var ErrInvalidName = errors.New("invalid task name")

// Load reads the task stored in dir
func Load(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	limits, err := readLimits(filepath.Join(abs, InfoFile))
	if err != nil {
		return nil, err
	}
	cases, err := readCases(abs)
	if err != nil {
		return nil, err
	}
	return &Config{
		Name:   filepath.Base(abs),
		Dir:    abs,
		Limits: limits,
		Cases:  cases,
	}, nil
}

func readLimits(path string) (map[string]Limit, error) {
	f, err := ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	limits := make(map[string]Limit)
	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		mem, err := sec.Key("memory").Float64()
		if err != nil {
			return nil, fmt.Errorf("%s [%s] memory: %w", path, sec.Name(), err)
		}
		tl, err := sec.Key("time").Float64()
		if err != nil {
			return nil, fmt.Errorf("%s [%s] time: %w", path, sec.Name(), err)
		}
		limits[sec.Name()] = Limit{Memory: mem, Time: tl}
	}
	return limits, nil
}

// readCases enumerates <name>.in files sorted by name, the answer is
// expected at <name>.out and checked when it is used
func readCases(dir string) ([]Case, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var cases []Case
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasSuffix(n, InputExt) {
			continue
		}
		base := strings.TrimSuffix(n, InputExt)
		cases = append(cases, Case{
			Name:   base,
			Input:  filepath.Join(dir, n),
			Answer: filepath.Join(dir, base+AnswerExt),
		})
	}
	sort.Slice(cases, func(i, j int) bool {
		return cases[i].Name < cases[j].Name
	})
	return cases, nil
}

// Store resolves task names to task directories under Root
type Store struct {
	Root string
}

// Get loads the named task
func (s Store) Get(name string) (*Config, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return Load(filepath.Join(s.Root, name))
}

// Exists reports whether the named task directory exists
func (s Store) Exists(name string) bool {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return false
	}
	fi, err := os.Stat(filepath.Join(s.Root, name))
	return err == nil && fi.IsDir()
}

// Names lists the available tasks
func (s Store) Names() ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
