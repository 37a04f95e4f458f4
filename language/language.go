// Package language defines how submissions of each supported language are
// compiled, run and confined.
package language

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mailjudge/go-verifier/recipe"
)

// ErrUnknown is returned when a language is not present in the table
var ErrUnknown = errors.New("unknown language")

// Config is the static description of a language as it appears in the
// language configuration file
type Config struct {
	Name       string   `config:"name"`
	Extensions []string `config:"extensions"`
	Compile    string   `config:"compile"`
	Run        string   `config:"run"`
	Profile    string   `config:"profile"`
}

// Language is a parsed language config
type Language struct {
	Name       string
	Extensions []string
	Compile    *recipe.Recipe
	Run        *recipe.Recipe
	Profile    *recipe.Recipe
}

// New parses the recipes of the config
func New(c Config) (*Language, error) {
	if c.Name == "" {
		return nil, errors.New("language: empty name")
	}
	if len(c.Extensions) == 0 {
		return nil, fmt.Errorf("language %s: no extensions", c.Name)
	}
	if strings.TrimSpace(c.Compile) == "" || strings.TrimSpace(c.Run) == "" {
		return nil, fmt.Errorf("language %s: compile and run recipes are required", c.Name)
	}
	if strings.TrimSpace(c.Profile) == "" {
		return nil, fmt.Errorf("language %s: sandbox profile is required", c.Name)
	}
	return &Language{
		Name:       c.Name,
		Extensions: slices.Clone(c.Extensions),
		Compile:    recipe.Parse(c.Compile),
		Run:        recipe.Parse(c.Run),
		Profile:    recipe.Parse(c.Profile),
	}, nil
}

// Accepts reports whether the file name carries one of the language extensions
func (l *Language) Accepts(name string) bool {
	for _, ext := range l.Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Collect lists the regular files of dir accepted by the language as
// absolute paths sorted by name
func (l *Language) Collect(dir string) ([]string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !l.Accepts(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(abs, e.Name()))
	}
	return files, nil
}
