package language

import (
	"fmt"
	"os"

	"github.com/elastic/go-ucfg/yaml"
)

// Table is the immutable set of configured languages
type Table struct {
	langs map[string]*Language
	names []string
}

type tableFile struct {
	Languages []Config `config:"languages"`
}

// NewTable builds a table, later entries with the same name are rejected
func NewTable(cs []Config) (*Table, error) {
	t := &Table{langs: make(map[string]*Language, len(cs))}
	for _, c := range cs {
		l, err := New(c)
		if err != nil {
			return nil, err
		}
		if _, ok := t.langs[l.Name]; ok {
			return nil, fmt.Errorf("language %s: defined more than once", l.Name)
		}
		t.langs[l.Name] = l
		t.names = append(t.names, l.Name)
	}
	return t, nil
}

// Load reads the language table from a yaml file.
// The returned error satisfies os.IsNotExist when the file is absent.
func Load(path string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	conf, err := yaml.NewConfigWithFile(path)
	if err != nil {
		return nil, err
	}
	var f tableFile
	if err := conf.Unpack(&f); err != nil {
		return nil, fmt.Errorf("language: unpack %s: %w", path, err)
	}
	if len(f.Languages) == 0 {
		return nil, fmt.Errorf("language: %s defines no languages", path)
	}
	return NewTable(f.Languages)
}

// Get returns the language by name
func (t *Table) Get(name string) (*Language, error) {
	l, ok := t.langs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return l, nil
}

// Names returns the language names in configuration order
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}
