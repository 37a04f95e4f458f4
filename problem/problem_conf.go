package problem

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoLimits is returned when the task defines no limits for a language
var ErrNoLimits = errors.New("no limits for language")

// Limit defines the per language resource limits of a task
type Limit struct {
	Memory float64 // MB
	Time   float64 // seconds
}

// TimeLimit returns the time limit as duration
func (l Limit) TimeLimit() time.Duration {
	return time.Duration(l.Time * float64(time.Second))
}

// Case defines single judge case
type Case struct {
	Name   string // basename without extension
	Input  string
	Answer string
}

// Config defines a task judgement configuration
type Config struct {
	Name   string
	Dir    string
	Limits map[string]Limit
	Cases  []Case // ordered by name
}

// Limit returns the limits for the language
func (c *Config) Limit(language string) (Limit, error) {
	l, ok := c.Limits[language]
	if !ok {
		return Limit{}, fmt.Errorf("task %s: %w %q", c.Name, ErrNoLimits, language)
	}
	return l, nil
}
