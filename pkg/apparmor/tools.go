package apparmor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Defaults of the AppArmor utilities
const (
	DefaultProfileDir = "/etc/apparmor.d"
	DefaultEnforceCmd = "aa-enforce"
	DefaultDisableCmd = "aa-disable"
	defaultTimeout    = 30 * time.Second
)

// Tools enforces profiles through the AppArmor command line utilities.
// It requires root privilege.
type Tools struct {
	ProfileDir string
	EnforceCmd string
	DisableCmd string
	Timeout    time.Duration
}

// NewTools creates Tools with default utility names and profile directory
func NewTools() *Tools {
	return &Tools{
		ProfileDir: DefaultProfileDir,
		EnforceCmd: DefaultEnforceCmd,
		DisableCmd: DefaultDisableCmd,
		Timeout:    defaultTimeout,
	}
}

// ProfilePath returns where the profile of path is stored
func (t *Tools) ProfilePath(path string) string {
	return filepath.Join(t.ProfileDir, ProfileName(path))
}

// Enable writes the policy into the profile directory and enforces it
func (t *Tools) Enable(ctx context.Context, path, policy string) error {
	if err := os.WriteFile(t.ProfilePath(path), []byte(policy), 0644); err != nil {
		return fmt.Errorf("%w: write profile: %v", ErrEnforce, err)
	}
	if out, err := t.run(ctx, t.EnforceCmd, path); err != nil {
		return fmt.Errorf("%w: %s %s: %v: %s", ErrEnforce, t.EnforceCmd, path, err, out)
	}
	return nil
}

// Disable disables the profile of path
func (t *Tools) Disable(ctx context.Context, path string) error {
	if out, err := t.run(ctx, t.DisableCmd, path); err != nil {
		return fmt.Errorf("%s %s: %w: %s", t.DisableCmd, path, err, out)
	}
	return nil
}

func (t *Tools) run(ctx context.Context, name string, args ...string) (string, error) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out bytes.Buffer
	c := exec.CommandContext(ctx, name, args...)
	c.Stdout = &out
	c.Stderr = &out
	err := c.Run()
	return strings.TrimSpace(out.String()), err
}
