// Package apparmor confines compiled artifacts with AppArmor profiles keyed
// by the artifact path.
//
// Profiles are process wide state of the host. A profile previously loaded
// for the same path is disabled before the new one is enforced, so only one
// profile per artifact path is ever active.
package apparmor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mailjudge/go-verifier/recipe"
	"go.uber.org/zap"
)

// ErrEnforce is returned when the policy could not be enforced
var ErrEnforce = errors.New("apparmor: enforce profile failed")

// Enforcer enables and disables a confinement policy for an executable path
type Enforcer interface {
	Enable(ctx context.Context, path, policy string) error
	Disable(ctx context.Context, path string) error
}

// ProfileName derives the profile file name from an absolute path,
// e.g. /var/verifier/temp/target becomes var.verifier.temp.target
func ProfileName(path string) string {
	return strings.TrimPrefix(strings.ReplaceAll(path, "/", "."), ".")
}

// Manager confines artifacts using the language profile template
type Manager struct {
	Enforcer Enforcer
	Logger   *zap.Logger
}

// NewManager creates a manager, a nil logger disables logging
func NewManager(e Enforcer, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{Enforcer: e, Logger: logger}
}

// Confine replaces any profile bound to target with the expansion of
// profile and enforces it. Execution must not proceed when it fails.
func (m *Manager) Confine(ctx context.Context, target string, profile *recipe.Recipe) error {
	abs, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	// absence of a previous profile is not an error
	if err := m.Enforcer.Disable(ctx, abs); err != nil {
		m.Logger.Debug("disable previous profile", zap.String("path", abs), zap.Error(err))
	}
	policy := profile.Expand(recipe.Bindings{Target: abs})
	if err := m.Enforcer.Enable(ctx, abs, policy); err != nil {
		return fmt.Errorf("confine %s: %w", abs, err)
	}
	m.Logger.Debug("profile enforced", zap.String("path", abs), zap.String("profile", ProfileName(abs)))
	return nil
}
