package packaging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/plexsphere/relayctl/internal/fsutil"
)

// UnitOutcome reports what EnsureInstalled did.
type UnitOutcome int

const (
	// UnitAlreadyExists means the unit file was present and left untouched.
	UnitAlreadyExists UnitOutcome = iota
	// UnitCreated means the unit file was written, systemd reloaded and the service enabled.
	UnitCreated
)

func (o UnitOutcome) String() string {
	if o == UnitCreated {
		return "created"
	}
	return "already exists"
}

// UnitManager writes the unit definition exactly once and removes it on uninstall.
type UnitManager struct {
	settings Settings
	systemd  SystemdController
	logger   *slog.Logger
}

// NewUnitManager creates a UnitManager with defaults applied to s.
func NewUnitManager(s Settings, systemd SystemdController, logger *slog.Logger) *UnitManager {
	s.ApplyDefaults()
	return &UnitManager{
		settings: s,
		systemd:  systemd,
		logger:   logger.With("component", "unit"),
	}
}

// Path returns the unit file location.
func (m *UnitManager) Path() string {
	return m.settings.UnitFilePath
}

// Exists reports whether the unit file is present.
func (m *UnitManager) Exists() bool {
	ok, err := fsutil.Exists(m.settings.UnitFilePath)
	if err != nil {
		m.logger.Debug("unit file probe failed", "path", m.settings.UnitFilePath, "error", err)
	}
	return ok
}

// EnsureInstalled writes the unit file when absent, reloads systemd and enables
// the service. The service is never started here. An existing unit file is never
// rewritten, so configuration changes only ever touch the environment file.
// When reload or enable fails the freshly written file is removed again, so a
// later run starts from "no unit" instead of a unit systemd never registered.
func (m *UnitManager) EnsureInstalled() (UnitOutcome, error) {
	if m.Exists() {
		m.logger.Info("unit file already present", "path", m.settings.UnitFilePath)
		return UnitAlreadyExists, nil
	}

	content := NewUnitDefinition(m.settings).Render()
	if err := fsutil.WriteFileAtomic(m.settings.UnitFilePath, []byte(content), 0o644); err != nil {
		return UnitAlreadyExists, WrapFSError("packaging: write unit file", err)
	}
	m.logger.Info("unit file written", "path", m.settings.UnitFilePath)

	if err := m.systemd.DaemonReload(); err != nil {
		return UnitAlreadyExists, m.discard(fmt.Errorf("packaging: daemon-reload: %w", err), false)
	}
	if err := m.systemd.Enable(m.settings.ServiceName); err != nil {
		return UnitAlreadyExists, m.discard(fmt.Errorf("packaging: enable %s: %w", m.settings.ServiceName, err), true)
	}
	m.logger.Info("service enabled", "service", m.settings.ServiceName)

	return UnitCreated, nil
}

// discard removes a unit file whose registration failed and returns cause,
// joined with any cleanup failure. reload asks systemd to forget the unit it
// already loaded.
func (m *UnitManager) discard(cause error, reload bool) error {
	if err := m.Remove(); err != nil {
		return errors.Join(cause, err)
	}
	if reload {
		if err := m.systemd.DaemonReload(); err != nil {
			m.logger.Debug("daemon-reload after unit removal failed", "error", err)
		}
	}
	return cause
}

// Remove deletes the unit file. A missing file is not an error.
func (m *UnitManager) Remove() error {
	err := os.Remove(m.settings.UnitFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return WrapFSError("packaging: remove unit file", err)
	}
	m.logger.Info("unit file removed", "path", m.settings.UnitFilePath)
	return nil
}
