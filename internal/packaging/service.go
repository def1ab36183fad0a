package packaging

import (
	"fmt"
	"strings"
)

// Status is the service state derived from systemd and the unit file.
// It is never stored; every call to ServiceController.Status recomputes it.
type Status int

const (
	// StatusUninstalled means the unit file does not exist.
	StatusUninstalled Status = iota
	// StatusRunning means systemd reports the service active.
	StatusRunning
	// StatusStoppedReady means the service is inactive but enabled at boot.
	StatusStoppedReady
	// StatusDisabled means the service is inactive and not enabled.
	StatusDisabled
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusStoppedReady:
		return "stopped"
	case StatusDisabled:
		return "disabled"
	default:
		return "not installed"
	}
}

// Action is a service control operation.
type Action int

const (
	ActionStart Action = iota
	ActionStop
	ActionRestart
)

func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	case ActionRestart:
		return "restart"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseAction maps "start", "stop" and "restart" (case-insensitive) to an Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "start":
		return ActionStart, nil
	case "stop":
		return ActionStop, nil
	case "restart":
		return ActionRestart, nil
	}
	return 0, fmt.Errorf("packaging: unknown action %q: %w", s, ErrInvalidInput)
}

// ServiceController issues control operations and derives Status. It holds no
// state of its own.
type ServiceController struct {
	units   *UnitManager
	systemd SystemdController
	service string
}

// NewServiceController creates a ServiceController for the unit managed by units.
func NewServiceController(units *UnitManager, systemd SystemdController) *ServiceController {
	return &ServiceController{
		units:   units,
		systemd: systemd,
		service: units.settings.ServiceName,
	}
}

// Status probes the unit file and systemd.
func (c *ServiceController) Status() Status {
	if !c.units.Exists() {
		return StatusUninstalled
	}
	if c.systemd.IsActive(c.service) {
		return StatusRunning
	}
	if c.systemd.IsEnabled(c.service) {
		return StatusStoppedReady
	}
	return StatusDisabled
}

// IsActive reports whether the service is running. It satisfies the activity
// probe used by the configuration store.
func (c *ServiceController) IsActive() bool {
	return c.Status() == StatusRunning
}

// Control runs action against systemd. It fails with ErrNotInstalled, without
// calling systemctl, when the unit file is absent.
func (c *ServiceController) Control(action Action) error {
	if !c.units.Exists() {
		return fmt.Errorf("packaging: %s %s: %w", action, c.service, ErrNotInstalled)
	}

	var err error
	switch action {
	case ActionStart:
		err = c.systemd.Start(c.service)
	case ActionStop:
		err = c.systemd.Stop(c.service)
	case ActionRestart:
		err = c.systemd.Restart(c.service)
	default:
		return fmt.Errorf("packaging: %s: %w", action, ErrInvalidInput)
	}
	if err != nil {
		return fmt.Errorf("packaging: %s %s: %w", action, c.service, err)
	}
	return nil
}
