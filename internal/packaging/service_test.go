package packaging

import (
	"errors"
	"testing"
)

func TestServiceController_StatusMachine(t *testing.T) {
	tests := []struct {
		name      string
		installed bool
		active    bool
		enabled   bool
		want      Status
	}{
		{"no unit file", false, false, false, StatusUninstalled},
		{"no unit file but systemd says active", false, true, true, StatusUninstalled},
		{"active", true, true, true, StatusRunning},
		{"active without enable", true, true, false, StatusRunning},
		{"stopped enabled", true, false, true, StatusStoppedReady},
		{"stopped disabled", true, false, false, StatusDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			systemd := &mockSystemdController{available: true, active: tt.active, enabled: tt.enabled}
			units, s := newTestUnitManager(t, systemd)
			if tt.installed {
				writeFile(t, s.UnitFilePath, NewUnitDefinition(s).Render())
			}

			got := NewServiceController(units, systemd).Status()
			if got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestServiceController_ControlBeforeInstall(t *testing.T) {
	systemd := &mockSystemdController{available: true}
	units, _ := newTestUnitManager(t, systemd)
	ctrl := NewServiceController(units, systemd)

	for _, a := range []Action{ActionStart, ActionStop, ActionRestart} {
		if err := ctrl.Control(a); !errors.Is(err, ErrNotInstalled) {
			t.Errorf("Control(%v) = %v, want ErrNotInstalled", a, err)
		}
	}
	if systemd.totalCalls() != 0 {
		t.Errorf("systemctl invoked %d times before install, want 0", systemd.totalCalls())
	}
}

func TestServiceController_ControlRoutes(t *testing.T) {
	systemd := &mockSystemdController{available: true}
	units, s := newTestUnitManager(t, systemd)
	writeFile(t, s.UnitFilePath, NewUnitDefinition(s).Render())
	ctrl := NewServiceController(units, systemd)

	for _, a := range []Action{ActionStart, ActionStop, ActionRestart} {
		if err := ctrl.Control(a); err != nil {
			t.Fatalf("Control(%v) = %v", a, err)
		}
	}
	if len(systemd.startCalls) != 1 || len(systemd.stopCalls) != 1 || len(systemd.restartCalls) != 1 {
		t.Errorf("calls: start=%v stop=%v restart=%v", systemd.startCalls, systemd.stopCalls, systemd.restartCalls)
	}
}

func TestServiceController_ControlSurfacesToolError(t *testing.T) {
	toolErr := &ToolError{Op: "start relayd", Output: "Job for relayd.service failed", Err: errors.New("exit status 1")}
	systemd := &mockSystemdController{available: true, startErr: toolErr}
	units, s := newTestUnitManager(t, systemd)
	writeFile(t, s.UnitFilePath, NewUnitDefinition(s).Render())

	err := NewServiceController(units, systemd).Control(ActionStart)
	var got *ToolError
	if !errors.As(err, &got) {
		t.Fatalf("Control() = %v, want *ToolError", err)
	}
	if got.Output != "Job for relayd.service failed" {
		t.Errorf("Output = %q, want verbatim systemctl output", got.Output)
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{"start", ActionStart, false},
		{"STOP", ActionStop, false},
		{" restart ", ActionRestart, false},
		{"status", 0, true},
		{"", 0, true},
		{"reload", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseAction(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ParseAction(%q) error = %v, want ErrInvalidInput", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseAction(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestStatus_String(t *testing.T) {
	tests := map[Status]string{
		StatusUninstalled:  "not installed",
		StatusRunning:      "running",
		StatusStoppedReady: "stopped",
		StatusDisabled:     "disabled",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
