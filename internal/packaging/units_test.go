package packaging

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func newTestUnitManager(t *testing.T, systemd *mockSystemdController) (*UnitManager, Settings) {
	t.Helper()
	s, _ := testSettings(t)
	return NewUnitManager(s, systemd, testLogger()), s
}

func TestEnsureInstalled_CreatesEnablesDoesNotStart(t *testing.T) {
	systemd := &mockSystemdController{available: true}
	m, s := newTestUnitManager(t, systemd)

	outcome, err := m.EnsureInstalled()
	if err != nil {
		t.Fatalf("EnsureInstalled() = %v", err)
	}
	if outcome != UnitCreated {
		t.Errorf("outcome = %v, want %v", outcome, UnitCreated)
	}

	content := readFile(t, s.UnitFilePath)
	if !strings.Contains(content, "EnvironmentFile="+s.ConfigFile) {
		t.Errorf("unit file does not reference %s:\n%s", s.ConfigFile, content)
	}
	if systemd.daemonReloadCalls != 1 {
		t.Errorf("DaemonReload() called %d times, want 1", systemd.daemonReloadCalls)
	}
	if len(systemd.enableCalls) != 1 || systemd.enableCalls[0] != "relayd" {
		t.Errorf("Enable() calls = %v, want [relayd]", systemd.enableCalls)
	}
	if len(systemd.startCalls) != 0 || len(systemd.restartCalls) != 0 {
		t.Errorf("service started during install: start=%v restart=%v", systemd.startCalls, systemd.restartCalls)
	}
}

func TestEnsureInstalled_Idempotent(t *testing.T) {
	systemd := &mockSystemdController{available: true}
	m, s := newTestUnitManager(t, systemd)

	if _, err := m.EnsureInstalled(); err != nil {
		t.Fatalf("first EnsureInstalled() = %v", err)
	}
	writeFile(t, s.UnitFilePath, "# operator edit\n")

	outcome, err := m.EnsureInstalled()
	if err != nil {
		t.Fatalf("second EnsureInstalled() = %v", err)
	}
	if outcome != UnitAlreadyExists {
		t.Errorf("outcome = %v, want %v", outcome, UnitAlreadyExists)
	}
	if got := readFile(t, s.UnitFilePath); got != "# operator edit\n" {
		t.Errorf("existing unit file rewritten: %q", got)
	}
	if systemd.daemonReloadCalls != 1 || len(systemd.enableCalls) != 1 {
		t.Errorf("systemctl re-invoked: reload=%d enable=%d", systemd.daemonReloadCalls, len(systemd.enableCalls))
	}
}

func TestEnsureInstalled_ReloadFailure(t *testing.T) {
	systemd := &mockSystemdController{available: true, daemonReloadErr: &ToolError{Op: "daemon-reload", Err: errors.New("exit status 1")}}
	m, s := newTestUnitManager(t, systemd)

	_, err := m.EnsureInstalled()
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("EnsureInstalled() = %v, want *ToolError", err)
	}
	if _, statErr := os.Stat(s.UnitFilePath); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("unit file left behind after reload failure: %v", statErr)
	}
	if len(systemd.enableCalls) != 0 {
		t.Errorf("Enable() called after failed reload")
	}
}

func TestEnsureInstalled_EnableFailure(t *testing.T) {
	systemd := &mockSystemdController{available: true, enableErr: errors.New("boom")}
	m, s := newTestUnitManager(t, systemd)

	if _, err := m.EnsureInstalled(); err == nil || !strings.Contains(err.Error(), "enable relayd") {
		t.Fatalf("EnsureInstalled() = %v, want enable error", err)
	}
	if m.Exists() {
		t.Errorf("unit file %s left behind after enable failure", s.UnitFilePath)
	}
	if systemd.daemonReloadCalls != 2 {
		t.Errorf("DaemonReload() called %d times, want 2 (install and cleanup)", systemd.daemonReloadCalls)
	}
}

func TestEnsureInstalled_RetriesAfterFailedRegistration(t *testing.T) {
	systemd := &mockSystemdController{available: true, daemonReloadErr: errors.New("bus unavailable")}
	m, _ := newTestUnitManager(t, systemd)

	if _, err := m.EnsureInstalled(); err == nil {
		t.Fatal("first EnsureInstalled() succeeded with a failing reload")
	}

	systemd.daemonReloadErr = nil
	outcome, err := m.EnsureInstalled()
	if err != nil {
		t.Fatalf("second EnsureInstalled() = %v", err)
	}
	if outcome != UnitCreated {
		t.Errorf("outcome = %v, want %v", outcome, UnitCreated)
	}
	if len(systemd.enableCalls) != 1 || systemd.enableCalls[0] != "relayd" {
		t.Errorf("Enable() calls = %v, want [relayd]", systemd.enableCalls)
	}
	if !m.Exists() {
		t.Error("unit file missing after successful retry")
	}
}

func TestUnitManager_Remove(t *testing.T) {
	m, s := newTestUnitManager(t, &mockSystemdController{available: true})

	if err := m.Remove(); err != nil {
		t.Fatalf("Remove() on absent file = %v, want nil", err)
	}

	if _, err := m.EnsureInstalled(); err != nil {
		t.Fatalf("EnsureInstalled() = %v", err)
	}
	if !m.Exists() {
		t.Fatal("Exists() = false after install")
	}
	if err := m.Remove(); err != nil {
		t.Fatalf("Remove() = %v", err)
	}
	if m.Exists() {
		t.Error("Exists() = true after Remove")
	}
	if m.Path() != s.UnitFilePath {
		t.Errorf("Path() = %q, want %q", m.Path(), s.UnitFilePath)
	}
}

func TestUnitManager_RemoveLogsOnlyActualRemoval(t *testing.T) {
	s, _ := testSettings(t)
	var logs bytes.Buffer
	m := NewUnitManager(s, &mockSystemdController{available: true}, slog.New(slog.NewTextHandler(&logs, nil)))

	if err := m.Remove(); err != nil {
		t.Fatalf("Remove() on absent file = %v", err)
	}
	if strings.Contains(logs.String(), "unit file removed") {
		t.Errorf("removal logged for a file that did not exist:\n%s", logs.String())
	}

	writeFile(t, s.UnitFilePath, "[Unit]\n")
	if err := m.Remove(); err != nil {
		t.Fatalf("Remove() = %v", err)
	}
	if !strings.Contains(logs.String(), "unit file removed") {
		t.Errorf("removal not logged:\n%s", logs.String())
	}
}
