package lifecycle

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/plexsphere/relayctl/internal/packaging"
)

// fakeSystemd models the bits of systemd the manager observes: whether each
// service is active and whether it is enabled.
type fakeSystemd struct {
	available bool
	active    map[string]bool
	enabled   map[string]bool

	startErr  error
	stopErr   error
	reloadErr error

	calls []string
}

func newFakeSystemd() *fakeSystemd {
	return &fakeSystemd{
		available: true,
		active:    make(map[string]bool),
		enabled:   make(map[string]bool),
	}
}

func (f *fakeSystemd) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeSystemd) IsAvailable() bool { return f.available }

func (f *fakeSystemd) DaemonReload() error {
	f.record("daemon-reload")
	return f.reloadErr
}

func (f *fakeSystemd) Enable(s string) error {
	f.record("enable " + s)
	f.enabled[s] = true
	return nil
}

func (f *fakeSystemd) Disable(s string) error {
	f.record("disable " + s)
	f.enabled[s] = false
	return nil
}

func (f *fakeSystemd) Start(s string) error {
	f.record("start " + s)
	if f.startErr != nil {
		return f.startErr
	}
	f.active[s] = true
	return nil
}

func (f *fakeSystemd) Stop(s string) error {
	f.record("stop " + s)
	if f.stopErr != nil {
		return f.stopErr
	}
	f.active[s] = false
	return nil
}

func (f *fakeSystemd) Restart(s string) error {
	f.record("restart " + s)
	f.active[s] = true
	return nil
}

func (f *fakeSystemd) IsActive(s string) bool { return f.active[s] }
func (f *fakeSystemd) IsEnabled(s string) bool { return f.enabled[s] }

type fakeRoot struct{ root bool }

func (f *fakeRoot) IsRoot() bool { return f.root }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv is a fresh system rooted in a temp directory.
type testEnv struct {
	settings packaging.Settings
	systemd  *fakeSystemd
	root     *fakeRoot
	orch     *Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	s := packaging.Settings{
		DaemonPath:   filepath.Join(dir, "usr", "local", "bin", "relayd"),
		ManagerPath:  filepath.Join(dir, "usr", "local", "bin", "relayctl"),
		ConfigDir:    filepath.Join(dir, "etc", "relayd"),
		UnitFilePath: filepath.Join(dir, "etc", "systemd", "system", "relayd.service"),
	}
	s.ApplyDefaults()

	for _, p := range []string{s.DaemonPath, s.ManagerPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	env := &testEnv{settings: s, systemd: newFakeSystemd(), root: &fakeRoot{root: true}}
	env.orch = New(s, env.systemd, env.root, testLogger())
	return env
}

func exists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Stat(%q) = %v", path, err)
	}
	return false
}

func answer(s string) func() (string, error) {
	return func() (string, error) { return s, nil }
}
