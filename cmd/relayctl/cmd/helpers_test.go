package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/plexsphere/relayctl/internal/packaging"
)

// fakeSystemd tracks active and enabled state per service.
type fakeSystemd struct {
	available bool
	active    map[string]bool
	enabled   map[string]bool
	calls     []string
}

func newFakeSystemd() *fakeSystemd {
	return &fakeSystemd{available: true, active: map[string]bool{}, enabled: map[string]bool{}}
}

func (f *fakeSystemd) IsAvailable() bool { return f.available }
func (f *fakeSystemd) DaemonReload() error {
	f.calls = append(f.calls, "daemon-reload")
	return nil
}
func (f *fakeSystemd) Enable(s string) error {
	f.calls = append(f.calls, "enable "+s)
	f.enabled[s] = true
	return nil
}
func (f *fakeSystemd) Disable(s string) error {
	f.calls = append(f.calls, "disable "+s)
	f.enabled[s] = false
	return nil
}
func (f *fakeSystemd) Start(s string) error {
	f.calls = append(f.calls, "start "+s)
	f.active[s] = true
	return nil
}
func (f *fakeSystemd) Stop(s string) error {
	f.calls = append(f.calls, "stop "+s)
	f.active[s] = false
	return nil
}
func (f *fakeSystemd) Restart(s string) error {
	f.calls = append(f.calls, "restart "+s)
	f.active[s] = true
	return nil
}
func (f *fakeSystemd) IsActive(s string) bool { return f.active[s] }
func (f *fakeSystemd) IsEnabled(s string) bool { return f.enabled[s] }

type fakeRoot struct{ root bool }

func (f *fakeRoot) IsRoot() bool { return f.root }

// cliEnv is a relayctl installation rooted in a temp directory.
type cliEnv struct {
	settings     packaging.Settings
	settingsPath string
	systemd      *fakeSystemd
	root         *fakeRoot
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	s := packaging.Settings{
		DaemonPath:   filepath.Join(dir, "usr", "local", "bin", "relayd"),
		ManagerPath:  filepath.Join(dir, "usr", "local", "bin", "relayctl"),
		ConfigDir:    filepath.Join(dir, "etc", "relayd"),
		UnitFilePath: filepath.Join(dir, "etc", "systemd", "system", "relayd.service"),
	}
	s.ApplyDefaults()

	content, err := packaging.GenerateDefaultSettings(s)
	if err != nil {
		t.Fatal(err)
	}
	settingsPath := filepath.Join(dir, "relayctl.yaml")
	writeTestFile(t, settingsPath, content)
	writeTestFile(t, s.DaemonPath, "#!/bin/sh\n")
	writeTestFile(t, s.ManagerPath, "#!/bin/sh\n")

	env := &cliEnv{settings: s, settingsPath: settingsPath, systemd: newFakeSystemd(), root: &fakeRoot{root: true}}

	prevSystemd, prevRoot := newSystemd, newRoot
	newSystemd = func() packaging.SystemdController { return env.systemd }
	newRoot = func() packaging.RootChecker { return env.root }
	t.Cleanup(func() {
		newSystemd, newRoot = prevSystemd, prevRoot
	})
	return env
}

// execute runs relayctl with args and stdin, returning stdout and the error.
// Flag values from earlier runs are reset first.
func (e *cliEnv) execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--settings", e.settingsPath, "--log-level", "error"}, args...))

	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}
}

func fileExists(t *testing.T, path string) bool {
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
