// Package shell implements the interactive menu over the lifecycle orchestrator.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/plexsphere/relayctl/internal/integrity"
	"github.com/plexsphere/relayctl/internal/lifecycle"
	"github.com/plexsphere/relayctl/internal/packaging"
)

// Lifecycle is the subset of *lifecycle.Orchestrator the shell drives.
type Lifecycle interface {
	Settings() packaging.Settings
	Snapshot() (lifecycle.State, error)
	ConfigureAndInstall(input string) (lifecycle.ConfigureResult, error)
	Dispatch(action string) (lifecycle.DispatchResult, error)
	Uninstall(confirm func() (string, error)) (lifecycle.UninstallReport, error)
	DaemonIntegrity() (integrity.CheckResult, error)
}

type menuItem struct {
	key   string
	label string
}

var menu = []menuItem{
	{"1", "View configuration"},
	{"2", "Configure ports and install service"},
	{"3", "Start service"},
	{"4", "Stop service"},
	{"5", "Restart service"},
	{"6", "Service status"},
	{"7", "Uninstall"},
	{"0", "Exit"},
}

// Shell is the interactive menu loop.
type Shell struct {
	lc  Lifecycle
	in  *bufio.Reader
	out io.Writer
}

// New creates a Shell reading choices from in and writing to out.
func New(lc Lifecycle, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		lc:  lc,
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Run loops until the operator exits, input ends, or an uninstall succeeds.
// Action failures are printed and never end the loop.
func (s *Shell) Run() error {
	for {
		st, err := s.lc.Snapshot()
		if err != nil {
			Failure(s.out, err)
		}
		RenderState(s.out, st)
		s.renderMenu()

		choice, err := s.prompt("Select an option: ")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("shell: read choice: %w", err)
		}

		done, err := s.handle(choice)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		fmt.Fprintln(s.out)
	}
}

func (s *Shell) renderMenu() {
	for _, item := range menu {
		fmt.Fprintf(s.out, "  %s) %s\n", bold(item.key), item.label)
	}
}

// prompt prints label and returns the next input line without its newline.
// A final line without a newline is returned before io.EOF.
func (s *Shell) prompt(label string) (string, error) {
	fmt.Fprint(s.out, label)
	line, err := s.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// handle runs one menu choice and reports whether the session is over.
func (s *Shell) handle(choice string) (bool, error) {
	switch choice {
	case "1":
		s.viewConfig()
	case "2":
		return false, s.configure()
	case "3":
		s.dispatch("start")
	case "4":
		s.dispatch("stop")
	case "5":
		s.dispatch("restart")
	case "6":
		s.status()
	case "7":
		return s.uninstall(), nil
	case "0":
		Success(s.out, "Bye")
		return true, nil
	default:
		Failure(s.out, fmt.Errorf("invalid option %q: %w", choice, packaging.ErrInvalidInput))
	}
	return false, nil
}

func (s *Shell) viewConfig() {
	st, err := s.lc.Snapshot()
	if err != nil {
		Failure(s.out, err)
		return
	}
	check, err := s.lc.DaemonIntegrity()
	if err != nil {
		Warn(s.out, "daemon checksum unavailable: %v", err)
	}
	RenderDetails(s.out, s.lc.Settings(), st, check)
}

func (s *Shell) configure() error {
	input, err := s.prompt("Enter ports (space-separated): ")
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("shell: read ports: %w", err)
	}

	res, err := s.lc.ConfigureAndInstall(input)
	if err != nil {
		Failure(s.out, err)
		return nil
	}
	Success(s.out, "Ports saved: %s", res.Config.Joined())
	if res.Unit == packaging.UnitCreated {
		Success(s.out, "Service installed and enabled; start it with option 3")
	}
	if res.RestartRequired {
		Warn(s.out, "Service is running; restart it (option 5) to apply the new ports")
	}
	return nil
}

func (s *Shell) dispatch(action string) {
	res, err := s.lc.Dispatch(action)
	if err != nil {
		Failure(s.out, err)
		return
	}
	Success(s.out, "%s done; service is %s", action, StatusText(res.Status))
}

func (s *Shell) status() {
	res, err := s.lc.Dispatch("status")
	if err != nil {
		Failure(s.out, err)
		return
	}
	fmt.Fprintf(s.out, "Service status: %s\n", StatusText(res.Status))
	if check, err := s.lc.DaemonIntegrity(); err == nil && check.State == integrity.StateModified {
		Warn(s.out, "daemon binary differs from the installed checksum")
	}
}

// uninstall reports true only when the teardown fully succeeded, because the
// manager executable is gone once the session ends.
func (s *Shell) uninstall() bool {
	report, err := s.lc.Uninstall(func() (string, error) {
		Warn(s.out, "This removes the service, the daemon, relayctl and all configuration.")
		answer, err := s.prompt("Type 'yes' to confirm: ")
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return answer, err
	})
	switch {
	case errors.Is(err, lifecycle.ErrAborted):
		Warn(s.out, "Uninstall cancelled; nothing was changed")
		return false
	case err != nil:
		Failure(s.out, err)
		for _, step := range report.Failed() {
			fmt.Fprintf(s.out, "      failed step: %s\n", step.Name)
		}
		return false
	}
	Success(s.out, "Uninstalled; relayctl will be removed on exit")
	return true
}
