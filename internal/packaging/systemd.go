package packaging

import (
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

// realSystemdController implements SystemdController using os/exec to call systemctl.
type realSystemdController struct {
	systemctl string
}

// NewSystemdController returns a SystemdController that calls the real systemctl binary.
func NewSystemdController() SystemdController {
	return &realSystemdController{systemctl: "systemctl"}
}

func (c *realSystemdController) IsAvailable() bool {
	_, err := exec.LookPath(c.systemctl)
	return err == nil
}

func (c *realSystemdController) DaemonReload() error {
	return c.run("daemon-reload")
}

func (c *realSystemdController) Enable(service string) error {
	return c.run("enable", service)
}

func (c *realSystemdController) Disable(service string) error {
	return c.run("disable", service)
}

func (c *realSystemdController) Start(service string) error {
	return c.run("start", service)
}

func (c *realSystemdController) Stop(service string) error {
	return c.run("stop", service)
}

func (c *realSystemdController) Restart(service string) error {
	return c.run("restart", service)
}

// IsActive relies on the exit status only: 0 is active, anything else
// (3 for inactive, 4 for unknown unit) is not.
func (c *realSystemdController) IsActive(service string) bool {
	return exec.Command(c.systemctl, "is-active", "--quiet", service).Run() == nil
}

func (c *realSystemdController) IsEnabled(service string) bool {
	return exec.Command(c.systemctl, "is-enabled", "--quiet", service).Run() == nil
}

func (c *realSystemdController) run(args ...string) error {
	cmd := exec.Command(c.systemctl, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return &ToolError{
			Op:     strings.Join(args, " "),
			Output: strings.TrimSpace(string(output)),
			Err:    err,
		}
	}
	return nil
}

// realRootChecker implements RootChecker using the effective UID.
type realRootChecker struct{}

// NewRootChecker returns a RootChecker that checks the real process credentials.
func NewRootChecker() RootChecker {
	return &realRootChecker{}
}

func (c *realRootChecker) IsRoot() bool {
	return unix.Geteuid() == 0
}
