package packaging

import (
	"errors"
	"fmt"
	"io/fs"
)

// Sentinel errors shared by every layer of the manager. Callers match them with errors.Is.
var (
	// ErrPermission means the operation needs root and the process does not have it.
	ErrPermission = errors.New("root privileges required")

	// ErrNotInstalled means a service action was requested before the unit definition exists.
	ErrNotInstalled = errors.New("service is not installed")

	// ErrInvalidInput covers empty port lists, unknown actions and declined confirmations.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedPlatform means systemctl could not be found.
	ErrUnsupportedPlatform = errors.New("systemd is not available")
)

// ToolError is returned when a systemctl invocation itself fails.
// Output carries the tool's combined output verbatim.
type ToolError struct {
	Op     string
	Output string
	Err    error
}

// Error returns the formatted error string.
func (e *ToolError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("packaging: systemctl %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("packaging: systemctl %s: %s: %v", e.Op, e.Output, e.Err)
}

// Unwrap returns the underlying exec error.
func (e *ToolError) Unwrap() error {
	return e.Err
}

// Hint returns a corrective suggestion for err, or "" when none applies.
func Hint(err error) string {
	var toolErr *ToolError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermission):
		return "re-run with elevated privileges (sudo relayctl)"
	case errors.Is(err, ErrNotInstalled):
		return "configure the service first (menu option 2 or `relayctl configure`)"
	case errors.Is(err, ErrUnsupportedPlatform):
		return "a systemd-based Linux distribution is required"
	case errors.As(err, &toolErr):
		return "see the systemctl output above; `journalctl -xe` has details"
	}
	return ""
}

// WrapFSError prefixes a filesystem error with op. Permission failures are
// additionally tagged with ErrPermission so callers see one error class for
// "not running as root", whether detected up front or by the kernel.
func WrapFSError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrPermission) && !errors.Is(err, ErrPermission) {
		return fmt.Errorf("%s: %w: %w", op, ErrPermission, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
