package packaging

// SystemdController is the slice of systemctl the manager drives. Every
// method takes the bare service name ("relayd"), never the unit file name.
// Mutating methods return a *ToolError carrying systemctl's output on failure.
type SystemdController interface {
	// IsAvailable reports whether systemctl can be found on this host.
	IsAvailable() bool

	// DaemonReload makes systemd re-read unit files from disk.
	DaemonReload() error

	// Boot-time registration.
	Enable(service string) error
	Disable(service string) error

	// Runtime control. Restart starts a stopped service.
	Start(service string) error
	Stop(service string) error
	Restart(service string) error

	// Queries answer from the exit status of is-active / is-enabled, so a
	// missing unit reads as false rather than as an error.
	IsActive(service string) bool
	IsEnabled(service string) bool
}

// RootChecker reports whether the process runs with effective UID 0.
type RootChecker interface {
	IsRoot() bool
}
