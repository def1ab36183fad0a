// Package lifecycle reconciles the persisted port configuration, the systemd
// unit definition and the running service. Every privileged mutation goes
// through Orchestrator so the privilege check and step ordering live in one place.
package lifecycle

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/plexsphere/relayctl/internal/integrity"
	"github.com/plexsphere/relayctl/internal/packaging"
	"github.com/plexsphere/relayctl/internal/portconfig"
)

// State is an immutable snapshot of what the operator sees. It is rebuilt from
// disk and systemd on every call to Snapshot.
type State struct {
	Config portconfig.Config
	Status packaging.Status
}

// ConfigureResult describes a completed ConfigureAndInstall.
type ConfigureResult struct {
	Config          portconfig.Config
	Unit            packaging.UnitOutcome
	RestartRequired bool
}

// DispatchResult describes a completed single-shot command.
type DispatchResult struct {
	Action string
	Status packaging.Status
}

// Orchestrator owns the lifecycle transactions.
type Orchestrator struct {
	settings packaging.Settings
	systemd  packaging.SystemdController
	root     packaging.RootChecker
	store    *portconfig.Store
	units    *packaging.UnitManager
	service  *packaging.ServiceController
	logger   *slog.Logger

	// selfRemoval is the manager executable scheduled for deletion by Finalize.
	selfRemoval string
}

// New wires an Orchestrator from settings and the two OS collaborators.
func New(s packaging.Settings, systemd packaging.SystemdController, root packaging.RootChecker, logger *slog.Logger) *Orchestrator {
	s.ApplyDefaults()
	units := packaging.NewUnitManager(s, systemd, logger)
	service := packaging.NewServiceController(units, systemd)
	return &Orchestrator{
		settings: s,
		systemd:  systemd,
		root:     root,
		store:    portconfig.NewStore(s.ConfigFile, service, logger),
		units:    units,
		service:  service,
		logger:   logger.With("component", "lifecycle"),
	}
}

// Settings returns the effective settings.
func (o *Orchestrator) Settings() packaging.Settings {
	return o.settings
}

// guard is the single privilege check for mutating operations. It is evaluated
// on every call because effective privileges can change between invocations.
func (o *Orchestrator) guard(op string) error {
	if !o.root.IsRoot() {
		return fmt.Errorf("lifecycle: %s: %w", op, packaging.ErrPermission)
	}
	return nil
}

// Snapshot loads the configuration and probes the service status.
func (o *Orchestrator) Snapshot() (State, error) {
	cfg, err := o.store.Load()
	if err != nil {
		return State{Config: portconfig.Empty(), Status: o.service.Status()}, err
	}
	return State{Config: cfg, Status: o.service.Status()}, nil
}

// Status recomputes the service status.
func (o *Orchestrator) Status() packaging.Status {
	return o.service.Status()
}

// Config loads the persisted configuration.
func (o *Orchestrator) Config() (portconfig.Config, error) {
	return o.store.Load()
}

// DaemonIntegrity compares the installed daemon with its install record.
func (o *Orchestrator) DaemonIntegrity() (integrity.CheckResult, error) {
	ledger, err := integrity.NewLedger(o.settings.ChecksumPath())
	if err != nil {
		return integrity.CheckResult{}, err
	}
	return ledger.Verify(o.settings.DaemonPath)
}

// ConfigureAndInstall persists a new port list and makes sure the unit exists.
// The configuration is written before the unit so the unit's EnvironmentFile
// is valid the first time systemd reads it. Empty input is rejected before
// anything on disk changes. A failed step is reported and the saved
// configuration is kept; a unit that systemd could not register is not left
// behind, so running this again retries the unit step.
func (o *Orchestrator) ConfigureAndInstall(input string) (ConfigureResult, error) {
	if err := o.guard("configure"); err != nil {
		return ConfigureResult{}, &StepError{Step: StepPrivilege, Err: err}
	}
	ports := portconfig.ParsePorts(input)
	if len(ports) == 0 {
		return ConfigureResult{}, &StepError{
			Step: StepValidate,
			Err:  fmt.Errorf("no ports given: %w", packaging.ErrInvalidInput),
		}
	}
	if !o.systemd.IsAvailable() {
		return ConfigureResult{}, &StepError{Step: StepPlatform, Err: packaging.ErrUnsupportedPlatform}
	}
	cfg := portconfig.Config{Ports: ports}

	if err := os.MkdirAll(o.settings.ConfigDir, 0o755); err != nil {
		return ConfigureResult{}, &StepError{Step: StepConfigDir, Err: packaging.WrapFSError("mkdir "+o.settings.ConfigDir, err)}
	}

	restart, err := o.store.Save(cfg)
	if err != nil {
		return ConfigureResult{}, &StepError{Step: StepSaveConfig, Err: err}
	}

	outcome, err := o.units.EnsureInstalled()
	if err != nil {
		return ConfigureResult{Config: cfg, RestartRequired: restart}, &StepError{Step: StepUnit, Err: err}
	}

	o.logger.Info("configuration applied", "ports", cfg.Joined(), "unit", outcome.String())
	return ConfigureResult{Config: cfg, Unit: outcome, RestartRequired: restart}, nil
}

// Dispatch runs a single-shot command: start, stop, restart or status.
// status needs no privileges; the others go through the guard.
func (o *Orchestrator) Dispatch(action string) (DispatchResult, error) {
	name := strings.ToLower(strings.TrimSpace(action))
	if name == "status" {
		return DispatchResult{Action: name, Status: o.service.Status()}, nil
	}

	act, err := packaging.ParseAction(name)
	if err != nil {
		return DispatchResult{Action: name}, fmt.Errorf("lifecycle: %w", err)
	}
	if err := o.guard(name); err != nil {
		return DispatchResult{Action: name}, err
	}
	if err := o.service.Control(act); err != nil {
		return DispatchResult{Action: name, Status: o.service.Status()}, fmt.Errorf("lifecycle: %w", err)
	}

	o.logger.Info("service action completed", "action", name)
	return DispatchResult{Action: name, Status: o.service.Status()}, nil
}

// Confirmed reports whether answer is a literal "yes", ignoring case and
// surrounding whitespace.
func Confirmed(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), "yes")
}

// TeardownStep is the outcome of one uninstall step.
type TeardownStep struct {
	Name string
	Err  error
	// Ignored steps may fail without failing the uninstall.
	Ignored bool
}

// UninstallReport lists every teardown step in the order attempted.
type UninstallReport struct {
	Steps []TeardownStep
}

// Failed returns the steps whose failure counts against the uninstall.
func (r UninstallReport) Failed() []TeardownStep {
	var out []TeardownStep
	for _, s := range r.Steps {
		if s.Err != nil && !s.Ignored {
			out = append(out, s)
		}
	}
	return out
}

// Uninstall asks confirm for an answer and, on "yes", tears everything down.
// Anything else returns ErrAborted with nothing touched. Each teardown step is
// attempted regardless of earlier failures; the manager executable is only
// scheduled for removal, which Finalize performs once the session ends.
func (o *Orchestrator) Uninstall(confirm func() (string, error)) (UninstallReport, error) {
	if err := o.guard("uninstall"); err != nil {
		return UninstallReport{}, err
	}

	answer, err := confirm()
	if err != nil {
		return UninstallReport{}, fmt.Errorf("lifecycle: read confirmation: %w", err)
	}
	if !Confirmed(answer) {
		o.logger.Info("uninstall aborted by operator")
		return UninstallReport{}, ErrAborted
	}

	var report UninstallReport
	run := func(name string, ignored bool, fn func() error) {
		err := fn()
		if err != nil {
			if ignored {
				o.logger.Debug("teardown step failed, continuing", "step", name, "error", err)
			} else {
				o.logger.Error("teardown step failed", "step", name, "error", err)
			}
		}
		report.Steps = append(report.Steps, TeardownStep{Name: name, Err: err, Ignored: ignored})
	}

	svc := o.settings.ServiceName
	run("stop service", true, func() error { return o.systemd.Stop(svc) })
	run("disable service", true, func() error { return o.systemd.Disable(svc) })
	run("remove unit definition", false, o.units.Remove)
	run("reload systemd", false, o.systemd.DaemonReload)
	run("remove daemon binary", false, func() error {
		return packaging.RemoveFile("lifecycle: remove "+o.settings.DaemonPath, o.settings.DaemonPath)
	})
	run("schedule manager removal", false, func() error {
		o.selfRemoval = o.settings.ManagerPath
		return nil
	})
	run("remove config directory", false, func() error {
		if err := os.RemoveAll(o.settings.ConfigDir); err != nil {
			return packaging.WrapFSError("lifecycle: remove "+o.settings.ConfigDir, err)
		}
		return nil
	})

	var errs []error
	for _, s := range report.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, s.Err))
	}
	if err := errors.Join(errs...); err != nil {
		return report, fmt.Errorf("lifecycle: uninstall incomplete: %w", err)
	}

	o.logger.Info("uninstall completed", "service", svc)
	return report, nil
}

// PendingRemoval returns the executable Finalize will delete, or "".
func (o *Orchestrator) PendingRemoval() string {
	return o.selfRemoval
}

// Finalize performs deferred work once the controlling session is over. It is
// safe to call when nothing is pending.
func (o *Orchestrator) Finalize() error {
	if o.selfRemoval == "" {
		return nil
	}
	path := o.selfRemoval
	o.selfRemoval = ""
	if err := packaging.RemoveFile("lifecycle: remove "+path, path); err != nil {
		return err
	}
	o.logger.Info("manager executable removed", "path", path)
	return nil
}
