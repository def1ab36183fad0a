package lifecycle

import (
	"fmt"

	"github.com/plexsphere/relayctl/internal/packaging"
)

// ErrAborted is returned when the uninstall confirmation is anything but "yes".
// It matches packaging.ErrInvalidInput; callers treat it as a graceful abort.
var ErrAborted = fmt.Errorf("uninstall not confirmed: %w", packaging.ErrInvalidInput)

// Step names a stage of a lifecycle transaction.
type Step string

// Stages of ConfigureAndInstall.
const (
	StepPrivilege  Step = "check privileges"
	StepPlatform   Step = "check systemd"
	StepValidate   Step = "validate ports"
	StepConfigDir  Step = "ensure config directory"
	StepSaveConfig Step = "save configuration"
	StepUnit       Step = "install unit definition"
)

// StepError reports which stage of a transaction failed. Earlier stages are not
// rolled back.
type StepError struct {
	Step Step
	Err  error
}

// Error returns the formatted error string.
func (e *StepError) Error() string {
	return fmt.Sprintf("lifecycle: %s: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}
