package packaging

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const settingsHeader = `# relayctl settings
# Every field is optional; removing a line restores its built-in default.
# The daemon's port list lives in the PORTS environment file, not here.

`

// GenerateDefaultSettings renders s as a YAML settings document that LoadSettings
// reads back unchanged.
func GenerateDefaultSettings(s Settings) (string, error) {
	s.ApplyDefaults()
	out, err := yaml.Marshal(&s)
	if err != nil {
		return "", fmt.Errorf("packaging: settings: marshal: %w", err)
	}
	return settingsHeader + string(out), nil
}
