// Package packaging manages relayd as a systemd service: it renders and registers
// the unit definition, probes and drives the service through systemctl, and places
// the daemon and manager executables on disk.
package packaging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings holds the filesystem layout and unit parameters the manager operates on.
// It is read from an optional YAML file; every zero-valued field falls back to a default.
type Settings struct {
	// ServiceName is the systemd service name.
	// Default: relayd
	ServiceName string `yaml:"service_name"`

	// DaemonPath is where the relayd executable is installed.
	// Default: /usr/local/bin/relayd
	DaemonPath string `yaml:"daemon_path"`

	// ManagerPath is where the relayctl executable is installed.
	// Default: /usr/local/bin/relayctl
	ManagerPath string `yaml:"manager_path"`

	// ConfigDir is the configuration directory, removed recursively on uninstall.
	// Default: /etc/relayd
	ConfigDir string `yaml:"config_dir"`

	// ConfigFile is the PORTS environment file read by systemd.
	// Default: <ConfigDir>/relayd.conf
	ConfigFile string `yaml:"config_file"`

	// UnitFilePath is the path for the systemd unit file.
	// Default: /etc/systemd/system/relayd.service
	UnitFilePath string `yaml:"unit_file_path"`

	// UnitUser and UnitGroup are the account the daemon runs as.
	// Default: root / root
	UnitUser  string `yaml:"unit_user"`
	UnitGroup string `yaml:"unit_group"`

	// DaemonURL is the download location used by the installer when no local
	// daemon file is given (optional).
	DaemonURL string `yaml:"daemon_url"`
}

// DefaultServiceName is the default systemd service name.
const DefaultServiceName = "relayd"

// DefaultDaemonPath is the default path of the daemon executable.
const DefaultDaemonPath = "/usr/local/bin/relayd"

// DefaultManagerPath is the default path of the manager executable.
const DefaultManagerPath = "/usr/local/bin/relayctl"

// DefaultConfigDir is the default configuration directory.
const DefaultConfigDir = "/etc/relayd"

// DefaultConfigFileName is the name of the PORTS environment file inside ConfigDir.
const DefaultConfigFileName = "relayd.conf"

// DefaultUnitFilePath is the default path for the systemd unit file.
const DefaultUnitFilePath = "/etc/systemd/system/relayd.service"

// DefaultSettingsPath is where relayctl looks for its YAML settings.
const DefaultSettingsPath = "/etc/relayd/relayctl.yaml"

// ChecksumFileName is the name of the daemon checksum ledger inside ConfigDir.
const ChecksumFileName = "checksums.json"

// ApplyDefaults sets default values for zero-valued fields.
func (s *Settings) ApplyDefaults() {
	if s.ServiceName == "" {
		s.ServiceName = DefaultServiceName
	}
	if s.DaemonPath == "" {
		s.DaemonPath = DefaultDaemonPath
	}
	if s.ManagerPath == "" {
		s.ManagerPath = DefaultManagerPath
	}
	if s.ConfigDir == "" {
		s.ConfigDir = DefaultConfigDir
	}
	if s.ConfigFile == "" {
		s.ConfigFile = filepath.Join(s.ConfigDir, DefaultConfigFileName)
	}
	if s.UnitFilePath == "" {
		s.UnitFilePath = DefaultUnitFilePath
	}
	if s.UnitUser == "" {
		s.UnitUser = "root"
	}
	if s.UnitGroup == "" {
		s.UnitGroup = "root"
	}
}

// Validate checks that required fields are set.
func (s *Settings) Validate() error {
	if s.ServiceName == "" {
		return errors.New("packaging: settings: ServiceName is required")
	}
	for name, p := range map[string]string{
		"DaemonPath":   s.DaemonPath,
		"ManagerPath":  s.ManagerPath,
		"ConfigDir":    s.ConfigDir,
		"ConfigFile":   s.ConfigFile,
		"UnitFilePath": s.UnitFilePath,
	} {
		if p == "" {
			return fmt.Errorf("packaging: settings: %s is required", name)
		}
		if !filepath.IsAbs(p) {
			return fmt.Errorf("packaging: settings: %s must be absolute, got %q", name, p)
		}
	}
	if s.ConfigDir == "/" {
		return errors.New("packaging: settings: ConfigDir must not be the filesystem root")
	}
	return nil
}

// ChecksumPath returns the location of the daemon checksum ledger.
func (s *Settings) ChecksumPath() string {
	return filepath.Join(s.ConfigDir, ChecksumFileName)
}

// LoadSettings reads the YAML settings file at path. A missing file yields the
// defaults; a present but invalid file is an error.
func LoadSettings(path string) (Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Settings{}, fmt.Errorf("packaging: settings: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("packaging: settings: parse %s: %w", path, err)
		}
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
