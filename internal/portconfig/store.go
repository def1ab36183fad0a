package portconfig

import (
	"errors"
	"log/slog"
	"os"

	"github.com/plexsphere/relayctl/internal/fsutil"
	"github.com/plexsphere/relayctl/internal/packaging"
)

// ActivityProbe reports whether the service is currently running.
type ActivityProbe interface {
	IsActive() bool
}

// Store reads and writes the configuration file. Every Load goes to disk;
// nothing is cached between calls.
type Store struct {
	path   string
	probe  ActivityProbe
	logger *slog.Logger
}

// NewStore creates a Store for the file at path. probe may be nil, in which
// case Save never asks for a restart.
func NewStore(path string, probe ActivityProbe, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		probe:  probe,
		logger: logger.With("component", "portconfig"),
	}
}

// Path returns the configuration file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted configuration. A missing file yields an empty
// port list and no error.
func (s *Store) Load() (Config, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Empty(), nil
	}
	if err != nil {
		return Empty(), packaging.WrapFSError("portconfig: read "+s.path, err)
	}

	cfg, ignored := Parse(data)
	for _, l := range ignored {
		s.logger.Debug("ignoring configuration line", "path", s.path, "line", l.Number, "reason", l.Reason)
	}
	return cfg, nil
}

// Save replaces the configuration file with cfg. When the service is running
// it logs a warning and reports restartRequired; it never restarts anything.
func (s *Store) Save(cfg Config) (restartRequired bool, err error) {
	if err := fsutil.WriteFileAtomic(s.path, Format(cfg), 0o644); err != nil {
		return false, packaging.WrapFSError("portconfig: write "+s.path, err)
	}
	s.logger.Info("configuration saved", "path", s.path, "ports", cfg.Joined())

	if s.probe != nil && s.probe.IsActive() {
		s.logger.Warn("service is running; restart it for the new ports to take effect")
		return true, nil
	}
	return false, nil
}
