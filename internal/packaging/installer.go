package packaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/plexsphere/relayctl/internal/fsutil"
	"github.com/plexsphere/relayctl/internal/integrity"
)

// InstallOptions selects where the daemon binary comes from.
// DaemonFile wins over DaemonURL; DaemonURL falls back to Settings.DaemonURL.
type InstallOptions struct {
	DaemonFile string
	DaemonURL  string

	// ManagerFile is the relayctl binary to install. Empty means the running
	// executable.
	ManagerFile string

	// SettingsPath, when set, receives a default settings file if none exists.
	SettingsPath string
}

// Fetcher downloads a remote artifact into w.
type Fetcher interface {
	Fetch(ctx context.Context, url string, w io.Writer) error
}

// HTTPFetcher downloads artifacts over HTTP(S).
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns a fetcher with a bounded overall timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: 5 * time.Minute}}
}

// Fetch performs a GET and copies a 200 response body into w.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("packaging: fetch %s: %w", url, err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("packaging: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("packaging: fetch %s: unexpected status %s", url, resp.Status)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("packaging: fetch %s: %w", url, err)
	}
	return nil
}

// Installer places the daemon and manager executables and prepares the
// configuration directory. The unit definition is created later, by configure.
type Installer struct {
	settings Settings
	systemd  SystemdController
	root     RootChecker
	fetcher  Fetcher
	logger   *slog.Logger

	// executable resolves the running manager binary; replaced in tests.
	executable func() (string, error)
}

// NewInstaller creates a new Installer with defaults applied.
func NewInstaller(s Settings, systemd SystemdController, root RootChecker, fetcher Fetcher, logger *slog.Logger) *Installer {
	s.ApplyDefaults()
	return &Installer{
		settings:   s,
		systemd:    systemd,
		root:       root,
		fetcher:    fetcher,
		logger:     logger.With("component", "installer"),
		executable: os.Executable,
	}
}

// Install checks privileges and platform, then installs both executables and
// records the daemon checksum. A daemon that cannot be obtained fails the
// installation; no placeholder is ever substituted.
func (ins *Installer) Install(ctx context.Context, opts InstallOptions) error {
	if !ins.root.IsRoot() {
		return fmt.Errorf("packaging: install: %w", ErrPermission)
	}
	if !ins.systemd.IsAvailable() {
		return fmt.Errorf("packaging: install: %w", ErrUnsupportedPlatform)
	}

	if err := os.MkdirAll(ins.settings.ConfigDir, 0o755); err != nil {
		return WrapFSError("packaging: create config directory", err)
	}
	ins.logger.Info("directory created", "path", ins.settings.ConfigDir)

	if err := ins.writeDefaultSettings(opts.SettingsPath); err != nil {
		return err
	}

	source, err := ins.placeDaemon(ctx, opts)
	if err != nil {
		return err
	}

	if err := ins.copyManager(opts.ManagerFile); err != nil {
		return err
	}

	return ins.recordDaemon(source)
}

func (ins *Installer) writeDefaultSettings(path string) error {
	if path == "" {
		return nil
	}
	present, err := fsutil.Exists(path)
	if err != nil {
		return fmt.Errorf("packaging: %w", err)
	}
	if present {
		ins.logger.Info("existing settings preserved", "path", path)
		return nil
	}
	content, err := GenerateDefaultSettings(ins.settings)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return WrapFSError("packaging: write settings", err)
	}
	ins.logger.Info("default settings written", "path", path)
	return nil
}

// placeDaemon installs the daemon and returns where it came from. An
// existing daemon is kept when no source is given, and its previous record
// (if any) is kept with it.
func (ins *Installer) placeDaemon(ctx context.Context, opts InstallOptions) (string, error) {
	dst := ins.settings.DaemonPath

	if opts.DaemonFile != "" {
		if err := copyExecutable(opts.DaemonFile, dst); err != nil {
			return "", fmt.Errorf("packaging: install daemon: %w", err)
		}
		ins.logger.Info("daemon installed", "src", opts.DaemonFile, "dst", dst)
		return opts.DaemonFile, nil
	}

	url := opts.DaemonURL
	if url == "" {
		url = ins.settings.DaemonURL
	}
	if url == "" {
		present, err := fsutil.Exists(dst)
		if err != nil {
			return "", fmt.Errorf("packaging: %w", err)
		}
		if !present {
			return "", fmt.Errorf("packaging: install daemon: no daemon file or URL given and %s is absent: %w", dst, ErrInvalidInput)
		}
		ins.logger.Info("existing daemon preserved", "path", dst)
		return "", nil
	}

	if err := ins.download(ctx, url, dst); err != nil {
		return "", err
	}
	ins.logger.Info("daemon downloaded", "url", url, "dst", dst)
	return url, nil
}

func (ins *Installer) download(ctx context.Context, url, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return WrapFSError("packaging: create daemon directory", err)
	}
	pf, err := renameio.NewPendingFile(dst, renameio.WithPermissions(0o755))
	if err != nil {
		return WrapFSError("packaging: create daemon file", err)
	}
	defer pf.Cleanup()

	if err := ins.fetcher.Fetch(ctx, url, pf); err != nil {
		return err
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return WrapFSError("packaging: replace daemon", err)
	}
	return nil
}

func (ins *Installer) copyManager(srcPath string) error {
	if srcPath == "" {
		self, err := ins.executable()
		if err != nil {
			return fmt.Errorf("packaging: resolve executable path: %w", err)
		}
		srcPath = self
	}

	// Resolve symlinks
	srcPath, err := filepath.EvalSymlinks(srcPath)
	if err != nil {
		return fmt.Errorf("packaging: resolve symlinks: %w", err)
	}

	dstPath := ins.settings.ManagerPath
	if srcPath == dstPath {
		ins.logger.Info("manager already at install path, skipping copy", "path", dstPath)
		return nil
	}

	if err := copyExecutable(srcPath, dstPath); err != nil {
		return fmt.Errorf("packaging: install manager: %w", err)
	}
	ins.logger.Info("manager installed", "src", srcPath, "dst", dstPath)
	return nil
}

func (ins *Installer) recordDaemon(source string) error {
	ledger, err := integrity.NewLedger(ins.settings.ChecksumPath())
	if err != nil {
		return fmt.Errorf("packaging: %w", err)
	}
	if source == "" {
		if _, ok := ledger.Lookup(ins.settings.DaemonPath); ok {
			return nil
		}
		source = "preinstalled"
	}
	rec, err := ledger.Record(ins.settings.DaemonPath, source)
	if err != nil {
		return fmt.Errorf("packaging: %w", err)
	}
	ins.logger.Info("daemon checksum recorded", "path", ins.settings.DaemonPath, "sha256", rec.SHA256, "source", source)
	return nil
}

// copyExecutable copies src over dst atomically with mode 0755.
func copyExecutable(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return WrapFSError("create directory", err)
	}
	pf, err := renameio.NewPendingFile(dst, renameio.WithPermissions(0o755))
	if err != nil {
		return WrapFSError("create "+dst, err)
	}
	defer pf.Cleanup()

	if _, err := io.Copy(pf, in); err != nil {
		return err
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return WrapFSError("replace "+dst, err)
	}
	return nil
}

// RemoveFile deletes path, treating a missing file as success.
func RemoveFile(op, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return WrapFSError(op, err)
	}
	return nil
}
