// Package cmd implements the relayd-installer command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/plexsphere/relayctl/internal/packaging"
	"github.com/plexsphere/relayctl/internal/shell"
)

var (
	settingsFile string
	logLevel     string
	daemonFile   string
	daemonURL    string
	managerFile  string
)

// OS collaborators, replaced in tests.
var (
	newSystemd = packaging.NewSystemdController
	newRoot    = packaging.NewRootChecker
	newFetcher = func() packaging.Fetcher { return packaging.NewHTTPFetcher() }
	executable = os.Executable
)

var rootCmd = &cobra.Command{
	Use:   "relayd-installer [install]",
	Short: "Install relayd and relayctl",
	Long: "relayd-installer places the relayd daemon and the relayctl manager on a\n" +
		"systemd host. Run it without arguments or with `install`; afterwards use\n" +
		"`relayctl configure` to choose ports and create the service.",
	Args:          installArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runInstall,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&settingsFile, "settings", packaging.DefaultSettingsPath, "settings file path")
	f.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	f.StringVar(&daemonFile, "daemon-file", "", "local relayd binary to install")
	f.StringVar(&daemonURL, "daemon-url", "", "URL to download the relayd binary from (overrides settings)")
	f.StringVar(&managerFile, "manager-file", "", "relayctl binary to install (default: relayctl next to this installer)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Execute runs the installer. Errors are printed with their corrective hint
// before being returned.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		shell.Failure(rootCmd.ErrOrStderr(), err)
	}
	return err
}

// installArgs accepts no argument or "install". Anything else prints usage
// and fails before any side effect.
func installArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 || (len(args) == 1 && args[0] == "install") {
		return nil
	}
	_ = cmd.Usage()
	return fmt.Errorf("relayd-installer: unexpected arguments %q: %w", args, packaging.ErrInvalidInput)
}

func runInstall(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	color.NoColor = true
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		color.NoColor = false
	}

	s, err := packaging.LoadSettings(settingsFile)
	if err != nil {
		return fmt.Errorf("relayd-installer: %w", err)
	}

	manager := managerFile
	if manager == "" {
		self, err := executable()
		if err != nil {
			return fmt.Errorf("relayd-installer: resolve executable path: %w", err)
		}
		manager = filepath.Join(filepath.Dir(self), "relayctl")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	installer := packaging.NewInstaller(s, newSystemd(), newRoot(), newFetcher(), setupLogger(logLevel))
	opts := packaging.InstallOptions{
		DaemonFile:   daemonFile,
		DaemonURL:    daemonURL,
		ManagerFile:  manager,
		SettingsPath: settingsFile,
	}
	if err := installer.Install(ctx, opts); err != nil {
		return fmt.Errorf("relayd-installer: %w", err)
	}

	shell.Success(w, "relayd and relayctl installed")
	fmt.Fprintln(w, "Next: run `relayctl configure` to set the ports and create the service.")
	return nil
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
