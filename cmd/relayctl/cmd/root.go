// Package cmd implements the relayctl CLI commands.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/plexsphere/relayctl/internal/lifecycle"
	"github.com/plexsphere/relayctl/internal/packaging"
	"github.com/plexsphere/relayctl/internal/shell"
)

var (
	settingsFile string
	logLevel     string
)

// Build info set from main.
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

// OS collaborators, replaced in tests.
var (
	newSystemd = packaging.NewSystemdController
	newRoot    = packaging.NewRootChecker
	newFetcher = func() packaging.Fetcher { return packaging.NewHTTPFetcher() }
)

// SetVersionInfo sets the version info from build-time ldflags.
func SetVersionInfo(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	rootCmd.Version = buildVersion
	rootCmd.SetVersionTemplate(fmt.Sprintf("relayctl version {{.Version}}\ncommit: %s\nbuilt: %s\n", buildCommit, buildDate))
}

var rootCmd = &cobra.Command{
	Use:   "relayctl",
	Short: "relayctl manages the relayd service",
	Long: "relayctl configures, installs and controls the relayd daemon as a systemd service.\n" +
		"Run without arguments for the interactive menu, or with one of\n" +
		"start, stop, status or restart for a single action.",
	Args:              rejectUnknownAction,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupOutput,
	RunE:              runShell,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", packaging.DefaultSettingsPath, "settings file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.Version = buildVersion
	rootCmd.SetVersionTemplate(fmt.Sprintf("relayctl version {{.Version}}\ncommit: %s\nbuilt: %s\n", buildCommit, buildDate))
}

// Execute runs the root command. Errors are printed with their corrective
// hint before being returned.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		shell.Failure(rootCmd.ErrOrStderr(), err)
	}
	return err
}

func runShell(cmd *cobra.Command, _ []string) error {
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}
	runErr := shell.New(orch, cmd.InOrStdin(), cmd.OutOrStdout()).Run()
	return finish(orch, runErr)
}

// rejectUnknownAction turns an argument that matched no subcommand into an
// invalid action error.
func rejectUnknownAction(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("relayctl: invalid action %q (want start, stop, status or restart): %w", args[0], packaging.ErrInvalidInput)
	}
	return nil
}

// setupOutput disables color unless stdout is a terminal.
func setupOutput(cmd *cobra.Command, _ []string) error {
	color.NoColor = !isTerminal(cmd.OutOrStdout())
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// loadSettings reads the --settings file; a missing file yields defaults.
func loadSettings() (packaging.Settings, error) {
	s, err := packaging.LoadSettings(settingsFile)
	if err != nil {
		return packaging.Settings{}, fmt.Errorf("relayctl: %w", err)
	}
	return s, nil
}

func newOrchestrator() (*lifecycle.Orchestrator, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}
	return lifecycle.New(s, newSystemd(), newRoot(), setupLogger(logLevel)), nil
}

// finish runs deferred removals once the command is done and folds their
// failure into err.
func finish(orch *lifecycle.Orchestrator, err error) error {
	if ferr := orch.Finalize(); ferr != nil {
		if err != nil {
			return fmt.Errorf("%w (also: %v)", err, ferr)
		}
		return ferr
	}
	return err
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
