package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/plexsphere/relayctl/internal/packaging"
	"github.com/plexsphere/relayctl/internal/shell"
)

var (
	installDaemonFile  string
	installDaemonURL   string
	installManagerFile string
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the relayd daemon and relayctl binaries",
	Long: "Place the relayd daemon and relayctl on the system and prepare the configuration\n" +
		"directory. The service unit is created by `relayctl configure`.",
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installDaemonFile, "daemon-file", "", "local relayd binary to install")
	installCmd.Flags().StringVar(&installDaemonURL, "daemon-url", "", "URL to download the relayd binary from (overrides settings)")
	installCmd.Flags().StringVar(&installManagerFile, "manager-file", "", "relayctl binary to install (default: this executable)")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	opts := packaging.InstallOptions{
		DaemonFile:   installDaemonFile,
		DaemonURL:    installDaemonURL,
		ManagerFile:  installManagerFile,
		SettingsPath: settingsFile,
	}
	if err := install(ctx, s, opts); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	shell.Success(w, "relayd installed")
	fmt.Fprintln(w, "Next: run `relayctl configure` to set the ports and create the service.")
	return nil
}

func install(ctx context.Context, s packaging.Settings, opts packaging.InstallOptions) error {
	installer := packaging.NewInstaller(s, newSystemd(), newRoot(), newFetcher(), setupLogger(logLevel))
	if err := installer.Install(ctx, opts); err != nil {
		return fmt.Errorf("relayctl install: %w", err)
	}
	return nil
}
