package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plexsphere/relayctl/internal/lifecycle"
	"github.com/plexsphere/relayctl/internal/shell"
)

var uninstallYes bool

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the relayd service, binaries and configuration",
	Args:  cobra.NoArgs,
	RunE:  runUninstall,
}

func init() {
	uninstallCmd.Flags().BoolVarP(&uninstallYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, _ []string) error {
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	report, err := orch.Uninstall(func() (string, error) {
		if uninstallYes {
			return "yes", nil
		}
		shell.Warn(w, "This removes the service, the daemon, relayctl and all configuration.")
		fmt.Fprint(w, "Type 'yes' to confirm: ")
		return readLine(cmd.InOrStdin())
	})
	if errors.Is(err, lifecycle.ErrAborted) {
		shell.Warn(w, "Uninstall cancelled; nothing was changed")
		return nil
	}
	if err != nil {
		for _, step := range report.Failed() {
			fmt.Fprintf(w, "      failed step: %s\n", step.Name)
		}
		return finish(orch, err)
	}

	if err := finish(orch, nil); err != nil {
		return err
	}
	shell.Success(w, "relayd uninstalled")
	return nil
}
