package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plexsphere/relayctl/internal/integrity"
	"github.com/plexsphere/relayctl/internal/shell"
)

var statusVerbose bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show relayd service status",
	Long: "Report whether the relayd service is running, stopped, disabled or not installed.\n" +
		"With --verbose, also show paths, the configured ports and whether the daemon\n" +
		"binary still matches the checksum recorded at install time.",
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusVerbose, "verbose", "v", false, "show configuration and daemon checksum")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}
	res, err := orch.Dispatch("status")
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if !statusVerbose {
		fmt.Fprintf(w, "%s: %s\n", orch.Settings().ServiceName, shell.StatusText(res.Status))
		return nil
	}

	st, err := orch.Snapshot()
	if err != nil {
		shell.Warn(w, "configuration unreadable: %v", err)
	}
	check, err := orch.DaemonIntegrity()
	if err != nil {
		shell.Warn(w, "daemon checksum unavailable: %v", err)
	}
	shell.RenderDetails(w, orch.Settings(), st, check)
	if check.State == integrity.StateModified {
		shell.Warn(w, "daemon binary differs from the installed checksum")
	}
	return nil
}
