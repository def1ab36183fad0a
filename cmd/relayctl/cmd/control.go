package cmd

import (
	"github.com/spf13/cobra"

	"github.com/plexsphere/relayctl/internal/shell"
)

func init() {
	rootCmd.AddCommand(
		newControlCmd("start", "Start the relayd service"),
		newControlCmd("stop", "Stop the relayd service"),
		newControlCmd("restart", "Restart the relayd service"),
	)
}

// newControlCmd builds a single-shot command that dispatches action.
func newControlCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			orch, err := newOrchestrator()
			if err != nil {
				return err
			}
			res, err := orch.Dispatch(action)
			if err != nil {
				return err
			}
			shell.Success(cmd.OutOrStdout(), "%s done; service is %s", action, shell.StatusText(res.Status))
			return nil
		},
	}
}
