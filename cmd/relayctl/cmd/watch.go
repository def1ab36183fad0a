package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/plexsphere/relayctl/internal/shell"
	"github.com/plexsphere/relayctl/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the service state whenever its files change",
	Long: "Watch the configuration file and the unit definition and print a fresh\n" +
		"status snapshot on every change, including edits made by other operators.\n" +
		"Stops on SIGINT or SIGTERM.",
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	w := cmd.OutOrStdout()
	render := func() {
		st, err := orch.Snapshot()
		if err != nil {
			shell.Warn(w, "configuration unreadable: %v", err)
		}
		shell.RenderState(w, st)
	}
	render()

	s := orch.Settings()
	watcher := watch.New([]string{s.ConfigFile, s.UnitFilePath}, func(path string) {
		fmt.Fprintf(w, "changed: %s\n", path)
		render()
	}, setupLogger(logLevel))
	if err := watcher.Run(ctx); err != nil {
		return fmt.Errorf("relayctl watch: %w", err)
	}
	return nil
}
